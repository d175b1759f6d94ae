package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
)

// Request DTOs. Nullable fields distinguish "omitted" from "explicit null"
// where the difference matters (clearing an optional value).

type noteRequest struct {
	POIID            string                 `json:"poiId"`
	Body             string                 `json:"body"`
	Rating           nullable.Nullable[int] `json:"rating,omitempty"`
	ExpectedRevision *int64                 `json:"expectedRevision,omitempty"`
}

type progressRequest struct {
	CompletedStopIDs []string                  `json:"completedStopIds"`
	LastStopID       nullable.Nullable[string] `json:"lastStopId,omitempty"`
	ExpectedRevision *int64                    `json:"expectedRevision,omitempty"`
}

type preferencesRequest struct {
	Pace             string   `json:"pace"`
	Interests        []string `json:"interests"`
	Avoid            []string `json:"avoid"`
	Units            string   `json:"units"`
	ExpectedRevision *int64   `json:"expectedRevision,omitempty"`
}

type routeRequest struct {
	Name            string   `json:"name"`
	StopIDs         []string `json:"stopIds"`
	DistanceMeters  float64  `json:"distanceMeters"`
	DurationMinutes int      `json:"durationMinutes"`
}

type bundleRequest struct {
	Kind     string     `json:"kind"`
	RouteID  *string    `json:"routeId,omitempty"`
	RegionID *string    `json:"regionId,omitempty"`
	Bounds   [4]float64 `json:"bounds"`
	MinZoom  int        `json:"minZoom"`
	MaxZoom  int        `json:"maxZoom"`
}

type bundleAdvanceRequest struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

type bundleResponse struct {
	BundleID  domain.BundleID     `json:"bundleId"`
	Kind      domain.BundleKind   `json:"kind"`
	RouteID   *domain.RouteID     `json:"routeId,omitempty"`
	RegionID  *string             `json:"regionId,omitempty"`
	Bounds    [4]float64          `json:"bounds"`
	MinZoom   int                 `json:"minZoom"`
	MaxZoom   int                 `json:"maxZoom"`
	Status    domain.BundleStatus `json:"status"`
	Progress  float64             `json:"progress"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func toBundleResponse(b bundlerepo.Bundle) bundleResponse {
	return bundleResponse{
		BundleID:  b.ID,
		Kind:      b.Kind,
		RouteID:   b.RouteID,
		RegionID:  b.RegionID,
		Bounds:    [4]float64(b.Bounds),
		MinZoom:   b.MinZoom,
		MaxZoom:   b.MaxZoom,
		Status:    b.Status,
		Progress:  b.Progress,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
