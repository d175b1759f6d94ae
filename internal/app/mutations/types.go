package mutations

import (
	"encoding/json"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Result is the dispatcher's response envelope. Body is the exact JSON the
// handler writes; on a replayed attempt it is the stored snapshot,
// byte-identical to the first response.
type Result struct {
	Body     json.RawMessage
	Replayed bool
}

// The input structs double as the canonical payload for fingerprinting:
// their JSON form (target id, fields, expected revision) is what identifies
// a logical request. Optional fields carry omitempty so an omitted field and
// an absent one hash identically.

type NoteInput struct {
	NoteID           domain.NoteID `json:"noteId"`
	POIID            domain.POIID  `json:"poiId"`
	Body             string        `json:"body"`
	Rating           *int          `json:"rating,omitempty"`
	ExpectedRevision *int64        `json:"expectedRevision,omitempty"`
}

type NoteResult struct {
	NoteID    domain.NoteID `json:"noteId"`
	POIID     domain.POIID  `json:"poiId"`
	Body      string        `json:"body"`
	Rating    *int          `json:"rating,omitempty"`
	Revision  int64         `json:"revision"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type ProgressInput struct {
	RouteID          domain.RouteID `json:"routeId"`
	CompletedStopIDs []string       `json:"completedStopIds"`
	LastStopID       *string        `json:"lastStopId,omitempty"`
	ExpectedRevision *int64         `json:"expectedRevision,omitempty"`
}

type ProgressResult struct {
	RouteID          domain.RouteID `json:"routeId"`
	CompletedStopIDs []string       `json:"completedStopIds"`
	LastStopID       *string        `json:"lastStopId,omitempty"`
	Revision         int64          `json:"revision"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type PreferencesInput struct {
	Pace             string   `json:"pace"`
	Interests        []string `json:"interests"`
	Avoid            []string `json:"avoid"`
	Units            string   `json:"units"`
	ExpectedRevision *int64   `json:"expectedRevision,omitempty"`
}

type PreferencesResult struct {
	Pace      string    `json:"pace"`
	Interests []string  `json:"interests"`
	Avoid     []string  `json:"avoid"`
	Units     string    `json:"units"`
	Revision  int64     `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RouteInput struct {
	Name            string   `json:"name"`
	StopIDs         []string `json:"stopIds"`
	DistanceMeters  float64  `json:"distanceMeters"`
	DurationMinutes int      `json:"durationMinutes"`
}

type RouteResult struct {
	RouteID         domain.RouteID `json:"routeId"`
	Name            string         `json:"name"`
	StopIDs         []string       `json:"stopIds"`
	DistanceMeters  float64        `json:"distanceMeters"`
	DurationMinutes int            `json:"durationMinutes"`
	CreatedAt       time.Time      `json:"createdAt"`
}

type BundleInput struct {
	Kind     string     `json:"kind"`
	RouteID  *string    `json:"routeId,omitempty"`
	RegionID *string    `json:"regionId,omitempty"`
	Bounds   [4]float64 `json:"bounds"`
	MinZoom  int        `json:"minZoom"`
	MaxZoom  int        `json:"maxZoom"`
}

type BundleResult struct {
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
}
