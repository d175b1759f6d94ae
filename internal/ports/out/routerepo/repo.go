package routerepo

import (
	"context"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Route is a saved route. Creation-only through the mutation layer; the
// route generator computes the stop order and estimates before submission.
type Route struct {
	ID     domain.RouteID
	UserID domain.UserID

	Name            string
	StopIDs         []string
	DistanceMeters  float64
	DurationMinutes int

	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, r Route) error
	GetByID(ctx context.Context, id domain.RouteID) (Route, error)
}
