package bundlerepo

import (
	"context"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Bundle is the persistence shape for an offline bundle.
type Bundle struct {
	ID    domain.BundleID
	Owner domain.Owner

	Kind     domain.BundleKind
	RouteID  *domain.RouteID
	RegionID *string
	Bounds   domain.BoundingBox
	MinZoom  int
	MaxZoom  int

	Status   domain.BundleStatus
	Progress float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted bundles.
//
// ListByOwner returns bundles ordered by creation time, newest first.
type Repository interface {
	Create(ctx context.Context, b Bundle) error
	GetByID(ctx context.Context, id domain.BundleID) (Bundle, error)
	Save(ctx context.Context, b Bundle) error
	ListByOwner(ctx context.Context, owner domain.Owner) ([]Bundle, error)
}
