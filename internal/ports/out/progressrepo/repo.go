package progressrepo

import (
	"context"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Progress is a user's visit progress along one route, keyed by (user, route).
type Progress struct {
	UserID  domain.UserID
	RouteID domain.RouteID

	CompletedStopIDs []string
	LastStopID       *string

	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentRevision implements the optimistic-concurrency capability.
func (p Progress) CurrentRevision() int64 { return p.Revision }

type Repository interface {
	Get(ctx context.Context, user domain.UserID, route domain.RouteID) (Progress, error)
	Put(ctx context.Context, p Progress) error
}
