package prefsrepo

import (
	"context"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Preferences holds a user's routing preferences. At most one row per user;
// the row is created on first write.
type Preferences struct {
	UserID domain.UserID

	Pace      string
	Interests []string
	Avoid     []string
	Units     string

	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentRevision implements the optimistic-concurrency capability.
func (p Preferences) CurrentRevision() int64 { return p.Revision }

type Repository interface {
	Get(ctx context.Context, user domain.UserID) (Preferences, error)
	Put(ctx context.Context, p Preferences) error
}
