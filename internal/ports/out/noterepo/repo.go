package noterepo

import (
	"context"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Note is the persistence shape for a traveler note. It is not an HTTP DTO.
type Note struct {
	ID     domain.NoteID
	UserID domain.UserID
	POIID  domain.POIID

	Body   string
	Rating *int

	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentRevision implements the optimistic-concurrency capability.
func (n Note) CurrentRevision() int64 { return n.Revision }

// Repository provides access to persisted notes. Notes are scoped per user:
// two users may use the same note id without colliding.
type Repository interface {
	Get(ctx context.Context, user domain.UserID, id domain.NoteID) (Note, error)
	// Put inserts or replaces the note. Revision management is the caller's
	// responsibility; Put stores what it is given.
	Put(ctx context.Context, n Note) error
}
