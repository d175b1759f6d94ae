package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Key is the client-supplied idempotency key (Idempotency-Key header).
// It marks one logical attempt of a mutation and is unique only in
// combination with the acting user and mutation type.
type Key = uuid.UUID

// Record is one persisted mutation attempt. Records are immutable after
// insertion; the only delete path is the TTL sweep.
type Record struct {
	Key         Key
	Actor       domain.ActorID
	Type        domain.MutationType
	Fingerprint domain.Fingerprint
	// Response is the exact response body produced when the mutation first
	// succeeded, replayed verbatim for duplicate submissions.
	Response  json.RawMessage
	CreatedAt time.Time
}

// Store persists idempotency records.
//
// Insert must enforce uniqueness of (Key, Actor, Type) and return
// ErrDuplicateKey when the triple already exists; under concurrent inserts
// the storage engine's unique constraint is the final arbiter.
type Store interface {
	Get(ctx context.Context, key Key, actor domain.ActorID, mt domain.MutationType) (Record, bool, error)
	Insert(ctx context.Context, rec Record) error
	// DeleteExpired removes records created strictly before cutoff and
	// reports how many were deleted. Safe to run concurrently with inserts.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
