package mutations

import (
	"context"
	"encoding/json"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/clock"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
)

// Outcome classifies what the ledger knows about a mutation attempt.
type Outcome int

const (
	// OutcomeFresh means no prior record exists; the caller executes the
	// mutation for the first time.
	OutcomeFresh Outcome = iota
	// OutcomeReplay means a prior record matches the payload fingerprint;
	// the caller returns the stored snapshot verbatim and performs no
	// further domain work.
	OutcomeReplay
	// OutcomeConflict means the key was reused with a different payload.
	// This signals a client bug and is never silently executed.
	OutcomeConflict
)

// Attempt is the result of a ledger lookup at the start of a mutation.
type Attempt struct {
	Outcome  Outcome
	Snapshot json.RawMessage
}

// Ledger detects and replays duplicate mutation submissions.
// It operates on a transaction-bound ledger.Store so that BeginAttempt and
// Commit are consistent with the domain write between them.
type Ledger struct {
	clock clock.Clock
}

func NewLedger(clk clock.Clock) *Ledger {
	return &Ledger{clock: clk}
}

// BeginAttempt looks up a prior record for (key, actor, mutation type) and
// compares payload fingerprints.
func (l *Ledger) BeginAttempt(ctx context.Context, st ledger.Store, key ledger.Key, actor domain.ActorID, mt domain.MutationType, fp domain.Fingerprint) (Attempt, error) {
	rec, ok, err := st.Get(ctx, key, actor, mt)
	if err != nil {
		return Attempt{}, err
	}
	if !ok {
		return Attempt{Outcome: OutcomeFresh}, nil
	}
	if rec.Fingerprint != fp {
		return Attempt{Outcome: OutcomeConflict}, nil
	}
	return Attempt{Outcome: OutcomeReplay, Snapshot: rec.Response}, nil
}

// Commit persists the attempt record with the exact response about to be
// returned. Only reachable from OutcomeFresh; it must run in the same
// transaction as the domain write it accompanies. A ledger.ErrDuplicateKey
// here means a concurrent attempt with the same key won the race.
func (l *Ledger) Commit(ctx context.Context, st ledger.Store, key ledger.Key, actor domain.ActorID, mt domain.MutationType, fp domain.Fingerprint, response json.RawMessage) error {
	return st.Insert(ctx, ledger.Record{
		Key:         key,
		Actor:       actor,
		Type:        mt,
		Fingerprint: fp,
		Response:    response,
		CreatedAt:   l.clock.Now().UTC(),
	})
}
