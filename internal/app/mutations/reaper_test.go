package mutations_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	memclock "github.com/wayfarer-travel/wayfarer-api/internal/adapters/memory/clock"
	memstorage "github.com/wayfarer-travel/wayfarer-api/internal/adapters/memory/storage"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/mutations"
	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
)

func insertRecord(t *testing.T, backend *memstorage.Backend, actor domain.ActorID, createdAt time.Time) ledger.Key {
	t.Helper()
	key := uuid.New()
	fp, err := domain.FingerprintPayload(map[string]string{"key": key.String()})
	if err != nil {
		t.Fatalf("FingerprintPayload: %v", err)
	}
	if err := backend.Ledger().Insert(context.Background(), ledger.Record{
		Key:         key,
		Actor:       actor,
		Type:        domain.MutationNotes,
		Fingerprint: fp,
		Response:    json.RawMessage(`{}`),
		CreatedAt:   createdAt,
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return key
}

func TestReaper_SweepOnceDeletesOnlyExpiredRecords(t *testing.T) {
	t.Parallel()

	backend := memstorage.NewBackend()
	start := time.Unix(1_700_000_000, 0).UTC()
	clk := memclock.NewManualClock(start)
	actor := domain.UserID(uuid.NewString()).Actor()

	oldKey := insertRecord(t, backend, actor, start.Add(-25*time.Hour))
	freshKey := insertRecord(t, backend, actor, start.Add(-time.Hour))

	reaper := mutations.NewReaper(backend.Ledger(), 24*time.Hour, time.Hour, clk, nil)
	deleted, err := reaper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, ok, _ := backend.Ledger().Get(context.Background(), oldKey, actor, domain.MutationNotes); ok {
		t.Fatalf("expired record survived")
	}
	if _, ok, _ := backend.Ledger().Get(context.Background(), freshKey, actor, domain.MutationNotes); !ok {
		t.Fatalf("fresh record swept")
	}

	// Once the clock moves past the TTL, the remaining record goes too.
	clk.Advance(24 * time.Hour)
	deleted, err = reaper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
}

func TestReaper_StartStop(t *testing.T) {
	t.Parallel()

	backend := memstorage.NewBackend()
	clk := memclock.NewManualClock(time.Unix(1_700_000_000, 0))
	reaper := mutations.NewReaper(backend.Ledger(), 24*time.Hour, time.Millisecond, clk, nil)

	reaper.Start()
	reaper.Start() // second Start is a no-op
	time.Sleep(5 * time.Millisecond)
	reaper.Stop()
	reaper.Stop() // second Stop is a no-op
}
