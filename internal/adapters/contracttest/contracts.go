// Package contracttest defines behavioral contracts every storage backend
// must satisfy. The memory and postgres adapters each run these suites
// against their own factories.
package contracttest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	bundlerepoport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	ledgerport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
	noterepoport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	prefsrepoport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	progressrepoport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
	routerepoport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
	storageport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/storage"
)

type CleanupFunc = func()

// BackendFactory builds a fresh, empty backend for one test.
type BackendFactory func(t *testing.T) (storageport.Backend, CleanupFunc)

func newBackend(t *testing.T, factory BackendFactory) storageport.Backend {
	t.Helper()
	backend, cleanup := factory(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return backend
}

func mustFingerprint(t *testing.T, v any) domain.Fingerprint {
	t.Helper()
	fp, err := domain.FingerprintPayload(v)
	if err != nil {
		t.Fatalf("FingerprintPayload: %v", err)
	}
	return fp
}

// RunLedgerStore exercises insert/lookup, triple scoping, the duplicate
// constraint, and the TTL sweep.
func RunLedgerStore(t *testing.T, factory BackendFactory) {
	t.Helper()
	ctx := context.Background()
	store := newBackend(t, factory).Ledger()

	key := uuid.New()
	actor := domain.UserID("user-1").Actor()
	now := time.Unix(5000, 0).UTC()
	// Compact, deliberately non-sorted keys: the snapshot must come back
	// byte-for-byte, not merely JSON-equal, or replays stop being
	// byte-identical to the first response.
	rec := ledgerport.Record{
		Key:         key,
		Actor:       actor,
		Type:        domain.MutationNotes,
		Fingerprint: mustFingerprint(t, map[string]string{"body": "a"}),
		Response:    json.RawMessage(`{"noteId":"n-1","body":"great viewpoint","revision":1}`),
		CreatedAt:   now,
	}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok, err := store.Get(ctx, key, actor, domain.MutationNotes)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected record for inserted triple")
	}
	if got.Fingerprint != rec.Fingerprint {
		t.Fatalf("fingerprint mismatch: %x vs %x", got.Fingerprint, rec.Fingerprint)
	}
	if string(got.Response) != string(rec.Response) {
		t.Fatalf("response snapshot not verbatim:\n got %s\nwant %s", got.Response, rec.Response)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("createdAt mismatch: %v", got.CreatedAt)
	}

	// The triple is the identity: same key under another actor or another
	// mutation type is a different attempt.
	if _, ok, err := store.Get(ctx, key, domain.UserID("user-2").Actor(), domain.MutationNotes); err != nil || ok {
		t.Fatalf("expected miss for other actor, ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Get(ctx, key, actor, domain.MutationProgress); err != nil || ok {
		t.Fatalf("expected miss for other mutation type, ok=%v err=%v", ok, err)
	}
	other := rec
	other.Actor = domain.UserID("user-2").Actor()
	if err := store.Insert(ctx, other); err != nil {
		t.Fatalf("Insert other actor: %v", err)
	}

	// Re-inserting the same triple must fail with the sentinel, regardless
	// of payload.
	dup := rec
	dup.Fingerprint = mustFingerprint(t, map[string]string{"body": "b"})
	if err := store.Insert(ctx, dup); !errors.Is(err, ledgerport.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Sweep removes records created strictly before the cutoff.
	old := ledgerport.Record{
		Key:         uuid.New(),
		Actor:       actor,
		Type:        domain.MutationRoutes,
		Fingerprint: mustFingerprint(t, map[string]string{"name": "old"}),
		Response:    json.RawMessage(`{}`),
		CreatedAt:   now.Add(-48 * time.Hour),
	}
	if err := store.Insert(ctx, old); err != nil {
		t.Fatalf("Insert old: %v", err)
	}
	deleted, err := store.DeleteExpired(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 expired record deleted, got %d", deleted)
	}
	if _, ok, _ := store.Get(ctx, old.Key, actor, domain.MutationRoutes); ok {
		t.Fatalf("expired record still present")
	}
	if _, ok, _ := store.Get(ctx, key, actor, domain.MutationNotes); !ok {
		t.Fatalf("live record deleted by sweep")
	}
	// Records created exactly at the cutoff survive.
	deleted, err = store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired at boundary: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("boundary sweep deleted %d records", deleted)
	}
}

// RunNoteRepo exercises per-user scoping and upsert semantics.
func RunNoteRepo(t *testing.T, factory BackendFactory) {
	t.Helper()
	ctx := context.Background()
	repo := newBackend(t, factory).Notes()

	userA := domain.UserID(uuid.NewString())
	userB := domain.UserID(uuid.NewString())
	noteID := domain.NoteID(uuid.NewString())
	now := time.Unix(2000, 0).UTC()

	if _, err := repo.Get(ctx, userA, noteID); !errors.Is(err, noterepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rating := 4
	n := noterepoport.Note{
		ID:        noteID,
		UserID:    userA,
		POIID:     domain.POIID(uuid.NewString()),
		Body:      "great viewpoint",
		Rating:    &rating,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Put(ctx, n); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, userA, noteID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Body != "great viewpoint" || got.Revision != 1 {
		t.Fatalf("unexpected note: %+v", got)
	}
	if got.Rating == nil || *got.Rating != 4 {
		t.Fatalf("rating not persisted: %+v", got.Rating)
	}

	// Same note id under another user is a distinct row.
	if _, err := repo.Get(ctx, userB, noteID); !errors.Is(err, noterepoport.ErrNotFound) {
		t.Fatalf("note leaked across users: %v", err)
	}

	// Replace clears the rating and bumps the revision.
	n.Body = "closed for renovation"
	n.Rating = nil
	n.Revision = 2
	n.UpdatedAt = now.Add(time.Minute)
	if err := repo.Put(ctx, n); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, err = repo.Get(ctx, userA, noteID)
	if err != nil {
		t.Fatalf("Get after replace: %v", err)
	}
	if got.Body != "closed for renovation" || got.Revision != 2 || got.Rating != nil {
		t.Fatalf("replace not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("createdAt changed on replace: %v", got.CreatedAt)
	}
}

// RunProgressRepo exercises the (user, route) keyed progress rows.
func RunProgressRepo(t *testing.T, factory BackendFactory) {
	t.Helper()
	ctx := context.Background()
	repo := newBackend(t, factory).Progress()

	user := domain.UserID(uuid.NewString())
	route := domain.RouteID(uuid.NewString())
	now := time.Unix(3000, 0).UTC()

	if _, err := repo.Get(ctx, user, route); !errors.Is(err, progressrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	last := "stop-2"
	p := progressrepoport.Progress{
		UserID:           user,
		RouteID:          route,
		CompletedStopIDs: []string{"stop-1", "stop-2"},
		LastStopID:       &last,
		Revision:         1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repo.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := repo.Get(ctx, user, route)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.CompletedStopIDs) != 2 || got.CompletedStopIDs[1] != "stop-2" {
		t.Fatalf("unexpected stops: %v", got.CompletedStopIDs)
	}
	if got.LastStopID == nil || *got.LastStopID != "stop-2" {
		t.Fatalf("lastStopId not persisted: %v", got.LastStopID)
	}

	// Other route for the same user is independent.
	if _, err := repo.Get(ctx, user, domain.RouteID(uuid.NewString())); !errors.Is(err, progressrepoport.ErrNotFound) {
		t.Fatalf("progress leaked across routes: %v", err)
	}

	p.CompletedStopIDs = nil
	p.LastStopID = nil
	p.Revision = 2
	if err := repo.Put(ctx, p); err != nil {
		t.Fatalf("Put reset: %v", err)
	}
	got, err = repo.Get(ctx, user, route)
	if err != nil {
		t.Fatalf("Get after reset: %v", err)
	}
	if len(got.CompletedStopIDs) != 0 || got.LastStopID != nil || got.Revision != 2 {
		t.Fatalf("reset not applied: %+v", got)
	}
}

// RunPrefsRepo exercises the single-row-per-user preferences store.
func RunPrefsRepo(t *testing.T, factory BackendFactory) {
	t.Helper()
	ctx := context.Background()
	repo := newBackend(t, factory).Preferences()

	user := domain.UserID(uuid.NewString())
	now := time.Unix(4000, 0).UTC()

	if _, err := repo.Get(ctx, user); !errors.Is(err, prefsrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p := prefsrepoport.Preferences{
		UserID:    user,
		Pace:      "relaxed",
		Interests: []string{"history", "food"},
		Avoid:     []string{"stairs"},
		Units:     "metric",
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := repo.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Pace != "relaxed" || got.Units != "metric" || len(got.Interests) != 2 {
		t.Fatalf("unexpected preferences: %+v", got)
	}

	p.Pace = "brisk"
	p.Avoid = nil
	p.Revision = 2
	if err := repo.Put(ctx, p); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, err = repo.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get after replace: %v", err)
	}
	if got.Pace != "brisk" || len(got.Avoid) != 0 || got.Revision != 2 {
		t.Fatalf("replace not applied: %+v", got)
	}
}

// RunRouteRepo exercises creation-only route persistence.
func RunRouteRepo(t *testing.T, factory BackendFactory) {
	t.Helper()
	ctx := context.Background()
	repo := newBackend(t, factory).Routes()

	id := domain.RouteID(uuid.NewString())
	now := time.Unix(6000, 0).UTC()

	if _, err := repo.GetByID(ctx, id); !errors.Is(err, routerepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	route := routerepoport.Route{
		ID:              id,
		UserID:          domain.UserID(uuid.NewString()),
		Name:            "Old town highlights",
		StopIDs:         []string{"poi-1", "poi-2", "poi-3"},
		DistanceMeters:  4200,
		DurationMinutes: 95,
		CreatedAt:       now,
	}
	if err := repo.Create(ctx, route); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != route.Name || len(got.StopIDs) != 3 || got.DistanceMeters != 4200 {
		t.Fatalf("unexpected route: %+v", got)
	}

	if err := repo.Create(ctx, route); !errors.Is(err, routerepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

// RunBundleRepo exercises bundle persistence, owner scoping, and list order.
func RunBundleRepo(t *testing.T, factory BackendFactory) {
	t.Helper()
	ctx := context.Background()
	repo := newBackend(t, factory).Bundles()

	owner := domain.Owner{UserID: domain.UserID(uuid.NewString())}
	deviceOwner := domain.Owner{DeviceID: domain.DeviceID(uuid.NewString())}
	now := time.Unix(7000, 0).UTC()

	if _, err := repo.GetByID(ctx, domain.BundleID(uuid.NewString())); !errors.Is(err, bundlerepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	region := "r-lisbon"
	first := bundlerepoport.Bundle{
		ID:        domain.BundleID(uuid.NewString()),
		Owner:     owner,
		Kind:      domain.BundleKindRegion,
		RegionID:  &region,
		Bounds:    domain.BoundingBox{-9.23, 38.69, -9.09, 38.80},
		MinZoom:   10,
		MaxZoom:   16,
		Status:    domain.BundleQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	routeID := domain.RouteID(uuid.NewString())
	second := bundlerepoport.Bundle{
		ID:        domain.BundleID(uuid.NewString()),
		Owner:     owner,
		Kind:      domain.BundleKindRoute,
		RouteID:   &routeID,
		Bounds:    domain.BoundingBox{-9.15, 38.70, -9.12, 38.74},
		MinZoom:   12,
		MaxZoom:   17,
		Status:    domain.BundleQueued,
		Progress:  0,
		CreatedAt: now.Add(time.Minute),
		UpdatedAt: now.Add(time.Minute),
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	deviceBundle := first
	deviceBundle.ID = domain.BundleID(uuid.NewString())
	deviceBundle.Owner = deviceOwner
	if err := repo.Create(ctx, deviceBundle); err != nil {
		t.Fatalf("Create device bundle: %v", err)
	}

	got, err := repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Kind != domain.BundleKindRegion || got.RegionID == nil || *got.RegionID != region {
		t.Fatalf("unexpected bundle: %+v", got)
	}
	if got.RouteID != nil {
		t.Fatalf("region bundle carries a route id: %v", *got.RouteID)
	}

	// ListByOwner is scoped and newest first.
	list, err := repo.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 bundles for owner, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("list not newest-first: %v then %v", list[0].ID, list[1].ID)
	}
	deviceList, err := repo.ListByOwner(ctx, deviceOwner)
	if err != nil {
		t.Fatalf("ListByOwner device: %v", err)
	}
	if len(deviceList) != 1 || deviceList[0].ID != deviceBundle.ID {
		t.Fatalf("device owner list wrong: %+v", deviceList)
	}

	// Save persists a status transition.
	got.Status = domain.BundleDownloading
	got.Progress = 0.5
	got.UpdatedAt = now.Add(2 * time.Minute)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = repo.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if got.Status != domain.BundleDownloading || got.Progress != 0.5 {
		t.Fatalf("save not applied: %+v", got)
	}
}

// RunTxRunner verifies the unit-of-work semantics the dispatcher relies on:
// commits are all-or-nothing and a failed function leaves no trace.
func RunTxRunner(t *testing.T, factory BackendFactory) {
	t.Helper()
	ctx := context.Background()
	backend := newBackend(t, factory)

	user := domain.UserID(uuid.NewString())
	noteID := domain.NoteID(uuid.NewString())
	key := uuid.New()
	now := time.Unix(8000, 0).UTC()

	note := noterepoport.Note{
		ID:        noteID,
		UserID:    user,
		POIID:     domain.POIID(uuid.NewString()),
		Body:      "first",
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec := ledgerport.Record{
		Key:         key,
		Actor:       user.Actor(),
		Type:        domain.MutationNotes,
		Fingerprint: mustFingerprint(t, map[string]string{"body": "first"}),
		Response:    json.RawMessage(`{"ok":true}`),
		CreatedAt:   now,
	}

	// A failed transaction rolls back both writes.
	boom := errors.New("boom")
	err := backend.InTx(ctx, func(ctx context.Context, s storageport.Store) error {
		if err := s.Notes().Put(ctx, note); err != nil {
			return err
		}
		if err := s.Ledger().Insert(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error surfaced, got %v", err)
	}
	if _, err := backend.Notes().Get(ctx, user, noteID); !errors.Is(err, noterepoport.ErrNotFound) {
		t.Fatalf("note survived rollback: %v", err)
	}
	if _, ok, _ := backend.Ledger().Get(ctx, key, user.Actor(), domain.MutationNotes); ok {
		t.Fatalf("ledger record survived rollback")
	}

	// A committed transaction persists both writes, and the function sees
	// its own uncommitted state.
	err = backend.InTx(ctx, func(ctx context.Context, s storageport.Store) error {
		if err := s.Notes().Put(ctx, note); err != nil {
			return err
		}
		got, err := s.Notes().Get(ctx, user, noteID)
		if err != nil {
			return err
		}
		if got.Body != "first" {
			t.Fatalf("transaction does not see its own write: %+v", got)
		}
		return s.Ledger().Insert(ctx, rec)
	})
	if err != nil {
		t.Fatalf("InTx commit: %v", err)
	}
	got, err := backend.Notes().Get(ctx, user, noteID)
	if err != nil {
		t.Fatalf("Get after commit: %v", err)
	}
	if got.Body != "first" {
		t.Fatalf("unexpected note after commit: %+v", got)
	}
	if _, ok, _ := backend.Ledger().Get(ctx, key, user.Actor(), domain.MutationNotes); !ok {
		t.Fatalf("ledger record missing after commit")
	}
}

// RunAll runs every contract suite as subtests.
func RunAll(t *testing.T, factory BackendFactory) {
	t.Helper()
	t.Run("LedgerStore", func(t *testing.T) { RunLedgerStore(t, factory) })
	t.Run("NoteRepo", func(t *testing.T) { RunNoteRepo(t, factory) })
	t.Run("ProgressRepo", func(t *testing.T) { RunProgressRepo(t, factory) })
	t.Run("PrefsRepo", func(t *testing.T) { RunPrefsRepo(t, factory) })
	t.Run("RouteRepo", func(t *testing.T) { RunRouteRepo(t, factory) })
	t.Run("BundleRepo", func(t *testing.T) { RunBundleRepo(t, factory) })
	t.Run("TxRunner", func(t *testing.T) { RunTxRunner(t, factory) })
}
