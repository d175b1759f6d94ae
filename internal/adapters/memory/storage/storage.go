package storage

import (
	"context"
	"sync"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
	storageport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/storage"
)

// Backend is an in-memory implementation of storage.Backend.
// It is safe for concurrent use.
//
// InTx runs the callback against a deep copy of the current state and swaps
// the copy in only if the callback succeeds, which gives the same
// all-or-nothing semantics as a database transaction. Transactions are
// serialized on one mutex; isolation is trivially serializable.
type Backend struct {
	mu    sync.Mutex
	state *state
}

func NewBackend() *Backend {
	return &Backend{state: newState()}
}

func (b *Backend) InTx(ctx context.Context, fn func(ctx context.Context, s storageport.Store) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	next := b.state.clone()
	if err := fn(ctx, &txStore{st: next}); err != nil {
		return err
	}
	b.state = next
	return nil
}

// Direct (auto-commit) repository access; each call takes the backend lock.

func (b *Backend) Ledger() ledger.Store              { return &ledgerStore{b: b} }
func (b *Backend) Notes() noterepo.Repository        { return &noteRepo{b: b} }
func (b *Backend) Progress() progressrepo.Repository { return &progressRepo{b: b} }
func (b *Backend) Preferences() prefsrepo.Repository { return &prefsRepo{b: b} }
func (b *Backend) Routes() routerepo.Repository      { return &routeRepo{b: b} }
func (b *Backend) Bundles() bundlerepo.Repository    { return &bundleRepo{b: b} }

// txStore exposes repositories bound to an uncommitted state copy.
// The backend lock is already held for the duration of the transaction.
type txStore struct {
	st *state
}

func (t *txStore) Ledger() ledger.Store              { return &ledgerStore{st: t.st} }
func (t *txStore) Notes() noterepo.Repository        { return &noteRepo{st: t.st} }
func (t *txStore) Progress() progressrepo.Repository { return &progressRepo{st: t.st} }
func (t *txStore) Preferences() prefsrepo.Repository { return &prefsRepo{st: t.st} }
func (t *txStore) Routes() routerepo.Repository      { return &routeRepo{st: t.st} }
func (t *txStore) Bundles() bundlerepo.Repository    { return &bundleRepo{st: t.st} }

type ledgerEntryKey struct {
	key   ledger.Key
	actor domain.ActorID
	mt    domain.MutationType
}

type noteEntryKey struct {
	user domain.UserID
	id   domain.NoteID
}

type progressEntryKey struct {
	user  domain.UserID
	route domain.RouteID
}

type state struct {
	ledger   map[ledgerEntryKey]ledger.Record
	notes    map[noteEntryKey]noterepo.Note
	progress map[progressEntryKey]progressrepo.Progress
	prefs    map[domain.UserID]prefsrepo.Preferences
	routes   map[domain.RouteID]routerepo.Route
	bundles  map[domain.BundleID]bundlerepo.Bundle
}

func newState() *state {
	return &state{
		ledger:   make(map[ledgerEntryKey]ledger.Record),
		notes:    make(map[noteEntryKey]noterepo.Note),
		progress: make(map[progressEntryKey]progressrepo.Progress),
		prefs:    make(map[domain.UserID]prefsrepo.Preferences),
		routes:   make(map[domain.RouteID]routerepo.Route),
		bundles:  make(map[domain.BundleID]bundlerepo.Bundle),
	}
}

func (s *state) clone() *state {
	next := newState()
	for k, v := range s.ledger {
		next.ledger[k] = cloneRecord(v)
	}
	for k, v := range s.notes {
		next.notes[k] = cloneNote(v)
	}
	for k, v := range s.progress {
		next.progress[k] = cloneProgress(v)
	}
	for k, v := range s.prefs {
		next.prefs[k] = clonePreferences(v)
	}
	for k, v := range s.routes {
		next.routes[k] = cloneRoute(v)
	}
	for k, v := range s.bundles {
		next.bundles[k] = cloneBundle(v)
	}
	return next
}
