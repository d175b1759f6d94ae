package storage

import (
	"context"
	"sort"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
)

// Each repo either holds a transaction-bound state (st != nil, lock already
// held by InTx) or goes through the backend with a per-call lock.

type ledgerStore struct {
	b  *Backend
	st *state
}

func (r *ledgerStore) view() (*state, func()) {
	if r.st != nil {
		return r.st, func() {}
	}
	r.b.mu.Lock()
	return r.b.state, r.b.mu.Unlock
}

func (r *ledgerStore) Get(ctx context.Context, key ledger.Key, actor domain.ActorID, mt domain.MutationType) (ledger.Record, bool, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	rec, ok := st.ledger[ledgerEntryKey{key: key, actor: actor, mt: mt}]
	if !ok {
		return ledger.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (r *ledgerStore) Insert(ctx context.Context, rec ledger.Record) error {
	_ = ctx
	st, release := r.view()
	defer release()
	k := ledgerEntryKey{key: rec.Key, actor: rec.Actor, mt: rec.Type}
	if _, ok := st.ledger[k]; ok {
		return ledger.ErrDuplicateKey
	}
	st.ledger[k] = cloneRecord(rec)
	return nil
}

func (r *ledgerStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	var n int64
	for k, rec := range st.ledger {
		if rec.CreatedAt.Before(cutoff) {
			delete(st.ledger, k)
			n++
		}
	}
	return n, nil
}

type noteRepo struct {
	b  *Backend
	st *state
}

func (r *noteRepo) view() (*state, func()) {
	if r.st != nil {
		return r.st, func() {}
	}
	r.b.mu.Lock()
	return r.b.state, r.b.mu.Unlock
}

func (r *noteRepo) Get(ctx context.Context, user domain.UserID, id domain.NoteID) (noterepo.Note, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	n, ok := st.notes[noteEntryKey{user: user, id: id}]
	if !ok {
		return noterepo.Note{}, noterepo.ErrNotFound
	}
	return cloneNote(n), nil
}

func (r *noteRepo) Put(ctx context.Context, n noterepo.Note) error {
	_ = ctx
	st, release := r.view()
	defer release()
	st.notes[noteEntryKey{user: n.UserID, id: n.ID}] = cloneNote(n)
	return nil
}

type progressRepo struct {
	b  *Backend
	st *state
}

func (r *progressRepo) view() (*state, func()) {
	if r.st != nil {
		return r.st, func() {}
	}
	r.b.mu.Lock()
	return r.b.state, r.b.mu.Unlock
}

func (r *progressRepo) Get(ctx context.Context, user domain.UserID, route domain.RouteID) (progressrepo.Progress, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	p, ok := st.progress[progressEntryKey{user: user, route: route}]
	if !ok {
		return progressrepo.Progress{}, progressrepo.ErrNotFound
	}
	return cloneProgress(p), nil
}

func (r *progressRepo) Put(ctx context.Context, p progressrepo.Progress) error {
	_ = ctx
	st, release := r.view()
	defer release()
	st.progress[progressEntryKey{user: p.UserID, route: p.RouteID}] = cloneProgress(p)
	return nil
}

type prefsRepo struct {
	b  *Backend
	st *state
}

func (r *prefsRepo) view() (*state, func()) {
	if r.st != nil {
		return r.st, func() {}
	}
	r.b.mu.Lock()
	return r.b.state, r.b.mu.Unlock
}

func (r *prefsRepo) Get(ctx context.Context, user domain.UserID) (prefsrepo.Preferences, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	p, ok := st.prefs[user]
	if !ok {
		return prefsrepo.Preferences{}, prefsrepo.ErrNotFound
	}
	return clonePreferences(p), nil
}

func (r *prefsRepo) Put(ctx context.Context, p prefsrepo.Preferences) error {
	_ = ctx
	st, release := r.view()
	defer release()
	st.prefs[p.UserID] = clonePreferences(p)
	return nil
}

type routeRepo struct {
	b  *Backend
	st *state
}

func (r *routeRepo) view() (*state, func()) {
	if r.st != nil {
		return r.st, func() {}
	}
	r.b.mu.Lock()
	return r.b.state, r.b.mu.Unlock
}

func (r *routeRepo) Create(ctx context.Context, rt routerepo.Route) error {
	_ = ctx
	st, release := r.view()
	defer release()
	if _, ok := st.routes[rt.ID]; ok {
		return routerepo.ErrAlreadyExists
	}
	st.routes[rt.ID] = cloneRoute(rt)
	return nil
}

func (r *routeRepo) GetByID(ctx context.Context, id domain.RouteID) (routerepo.Route, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	rt, ok := st.routes[id]
	if !ok {
		return routerepo.Route{}, routerepo.ErrNotFound
	}
	return cloneRoute(rt), nil
}

type bundleRepo struct {
	b  *Backend
	st *state
}

func (r *bundleRepo) view() (*state, func()) {
	if r.st != nil {
		return r.st, func() {}
	}
	r.b.mu.Lock()
	return r.b.state, r.b.mu.Unlock
}

func (r *bundleRepo) Create(ctx context.Context, b bundlerepo.Bundle) error {
	_ = ctx
	st, release := r.view()
	defer release()
	if _, ok := st.bundles[b.ID]; ok {
		return bundlerepo.ErrAlreadyExists
	}
	st.bundles[b.ID] = cloneBundle(b)
	return nil
}

func (r *bundleRepo) GetByID(ctx context.Context, id domain.BundleID) (bundlerepo.Bundle, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	b, ok := st.bundles[id]
	if !ok {
		return bundlerepo.Bundle{}, bundlerepo.ErrNotFound
	}
	return cloneBundle(b), nil
}

func (r *bundleRepo) Save(ctx context.Context, b bundlerepo.Bundle) error {
	_ = ctx
	st, release := r.view()
	defer release()
	if _, ok := st.bundles[b.ID]; !ok {
		return bundlerepo.ErrNotFound
	}
	st.bundles[b.ID] = cloneBundle(b)
	return nil
}

func (r *bundleRepo) ListByOwner(ctx context.Context, owner domain.Owner) ([]bundlerepo.Bundle, error) {
	_ = ctx
	st, release := r.view()
	defer release()
	out := make([]bundlerepo.Bundle, 0)
	for _, b := range st.bundles {
		if b.Owner == owner {
			out = append(out, cloneBundle(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
