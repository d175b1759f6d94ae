package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
	storageport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same repo
// code serves direct access and transaction-bound access.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Backend is a Postgres implementation of storage.Backend.
type Backend struct {
	pool *pgxpool.Pool
}

func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// InTx runs fn inside one database transaction. fn's error aborts the
// transaction, so a mutation that fails mid-way persists nothing: no partial
// ledger record, no partial entity write.
func (b *Backend) InTx(ctx context.Context, fn func(ctx context.Context, s storageport.Store) error) error {
	if b.pool == nil {
		return errors.New("nil postgres pool")
	}
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		return fn(ctx, &store{q: tx})
	})
}

func (b *Backend) Ledger() ledger.Store              { return &ledgerStore{q: b.pool} }
func (b *Backend) Notes() noterepo.Repository        { return &noteRepo{q: b.pool} }
func (b *Backend) Progress() progressrepo.Repository { return &progressRepo{q: b.pool} }
func (b *Backend) Preferences() prefsrepo.Repository { return &prefsRepo{q: b.pool} }
func (b *Backend) Routes() routerepo.Repository      { return &routeRepo{q: b.pool} }
func (b *Backend) Bundles() bundlerepo.Repository    { return &bundleRepo{q: b.pool} }

// store exposes repositories bound to one transaction.
type store struct {
	q querier
}

func (s *store) Ledger() ledger.Store              { return &ledgerStore{q: s.q} }
func (s *store) Notes() noterepo.Repository        { return &noteRepo{q: s.q} }
func (s *store) Progress() progressrepo.Repository { return &progressRepo{q: s.q} }
func (s *store) Preferences() prefsrepo.Repository { return &prefsRepo{q: s.q} }
func (s *store) Routes() routerepo.Repository      { return &routeRepo{q: s.q} }
func (s *store) Bundles() bundlerepo.Repository    { return &bundleRepo{q: s.q} }
