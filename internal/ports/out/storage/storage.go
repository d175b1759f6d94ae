package storage

import (
	"context"

	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
)

// Store bundles the repositories that participate in a mutation.
// Inside InTx all of them are bound to the same transaction, so a ledger
// lookup, revision check, domain write, and ledger commit observe a single
// consistent snapshot.
type Store interface {
	Ledger() ledger.Store
	Notes() noterepo.Repository
	Progress() progressrepo.Repository
	Preferences() prefsrepo.Repository
	Routes() routerepo.Repository
	Bundles() bundlerepo.Repository
}

// TxRunner executes fn inside one atomic unit of work. If fn returns an
// error, or the request context is canceled mid-flight, every write made
// through the Store is rolled back; nothing partial is ever persisted.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Backend is a full storage backend: transactional access for mutations plus
// direct (auto-commit) repository access for reads and the TTL reaper.
type Backend interface {
	TxRunner
	Store
}
