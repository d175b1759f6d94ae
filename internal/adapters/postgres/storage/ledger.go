package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	postgres "github.com/wayfarer-travel/wayfarer-api/internal/adapters/postgres"
	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
)

type ledgerStore struct {
	q querier
}

func (s *ledgerStore) Get(ctx context.Context, key ledger.Key, actor domain.ActorID, mt domain.MutationType) (ledger.Record, bool, error) {
	row := s.q.QueryRow(ctx, `
		SELECT payload_fingerprint, response_snapshot, created_at
		FROM idempotency_ledger
		WHERE idempotency_key = $1
		  AND actor_id = $2
		  AND mutation_type = $3
	`, key, string(actor), string(mt))

	var fp []byte
	rec := ledger.Record{Key: key, Actor: actor, Type: mt}
	if err := row.Scan(&fp, &rec.Response, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Record{}, false, nil
		}
		return ledger.Record{}, false, err
	}
	if len(fp) != len(rec.Fingerprint) {
		return ledger.Record{}, false, fmt.Errorf("ledger fingerprint has %d bytes, want %d", len(fp), len(rec.Fingerprint))
	}
	copy(rec.Fingerprint[:], fp)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *ledgerStore) Insert(ctx context.Context, rec ledger.Record) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO idempotency_ledger (
			idempotency_key,
			actor_id,
			mutation_type,
			payload_fingerprint,
			response_snapshot,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		rec.Key,
		string(rec.Actor),
		string(rec.Type),
		rec.Fingerprint[:],
		rec.Response,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return ledger.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (s *ledgerStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM idempotency_ledger WHERE created_at < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
