package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
)

type noteRepo struct {
	q querier
}

func (r *noteRepo) Get(ctx context.Context, user domain.UserID, id domain.NoteID) (noterepo.Note, error) {
	noteUUID, err := uuid.Parse(string(id))
	if err != nil {
		return noterepo.Note{}, noterepo.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `
		SELECT poi_id, body, rating, revision, created_at, updated_at
		FROM notes
		WHERE user_id = $1 AND note_id = $2
	`, string(user), noteUUID)

	n := noterepo.Note{ID: id, UserID: user}
	var poi string
	if err := row.Scan(&poi, &n.Body, &n.Rating, &n.Revision, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return noterepo.Note{}, noterepo.ErrNotFound
		}
		return noterepo.Note{}, err
	}
	n.POIID = domain.POIID(poi)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}

func (r *noteRepo) Put(ctx context.Context, n noterepo.Note) error {
	noteUUID, err := uuid.Parse(string(n.ID))
	if err != nil {
		return fmt.Errorf("invalid note id: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO notes (user_id, note_id, poi_id, body, rating, revision, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id, note_id)
		DO UPDATE SET
			poi_id = EXCLUDED.poi_id,
			body = EXCLUDED.body,
			rating = EXCLUDED.rating,
			revision = EXCLUDED.revision,
			updated_at = EXCLUDED.updated_at
	`,
		string(n.UserID),
		noteUUID,
		string(n.POIID),
		n.Body,
		n.Rating,
		n.Revision,
		n.CreatedAt.UTC(),
		n.UpdatedAt.UTC(),
	)
	return err
}

type progressRepo struct {
	q querier
}

func (r *progressRepo) Get(ctx context.Context, user domain.UserID, route domain.RouteID) (progressrepo.Progress, error) {
	routeUUID, err := uuid.Parse(string(route))
	if err != nil {
		return progressrepo.Progress{}, progressrepo.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `
		SELECT completed_stop_ids, last_stop_id, revision, created_at, updated_at
		FROM route_progress
		WHERE user_id = $1 AND route_id = $2
	`, string(user), routeUUID)

	p := progressrepo.Progress{UserID: user, RouteID: route}
	if err := row.Scan(&p.CompletedStopIDs, &p.LastStopID, &p.Revision, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return progressrepo.Progress{}, progressrepo.ErrNotFound
		}
		return progressrepo.Progress{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *progressRepo) Put(ctx context.Context, p progressrepo.Progress) error {
	routeUUID, err := uuid.Parse(string(p.RouteID))
	if err != nil {
		return fmt.Errorf("invalid route id: %w", err)
	}
	stopIDs := p.CompletedStopIDs
	if stopIDs == nil {
		stopIDs = []string{}
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO route_progress (user_id, route_id, completed_stop_ids, last_stop_id, revision, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id, route_id)
		DO UPDATE SET
			completed_stop_ids = EXCLUDED.completed_stop_ids,
			last_stop_id = EXCLUDED.last_stop_id,
			revision = EXCLUDED.revision,
			updated_at = EXCLUDED.updated_at
	`,
		string(p.UserID),
		routeUUID,
		stopIDs,
		p.LastStopID,
		p.Revision,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	return err
}

type prefsRepo struct {
	q querier
}

func (r *prefsRepo) Get(ctx context.Context, user domain.UserID) (prefsrepo.Preferences, error) {
	row := r.q.QueryRow(ctx, `
		SELECT pace, interests, avoid, units, revision, created_at, updated_at
		FROM preferences
		WHERE user_id = $1
	`, string(user))

	p := prefsrepo.Preferences{UserID: user}
	if err := row.Scan(&p.Pace, &p.Interests, &p.Avoid, &p.Units, &p.Revision, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return prefsrepo.Preferences{}, prefsrepo.ErrNotFound
		}
		return prefsrepo.Preferences{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *prefsRepo) Put(ctx context.Context, p prefsrepo.Preferences) error {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	avoid := p.Avoid
	if avoid == nil {
		avoid = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO preferences (user_id, pace, interests, avoid, units, revision, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id)
		DO UPDATE SET
			pace = EXCLUDED.pace,
			interests = EXCLUDED.interests,
			avoid = EXCLUDED.avoid,
			units = EXCLUDED.units,
			revision = EXCLUDED.revision,
			updated_at = EXCLUDED.updated_at
	`,
		string(p.UserID),
		p.Pace,
		interests,
		avoid,
		p.Units,
		p.Revision,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	return err
}
