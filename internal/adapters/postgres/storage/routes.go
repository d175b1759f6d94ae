package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/wayfarer-travel/wayfarer-api/internal/adapters/postgres"
	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
)

type routeRepo struct {
	q querier
}

func (r *routeRepo) Create(ctx context.Context, rt routerepo.Route) error {
	routeUUID, err := uuid.Parse(string(rt.ID))
	if err != nil {
		return fmt.Errorf("invalid route id: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO routes (route_id, user_id, name, stop_ids, distance_meters, duration_minutes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		routeUUID,
		string(rt.UserID),
		rt.Name,
		rt.StopIDs,
		rt.DistanceMeters,
		rt.DurationMinutes,
		rt.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return routerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *routeRepo) GetByID(ctx context.Context, id domain.RouteID) (routerepo.Route, error) {
	routeUUID, err := uuid.Parse(string(id))
	if err != nil {
		return routerepo.Route{}, routerepo.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `
		SELECT user_id, name, stop_ids, distance_meters, duration_minutes, created_at
		FROM routes
		WHERE route_id = $1
	`, routeUUID)

	rt := routerepo.Route{ID: id}
	var user string
	if err := row.Scan(&user, &rt.Name, &rt.StopIDs, &rt.DistanceMeters, &rt.DurationMinutes, &rt.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return routerepo.Route{}, routerepo.ErrNotFound
		}
		return routerepo.Route{}, err
	}
	rt.UserID = domain.UserID(user)
	rt.CreatedAt = rt.CreatedAt.UTC()
	return rt, nil
}
