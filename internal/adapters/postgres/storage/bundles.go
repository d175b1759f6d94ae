package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/wayfarer-travel/wayfarer-api/internal/adapters/postgres"
	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
)

type bundleRepo struct {
	q querier
}

func (r *bundleRepo) Create(ctx context.Context, b bundlerepo.Bundle) error {
	bundleUUID, err := uuid.Parse(string(b.ID))
	if err != nil {
		return fmt.Errorf("invalid bundle id: %w", err)
	}
	var routeUUID *uuid.UUID
	if b.RouteID != nil {
		u, err := uuid.Parse(string(*b.RouteID))
		if err != nil {
			return fmt.Errorf("invalid route id: %w", err)
		}
		routeUUID = &u
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO offline_bundles (
			bundle_id,
			owner_user_id,
			owner_device_id,
			kind,
			route_id,
			region_id,
			min_lng, min_lat, max_lng, max_lat,
			min_zoom, max_zoom,
			status,
			progress,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		bundleUUID,
		nullableString(string(b.Owner.UserID)),
		nullableString(string(b.Owner.DeviceID)),
		string(b.Kind),
		routeUUID,
		b.RegionID,
		b.Bounds.MinLng(), b.Bounds.MinLat(), b.Bounds.MaxLng(), b.Bounds.MaxLat(),
		b.MinZoom, b.MaxZoom,
		string(b.Status),
		b.Progress,
		b.CreatedAt.UTC(),
		b.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return bundlerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *bundleRepo) GetByID(ctx context.Context, id domain.BundleID) (bundlerepo.Bundle, error) {
	bundleUUID, err := uuid.Parse(string(id))
	if err != nil {
		return bundlerepo.Bundle{}, bundlerepo.ErrNotFound
	}
	row := r.q.QueryRow(ctx, `
		SELECT owner_user_id, owner_device_id, kind, route_id, region_id,
		       min_lng, min_lat, max_lng, max_lat, min_zoom, max_zoom,
		       status, progress, created_at, updated_at
		FROM offline_bundles
		WHERE bundle_id = $1
	`, bundleUUID)
	b, err := scanBundle(row, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bundlerepo.Bundle{}, bundlerepo.ErrNotFound
		}
		return bundlerepo.Bundle{}, err
	}
	return b, nil
}

func (r *bundleRepo) Save(ctx context.Context, b bundlerepo.Bundle) error {
	bundleUUID, err := uuid.Parse(string(b.ID))
	if err != nil {
		return bundlerepo.ErrNotFound
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE offline_bundles
		SET status = $2,
		    progress = $3,
		    updated_at = $4
		WHERE bundle_id = $1
	`,
		bundleUUID,
		string(b.Status),
		b.Progress,
		b.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return bundlerepo.ErrNotFound
	}
	return nil
}

func (r *bundleRepo) ListByOwner(ctx context.Context, owner domain.Owner) ([]bundlerepo.Bundle, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if owner.UserID != "" {
		rows, err = r.q.Query(ctx, `
			SELECT bundle_id, owner_user_id, owner_device_id, kind, route_id, region_id,
			       min_lng, min_lat, max_lng, max_lat, min_zoom, max_zoom,
			       status, progress, created_at, updated_at
			FROM offline_bundles
			WHERE owner_user_id = $1
			ORDER BY created_at DESC, bundle_id
		`, string(owner.UserID))
	} else {
		rows, err = r.q.Query(ctx, `
			SELECT bundle_id, owner_user_id, owner_device_id, kind, route_id, region_id,
			       min_lng, min_lat, max_lng, max_lat, min_zoom, max_zoom,
			       status, progress, created_at, updated_at
			FROM offline_bundles
			WHERE owner_device_id = $1
			ORDER BY created_at DESC, bundle_id
		`, string(owner.DeviceID))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]bundlerepo.Bundle, 0)
	for rows.Next() {
		var bundleUUID uuid.UUID
		b, err := scanBundleWithID(rows, &bundleUUID)
		if err != nil {
			return nil, err
		}
		b.ID = domain.BundleID(bundleUUID.String())
		out = append(out, b)
	}
	return out, rows.Err()
}

// scanBundle reads every column except bundle_id.
func scanBundle(row pgx.Row, id domain.BundleID) (bundlerepo.Bundle, error) {
	b := bundlerepo.Bundle{ID: id}
	var (
		ownerUser   *string
		ownerDevice *string
		kind        string
		routeUUID   *uuid.UUID
		status      string
	)
	err := row.Scan(
		&ownerUser, &ownerDevice, &kind, &routeUUID, &b.RegionID,
		&b.Bounds[0], &b.Bounds[1], &b.Bounds[2], &b.Bounds[3],
		&b.MinZoom, &b.MaxZoom,
		&status, &b.Progress, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return bundlerepo.Bundle{}, err
	}
	fillBundle(&b, ownerUser, ownerDevice, kind, routeUUID, status)
	return b, nil
}

func scanBundleWithID(row pgx.Row, bundleUUID *uuid.UUID) (bundlerepo.Bundle, error) {
	var b bundlerepo.Bundle
	var (
		ownerUser   *string
		ownerDevice *string
		kind        string
		routeUUID   *uuid.UUID
		status      string
	)
	err := row.Scan(
		bundleUUID,
		&ownerUser, &ownerDevice, &kind, &routeUUID, &b.RegionID,
		&b.Bounds[0], &b.Bounds[1], &b.Bounds[2], &b.Bounds[3],
		&b.MinZoom, &b.MaxZoom,
		&status, &b.Progress, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return bundlerepo.Bundle{}, err
	}
	fillBundle(&b, ownerUser, ownerDevice, kind, routeUUID, status)
	return b, nil
}

func fillBundle(b *bundlerepo.Bundle, ownerUser, ownerDevice *string, kind string, routeUUID *uuid.UUID, status string) {
	if ownerUser != nil {
		b.Owner.UserID = domain.UserID(*ownerUser)
	}
	if ownerDevice != nil {
		b.Owner.DeviceID = domain.DeviceID(*ownerDevice)
	}
	b.Kind = domain.BundleKind(kind)
	if routeUUID != nil {
		rid := domain.RouteID(routeUUID.String())
		b.RouteID = &rid
	}
	b.Status = domain.BundleStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
