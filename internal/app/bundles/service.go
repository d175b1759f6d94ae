package bundles

import (
	"context"
	"errors"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/clock"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/storage"
)

// Service drives the bundle lifecycle after creation. The external
// downloader is the only caller of Advance; bundle creation itself goes
// through the mutation dispatcher so retried creates replay.
type Service struct {
	db    storage.Backend
	clock clock.Clock
}

func NewService(db storage.Backend, clk clock.Clock) *Service {
	return &Service{db: db, clock: clk}
}

// Advance moves a bundle to the given status with the reported progress,
// enforcing the state machine and the joint (status, progress) invariant.
func (s *Service) Advance(ctx context.Context, id domain.BundleID, to domain.BundleStatus, progress float64) (bundlerepo.Bundle, error) {
	if !to.Valid() {
		return bundlerepo.Bundle{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid status", Details: map[string]any{"status": "unknown status"}}
	}

	var out bundlerepo.Bundle
	err := s.db.InTx(ctx, func(ctx context.Context, st storage.Store) error {
		b, err := st.Bundles().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, bundlerepo.ErrNotFound) {
				return &Error{Status: 404, Code: "BUNDLE_NOT_FOUND", Message: "bundle not found"}
			}
			return err
		}
		if !domain.CanTransition(b.Status, to) {
			return &Error{
				Status:  409,
				Code:    "BUNDLE_STATUS_CONFLICT",
				Message: "transition not allowed",
				Details: map[string]any{"from": string(b.Status), "to": string(to)},
			}
		}
		if to == domain.BundleFailed {
			// Partial progress at failure is preserved for diagnostics,
			// clamped into [0,1].
			if progress < 0 {
				progress = 0
			}
			if progress > 1 {
				progress = 1
			}
		}
		if err := domain.ValidateBundleState(to, progress); err != nil {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: err.Error()}
		}
		b.Status = to
		b.Progress = progress
		b.UpdatedAt = s.clock.Now().UTC()
		if err := st.Bundles().Save(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return bundlerepo.Bundle{}, err
	}
	return out, nil
}

// ListForOwner returns the owner's bundles, newest first.
func (s *Service) ListForOwner(ctx context.Context, owner domain.Owner) ([]bundlerepo.Bundle, error) {
	if err := owner.Validate(); err != nil {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	return s.db.Bundles().ListByOwner(ctx, owner)
}
