package bundles_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	memclock "github.com/wayfarer-travel/wayfarer-api/internal/adapters/memory/clock"
	memstorage "github.com/wayfarer-travel/wayfarer-api/internal/adapters/memory/storage"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/bundles"
	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
)

func seedBundle(t *testing.T, backend *memstorage.Backend, status domain.BundleStatus, progress float64) bundlerepo.Bundle {
	t.Helper()
	region := "r-belem"
	now := time.Unix(1_700_000_000, 0).UTC()
	b := bundlerepo.Bundle{
		ID:        domain.BundleID(uuid.NewString()),
		Owner:     domain.Owner{DeviceID: domain.DeviceID(uuid.NewString())},
		Kind:      domain.BundleKindRegion,
		RegionID:  &region,
		Bounds:    domain.BoundingBox{-9.23, 38.68, -9.18, 38.71},
		MinZoom:   10,
		MaxZoom:   16,
		Status:    status,
		Progress:  progress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := backend.Bundles().Create(context.Background(), b); err != nil {
		t.Fatalf("seed bundle: %v", err)
	}
	return b
}

func bundleError(t *testing.T, err error) *bundles.Error {
	t.Helper()
	var appErr *bundles.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *bundles.Error, got %v", err)
	}
	return appErr
}

func newService(backend *memstorage.Backend) *bundles.Service {
	return bundles.NewService(backend, memclock.NewManualClock(time.Unix(1_700_000_500, 0)))
}

func TestAdvance_TransitionMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from     domain.BundleStatus
		progress float64
		to       domain.BundleStatus
		toProg   float64
		allowed  bool
	}{
		{from: domain.BundleQueued, to: domain.BundleDownloading, toProg: 0.05, allowed: true},
		{from: domain.BundleQueued, to: domain.BundleFailed, toProg: 0, allowed: true},
		{from: domain.BundleQueued, to: domain.BundleComplete, toProg: 1, allowed: false},
		{from: domain.BundleQueued, to: domain.BundleQueued, toProg: 0, allowed: false},
		{from: domain.BundleDownloading, progress: 0.4, to: domain.BundleDownloading, toProg: 0.6, allowed: true},
		{from: domain.BundleDownloading, progress: 0.9, to: domain.BundleComplete, toProg: 1, allowed: true},
		{from: domain.BundleDownloading, progress: 0.5, to: domain.BundleFailed, toProg: 0.5, allowed: true},
		{from: domain.BundleDownloading, progress: 0.5, to: domain.BundleQueued, toProg: 0, allowed: false},
		{from: domain.BundleComplete, progress: 1, to: domain.BundleDownloading, toProg: 0.5, allowed: false},
		{from: domain.BundleComplete, progress: 1, to: domain.BundleFailed, toProg: 0, allowed: false},
		{from: domain.BundleFailed, progress: 0.3, to: domain.BundleDownloading, toProg: 0.3, allowed: false},
		{from: domain.BundleFailed, progress: 0.3, to: domain.BundleComplete, toProg: 1, allowed: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			t.Parallel()
			backend := memstorage.NewBackend()
			svc := newService(backend)
			seeded := seedBundle(t, backend, tc.from, tc.progress)

			got, err := svc.Advance(context.Background(), seeded.ID, tc.to, tc.toProg)
			if tc.allowed {
				if err != nil {
					t.Fatalf("Advance: %v", err)
				}
				if got.Status != tc.to || got.Progress != tc.toProg {
					t.Fatalf("advanced to %s/%v, want %s/%v", got.Status, got.Progress, tc.to, tc.toProg)
				}
				return
			}
			appErr := bundleError(t, err)
			if appErr.Code != "BUNDLE_STATUS_CONFLICT" || appErr.Status != 409 {
				t.Fatalf("expected BUNDLE_STATUS_CONFLICT/409, got %s/%d", appErr.Code, appErr.Status)
			}
			// Rejected transitions leave the bundle untouched.
			cur, err := backend.Bundles().GetByID(context.Background(), seeded.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if cur.Status != tc.from || cur.Progress != tc.progress {
				t.Fatalf("rejected transition mutated bundle: %+v", cur)
			}
		})
	}
}

func TestAdvance_EnforcesJointProgressInvariant(t *testing.T) {
	t.Parallel()
	backend := memstorage.NewBackend()
	svc := newService(backend)

	// Completing with partial progress is invalid.
	b := seedBundle(t, backend, domain.BundleDownloading, 0.8)
	_, err := svc.Advance(context.Background(), b.ID, domain.BundleComplete, 0.8)
	if appErr := bundleError(t, err); appErr.Code != "VALIDATION_ERROR" || appErr.Status != 422 {
		t.Fatalf("expected VALIDATION_ERROR/422, got %s/%d", appErr.Code, appErr.Status)
	}

	// Downloading must report progress strictly below 1.
	_, err = svc.Advance(context.Background(), b.ID, domain.BundleDownloading, 1)
	if appErr := bundleError(t, err); appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", appErr.Code)
	}
}

func TestAdvance_FailureClampsReportedProgress(t *testing.T) {
	t.Parallel()
	backend := memstorage.NewBackend()
	svc := newService(backend)

	b := seedBundle(t, backend, domain.BundleDownloading, 0.7)
	got, err := svc.Advance(context.Background(), b.ID, domain.BundleFailed, 1.7)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got.Progress != 1 {
		t.Fatalf("progress = %v, want clamp to 1", got.Progress)
	}

	b = seedBundle(t, backend, domain.BundleDownloading, 0.1)
	got, err = svc.Advance(context.Background(), b.ID, domain.BundleFailed, -0.2)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got.Progress != 0 {
		t.Fatalf("progress = %v, want clamp to 0", got.Progress)
	}
}

func TestAdvance_UnknownBundleAndStatus(t *testing.T) {
	t.Parallel()
	backend := memstorage.NewBackend()
	svc := newService(backend)

	_, err := svc.Advance(context.Background(), domain.BundleID(uuid.NewString()), domain.BundleDownloading, 0)
	if appErr := bundleError(t, err); appErr.Code != "BUNDLE_NOT_FOUND" || appErr.Status != 404 {
		t.Fatalf("expected BUNDLE_NOT_FOUND/404, got %s/%d", appErr.Code, appErr.Status)
	}

	b := seedBundle(t, backend, domain.BundleQueued, 0)
	_, err = svc.Advance(context.Background(), b.ID, domain.BundleStatus("paused"), 0)
	if appErr := bundleError(t, err); appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", appErr.Code)
	}
}

func TestListForOwner(t *testing.T) {
	t.Parallel()
	backend := memstorage.NewBackend()
	svc := newService(backend)

	b := seedBundle(t, backend, domain.BundleQueued, 0)
	list, err := svc.ListForOwner(context.Background(), b.Owner)
	if err != nil {
		t.Fatalf("ListForOwner: %v", err)
	}
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	// An owner with both identities set is rejected.
	_, err = svc.ListForOwner(context.Background(), domain.Owner{
		UserID:   domain.UserID(uuid.NewString()),
		DeviceID: domain.DeviceID(uuid.NewString()),
	})
	if appErr := bundleError(t, err); appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", appErr.Code)
	}
}
