package mutations_test

import (
	"errors"
	"testing"

	"github.com/wayfarer-travel/wayfarer-api/internal/app/mutations"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
)

func int64Ptr(v int64) *int64 { return &v }

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		current     int64
		found       bool
		expected    *int64
		wantRev     int64
		wantCurrent int64 // currentRevision detail on conflict
		wantErr     bool
	}{
		{name: "create without expectation", found: false, expected: nil, wantRev: 1},
		{name: "expectation against missing entity", found: false, expected: int64Ptr(1), wantErr: true, wantCurrent: 0},
		{name: "matching expectation increments", found: true, current: 3, expected: int64Ptr(3), wantRev: 4},
		{name: "stale expectation rejected", found: true, current: 3, expected: int64Ptr(2), wantErr: true, wantCurrent: 3},
		{name: "future expectation rejected", found: true, current: 3, expected: int64Ptr(4), wantErr: true, wantCurrent: 3},
		{name: "omitted expectation against existing entity rejected", found: true, current: 1, expected: nil, wantErr: true, wantCurrent: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rev, err := mutations.Resolve(noterepo.Note{Revision: tc.current}, tc.found, tc.expected)
			if tc.wantErr {
				var appErr *mutations.Error
				if !errors.As(err, &appErr) {
					t.Fatalf("expected *mutations.Error, got %v", err)
				}
				if appErr.Code != mutations.CodeRevisionConflict {
					t.Fatalf("code = %s", appErr.Code)
				}
				if got := appErr.Details["currentRevision"]; got != tc.wantCurrent {
					t.Fatalf("currentRevision = %v, want %d", got, tc.wantCurrent)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if rev != tc.wantRev {
				t.Fatalf("rev = %d, want %d", rev, tc.wantRev)
			}
		})
	}
}
