package mutations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/bundlerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/clock"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/ledger"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/noterepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/prefsrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/progressrepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/routerepo"
	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/storage"
)

// Service is the mutation dispatcher. Every client write runs through it:
// ledger lookup, revision check, domain write, and ledger commit execute in
// one storage transaction, so a failure at any step persists nothing.
type Service struct {
	db     storage.TxRunner
	ledger *Ledger
	clock  clock.Clock

	newRouteID  func() domain.RouteID
	newBundleID func() domain.BundleID
}

func NewService(db storage.TxRunner, clk clock.Clock) *Service {
	return &Service{
		db:     db,
		ledger: NewLedger(clk),
		clock:  clk,
		newRouteID: func() domain.RouteID {
			return domain.RouteID(uuid.NewString())
		},
		newBundleID: func() domain.BundleID {
			return domain.BundleID(uuid.NewString())
		},
	}
}

// SetIDGeneratorsForTest overrides id generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetIDGeneratorsForTest(routeID func() domain.RouteID, bundleID func() domain.BundleID) {
	if routeID != nil {
		s.newRouteID = routeID
	}
	if bundleID != nil {
		s.newBundleID = bundleID
	}
}

// UpsertNote creates or updates a traveler note under optimistic concurrency.
func (s *Service) UpsertNote(ctx context.Context, key ledger.Key, user domain.UserID, in NoteInput) (Result, error) {
	// Ids are validated up front so a malformed target fails the same way
	// on every backend instead of surfacing as a storage error.
	if !validUUID(string(in.NoteID)) {
		return Result{}, errValidation("invalid note", map[string]any{"noteId": "must be a UUID"})
	}
	if in.POIID == "" {
		return Result{}, errValidation("invalid note", map[string]any{"poiId": "must be non-empty"})
	}
	if in.Body == "" {
		return Result{}, errValidation("invalid note", map[string]any{"body": "must be non-empty"})
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return Result{}, errValidation("invalid note", map[string]any{"rating": "must be between 1 and 5"})
	}

	exec := func(ctx context.Context, st storage.Store) (any, error) {
		cur, err := st.Notes().Get(ctx, user, in.NoteID)
		found := err == nil
		if err != nil && !errors.Is(err, noterepo.ErrNotFound) {
			return nil, err
		}
		rev, err := Resolve(cur, found, in.ExpectedRevision)
		if err != nil {
			return nil, err
		}
		now := s.clock.Now().UTC()
		n := noterepo.Note{
			ID:        in.NoteID,
			UserID:    user,
			POIID:     in.POIID,
			Body:      in.Body,
			Rating:    cloneIntPtr(in.Rating),
			Revision:  rev,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if found {
			n.CreatedAt = cur.CreatedAt
		}
		if err := st.Notes().Put(ctx, n); err != nil {
			return nil, err
		}
		return NoteResult{
			NoteID:    n.ID,
			POIID:     n.POIID,
			Body:      n.Body,
			Rating:    cloneIntPtr(n.Rating),
			Revision:  n.Revision,
			UpdatedAt: n.UpdatedAt,
		}, nil
	}
	return s.dispatch(ctx, key, user.Actor(), domain.MutationNotes, in, exec)
}

// UpdateProgress records visit progress along a route.
func (s *Service) UpdateProgress(ctx context.Context, key ledger.Key, user domain.UserID, in ProgressInput) (Result, error) {
	if !validUUID(string(in.RouteID)) {
		return Result{}, errValidation("invalid progress", map[string]any{"routeId": "must be a UUID"})
	}
	if in.LastStopID != nil && !containsString(in.CompletedStopIDs, *in.LastStopID) {
		return Result{}, errValidation("invalid progress", map[string]any{"lastStopId": "must be one of completedStopIds"})
	}

	exec := func(ctx context.Context, st storage.Store) (any, error) {
		cur, err := st.Progress().Get(ctx, user, in.RouteID)
		found := err == nil
		if err != nil && !errors.Is(err, progressrepo.ErrNotFound) {
			return nil, err
		}
		rev, err := Resolve(cur, found, in.ExpectedRevision)
		if err != nil {
			return nil, err
		}
		now := s.clock.Now().UTC()
		p := progressrepo.Progress{
			UserID:           user,
			RouteID:          in.RouteID,
			CompletedStopIDs: append([]string{}, in.CompletedStopIDs...),
			LastStopID:       cloneStringPtr(in.LastStopID),
			Revision:         rev,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if found {
			p.CreatedAt = cur.CreatedAt
		}
		if err := st.Progress().Put(ctx, p); err != nil {
			return nil, err
		}
		return ProgressResult{
			RouteID:          p.RouteID,
			CompletedStopIDs: p.CompletedStopIDs,
			LastStopID:       cloneStringPtr(p.LastStopID),
			Revision:         p.Revision,
			UpdatedAt:        p.UpdatedAt,
		}, nil
	}
	return s.dispatch(ctx, key, user.Actor(), domain.MutationProgress, in, exec)
}

// UpdatePreferences replaces the user's routing preferences. The row is
// created at revision 1 on the first write.
func (s *Service) UpdatePreferences(ctx context.Context, key ledger.Key, user domain.UserID, in PreferencesInput) (Result, error) {
	switch in.Pace {
	case "relaxed", "moderate", "brisk":
	default:
		return Result{}, errValidation("invalid preferences", map[string]any{"pace": "must be relaxed, moderate, or brisk"})
	}
	switch in.Units {
	case "metric", "imperial":
	default:
		return Result{}, errValidation("invalid preferences", map[string]any{"units": "must be metric or imperial"})
	}

	exec := func(ctx context.Context, st storage.Store) (any, error) {
		cur, err := st.Preferences().Get(ctx, user)
		found := err == nil
		if err != nil && !errors.Is(err, prefsrepo.ErrNotFound) {
			return nil, err
		}
		rev, err := Resolve(cur, found, in.ExpectedRevision)
		if err != nil {
			return nil, err
		}
		now := s.clock.Now().UTC()
		p := prefsrepo.Preferences{
			UserID:    user,
			Pace:      in.Pace,
			Interests: append([]string{}, in.Interests...),
			Avoid:     append([]string{}, in.Avoid...),
			Units:     in.Units,
			Revision:  rev,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if found {
			p.CreatedAt = cur.CreatedAt
		}
		if err := st.Preferences().Put(ctx, p); err != nil {
			return nil, err
		}
		return PreferencesResult{
			Pace:      p.Pace,
			Interests: p.Interests,
			Avoid:     p.Avoid,
			Units:     p.Units,
			Revision:  p.Revision,
			UpdatedAt: p.UpdatedAt,
		}, nil
	}
	return s.dispatch(ctx, key, user.Actor(), domain.MutationPreferences, in, exec)
}

// CreateRoute persists a route produced by the external generator.
func (s *Service) CreateRoute(ctx context.Context, key ledger.Key, user domain.UserID, in RouteInput) (Result, error) {
	if in.Name == "" {
		return Result{}, errValidation("invalid route", map[string]any{"name": "must be non-empty"})
	}
	if len(in.StopIDs) < 2 {
		return Result{}, errValidation("invalid route", map[string]any{"stopIds": "must contain at least two stops"})
	}
	if in.DistanceMeters < 0 || in.DurationMinutes < 0 {
		return Result{}, errValidation("invalid route", map[string]any{"estimates": "must be non-negative"})
	}

	exec := func(ctx context.Context, st storage.Store) (any, error) {
		now := s.clock.Now().UTC()
		r := routerepo.Route{
			ID:              s.newRouteID(),
			UserID:          user,
			Name:            in.Name,
			StopIDs:         append([]string{}, in.StopIDs...),
			DistanceMeters:  in.DistanceMeters,
			DurationMinutes: in.DurationMinutes,
			CreatedAt:       now,
		}
		if err := st.Routes().Create(ctx, r); err != nil {
			return nil, err
		}
		return RouteResult{
			RouteID:         r.ID,
			Name:            r.Name,
			StopIDs:         r.StopIDs,
			DistanceMeters:  r.DistanceMeters,
			DurationMinutes: r.DurationMinutes,
			CreatedAt:       r.CreatedAt,
		}, nil
	}
	return s.dispatch(ctx, key, user.Actor(), domain.MutationRoutes, in, exec)
}

// CreateBundle validates and persists a queued offline bundle. A retried
// create replays the existing bundle instead of queueing a second download.
func (s *Service) CreateBundle(ctx context.Context, key ledger.Key, owner domain.Owner, in BundleInput) (Result, error) {
	if err := owner.Validate(); err != nil {
		return Result{}, errValidation("invalid owner", map[string]any{"owner": err.Error()})
	}
	spec := domain.BundleSpec{
		Kind:     domain.BundleKind(in.Kind),
		RegionID: cloneStringPtr(in.RegionID),
		Bounds:   domain.BoundingBox(in.Bounds),
		MinZoom:  in.MinZoom,
		MaxZoom:  in.MaxZoom,
	}
	if in.RouteID != nil {
		if !validUUID(*in.RouteID) {
			return Result{}, errValidation("invalid bundle", map[string]any{"routeId": "must be a UUID"})
		}
		rid := domain.RouteID(*in.RouteID)
		spec.RouteID = &rid
	}
	// Rejected before any state exists: no queued row for an invalid bundle.
	if err := spec.Validate(); err != nil {
		return Result{}, errValidation("invalid bundle", map[string]any{"bundle": err.Error()})
	}

	exec := func(ctx context.Context, st storage.Store) (any, error) {
		now := s.clock.Now().UTC()
		b := bundlerepo.Bundle{
			ID:        s.newBundleID(),
			Owner:     owner,
			Kind:      spec.Kind,
			RouteID:   spec.RouteID,
			RegionID:  spec.RegionID,
			Bounds:    spec.Bounds,
			MinZoom:   spec.MinZoom,
			MaxZoom:   spec.MaxZoom,
			Status:    domain.BundleQueued,
			Progress:  0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := st.Bundles().Create(ctx, b); err != nil {
			return nil, err
		}
		return BundleResult{
			BundleID:  b.ID,
			Kind:      b.Kind,
			RouteID:   b.RouteID,
			RegionID:  b.RegionID,
			Bounds:    [4]float64(b.Bounds),
			MinZoom:   b.MinZoom,
			MaxZoom:   b.MaxZoom,
			Status:    b.Status,
			Progress:  b.Progress,
			CreatedAt: b.CreatedAt,
		}, nil
	}
	return s.dispatch(ctx, key, owner.Actor(), domain.MutationBundles, in, exec)
}

// dispatch runs one mutation attempt as a single atomic unit of work:
//
//  1. fingerprint the canonicalized payload
//  2. ledger lookup: short-circuit on replay or key reuse
//  3. execute the domain write (exec carries the revision check)
//  4. commit the ledger record with the exact response
//
// Two concurrent attempts with the same key cannot both stay fresh: the
// ledger's unique constraint aborts the loser, which retries its lookup and
// observes the winner's record instead of surfacing a raw constraint error.
func (s *Service) dispatch(ctx context.Context, key ledger.Key, actor domain.ActorID, mt domain.MutationType, payload any, exec func(ctx context.Context, st storage.Store) (any, error)) (Result, error) {
	if key == uuid.Nil {
		return Result{}, errValidation("missing idempotency key", nil)
	}
	if actor == "" {
		return Result{}, errValidation("missing acting identity", nil)
	}
	fp, err := domain.FingerprintPayload(payload)
	if err != nil {
		return Result{}, errValidation(fmt.Sprintf("payload not canonicalizable: %v", err), nil)
	}

	var out Result
	run := func(ctx context.Context, st storage.Store) error {
		att, err := s.ledger.BeginAttempt(ctx, st.Ledger(), key, actor, mt, fp)
		if err != nil {
			return err
		}
		switch att.Outcome {
		case OutcomeReplay:
			out = Result{Body: att.Snapshot, Replayed: true}
			return nil
		case OutcomeConflict:
			return errKeyReuse()
		}
		res, err := exec(ctx, st)
		if err != nil {
			return err
		}
		body, err := json.Marshal(res)
		if err != nil {
			return err
		}
		if err := s.ledger.Commit(ctx, st.Ledger(), key, actor, mt, fp, body); err != nil {
			return err
		}
		out = Result{Body: body}
		return nil
	}

	err = s.db.InTx(ctx, run)
	if errors.Is(err, ledger.ErrDuplicateKey) {
		// Lost a same-key race; the winner's record is now visible.
		err = s.db.InTx(ctx, run)
	}
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return Result{}, appErr
		}
		return Result{}, errStorage(err)
	}
	return out, nil
}

func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
