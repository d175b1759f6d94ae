package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wayfarer-travel/wayfarer-api/internal/app/bundles"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/mutations"
	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// Server implements the mutation endpoints. It is deliberately thin: decode,
// resolve identity, delegate to the dispatcher, write the result envelope.
type Server struct {
	mutations *mutations.Service
	bundles   *bundles.Service
	log       *slog.Logger
}

func NewServer(m *mutations.Service, b *bundles.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{mutations: m, bundles: b, log: log}
}

// idempotencyKey extracts and parses the Idempotency-Key header.
func idempotencyKey(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("Idempotency-Key")
	if raw == "" {
		return uuid.Nil, false
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return key, true
}

func (s *Server) requireKey(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	key, ok := idempotencyKey(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key header must be a UUID", nil)
		return uuid.Nil, false
	}
	return key, true
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "endpoint requires a registered user", nil)
		return "", false
	}
	return user, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "MALFORMED_BODY", "request body is not valid JSON", nil)
		return false
	}
	return true
}

// writeResult writes the dispatcher's response body. Replays answer 200 even
// for creates; the body is the stored snapshot, byte for byte.
func writeResult(w http.ResponseWriter, res mutations.Result, freshStatus int) {
	status := freshStatus
	if res.Replayed {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(res.Body)
}

func (s *Server) handleCreateRoute(w http.ResponseWriter, r *http.Request) {
	key, ok := s.requireKey(w, r)
	if !ok {
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req routeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.mutations.CreateRoute(r.Context(), key, user, mutations.RouteInput{
		Name:            req.Name,
		StopIDs:         req.StopIDs,
		DistanceMeters:  req.DistanceMeters,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleUpsertNote(w http.ResponseWriter, r *http.Request) {
	key, ok := s.requireKey(w, r)
	if !ok {
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := mutations.NoteInput{
		NoteID:           domain.NoteID(chi.URLParam(r, "noteID")),
		POIID:            domain.POIID(req.POIID),
		Body:             req.Body,
		ExpectedRevision: req.ExpectedRevision,
	}
	if req.Rating.IsSpecified() && !req.Rating.IsNull() {
		v := req.Rating.MustGet()
		in.Rating = &v
	}
	res, err := s.mutations.UpsertNote(r.Context(), key, user, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	key, ok := s.requireKey(w, r)
	if !ok {
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := mutations.ProgressInput{
		RouteID:          domain.RouteID(chi.URLParam(r, "routeID")),
		CompletedStopIDs: req.CompletedStopIDs,
		ExpectedRevision: req.ExpectedRevision,
	}
	if req.LastStopID.IsSpecified() && !req.LastStopID.IsNull() {
		v := req.LastStopID.MustGet()
		in.LastStopID = &v
	}
	res, err := s.mutations.UpdateProgress(r.Context(), key, user, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	key, ok := s.requireKey(w, r)
	if !ok {
		return
	}
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req preferencesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.mutations.UpdatePreferences(r.Context(), key, user, mutations.PreferencesInput{
		Pace:             req.Pace,
		Interests:        req.Interests,
		Avoid:            req.Avoid,
		Units:            req.Units,
		ExpectedRevision: req.ExpectedRevision,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeResult(w, res, http.StatusOK)
}

// owner resolves bundle ownership: registered user if authenticated,
// anonymous device otherwise.
func ownerFromContext(r *http.Request) (domain.Owner, bool) {
	if user, ok := UserFromContext(r.Context()); ok {
		return domain.Owner{UserID: user}, true
	}
	if device, ok := DeviceFromContext(r.Context()); ok {
		return domain.Owner{DeviceID: device}, true
	}
	return domain.Owner{}, false
}

func (s *Server) handleCreateBundle(w http.ResponseWriter, r *http.Request) {
	key, ok := s.requireKey(w, r)
	if !ok {
		return
	}
	owner, ok := ownerFromContext(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	var req bundleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.mutations.CreateBundle(r.Context(), key, owner, mutations.BundleInput{
		Kind:     req.Kind,
		RouteID:  req.RouteID,
		RegionID: req.RegionID,
		Bounds:   req.Bounds,
		MinZoom:  req.MinZoom,
		MaxZoom:  req.MaxZoom,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleListBundles(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	bs, err := s.bundles.ListForOwner(r.Context(), owner)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]bundleResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBundleResponse(b))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"bundles": out})
}

// handleAdvanceBundle is the downloader-facing transition endpoint. It is
// the only way a bundle leaves the queued state.
func (s *Server) handleAdvanceBundle(w http.ResponseWriter, r *http.Request) {
	var req bundleAdvanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := s.bundles.Advance(r.Context(),
		domain.BundleID(chi.URLParam(r, "bundleID")),
		domain.BundleStatus(req.Status),
		req.Progress,
	)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toBundleResponse(b))
}
