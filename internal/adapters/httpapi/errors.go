package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/wayfarer-travel/wayfarer-api/internal/app/bundles"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/mutations"
)

// ErrorResponse is the JSON error envelope shared by every endpoint.
type ErrorResponse struct {
	Error struct {
		Code      string                            `json:"code"`
		Message   string                            `json:"message"`
		Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
		RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(er)
}

// writeAppError maps application-layer errors onto the envelope.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var mErr *mutations.Error
	if errors.As(err, &mErr) {
		writeError(w, r, mErr.Status, mErr.Code, mErr.Message, mErr.Details)
		return
	}
	var bErr *bundles.Error
	if errors.As(err, &bErr) {
		writeError(w, r, bErr.Status, bErr.Code, bErr.Message, bErr.Details)
		return
	}
	s.log.Error("unhandled error", "path", r.URL.Path, "error", err)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
