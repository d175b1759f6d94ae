package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

// SessionVerifier resolves a bearer token to a user id. Session handling is
// an external collaborator; this interface is the whole boundary.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (domain.UserID, error)
}

// NewAuthMiddleware enforces the session boundary for the public endpoints.
//
// A valid Authorization: Bearer token yields an authenticated user in the
// request context. Without one, an X-Device-Id header yields an anonymous
// device identity, accepted only by the bundle endpoints.
func NewAuthMiddleware(v SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz != "" {
				const prefix = "Bearer "
				if !strings.HasPrefix(authz, prefix) {
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
					return
				}
				raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
				if raw == "" {
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
					return
				}
				user, err := v.Verify(r.Context(), raw)
				if err != nil {
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session", nil)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
				return
			}
			if device := strings.TrimSpace(r.Header.Get("X-Device-Id")); device != "" {
				next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), domain.DeviceID(device))))
				return
			}
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim. It accepts an explicit
// user via X-Debug-User, falling back to defaultUser, and still honors
// X-Device-Id for anonymous flows. Do NOT use in production deployments.
func NewDevAuthMiddleware(defaultUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := strings.TrimSpace(r.Header.Get("X-Debug-User")); user != "" {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), domain.UserID(user))))
				return
			}
			if device := strings.TrimSpace(r.Header.Get("X-Device-Id")); device != "" {
				next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), domain.DeviceID(device))))
				return
			}
			if defaultUser != "" {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), domain.UserID(defaultUser))))
				return
			}
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity (set X-Debug-User)", nil)
		})
	}
}
