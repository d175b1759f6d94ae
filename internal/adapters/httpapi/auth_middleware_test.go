package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

type stubVerifier struct {
	users map[string]domain.UserID
}

func (v stubVerifier) Verify(_ context.Context, token string) (domain.UserID, error) {
	if u, ok := v.users[token]; ok {
		return u, nil
	}
	return "", errors.New("unknown session")
}

func identityEcho() (http.Handler, *domain.UserID, *domain.DeviceID) {
	var user domain.UserID
	var device domain.DeviceID
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ = UserFromContext(r.Context())
		device, _ = DeviceFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return h, &user, &device
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	mw := NewAuthMiddleware(stubVerifier{users: map[string]domain.UserID{"tok-1": "u-1"}})
	inner, user, device := identityEcho()
	h := mw(inner)

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent || *user != "u-1" {
			t.Fatalf("code=%d user=%q", rec.Code, *user)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("code=%d", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("code=%d", rec.Code)
		}
	})

	t.Run("device fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Device-Id", "d-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent || *device != "d-1" {
			t.Fatalf("code=%d device=%q", rec.Code, *device)
		}
	})

	t.Run("no identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("code=%d", rec.Code)
		}
	})

	// A bearer token wins over a device header: the device id is ignored.
	t.Run("bearer beats device", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		req.Header.Set("X-Device-Id", "d-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent || *user != "u-1" || *device != "" {
			t.Fatalf("code=%d user=%q device=%q", rec.Code, *user, *device)
		}
	})
}

func TestDevAuthMiddleware(t *testing.T) {
	t.Parallel()

	inner, user, device := identityEcho()
	h := NewDevAuthMiddleware("fallback-user")(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User", "u-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if *user != "u-9" {
		t.Fatalf("user=%q", *user)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Device-Id", "d-9")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if *device != "d-9" {
		t.Fatalf("device=%q", *device)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if *user != "fallback-user" {
		t.Fatalf("user=%q", *user)
	}

	// Without a fallback, anonymous requests are rejected.
	strict := NewDevAuthMiddleware("")(inner)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	strict.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code=%d", rec.Code)
	}
}
