package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	memclock "github.com/wayfarer-travel/wayfarer-api/internal/adapters/memory/clock"
	memstorage "github.com/wayfarer-travel/wayfarer-api/internal/adapters/memory/storage"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/bundles"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/mutations"
)

func newTestRouter(t *testing.T) (http.Handler, *memstorage.Backend) {
	t.Helper()
	backend := memstorage.NewBackend()
	clk := memclock.NewManualClock(time.Unix(1_700_000_000, 0))
	mutationSvc := mutations.NewService(backend, clk)
	bundleSvc := bundles.NewService(backend, clk)
	api := NewServer(mutationSvc, bundleSvc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewRouter(api, RouterOptions{AuthMiddleware: NewDevAuthMiddleware("")}), backend
}

type reqOpts struct {
	key    string
	user   string
	device string
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, opts reqOpts) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rd)
	if opts.key != "" {
		req.Header.Set("Idempotency-Key", opts.key)
	}
	if opts.user != "" {
		req.Header.Set("X-Debug-User", opts.user)
	}
	if opts.device != "" {
		req.Header.Set("X-Device-Id", opts.device)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func TestNoteUpsert_ReplayOverHTTP(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	key := uuid.NewString()
	body := `{"poiId":"poi-1","body":"try the pastel de nata"}`
	path := "/v1/notes/" + uuid.NewString()

	first := doJSON(t, h, http.MethodPut, path, body, reqOpts{key: key, user: "u-1"})
	if first.Code != http.StatusOK {
		t.Fatalf("first = %d: %s", first.Code, first.Body.String())
	}
	second := doJSON(t, h, http.MethodPut, path, body, reqOpts{key: key, user: "u-1"})
	if second.Code != http.StatusOK {
		t.Fatalf("replay = %d: %s", second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestNoteUpsert_KeyReuseConflict(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	key := uuid.NewString()
	path := "/v1/notes/" + uuid.NewString()

	if rec := doJSON(t, h, http.MethodPut, path, `{"poiId":"poi-1","body":"a"}`, reqOpts{key: key, user: "u-1"}); rec.Code != http.StatusOK {
		t.Fatalf("first = %d: %s", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, h, http.MethodPut, path, `{"poiId":"poi-1","body":"b"}`, reqOpts{key: key, user: "u-1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("reuse = %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "KEY_REUSE_CONFLICT" {
		t.Fatalf("code = %s", code)
	}
}

func TestNoteUpsert_RevisionConflictDetail(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	path := "/v1/notes/" + uuid.NewString()
	if rec := doJSON(t, h, http.MethodPut, path, `{"poiId":"poi-1","body":"v1"}`, reqOpts{key: uuid.NewString(), user: "u-1"}); rec.Code != http.StatusOK {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, h, http.MethodPut, path, `{"poiId":"poi-1","body":"v2","expectedRevision":1}`, reqOpts{key: uuid.NewString(), user: "u-1"}); rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodPut, path, `{"poiId":"poi-1","body":"stale","expectedRevision":1}`, reqOpts{key: uuid.NewString(), user: "u-1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale = %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				CurrentRevision int64 `json:"currentRevision"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "REVISION_CONFLICT" || env.Error.Details.CurrentRevision != 2 {
		t.Fatalf("envelope = %+v", env.Error)
	}
}

func TestMutationEndpoints_RequireKeyAndUser(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	// Missing key.
	rec := doJSON(t, h, http.MethodPut, "/v1/preferences", `{"pace":"relaxed","units":"metric"}`, reqOpts{user: "u-1"})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_IDEMPOTENCY_KEY" {
		t.Fatalf("missing key = %d %s", rec.Code, rec.Body.String())
	}

	// Malformed key.
	rec = doJSON(t, h, http.MethodPut, "/v1/preferences", `{"pace":"relaxed","units":"metric"}`, reqOpts{key: "not-a-uuid", user: "u-1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad key = %d", rec.Code)
	}

	// Device identity alone cannot use user-scoped endpoints.
	rec = doJSON(t, h, http.MethodPut, "/v1/preferences", `{"pace":"relaxed","units":"metric"}`, reqOpts{key: uuid.NewString(), device: "d-1"})
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "FORBIDDEN" {
		t.Fatalf("device on user endpoint = %d %s", rec.Code, rec.Body.String())
	}

	// No identity at all.
	rec = doJSON(t, h, http.MethodPut, "/v1/preferences", `{"pace":"relaxed","units":"metric"}`, reqOpts{key: uuid.NewString()})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", rec.Code)
	}

	// Malformed JSON.
	rec = doJSON(t, h, http.MethodPut, "/v1/preferences", `{"pace":`, reqOpts{key: uuid.NewString(), user: "u-1"})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "MALFORMED_BODY" {
		t.Fatalf("malformed body = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRoute_FreshThenReplayStatus(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	key := uuid.NewString()
	body := `{"name":"Harbor loop","stopIds":["poi-1","poi-2"],"distanceMeters":1800,"durationMinutes":40}`

	first := doJSON(t, h, http.MethodPost, "/v1/routes", body, reqOpts{key: key, user: "u-1"})
	if first.Code != http.StatusCreated {
		t.Fatalf("fresh create = %d: %s", first.Code, first.Body.String())
	}
	second := doJSON(t, h, http.MethodPost, "/v1/routes", body, reqOpts{key: key, user: "u-1"})
	if second.Code != http.StatusOK {
		t.Fatalf("replayed create = %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed create body differs")
	}
}

func TestBundles_DeviceOwnedFlow(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	device := "device-" + uuid.NewString()
	create := `{"kind":"region","regionId":"r-alfama","bounds":[-9.2,38.7,-9.1,38.8],"minZoom":10,"maxZoom":16}`

	rec := doJSON(t, h, http.MethodPost, "/v1/bundles", create, reqOpts{key: uuid.NewString(), device: device})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bundle = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		BundleID string  `json:"bundleId"`
		Status   string  `json:"status"`
		Progress float64 `json:"progress"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != "queued" || created.Progress != 0 {
		t.Fatalf("created = %+v", created)
	}

	// The device sees its bundle; another device sees nothing.
	rec = doJSON(t, h, http.MethodGet, "/v1/bundles", "", reqOpts{device: device})
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var listed struct {
		Bundles []bundleResponse `json:"bundles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Bundles) != 1 || string(listed.Bundles[0].BundleID) != created.BundleID {
		t.Fatalf("list = %+v", listed)
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/bundles", "", reqOpts{device: "other-device"})
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Bundles) != 0 {
		t.Fatalf("bundle leaked to another device: %+v", listed)
	}

	// The downloader advances it through the internal surface.
	rec = doJSON(t, h, http.MethodPatch, "/internal/bundles/"+created.BundleID, `{"status":"downloading","progress":0.4}`, reqOpts{})
	if rec.Code != http.StatusOK {
		t.Fatalf("advance = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPatch, "/internal/bundles/"+created.BundleID, `{"status":"queued","progress":0}`, reqOpts{})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "BUNDLE_STATUS_CONFLICT" {
		t.Fatalf("illegal transition = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBundle_ValidationError(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	create := `{"kind":"region","regionId":"r-1","bounds":[-200,0,10,10],"minZoom":10,"maxZoom":16}`
	rec := doJSON(t, h, http.MethodPost, "/v1/bundles", create, reqOpts{key: uuid.NewString(), user: "u-1"})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "VALIDATION_ERROR" {
		t.Fatalf("invalid bundle = %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", reqOpts{})
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}
