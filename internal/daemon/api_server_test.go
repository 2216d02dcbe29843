package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"audioflip/internal/api"
	"audioflip/internal/audio"
	"audioflip/internal/audio/memory"
	"audioflip/internal/logging"
	"audioflip/internal/testsupport"
)

func newTestAPI(t *testing.T, token string) (http.Handler, *memory.Backend) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	backend := memory.Stub()
	d, err := New(cfg, st, backend, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := &apiServer{daemon: d, logger: logging.NewNop()}
	return srv.routes(token), backend
}

func serve(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, api.DevicesResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var resp api.DevicesResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return w, resp
}

func TestAPIServerListDevices(t *testing.T) {
	h, _ := newTestAPI(t, "")
	w, resp := serve(t, h, http.MethodGet, "/api/devices")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if len(resp.Devices) != 2 || resp.Label != "AudioFlip - Speakers (Stub)" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestAPIServerToggleStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		setup    func(*memory.Backend)
		wantCode int
		wantKind string
	}{
		{"switched", "/api/devices/stub-headphone/toggle", func(*memory.Backend) {}, http.StatusOK, ""},
		{"not found", "/api/devices/ghost/toggle", func(*memory.Backend) {}, http.StatusNotFound, "not_found"},
		{"disabled", "/api/devices/hdmi/toggle", func(b *memory.Backend) {
			b.SetEndpoints([]audio.Endpoint{
				{ID: "stub-speaker", Name: "Speakers (Stub)", Enabled: true},
				{ID: "hdmi", Name: "HDMI", Enabled: false},
			})
		}, http.StatusConflict, "disabled"},
		{"switch failed", "/api/devices/stub-headphone/toggle", func(b *memory.Backend) { b.IgnoreSets(true) }, http.StatusBadGateway, "switch_failed"},
		{"enumeration", "/api/devices/stub-headphone/toggle", func(b *memory.Backend) { b.FailEnumerate(audio.ErrUnavailable) }, http.StatusServiceUnavailable, "enumeration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, backend := newTestAPI(t, "")
			tt.setup(backend)
			w, resp := serve(t, h, http.MethodPost, tt.path)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantKind == "" {
				if resp.Error != nil {
					t.Fatalf("unexpected error: %+v", resp.Error)
				}
				return
			}
			if resp.Error == nil || resp.Error.Kind != tt.wantKind {
				t.Fatalf("expected kind %q, got %+v", tt.wantKind, resp.Error)
			}
		})
	}
}

func TestAPIServerBusyReturnsLocked(t *testing.T) {
	h, backend := newTestAPI(t, "")
	entered := make(chan struct{})
	release := make(chan struct{})
	backend.OnSet(func(context.Context, string) {
		close(entered)
		<-release
	})

	done := make(chan int, 1)
	go func() {
		w, _ := serve(t, h, http.MethodPost, "/api/devices/stub-headphone/toggle")
		done <- w.Code
	}()
	<-entered

	w, resp := serve(t, h, http.MethodPost, "/api/cycle")
	if w.Code != http.StatusLocked || resp.Error == nil || resp.Error.Kind != "busy" {
		t.Fatalf("expected 423 busy, got %d %+v", w.Code, resp.Error)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on busy")
	}
	close(release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("expected first toggle to succeed, got %d", code)
	}
}

func TestAPIServerRotationAndCycle(t *testing.T) {
	h, _ := newTestAPI(t, "")

	w, resp := serve(t, h, http.MethodDelete, "/api/devices/stub-headphone/rotation")
	if w.Code != http.StatusOK || resp.Devices[1].InRotation {
		t.Fatalf("expected headphone excluded, got %d %+v", w.Code, resp.Devices)
	}
	w, resp = serve(t, h, http.MethodPost, "/api/cycle")
	if w.Code != http.StatusOK || resp.Switched {
		t.Fatalf("expected no-op cycle with one rotation device, got %d %+v", w.Code, resp)
	}

	serve(t, h, http.MethodPut, "/api/devices/stub-headphone/rotation")
	w, resp = serve(t, h, http.MethodPost, "/api/cycle")
	if w.Code != http.StatusOK || !resp.Switched || !resp.Devices[1].IsCurrent {
		t.Fatalf("expected cycle to headphone, got %d %+v", w.Code, resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var history api.HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Entries) != 1 || history.Entries[0].Origin != "http" || history.Entries[0].RequestID == "" {
		t.Fatalf("unexpected history: %+v", history.Entries)
	}
}

func TestAPIServerRejectsWrongMethod(t *testing.T) {
	h, _ := newTestAPI(t, "")
	req := httptest.NewRequest(http.MethodGet, "/api/cycle", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAPIServerRequiresToken(t *testing.T) {
	h, _ := newTestAPI(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
}

func TestStatusForKind(t *testing.T) {
	if statusForKind("mystery") != http.StatusInternalServerError {
		t.Fatal("expected unknown kinds to map to 500")
	}
}
