package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/command"
	"github.com/airswap/airswap-bot/internal/config"
)

func newTestHandler(healthy bool) (http.Handler, *config.Store) {
	store := config.NewMemoryStore(nil)
	exec := command.NewExecutor(store, nil, zap.NewNop())
	health := func() Health {
		return Health{Phase: "running", Healthy: healthy, Chains: map[string]string{"1": "live"}}
	}
	return Handler(health, exec, zap.NewNop()), store
}

func TestHealthz(t *testing.T) {
	for _, healthy := range []bool{true, false} {
		handler, _ := newTestHandler(healthy)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		want := http.StatusOK
		if !healthy {
			want = http.StatusServiceUnavailable
		}
		if rec.Code != want {
			t.Fatalf("healthy=%v: got status %d", healthy, rec.Code)
		}
		var body Health
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Phase != "running" || body.Chains["1"] != "live" {
			t.Fatalf("unexpected body %+v", body)
		}
	}
}

func TestCommandEndpoint(t *testing.T) {
	handler, store := newTestHandler(true)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("mute")))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if store.Bool(config.KeyPublishing) {
		t.Fatalf("expected publishing muted")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("bogus")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown command, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/command", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := newTestHandler(true)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
