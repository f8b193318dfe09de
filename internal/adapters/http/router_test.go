package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akarpov/lanhub/internal/adapters/signal"
	"github.com/akarpov/lanhub/internal/app"
	"github.com/akarpov/lanhub/internal/config"
	"github.com/akarpov/lanhub/internal/media"
	"github.com/akarpov/lanhub/internal/playback"
)

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store, err := media.NewStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	hub := app.NewHub(app.NewRegistry(), playback.NewManager(ctx), nil)
	ctl := signal.NewController(hub, 0, 0)
	return SetupRouter(ctx, cfg, ctl, store)
}

func TestConfigEndpointExposesSTUNServers(t *testing.T) {
	cfg := &config.Config{
		Mode:        "release",
		Secret:      "test-secret",
		StaticPath:  t.TempDir(),
		STUNServers: []string{"stun:stun.example.org:3478"},
	}
	r := newTestRouter(t, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		StunServers []string `json:"stunServers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.StunServers) != 1 || body.StunServers[0] != "stun:stun.example.org:3478" {
		t.Fatalf("unexpected stun servers: %v", body.StunServers)
	}
}
