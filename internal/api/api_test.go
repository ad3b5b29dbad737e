package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/openusage/openusage/internal/middleware"
	"github.com/openusage/openusage/internal/plugins"
	"github.com/openusage/openusage/internal/probe"
	"github.com/openusage/openusage/internal/settings"
)

type staticProber struct{}

func (staticProber) Probe(_ context.Context, p plugins.LoadedPlugin, _ plugins.ProbeEnv) (plugins.ProbeOutput, error) {
	return plugins.ProbeOutput{ProviderID: p.Manifest.ID, DisplayName: p.Manifest.Name, Lines: []plugins.MetricLine{}}, nil
}

type nopEmitter struct{}

func (nopEmitter) BatchStarted(probe.BatchStarted)   {}
func (nopEmitter) Result(probe.Result)               {}
func (nopEmitter) BatchComplete(probe.BatchComplete) {}

type nopRegistrar struct{}

func (nopRegistrar) Register(string) error   { return nil }
func (nopRegistrar) Unregister(string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(ids ...string) *plugins.Registry {
	registry := plugins.NewRegistry("", testLogger())
	loaded := make([]plugins.LoadedPlugin, len(ids))
	for i, id := range ids {
		loaded[i] = plugins.LoadedPlugin{Manifest: plugins.Manifest{ID: id, Name: id}}
	}
	registry.Replace(loaded)
	return registry
}

// setupTest builds a router over a two-plugin registry
func setupTest(t *testing.T, emitter probe.Emitter) (http.Handler, *probe.Engine) {
	t.Helper()
	if emitter == nil {
		emitter = nopEmitter{}
	}
	registry := testRegistry("codex", "claude")
	engine := probe.NewEngine(registry, staticProber{}, plugins.ProbeEnv{}, emitter, testLogger())

	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	shortcut := settings.NewShortcutState(nopRegistrar{}, store, testLogger())

	router := NewRouter(Dependencies{
		Engine:      engine,
		Shortcut:    shortcut,
		PluginCount: registry.Len,
		Logger:      testLogger(),
	})
	t.Cleanup(func() { engine.Wait(context.Background()) })
	return router, engine
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	router, _ := setupTest(t, nil)

	w := do(t, router, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Plugins != 2 {
		t.Errorf("unexpected health response: %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestProbeHandler_ListPlugins(t *testing.T) {
	router, _ := setupTest(t, nil)

	t.Run("List", func(t *testing.T) {
		w := do(t, router, "GET", "/api/v1/plugins", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var metas []probe.PluginMeta
		if err := json.NewDecoder(w.Body).Decode(&metas); err != nil {
			t.Fatal(err)
		}
		if len(metas) != 2 || metas[0].ID != "codex" || metas[1].ID != "claude" {
			t.Errorf("unexpected plugins: %+v", metas)
		}
	})

	t.Run("Get", func(t *testing.T) {
		w := do(t, router, "GET", "/api/v1/plugins/claude", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		w := do(t, router, "GET", "/api/v1/plugins/nope", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		var resp middleware.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Error.Code != "NOT_FOUND" || resp.Error.RequestID == "" {
			t.Errorf("unexpected error body: %+v", resp.Error)
		}
	})
}

func TestProbeHandler_StartBatch(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantIDs    []string
	}{
		{"All", "", http.StatusAccepted, []string{"codex", "claude"}},
		{"Selected", `{"batchId":"b-1","pluginIds":["claude","zzz","claude"]}`, http.StatusAccepted, []string{"claude"}},
		{"Empty", `{"pluginIds":[]}`, http.StatusAccepted, []string{}},
		{"InvalidBody", `{"pluginIds":`, http.StatusBadRequest, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setupTest(t, nil)

			w := do(t, router, "POST", "/api/v1/probes", tc.body)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantIDs == nil {
				return
			}

			var started probe.BatchStarted
			if err := json.NewDecoder(w.Body).Decode(&started); err != nil {
				t.Fatal(err)
			}
			if started.BatchID == "" {
				t.Error("batch id should be generated")
			}
			if len(started.PluginIDs) != len(tc.wantIDs) {
				t.Fatalf("expected %v, got %v", tc.wantIDs, started.PluginIDs)
			}
			for i := range tc.wantIDs {
				if started.PluginIDs[i] != tc.wantIDs[i] {
					t.Errorf("expected %v, got %v", tc.wantIDs, started.PluginIDs)
				}
			}
		})
	}
}

func TestProbeHandler_EngineClosed(t *testing.T) {
	router, engine := setupTest(t, nil)
	engine.Close()

	w := do(t, router, "POST", "/api/v1/probes", "{}")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestSettingsHandler_Shortcut(t *testing.T) {
	router, _ := setupTest(t, nil)

	w := do(t, router, "GET", "/api/v1/settings/shortcut", "")
	if w.Code != http.StatusOK || w.Body.String() != "{\"shortcut\":null}\n" {
		t.Fatalf("unexpected initial shortcut: %d %s", w.Code, w.Body.String())
	}

	w = do(t, router, "PUT", "/api/v1/settings/shortcut", `{"shortcut":"Alt+U"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ShortcutResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Changed || resp.Shortcut == nil || *resp.Shortcut != "Alt+U" {
		t.Errorf("unexpected response: %+v", resp)
	}

	w = do(t, router, "PUT", "/api/v1/settings/shortcut", `{"shortcut":null}`)
	resp = ShortcutResponse{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Changed || resp.Shortcut != nil {
		t.Errorf("expected shortcut disabled, got %+v", resp)
	}
}
