package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecovery(t *testing.T) {
	handler := RequestID(Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected code %s", resp.Error.Code)
	}
	if resp.Error.RequestID == "" || resp.Error.RequestID != w.Header().Get("X-Request-ID") {
		t.Errorf("request id mismatch: body %q header %q", resp.Error.RequestID, w.Header().Get("X-Request-ID"))
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"tauri://localhost"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         10 * time.Minute,
	})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
	)

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "tauri://localhost")
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "tauri://localhost" {
			t.Error("origin not echoed")
		}
		if w.Header().Get("Access-Control-Max-Age") != "600" {
			t.Errorf("unexpected max age %q", w.Header().Get("Access-Control-Max-Age"))
		}
	})

	t.Run("OtherOrigin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusTeapot {
			t.Errorf("expected passthrough, got %d", w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("unexpected CORS header for unknown origin")
		}
	})
}

func TestLoggerCapturesStatus(t *testing.T) {
	var captured int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		if rec, ok := w.(*statusRecorder); ok {
			captured = rec.status
		}
	})

	w := httptest.NewRecorder()
	Logger(discardLogger())(inner).ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/probes", nil))

	if captured != http.StatusAccepted || w.Code != http.StatusAccepted {
		t.Errorf("expected 202, got captured %d, recorded %d", captured, w.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	incoming := "7b0b2f5e-8d7c-4b55-9a59-1b1f0d1c2e3a"
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if seen != incoming || w.Header().Get(RequestIDHeader) != incoming {
		t.Errorf("expected incoming id to be kept, got %q", seen)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" || seen == "" {
		t.Errorf("malformed id should be replaced, got %q", seen)
	}
}
