package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewServer_RequiresStore(t *testing.T) {
	_, err := NewServer(ServerConfig{Logger: slog.New(slog.DiscardHandler)})
	if err == nil {
		t.Fatal("NewServer(no store) expected error, got nil")
	}
}

func TestPing(t *testing.T) {
	h := newTestHandler(newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/system/ping", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /system/ping status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"message\":\"pong\"}\n" {
		t.Errorf("ping body = %q, want pong message", got)
	}
}

func TestReady_NilPool(t *testing.T) {
	h := newTestHandler(newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /ready status = %d, want 200", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(newFakeStore())

	req := httptest.NewRequest(http.MethodPatch, "/todos", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH /todos status = %d, want 405", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:      slog.New(slog.DiscardHandler),
		Store:       newFakeStore(),
		CORSOrigins: []string{"http://localhost:3000"},
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want allowed origin", got)
	}

	// Unknown origins get no CORS headers.
	req = httptest.NewRequest(http.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin for unknown origin = %q, want empty", got)
	}
}
