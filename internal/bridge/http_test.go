package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/uminoko/todoflow/internal/todoclient"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Config{
		Name:    "todoflow-bridge",
		Version: "test",
		Client:  todoclient.New("http://127.0.0.1:0", time.Second),
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	return s
}

func TestNewServer_Validation(t *testing.T) {
	client := todoclient.New("http://127.0.0.1:0", time.Second)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing_name", cfg: Config{Version: "v", Client: client}},
		{name: "missing_version", cfg: Config{Name: "n", Client: client}},
		{name: "missing_client", cfg: Config{Name: "n", Version: "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Error("NewServer() expected error, got nil")
			}
		})
	}
}

func TestHandleMessage_MissingSessionID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /messages status = %d, want 400", rec.Code)
	}
}

func TestHandleMessage_UnknownSession(t *testing.T) {
	s := newTestServer(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	req := httptest.NewRequest(http.MethodPost, "/messages?sessionId=nope", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /messages status = %d, want 400", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["error"] != "session not found" {
		t.Errorf("error = %q, want %q", resp["error"], "session not found")
	}
}

func TestHandleMessage_InvalidJSONRPC(t *testing.T) {
	s := newTestServer(t)

	tr := newRecorderTransport(t, "live")
	s.sessions.Add(tr)
	defer s.sessions.Remove("live")

	req := httptest.NewRequest(http.MethodPost, "/messages?sessionId=live", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /messages with garbage status = %d, want 400", rec.Code)
	}
}

func TestHandleMessage_DeliversToSession(t *testing.T) {
	s := newTestServer(t)

	tr := newRecorderTransport(t, "live")
	s.sessions.Add(tr)
	defer s.sessions.Remove("live")

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	req := httptest.NewRequest(http.MethodPost, "/messages?sessionId=live", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /messages status = %d, want 202", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := tr.Read(ctx); err != nil {
		t.Errorf("Read() after delivery error: %v", err)
	}
}

func TestHandleMessage_ClosedSession(t *testing.T) {
	s := newTestServer(t)

	tr := newRecorderTransport(t, "dead")
	s.sessions.Add(tr)
	defer s.sessions.Remove("dead")
	_ = tr.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	req := httptest.NewRequest(http.MethodPost, "/messages?sessionId=dead", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /messages to closed session status = %d, want 400", rec.Code)
	}
}

func TestBridgePing(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/system/ping", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /system/ping status = %d, want 200", rec.Code)
	}
}

func TestOpenSessions(t *testing.T) {
	s := newTestServer(t)

	if got := s.OpenSessions(); got != 0 {
		t.Errorf("OpenSessions() = %d, want 0", got)
	}

	s.sessions.Add(newRecorderTransport(t, "a"))
	s.sessions.Add(newRecorderTransport(t, "b"))
	if got := s.OpenSessions(); got != 2 {
		t.Errorf("OpenSessions() = %d, want 2", got)
	}

	s.sessions.Remove("a")
	s.sessions.Remove("b")
}
