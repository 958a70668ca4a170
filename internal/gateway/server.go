// Package gateway implements the model-invocation endpoint.
//
// POST /api/chat receives a conversation history, opens a fresh MCP session
// against the bridge, discovers the todo tools, and streams a model response
// back to the client as server-sent events. The bridge session is closed when
// streaming finishes, on success or error.
package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/genkit"
)

// ServerConfig contains configuration for creating the gateway server.
type ServerConfig struct {
	Logger    *slog.Logger
	Genkit    *genkit.Genkit // Required
	BridgeURL string         // Required: bridge SSE endpoint, e.g. http://localhost:3001/sse
	ModelName string         // Required: model identifier, e.g. gemini-2.0-flash-lite
	MaxTurns  int            // Tool-call round limit per request (0 = default 5)
}

// Server is the chat gateway HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the gateway server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	ch, err := newChatHandler(cfg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.chat)
	mux.HandleFunc("GET /system/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
	})

	return &Server{mux: mux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// sessionSetupTimeout bounds bridge session establishment and tool discovery.
const sessionSetupTimeout = 15 * time.Second
