package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// keepAliveInterval is how often an open stream emits a comment ping.
const keepAliveInterval = 30 * time.Second

// maxMessageBytes bounds one inbound JSON-RPC message body.
const maxMessageBytes = 4 << 20

// Handler returns the bridge's HTTP surface:
//
//	GET  /sse                      open a stream, assign a session
//	POST /messages?sessionId=<id>  deliver one message to an open session
//	GET  /system/ping              liveness probe
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sse", s.handleSSE)
	mux.HandleFunc("POST /messages", s.handleMessage)
	mux.HandleFunc("GET /system/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
	})
	return mux
}

// OpenSessions reports the number of currently open streams.
func (s *Server) OpenSessions() int {
	return s.sessions.Len()
}

// handleSSE opens one MCP session over a long-lived event stream.
//
// Lifecycle: allocate a session id, register the transport, connect the MCP
// server (which announces the message endpoint on the stream), then hold the
// connection until the client goes away or the session ends. The session
// entry is removed before the handler returns so stale deliveries fail fast.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New().String()

	transport, err := newSSETransport(sessionID, "/messages?sessionId="+sessionID, w)
	if err != nil {
		s.logger.Error("creating SSE transport", "error", err)
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	s.sessions.Add(transport)
	defer s.sessions.Remove(sessionID)
	defer func() { _ = transport.Close() }()

	session, err := s.mcpServer.Connect(r.Context(), transport, nil)
	if err != nil {
		s.logger.Error("connecting MCP session", "sessionId", sessionID, "error", err)
		return
	}

	s.logger.Info("session opened", "sessionId", sessionID, "open", s.sessions.Len())

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if waitErr := session.Wait(); waitErr != nil {
			s.logger.Debug("session ended", "sessionId", sessionID, "error", waitErr)
		}
	}()

	// Keep-alive loop: exit on client disconnect or session termination,
	// ping on the ticker so proxies keep the stream open.
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			_ = session.Close()
			<-sessionDone
			s.logger.Info("session closed by client", "sessionId", sessionID)
			return
		case <-sessionDone:
			s.logger.Info("session terminated", "sessionId", sessionID)
			return
		case <-ticker.C:
			if err := transport.Ping(); err != nil {
				_ = session.Close()
				<-sessionDone
				s.logger.Info("session closed on dead stream", "sessionId", sessionID)
				return
			}
		}
	}
}

// handleMessage delivers one JSON-RPC message to an open session.
// The session table is only read here; unknown sessions fail with 400.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	transport, err := s.sessions.Get(sessionID)
	if err != nil {
		s.logger.Warn("message for unknown session", "sessionId", sessionID)
		writeJSONError(w, http.StatusBadRequest, "session not found")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "reading request body")
		return
	}

	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		s.logger.Warn("undecodable message", "sessionId", sessionID, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid JSON-RPC message")
		return
	}

	if err := transport.Deliver(r.Context(), msg); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeJSONError(w, http.StatusBadRequest, "session not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "delivering message")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
