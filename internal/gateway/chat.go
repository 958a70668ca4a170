package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"
)

// SSE event types for chat streaming.
const (
	EventChunk = "chunk" // Partial response text
	EventDone  = "done"  // Stream completed successfully
	EventError = "error" // Error occurred during streaming
)

// Message is one turn of the conversation history sent by the client.
type Message struct {
	Role    string `json:"role"` // "user", "assistant" or "system"
	Content string `json:"content"`
}

// chatRequest is the POST /api/chat payload.
type chatRequest struct {
	Messages []Message `json:"messages"`
}

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when streaming completes successfully.
type DonePayload struct {
	Response string `json:"response"`
}

// ErrorPayload is the SSE data payload when an error occurs mid-stream.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type chatHandler struct {
	logger    *slog.Logger
	g         *genkit.Genkit
	bridgeURL string
	modelName string
	maxTurns  int
}

func newChatHandler(cfg ServerConfig) (*chatHandler, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.BridgeURL == "" {
		return nil, errors.New("bridge URL is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}

	return &chatHandler{
		logger:    logger,
		g:         cfg.Genkit,
		bridgeURL: cfg.BridgeURL,
		modelName: cfg.ModelName,
		maxTurns:  maxTurns,
	}, nil
}

// chat handles POST /api/chat.
//
// Failures during setup (bad input, bridge unreachable, tool discovery)
// return a single 500 JSON payload; once streaming has begun, errors are
// reported as an SSE error event instead.
func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages are required")
		return
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Check streaming support before any bridge work, while a plain JSON
	// error can still go out with its own Content-Type.
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Open a fresh bridge session for this request and discover tools.
	setupCtx, cancel := context.WithTimeout(r.Context(), sessionSetupTimeout)
	defer cancel()

	client, err := mcp.NewGenkitMCPClient(mcp.MCPClientOptions{
		Name:    "todoflow",
		Version: "1.0.0",
		SSE:     &mcp.SSEConfig{BaseURL: h.bridgeURL},
	})
	if err != nil {
		h.logger.Error("connecting to bridge", "url", h.bridgeURL, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to connect to tool bridge")
		return
	}
	defer func() {
		if closeErr := client.Disconnect(); closeErr != nil {
			h.logger.Warn("closing bridge session", "error", closeErr)
		}
	}()

	tools, err := client.GetActiveTools(setupCtx, h.g)
	if err != nil {
		h.logger.Error("discovering bridge tools", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to discover tools")
		return
	}

	toolRefs := make([]ai.ToolRef, 0, len(tools))
	for _, t := range tools {
		toolRefs = append(toolRefs, t)
	}

	// Setup done; switch to SSE streaming.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	h.logger.Debug("chat stream started", "messages", len(req.Messages), "tools", len(tools))

	callback := func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
		if chunk == nil {
			return nil
		}
		for _, part := range chunk.Content {
			if part.Text == "" {
				continue
			}
			if err := writeEvent(w, flusher, EventChunk, ChunkPayload{Text: part.Text}); err != nil {
				return err // Write failure usually means connection closed
			}
		}
		return nil
	}

	resp, err := genkit.Generate(ctx, h.g,
		ai.WithModelName("googleai/"+h.modelName),
		ai.WithMessages(messages...),
		ai.WithTools(toolRefs...),
		ai.WithMaxTurns(h.maxTurns),
		ai.WithStreaming(callback),
	)
	if err != nil {
		h.logger.Error("model generation failed", "error", err)
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "GENERATION_FAILED",
			Message: "model generation failed",
		})
		return
	}

	_ = writeEvent(w, flusher, EventDone, DonePayload{Response: resp.Text()})
	h.logger.Info("chat stream completed", "messages", len(req.Messages))
}

// convertMessages maps client roles onto genkit message constructors.
func convertMessages(in []Message) ([]*ai.Message, error) {
	out := make([]*ai.Message, 0, len(in))
	for i, m := range in {
		switch m.Role {
		case "user":
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case "assistant", "model":
			out = append(out, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		case "system":
			out = append(out, ai.NewSystemMessage(ai.NewTextPart(m.Content)))
		default:
			return nil, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return out, nil
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
