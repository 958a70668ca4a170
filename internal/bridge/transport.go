package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// sseTransport is a server-side SSE transport for one MCP session.
//
// Outgoing JSON-RPC messages are written to the open event stream; incoming
// messages arrive over separate POST requests and are queued for the MCP
// server to read. The transport implements both mcp.Transport (Connect) and
// the resulting connection, since there is exactly one connection per stream.
type sseTransport struct {
	sessionID string
	endpoint  string
	w         http.ResponseWriter
	flusher   http.Flusher

	incoming chan jsonrpc.Message
	done     chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex // serializes writes to the event stream
}

// newSSETransport binds a transport to the response stream of a GET /sse
// request. endpoint is the message-delivery URI announced to the client.
func newSSETransport(sessionID, endpoint string, w http.ResponseWriter) (*sseTransport, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	return &sseTransport{
		sessionID: sessionID,
		endpoint:  endpoint,
		w:         w,
		flusher:   flusher,
		incoming:  make(chan jsonrpc.Message, 8),
		done:      make(chan struct{}),
	}, nil
}

// Connect sets the SSE headers and announces the message endpoint, then
// hands the transport to the MCP server as its connection.
func (t *sseTransport) Connect(context.Context) (mcp.Connection, error) {
	h := t.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	if err := t.writeEvent("endpoint", t.endpoint); err != nil {
		return nil, fmt.Errorf("announcing endpoint: %w", err)
	}

	return t, nil
}

// Read returns the next message delivered via POST, or io.EOF once the
// transport is closed.
func (t *sseTransport) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-t.incoming:
		return msg, nil
	case <-t.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write encodes one JSON-RPC message onto the event stream.
func (t *sseTransport) Write(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case <-t.done:
		return fmt.Errorf("session %s: transport closed", t.sessionID)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	return t.writeEvent("message", string(data))
}

// Close marks the transport closed. Idempotent; pending Reads return io.EOF
// and later Writes and deliveries fail.
func (t *sseTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

// SessionID returns the opaque id assigned when the stream opened.
func (t *sseTransport) SessionID() string {
	return t.sessionID
}

// Deliver queues one inbound message for the MCP server.
// Fails once the transport is closed or the caller gives up.
func (t *sseTransport) Deliver(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case t.incoming <- msg:
		return nil
	case <-t.done:
		return fmt.Errorf("session %s: %w", t.sessionID, ErrSessionNotFound)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping writes an SSE comment to keep intermediaries from timing out the
// stream. Returns an error once the underlying connection is gone.
func (t *sseTransport) Ping() error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.done:
		return fmt.Errorf("session %s: transport closed", t.sessionID)
	default:
	}

	if _, err := fmt.Fprint(t.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("writing keepalive: %w", err)
	}
	t.flusher.Flush()
	return nil
}

// writeEvent writes one named SSE event and flushes.
func (t *sseTransport) writeEvent(event, data string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := fmt.Fprintf(t.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	t.flusher.Flush()
	return nil
}
