package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/uminoko/todoflow/internal/todoclient"
)

// fakeAPI records requests to a stand-in CRUD service.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	srv      *httptest.Server
}

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/todos":
			_, _ = w.Write([]byte(`{"id":1,"title":"` + body["title"].(string) + `","completed":false}`))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/todos/"):
			_, _ = w.Write([]byte(`{"id":7,"title":"task","completed":true}`))
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/todos/"):
			_, _ = w.Write([]byte(`{"success":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"todo not found"}`))
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

// connectBridge creates a bridge server backed by the given CRUD base URL and
// an SDK client connected via in-memory transports. Returns the client
// session for making protocol calls.
func connectBridge(t *testing.T, apiBaseURL string) *mcp.ClientSession {
	t.Helper()

	server, err := NewServer(Config{
		Name:    "todoflow-bridge",
		Version: "test",
		Client:  todoclient.New(apiBaseURL, time.Second),
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("CallTool() returned empty content")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool() content[0] type = %T, want *mcp.TextContent", result.Content[0])
	}
	return tc.Text
}

func TestProtocol_ListTools(t *testing.T) {
	api := newFakeAPI(t)
	session := connectBridge(t, api.srv.URL)

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		if tool.Description == "" {
			t.Errorf("ListTools() tool %q has empty description", tool.Name)
		}
	}
	sort.Strings(names)

	wantNames := []string{"addTodoItem", "deleteTodoItem", "updateTodoItem"}
	if len(names) != len(wantNames) {
		t.Fatalf("ListTools() returned %d tools, want %d\ngot:  %v\nwant: %v", len(names), len(wantNames), names, wantNames)
	}
	for i, got := range names {
		if got != wantNames[i] {
			t.Errorf("ListTools() tool[%d] = %q, want %q", i, got, wantNames[i])
		}
	}
}

func TestProtocol_AddTodoItem(t *testing.T) {
	api := newFakeAPI(t)
	session := connectBridge(t, api.srv.URL)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "addTodoItem",
		Arguments: map[string]any{"title": "Test"},
	})
	if err != nil {
		t.Fatalf("CallTool(addTodoItem) unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("CallTool(addTodoItem) returned error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Test") || !strings.Contains(text, "1") {
		t.Errorf("addTodoItem confirmation = %q, want title and id", text)
	}

	reqs := api.recorded()
	if len(reqs) != 1 {
		t.Fatalf("fake API saw %d requests, want 1", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Path != "/todos" {
		t.Errorf("forwarded request = %s %s, want POST /todos", reqs[0].Method, reqs[0].Path)
	}
	if reqs[0].Body["title"] != "Test" {
		t.Errorf("forwarded body title = %v, want %q", reqs[0].Body["title"], "Test")
	}
}

func TestProtocol_AddTodoItem_EmptyTitle(t *testing.T) {
	api := newFakeAPI(t)
	session := connectBridge(t, api.srv.URL)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "addTodoItem",
		Arguments: map[string]any{"title": ""},
	})
	if err != nil {
		t.Fatalf("CallTool(addTodoItem) unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("CallTool(addTodoItem, empty title) IsError = false, want true")
	}

	// Local validation must short-circuit before any outbound call.
	if got := len(api.recorded()); got != 0 {
		t.Errorf("fake API saw %d requests, want 0", got)
	}
}

func TestProtocol_DeleteTodoItem(t *testing.T) {
	api := newFakeAPI(t)
	session := connectBridge(t, api.srv.URL)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "deleteTodoItem",
		Arguments: map[string]any{"id": 7},
	})
	if err != nil {
		t.Fatalf("CallTool(deleteTodoItem) unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("CallTool(deleteTodoItem) returned error result: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "7") {
		t.Errorf("deleteTodoItem confirmation = %q, want it to name id 7", text)
	}

	reqs := api.recorded()
	if len(reqs) != 1 || reqs[0].Method != http.MethodDelete || reqs[0].Path != "/todos/7" {
		t.Errorf("forwarded requests = %+v, want one DELETE /todos/7", reqs)
	}
}

func TestProtocol_DeleteTodoItem_InvalidID(t *testing.T) {
	api := newFakeAPI(t)
	session := connectBridge(t, api.srv.URL)

	for _, id := range []int{0, -4} {
		result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      "deleteTodoItem",
			Arguments: map[string]any{"id": id},
		})
		if err != nil {
			t.Fatalf("CallTool(deleteTodoItem, id=%d) unexpected error: %v", id, err)
		}
		if !result.IsError {
			t.Errorf("CallTool(deleteTodoItem, id=%d) IsError = false, want true", id)
		}
	}

	if got := len(api.recorded()); got != 0 {
		t.Errorf("fake API saw %d requests, want 0", got)
	}
}

func TestProtocol_UpdateTodoItem(t *testing.T) {
	api := newFakeAPI(t)
	session := connectBridge(t, api.srv.URL)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "updateTodoItem",
		Arguments: map[string]any{"id": 7, "completed": true},
	})
	if err != nil {
		t.Fatalf("CallTool(updateTodoItem) unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("CallTool(updateTodoItem) returned error result: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "completed=true") {
		t.Errorf("updateTodoItem confirmation = %q, want completed=true", text)
	}

	reqs := api.recorded()
	if len(reqs) != 1 || reqs[0].Method != http.MethodPut || reqs[0].Path != "/todos/7" {
		t.Fatalf("forwarded requests = %+v, want one PUT /todos/7", reqs)
	}
	if reqs[0].Body["completed"] != true {
		t.Errorf("forwarded body = %v, want completed=true", reqs[0].Body)
	}
	if _, hasTitle := reqs[0].Body["title"]; hasTitle {
		t.Errorf("forwarded body = %v, must not carry a title", reqs[0].Body)
	}
}

func TestProtocol_ToolFailure_WhenAPIUnreachable(t *testing.T) {
	api := newFakeAPI(t)
	url := api.srv.URL
	api.srv.Close() // API down: every outbound call fails

	session := connectBridge(t, url)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "addTodoItem",
		Arguments: map[string]any{"title": "Test"},
	})
	if err != nil {
		t.Fatalf("CallTool(addTodoItem) unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("CallTool(addTodoItem) with API down IsError = false, want true")
	}
	if text := resultText(t, result); !strings.Contains(text, "Test") {
		t.Errorf("failure text = %q, want it to name the todo", text)
	}
}
