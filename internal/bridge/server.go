package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/uminoko/todoflow/internal/todoclient"
)

// Server wraps the MCP SDK server and the outbound todo API client.
type Server struct {
	mcpServer *mcp.Server
	client    *todoclient.Client
	sessions  *sessionManager
	logger    *slog.Logger
	name      string
	version   string
}

// Config holds bridge server configuration.
type Config struct {
	Name    string
	Version string
	Client  *todoclient.Client
	Logger  *slog.Logger
}

// NewServer creates a new bridge server with the todo tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("todo API client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		client:    cfg.Client,
		sessions:  newSessionManager(),
		logger:    logger,
		name:      cfg.Name,
		version:   cfg.Version,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	return s, nil
}

// registerTools registers the three todo tools on the MCP server.
func (s *Server) registerTools() error {
	if err := s.registerAddTodoItem(); err != nil {
		return fmt.Errorf("registering addTodoItem: %w", err)
	}
	if err := s.registerDeleteTodoItem(); err != nil {
		return fmt.Errorf("registering deleteTodoItem: %w", err)
	}
	if err := s.registerUpdateTodoItem(); err != nil {
		return fmt.Errorf("registering updateTodoItem: %w", err)
	}
	return nil
}

// textResult builds a successful tool result with a single text payload.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult builds a failed tool result. Failure is encoded in the result
// itself (IsError) so clients can distinguish it from protocol errors.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// AddTodoInput defines the input schema for the addTodoItem tool.
type AddTodoInput struct {
	Title string `json:"title" jsonschema:"Title for the new todo"`
}

func (s *Server) registerAddTodoItem() error {
	inputSchema, err := jsonschema.For[AddTodoInput](nil)
	if err != nil {
		return fmt.Errorf("creating input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "addTodoItem",
		Description: "Add a new todo item",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in AddTodoInput) (*mcp.CallToolResult, any, error) {
		if in.Title == "" {
			return errorResult("title must not be empty"), nil, nil
		}

		created, err := s.client.Create(ctx, in.Title)
		if err != nil {
			s.logger.Warn("addTodoItem failed", "title", in.Title, "error", err)
			return errorResult(fmt.Sprintf("failed to add todo %q: %v", in.Title, err)), nil, nil
		}

		s.logger.Info("added todo", "id", created.ID, "title", created.Title)
		return textResult(fmt.Sprintf("Added todo %q (id %d)", created.Title, created.ID)), nil, nil
	})

	return nil
}

// DeleteTodoInput defines the input schema for the deleteTodoItem tool.
type DeleteTodoInput struct {
	ID int64 `json:"id" jsonschema:"ID of the todo to delete"`
}

func (s *Server) registerDeleteTodoItem() error {
	inputSchema, err := jsonschema.For[DeleteTodoInput](nil)
	if err != nil {
		return fmt.Errorf("creating input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "deleteTodoItem",
		Description: "Delete a todo item",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in DeleteTodoInput) (*mcp.CallToolResult, any, error) {
		if in.ID <= 0 {
			s.logger.Warn("deleteTodoItem invalid id", "id", in.ID)
			return errorResult(fmt.Sprintf("invalid todo id %d: must be a positive integer", in.ID)), nil, nil
		}

		if err := s.client.Delete(ctx, in.ID); err != nil {
			s.logger.Warn("deleteTodoItem failed", "id", in.ID, "error", err)
			return errorResult(fmt.Sprintf("failed to delete todo %d: %v", in.ID, err)), nil, nil
		}

		s.logger.Info("deleted todo", "id", in.ID)
		return textResult(fmt.Sprintf("Deleted todo %d", in.ID)), nil, nil
	})

	return nil
}

// UpdateTodoInput defines the input schema for the updateTodoItem tool.
type UpdateTodoInput struct {
	ID        int64 `json:"id" jsonschema:"ID of the todo to update"`
	Completed bool  `json:"completed" jsonschema:"Completion status of the todo"`
}

func (s *Server) registerUpdateTodoItem() error {
	inputSchema, err := jsonschema.For[UpdateTodoInput](nil)
	if err != nil {
		return fmt.Errorf("creating input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "updateTodoItem",
		Description: "Update a todo item's completion status",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in UpdateTodoInput) (*mcp.CallToolResult, any, error) {
		if in.ID <= 0 {
			s.logger.Warn("updateTodoItem invalid id", "id", in.ID)
			return errorResult(fmt.Sprintf("invalid todo id %d: must be a positive integer", in.ID)), nil, nil
		}

		updated, err := s.client.SetCompleted(ctx, in.ID, in.Completed)
		if err != nil {
			s.logger.Warn("updateTodoItem failed", "id", in.ID, "error", err)
			return errorResult(fmt.Sprintf("failed to update todo %d: %v", in.ID, err)), nil, nil
		}

		s.logger.Info("updated todo", "id", updated.ID, "completed", updated.Completed)
		return textResult(fmt.Sprintf("Updated todo %d: completed=%t", updated.ID, updated.Completed)), nil, nil
	})

	return nil
}
