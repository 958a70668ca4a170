// Package todoclient is the outbound HTTP client for the todo CRUD API.
//
// The bridge's tools use it to forward tool invocations to the API service.
// Every call carries a bounded timeout so a stalled API cannot pin bridge
// resources indefinitely.
package todoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/uminoko/todoflow/internal/todo"
)

// ErrNotFound indicates the API reported no todo with the requested id.
var ErrNotFound = errors.New("todo not found")

// Client calls the todo CRUD API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New creates a Client for the API at baseURL (e.g. "http://localhost:8080").
// timeout bounds each call; zero falls back to 10 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type apiError struct {
	Error string `json:"error"`
}

// do executes a request and decodes the JSON response into out (when non-nil).
// Non-2xx statuses become errors; 404 maps to ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling todo API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("todo API returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("todo API returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Create adds a new todo with the given title.
func (c *Client) Create(ctx context.Context, title string) (todo.Todo, error) {
	var created todo.Todo
	err := c.do(ctx, http.MethodPost, "/todos", map[string]string{"title": title}, &created)
	if err != nil {
		return todo.Todo{}, err
	}
	return created, nil
}

// SetCompleted updates only the completed flag of the todo with the given id.
func (c *Client) SetCompleted(ctx context.Context, id int64, completed bool) (todo.Todo, error) {
	var updated todo.Todo
	path := fmt.Sprintf("/todos/%d", id)
	err := c.do(ctx, http.MethodPut, path, map[string]bool{"completed": completed}, &updated)
	if err != nil {
		return todo.Todo{}, err
	}
	return updated, nil
}

// Delete removes the todo with the given id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/todos/%d", id), nil, nil)
}
