package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/uminoko/todoflow/internal/todo"
)

// TodoStore defines the store operations the handlers need.
// Following Go best practices: interfaces are defined by the consumer.
type TodoStore interface {
	List(ctx context.Context) ([]todo.Todo, error)
	Create(ctx context.Context, title string) (todo.Todo, error)
	Update(ctx context.Context, id int64, params todo.UpdateParams) (todo.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// todoHandler serves the CRUD endpoints for todo records.
type todoHandler struct {
	store  TodoStore
	logger *slog.Logger
}

// parseID validates a path id as a positive integer.
// Non-numeric values and values <= 0 are both rejected.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// list handles GET /todos.
func (h *todoHandler) list(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing todos", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list todos", "")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

type createRequest struct {
	Title string `json:"title"`
}

// create handles POST /todos.
func (h *todoHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required", "")
		return
	}

	created, err := h.store.Create(r.Context(), req.Title)
	if err != nil {
		if errors.Is(err, todo.ErrTitleRequired) {
			writeError(w, http.StatusBadRequest, "title is required", "")
			return
		}
		h.logger.Error("creating todo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create todo", "")
		return
	}

	writeJSON(w, http.StatusOK, created)
}

type updateRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// update handles PUT /todos/{id}. Only fields present in the body change.
func (h *todoHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id format", "")
		return
	}

	var req updateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title cannot be empty", "")
		return
	}

	updated, err := h.store.Update(r.Context(), id, todo.UpdateParams{
		Title:     req.Title,
		Completed: req.Completed,
	})
	if err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found", "")
			return
		}
		h.logger.Error("updating todo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update todo", "")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// deleteTodo handles DELETE /todos/{id}.
func (h *todoHandler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id format", "")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, todo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found", "")
			return
		}
		h.logger.Error("deleting todo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete todo", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
