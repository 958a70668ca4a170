package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store manages todo persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines; row-level
// consistency is delegated to PostgreSQL (last write wins).
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a new Store instance. A nil logger falls back to
// slog.Default().
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

const todoColumns = "id, title, completed, created_at, updated_at"

func scanTodo(row pgx.Row) (Todo, error) {
	var t Todo
	err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// List returns all todo records ordered by id.
func (s *Store) List(ctx context.Context) ([]Todo, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+todoColumns+" FROM todos ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	defer rows.Close()

	todos := make([]Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}

	s.logger.Debug("listed todos", "count", len(todos))
	return todos, nil
}

// Create inserts a new todo with the given title and completed=false.
// Returns ErrTitleRequired when the title is empty or whitespace.
func (s *Store) Create(ctx context.Context, title string) (Todo, error) {
	if strings.TrimSpace(title) == "" {
		return Todo{}, ErrTitleRequired
	}

	row := s.pool.QueryRow(ctx,
		"INSERT INTO todos (title) VALUES ($1) RETURNING "+todoColumns, title)
	t, err := scanTodo(row)
	if err != nil {
		return Todo{}, fmt.Errorf("creating todo: %w", err)
	}

	s.logger.Debug("created todo", "id", t.ID, "title", t.Title)
	return t, nil
}

// Update applies a partial update to the todo with the given id.
// Only non-nil fields of params change; updated_at is always refreshed.
// Returns ErrNotFound when no row matches.
func (s *Store) Update(ctx context.Context, id int64, params UpdateParams) (Todo, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE todos SET
			title = COALESCE($2, title),
			completed = COALESCE($3, completed),
			updated_at = now()
		WHERE id = $1
		RETURNING `+todoColumns,
		id, params.Title, params.Completed)

	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Todo{}, ErrNotFound
		}
		return Todo{}, fmt.Errorf("updating todo %d: %w", id, err)
	}

	s.logger.Debug("updated todo", "id", t.ID)
	return t, nil
}

// Delete removes the todo with the given id.
// Returns ErrNotFound when no row matches.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM todos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted todo", "id", id)
	return nil
}
