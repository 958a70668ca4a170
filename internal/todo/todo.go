// Package todo defines the todo record and its PostgreSQL-backed store.
package todo

import "time"

// Todo is the sole persisted entity: a flat task record.
// IDs are store-assigned and always positive once assigned.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateParams carries the optional fields of a partial update.
// A nil field leaves the stored value unchanged.
type UpdateParams struct {
	Title     *string
	Completed *bool
}
