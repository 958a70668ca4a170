package todo

import "errors"

var (
	// ErrNotFound indicates no todo exists with the requested id.
	ErrNotFound = errors.New("todo not found")

	// ErrTitleRequired indicates a create was attempted without a title.
	ErrTitleRequired = errors.New("title is required")
)
