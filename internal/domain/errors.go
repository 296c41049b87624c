package domain

import "errors"

var (
	// ErrNotFound covers missing customers, assets, named queries and
	// expired-or-absent auth tokens alike.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest marks client errors in request arguments.
	ErrInvalidRequest = errors.New("invalid request")
)
