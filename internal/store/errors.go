// Package store provides Postgres-backed persistence for users, tasks,
// conversations, and messages.
package store

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist or is not
	// visible to the requesting owner.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique constraint violation, e.g. registering
	// an email that is already in use.
	ErrConflict = errors.New("already exists")
)
