package domain

import "errors"

var (
	// ErrNotFound is returned when a route or stop referenced by a caller does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks structurally invalid requests (bad counts, empty stop sets, bad sequences).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition is returned when a lifecycle change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
