package domain

import "errors"

// Sentinel errors returned by the store. Services translate them into
// application errors.
var (
	ErrNotFound   = errors.New("not found")
	ErrRosterFull = errors.New("roster full")
	ErrConflict   = errors.New("precondition failed")
)
