package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by stores and lockers.
// Services translate them into domain errors before they reach a handler.
//
// For invalid input use pkg/domainerrors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrLockHeld     = errors.New("lock held")
)
