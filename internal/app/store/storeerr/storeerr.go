// Package storeerr holds the sentinel errors shared by every store backend,
// so callers can branch on outcomes without knowing the driver.
package storeerr

import "errors"

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("store: duplicate")

	// ErrActive is returned by Admit when the membership is already active.
	ErrActive = errors.New("store: membership already active")
	// ErrRemoved is returned by Admit when a removed membership exists and
	// reactivation was not requested.
	ErrRemoved = errors.New("store: membership removed")
	// ErrInactive is returned by Deactivate when the membership is already removed.
	ErrInactive = errors.New("store: membership already removed")
	// ErrLimitReached is returned by Admit when the room is at capacity.
	ErrLimitReached = errors.New("store: member count limit reached")
)
