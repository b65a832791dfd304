package storage

import "errors"

// Storage errors shared by all record store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Receipts and items are append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyUnlocked is returned when marking an asset unlocked twice.
	// Freeze states transition only forward.
	ErrAlreadyUnlocked = errors.New("asset already unlocked")
)
