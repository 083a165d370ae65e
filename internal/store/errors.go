package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants below wrap it.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g. a second membership for the same user and board).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation or
	// violates a database constraint before being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConflict is returned when an optimistic-concurrency check fails at
	// commit: another writer changed one of the rows between load and commit.
	// The batch is rolled back in full; the caller must re-load and retry.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrTransactionFailed is returned when a transaction fails to begin or
	// commit for reasons other than a concurrency conflict.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Entity-specific "not found" errors

// ErrBoardNotFound indicates that the requested board does not exist.
var ErrBoardNotFound = fmt.Errorf("%w: board", ErrNotFound)

// ErrColumnNotFound indicates that the requested column does not exist.
var ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)

// ErrTaskNotFound indicates that the requested task does not exist.
var ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

// ErrMembershipNotFound indicates that the user holds no membership on the board.
var ErrMembershipNotFound = fmt.Errorf("%w: membership", ErrNotFound)

// ErrUserNotFound indicates that the requested user does not exist.
var ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

// ErrCommentNotFound indicates that the requested comment does not exist.
var ErrCommentNotFound = fmt.Errorf("%w: comment", ErrNotFound)

// ErrMembershipExists indicates that the user already holds a membership on the board.
var ErrMembershipExists = fmt.Errorf("%w: membership", ErrDuplicate)

// IsNotFound checks if the error is any kind of "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
