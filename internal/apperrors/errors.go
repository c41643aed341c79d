// Package apperrors defines the error taxonomy shared by the ledger core.
//
// Errors fall into three categories, each with a sentinel that callers can
// match with errors.Is:
//
//   - ErrValidation: bad input, rejected before any state changes
//   - ErrStorage: the persistence layer failed or returned garbage
//   - ErrInvariant: an operation would break a data-integrity rule
//
// Typed errors (SplitMismatchError, StorageError, InvariantError) carry the
// structured detail and unwrap to their category sentinel.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/mkale/splitledger/internal/money"
)

// Category sentinels.
var (
	ErrValidation = errors.New("validation error")
	ErrStorage    = errors.New("storage error")
	ErrInvariant  = errors.New("invariant violation")
)

// Validation sentinels. All unwrap to ErrValidation.
var (
	ErrSelfOnlySplit       = fmt.Errorf("%w: cannot split a bill with only yourself", ErrValidation)
	ErrMissingParticipants = fmt.Errorf("%w: at least one participant is required", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrNameTooShort        = fmt.Errorf("%w: name is too short", ErrValidation)
	ErrNameTooLong         = fmt.Errorf("%w: name is too long", ErrValidation)
	ErrNoteTooLong         = fmt.Errorf("%w: note exceeds 100 words", ErrValidation)
	ErrDuplicate           = fmt.Errorf("%w: resource already exists", ErrValidation)
)

// ErrNotFound indicates that a requested record could not be found.
var ErrNotFound = errors.New("resource not found")

// SplitMismatchError reports a custom split whose shares do not reconcile
// with the bill total. It names the delta so the caller can show it.
type SplitMismatchError struct {
	Supplied money.Money // sum of the supplied shares
	Expected money.Money // the bill total
}

func (e *SplitMismatchError) Error() string {
	delta := e.Supplied.Sub(e.Expected)
	return fmt.Sprintf("split mismatch: shares sum to %s, bill total is %s (off by %s)",
		e.Supplied, e.Expected, delta)
}

// Unwrap makes errors.Is(err, ErrValidation) true for mismatches.
func (e *SplitMismatchError) Unwrap() error { return ErrValidation }

// StorageFailure classifies what went wrong in the persistence layer.
type StorageFailure string

const (
	SerializationFailure StorageFailure = "serialization"
	Unavailable          StorageFailure = "unavailable"
	CorruptCollection    StorageFailure = "corrupt collection"
)

// StorageError wraps a persistence failure with the operation and key that
// triggered it.
type StorageError struct {
	Op   string // e.g. "load bills", "save groups"
	Kind StorageFailure
	Err  error // underlying cause, may be nil for corrupt payloads
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap reports both the category sentinel and the underlying cause.
func (e *StorageError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrStorage, e.Err}
	}
	return []error{ErrStorage}
}

// InvariantError reports an operation that was rejected because it would
// break referential integrity, e.g. removing a group member who still
// appears on bills.
type InvariantError struct {
	Op     string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
