/*
errors.go - Centralized error taxonomy for the booking core

PURPOSE:
  All failure kinds in one place. Every business-rule failure is a sentinel
  usable with errors.Is; a few carry context through structured errors that
  unwrap to their sentinel.

ERROR CATEGORIES:
  1. Lookup:      ErrNotFound
  2. Validation:  ErrInvalidRange, ErrInvalidCustomer, ErrInvalidInput,
                  ErrPastDateRejected, ErrInvalidPrincipal
  3. Conflicts:   ErrOverlapConflict, ErrConflictInUse, ErrDuplicateName,
                  ErrSlotTaken, ErrTerminalState
  4. Availability of referenced master data:
                  ErrResourceUnavailable, ErrWindowUnavailable
  5. Storage:     ErrStorageUnavailable (caller-side retry)

Business-rule failures never leave partial writes: they are returned from
inside Store.WithTx, which rolls the transaction back.

SEE ALSO:
  - store.go: Storage adapters translate driver errors into these
  - api/errors.go: Kind -> HTTP status mapping
*/
package booking

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRange        = errors.New("invalid time range: start must be before end")
	ErrOverlapConflict     = errors.New("time window overlaps an active window")
	ErrConflictInUse       = errors.New("in use by existing reservations")
	ErrDuplicateName       = errors.New("name already exists")
	ErrPastDateRejected    = errors.New("reservation date is in the past")
	ErrResourceUnavailable = errors.New("resource is not available for booking")
	ErrWindowUnavailable   = errors.New("time window is not available for booking")
	ErrInvalidCustomer     = errors.New("customer name is required")
	ErrSlotTaken           = errors.New("slot already booked")
	ErrTerminalState       = errors.New("reservation is cancelled")
	ErrInvalidPrincipal    = errors.New("invalid principal")
	ErrInvalidInput        = errors.New("invalid input")

	// ErrStorageUnavailable wraps storage failures unrelated to business rules
	// (driver errors, busy timeouts, cancelled contexts).
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// =============================================================================
// KINDS - Machine-readable outcome tags
// =============================================================================

// Kind is the machine-readable failure tag reported to callers.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidRange        Kind = "invalid_range"
	KindOverlapConflict     Kind = "overlap_conflict"
	KindConflictInUse       Kind = "conflict_in_use"
	KindDuplicateName       Kind = "duplicate_name"
	KindPastDateRejected    Kind = "past_date_rejected"
	KindResourceUnavailable Kind = "resource_unavailable"
	KindWindowUnavailable   Kind = "window_unavailable"
	KindInvalidCustomer     Kind = "invalid_customer"
	KindSlotTaken           Kind = "slot_taken"
	KindTerminalState       Kind = "terminal_state"
	KindInvalidPrincipal    Kind = "invalid_principal"
	KindInvalidInput        Kind = "invalid_input"
	KindStorageUnavailable  Kind = "storage_unavailable"
	KindInternal            Kind = "internal"
)

var kindTable = []struct {
	err  error
	kind Kind
}{
	// storage first: a wrapped driver error may also wrap a context error
	{ErrStorageUnavailable, KindStorageUnavailable},
	{context.DeadlineExceeded, KindStorageUnavailable},
	{context.Canceled, KindStorageUnavailable},
	{ErrNotFound, KindNotFound},
	{ErrInvalidRange, KindInvalidRange},
	{ErrOverlapConflict, KindOverlapConflict},
	{ErrConflictInUse, KindConflictInUse},
	{ErrDuplicateName, KindDuplicateName},
	{ErrPastDateRejected, KindPastDateRejected},
	{ErrResourceUnavailable, KindResourceUnavailable},
	{ErrWindowUnavailable, KindWindowUnavailable},
	{ErrInvalidCustomer, KindInvalidCustomer},
	{ErrSlotTaken, KindSlotTaken},
	{ErrTerminalState, KindTerminalState},
	{ErrInvalidPrincipal, KindInvalidPrincipal},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf classifies err. Unclassified errors are KindInternal; nil is "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// OverlapError reports which active window a candidate collides with.
type OverlapError struct {
	Candidate Window
	Existing  Window
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("time window %s-%s overlaps active window %d (%s %s-%s)",
		e.Candidate.Start, e.Candidate.End,
		e.Existing.ID, e.Existing.Name, e.Existing.Start, e.Existing.End)
}

func (e *OverlapError) Unwrap() error { return ErrOverlapConflict }

// InUseError reports a deletion or modification blocked by reservations.
type InUseError struct {
	Entity       string
	ID           int64
	Reservations int
	Hint         string
}

func (e *InUseError) Error() string {
	msg := fmt.Sprintf("%s %d is referenced by %d reservation(s)", e.Entity, e.ID, e.Reservations)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

func (e *InUseError) Unwrap() error { return ErrConflictInUse }

// SlotTakenError reports a (resource, window, date) uniqueness violation.
// ExistingID is zero when the conflict was detected by the storage constraint.
type SlotTakenError struct {
	ResourceID ResourceID
	WindowID   WindowID
	Date       Date
	ExistingID ReservationID
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot already booked: resource %d, window %d on %s",
		e.ResourceID, e.WindowID, e.Date)
}

func (e *SlotTakenError) Unwrap() error { return ErrSlotTaken }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// StorageError wraps a storage-layer failure so that it classifies as
// KindStorageUnavailable while keeping the cause inspectable.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return KindOf(err) == KindStorageUnavailable
}

// IsClientError returns true for expected business-rule failures.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case "", KindStorageUnavailable, KindInternal:
		return false
	}
	return true
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
