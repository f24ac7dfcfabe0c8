/*
Package booking provides the court reservation core.

PURPOSE:
  Reservation of courts (resources) against fixed recurring time windows
  for specific calendar dates. The package owns every business rule:
  window overlap, reservation validity, uniqueness of a booked slot and the
  cancellation lifecycle. Transport and storage live elsewhere.

KEY CONCEPTS IN THIS FILE (types.go):
  - Resource:    a bookable court with a price and a status
  - Window:      a named, recurring time-of-day interval [Start, End)
  - Reservation: one resource + one window on one date
  - Principal:   the administrator credited with a change

CORE INVARIANTS:
  1. At most one non-cancelled reservation per (resource, window, date)
  2. Active windows never overlap (half-open intervals)
  3. Cancellation is terminal
  4. Total amount is frozen at creation

SEE ALSO:
  - store.go:        persistence contract
  - ledger.go:       reservation lifecycle
  - slots.go:        window registry
  - resources.go:    court registry
  - availability.go: free-slot queries
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ResourceID int64
type WindowID int64
type ReservationID int64
type PrincipalID int64

// =============================================================================
// STATUSES
// =============================================================================

type ResourceStatus string

const (
	ResourceActive      ResourceStatus = "active"
	ResourceMaintenance ResourceStatus = "maintenance"
	ResourceInactive    ResourceStatus = "inactive"
)

func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceActive, ResourceMaintenance, ResourceInactive:
		return true
	}
	return false
}

type WindowStatus string

const (
	WindowActive   WindowStatus = "active"
	WindowInactive WindowStatus = "inactive"
)

func (s WindowStatus) Valid() bool {
	return s == WindowActive || s == WindowInactive
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentUnpaid, PaymentPartial:
		return true
	}
	return false
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// =============================================================================
// RESOURCE
// =============================================================================

// Resource is a bookable court.
type Resource struct {
	ID          ResourceID
	Name        string
	Description string
	Price       decimal.Decimal
	Status      ResourceStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Resource) IsActive() bool { return r.Status == ResourceActive }

// =============================================================================
// WINDOW
// =============================================================================

// Window is a recurring time slot, usable on any date.
type Window struct {
	ID        WindowID
	Start     TimeOfDay
	End       TimeOfDay
	Name      string
	Status    WindowStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w Window) IsActive() bool { return w.Status == WindowActive }

// Overlaps applies the half-open interval test: windows that merely touch
// (08:00-10:00 and 10:00-12:00) do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && w.End > other.Start
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return time.Duration(w.End-w.Start) * time.Second
}

// =============================================================================
// RESERVATION
// =============================================================================

// Reservation claims one resource + one window on one date.
//
// ResourceID is zero when the court was deleted after the reservation was
// cancelled; the row is kept for history.
type Reservation struct {
	ID            ReservationID
	Reference     string
	ResourceID    ResourceID
	WindowID      WindowID
	Date          Date
	CustomerName  string
	CustomerPhone string
	TotalAmount   decimal.Decimal
	PaymentStatus PaymentStatus
	BookingStatus BookingStatus
	Notes         string
	CreatedBy     PrincipalID
	UpdatedBy     PrincipalID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r Reservation) IsCancelled() bool { return r.BookingStatus == BookingCancelled }

// EffectiveStatus is the read-side status: a confirmed reservation whose date
// has passed reads as completed. Stored state is not touched.
func (r Reservation) EffectiveStatus(today Date) BookingStatus {
	if r.BookingStatus == BookingConfirmed && r.Date.Before(today) {
		return BookingCompleted
	}
	return r.BookingStatus
}

// Effective returns a copy carrying the effective status.
func (r Reservation) Effective(today Date) Reservation {
	r.BookingStatus = r.EffectiveStatus(today)
	return r
}

// =============================================================================
// PRINCIPAL
// =============================================================================

// Principal is an administrator credited with reservation changes.
type Principal struct {
	ID           PrincipalID
	Username     string
	DisplayName  string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}
