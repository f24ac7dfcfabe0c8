/*
ledger.go - Reservation ledger

PURPOSE:
  The ledger is the only component that creates or mutates reservations.
  It is authoritative: every precondition is re-checked inside the same
  transaction as the write, and the storage uniqueness constraint backs
  the in-transaction check against races.

LIFECYCLE:
  create -> confirmed -> completed (explicitly, or read-side once the date passes)
                      -> cancelled (terminal)

  Reservations are never deleted. A cancelled reservation frees its slot
  and keeps its row for history.

CREATE CHECK ORDER:
  1. principal exists and is active      ErrInvalidPrincipal
  2. date is today or later              ErrPastDateRejected
  3. resource exists and is active       ErrResourceUnavailable
  4. window exists and is active         ErrWindowUnavailable
  5. customer name is non-blank          ErrInvalidCustomer
  6. payment status and amount are valid ErrInvalidInput
  7. no non-cancelled claim on the slot  ErrSlotTaken

SEE ALSO:
  - events.go: observers notified after commit
  - availability.go: advisory free-slot view
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NewReservation is the input to Ledger.Create.
type NewReservation struct {
	ResourceID    ResourceID
	WindowID      WindowID
	Date          Date
	CustomerName  string
	CustomerPhone string

	// TotalAmount defaults to the resource price when zero.
	TotalAmount decimal.Decimal

	PaymentStatus PaymentStatus // empty = unpaid
	Notes         string
	CreatedBy     PrincipalID
}

// StatusUpdate changes payment and/or booking status; nil fields are kept.
type StatusUpdate struct {
	PaymentStatus *PaymentStatus
	BookingStatus *BookingStatus
}

// DetailsUpdate changes customer details; nil fields are kept.
type DetailsUpdate struct {
	CustomerName  *string
	CustomerPhone *string
	Notes         *string
}

// HistoryFilter selects reservations for History. Status matches the stored
// booking status.
type HistoryFilter struct {
	ResourceID ResourceID
	WindowID   WindowID
	Status     BookingStatus
	DateFrom   Date
	DateTo     Date
	Limit      int // 0 = no limit
	Offset     int
}

// HistoryPage is one page of History plus the total filtered count.
type HistoryPage struct {
	Items  []Reservation
	Total  int
	Limit  int
	Offset int
}

// Ledger creates and mutates reservations.
type Ledger struct {
	base
	log       *zap.Logger
	observers []Observer
}

// Subscribe registers an observer for committed events.
// Not safe for use concurrently with mutations; call during wiring.
func (l *Ledger) Subscribe(o Observer) {
	l.observers = append(l.observers, o)
}

// =============================================================================
// CREATE
// =============================================================================

// Create books a slot. The slot check and the insert share one transaction.
func (l *Ledger) Create(ctx context.Context, in NewReservation) (*Reservation, error) {
	today := l.today()
	var created Reservation

	err := l.store.WithTx(ctx, func(tx Tx) error {
		if _, err := requirePrincipal(ctx, tx, in.CreatedBy); err != nil {
			return err
		}
		if in.Date.IsZero() {
			return fmt.Errorf("%w: reservation date is required", ErrInvalidInput)
		}
		if in.Date.Before(today) {
			return fmt.Errorf("%w: %s is before %s", ErrPastDateRejected, in.Date, today)
		}

		res, err := tx.GetResource(ctx, in.ResourceID)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("%w: resource %d does not exist", ErrResourceUnavailable, in.ResourceID)
		}
		if !res.IsActive() {
			return fmt.Errorf("%w: resource %d is %s", ErrResourceUnavailable, res.ID, res.Status)
		}

		win, err := tx.GetWindow(ctx, in.WindowID)
		if err != nil {
			return err
		}
		if win == nil {
			return fmt.Errorf("%w: time window %d does not exist", ErrWindowUnavailable, in.WindowID)
		}
		if !win.IsActive() {
			return fmt.Errorf("%w: time window %d is inactive", ErrWindowUnavailable, win.ID)
		}

		name := strings.TrimSpace(in.CustomerName)
		if name == "" {
			return ErrInvalidCustomer
		}
		payment := in.PaymentStatus
		if payment == "" {
			payment = PaymentUnpaid
		}
		if !payment.Valid() {
			return fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, payment)
		}
		if in.TotalAmount.IsNegative() {
			return fmt.Errorf("%w: total amount must not be negative", ErrInvalidInput)
		}
		amount := in.TotalAmount
		if amount.IsZero() {
			amount = res.Price
		}

		existing, err := tx.FindReservations(ctx, ReservationQuery{}.
			ForResource(res.ID).ForWindow(win.ID).On(in.Date).Active().Page(1, 0))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return &SlotTakenError{ResourceID: res.ID, WindowID: win.ID, Date: in.Date, ExistingID: existing[0].ID}
		}

		now := l.now()
		created = Reservation{
			Reference:     uuid.NewString(),
			ResourceID:    res.ID,
			WindowID:      win.ID,
			Date:          in.Date,
			CustomerName:  name,
			CustomerPhone: strings.TrimSpace(in.CustomerPhone),
			TotalAmount:   amount,
			PaymentStatus: payment,
			BookingStatus: BookingConfirmed,
			Notes:         strings.TrimSpace(in.Notes),
			CreatedBy:     in.CreatedBy,
			UpdatedBy:     in.CreatedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertReservation(ctx, &created); err != nil {
			// lost a race the in-transaction check could not see
			if errors.Is(err, ErrSlotTaken) {
				return &SlotTakenError{ResourceID: res.ID, WindowID: win.ID, Date: in.Date}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("reservation created",
		zap.Int64("reservation_id", int64(created.ID)),
		zap.String("reference", created.Reference),
		zap.Int64("resource_id", int64(created.ResourceID)),
		zap.Int64("window_id", int64(created.WindowID)),
		zap.Stringer("date", created.Date),
		zap.Int64("by", int64(in.CreatedBy)))
	l.publish(ctx, Event{Type: EventCreated, Reservation: created, Actor: in.CreatedBy, At: created.CreatedAt})

	out := created.Effective(today)
	return &out, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// UpdateStatus changes payment and/or booking status. Any change to a
// cancelled reservation fails with ErrTerminalState.
func (l *Ledger) UpdateStatus(ctx context.Context, id ReservationID, upd StatusUpdate, by PrincipalID) (*Reservation, error) {
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, *upd.PaymentStatus)
	}
	if upd.BookingStatus != nil && !upd.BookingStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, *upd.BookingStatus)
	}

	eventType := EventStatusChanged
	if upd.BookingStatus != nil && *upd.BookingStatus == BookingCancelled {
		eventType = EventCancelled
	}
	return l.mutate(ctx, id, by, eventType, func(r *Reservation) error {
		if r.IsCancelled() {
			return fmt.Errorf("%w: reservation %d", ErrTerminalState, r.ID)
		}
		if upd.PaymentStatus != nil {
			r.PaymentStatus = *upd.PaymentStatus
		}
		if upd.BookingStatus != nil {
			r.BookingStatus = *upd.BookingStatus
		}
		return nil
	})
}

// UpdateDetails changes customer details. Allowed in every status.
func (l *Ledger) UpdateDetails(ctx context.Context, id ReservationID, upd DetailsUpdate, by PrincipalID) (*Reservation, error) {
	return l.mutate(ctx, id, by, EventDetailsChanged, func(r *Reservation) error {
		if upd.CustomerName != nil {
			name := strings.TrimSpace(*upd.CustomerName)
			if name == "" {
				return ErrInvalidCustomer
			}
			r.CustomerName = name
		}
		if upd.CustomerPhone != nil {
			r.CustomerPhone = strings.TrimSpace(*upd.CustomerPhone)
		}
		if upd.Notes != nil {
			r.Notes = strings.TrimSpace(*upd.Notes)
		}
		return nil
	})
}

// Cancel frees the reservation's slot. Cancelling an already cancelled
// reservation succeeds without writing.
func (l *Ledger) Cancel(ctx context.Context, id ReservationID, by PrincipalID) (*Reservation, error) {
	return l.mutate(ctx, id, by, EventCancelled, func(r *Reservation) error {
		if r.IsCancelled() {
			return errUnchanged
		}
		r.BookingStatus = BookingCancelled
		return nil
	})
}

// errUnchanged makes mutate skip the write and report success.
var errUnchanged = errors.New("unchanged")

// mutate loads, changes and stores one reservation in a transaction, then
// publishes the event.
func (l *Ledger) mutate(ctx context.Context, id ReservationID, by PrincipalID, eventType EventType, change func(*Reservation) error) (*Reservation, error) {
	var before, after Reservation
	unchanged := false

	err := l.store.WithTx(ctx, func(tx Tx) error {
		if _, err := requirePrincipal(ctx, tx, by); err != nil {
			return err
		}
		current, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("reservation", id)
		}
		before = *current
		after = *current

		if err := change(&after); err != nil {
			if errors.Is(err, errUnchanged) {
				unchanged = true
				return nil
			}
			return err
		}
		after.UpdatedBy = by
		after.UpdatedAt = l.now()
		return tx.UpdateReservation(ctx, after)
	})
	if err != nil {
		return nil, err
	}

	today := l.today()
	if unchanged {
		out := before.Effective(today)
		return &out, nil
	}

	l.log.Info("reservation updated",
		zap.Int64("reservation_id", int64(id)),
		zap.String("event", string(eventType)),
		zap.String("booking_status", string(after.BookingStatus)),
		zap.String("payment_status", string(after.PaymentStatus)),
		zap.Int64("by", int64(by)))
	l.publish(ctx, Event{Type: eventType, Reservation: after, Previous: &before, Actor: by, At: after.UpdatedAt})

	out := after.Effective(today)
	return &out, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns the reservation with its effective status.
func (l *Ledger) Get(ctx context.Context, id ReservationID) (*Reservation, error) {
	r, err := l.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound("reservation", id)
	}
	out := r.Effective(l.today())
	return &out, nil
}

// GetByReference looks a reservation up by its public reference.
func (l *Ledger) GetByReference(ctx context.Context, ref string) (*Reservation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, notFound("reservation", ref)
	}
	r, err := l.store.GetReservationByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound("reservation", ref)
	}
	out := r.Effective(l.today())
	return &out, nil
}

// History lists reservations newest date first, then by window start.
func (l *Ledger) History(ctx context.Context, f HistoryFilter) (*HistoryPage, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidInput)
	}
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateFrom.After(f.DateTo) {
		return nil, fmt.Errorf("%w: date_from is after date_to", ErrInvalidInput)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, f.Status)
	}

	q := ReservationQuery{
		ResourceID: f.ResourceID,
		WindowID:   f.WindowID,
		DateFrom:   f.DateFrom,
		DateTo:     f.DateTo,
	}
	if f.Status != "" {
		q = q.WithStatus(f.Status)
	}

	total, err := l.store.CountReservations(ctx, q)
	if err != nil {
		return nil, err
	}
	items, err := l.store.FindReservations(ctx, q.Page(f.Limit, f.Offset))
	if err != nil {
		return nil, err
	}

	today := l.today()
	for i := range items {
		items[i] = items[i].Effective(today)
	}
	return &HistoryPage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (l *Ledger) publish(ctx context.Context, e Event) {
	for _, o := range l.observers {
		o.ReservationChanged(ctx, e)
	}
}
