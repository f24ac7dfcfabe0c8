/*
slots.go - Time window registry

PURPOSE:
  Maintains the recurring time windows reservations attach to and
  guarantees that no two active windows overlap.

RULES:
  - Start must be strictly before End (ErrInvalidRange)
  - Active windows are half-open intervals and must not overlap
    (ErrOverlapConflict). Inactive windows are never checked.
  - Changing times or deactivating is blocked while a non-cancelled
    reservation dated today or later uses the window (ErrConflictInUse)
  - Deletion is blocked by any reservation at all, cancelled included,
    so that history keeps its window
  - Committed changes are published to catalog observers
*/
package booking

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewWindow is the input to SlotRegistry.Create.
type NewWindow struct {
	Start  TimeOfDay
	End    TimeOfDay
	Name   string
	Status WindowStatus // empty = active
}

// WindowUpdate is a partial update; nil fields are left unchanged.
type WindowUpdate struct {
	Start  *TimeOfDay
	End    *TimeOfDay
	Name   *string
	Status *WindowStatus
}

// SlotRegistry manages time windows.
type SlotRegistry struct {
	base
	log       *zap.Logger
	observers catalogObservers
}

// List returns all windows ordered by start time.
func (s *SlotRegistry) List(ctx context.Context) ([]Window, error) {
	return s.store.ListWindows(ctx, false)
}

// ListActive returns active windows ordered by start time.
func (s *SlotRegistry) ListActive(ctx context.Context) ([]Window, error) {
	return s.store.ListWindows(ctx, true)
}

// Get returns the window or a NotFound error.
func (s *SlotRegistry) Get(ctx context.Context, id WindowID) (*Window, error) {
	w, err := s.store.GetWindow(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, notFound("time window", id)
	}
	return w, nil
}

// Create registers a window. Status defaults to active.
func (s *SlotRegistry) Create(ctx context.Context, in NewWindow) (*Window, error) {
	if in.Status == "" {
		in.Status = WindowActive
	}
	now := s.now()
	w := Window{
		Start:     in.Start,
		End:       in.End,
		Name:      strings.TrimSpace(in.Name),
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateWindow(w); err != nil {
		return nil, err
	}
	if w.Name == "" {
		w.Name = defaultWindowName(w)
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if w.IsActive() {
			if err := checkOverlap(ctx, tx, w); err != nil {
				return err
			}
		}
		return tx.InsertWindow(ctx, &w)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("time window created",
		zap.Int64("window_id", int64(w.ID)),
		zap.Stringer("start", w.Start),
		zap.Stringer("end", w.End),
		zap.String("status", string(w.Status)))
	s.observers.publish(ctx, CatalogEvent{Type: EventWindowCreated, WindowID: w.ID, At: now})
	return &w, nil
}

// Update applies a partial change to a window.
func (s *SlotRegistry) Update(ctx context.Context, id WindowID, upd WindowUpdate) (*Window, error) {
	var updated Window
	err := s.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetWindow(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("time window", id)
		}

		next := *current
		if upd.Start != nil {
			next.Start = *upd.Start
		}
		if upd.End != nil {
			next.End = *upd.End
		}
		if upd.Name != nil {
			next.Name = strings.TrimSpace(*upd.Name)
			if next.Name == "" {
				next.Name = defaultWindowName(next)
			}
		}
		if upd.Status != nil {
			next.Status = *upd.Status
		}
		if err := validateWindow(next); err != nil {
			return err
		}

		timeChanged := next.Start != current.Start || next.End != current.End
		statusChanged := next.Status != current.Status
		deactivating := current.IsActive() && !next.IsActive()

		if timeChanged || deactivating {
			n, err := tx.CountReservations(ctx, ReservationQuery{}.ForWindow(id).Active().From(s.today()))
			if err != nil {
				return err
			}
			if n > 0 {
				return &InUseError{
					Entity:       "time window",
					ID:           int64(id),
					Reservations: n,
					Hint:         "upcoming reservations must be cancelled before changing times or deactivating",
				}
			}
		}

		if next.IsActive() && (timeChanged || statusChanged) {
			if err := checkOverlap(ctx, tx, next); err != nil {
				return err
			}
		}

		next.UpdatedAt = s.now()
		if err := tx.UpdateWindow(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("time window updated", zap.Int64("window_id", int64(id)))
	s.observers.publish(ctx, CatalogEvent{Type: EventWindowUpdated, WindowID: id, At: updated.UpdatedAt})
	return &updated, nil
}

// Delete removes a window that no reservation has ever referenced.
func (s *SlotRegistry) Delete(ctx context.Context, id WindowID) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		w, err := tx.GetWindow(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return notFound("time window", id)
		}
		n, err := tx.CountReservations(ctx, ReservationQuery{}.ForWindow(id))
		if err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{
				Entity:       "time window",
				ID:           int64(id),
				Reservations: n,
				Hint:         "deactivate it instead",
			}
		}
		return tx.DeleteWindow(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("time window deleted", zap.Int64("window_id", int64(id)))
	s.observers.publish(ctx, CatalogEvent{Type: EventWindowDeleted, WindowID: id, At: s.now()})
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateWindow(w Window) error {
	if !w.Start.Valid() || !w.End.Valid() {
		return fmt.Errorf("%w: time of day out of range", ErrInvalidInput)
	}
	if w.Start >= w.End {
		return fmt.Errorf("%w (%s-%s)", ErrInvalidRange, w.Start, w.End)
	}
	if !w.Status.Valid() {
		return fmt.Errorf("%w: unknown window status %q", ErrInvalidInput, w.Status)
	}
	return nil
}

// checkOverlap rejects w if it collides with another active window.
func checkOverlap(ctx context.Context, r Reader, w Window) error {
	active, err := r.ListWindows(ctx, true)
	if err != nil {
		return err
	}
	for _, existing := range active {
		if existing.ID == w.ID {
			continue
		}
		if w.Overlaps(existing) {
			return &OverlapError{Candidate: w, Existing: existing}
		}
	}
	return nil
}

func defaultWindowName(w Window) string {
	return fmt.Sprintf("%s - %s", w.Start, w.End)
}
