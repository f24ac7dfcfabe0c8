package booking

import "context"

// =============================================================================
// AVAILABILITY - Advisory free-slot queries
// =============================================================================
//
// Availability answers are a snapshot of committed state. They are never
// binding: the ledger re-checks uniqueness atomically on Create.

// SlotAvailability is one active window and whether it is free.
type SlotAvailability struct {
	Window      Window
	IsAvailable bool
}

// ResourceAvailability is the per-window view of one resource on one date.
type ResourceAvailability struct {
	Resource Resource
	Date     Date
	Slots    []SlotAvailability
	Free     int
}

// AvailabilityEngine computes free slots.
type AvailabilityEngine struct {
	base
}

// ListAvailable returns every active window for the resource on date, in
// start order, flagged with whether it can still be booked.
func (a *AvailabilityEngine) ListAvailable(ctx context.Context, resourceID ResourceID, date Date) ([]SlotAvailability, error) {
	if date.IsZero() {
		return nil, ErrInvalidInput
	}
	res, err := a.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, notFound("resource", resourceID)
	}
	windows, err := a.store.ListWindows(ctx, true)
	if err != nil {
		return nil, err
	}
	booked, err := a.bookedWindows(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}
	return flagWindows(windows, booked[resourceID]), nil
}

// CountAvailable returns active windows minus non-cancelled reservations for
// the resource on date, never below zero.
func (a *AvailabilityEngine) CountAvailable(ctx context.Context, resourceID ResourceID, date Date) (int, error) {
	if date.IsZero() {
		return 0, ErrInvalidInput
	}
	res, err := a.store.GetResource(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, notFound("resource", resourceID)
	}
	windows, err := a.store.ListWindows(ctx, true)
	if err != nil {
		return 0, err
	}
	taken, err := a.store.CountReservations(ctx, ReservationQuery{}.ForResource(resourceID).On(date).Active())
	if err != nil {
		return 0, err
	}
	return max(len(windows)-taken, 0), nil
}

// Grid returns availability of every active resource on date.
func (a *AvailabilityEngine) Grid(ctx context.Context, date Date) ([]ResourceAvailability, error) {
	if date.IsZero() {
		return nil, ErrInvalidInput
	}
	resources, err := a.store.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	windows, err := a.store.ListWindows(ctx, true)
	if err != nil {
		return nil, err
	}
	booked, err := a.bookedWindows(ctx, 0, date)
	if err != nil {
		return nil, err
	}

	grid := make([]ResourceAvailability, 0, len(resources))
	for _, res := range resources {
		if !res.IsActive() {
			continue
		}
		slots := flagWindows(windows, booked[res.ID])
		free := 0
		for _, s := range slots {
			if s.IsAvailable {
				free++
			}
		}
		grid = append(grid, ResourceAvailability{Resource: res, Date: date, Slots: slots, Free: free})
	}
	return grid, nil
}

// bookedWindows indexes non-cancelled reservations on date by resource and
// window. resourceID 0 means all resources.
func (a *AvailabilityEngine) bookedWindows(ctx context.Context, resourceID ResourceID, date Date) (map[ResourceID]map[WindowID]bool, error) {
	rs, err := a.store.FindReservations(ctx, ReservationQuery{ResourceID: resourceID}.On(date).Active())
	if err != nil {
		return nil, err
	}
	booked := make(map[ResourceID]map[WindowID]bool)
	for _, r := range rs {
		if booked[r.ResourceID] == nil {
			booked[r.ResourceID] = make(map[WindowID]bool)
		}
		booked[r.ResourceID][r.WindowID] = true
	}
	return booked, nil
}

func flagWindows(windows []Window, booked map[WindowID]bool) []SlotAvailability {
	out := make([]SlotAvailability, len(windows))
	for i, w := range windows {
		out[i] = SlotAvailability{Window: w, IsAvailable: !booked[w.ID]}
	}
	return out
}
