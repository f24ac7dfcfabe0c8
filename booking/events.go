package booking

import (
	"context"
	"time"
)

// =============================================================================
// EVENTS - Published after a ledger or registry mutation commits
// =============================================================================

type EventType string

const (
	EventCreated        EventType = "reservation.created"
	EventStatusChanged  EventType = "reservation.status_changed"
	EventDetailsChanged EventType = "reservation.details_changed"
	EventCancelled      EventType = "reservation.cancelled"
)

// Event describes one committed reservation change.
type Event struct {
	Type        EventType
	Reservation Reservation
	Previous    *Reservation // nil for EventCreated
	Actor       PrincipalID
	At          time.Time
}

// Observer receives committed ledger events. Observers run synchronously
// after commit; they cannot affect the outcome of the operation.
type Observer interface {
	ReservationChanged(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) ReservationChanged(ctx context.Context, e Event) { f(ctx, e) }

// =============================================================================
// CATALOG EVENTS - Courts and time windows
// =============================================================================

const (
	EventResourceCreated EventType = "resource.created"
	EventResourceUpdated EventType = "resource.updated"
	EventResourceDeleted EventType = "resource.deleted"
	EventWindowCreated   EventType = "window.created"
	EventWindowUpdated   EventType = "window.updated"
	EventWindowDeleted   EventType = "window.deleted"
)

// CatalogEvent describes one committed change to a court or a time window.
// Exactly one of ResourceID and WindowID is set.
type CatalogEvent struct {
	Type       EventType
	ResourceID ResourceID
	WindowID   WindowID
	At         time.Time
}

// CatalogObserver receives committed registry events. Any Observer passed to
// NewEngine that also implements CatalogObserver is subscribed to both.
type CatalogObserver interface {
	CatalogChanged(ctx context.Context, e CatalogEvent)
}

type catalogObservers []CatalogObserver

func (c catalogObservers) publish(ctx context.Context, e CatalogEvent) {
	for _, o := range c {
		o.CatalogChanged(ctx, e)
	}
}
