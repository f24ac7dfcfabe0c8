/*
engine.go - Assembles the booking services over one Store

PURPOSE:
  Engine is the single entry point the transport layer talks to. It wires
  the registries, the availability engine, the reservation ledger and the
  principal directory to a shared Store, Clock and logger.

CONTROL FLOW:
  transport -> registries (master data)
            -> availability (advisory query)
            -> ledger (authoritative create/mutate, consults registries'
               data inside its own transaction)

EXAMPLE:
  eng := booking.NewEngine(store, booking.Options{Logger: log})
  r, err := eng.Ledger.Create(ctx, booking.NewReservation{...})
*/
package booking

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Options configures an Engine. Zero values are usable.
type Options struct {
	Clock     Clock       // defaults to SystemClock in time.Local
	Logger    *zap.Logger // defaults to a no-op logger
	Observers []Observer // also receive catalog events if they implement CatalogObserver

	// PasswordCost is the bcrypt cost for new principals.
	PasswordCost int
}

// Engine bundles the booking services.
type Engine struct {
	Slots        *SlotRegistry
	Resources    *ResourceRegistry
	Availability *AvailabilityEngine
	Ledger       *Ledger
	Principals   *PrincipalDirectory

	store Store
	clock Clock
}

// NewEngine creates the services over store.
func NewEngine(store Store, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}

	var catalog catalogObservers
	for _, o := range opts.Observers {
		if c, ok := o.(CatalogObserver); ok {
			catalog = append(catalog, c)
		}
	}

	b := base{store: store, clock: opts.Clock}
	return &Engine{
		Slots:        &SlotRegistry{base: b, log: opts.Logger.Named("slots"), observers: catalog},
		Resources:    &ResourceRegistry{base: b, log: opts.Logger.Named("resources"), observers: catalog},
		Availability: &AvailabilityEngine{base: b},
		Ledger: &Ledger{
			base:      b,
			log:       opts.Logger.Named("ledger"),
			observers: append([]Observer(nil), opts.Observers...),
		},
		Principals: &PrincipalDirectory{base: b, cost: opts.PasswordCost, log: opts.Logger.Named("principals")},
		store:      store,
		clock:      opts.Clock,
	}
}

// Store returns the underlying store, for read-only projections.
func (e *Engine) Store() Store { return e.store }

// Clock returns the engine clock.
func (e *Engine) Clock() Clock { return e.clock }

// Today returns the engine's current calendar date.
func (e *Engine) Today() Date { return Today(e.clock) }

// =============================================================================
// SHARED PLUMBING
// =============================================================================

type base struct {
	store Store
	clock Clock
}

func (b base) now() time.Time { return b.clock.Now().UTC() }
func (b base) today() Date    { return Today(b.clock) }

// requirePrincipal resolves id to an active principal.
func requirePrincipal(ctx context.Context, r Reader, id PrincipalID) (*Principal, error) {
	if id <= 0 {
		return nil, ErrInvalidPrincipal
	}
	p, err := r.GetPrincipal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Active {
		return nil, ErrInvalidPrincipal
	}
	return p, nil
}
