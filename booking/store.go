/*
store.go - Persistence contract for the booking core

PURPOSE:
  Defines the interface between the domain logic and the database.
  Implementations translate their native failures into the error taxonomy
  in errors.go so the core never sees driver types.

KEY INTERFACES:
  Reader: lookups and filtered queries (missing rows return nil, nil)
  Writer: inserts, updates and deletes of master data and reservations
  Tx:     Reader + Writer bound to one transaction
  Store:  Reader over committed state + WithTx

TRANSACTIONS:
  Every mutating operation runs its precondition checks and its write
  through the Tx passed to WithTx. If fn returns an error the transaction
  is rolled back; otherwise it is committed. Reads outside WithTx observe
  the latest committed state.

STORAGE CONSTRAINTS:
  Implementations must enforce, independently of the core:
  - InsertReservation/UpdateReservation: ErrSlotTaken when a second
    non-cancelled reservation would claim the same (resource, window, date)
  - InsertResource/UpdateResource, InsertPrincipal: ErrDuplicateName
  - DeleteWindow: ErrConflictInUse while any reservation references it
  - DeleteResource: clears ResourceID on remaining (cancelled) reservations

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (production)
  - booking/store/memory.go: In-memory for tests and demos

SEE ALSO:
  - query.go: ReservationQuery filter
*/
package booking

import "context"

// =============================================================================
// READER
// =============================================================================

type Reader interface {
	GetResource(ctx context.Context, id ResourceID) (*Resource, error)
	GetResourceByName(ctx context.Context, name string) (*Resource, error)
	// ListResources returns resources ordered by name.
	ListResources(ctx context.Context) ([]Resource, error)

	GetWindow(ctx context.Context, id WindowID) (*Window, error)
	// ListWindows returns windows ordered by start time, then id.
	ListWindows(ctx context.Context, activeOnly bool) ([]Window, error)

	GetReservation(ctx context.Context, id ReservationID) (*Reservation, error)
	GetReservationByReference(ctx context.Context, ref string) (*Reservation, error)
	// FindReservations returns matches ordered by date desc, window start asc, id asc.
	FindReservations(ctx context.Context, q ReservationQuery) ([]Reservation, error)
	// CountReservations ignores q.Limit and q.Offset.
	CountReservations(ctx context.Context, q ReservationQuery) (int, error)

	GetPrincipal(ctx context.Context, id PrincipalID) (*Principal, error)
	GetPrincipalByUsername(ctx context.Context, username string) (*Principal, error)
}

// =============================================================================
// WRITER
// =============================================================================

// Writer mutates state. Insert methods assign the generated ID to the argument.
type Writer interface {
	InsertResource(ctx context.Context, r *Resource) error
	UpdateResource(ctx context.Context, r Resource) error
	DeleteResource(ctx context.Context, id ResourceID) error

	InsertWindow(ctx context.Context, w *Window) error
	UpdateWindow(ctx context.Context, w Window) error
	DeleteWindow(ctx context.Context, id WindowID) error

	InsertReservation(ctx context.Context, r *Reservation) error
	UpdateReservation(ctx context.Context, r Reservation) error

	InsertPrincipal(ctx context.Context, p *Principal) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// Tx is the view handed to WithTx callbacks.
type Tx interface {
	Reader
	Writer
}

// Store is the full persistence contract.
type Store interface {
	Reader

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
