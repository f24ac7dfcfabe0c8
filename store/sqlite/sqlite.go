/*
Package sqlite provides a SQLite-backed implementation of booking.Store.

PURPOSE:
  Persists courts, time windows, reservations and principals, and enforces
  the storage-level constraints the booking core relies on.

KEY TABLES:
  principals:   administrators (username unique)
  resources:    courts (name unique)
  windows:      recurring time-of-day intervals, seconds since midnight
  reservations: one row per booking, never deleted

INDEXES:
  - idx_reservations_active_slot: partial UNIQUE index on
    (resource_id, window_id, date) WHERE booking_status <> 'cancelled'.
    This is the final authority on double-booking: two transactions that
    both pass the in-transaction check cannot both commit.
  - idx_reservations_date / idx_reservations_window: history and
    availability queries

FOREIGN KEYS:
  - reservations.window_id   ON DELETE RESTRICT (history keeps its window)
  - reservations.resource_id ON DELETE SET NULL (cancelled history survives
    deletion of its court)

CONCURRENCY:
  Writers serialize through an in-process mutex and BEGIN IMMEDIATE
  (_txlock=immediate), so a transaction holds the write lock from its first
  read. Reads outside transactions go straight to the pool and see the latest
  committed state. Busy timeouts surface as booking.ErrStorageUnavailable.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/booking.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := booking.NewEngine(store, booking.Options{})

MIGRATION:
  Schema is auto-migrated on Open(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - booking/store.go: Interface definitions
  - booking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// Options tunes the connection.
type Options struct {
	// BusyTimeout bounds how long a writer waits for the database lock.
	BusyTimeout time.Duration
	// MaxOpenConns caps the pool. In-memory databases always use one
	// connection, since each connection would get its own database.
	MaxOpenConns int
}

// Store implements booking.Store using SQLite.
type Store struct {
	reader
	db *sql.DB
	mu sync.Mutex // serializes writers in this process
}

var _ booking.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return Open(dbPath, Options{})
}

// Open creates a store with explicit options.
func Open(dbPath string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", strconv.FormatInt(opts.BusyTimeout.Milliseconds(), 10))
	params.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite3", dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if isMemory(dbPath) {
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	store := &Store{reader: reader{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return booking.StorageError("ping", err)
	}
	return nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS principals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'maintenance', 'inactive')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS windows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_seconds INTEGER NOT NULL,
		end_seconds INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'inactive')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_seconds < end_seconds)
	);

	CREATE INDEX IF NOT EXISTS idx_windows_start
		ON windows(start_seconds);

	CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reference TEXT NOT NULL UNIQUE,
		resource_id INTEGER REFERENCES resources(id) ON DELETE SET NULL,
		window_id INTEGER NOT NULL REFERENCES windows(id) ON DELETE RESTRICT,
		date TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		customer_phone TEXT NOT NULL DEFAULT '',
		total_amount TEXT NOT NULL,
		payment_status TEXT NOT NULL
			CHECK (payment_status IN ('paid', 'unpaid', 'partial')),
		booking_status TEXT NOT NULL
			CHECK (booking_status IN ('confirmed', 'cancelled', 'completed')),
		notes TEXT NOT NULL DEFAULT '',
		created_by INTEGER NOT NULL REFERENCES principals(id),
		updated_by INTEGER NOT NULL REFERENCES principals(id),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- No two non-cancelled reservations may claim the same slot
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_active_slot
		ON reservations(resource_id, window_id, date)
		WHERE booking_status <> 'cancelled';

	CREATE INDEX IF NOT EXISTS idx_reservations_date
		ON reservations(date);
	CREATE INDEX IF NOT EXISTS idx_reservations_window
		ON reservations(window_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (booking.Store interface)
// =============================================================================

// WithTx executes a function within a database transaction.
// Every read and write inside fn goes through the same *sql.Tx.
func (s *Store) WithTx(ctx context.Context, fn func(booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate("begin transaction", err)
	}
	defer sqlTx.Rollback()

	view := &txView{reader: reader{q: sqlTx}, writer: writer{q: sqlTx}}
	if err := fn(view); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return translate("commit", err)
	}
	return nil
}

type txView struct {
	reader
	writer
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ERROR TRANSLATION
// =============================================================================

// translate maps driver errors onto the booking error taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return booking.StorageError(op, err)
	}

	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch {
		case sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			if isSlotConstraint(err) {
				return fmt.Errorf("%s: %w", op, booking.ErrSlotTaken)
			}
			return fmt.Errorf("%s: %w", op, booking.ErrDuplicateName)
		case sqlErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w", op, booking.ErrConflictInUse)
		case sqlErr.ExtendedCode == sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%s: %w: %v", op, booking.ErrInvalidInput, err)
		}
	}
	return booking.StorageError(op, err)
}

// isSlotConstraint reports whether a UNIQUE failure came from the active-slot
// index rather than a name or reference column.
func isSlotConstraint(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "reservations.resource_id") ||
		strings.Contains(msg, "idx_reservations_active_slot")
}

// =============================================================================
// HELPERS
// =============================================================================

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
