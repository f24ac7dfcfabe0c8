package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fthliqml/badminton-booking-system-api/booking"
	"github.com/fthliqml/badminton-booking-system-api/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var now = time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newEngine(s booking.Store) *booking.Engine {
	return booking.NewEngine(s, booking.Options{
		Clock:        booking.ClockFunc(func() time.Time { return now }),
		PasswordCost: bcrypt.MinCost,
	})
}

type seeded struct {
	admin  booking.PrincipalID
	court  booking.ResourceID
	window booking.WindowID
}

func seed(t *testing.T, eng *booking.Engine) seeded {
	t.Helper()
	ctx := context.Background()
	p, err := eng.Principals.Register(ctx, "admin", "Admin", "admin123")
	require.NoError(t, err)
	r, err := eng.Resources.Create(ctx, booking.NewResource{Name: "Court1", Price: decimal.RequireFromString("50000.50")})
	require.NoError(t, err)
	w, err := eng.Slots.Create(ctx, booking.NewWindow{Start: booking.NewTimeOfDay(8, 0), End: booking.NewTimeOfDay(10, 0)})
	require.NoError(t, err)
	return seeded{admin: p.ID, court: r.ID, window: w.ID}
}

// =============================================================================
// SCHEMA
// =============================================================================

func TestStore_ReopenKeepsData(t *testing.T) {
	// GIVEN: A file database with seeded data
	// WHEN: It is closed and opened again (migration runs twice)
	// THEN: Data and decimal precision survive

	path := filepath.Join(t.TempDir(), "booking.db")
	ctx := context.Background()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	ids := seed(t, newEngine(first))
	require.NoError(t, first.Close())

	second := newTestStore(t, path)
	res, err := second.GetResource(ctx, ids.court)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "50000.5", res.Price.String())

	win, err := second.GetWindow(ctx, ids.window)
	require.NoError(t, err)
	require.NotNil(t, win)
	assert.Equal(t, "08:00", win.Start.String())
	assert.Equal(t, "10:00", win.End.String())
}

func TestStore_RoundTripReservation(t *testing.T) {
	s := newTestStore(t, ":memory:")
	eng := newEngine(s)
	ids := seed(t, eng)
	ctx := context.Background()

	created, err := eng.Ledger.Create(ctx, booking.NewReservation{
		ResourceID:    ids.court,
		WindowID:      ids.window,
		Date:          booking.MustParseDate("2025-06-12"),
		CustomerName:  "Alice",
		CustomerPhone: "0812",
		PaymentStatus: booking.PaymentPaid,
		Notes:         "doubles",
		CreatedBy:     ids.admin,
	})
	require.NoError(t, err)

	got, err := s.GetReservationByReference(ctx, created.Reference)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "2025-06-12", got.Date.String())
	assert.Equal(t, "Alice", got.CustomerName)
	assert.Equal(t, "0812", got.CustomerPhone)
	assert.Equal(t, "doubles", got.Notes)
	assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("50000.50")))
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestStore_MissingRowsReturnNil(t *testing.T) {
	s := newTestStore(t, ":memory:")
	ctx := context.Background()

	r, err := s.GetReservation(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, r)

	w, err := s.GetWindow(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, w)
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

func TestStore_UniqueIndexIsFinalAuthority(t *testing.T) {
	// GIVEN: A confirmed reservation
	// WHEN: A raw insert for the same slot bypasses the ledger's check
	// THEN: The partial unique index rejects it as ErrSlotTaken

	s := newTestStore(t, ":memory:")
	eng := newEngine(s)
	ids := seed(t, eng)
	ctx := context.Background()
	date := booking.MustParseDate("2025-06-11")

	_, err := eng.Ledger.Create(ctx, booking.NewReservation{
		ResourceID: ids.court, WindowID: ids.window, Date: date, CustomerName: "A", CreatedBy: ids.admin,
	})
	require.NoError(t, err)

	raw := func(ref string, status booking.BookingStatus) error {
		return s.WithTx(ctx, func(tx booking.Tx) error {
			r := booking.Reservation{
				Reference: ref, ResourceID: ids.court, WindowID: ids.window, Date: date,
				CustomerName: "B", TotalAmount: decimal.Zero,
				PaymentStatus: booking.PaymentUnpaid, BookingStatus: status,
				CreatedBy: ids.admin, UpdatedBy: ids.admin, CreatedAt: now, UpdatedAt: now,
			}
			return tx.InsertReservation(ctx, &r)
		})
	}

	err = raw("raw-1", booking.BookingConfirmed)
	assert.ErrorIs(t, err, booking.ErrSlotTaken)
	assert.NoError(t, raw("raw-2", booking.BookingCancelled))
	assert.ErrorIs(t, raw("raw-2", booking.BookingCancelled), booking.ErrDuplicateName, "reference is unique")
}

func TestStore_ForeignKeys(t *testing.T) {
	s := newTestStore(t, ":memory:")
	eng := newEngine(s)
	ids := seed(t, eng)
	ctx := context.Background()

	r, err := eng.Ledger.Create(ctx, booking.NewReservation{
		ResourceID: ids.court, WindowID: ids.window, Date: booking.MustParseDate("2025-06-11"),
		CustomerName: "A", CreatedBy: ids.admin,
	})
	require.NoError(t, err)
	_, err = eng.Ledger.Cancel(ctx, r.ID, ids.admin)
	require.NoError(t, err)

	// RESTRICT on windows, even bypassing the registry
	err = s.WithTx(ctx, func(tx booking.Tx) error { return tx.DeleteWindow(ctx, ids.window) })
	assert.ErrorIs(t, err, booking.ErrConflictInUse)

	// SET NULL on resources
	require.NoError(t, eng.Resources.Delete(ctx, ids.court))
	got, err := s.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ResourceID)
}

func TestStore_RollbackOnError(t *testing.T) {
	s := newTestStore(t, ":memory:")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx booking.Tx) error {
		r := booking.Resource{Name: "Ghost", Price: decimal.Zero, Status: booking.ResourceActive, CreatedAt: now, UpdatedAt: now}
		if err := tx.InsertResource(ctx, &r); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetResourceByName(ctx, "Ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CancelledContext(t *testing.T) {
	s := newTestStore(t, ":memory:")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WithTx(ctx, func(tx booking.Tx) error { return nil })
	require.Error(t, err)
	assert.Equal(t, booking.KindStorageUnavailable, booking.KindOf(err))
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestStore_ConcurrentCreatesAcrossConnections(t *testing.T) {
	// GIVEN: Two independent stores on one file (two "processes")
	// WHEN: 16 creates race for one slot
	// THEN: Exactly one wins, the rest get SlotTaken

	path := filepath.Join(t.TempDir(), "race.db")
	a := newTestStore(t, path)
	ids := seed(t, newEngine(a))
	b := newTestStore(t, path)

	engines := []*booking.Engine{newEngine(a), newEngine(b)}
	date := booking.MustParseDate("2025-06-20")

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		taken    int
		failures []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(eng *booking.Engine) {
			defer wg.Done()
			_, err := eng.Ledger.Create(context.Background(), booking.NewReservation{
				ResourceID: ids.court, WindowID: ids.window, Date: date, CustomerName: "Racer", CreatedBy: ids.admin,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, booking.ErrSlotTaken):
				taken++
			default:
				failures = append(failures, err)
			}
		}(engines[i%2])
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, taken)

	count, err := a.CountReservations(context.Background(), booking.ReservationQuery{}.On(date).Active())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
