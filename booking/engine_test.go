package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fthliqml/badminton-booking-system-api/booking"
	"github.com/fthliqml/badminton-booking-system-api/booking/store"
	"github.com/fthliqml/badminton-booking-system-api/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// now is 2025-06-10 10:00 UTC in every test.
var now = time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)

func fixedClock() booking.Clock {
	return booking.ClockFunc(func() time.Time { return now })
}

func today() booking.Date { return booking.DateOf(now) }

// forEachStore runs fn against the in-memory store and SQLite.
func forEachStore(t *testing.T, fn func(t *testing.T, s booking.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func newEngine(s booking.Store, observers ...booking.Observer) *booking.Engine {
	return booking.NewEngine(s, booking.Options{
		Clock:        fixedClock(),
		Observers:    observers,
		PasswordCost: bcrypt.MinCost,
	})
}

type fixture struct {
	ctx    context.Context
	eng    *booking.Engine
	admin  booking.PrincipalID
	court  *booking.Resource
	window *booking.Window // 08:00-10:00
}

// newFixture seeds one admin, one court priced 50000 and one morning window.
func newFixture(t *testing.T, s booking.Store, observers ...booking.Observer) fixture {
	t.Helper()
	ctx := context.Background()
	eng := newEngine(s, observers...)

	admin, err := eng.Principals.Register(ctx, "admin", "Admin", "admin123")
	require.NoError(t, err)

	court, err := eng.Resources.Create(ctx, booking.NewResource{Name: "Court1", Price: decimal.NewFromInt(50000)})
	require.NoError(t, err)

	window, err := eng.Slots.Create(ctx, booking.NewWindow{
		Start: booking.NewTimeOfDay(8, 0),
		End:   booking.NewTimeOfDay(10, 0),
		Name:  "Morning",
	})
	require.NoError(t, err)

	return fixture{ctx: ctx, eng: eng, admin: admin.ID, court: court, window: window}
}

func (f fixture) reserve(t *testing.T, date booking.Date, name string) *booking.Reservation {
	t.Helper()
	r, err := f.eng.Ledger.Create(f.ctx, f.newReservation(date, name))
	require.NoError(t, err)
	return r
}

func (f fixture) newReservation(date booking.Date, name string) booking.NewReservation {
	return booking.NewReservation{
		ResourceID:   f.court.ID,
		WindowID:     f.window.ID,
		Date:         date,
		CustomerName: name,
		CreatedBy:    f.admin,
	}
}

func ptr[T any](v T) *T { return &v }
