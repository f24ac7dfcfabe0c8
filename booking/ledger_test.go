package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// =============================================================================
// CREATE
// =============================================================================

func TestLedger_Create_DefaultsAmountToResourcePrice(t *testing.T) {
	// GIVEN: Court1 priced 50000 and a morning window
	// WHEN: Alice books it for today with no amount
	// THEN: The reservation is confirmed, unpaid and costs 50000;
	//       the same triple cannot be booked twice

	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)

		r := f.reserve(t, today(), "Alice")
		assert.NotZero(t, r.ID)
		assert.NotEmpty(t, r.Reference)
		assert.True(t, r.TotalAmount.Equal(decimal.NewFromInt(50000)), "got %s", r.TotalAmount)
		assert.Equal(t, booking.BookingConfirmed, r.BookingStatus)
		assert.Equal(t, booking.PaymentUnpaid, r.PaymentStatus)
		assert.Equal(t, f.admin, r.CreatedBy)

		_, err := f.eng.Ledger.Create(f.ctx, f.newReservation(today(), "Bob"))
		require.Error(t, err)
		assert.ErrorIs(t, err, booking.ErrSlotTaken)
		var taken *booking.SlotTakenError
		require.ErrorAs(t, err, &taken)
		assert.Equal(t, r.ID, taken.ExistingID)
		assert.Equal(t, booking.KindSlotTaken, booking.KindOf(err))
	})
}

func TestLedger_Create_ExplicitAmountKept(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)

		in := f.newReservation(today(), "Alice")
		in.TotalAmount = decimal.NewFromInt(40000)
		in.PaymentStatus = booking.PaymentPartial
		r, err := f.eng.Ledger.Create(f.ctx, in)
		require.NoError(t, err)
		assert.True(t, r.TotalAmount.Equal(decimal.NewFromInt(40000)))
		assert.Equal(t, booking.PaymentPartial, r.PaymentStatus)
	})
}

func TestLedger_Create_PriceChangeIsNotRetroactive(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		_, err := f.eng.Resources.Update(f.ctx, f.court.ID, booking.ResourceUpdate{Price: ptr(decimal.NewFromInt(75000))})
		require.NoError(t, err)

		got, err := f.eng.Ledger.Get(f.ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(50000)))
	})
}

func TestLedger_Create_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)

		inactive, err := f.eng.Slots.Create(f.ctx, booking.NewWindow{
			Start:  booking.NewTimeOfDay(9, 0),
			End:    booking.NewTimeOfDay(11, 0),
			Status: booking.WindowInactive,
		})
		require.NoError(t, err)

		maintenance, err := f.eng.Resources.Create(f.ctx, booking.NewResource{
			Name: "Court2", Price: decimal.NewFromInt(50000), Status: booking.ResourceMaintenance,
		})
		require.NoError(t, err)

		tests := []struct {
			name   string
			modify func(*booking.NewReservation)
			want   error
		}{
			{"unknown principal", func(in *booking.NewReservation) { in.CreatedBy = 999 }, booking.ErrInvalidPrincipal},
			{"missing principal", func(in *booking.NewReservation) { in.CreatedBy = 0 }, booking.ErrInvalidPrincipal},
			{"yesterday", func(in *booking.NewReservation) { in.Date = today().AddDays(-1) }, booking.ErrPastDateRejected},
			{"no date", func(in *booking.NewReservation) { in.Date = booking.Date{} }, booking.ErrInvalidInput},
			{"unknown resource", func(in *booking.NewReservation) { in.ResourceID = 999 }, booking.ErrResourceUnavailable},
			{"resource in maintenance", func(in *booking.NewReservation) { in.ResourceID = maintenance.ID }, booking.ErrResourceUnavailable},
			{"unknown window", func(in *booking.NewReservation) { in.WindowID = 999 }, booking.ErrWindowUnavailable},
			{"inactive window", func(in *booking.NewReservation) { in.WindowID = inactive.ID }, booking.ErrWindowUnavailable},
			{"blank customer", func(in *booking.NewReservation) { in.CustomerName = "   " }, booking.ErrInvalidCustomer},
			{"bad payment status", func(in *booking.NewReservation) { in.PaymentStatus = "refunded" }, booking.ErrInvalidInput},
			{"negative amount", func(in *booking.NewReservation) { in.TotalAmount = decimal.NewFromInt(-1) }, booking.ErrInvalidInput},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := f.newReservation(today().AddDays(1), "Alice")
				tt.modify(&in)
				_, err := f.eng.Ledger.Create(f.ctx, in)
				assert.ErrorIs(t, err, tt.want)
				assert.True(t, booking.IsClientError(err))
			})
		}

		// nothing was written by the failures
		page, err := f.eng.Ledger.History(f.ctx, booking.HistoryFilter{})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})
}

func TestLedger_Create_PrincipalCheckedFirst(t *testing.T) {
	// GIVEN: A request that is wrong in every way
	// THEN: The principal failure wins
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		_, err := f.eng.Ledger.Create(f.ctx, booking.NewReservation{
			Date:      today().AddDays(-3),
			CreatedBy: 42,
		})
		assert.ErrorIs(t, err, booking.ErrInvalidPrincipal)
	})
}

func TestLedger_Create_CancelledSlotCanBeRebooked(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		first := f.reserve(t, today(), "Alice")

		_, err := f.eng.Ledger.Cancel(f.ctx, first.ID, f.admin)
		require.NoError(t, err)

		second := f.reserve(t, today(), "Bob")
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestLedger_Create_ConcurrentSameSlot(t *testing.T) {
	// GIVEN: N callers racing for the same (resource, window, date)
	// THEN: Exactly one succeeds; the rest get SlotTaken

	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		const n = 16

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			taken     int
			other     []error
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.eng.Ledger.Create(context.Background(), f.newReservation(today().AddDays(2), "Racer"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, booking.ErrSlotTaken):
					taken++
				default:
					other = append(other, err)
				}
			}()
		}
		wg.Wait()

		assert.Empty(t, other)
		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, taken)

		count, err := s.CountReservations(f.ctx, booking.ReservationQuery{}.On(today().AddDays(2)).Active())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

// =============================================================================
// STATUS AND DETAILS
// =============================================================================

func TestLedger_CancelIsTerminal(t *testing.T) {
	// GIVEN: A cancelled reservation
	// WHEN: Trying to set it back to confirmed (or to re-set cancelled)
	// THEN: TerminalState, and the stored status is unchanged

	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		cancelled, err := f.eng.Ledger.Cancel(f.ctx, r.ID, f.admin)
		require.NoError(t, err)
		assert.Equal(t, booking.BookingCancelled, cancelled.BookingStatus)

		for _, status := range []booking.BookingStatus{booking.BookingConfirmed, booking.BookingCancelled, booking.BookingCompleted} {
			_, err = f.eng.Ledger.UpdateStatus(f.ctx, r.ID, booking.StatusUpdate{BookingStatus: ptr(status)}, f.admin)
			assert.ErrorIs(t, err, booking.ErrTerminalState, "status %s", status)
		}
		_, err = f.eng.Ledger.UpdateStatus(f.ctx, r.ID, booking.StatusUpdate{PaymentStatus: ptr(booking.PaymentPaid)}, f.admin)
		assert.ErrorIs(t, err, booking.ErrTerminalState)

		got, err := f.eng.Ledger.Get(f.ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.BookingCancelled, got.BookingStatus)
		assert.Equal(t, booking.PaymentUnpaid, got.PaymentStatus)
	})
}

func TestLedger_CancelTwiceIsNoop(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		var events []booking.Event
		observer := booking.ObserverFunc(func(_ context.Context, e booking.Event) { events = append(events, e) })
		f := newFixture(t, s, observer)
		r := f.reserve(t, today(), "Alice")

		_, err := f.eng.Ledger.Cancel(f.ctx, r.ID, f.admin)
		require.NoError(t, err)
		again, err := f.eng.Ledger.Cancel(f.ctx, r.ID, f.admin)
		require.NoError(t, err)
		assert.Equal(t, booking.BookingCancelled, again.BookingStatus)

		require.Len(t, events, 2, "create + one cancel")
		assert.Equal(t, booking.EventCreated, events[0].Type)
		assert.Equal(t, booking.EventCancelled, events[1].Type)
		require.NotNil(t, events[1].Previous)
		assert.Equal(t, booking.BookingConfirmed, events[1].Previous.BookingStatus)
	})
}

func TestLedger_UpdateStatus_PartialFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		staff, err := f.eng.Principals.Register(f.ctx, "staff", "", "secret1")
		require.NoError(t, err)

		got, err := f.eng.Ledger.UpdateStatus(f.ctx, r.ID, booking.StatusUpdate{PaymentStatus: ptr(booking.PaymentPaid)}, staff.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)
		assert.Equal(t, booking.BookingConfirmed, got.BookingStatus)
		assert.Equal(t, staff.ID, got.UpdatedBy)
		assert.Equal(t, f.admin, got.CreatedBy)

		got, err = f.eng.Ledger.UpdateStatus(f.ctx, r.ID, booking.StatusUpdate{BookingStatus: ptr(booking.BookingCompleted)}, f.admin)
		require.NoError(t, err)
		assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)
		assert.Equal(t, booking.BookingCompleted, got.BookingStatus)
	})
}

func TestLedger_UpdateStatus_Errors(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		_, err := f.eng.Ledger.UpdateStatus(f.ctx, 999, booking.StatusUpdate{PaymentStatus: ptr(booking.PaymentPaid)}, f.admin)
		assert.ErrorIs(t, err, booking.ErrNotFound)

		_, err = f.eng.Ledger.UpdateStatus(f.ctx, r.ID, booking.StatusUpdate{PaymentStatus: ptr(booking.PaymentPaid)}, 999)
		assert.ErrorIs(t, err, booking.ErrInvalidPrincipal)

		_, err = f.eng.Ledger.UpdateStatus(f.ctx, r.ID, booking.StatusUpdate{BookingStatus: ptr(booking.BookingStatus("pending"))}, f.admin)
		assert.ErrorIs(t, err, booking.ErrInvalidInput)
	})
}

func TestLedger_UpdateDetails(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		got, err := f.eng.Ledger.UpdateDetails(f.ctx, r.ID, booking.DetailsUpdate{
			CustomerPhone: ptr("0812-555"),
			Notes:         ptr("bring shuttlecocks"),
		}, f.admin)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.CustomerName)
		assert.Equal(t, "0812-555", got.CustomerPhone)
		assert.Equal(t, "bring shuttlecocks", got.Notes)

		_, err = f.eng.Ledger.UpdateDetails(f.ctx, r.ID, booking.DetailsUpdate{CustomerName: ptr(" ")}, f.admin)
		assert.ErrorIs(t, err, booking.ErrInvalidCustomer)

		_, err = f.eng.Ledger.UpdateDetails(f.ctx, 999, booking.DetailsUpdate{Notes: ptr("x")}, f.admin)
		assert.ErrorIs(t, err, booking.ErrNotFound)

		// details stay editable after cancellation
		_, err = f.eng.Ledger.Cancel(f.ctx, r.ID, f.admin)
		require.NoError(t, err)
		got, err = f.eng.Ledger.UpdateDetails(f.ctx, r.ID, booking.DetailsUpdate{CustomerName: ptr("Alice B")}, f.admin)
		require.NoError(t, err)
		assert.Equal(t, "Alice B", got.CustomerName)
		assert.Equal(t, booking.BookingCancelled, got.BookingStatus)
	})
}

func TestLedger_Cancel_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		_, err := f.eng.Ledger.Cancel(f.ctx, 12345, f.admin)
		assert.ErrorIs(t, err, booking.ErrNotFound)
		assert.Equal(t, booking.KindNotFound, booking.KindOf(err))
	})
}

// =============================================================================
// READS
// =============================================================================

func TestLedger_EffectiveStatus(t *testing.T) {
	// GIVEN: A confirmed reservation made while its date was still upcoming
	// WHEN: The clock moves past that date
	// THEN: Reads report completed while storage still says confirmed

	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		later := booking.NewEngine(s, booking.Options{
			Clock: booking.ClockFunc(func() time.Time { return now.AddDate(0, 0, 1) }),
		})

		got, err := later.Ledger.Get(f.ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.BookingCompleted, got.BookingStatus)

		stored, err := s.GetReservation(f.ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.BookingConfirmed, stored.BookingStatus)
	})
}

func TestLedger_GetByReference(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		got, err := f.eng.Ledger.GetByReference(f.ctx, r.Reference)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)

		_, err = f.eng.Ledger.GetByReference(f.ctx, "nope")
		assert.ErrorIs(t, err, booking.ErrNotFound)
	})
}

func TestLedger_History_OrderingAndPaging(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		evening, err := f.eng.Slots.Create(f.ctx, booking.NewWindow{
			Start: booking.NewTimeOfDay(18, 0),
			End:   booking.NewTimeOfDay(20, 0),
		})
		require.NoError(t, err)
		court2, err := f.eng.Resources.Create(f.ctx, booking.NewResource{Name: "Court2", Price: decimal.NewFromInt(60000)})
		require.NoError(t, err)

		d0, d1 := today(), today().AddDays(1)
		mk := func(res booking.ResourceID, win booking.WindowID, d booking.Date) booking.ReservationID {
			r, err := f.eng.Ledger.Create(f.ctx, booking.NewReservation{
				ResourceID: res, WindowID: win, Date: d, CustomerName: "C", CreatedBy: f.admin,
			})
			require.NoError(t, err)
			return r.ID
		}
		aEvening0 := mk(f.court.ID, evening.ID, d0)
		aMorning0 := mk(f.court.ID, f.window.ID, d0)
		bMorning1 := mk(court2.ID, f.window.ID, d1)
		aEvening1 := mk(f.court.ID, evening.ID, d1)

		page, err := f.eng.Ledger.History(f.ctx, booking.HistoryFilter{})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, []booking.ReservationID{bMorning1, aEvening1, aMorning0, aEvening0}, ids(page.Items))

		page, err = f.eng.Ledger.History(f.ctx, booking.HistoryFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, []booking.ReservationID{aEvening1, aMorning0}, ids(page.Items))

		page, err = f.eng.Ledger.History(f.ctx, booking.HistoryFilter{Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, []booking.ReservationID{aEvening0}, ids(page.Items))

		page, err = f.eng.Ledger.History(f.ctx, booking.HistoryFilter{ResourceID: f.court.ID, DateFrom: d1, DateTo: d1})
		require.NoError(t, err)
		assert.Equal(t, []booking.ReservationID{aEvening1}, ids(page.Items))

		_, err = f.eng.Ledger.Cancel(f.ctx, aMorning0, f.admin)
		require.NoError(t, err)
		page, err = f.eng.Ledger.History(f.ctx, booking.HistoryFilter{Status: booking.BookingCancelled})
		require.NoError(t, err)
		assert.Equal(t, []booking.ReservationID{aMorning0}, ids(page.Items))
	})
}

func TestLedger_History_InvalidFilter(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)

		_, err := f.eng.Ledger.History(f.ctx, booking.HistoryFilter{Limit: -1})
		assert.ErrorIs(t, err, booking.ErrInvalidInput)

		_, err = f.eng.Ledger.History(f.ctx, booking.HistoryFilter{DateFrom: today().AddDays(1), DateTo: today()})
		assert.ErrorIs(t, err, booking.ErrInvalidInput)
	})
}

func TestLedger_ReadsDoNotMutate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)
		r := f.reserve(t, today(), "Alice")

		before, err := s.GetReservation(f.ctx, r.ID)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err = f.eng.Ledger.Get(f.ctx, r.ID)
			require.NoError(t, err)
			_, err = f.eng.Ledger.History(f.ctx, booking.HistoryFilter{})
			require.NoError(t, err)
		}
		after, err := s.GetReservation(f.ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func ids(rs []booking.Reservation) []booking.ReservationID {
	out := make([]booking.ReservationID, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
