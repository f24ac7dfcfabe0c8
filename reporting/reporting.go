/*
Package reporting provides read-only projections over the booking ledger.

PURPOSE:
  Daily summaries, monthly revenue, court utilization and the dashboard
  view. Reports read committed state through booking.Reader and never
  write. They are consistent with the ledger at the time of the query.

REVENUE:
  Revenue counts non-cancelled reservations whose payment status is paid.
  Outstanding counts non-cancelled unpaid and partial reservations.

CACHING:
  Results are cached as JSON under keys that carry a generation number.
  Service implements booking.Observer: every committed ledger event bumps
  the generation so later reads miss and recompute. Stale entries from
  older generations simply expire by TTL.

SEE ALSO:
  - booking/events.go: Observer contract
  - cache/cache.go: cache backends
*/
package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fthliqml/badminton-booking-system-api/booking"
	"github.com/fthliqml/badminton-booking-system-api/cache"
)

// MaxUtilizationDays bounds the Utilization range.
const MaxUtilizationDays = 366

// =============================================================================
// REPORT TYPES
// =============================================================================

type DailySummary struct {
	Date         booking.Date    `json:"date"`
	Total        int             `json:"total"`
	Confirmed    int             `json:"confirmed"`
	Completed    int             `json:"completed"`
	Cancelled    int             `json:"cancelled"`
	Paid         int             `json:"paid"`
	Revenue      decimal.Decimal `json:"revenue"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	ResourcesHit int             `json:"resources_booked"`
}

type MonthRevenue struct {
	Month        time.Month      `json:"month"`
	Reservations int             `json:"reservations"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type YearRevenue struct {
	Year   int             `json:"year"`
	Months []MonthRevenue  `json:"months"`
	Total  decimal.Decimal `json:"total"`
}

type ResourceUtilization struct {
	ResourceID booking.ResourceID `json:"resource_id"`
	Name       string             `json:"name"`
	Booked     int                `json:"booked"`
	Capacity   int                `json:"capacity"`
	Rate       float64            `json:"rate"`
}

type Utilization struct {
	From      booking.Date          `json:"from"`
	To        booking.Date          `json:"to"`
	Resources []ResourceUtilization `json:"resources"`
}

type Dashboard struct {
	Date            booking.Date `json:"date"`
	Resources       int          `json:"resources"`
	ActiveResources int          `json:"active_resources"`
	ActiveWindows   int          `json:"active_windows"`
	FreeSlots       int          `json:"free_slots"`
	Upcoming        int          `json:"upcoming"`
	Today           DailySummary `json:"today"`
}

// =============================================================================
// SERVICE
// =============================================================================

// Service computes reports. Safe for concurrent use.
type Service struct {
	store      booking.Reader
	clock      booking.Clock
	cache      cache.Cache
	ttl        time.Duration
	log        *zap.Logger
	generation atomic.Uint64
}

// Options configures a Service. A nil Cache disables caching.
type Options struct {
	Cache  cache.Cache
	TTL    time.Duration
	Clock  booking.Clock
	Logger *zap.Logger
}

func New(store booking.Reader, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = booking.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		store: store,
		clock: opts.Clock,
		cache: opts.Cache,
		ttl:   opts.TTL,
		log:   opts.Logger.Named("reporting"),
	}
}

// ReservationChanged invalidates cached reports.
func (s *Service) ReservationChanged(_ context.Context, _ booking.Event) {
	s.Invalidate()
}

// CatalogChanged invalidates cached reports. Court and window changes move
// capacity, free slots and dashboard counts.
func (s *Service) CatalogChanged(_ context.Context, _ booking.CatalogEvent) {
	s.Invalidate()
}

// Invalidate drops every cached report.
func (s *Service) Invalidate() {
	s.generation.Add(1)
}

// DailySummary aggregates reservations on date.
func (s *Service) DailySummary(ctx context.Context, date booking.Date) (*DailySummary, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", booking.ErrInvalidInput)
	}
	return cached(ctx, s, "daily:"+date.String(), func() (*DailySummary, error) {
		rs, err := s.store.FindReservations(ctx, booking.ReservationQuery{}.On(date))
		if err != nil {
			return nil, err
		}
		sum := summarize(date, rs, booking.Today(s.clock))
		return &sum, nil
	})
}

// RevenueByMonth returns twelve rows for year.
func (s *Service) RevenueByMonth(ctx context.Context, year int) (*YearRevenue, error) {
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d", booking.ErrInvalidInput, year)
	}
	return cached(ctx, s, fmt.Sprintf("revenue:%d", year), func() (*YearRevenue, error) {
		from := booking.NewDate(year, time.January, 1)
		to := booking.NewDate(year, time.December, 31)
		rs, err := s.store.FindReservations(ctx, booking.ReservationQuery{}.From(from).Until(to).Active())
		if err != nil {
			return nil, err
		}

		out := &YearRevenue{Year: year, Months: make([]MonthRevenue, 12), Total: decimal.Zero}
		for i := range out.Months {
			out.Months[i] = MonthRevenue{Month: time.Month(i + 1), Revenue: decimal.Zero}
		}
		for _, r := range rs {
			if r.PaymentStatus != booking.PaymentPaid {
				continue
			}
			m := &out.Months[r.Date.Month()-1]
			m.Reservations++
			m.Revenue = m.Revenue.Add(r.TotalAmount)
			out.Total = out.Total.Add(r.TotalAmount)
		}
		return out, nil
	})
}

// Utilization reports booked slots over capacity per resource, where
// capacity is active windows times days in [from, to].
func (s *Service) Utilization(ctx context.Context, from, to booking.Date) (*Utilization, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: from and to are required", booking.ErrInvalidInput)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: from is after to", booking.ErrInvalidInput)
	}
	days := from.DaysUntil(to) + 1
	if days > MaxUtilizationDays {
		return nil, fmt.Errorf("%w: range exceeds %d days", booking.ErrInvalidInput, MaxUtilizationDays)
	}

	key := fmt.Sprintf("utilization:%s:%s", from, to)
	return cached(ctx, s, key, func() (*Utilization, error) {
		resources, err := s.store.ListResources(ctx)
		if err != nil {
			return nil, err
		}
		windows, err := s.store.ListWindows(ctx, true)
		if err != nil {
			return nil, err
		}
		rs, err := s.store.FindReservations(ctx, booking.ReservationQuery{}.From(from).Until(to).Active())
		if err != nil {
			return nil, err
		}

		booked := make(map[booking.ResourceID]int)
		for _, r := range rs {
			booked[r.ResourceID]++
		}

		capacity := len(windows) * days
		out := &Utilization{From: from, To: to, Resources: make([]ResourceUtilization, 0, len(resources))}
		for _, res := range resources {
			u := ResourceUtilization{
				ResourceID: res.ID,
				Name:       res.Name,
				Booked:     booked[res.ID],
				Capacity:   capacity,
			}
			if capacity > 0 {
				u.Rate = float64(u.Booked) / float64(capacity)
			}
			out.Resources = append(out.Resources, u)
		}
		return out, nil
	})
}

// Dashboard summarizes date for the front desk.
func (s *Service) Dashboard(ctx context.Context, date booking.Date) (*Dashboard, error) {
	if date.IsZero() {
		date = booking.Today(s.clock)
	}
	return cached(ctx, s, "dashboard:"+date.String(), func() (*Dashboard, error) {
		resources, err := s.store.ListResources(ctx)
		if err != nil {
			return nil, err
		}
		windows, err := s.store.ListWindows(ctx, true)
		if err != nil {
			return nil, err
		}
		rs, err := s.store.FindReservations(ctx, booking.ReservationQuery{}.On(date))
		if err != nil {
			return nil, err
		}
		upcoming, err := s.store.CountReservations(ctx, booking.ReservationQuery{}.From(date.AddDays(1)).Active())
		if err != nil {
			return nil, err
		}

		d := &Dashboard{
			Date:          date,
			Resources:     len(resources),
			ActiveWindows: len(windows),
			Upcoming:      upcoming,
			Today:         summarize(date, rs, booking.Today(s.clock)),
		}

		active := make(map[booking.ResourceID]bool)
		for _, res := range resources {
			if res.IsActive() {
				d.ActiveResources++
				active[res.ID] = true
			}
		}
		taken := 0
		for _, r := range rs {
			if !r.IsCancelled() && active[r.ResourceID] {
				taken++
			}
		}
		d.FreeSlots = max(d.ActiveResources*len(windows)-taken, 0)
		return d, nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func summarize(date booking.Date, rs []booking.Reservation, today booking.Date) DailySummary {
	sum := DailySummary{Date: date, Revenue: decimal.Zero, Outstanding: decimal.Zero}
	resources := make(map[booking.ResourceID]bool)
	for _, r := range rs {
		sum.Total++
		switch r.EffectiveStatus(today) {
		case booking.BookingConfirmed:
			sum.Confirmed++
		case booking.BookingCompleted:
			sum.Completed++
		case booking.BookingCancelled:
			sum.Cancelled++
			continue
		}
		resources[r.ResourceID] = true
		if r.PaymentStatus == booking.PaymentPaid {
			sum.Paid++
			sum.Revenue = sum.Revenue.Add(r.TotalAmount)
		} else {
			sum.Outstanding = sum.Outstanding.Add(r.TotalAmount)
		}
	}
	sum.ResourcesHit = len(resources)
	return sum
}

// cached serves key from the cache or computes and stores it. Cache
// failures are logged and never fail the report.
func cached[T any](ctx context.Context, s *Service, key string, compute func() (*T, error)) (*T, error) {
	if s.cache == nil {
		return compute()
	}
	// effective status depends on today, so it is part of the key
	full := fmt.Sprintf("reports:%d:%s:%s", s.generation.Load(), booking.Today(s.clock), key)

	if raw, ok, err := s.cache.Get(ctx, full); err != nil {
		s.log.Warn("report cache read failed", zap.String("key", full), zap.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		s.log.Warn("discarding undecodable cached report", zap.String("key", full))
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, full, raw, s.ttl); err != nil {
			s.log.Warn("report cache write failed", zap.String("key", full), zap.Error(err))
		}
	}
	return v, nil
}
