/*
seed.go - Demo data loader for development and demonstrations

PURPOSE:

	Populates an empty database with an admin principal, a few courts and a
	day of non-overlapping windows so the API can be exercised right away.

HOW SEEDING WORKS:
 1. Register the admin principal, or reuse it when it already exists
 2. Create each demo court unless one with that name exists
 3. Create the demo windows only when no windows exist yet

Seeding never deletes data and is safe to run repeatedly.

USAGE VIA API:

	POST /api/seed           (only when seed.enabled is set)

SEE ALSO:
  - cmd/server/main.go: seeds at startup when enabled
*/
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// Demo credentials. Change the password before exposing a seeded instance.
const (
	SeedAdminUsername = "admin"
	SeedAdminPassword = "admin123"
)

var seedCourts = []booking.NewResource{
	{Name: "Court 1", Description: "Main hall, vinyl floor", Price: decimal.NewFromInt(50000)},
	{Name: "Court 2", Description: "Main hall, vinyl floor", Price: decimal.NewFromInt(50000)},
	{Name: "Court 3", Description: "Annex, wooden floor", Price: decimal.NewFromInt(70000)},
}

// 08:00 to 22:00 in two-hour blocks.
var seedWindows = func() []booking.NewWindow {
	var out []booking.NewWindow
	for h := 8; h < 22; h += 2 {
		out = append(out, booking.NewWindow{
			Start: booking.NewTimeOfDay(h, 0),
			End:   booking.NewTimeOfDay(h+2, 0),
		})
	}
	return out
}()

// SeedResult reports what SeedDemo created.
type SeedResult struct {
	Admin     *booking.Principal
	Resources int
	Windows   int
}

// SeedDemo loads the demo data set.
func SeedDemo(ctx context.Context, engine *booking.Engine, log *zap.Logger) (*SeedResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	res := &SeedResult{}

	admin, err := engine.Principals.Register(ctx, SeedAdminUsername, "Administrator", SeedAdminPassword)
	switch {
	case errors.Is(err, booking.ErrDuplicateName):
		admin, err = engine.Principals.Authenticate(ctx, SeedAdminUsername, SeedAdminPassword)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	res.Admin = admin

	for _, court := range seedCourts {
		_, err := engine.Resources.Create(ctx, court)
		switch {
		case errors.Is(err, booking.ErrDuplicateName):
		case err != nil:
			return nil, err
		default:
			res.Resources++
		}
	}

	existing, err := engine.Slots.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		for _, w := range seedWindows {
			if _, err := engine.Slots.Create(ctx, w); err != nil {
				return nil, err
			}
			res.Windows++
		}
	}

	log.Info("demo data seeded",
		zap.Int64("admin_id", int64(admin.ID)),
		zap.Int("resources_created", res.Resources),
		zap.Int("windows_created", res.Windows),
	)
	return res, nil
}

// Seed loads demo data.
// POST /api/seed
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	res, err := SeedDemo(r.Context(), h.engine, h.log)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SeedResultDTO{
		PrincipalID: res.Admin.ID,
		Resources:   res.Resources,
		Windows:     res.Windows,
	})
}
