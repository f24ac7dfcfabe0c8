package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

func TestPrincipals_RegisterAndAuthenticate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)

		p, err := f.eng.Principals.Register(f.ctx, " Desk ", "Front Desk", "letmein")
		require.NoError(t, err)
		assert.Equal(t, "desk", p.Username)
		assert.NotEqual(t, "letmein", p.PasswordHash)
		assert.True(t, p.Active)

		got, err := f.eng.Principals.Authenticate(f.ctx, "DESK", "letmein")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)

		_, err = f.eng.Principals.Authenticate(f.ctx, "desk", "wrong-password")
		assert.ErrorIs(t, err, booking.ErrInvalidPrincipal)

		_, err = f.eng.Principals.Authenticate(f.ctx, "ghost", "letmein")
		assert.ErrorIs(t, err, booking.ErrInvalidPrincipal)

		fetched, err := f.eng.Principals.Get(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Front Desk", fetched.DisplayName)
	})
}

func TestPrincipals_Register_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s booking.Store) {
		f := newFixture(t, s)

		_, err := f.eng.Principals.Register(f.ctx, "admin", "", "another1")
		assert.ErrorIs(t, err, booking.ErrDuplicateName)

		_, err = f.eng.Principals.Register(f.ctx, "  ", "", "another1")
		assert.ErrorIs(t, err, booking.ErrInvalidInput)

		_, err = f.eng.Principals.Register(f.ctx, "short", "", "abc")
		assert.ErrorIs(t, err, booking.ErrInvalidInput)

		_, err = f.eng.Principals.Get(f.ctx, 999)
		assert.ErrorIs(t, err, booking.ErrNotFound)

		_, err = f.eng.Principals.Verify(f.ctx, 999)
		assert.ErrorIs(t, err, booking.ErrInvalidPrincipal)
	})
}
