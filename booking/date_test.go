package booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 10, d.Day())
	assert.Equal(t, "2025-03-10", d.String())

	for _, bad := range []string{"", "2025-3-10", "10/03/2025", "2025-02-30"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", bad)
	}
}

func TestDateOf_UsesLocalCalendarDay(t *testing.T) {
	// 06:00 in Jakarta is still the previous day in UTC
	jakarta := time.FixedZone("WIB", 7*3600)
	instant := time.Date(2025, time.June, 11, 6, 0, 0, 0, jakarta)

	assert.Equal(t, "2025-06-11", DateOf(instant).String())
	assert.Equal(t, "2025-06-10", DateOf(instant.UTC()).String())
	assert.Equal(t, "2025-06-11", Today(ClockFunc(func() time.Time { return instant })).String())
}

func TestDate_Arithmetic(t *testing.T) {
	d := MustParseDate("2025-01-31")
	assert.Equal(t, "2025-02-01", d.AddDays(1).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, 28, MustParseDate("2025-02-01").DaysUntil(MustParseDate("2025-03-01")))
	assert.Equal(t, -1, d.DaysUntil(d.AddDays(-1)))
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2025-12-24"}`), &v))
	assert.Equal(t, "2025-12-24", v.D.String())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2025-12-24"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"d":"24-12-2025"}`), &v))
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		str  string
	}{
		{"08:00", NewTimeOfDay(8, 0), "08:00"},
		{"8:30", NewTimeOfDay(8, 30), "08:30"},
		{"23:59", NewTimeOfDay(23, 59), "23:59"},
		{"10:00:30", NewTimeOfDay(10, 0) + 30, "10:00:30"},
		{"24:00", EndOfDay, "24:00"},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.str, got.String())
	}

	for _, bad := range []string{"", "24:01", "24:00:01", "25:00", "12:60", "12", "12:00:00:00", "ab:cd", "12:5"} {
		_, err := ParseTimeOfDay(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", bad)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	var v struct {
		T TimeOfDay `json:"t"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"t":"18:15"}`), &v))
	assert.Equal(t, 18, v.T.Hour())
	assert.Equal(t, 15, v.T.Minute())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"18:15"}`, string(out))
}

func TestReservation_EffectiveStatus(t *testing.T) {
	today := MustParseDate("2025-06-10")

	past := Reservation{Date: today.AddDays(-1), BookingStatus: BookingConfirmed}
	assert.Equal(t, BookingCompleted, past.EffectiveStatus(today))

	current := Reservation{Date: today, BookingStatus: BookingConfirmed}
	assert.Equal(t, BookingConfirmed, current.EffectiveStatus(today))

	cancelled := Reservation{Date: today.AddDays(-1), BookingStatus: BookingCancelled}
	assert.Equal(t, BookingCancelled, cancelled.EffectiveStatus(today))

	projected := past.Effective(today)
	assert.Equal(t, BookingCompleted, projected.BookingStatus)
	assert.Equal(t, BookingConfirmed, past.BookingStatus, "projection does not mutate")
}
