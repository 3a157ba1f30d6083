package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionClock(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	clock := NewSessionClock(loc, 9*60+30, 16*60)

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"tuesday midday", time.Date(2026, 3, 3, 12, 0, 0, 0, loc), true},
		{"at open", time.Date(2026, 3, 3, 9, 30, 0, 0, loc), true},
		{"at close", time.Date(2026, 3, 3, 16, 0, 0, 0, loc), false},
		{"pre-market", time.Date(2026, 3, 3, 8, 0, 0, 0, loc), false},
		{"saturday", time.Date(2026, 3, 7, 12, 0, 0, 0, loc), false},
		{"utc input", time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, clock.IsOpen(tt.at))
		})
	}
}

func TestSessionClockHoursSkipsWeekend(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	clock := NewSessionClock(loc, 9*60+30, 16*60)

	friday := time.Date(2026, 3, 6, 17, 0, 0, 0, loc)
	hours := clock.Hours(friday)

	assert.False(t, hours.IsOpen)
	assert.Equal(t, time.Date(2026, 3, 9, 9, 30, 0, 0, loc), hours.NextOpen)
	assert.Equal(t, time.Date(2026, 3, 9, 16, 0, 0, 0, loc), hours.NextClose)

	midday := clock.Hours(time.Date(2026, 3, 3, 12, 0, 0, 0, loc))
	assert.True(t, midday.IsOpen)
	assert.Equal(t, time.Date(2026, 3, 3, 16, 0, 0, 0, loc), midday.NextClose)
	assert.Equal(t, time.Date(2026, 3, 4, 9, 30, 0, 0, loc), midday.NextOpen)
}
