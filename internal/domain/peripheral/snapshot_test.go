package peripheral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParseClimate accepts "T_H" and rejects anything else.
func TestParseClimate(t *testing.T) {
	t.Parallel()

	temp, hum, err := ParseClimate("23.5_41")
	require.NoError(t, err)
	require.InDelta(t, 23.5, temp, 1e-9)
	require.InDelta(t, 41.0, hum, 1e-9)

	for _, bad := range []string{"", "23.5", "x_1", "1_y"} {
		_, _, err := ParseClimate(bad)
		require.ErrorIs(t, err, ErrMalformedPayload, bad)
	}
}

// TestParseLight inverts the raw reading.
func TestParseLight(t *testing.T) {
	t.Parallel()

	v, err := ParseLight("95")
	require.NoError(t, err)
	require.Equal(t, 4000, v)

	_, err = ParseLight("bright")
	require.ErrorIs(t, err, ErrMalformedPayload)
}

// TestParseCarReadiness covers waiting, numeric and garbage payloads.
func TestParseCarReadiness(t *testing.T) {
	t.Parallel()

	require.False(t, ParseCarReadiness("Waiting for init"))
	require.True(t, ParseCarReadiness("812"))
	require.True(t, ParseCarReadiness("light 812.5"))
	require.False(t, ParseCarReadiness("light n/a"))
}

// TestCarStatusFresh expires after the TTL.
func TestCarStatusFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)

	require.False(t, CarStatus{}.Fresh(now))
	require.True(t, CarStatus{UpdatedAt: now.Add(-9 * time.Second)}.Fresh(now))
	require.False(t, CarStatus{UpdatedAt: now.Add(-CarStatusTTL)}.Fresh(now))
}

// TestApplyEcho syncs switches from command echoes.
func TestApplyEcho(t *testing.T) {
	t.Parallel()

	var s Snapshot

	require.True(t, ApplyEcho(&s, "e"))
	require.True(t, ApplyEcho(&s, "a1"))
	require.True(t, ApplyEcho(&s, "c"))
	require.False(t, ApplyEcho(&s, "zz"))
	require.True(t, s.LampOn)
	require.True(t, s.PlugOn)
	require.True(t, s.BuzzerOn)
	require.False(t, s.LEDOn)

	require.True(t, ApplyEcho(&s, "f"))
	require.False(t, s.LampOn)

	d, ok := ParseDevice("led")
	require.True(t, ok)
	require.Equal(t, "a", d.Command(true))
	require.Equal(t, "b", d.Command(false))
}
