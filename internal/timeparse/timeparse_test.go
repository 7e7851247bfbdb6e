package timeparse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "hours and minutes", raw: "18h10min", want: 18*time.Hour + 10*time.Minute},
		{name: "minutes only", raw: "90min", want: 90 * time.Minute},
		{name: "japanese minutes", raw: "30分", want: 30 * time.Minute},
		{name: "full width", raw: "１８ｈ１０ＭＩＮ", want: 18*time.Hour + 10*time.Minute},
		{name: "short minute marker", raw: "45m", want: 45 * time.Minute},
		{name: "long spellings", raw: "2 hours 5 minutes", want: 2*time.Hour + 5*time.Minute},
		{name: "japanese hours", raw: "1時間30分", want: 90 * time.Minute},
		{name: "bare number is minutes", raw: "15", want: 15 * time.Minute},
		{name: "trailing digits after hours", raw: "1h30", want: 90 * time.Minute},
		{name: "trailing digits after minutes", raw: "10m5", want: 15 * time.Minute},
		{name: "separators", raw: " 1h:30m/+5min ", want: 95 * time.Minute},
		{name: "upper case", raw: "2H", want: 2 * time.Hour},
		{name: "zero", raw: "0min", want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDuration(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationEquivalentForms(t *testing.T) {
	t.Parallel()
	a, err := ParseDuration("90min")
	require.NoError(t, err)
	b, err := ParseDuration("1h30min")
	require.NoError(t, err)
	require.Equal(t, a, b)

	for _, raw := range []string{"1h 30min", "1h:30min", "1h/30min", "1h+30min", "1h30min"} {
		got, err := ParseDuration(raw)
		require.NoError(t, err, raw)
		require.Equal(t, 90*time.Minute, got, raw)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		rule string
	}{
		{raw: "", rule: "duration is empty"},
		{raw: "   ", rule: "duration is empty"},
		{raw: "h", rule: `digits required before "h"`},
		{raw: "1hmin", rule: `digits required before "min"`},
		{raw: "m", rule: `digits required before "m"`},
		{raw: "::", rule: "no duration given"},
		{raw: "10x"},
		{raw: "tomorrow"},
		{raw: "99999999999999999999h", rule: "number out of range"},
	}
	for _, tt := range tests {
		_, err := ParseDuration(tt.raw)
		require.Error(t, err, tt.raw)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), tt.raw)
		require.Equal(t, tt.raw, perr.Input)
		if tt.rule != "" {
			require.Equal(t, tt.rule, perr.Rule)
		}
	}
}

func TestParseAbsolute(t *testing.T) {
	t.Parallel()
	jst := time.FixedZone("JST", 9*60*60)

	got, err := ParseAbsolute("2025-03-01 18:30", jst)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), got)
	require.Equal(t, time.UTC, got.Location())

	got, err = ParseAbsolute("２０２５-０３-０１ １８：３０", jst)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), got)

	for _, raw := range []string{"", "2025-03-01", "2025/03/01 18:30", "2025-03-01 18:30:00", "18:30"} {
		_, err := ParseAbsolute(raw, jst)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), raw)
	}
}
