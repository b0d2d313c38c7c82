package interval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avierra/space-reservation/internal/interval"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := interval.ParseDate(s)
	require.NoError(t, err)
	return d
}

func mins(m int) *int { return &m }

func iv(t *testing.T, start, end string, startMin, endMin *int) interval.Interval {
	t.Helper()
	return interval.Interval{
		StartDate: date(t, start),
		EndDate:   date(t, end),
		StartMin:  startMin,
		EndMin:    endMin,
	}
}

func TestParseTimeOfDay(t *testing.T) {
	m, err := interval.ParseTimeOfDay("09:30")
	require.NoError(t, err)
	require.Equal(t, 9*60+30, m)
	require.Equal(t, "09:30", interval.FormatTimeOfDay(m))

	_, err = interval.ParseTimeOfDay("25:00")
	require.ErrorIs(t, err, interval.ErrInvalid)
}

func TestDayCount(t *testing.T) {
	d := date(t, "2025-12-25")
	require.Equal(t, 1, interval.DayCount(d, d))
	require.Equal(t, 3, interval.DayCount(d, date(t, "2025-12-27")))
}

func TestValidate(t *testing.T) {
	require.NoError(t, iv(t, "2025-12-25", "2025-12-27", nil, nil).Validate())

	// end date before start date
	require.ErrorIs(t, iv(t, "2025-12-27", "2025-12-25", nil, nil).Validate(), interval.ErrInvalid)

	// dangling time bound
	require.ErrorIs(t, iv(t, "2025-12-25", "2025-12-25", mins(540), nil).Validate(), interval.ErrInvalid)

	// same-day window must be forward
	require.ErrorIs(t, iv(t, "2025-12-25", "2025-12-25", mins(600), mins(600)).Validate(), interval.ErrInvalid)

	// overnight window is legal across dates
	require.NoError(t, iv(t, "2025-12-25", "2025-12-26", mins(22*60), mins(6*60)).Validate())
}

func TestOverlapsDateLevel(t *testing.T) {
	a := iv(t, "2025-12-25", "2025-12-27", nil, nil)

	require.True(t, interval.Overlaps(a, iv(t, "2025-12-27", "2025-12-29", nil, nil)))
	require.True(t, interval.Overlaps(a, iv(t, "2025-12-23", "2025-12-25", nil, nil)))
	require.True(t, interval.Overlaps(a, iv(t, "2025-12-26", "2025-12-26", nil, nil)))
	require.False(t, interval.Overlaps(a, iv(t, "2025-12-28", "2025-12-30", nil, nil)))
	require.False(t, interval.Overlaps(a, iv(t, "2025-12-22", "2025-12-24", nil, nil)))
}

func TestOverlapsTimeNarrowing(t *testing.T) {
	// Existing booking 09:00-17:00 on one day.
	existing := iv(t, "2025-12-25", "2025-12-25", mins(9*60), mins(17*60))

	inside := iv(t, "2025-12-25", "2025-12-25", mins(10*60), mins(16*60))
	require.True(t, interval.Overlaps(inside, existing))

	adjacent := iv(t, "2025-12-25", "2025-12-25", mins(17*60), mins(18*60))
	require.False(t, interval.Overlaps(adjacent, existing))

	before := iv(t, "2025-12-25", "2025-12-25", mins(7*60), mins(9*60))
	require.False(t, interval.Overlaps(before, existing))

	// A full-day booking on the same date always conflicts with a
	// time-scoped one.
	fullDay := iv(t, "2025-12-25", "2025-12-25", nil, nil)
	require.True(t, interval.Overlaps(fullDay, existing))
	require.True(t, interval.Overlaps(existing, fullDay))
}

func TestOverlapsSymmetry(t *testing.T) {
	cases := []interval.Interval{
		iv(t, "2025-12-25", "2025-12-27", nil, nil),
		iv(t, "2025-12-27", "2025-12-29", nil, nil),
		iv(t, "2025-12-25", "2025-12-25", mins(9*60), mins(17*60)),
		iv(t, "2025-12-25", "2025-12-25", mins(17*60), mins(18*60)),
		iv(t, "2025-12-24", "2025-12-26", mins(13*60), mins(15*60)),
		iv(t, "2025-12-28", "2025-12-28", nil, nil),
	}
	for i, a := range cases {
		for j, b := range cases {
			require.Equal(t, interval.Overlaps(a, b), interval.Overlaps(b, a),
				"asymmetric result for cases %d and %d", i, j)
		}
	}
}
