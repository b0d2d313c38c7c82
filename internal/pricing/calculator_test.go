package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
	"github.com/avierra/space-reservation/internal/pricing"
)

func space(capacity int, ratePerDayCents int64) *model.Space {
	return &model.Space{
		ID:              "space-1",
		Name:            "Conference Room A",
		Capacity:        capacity,
		RatePerDayCents: ratePerDayCents,
		IsActive:        true,
	}
}

func dateIv(t *testing.T, start, end string) interval.Interval {
	t.Helper()
	s, err := interval.ParseDate(start)
	require.NoError(t, err)
	e, err := interval.ParseDate(end)
	require.NoError(t, err)
	return interval.Interval{StartDate: s, EndDate: e}
}

func TestCalculateThreeDayQuote(t *testing.T) {
	// Capacity 10, rate 100.00/day, 2025-12-25..2025-12-27, headcount 8:
	// base 300.00, fees 30.00, total 330.00.
	calc := pricing.NewCalculator(pricing.DefaultFeeRateBps)
	q, err := calc.Calculate(space(10, 10000), dateIv(t, "2025-12-25", "2025-12-27"), 8)
	require.NoError(t, err)
	require.Equal(t, 3, q.Days)
	require.Equal(t, int64(10000), q.RatePerDayCents)
	require.Equal(t, int64(30000), q.BasePriceCents)
	require.Equal(t, int64(3000), q.FeesCents)
	require.Equal(t, int64(0), q.ExtraOccupantFeeCents)
	require.Equal(t, int64(33000), q.TotalPriceCents)
}

func TestCalculateIsDeterministic(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultFeeRateBps)
	iv := dateIv(t, "2026-01-10", "2026-01-14")
	first, err := calc.Calculate(space(4, 12550), iv, 3)
	require.NoError(t, err)
	second, err := calc.Calculate(space(4, 12550), iv, 3)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCalculateFeeRounding(t *testing.T) {
	// 10% of 12345 is 1234.5; half-away-from-zero gives 1235.
	calc := pricing.NewCalculator(1000)
	q, err := calc.Calculate(space(2, 12345), dateIv(t, "2026-01-10", "2026-01-10"), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1235), q.FeesCents)
	require.Equal(t, int64(12345+1235), q.TotalPriceCents)
}

func TestCalculateCapacityExceeded(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultFeeRateBps)
	_, err := calc.Calculate(space(10, 10000), dateIv(t, "2025-12-25", "2025-12-27"), 15)
	require.ErrorIs(t, err, pricing.ErrCapacityExceeded)
}

func TestCalculateInactiveSpace(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultFeeRateBps)
	sp := space(10, 10000)
	sp.IsActive = false
	_, err := calc.Calculate(sp, dateIv(t, "2025-12-25", "2025-12-27"), 2)
	require.ErrorIs(t, err, pricing.ErrSpaceUnavailable)

	_, err = calc.Calculate(nil, dateIv(t, "2025-12-25", "2025-12-27"), 2)
	require.ErrorIs(t, err, pricing.ErrSpaceUnavailable)
}

func TestCalculateSingleDay(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultFeeRateBps)
	day := time.Now().UTC().Format(interval.DateLayout)
	q, err := calc.Calculate(space(6, 5000), dateIv(t, day, day), 6)
	require.NoError(t, err)
	require.Equal(t, 1, q.Days)
	require.Equal(t, int64(5000), q.BasePriceCents)
}
