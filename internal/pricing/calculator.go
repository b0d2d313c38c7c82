// Package pricing derives the price of a reservation from a space's tariff
// and the requested interval.  All amounts are integer cents; derived fees
// are rounded half-away-from-zero so repeated additions never drift.
package pricing

import (
	"errors"
	"fmt"

	"github.com/avierra/space-reservation/internal/interval"
	"github.com/avierra/space-reservation/internal/model"
)

// DefaultFeeRateBps is the service fee applied on top of the base price,
// in basis points (1000 = 10%).
const DefaultFeeRateBps = 1000

// ErrCapacityExceeded is returned when the requested headcount does not fit
// the space.
var ErrCapacityExceeded = errors.New("headcount exceeds space capacity")

// ErrSpaceUnavailable is returned when the space is missing or inactive.
var ErrSpaceUnavailable = errors.New("space not found or inactive")

// Quote is the full price breakdown for a reservation request.
type Quote struct {
	Days                  int   // inclusive day count of the interval
	RatePerDayCents       int64 // tariff used for the base price
	BasePriceCents        int64 // rate x days
	FeesCents             int64 // service fee on the base price
	ExtraOccupantFeeCents int64 // reserved for tiered pricing, currently zero
	TotalPriceCents       int64 // base + fees + extra-occupant fee
}

// Calculator prices reservation requests against a space tariff.  The fee
// rate is fixed at construction so quoting stays a pure function of its
// inputs.
type Calculator struct {
	feeRateBps int64
}

// NewCalculator returns a Calculator charging the given service fee rate in
// basis points.  Rates below zero fall back to DefaultFeeRateBps.
func NewCalculator(feeRateBps int64) *Calculator {
	if feeRateBps < 0 {
		feeRateBps = DefaultFeeRateBps
	}
	return &Calculator{feeRateBps: feeRateBps}
}

// Calculate prices the interval for the given space and headcount.  It
// enforces the capacity limit and rejects inactive or missing spaces; it
// performs no interval validation beyond day counting, which callers are
// expected to have done already.
func (c *Calculator) Calculate(space *model.Space, iv interval.Interval, headcount int) (Quote, error) {
	if space == nil || !space.IsActive {
		return Quote{}, ErrSpaceUnavailable
	}
	if headcount < 1 {
		return Quote{}, fmt.Errorf("headcount must be at least 1")
	}
	if headcount > space.Capacity {
		return Quote{}, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, headcount, space.Capacity)
	}

	days := iv.Days()
	base := space.RatePerDayCents * int64(days)
	q := Quote{
		Days:                  days,
		RatePerDayCents:       space.RatePerDayCents,
		BasePriceCents:        base,
		FeesCents:             roundBps(base, c.feeRateBps),
		ExtraOccupantFeeCents: 0,
	}
	q.TotalPriceCents = q.BasePriceCents + q.FeesCents + q.ExtraOccupantFeeCents
	return q, nil
}

// roundBps applies a basis-point rate to an amount of cents, rounding
// half-away-from-zero.
func roundBps(amountCents, bps int64) int64 {
	n := amountCents * bps
	if n >= 0 {
		return (n + 5000) / 10000
	}
	return (n - 5000) / 10000
}
