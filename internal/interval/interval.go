// Package interval implements the date/time arithmetic used when deciding
// whether two reservation requests compete for the same space.  An interval
// covers an inclusive range of calendar dates and may carry an optional
// time-of-day window expressed in minutes from midnight.  All functions are
// pure; the package has no dependencies on storage or transport.
package interval

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.  Dates carry no
// timezone; they are interpreted in the single timezone the service is
// configured with.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for time-of-day values.
const TimeLayout = "15:04"

// ErrInvalid reports an interval that violates ordering rules: end date
// before start date, a dangling time-of-day bound, or a same-day window
// whose end does not come after its start.  Callers can test for it with
// errors.Is.
var ErrInvalid = errors.New("invalid interval")

// Interval is a half-closed reservation window: an inclusive date range
// plus an optional intraday window.  StartMin/EndMin are minutes from
// midnight (e.g. 540 = 09:00); both must be set or both nil.
type Interval struct {
	StartDate time.Time // first occupied date, normalized to UTC midnight
	EndDate   time.Time // last occupied date (inclusive), UTC midnight
	StartMin  *int      // optional time-of-day window start, minutes from midnight
	EndMin    *int      // optional time-of-day window end, minutes from midnight
}

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalid, s)
	}
	return t.UTC(), nil
}

// ParseTimeOfDay parses an HH:MM string into minutes from midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrInvalid, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatTimeOfDay renders minutes from midnight back to HH:MM.
func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Validate checks the structural rules of an interval.  The end date must
// not precede the start date, the time-of-day bounds must be both present
// or both absent, and a single-day interval with times must have its end
// strictly after its start.  A multi-day interval may carry EndMin <=
// StartMin: an overnight occupation is expressed through the date range.
func (iv Interval) Validate() error {
	if iv.StartDate.IsZero() || iv.EndDate.IsZero() {
		return fmt.Errorf("%w: missing date bound", ErrInvalid)
	}
	if iv.EndDate.Before(iv.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalid)
	}
	if (iv.StartMin == nil) != (iv.EndMin == nil) {
		return fmt.Errorf("%w: start and end time must be given together", ErrInvalid)
	}
	if iv.StartMin != nil {
		if *iv.StartMin < 0 || *iv.StartMin >= 24*60 || *iv.EndMin <= 0 || *iv.EndMin > 24*60 {
			return fmt.Errorf("%w: time of day out of range", ErrInvalid)
		}
		if iv.StartDate.Equal(iv.EndDate) && *iv.EndMin <= *iv.StartMin {
			return fmt.Errorf("%w: same-day end time must be after start time", ErrInvalid)
		}
	}
	return nil
}

// HasTimes reports whether the interval carries a time-of-day window.
func (iv Interval) HasTimes() bool { return iv.StartMin != nil && iv.EndMin != nil }

// Days returns the inclusive day count of the interval.
func (iv Interval) Days() int { return DayCount(iv.StartDate, iv.EndDate) }

// DayCount counts calendar days inclusively: DayCount(d, d) == 1.  Both
// arguments are expected to be date-only values at UTC midnight.
func DayCount(start, end time.Time) int {
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

// Overlaps reports whether two intervals compete for the same space.  Date
// ranges overlap when a.StartDate <= b.EndDate and a.EndDate >= b.StartDate.
// When both intervals carry a time-of-day window the date-level overlap is
// narrowed: the windows must also intersect (a.StartMin < b.EndMin and
// a.EndMin > b.StartMin).  When either side is a full-day interval the
// date-level overlap alone is conclusive, so a full-day booking always
// conflicts with a time-scoped booking sharing a date.  The predicate is
// symmetric: Overlaps(a, b) == Overlaps(b, a).
func Overlaps(a, b Interval) bool {
	if a.StartDate.After(b.EndDate) || a.EndDate.Before(b.StartDate) {
		return false
	}
	if !a.HasTimes() || !b.HasTimes() {
		return true
	}
	return *a.StartMin < *b.EndMin && *a.EndMin > *b.StartMin
}
