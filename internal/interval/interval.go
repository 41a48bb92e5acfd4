// Package interval models half-open calendar-date ranges and the single
// overlap predicate used by every booking-conflict check.
package interval

import (
	"fmt"
	"time"

	"spotbook/internal/models"
)

// Interval is a half-open date range [Start, End). Two intervals that share
// only a boundary date do not overlap: a stay ending on a date leaves the
// resource free for a stay starting that same date.
type Interval struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// New builds an interval from calendar dates, validating Start < End.
func New(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Parse builds an interval from YYYY-MM-DD strings.
func Parse(start, end string) (Interval, error) {
	s, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return New(s, e)
}

// Validate rejects zero dates and Start >= End.
func (iv Interval) Validate() error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return fmt.Errorf("interval dates must be set")
	}
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("interval start %s must be before end %s",
			iv.Start.Format(models.DateLayout), iv.End.Format(models.DateLayout))
	}
	return nil
}

// Overlaps reports whether a and b share at least one date. Symmetric and
// total over valid intervals: a.Start < b.End && b.Start < a.End.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Phase is a booking's temporal state relative to a point in time.
type Phase int

const (
	PhaseFuture Phase = iota
	PhaseOngoing
	PhasePast
)

func (p Phase) String() string {
	switch p {
	case PhaseFuture:
		return "future"
	case PhaseOngoing:
		return "ongoing"
	case PhasePast:
		return "past"
	default:
		return "unknown"
	}
}

// PhaseAt classifies the interval against now: Future before the start,
// Ongoing from the start up to (not including) the end, Past afterwards.
func (iv Interval) PhaseAt(now time.Time) Phase {
	if now.Before(iv.Start) {
		return PhaseFuture
	}
	if now.Before(iv.End) {
		return PhaseOngoing
	}
	return PhasePast
}
