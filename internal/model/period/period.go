// Package period maps calendar dates onto fixed half-month budgeting
// windows: days 1-15 and day 16 through the end of the month. Every date
// belongs to exactly one window and windows never cross a month boundary.
package period

import (
	"time"

	"github.com/jinzhu/now"
)

// DateLayout is the wire format for calendar dates. No time of day,
// no timezone: all math happens in the civil calendar.
const DateLayout = "2006-01-02"

const midMonthDay = 15

// Period is a derived half-month window, inclusive on both ends.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Contains(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return p.Start.Format(DateLayout) + " to " + p.End.Format(DateLayout)
}

// Key is a stable identifier for the period, used for cache keys.
func (p Period) Key() string {
	return p.Start.Format(DateLayout)
}

// DateOf strips the time-of-day component, keeping only the civil date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Resolve returns the half-month window containing d. Total over any valid
// date: day 15 closes the first window, the last calendar day of the month
// closes the second, whatever its length.
func Resolve(d time.Time) Period {
	d = DateOf(d)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)

	if d.Day() <= midMonthDay {
		return Period{
			Start: first,
			End:   time.Date(d.Year(), d.Month(), midMonthDay, 0, 0, 0, 0, time.UTC),
		}
	}
	return Period{
		Start: time.Date(d.Year(), d.Month(), midMonthDay+1, 0, 0, 0, 0, time.UTC),
		End:   DateOf(now.With(d).EndOfMonth()),
	}
}

// ForMonth returns both windows of a month as an ordered pair. Their union
// covers every day of the month with no gap or overlap.
func ForMonth(year int, month time.Month) [2]Period {
	return [2]Period{
		Resolve(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)),
		Resolve(time.Date(year, month, midMonthDay+1, 0, 0, 0, 0, time.UTC)),
	}
}

// Current returns the window containing at.
func Current(at time.Time) Period {
	return Resolve(at)
}

// Previous returns the window containing the date 15 days before at.
// Deliberately not the calendar-adjacent half-month: near the start of a
// month the shifted date can land in the prior month's second half, so the
// result depends on the day the calculation runs. Kept as-is to match the
// historical behavior of summaries and exports.
func Previous(at time.Time) Period {
	return Resolve(at.AddDate(0, 0, -midMonthDay))
}

// Scope selects which window (if any) an operation is restricted to.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeCurrent  Scope = "current"
	ScopePrevious Scope = "previous"
)

// ForScope resolves a scope against a reference date. The second return is
// false for ScopeAll, which carries no date restriction.
func ForScope(s Scope, at time.Time) (Period, bool) {
	switch s {
	case ScopeCurrent:
		return Current(at), true
	case ScopePrevious:
		return Previous(at), true
	default:
		return Period{}, false
	}
}
