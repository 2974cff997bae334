// Package period computes the contest month and the window of eligible upload dates.
// Every function is a pure function of the supplied time; the location of that
// time decides where calendar days begin.
package period

import "time"

// windowDays is how many days at the start of a month voting stays open for the previous month
const windowDays = 7

// Period is the contest month currently being voted on
type Period struct {
	Year       int        `json:"year"`
	Month      time.Month `json:"month"`
	WindowOpen bool       `json:"window_open"` // Submission form is open
}

// Range is the inclusive span of eligible upload dates, at midnight
type Range struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Current returns the contest month for now. During the first week of a month
// the previous month is being judged; otherwise the current one is.
func Current(now time.Time) Period {
	day := now.Day()
	month := now.Month()
	if day <= windowDays {
		month--
	}

	// Clamp the day so e.g. March 30 -> "February 30" does not roll back into March
	ref := time.Date(now.Year(), month, min(day, 10), 0, 0, 0, 0, now.Location())

	// Last day of the month: tomorrow's day-of-month is smaller than today's
	lastDay := now.AddDate(0, 0, 1).Day() < day

	return Period{
		Year:       ref.Year(),
		Month:      ref.Month(),
		WindowOpen: day <= windowDays || lastDay,
	}
}

// EligibleRange returns [last day of the month before the contest month,
// first day of the month after it]. The extra day on each side absorbs
// voters whose time zone moves an upload across a month boundary.
func EligibleRange(now time.Time) Range {
	p := Current(now)
	loc := now.Location()
	return Range{
		Earliest: time.Date(p.Year, p.Month, 0, 0, 0, 0, 0, loc),
		Latest:   time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, loc),
	}
}

// Contains reports whether the calendar date of t lies inside the range
func (r Range) Contains(t time.Time) bool {
	d := r.Date(t)
	return !d.Before(r.Earliest) && !d.After(r.Latest)
}

// Date truncates t to its own calendar day, placed in the range's location
func (r Range) Date(t time.Time) time.Time {
	loc := r.Earliest.Location()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
