package dates

import (
	"fmt"
	"time"
)

// Day is a calendar date without a time-of-day or location. It is
// comparable and is used as a map key wherever items are bucketed by day,
// so two instants on the same calendar date always map to the same Day.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

const isoLayout = "2006-01-02"

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses an ISO date (2006-01-02).
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns local midnight of d in loc. A nil loc means time.Local.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n calendar days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	// UTC has no DST transitions, so day arithmetic never drifts.
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Sub returns the number of calendar days from o to d.
func (d Day) Sub(o Day) int {
	a := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(o.Year, o.Month, o.Day, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

func (d Day) Before(o Day) bool { return d.Sub(o) < 0 }

func (d Day) After(o Day) bool { return d.Sub(o) > 0 }

func (d Day) IsZero() bool { return d == Day{} }

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return DayOf(a) == DayOf(b)
}
