package dates

import (
	"fmt"
	"strings"
	"time"
)

// MonthCells is the number of cells in a month grid: six full weeks.
const MonthCells = 42

// Mode selects how many days a window spans.
type Mode int

const (
	ModeDay Mode = iota
	ModeWeek
	ModeMonth
)

func (m Mode) String() string {
	switch m {
	case ModeDay:
		return "day"
	case ModeWeek:
		return "week"
	case ModeMonth:
		return "month"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts day, week or month (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "d":
		return ModeDay, nil
	case "week", "w":
		return ModeWeek, nil
	case "month", "m":
		return ModeMonth, nil
	default:
		return ModeWeek, fmt.Errorf("unknown view mode: %s", s)
	}
}

// DayWindow returns the single-day window containing t.
func DayWindow(t time.Time) []time.Time {
	return []time.Time{Midnight(t)}
}

// Week returns the seven consecutive days of t's week, starting on
// weekStart, each normalized to local midnight in t's location.
func Week(t time.Time, weekStart time.Weekday) []time.Time {
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return consecutive(Midnight(t), -offset, 7)
}

// Month returns the Monday-aligned 42-cell grid for t's month.
func Month(t time.Time) []time.Time {
	return MonthGrid(t, time.Monday)
}

// MonthOf is Month for an explicit year and month in loc.
func MonthOf(year int, month time.Month, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Month(time.Date(year, month, 1, 0, 0, 0, 0, loc))
}

// MonthGrid returns 42 days: the leading days of the previous month needed
// to put the 1st into its weekday column, the whole month, then trailing
// days of the next month.
func MonthGrid(t time.Time, weekStart time.Weekday) []time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	return consecutive(first, -offset, MonthCells)
}

// Window builds the visible days for mode around ref.
func Window(mode Mode, ref time.Time, weekStart time.Weekday) []time.Time {
	switch mode {
	case ModeDay:
		return DayWindow(ref)
	case ModeMonth:
		return MonthGrid(ref, weekStart)
	default:
		return Week(ref, weekStart)
	}
}

// Step moves ref by n units of mode. Month steps keep the day of month
// where possible and clamp to the last day otherwise (Jan 31 + 1 month is
// Feb 28/29, not Mar 3).
func Step(mode Mode, ref time.Time, n int) time.Time {
	switch mode {
	case ModeDay:
		return ref.AddDate(0, 0, n)
	case ModeMonth:
		first := time.Date(ref.Year(), ref.Month()+time.Month(n), 1,
			ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
		day := ref.Day()
		if last := DaysIn(first.Year(), first.Month()); day > last {
			day = last
		}
		return first.AddDate(0, 0, day-1)
	default:
		return ref.AddDate(0, 0, 7*n)
	}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IndexOf returns the position of t's calendar day within days, or -1.
func IndexOf(days []time.Time, t time.Time) int {
	if len(days) == 0 {
		return -1
	}
	// Windows are contiguous, so the offset from the first day is the index.
	idx := DayOf(t).Sub(DayOf(days[0]))
	if idx < 0 || idx >= len(days) {
		return -1
	}
	return idx
}

// Contains reports whether t's calendar day is one of days.
func Contains(days []time.Time, t time.Time) bool {
	return IndexOf(days, t) >= 0
}

// Span returns the first and last Day of a window. ok is false for an
// empty window.
func Span(days []time.Time) (first, last Day, ok bool) {
	if len(days) == 0 {
		return Day{}, Day{}, false
	}
	return DayOf(days[0]), DayOf(days[len(days)-1]), true
}

func consecutive(anchor time.Time, from, n int) []time.Time {
	days := make([]time.Time, n)
	y, m, d := anchor.Date()
	for i := range days {
		// time.Date normalizes overflowing days and stays on midnight
		// across DST changes, unlike adding 24h durations.
		days[i] = time.Date(y, m, d+from+i, 0, 0, 0, 0, anchor.Location())
	}
	return days
}
