// Package parser reads the dates typed into the go-to prompt.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

// Target is where a go-to expression points.
type Target struct {
	// Date is local midnight of the target day.
	Date time.Time
	// Minute is the time of day in minutes, when one was given.
	Minute  int
	HasTime bool
}

// At returns the target instant, midnight when no time was given.
func (t Target) At() time.Time {
	return t.Date.Add(time.Duration(t.Minute) * time.Minute)
}

// Numeric layouts tried before anything else. Layouts without a year take
// the year of now.
var layouts = []struct {
	layout  string
	hasYear bool
}{
	{"2006-01-02", true},
	{"01/02/2006", true},
	{"1/2/2006", true},
	{"01/02", false},
	{"1/2", false},
}

var (
	relativeRe = regexp.MustCompile(`^(?:in\s+)?([+-]?\d+)\s*(d|day|days|w|week|weeks|m|month|months)(\s+ago)?$`)
	weekdayRe  = regexp.MustCompile(`^(?:(next|this|last)\s+)?(mon|monday|tue|tues|tuesday|wed|wednesday|thu|thurs|thursday|fri|friday|sat|saturday|sun|sunday)$`)
	monthDayRe = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})(?:,?\s+(\d{4}))?$`)
	dayMonthRe = regexp.MustCompile(`^(\d{1,2})\s+([a-z]+)(?:\s+(\d{4}))?$`)
	clockRe    = regexp.MustCompile(`(?:^|\s)(?:at\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// Parse resolves input relative to now, in now's location.
func Parse(input string, now time.Time) (Target, error) {
	input = strings.ToLower(strings.Join(strings.Fields(input), " "))
	if input == "" {
		return Target{}, errors.New("empty input")
	}

	if date, ok := parseDate(input, now); ok {
		return Target{Date: date}, nil
	}

	// A trailing clock time is only tried once the whole input failed as
	// a date, so "1/2" stays a date.
	if m := clockRe.FindStringSubmatchIndex(input); m != nil {
		datePart := strings.TrimSpace(input[:m[0]])
		minute, ok := parseClock(input[m[2]:m[3]], substr(input, m[4], m[5]), substr(input, m[6], m[7]))
		if ok {
			date := dates.Midnight(now)
			if datePart != "" {
				var found bool
				if date, found = parseDate(datePart, now); !found {
					return Target{}, fmt.Errorf("invalid date: %s", datePart)
				}
			}
			return Target{Date: date, Minute: minute, HasTime: true}, nil
		}
	}

	return Target{}, fmt.Errorf("invalid date: %s", input)
}

func parseDate(input string, now time.Time) (time.Time, bool) {
	loc := now.Location()

	for _, l := range layouts {
		pd, err := time.ParseInLocation(l.layout, input, loc)
		if err != nil {
			continue
		}
		year := pd.Year()
		if !l.hasYear {
			year = now.Year()
		}
		return time.Date(year, pd.Month(), pd.Day(), 0, 0, 0, 0, loc), true
	}

	today := dates.Midnight(now)
	switch input {
	case "today", "now":
		return today, true
	case "tomorrow", "tmrw":
		return today.AddDate(0, 0, 1), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	}

	if m := relativeRe.FindStringSubmatch(input); m != nil {
		n, _ := strconv.Atoi(m[1])
		if m[3] != "" {
			n = -n
		}
		switch m[2][0] {
		case 'd':
			return today.AddDate(0, 0, n), true
		case 'w':
			return today.AddDate(0, 0, 7*n), true
		default:
			return today.AddDate(0, n, 0), true
		}
	}

	if m := weekdayRe.FindStringSubmatch(input); m != nil {
		return nearestWeekday(today, weekdays[m[2][:3]], m[1]), true
	}

	if m := monthDayRe.FindStringSubmatch(input); m != nil {
		if month, ok := monthNamed(m[1]); ok {
			return dayOf(m[2], month, m[3], now)
		}
	}
	if m := dayMonthRe.FindStringSubmatch(input); m != nil {
		if month, ok := monthNamed(m[2]); ok {
			return dayOf(m[1], month, m[3], now)
		}
	}

	return time.Time{}, false
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// nearestWeekday finds target relative to today. A bare or "this" weekday
// is the first one on or after today. "next" means the one in the
// following week unless that day has already passed this week.
func nearestWeekday(today time.Time, target time.Weekday, qualifier string) time.Time {
	diff := int(target) - int(today.Weekday())
	ahead := (diff + 7) % 7
	switch qualifier {
	case "last":
		back := (7 - ahead) % 7
		if back == 0 {
			back = 7
		}
		return today.AddDate(0, 0, -back)
	case "next":
		if diff >= 0 {
			ahead += 7
		}
	}
	return today.AddDate(0, 0, ahead)
}

func monthNamed(s string) (time.Month, bool) {
	if len(s) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if strings.HasPrefix(name, s) {
			return m, true
		}
	}
	return 0, false
}

func dayOf(dayStr string, month time.Month, yearStr string, now time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(dayStr)
	year := now.Year()
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}
	if day < 1 || day > dates.DaysIn(year, month) {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), true
}

func parseClock(hourStr, minStr, meridiem string) (int, bool) {
	hour, _ := strconv.Atoi(hourStr)
	minute := 0
	if minStr != "" {
		minute, _ = strconv.Atoi(minStr)
	}
	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour < 12 {
			hour += 12
		}
	default:
		// A bare number needs minutes to count as a time.
		if minStr == "" {
			return 0, false
		}
	}
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func substr(s string, from, to int) string {
	if from < 0 {
		return ""
	}
	return s[from:to]
}
