package dates

import (
	"testing"
	"time"
)

func TestDayKeyIgnoresTimeOfDay(t *testing.T) {
	buckets := map[Day][]string{
		DayOf(time.Date(2025, 9, 30, 0, 0, 0, 0, time.Local)): {"standup"},
	}

	lookups := []time.Time{
		time.Date(2025, 9, 30, 0, 0, 0, 0, time.Local),
		time.Date(2025, 9, 30, 13, 45, 12, 0, time.Local),
		time.Date(2025, 9, 30, 23, 59, 59, 999, time.Local),
	}
	for _, at := range lookups {
		got, ok := buckets[DayOf(at)]
		if !ok || len(got) != 1 || got[0] != "standup" {
			t.Errorf("lookup at %s = %v, %v", at, got, ok)
		}
	}

	if _, ok := buckets[DayOf(time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local))]; ok {
		t.Error("next day must not share the bucket")
	}
}

func TestDayArithmetic(t *testing.T) {
	d := Day{Year: 2024, Month: time.February, Day: 28}

	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Errorf("AddDays(1) = %s", got)
	}
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("AddDays(2) = %s", got)
	}
	if got := d.AddDays(-59).String(); got != "2023-12-31" {
		t.Errorf("AddDays(-59) = %s", got)
	}
	if got := d.AddDays(10).Sub(d); got != 10 {
		t.Errorf("Sub = %d, want 10", got)
	}
	if !d.Before(d.AddDays(1)) || !d.AddDays(1).After(d) {
		t.Error("Before/After mismatch")
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-11-09")
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	if d != (Day{Year: 2025, Month: time.November, Day: 9}) {
		t.Errorf("ParseDay = %+v", d)
	}
	if _, err := ParseDay("09/11/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestEndOfDay(t *testing.T) {
	at := time.Date(2025, 9, 30, 8, 0, 0, 0, time.UTC)
	end := EndOfDay(at)
	if !SameDay(at, end) {
		t.Fatalf("EndOfDay left the day: %s", end)
	}
	if !SameDay(end.Add(time.Nanosecond), at.AddDate(0, 0, 1)) {
		t.Errorf("EndOfDay + 1ns = %s, want next day", end.Add(time.Nanosecond))
	}
}
