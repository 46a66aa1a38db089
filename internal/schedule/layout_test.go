package schedule

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

var baseDay = time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 9, day, hour, minute, 0, 0, time.UTC)
}

func event(id string, start time.Time, minutes int) Item {
	return Item{
		ID:              id,
		Title:           id,
		Start:           start,
		DurationMinutes: minutes,
		Payload:         EventPayload{},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func byID(geoms []Geometry) map[string]Geometry {
	m := make(map[string]Geometry, len(geoms))
	for _, g := range geoms {
		m[g.ItemID] = g
	}
	return m
}

func TestLayoutScenario(t *testing.T) {
	items := []Item{
		event("standup", at(30, 9, 0), 60),
		event("sync", at(30, 9, 5), 30),
	}
	days := dates.DayWindow(baseDay)

	geoms := byID(Layout(items, days, Options{PixelsPerHour: 80}))

	first := geoms["standup"]
	if first.Top != 720 || first.Height != 80 {
		t.Errorf("first: top=%v height=%v, want 720/80", first.Top, first.Height)
	}
	if first.OverlapCount != 0 || first.WidthFraction != 0.9 {
		t.Errorf("first: overlap=%d width=%v, want 0/0.9", first.OverlapCount, first.WidthFraction)
	}

	second := geoms["sync"]
	if !approx(second.Top, 726.67) || second.Height != 40 {
		t.Errorf("second: top=%v height=%v, want 726.67/40", second.Top, second.Height)
	}
	if second.OverlapCount != 1 {
		t.Errorf("second overlap = %d, want 1", second.OverlapCount)
	}
	if second.WidthFraction != 0.8 {
		t.Errorf("second width = %v, want 0.8", second.WidthFraction)
	}
	if second.LeftOffsetFraction != 0 {
		t.Errorf("proximity strategy moved item horizontally: %v", second.LeftOffsetFraction)
	}
	if second.Z <= first.Z {
		t.Errorf("later item painted below earlier one: z %d <= %d", second.Z, first.Z)
	}
}

func TestLayoutOverlapWidths(t *testing.T) {
	items := []Item{
		event("A", at(30, 14, 0), 0),
		event("B", at(30, 14, 4), 0),
		event("C", at(30, 14, 9), 0),
	}
	geoms := Layout(items, dates.DayWindow(baseDay), Options{PixelsPerHour: 80})
	if len(geoms) != 3 {
		t.Fatalf("len = %d, want 3", len(geoms))
	}

	wantOverlap := []int{0, 1, 2}
	wantWidth := []float64{0.9, 0.8, 0.7}
	for i, g := range geoms {
		if g.OverlapCount != wantOverlap[i] {
			t.Errorf("%s overlap = %d, want %d", g.ItemID, g.OverlapCount, wantOverlap[i])
		}
		if g.WidthFraction != wantWidth[i] {
			t.Errorf("%s width = %v, want %v", g.ItemID, g.WidthFraction, wantWidth[i])
		}
	}
}

func TestLayoutWidthFloor(t *testing.T) {
	var items []Item
	for i := 0; i < 12; i++ {
		items = append(items, event(fmt.Sprintf("e%02d", i), at(30, 10, i), 60))
	}
	geoms := Layout(items, dates.DayWindow(baseDay), Options{PixelsPerHour: 80})
	last := geoms[len(geoms)-1]
	if last.OverlapCount != 11 {
		t.Errorf("overlap = %d, want 11", last.OverlapCount)
	}
	if last.WidthFraction != 0.2 {
		t.Errorf("width = %v, want floor 0.2", last.WidthFraction)
	}
}

func TestLayoutProximityIsForwardOnly(t *testing.T) {
	// B starts exactly one threshold after A ends, so it is not stacked.
	// C is within the threshold of B only.
	items := []Item{
		event("A", at(30, 8, 0), 30),
		event("B", at(30, 8, 40), 30),
		event("C", at(30, 8, 45), 0),
	}
	geoms := byID(Layout(items, dates.DayWindow(baseDay), Options{PixelsPerHour: 60}))
	if geoms["B"].OverlapCount != 0 {
		t.Errorf("B overlap = %d, want 0", geoms["B"].OverlapCount)
	}
	if geoms["C"].OverlapCount != 1 {
		t.Errorf("C overlap = %d, want 1 (only B)", geoms["C"].OverlapCount)
	}
}

func TestLayoutStableTies(t *testing.T) {
	items := []Item{
		event("first", at(30, 9, 0), 30),
		event("second", at(30, 9, 0), 30),
		event("third", at(30, 9, 0), 30),
	}
	geoms := Layout(items, dates.DayWindow(baseDay), Options{PixelsPerHour: 80})
	for i, want := range []string{"first", "second", "third"} {
		if geoms[i].ItemID != want {
			t.Errorf("position %d = %s, want %s", i, geoms[i].ItemID, want)
		}
		if geoms[i].OverlapCount != i {
			t.Errorf("%s overlap = %d, want %d", want, geoms[i].OverlapCount, i)
		}
	}
}

func TestLayoutSortsByStart(t *testing.T) {
	items := []Item{
		event("late", at(30, 17, 0), 30),
		event("early", at(30, 7, 0), 30),
	}
	geoms := Layout(items, dates.DayWindow(baseDay), Options{PixelsPerHour: 80})
	if geoms[0].ItemID != "early" || geoms[1].ItemID != "late" {
		t.Errorf("order = %s, %s", geoms[0].ItemID, geoms[1].ItemID)
	}
}

func TestLayoutDaysAreIndependent(t *testing.T) {
	days := dates.Week(baseDay, time.Monday)
	items := []Item{
		event("mon", at(29, 9, 0), 60),
		event("tue", at(30, 9, 0), 60),
		event("outside", at(20, 9, 0), 60),
	}
	geoms := byID(Layout(items, days, Options{PixelsPerHour: 80}))

	if _, ok := geoms["outside"]; ok {
		t.Error("item outside the window was laid out")
	}
	if geoms["mon"].Column != 0 || geoms["tue"].Column != 1 {
		t.Errorf("columns = %d, %d; want 0, 1", geoms["mon"].Column, geoms["tue"].Column)
	}
	if geoms["tue"].OverlapCount != 0 {
		t.Errorf("overlap leaked across days: %d", geoms["tue"].OverlapCount)
	}
	if !approx(geoms["tue"].Left(7), 1.0/7) {
		t.Errorf("left = %v, want 1/7", geoms["tue"].Left(7))
	}
	if !approx(geoms["tue"].Width(7), 0.9/7) {
		t.Errorf("width = %v, want 0.9/7", geoms["tue"].Width(7))
	}
}

func TestLayoutDegenerateDurations(t *testing.T) {
	items := []Item{
		event("zero", at(30, 12, 0), 0),
		event("negative", at(30, 13, 0), -45),
		event("late", at(30, 23, 30), 120),
	}
	geoms := byID(Layout(items, dates.DayWindow(baseDay), Options{PixelsPerHour: 80}))

	if geoms["zero"].Height != 20 {
		t.Errorf("zero duration height = %v, want minimal 20", geoms["zero"].Height)
	}
	if geoms["negative"].Height != 20 {
		t.Errorf("negative duration height = %v, want minimal 20", geoms["negative"].Height)
	}
	if got := geoms["late"].Bottom(); got != 24*80 {
		t.Errorf("late item bottom = %v, want clipped to %v", got, 24*80)
	}
	for id, g := range geoms {
		if g.Height < 0 {
			t.Errorf("%s has negative height %v", id, g.Height)
		}
	}
}

func TestLayoutHeightNeverNegative(t *testing.T) {
	days := dates.DayWindow(baseDay)
	for minute := 0; minute < 24*60; minute += 37 {
		for _, dur := range []int{0, 1, 15, 59, 600, 1440} {
			it := event("x", baseDay.Add(time.Duration(minute)*time.Minute), dur)
			for _, strategy := range []Strategy{StrategyProximity, StrategyColumns} {
				g := Layout([]Item{it}, days, Options{PixelsPerHour: 48, Strategy: strategy})
				if len(g) != 1 || g[0].Height < 0 {
					t.Fatalf("minute=%d dur=%d strategy=%s: %+v", minute, dur, strategy, g)
				}
			}
		}
	}
}

func TestLayoutEmptyInputs(t *testing.T) {
	if got := Layout(nil, dates.DayWindow(baseDay), Options{}); len(got) != 0 {
		t.Errorf("no items produced %d geometries", len(got))
	}
	if got := Layout([]Item{event("x", at(30, 9, 0), 10)}, nil, Options{}); len(got) != 0 {
		t.Errorf("no days produced %d geometries", len(got))
	}
}

func TestLayoutDoesNotMutateInput(t *testing.T) {
	items := []Item{
		event("b", at(30, 11, 0), 30),
		event("a", at(30, 9, 0), 30),
	}
	Layout(items, dates.DayWindow(baseDay), Options{PixelsPerHour: 80})
	if items[0].ID != "b" || items[1].ID != "a" {
		t.Errorf("input reordered: %s, %s", items[0].ID, items[1].ID)
	}
}

func TestLayoutUsesDisplayLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	days := dates.DayWindow(time.Date(2025, 9, 30, 0, 0, 0, 0, loc))
	// 22:30 UTC on the 29th is 00:30 on the 30th in UTC+2.
	it := event("night", time.Date(2025, 9, 29, 22, 30, 0, 0, time.UTC), 30)

	geoms := Layout([]Item{it}, days, Options{PixelsPerHour: 60})
	if len(geoms) != 1 {
		t.Fatalf("len = %d, want 1", len(geoms))
	}
	if geoms[0].Top != 30 {
		t.Errorf("top = %v, want 30", geoms[0].Top)
	}
}
