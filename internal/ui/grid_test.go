package ui

import (
	"testing"
	"time"

	"github.com/cwarden/timegrid/internal/schedule"
)

func TestPlaceBlocks(t *testing.T) {
	items := map[string]schedule.Item{
		"a": {ID: "a", Title: "A", Start: time.Date(2025, 9, 30, 9, 0, 0, 0, time.UTC), DurationMinutes: 60},
		"b": {ID: "b", Title: "B", Start: time.Date(2025, 9, 30, 7, 0, 0, 0, time.UTC), DurationMinutes: 120},
		"c": {ID: "c", Title: "C", Start: time.Date(2025, 9, 30, 20, 0, 0, 0, time.UTC), DurationMinutes: 30},
	}
	// 80 px per hour, rows of 40 px; rows 16..25 are 08:00 to 13:00.
	f := frame{X: 6, Y: 1, Width: 80, Rows: 10, Days: 4, Scroll: 16}

	tests := []struct {
		name string
		geom schedule.Geometry
		want *block
	}{
		{
			name: "inside",
			geom: schedule.Geometry{ItemID: "a", Column: 1, Top: 720, Height: 80, WidthFraction: 0.75},
			want: &block{X: 26, Y: 3, W: 15, H: 2, Z: 10, Head: true},
		},
		{
			name: "clipped at the top",
			geom: schedule.Geometry{ItemID: "b", Column: 0, Top: 560, Height: 160, WidthFraction: 0.5, Z: 1},
			want: &block{X: 6, Y: 1, W: 10, H: 2, Z: 11, Head: false},
		},
		{
			name: "below the viewport",
			geom: schedule.Geometry{ItemID: "c", Column: 1, Top: 1600, Height: 40, WidthFraction: 0.9},
		},
		{
			name: "unknown item",
			geom: schedule.Geometry{ItemID: "zzz", Column: 1, Top: 720, Height: 80, WidthFraction: 0.9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := placeBlocks([]schedule.Geometry{tt.geom}, items, f)
			if tt.want == nil {
				if len(got) != 0 {
					t.Fatalf("placeBlocks() = %+v, want nothing", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("placeBlocks() returned %d blocks", len(got))
			}
			b := got[0]
			b.Item = schedule.Item{}
			if b != *tt.want {
				t.Errorf("placeBlocks() = %+v, want %+v", b, *tt.want)
			}
		})
	}
}

func TestFrameColumnsCoverWidth(t *testing.T) {
	f := frame{X: 6, Width: 73, Days: 7}
	total := 0
	for i := 0; i < f.Days; i++ {
		if f.columnX(i) != f.X+total {
			t.Errorf("column %d starts at %d, want %d", i, f.columnX(i), f.X+total)
		}
		total += f.columnWidth(i)
	}
	if total != f.Width {
		t.Errorf("columns cover %d cells, want %d", total, f.Width)
	}
}

func TestTotalRows(t *testing.T) {
	tests := []struct {
		pph  float64
		want int
	}{
		{schedule.BasePixelsPerHour, 48},
		{schedule.PixelsPerHour(schedule.BasePixelsPerHour, schedule.MinZoom), 15},
		{schedule.PixelsPerHour(schedule.BasePixelsPerHour, schedule.MaxZoom), 72},
	}
	for _, tt := range tests {
		if got := totalRows(tt.pph); got != tt.want {
			t.Errorf("totalRows(%v) = %d, want %d", tt.pph, got, tt.want)
		}
	}
}
