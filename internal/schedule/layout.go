package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

const (
	// OverlapThreshold is how close an earlier item's end has to come to a
	// later item's start for the later one to count as stacked on it.
	OverlapThreshold = 10 * time.Minute

	// Widths are whole percentages of one day column.
	baselineWidthPct = 90
	overlapShrinkPct = 10
	minWidthPct      = 20

	// MinSlotMinutes is the height given to items without a duration.
	MinSlotMinutes = 15

	hoursPerDay = 24
)

// Strategy selects how overlapping items share a day column.
type Strategy int

const (
	// StrategyProximity shrinks each item by 10% of the column for every
	// earlier item ending within OverlapThreshold of its start. Items keep
	// their left edge, so deeper items recede instead of tiling.
	StrategyProximity Strategy = iota
	// StrategyColumns assigns each item the lowest free lane within its
	// overlap cluster and splits the column evenly between the lanes.
	StrategyColumns
)

func (s Strategy) String() string {
	switch s {
	case StrategyColumns:
		return "columns"
	default:
		return "proximity"
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proximity", "stack":
		return StrategyProximity, nil
	case "columns", "packed":
		return StrategyColumns, nil
	default:
		return StrategyProximity, fmt.Errorf("unknown layout strategy: %s", s)
	}
}

// Options control the projection from time to pixels.
type Options struct {
	PixelsPerHour float64
	Strategy      Strategy
}

// Geometry is the renderable placement of one item. Top and Height are
// pixels from midnight of the item's day; fractions are of one day column.
type Geometry struct {
	ItemID             string
	Column             int
	Top                float64
	Height             float64
	OverlapCount       int
	WidthFraction      float64
	LeftOffsetFraction float64
	// Z is the paint order; higher values are drawn on top.
	Z int
}

// Left returns the item's left edge as a fraction of the whole grid.
func (g Geometry) Left(numDays int) float64 {
	if numDays <= 0 {
		return 0
	}
	return (float64(g.Column) + g.LeftOffsetFraction) / float64(numDays)
}

// Width returns the item's width as a fraction of the whole grid.
func (g Geometry) Width(numDays int) float64 {
	if numDays <= 0 {
		return 0
	}
	return g.WidthFraction / float64(numDays)
}

// Bottom is Top + Height.
func (g Geometry) Bottom() float64 {
	return g.Top + g.Height
}

// Layout projects items onto the visible days. Each day is laid out on its
// own; items whose start is not on a visible day are dropped. The result
// is ordered by column, then paint order. Layout never fails and never
// modifies items.
func Layout(items []Item, days []time.Time, opts Options) []Geometry {
	if len(days) == 0 || len(items) == 0 {
		return []Geometry{}
	}
	pph := opts.PixelsPerHour
	if pph <= 0 {
		pph = BasePixelsPerHour
	}
	loc := days[0].Location()

	columns := make([][]Item, len(days))
	for _, it := range items {
		col := dates.IndexOf(days, it.Start.In(loc))
		if col < 0 {
			continue
		}
		columns[col] = append(columns[col], it)
	}

	out := make([]Geometry, 0, len(items))
	for col, dayItems := range columns {
		if len(dayItems) == 0 {
			continue
		}
		sorted := make([]Item, len(dayItems))
		copy(sorted, dayItems)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Start.Before(sorted[j].Start)
		})

		var placed []Geometry
		switch opts.Strategy {
		case StrategyColumns:
			placed = packColumns(sorted, loc, pph)
		default:
			placed = stackByProximity(sorted, loc, pph)
		}
		for i := range placed {
			placed[i].Column = col
			placed[i].Z = len(out)
			out = append(out, placed[i])
		}
	}
	return out
}

// stackByProximity implements the forward-only overlap heuristic: an item
// is stacked once for every earlier item of the same day whose end comes
// within OverlapThreshold of its start.
func stackByProximity(sorted []Item, loc *time.Location, pph float64) []Geometry {
	out := make([]Geometry, len(sorted))
	for idx, it := range sorted {
		overlap := 0
		for j := 0; j < idx; j++ {
			if it.Start.Before(sorted[j].End().Add(OverlapThreshold)) {
				overlap++
			}
		}

		widthPct := baselineWidthPct - overlapShrinkPct*overlap
		if widthPct < minWidthPct {
			widthPct = minWidthPct
		}

		top, height := vertical(it, loc, pph)
		out[idx] = Geometry{
			ItemID:        it.ID,
			Top:           top,
			Height:        height,
			OverlapCount:  overlap,
			WidthFraction: float64(widthPct) / 100,
		}
	}
	return out
}

// vertical maps the item's start and duration to pixel offsets from
// midnight. Items without a duration get MinSlotMinutes; items running
// past midnight are clipped to the end of their day.
func vertical(it Item, loc *time.Location, pph float64) (top, height float64) {
	start := it.Start.In(loc)
	top = (float64(start.Hour()) + float64(start.Minute())/60) * pph

	if it.DurationMinutes <= 0 {
		height = MinSlotMinutes * pph / 60
	} else {
		height = float64(it.DurationMinutes) * pph / 60
	}

	if dayEnd := hoursPerDay * pph; top+height > dayEnd {
		height = dayEnd - top
	}
	if height < 0 {
		height = 0
	}
	return top, height
}

// TimeToPixels maps a wall-clock time to its vertical offset in its day.
func TimeToPixels(t time.Time, pph float64) float64 {
	return (float64(t.Hour()) + float64(t.Minute())/60) * pph
}
