package schedule

import (
	"time"

	"github.com/cwarden/timegrid/internal/dates"
)

// Indicator is the position of the current-time line.
type Indicator struct {
	Column int
	Top    float64
}

// NowIndicator places now on the grid. ok is false when today is not one
// of the visible days.
func NowIndicator(now time.Time, days []time.Time, pph float64) (Indicator, bool) {
	if len(days) == 0 {
		return Indicator{}, false
	}
	local := now.In(days[0].Location())
	col := dates.IndexOf(days, local)
	if col < 0 {
		return Indicator{}, false
	}
	if pph <= 0 {
		pph = BasePixelsPerHour
	}
	return Indicator{Column: col, Top: TimeToPixels(local, pph)}, true
}
