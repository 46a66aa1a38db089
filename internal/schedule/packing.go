package schedule

import "time"

// packColumns assigns lanes greedily, the way the hourly view assigns
// columns to slots: each item takes the lowest lane that is free for its
// whole span. Items that transitively overlap form a cluster, and every
// item of a cluster gets an equal share of the usable column width.
func packColumns(sorted []Item, loc *time.Location, pph float64) []Geometry {
	out := make([]Geometry, len(sorted))
	lanes := make([]int, len(sorted))

	var (
		laneEnds     []time.Time
		clusterStart int
		clusterEnd   time.Time
	)

	closeCluster := func(end int) {
		width := 0
		for i := clusterStart; i < end; i++ {
			if lanes[i]+1 > width {
				width = lanes[i] + 1
			}
		}
		share := float64(baselineWidthPct) / 100 / float64(width)
		for i := clusterStart; i < end; i++ {
			out[i].WidthFraction = share
			out[i].LeftOffsetFraction = share * float64(lanes[i])
		}
	}

	for idx, it := range sorted {
		end := visualEnd(it)

		if idx > 0 && !it.Start.Before(clusterEnd) {
			closeCluster(idx)
			clusterStart = idx
			laneEnds = laneEnds[:0]
		}

		lane := -1
		for l, busyUntil := range laneEnds {
			if !it.Start.Before(busyUntil) {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, end)
		} else {
			laneEnds[lane] = end
		}
		lanes[idx] = lane

		if idx == clusterStart || end.After(clusterEnd) {
			clusterEnd = end
		}

		top, height := vertical(it, loc, pph)
		out[idx] = Geometry{
			ItemID:       it.ID,
			Top:          top,
			Height:       height,
			OverlapCount: lane,
		}
	}
	if len(sorted) > 0 {
		closeCluster(len(sorted))
	}
	return out
}

// visualEnd is the end of the block as drawn, so zero-length items still
// reserve their minimal slot.
func visualEnd(it Item) time.Time {
	if it.DurationMinutes <= 0 {
		return it.Start.Add(MinSlotMinutes * time.Minute)
	}
	return it.End()
}
