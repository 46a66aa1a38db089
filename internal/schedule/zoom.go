package schedule

import "strconv"

const (
	// BasePixelsPerHour is the hour height at 100% zoom.
	BasePixelsPerHour = 80.0

	DefaultZoom = 100
	MinZoom     = 30
	MaxZoom     = 150
	ZoomStep    = 10
)

// ClampZoom bounds a zoom percentage to [MinZoom, MaxZoom].
func ClampZoom(pct int) int {
	if pct < MinZoom {
		return MinZoom
	}
	if pct > MaxZoom {
		return MaxZoom
	}
	return pct
}

// PixelsPerHour scales base by a (clamped) zoom percentage.
func PixelsPerHour(base float64, zoomPct int) float64 {
	if base <= 0 {
		base = BasePixelsPerHour
	}
	return base * float64(ClampZoom(zoomPct)) / 100
}

// ParseZoom reads a stored zoom value, falling back to DefaultZoom.
func ParseZoom(s string) int {
	pct, err := strconv.Atoi(s)
	if err != nil {
		return DefaultZoom
	}
	return ClampZoom(pct)
}
