package domain

import "time"

// DefaultSlotGranularity matches the dashboard's 10-minute booking grid.
const DefaultSlotGranularity = 10 * time.Minute

// IntervalsOverlap reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An appointment starting exactly when another ends
// does not overlap.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// SnapToGrid rounds t to the nearest multiple of granularity, in UTC. A
// non-positive granularity leaves t untouched apart from UTC normalization.
func SnapToGrid(t time.Time, granularity time.Duration) time.Time {
	t = t.UTC()
	if granularity <= 0 {
		return t
	}
	return t.Round(granularity)
}
