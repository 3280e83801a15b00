package agronomy

import (
	"math"
	"sort"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

const (
	trendMaxReadings = 10
	trendLookback    = 5
	trendStableBand  = 2.0 // percentage points
)

// Trend classifies the moisture direction of a sensor from its recent
// readings. Readings may arrive in any order; those older than window before
// the newest one are ignored when window is positive.
func Trend(readings []entities.MoistureReading, window time.Duration) entities.Trend {
	if len(readings) < 2 {
		return entities.TrendStable
	}
	rs := make([]entities.MoistureReading, len(readings))
	copy(rs, readings)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Timestamp.After(rs[j].Timestamp) })

	if window > 0 {
		cutoff := rs[0].Timestamp.Add(-window)
		n := 0
		for _, r := range rs {
			if r.Timestamp.Before(cutoff) {
				break
			}
			n++
		}
		rs = rs[:n]
	}
	if len(rs) > trendMaxReadings {
		rs = rs[:trendMaxReadings]
	}
	if len(rs) < 2 {
		return entities.TrendStable
	}

	older := rs[min(trendLookback, len(rs)-1)]
	delta := rs[0].Moisture - older.Moisture
	switch {
	case math.Abs(delta) < trendStableBand:
		return entities.TrendStable
	case delta > 0:
		return entities.TrendIncreasing
	default:
		return entities.TrendDecreasing
	}
}
