package agronomy

import (
	"testing"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// series builds readings one hour apart, oldest first, ending at t0.
func series(t0 time.Time, values ...float64) []entities.MoistureReading {
	out := make([]entities.MoistureReading, len(values))
	for i, v := range values {
		out[i] = entities.MoistureReading{
			Moisture:  v,
			Timestamp: t0.Add(-time.Duration(len(values)-1-i) * time.Hour),
		}
	}
	return out
}

func TestTrendInsufficientData(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := Trend(nil, 0); got != entities.TrendStable {
		t.Fatalf("expected stable for no readings, got %s", got)
	}
	if got := Trend(series(t0, 40), 0); got != entities.TrendStable {
		t.Fatalf("expected stable for one reading, got %s", got)
	}
}

func TestTrendDirections(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		values []float64
		want   entities.Trend
	}{
		{"two readings rising", []float64{30, 35}, entities.TrendIncreasing},
		{"two readings falling", []float64{35, 30}, entities.TrendDecreasing},
		{"small change is stable", []float64{30, 31.9}, entities.TrendStable},
		{"exactly two points moves", []float64{30, 32}, entities.TrendIncreasing},
		// newest 40 vs offset 5 (value 45)
		{"compares with sixth newest", []float64{10, 10, 45, 44, 43, 42, 41, 40}, entities.TrendDecreasing},
		// the sixth newest reading is 50, the old 10s never take part
		{"long history", []float64{10, 10, 10, 50, 50, 50, 50, 50, 50, 51, 51, 51, 51}, entities.TrendStable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Trend(series(t0, c.values...), 0); got != c.want {
				t.Fatalf("expected %s, got %s", c.want, got)
			}
		})
	}
}

func TestTrendSortsAndDoesNotMutate(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rs := series(t0, 20, 25, 30)
	rs[0], rs[2] = rs[2], rs[0]
	first := rs[0]

	if got := Trend(rs, 0); got != entities.TrendIncreasing {
		t.Fatalf("expected increasing regardless of order, got %s", got)
	}
	if rs[0] != first {
		t.Fatal("expected caller slice to be left untouched")
	}
}

func TestTrendWindowIsRelativeToNewest(t *testing.T) {
	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rs := series(t0, 10, 40, 40.5)
	if got := Trend(rs, 90*time.Minute); got != entities.TrendStable {
		t.Fatalf("expected the 2h-old reading to be dropped, got %s", got)
	}
	if got := Trend(rs, 3*time.Hour); got != entities.TrendIncreasing {
		t.Fatalf("expected increasing with the wider window, got %s", got)
	}
	if got := Trend(rs, 30*time.Minute); got != entities.TrendStable {
		t.Fatalf("expected stable with a single reading in window, got %s", got)
	}
}
