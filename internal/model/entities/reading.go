package entities

import "time"

// MoistureReading is one soil moisture sample of a sensor.
type MoistureReading struct {
	Moisture  float64   `json:"moisture"` // %
	Timestamp time.Time `json:"timestamp"`
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)
