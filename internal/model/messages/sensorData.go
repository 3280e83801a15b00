package messages

import (
	"time"
)

// SensorData holds both real-time and aggregated moisture samples.
type SensorData struct {
	FieldID    string    `json:"field_id"`
	SensorID   string    `json:"sensor_id"`
	Moisture   float64   `json:"moisture"`
	Aggregated bool      `json:"aggregated"`
	Timestamp  time.Time `json:"timestamp"`
}
