package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// RecommendationEvent is published by the advisor for every evaluated
// aggregated sample, recording WHAT was recommended and on which inputs.
type RecommendationEvent struct {
	ID             string                            `json:"id"`
	FieldID        string                            `json:"field_id"`
	SensorID       string                            `json:"sensor_id"`
	Moisture       float64                           `json:"moisture"`
	Trend          entities.Trend                    `json:"trend"`
	Recommendation entities.IrrigationRecommendation `json:"recommendation"`
	Timestamp      time.Time                         `json:"timestamp"`
}
