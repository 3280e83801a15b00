package entities

// RecommendationType is the single outcome of an irrigation evaluation.
type RecommendationType string

const (
	IrrigateNow RecommendationType = "irrigate_now"
	Delay       RecommendationType = "delay"
	Skip        RecommendationType = "skip"
	Increase    RecommendationType = "increase"
	Decrease    RecommendationType = "decrease"
)

// Priority is ordered by severity, see Rank.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns 3 for critical down to 0 for low, -1 if unknown.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 0
	}
	return -1
}

// IrrigationInput carries the readings and field parameters of one evaluation.
// Moisture values, field capacity, wilting point and humidity are percentages.
type IrrigationInput struct {
	CurrentMoisture        float64 `json:"current_moisture"`
	TargetMoisture         float64 `json:"target_moisture"`
	MinMoisture            float64 `json:"min_moisture"`
	MaxMoisture            float64 `json:"max_moisture"`
	FieldCapacity          float64 `json:"field_capacity"`
	WiltingPoint           float64 `json:"wilting_point"`
	AreaHectares           float64 `json:"area_hectares"`
	CropType               string  `json:"crop_type"`
	SoilType               string  `json:"soil_type"`
	Temperature            float64 `json:"temperature"`             // °C
	Humidity               float64 `json:"humidity"`                // %
	RainfallForecast       float64 `json:"rainfall_forecast"`       // mm
	EvapotranspirationRate float64 `json:"evapotranspiration_rate"` // mm/day
}

type IrrigationRecommendation struct {
	Type                       RecommendationType `json:"type"`
	Priority                   Priority           `json:"priority"`
	Reason                     string             `json:"reason"`
	RecommendedDurationMinutes int                `json:"recommended_duration_minutes"`
	EstimatedWaterNeeded       float64            `json:"estimated_water_needed"` // liters
	WeatherFactor              float64            `json:"weather_factor"`         // %
	SoilMoistureFactor         float64            `json:"soil_moisture_factor"`
	CropWaterRequirement       float64            `json:"crop_water_requirement"` // mm/day
}
