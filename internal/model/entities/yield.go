package entities

// YieldPredictionInput holds the agronomic and management factors of a field.
type YieldPredictionInput struct {
	CropVariety       string   `json:"crop_variety"`
	FieldArea         float64  `json:"field_area"`         // ha
	SoilFertility     float64  `json:"soil_fertility"`     // 0-100
	WaterAvailability float64  `json:"water_availability"` // 0-100
	Temperature       float64  `json:"temperature"`        // °C
	Rainfall          float64  `json:"rainfall"`           // mm
	Sunlight          float64  `json:"sunlight"`           // h/day
	PestPressure      float64  `json:"pest_pressure"`      // 0-100
	DiseasePressure   float64  `json:"disease_pressure"`   // 0-100
	FertilizerApplied float64  `json:"fertilizer_applied"` // kg/ha
	HistoricalYield   *float64 `json:"historical_yield,omitempty"`
}

// YieldFactor is the impact of one input dimension on the estimate, in [-100,100].
type YieldFactor struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

type YieldPrediction struct {
	EstimatedYield  float64       `json:"estimated_yield"` // kg/ha
	Confidence      float64       `json:"confidence"`
	BestCaseYield   float64       `json:"best_case_yield"`
	WorstCaseYield  float64       `json:"worst_case_yield"`
	TotalProduction float64       `json:"total_production"` // kg over the field
	Factors         []YieldFactor `json:"factors"`
	Recommendations []string      `json:"recommendations"`
}
