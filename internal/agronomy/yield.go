package agronomy

import (
	"fmt"
	"math"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/scoring"
)

const (
	baseConfidence       = 70.0
	minConfidence        = 40.0
	maxConfidence        = 95.0
	maxRecommendations   = 5
	bestCaseMultiplier   = 1.2
	worstCaseMultiplier  = 0.8
	weightNormalizer     = 1.0
	historicalBonus      = 15.0
	pressurePenalty      = 10.0
	waterExtremesPenalty = 5.0
)

// YieldModel estimates crop yield from environmental and management factors.
// It holds no mutable state and is safe for concurrent use.
type YieldModel struct {
	tables Tables

	soilFertility scoring.StepTable
	water         scoring.StepTable
	sunlight      scoring.StepTable
	pressure      scoring.StepTable
	fertilizer    scoring.StepTable
}

func NewYieldModel(tables Tables) *YieldModel {
	return &YieldModel{
		tables: tables.orDefault(),
		soilFertility: scoring.StepTable{
			Steps: []scoring.Step{
				{When: scoring.Between(70, 80), Value: 20},
				{When: scoring.HalfOpen(60, 70), Value: 10},
				{When: scoring.OpenClosed(80, 90), Value: 10},
				{When: scoring.HalfOpen(50, 60), Value: -10},
				{When: scoring.Above(90), Value: -5},
			},
			Fallback: -30,
		},
		water: scoring.StepTable{
			Steps: []scoring.Step{
				{When: scoring.AtLeast(80), Value: 15},
				{When: scoring.AtLeast(60), Value: 5},
				{When: scoring.AtLeast(40), Value: -10},
			},
			Fallback: -40,
		},
		sunlight: scoring.StepTable{
			Steps: []scoring.Step{
				{When: scoring.AtLeast(12), Value: 20},
				{When: scoring.AtLeast(10), Value: 10},
				{When: scoring.AtLeast(8), Value: 0},
				{When: scoring.AtLeast(6), Value: -15},
			},
			Fallback: -40,
		},
		pressure: scoring.StepTable{
			Steps: []scoring.Step{
				{When: scoring.AtMost(10), Value: 5},
				{When: scoring.AtMost(30), Value: -5},
				{When: scoring.AtMost(50), Value: -20},
				{When: scoring.AtMost(70), Value: -40},
			},
			Fallback: -60,
		},
		// keyed on applied / optimal rate
		fertilizer: scoring.StepTable{
			Steps: []scoring.Step{
				{When: scoring.Between(0.8, 1.2), Value: 25},
				{When: scoring.HalfOpen(0.6, 0.8), Value: 10},
				{When: scoring.OpenClosed(1.2, 1.5), Value: 5},
				{When: scoring.Below(0.6), Value: -20},
			},
			Fallback: -10,
		},
	}
}

// Predict returns the yield estimate for in.
func (m *YieldModel) Predict(in entities.YieldPredictionInput) (entities.YieldPrediction, error) {
	if err := validateYield(in); err != nil {
		return entities.YieldPrediction{}, err
	}

	soil := m.SoilFertilityImpact(in.SoilFertility)
	water := m.WaterImpact(in.WaterAvailability, in.Rainfall)
	temp := m.TemperatureImpact(in.CropVariety, in.Temperature)
	sun := m.SunlightImpact(in.Sunlight)
	pest := m.PressureImpact(in.PestPressure)
	disease := m.PressureImpact(in.DiseasePressure)
	fert := m.FertilizerImpact(in.CropVariety, in.FertilizerApplied)

	w := m.tables.Weights()
	// the primary weights sum to 0.90; fertilizer is added outside the average
	weighted := soil*w.SoilFertility +
		water*w.WaterAvailability +
		temp*w.Temperature +
		sun*w.Sunlight +
		pest*w.PestPressure +
		disease*w.DiseasePressure
	total := weighted/weightNormalizer + fert*w.Fertilizer

	base := m.tables.BaseYield(in.CropVariety)
	estimated := math.Round(math.Max(0, base*(1+total/100)))

	optimal := m.tables.TemperatureRange(in.CropVariety)
	factors := []entities.YieldFactor{
		{Name: "Soil Fertility", Impact: soil,
			Description: fmt.Sprintf("Soil fertility %.0f/100 is %s", in.SoilFertility, verdict(soil))},
		{Name: "Water Availability", Impact: water,
			Description: fmt.Sprintf("Water availability %.0f%% with %.0f mm rainfall is %s", in.WaterAvailability, in.Rainfall, verdict(water))},
		{Name: "Temperature", Impact: temp,
			Description: fmt.Sprintf("Temperature %.1f°C against an optimal %.0f-%.0f°C is %s", in.Temperature, optimal.Min, optimal.Max, verdict(temp))},
		{Name: "Sunlight", Impact: sun,
			Description: fmt.Sprintf("%.1f hours of sunlight per day is %s", in.Sunlight, verdict(sun))},
		{Name: "Pest Pressure", Impact: pest,
			Description: fmt.Sprintf("Pest pressure %.0f/100 is %s", in.PestPressure, verdict(pest))},
		{Name: "Disease Pressure", Impact: disease,
			Description: fmt.Sprintf("Disease pressure %.0f/100 is %s", in.DiseasePressure, verdict(disease))},
		{Name: "Fertilizer", Impact: fert,
			Description: fmt.Sprintf("%.0f kg/ha applied against an optimal %.0f kg/ha is %s",
				in.FertilizerApplied, m.tables.FertilizerOptimum(in.CropVariety), verdict(fert))},
	}

	return entities.YieldPrediction{
		EstimatedYield:  estimated,
		Confidence:      confidence(in),
		BestCaseYield:   estimated * bestCaseMultiplier,
		WorstCaseYield:  math.Max(0, estimated*worstCaseMultiplier),
		TotalProduction: estimated * in.FieldArea,
		Factors:         factors,
		Recommendations: yieldRecommendations(in),
	}, nil
}

func (m *YieldModel) SoilFertilityImpact(fertility float64) float64 {
	return m.soilFertility.Impact(fertility)
}

// WaterImpact scores availability and rainfall combined.
func (m *YieldModel) WaterImpact(availability, rainfallMM float64) float64 {
	return m.water.Impact(availability + rainfallMM/10)
}

func (m *YieldModel) TemperatureImpact(crop string, tempC float64) float64 {
	r := m.tables.TemperatureRange(crop)
	t := scoring.StepTable{
		Steps: []scoring.Step{
			{When: scoring.Between(r.Min, r.Max), Value: 20},
			{When: scoring.Between(r.Min-2, r.Max+2), Value: 5},
			{When: scoring.Between(r.Min-5, r.Max+5), Value: -10},
		},
		Fallback: -40,
	}
	return t.Impact(tempC)
}

func (m *YieldModel) SunlightImpact(hours float64) float64 {
	return m.sunlight.Impact(hours)
}

// PressureImpact scores pest and disease pressure alike.
func (m *YieldModel) PressureImpact(pressure float64) float64 {
	return m.pressure.Impact(pressure)
}

func (m *YieldModel) FertilizerImpact(crop string, appliedKgHa float64) float64 {
	return m.fertilizer.Impact(appliedKgHa / m.tables.FertilizerOptimum(crop))
}

func confidence(in entities.YieldPredictionInput) float64 {
	c := baseConfidence
	if in.HistoricalYield != nil {
		c += historicalBonus
	}
	if in.PestPressure > 60 || in.DiseasePressure > 60 {
		c -= pressurePenalty
	}
	if in.WaterAvailability < 30 || in.WaterAvailability > 90 {
		c -= waterExtremesPenalty
	}
	return scoring.Clamp(c, minConfidence, maxConfidence)
}

func yieldRecommendations(in entities.YieldPredictionInput) []string {
	var out []string
	if in.SoilFertility < 60 {
		out = append(out, "Improve soil fertility with organic matter or a balanced fertilizer program")
	}
	if in.WaterAvailability < 50 {
		out = append(out, "Increase irrigation to keep water availability above 50%")
	}
	if in.PestPressure > 50 {
		out = append(out, "Apply integrated pest management (IPM) to reduce pest pressure")
	}
	if in.DiseasePressure > 50 {
		out = append(out, "Apply preventive disease control and improve field sanitation")
	}
	if in.Sunlight < 8 {
		out = append(out, "Consider shade-tolerant varieties or adjust planting density for limited sunlight")
	}
	if len(out) == 0 {
		out = append(out, "Maintain current practices: conditions are favourable for this crop")
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

func verdict(impact float64) string {
	switch {
	case impact >= 15:
		return "optimal"
	case impact > 0:
		return "favourable"
	case impact == 0:
		return "neutral"
	case impact > -30:
		return "limiting"
	default:
		return "severely limiting"
	}
}

func validateYield(in entities.YieldPredictionInput) error {
	var v validator
	v.nonNegative("field_area", in.FieldArea)
	v.percent("soil_fertility", in.SoilFertility)
	v.percent("water_availability", in.WaterAvailability)
	v.finite("temperature", in.Temperature)
	v.nonNegative("rainfall", in.Rainfall)
	v.within("sunlight", in.Sunlight, 0, 24)
	v.percent("pest_pressure", in.PestPressure)
	v.percent("disease_pressure", in.DiseasePressure)
	v.nonNegative("fertilizer_applied", in.FertilizerApplied)
	if in.HistoricalYield != nil {
		v.nonNegative("historical_yield", *in.HistoricalYield)
	}
	return v.err()
}
