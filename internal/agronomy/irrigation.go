package agronomy

import (
	"fmt"
	"math"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/scoring"
)

// IrrigationEngine turns moisture readings, field parameters and the weather
// forecast into one irrigation recommendation. It holds no mutable state and
// is safe for concurrent use.
type IrrigationEngine struct {
	tables   Tables
	rules    []irrigationRule
	tempAdj  scoring.Ladder
	humidAdj scoring.Ladder
}

// irrigationRule is one guard/action pair; rules are tried in order and the
// first guard that holds decides the recommendation.
type irrigationRule struct {
	name string
	when func(e *evaluation) bool
	then func(e *evaluation) entities.IrrigationRecommendation
}

type evaluation struct {
	in      entities.IrrigationInput
	params  IrrigationParams
	flowLpm float64
	density float64

	cropWater     float64
	weatherFactor float64
}

func NewIrrigationEngine(tables Tables) *IrrigationEngine {
	return &IrrigationEngine{
		tables: tables.orDefault(),
		rules:  irrigationRules(),
		tempAdj: scoring.Ladder{
			Bounds: []float64{10, 15, 20, 25, 30, 35},
			Values: []float64{0.5, 0.7, 0.85, 1.0, 1.15, 1.3, 1.4},
		},
		humidAdj: scoring.Ladder{
			Bounds:      []float64{30, 40, 60, 80},
			Values:      []float64{1.3, 1.15, 1.0, 0.85, 0.7},
			EdgeToLower: true,
		},
	}
}

// RuleNames lists the decision rules in evaluation order.
func (ie *IrrigationEngine) RuleNames() []string {
	out := make([]string, len(ie.rules))
	for i, r := range ie.rules {
		out[i] = r.name
	}
	return out
}

// Recommend evaluates in with the configured default flow rate.
func (ie *IrrigationEngine) Recommend(in entities.IrrigationInput) (entities.IrrigationRecommendation, error) {
	return ie.RecommendWithFlow(in, ie.tables.Irrigation().FlowRateLpm)
}

// RecommendWithFlow evaluates in for an irrigation line delivering flowLpm
// liters per minute.
func (ie *IrrigationEngine) RecommendWithFlow(in entities.IrrigationInput, flowLpm float64) (entities.IrrigationRecommendation, error) {
	if err := validateIrrigation(in, flowLpm); err != nil {
		return entities.IrrigationRecommendation{}, err
	}

	e := &evaluation{
		in:      in,
		params:  ie.tables.Irrigation(),
		flowLpm: flowLpm,
		density: ie.tables.BulkDensity(in.SoilType),
	}
	e.cropWater = ie.CropWaterRequirement(in.CropType, in.Temperature, in.Humidity)
	e.weatherFactor = weatherFactor(in.RainfallForecast, e.params.RainNeutralMM)

	for _, r := range ie.rules {
		if r.when(e) {
			return r.then(e), nil
		}
	}
	// unreachable: the last rule always holds
	return e.recommend(entities.Skip, entities.PriorityLow, 0, "no rule matched"), nil
}

// CropWaterRequirement is the crop's daily need in mm adjusted for
// temperature and humidity.
func (ie *IrrigationEngine) CropWaterRequirement(crop string, tempC, humidity float64) float64 {
	base := ie.tables.CropWaterRequirement(crop)
	return base * ie.tempAdj.Value(tempC) * ie.humidAdj.Value(humidity)
}

func irrigationRules() []irrigationRule {
	return []irrigationRule{
		{
			name: "critical_deficit",
			when: func(e *evaluation) bool { return e.in.CurrentMoisture <= e.in.MinMoisture },
			then: func(e *evaluation) entities.IrrigationRecommendation {
				return e.recommend(entities.IrrigateNow, entities.PriorityCritical, e.deficit(),
					fmt.Sprintf("Soil moisture %.1f%% is at or below the minimum of %.1f%%: irrigate immediately",
						e.in.CurrentMoisture, e.in.MinMoisture))
			},
		},
		{
			name: "depletion_reached",
			when: func(e *evaluation) bool { return e.in.CurrentMoisture <= e.depletionThreshold() },
			then: func(e *evaluation) entities.IrrigationRecommendation {
				if e.in.RainfallForecast > e.params.RainDelayMM {
					return e.recommend(entities.Delay, entities.PriorityMedium, 0,
						fmt.Sprintf("Soil moisture %.1f%% has reached the depletion threshold of %.1f%% but %.1f mm of rain is forecast: delay irrigation",
							e.in.CurrentMoisture, e.depletionThreshold(), e.in.RainfallForecast))
				}
				return e.recommend(entities.IrrigateNow, entities.PriorityHigh, e.deficit(),
					fmt.Sprintf("Soil moisture %.1f%% has reached the depletion threshold of %.1f%%: irrigate to restore %.1f%%",
						e.in.CurrentMoisture, e.depletionThreshold(), e.in.TargetMoisture))
			},
		},
		{
			name: "overwatered",
			when: func(e *evaluation) bool { return e.in.CurrentMoisture >= e.in.MaxMoisture },
			then: func(e *evaluation) entities.IrrigationRecommendation {
				return e.recommend(entities.Skip, entities.PriorityHigh, 0,
					fmt.Sprintf("Soil moisture %.1f%% is at or above the maximum of %.1f%%: skip irrigation to avoid waterlogging",
						e.in.CurrentMoisture, e.in.MaxMoisture))
			},
		},
		{
			name: "rain_expected",
			when: func(e *evaluation) bool { return e.in.RainfallForecast > e.params.RainSkipMM },
			then: func(e *evaluation) entities.IrrigationRecommendation {
				return e.recommend(entities.Skip, entities.PriorityMedium, 0,
					fmt.Sprintf("%.1f mm of rain is forecast, enough to cover the crop need", e.in.RainfallForecast))
			},
		},
		{
			name: "below_target",
			when: func(e *evaluation) bool { return e.in.CurrentMoisture < e.in.TargetMoisture },
			then: func(e *evaluation) entities.IrrigationRecommendation {
				return e.recommend(entities.Increase, entities.PriorityLow, e.deficit()/2,
					fmt.Sprintf("Soil moisture %.1f%% is below the target of %.1f%%: top up with a light irrigation",
						e.in.CurrentMoisture, e.in.TargetMoisture))
			},
		},
		{
			name: "optimal",
			when: func(*evaluation) bool { return true },
			then: func(e *evaluation) entities.IrrigationRecommendation {
				return e.recommend(entities.Skip, entities.PriorityLow, 0,
					fmt.Sprintf("Soil moisture %.1f%% is within the optimal range", e.in.CurrentMoisture))
			},
		},
	}
}

func (e *evaluation) deficit() float64 {
	return e.in.TargetMoisture - e.in.CurrentMoisture
}

func (e *evaluation) depletionThreshold() float64 {
	allowance := e.params.DepletionFraction * (e.in.FieldCapacity - e.in.WiltingPoint)
	return e.in.TargetMoisture - allowance
}

func (e *evaluation) recommend(t entities.RecommendationType, p entities.Priority, deficitPct float64, reason string) entities.IrrigationRecommendation {
	liters := waterVolume(deficitPct, e.params.RootDepthCm, e.density, e.in.AreaHectares)
	return entities.IrrigationRecommendation{
		Type:                       t,
		Priority:                   p,
		Reason:                     reason,
		RecommendedDurationMinutes: durationMinutes(liters, e.flowLpm),
		EstimatedWaterNeeded:       liters,
		WeatherFactor:              e.weatherFactor,
		SoilMoistureFactor:         e.in.CurrentMoisture,
		CropWaterRequirement:       e.cropWater,
	}
}

// waterVolume converts a moisture deficit (percentage points) over the root
// zone into liters, rounded to centiliters.
func waterVolume(deficitPct, rootDepthCm, bulkDensity, areaHa float64) float64 {
	if deficitPct <= 0 || areaHa <= 0 {
		return 0
	}
	liters := deficitPct / 100 * rootDepthCm * bulkDensity * 10000 * areaHa
	return math.Round(liters*100) / 100
}

func durationMinutes(liters, flowLpm float64) int {
	if liters <= 0 || flowLpm <= 0 {
		return 0
	}
	return int(math.Ceil(liters / flowLpm))
}

// weatherFactor is the share of irrigation still needed once the forecast
// rain is accounted for, in percent.
func weatherFactor(rainMM, neutralMM float64) float64 {
	f := 1.0
	if rainMM > 0 {
		f = 1 - rainMM/neutralMM
	}
	return scoring.Clamp(f*100, 0, 100)
}

func validateIrrigation(in entities.IrrigationInput, flowLpm float64) error {
	var v validator
	v.percent("current_moisture", in.CurrentMoisture)
	v.percent("target_moisture", in.TargetMoisture)
	v.percent("min_moisture", in.MinMoisture)
	v.percent("max_moisture", in.MaxMoisture)
	v.percent("field_capacity", in.FieldCapacity)
	v.percent("wilting_point", in.WiltingPoint)
	if scoring.Finite(in.FieldCapacity) && scoring.Finite(in.WiltingPoint) && in.FieldCapacity <= in.WiltingPoint {
		v.fail("field_capacity", fmt.Sprintf("must exceed wilting point (%g <= %g)", in.FieldCapacity, in.WiltingPoint))
	}
	v.positive("area_hectares", in.AreaHectares)
	v.finite("temperature", in.Temperature)
	v.percent("humidity", in.Humidity)
	v.nonNegative("rainfall_forecast", in.RainfallForecast)
	v.nonNegative("evapotranspiration_rate", in.EvapotranspirationRate)
	v.positive("flow_rate", flowLpm)
	return v.err()
}
