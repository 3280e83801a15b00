package agronomy

import (
	"fmt"
	"sort"
	"strings"
)

// TemperatureRange is the optimal growing band of a crop, °C.
type TemperatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IrrigationParams are the field-independent constants of the water balance.
type IrrigationParams struct {
	RootDepthCm       float64 `json:"root_depth_cm"`
	FlowRateLpm       float64 `json:"flow_rate_lpm"`
	DepletionFraction float64 `json:"depletion_fraction"`
	RainDelayMM       float64 `json:"rain_delay_mm"` // rain that postpones a high-priority irrigation
	RainSkipMM        float64 `json:"rain_skip_mm"`  // rain that makes irrigation unnecessary
	RainNeutralMM     float64 `json:"rain_neutral_mm"`
}

// YieldWeights are the factor weights of the yield estimate. Rainfall is
// folded into the water factor and is not applied on its own.
type YieldWeights struct {
	SoilFertility     float64 `json:"soil_fertility"`
	WaterAvailability float64 `json:"water_availability"`
	Temperature       float64 `json:"temperature"`
	Rainfall          float64 `json:"rainfall"`
	Sunlight          float64 `json:"sunlight"`
	PestPressure      float64 `json:"pest_pressure"`
	DiseasePressure   float64 `json:"disease_pressure"`
	Fertilizer        float64 `json:"fertilizer"`
}

// Tables is the read-only configuration shared by the calculators. A Tables
// value is built once by NewTables and never mutated afterwards; lookups
// fall back to documented defaults for unknown keys.
type Tables struct {
	ready bool

	cropWater   map[string]float64 // mm/day
	bulkDensity map[string]float64 // g/cm³
	baseYield   map[string]float64 // kg/ha
	tempRange   map[string]TemperatureRange
	fertilizer  map[string]float64 // kg/ha

	irrigation IrrigationParams
	weights    YieldWeights
}

const (
	defaultCropWater   = 4.0
	defaultBulkDensity = 1.4
	defaultBaseYield   = 5000.0
	defaultFertilizer  = 100.0
)

var defaultTempRange = TemperatureRange{Min: 20, Max: 28}

// Option adjusts the tables while they are being built.
type Option func(*Tables) error

func WithCropWaterRequirement(crop string, mmPerDay float64) Option {
	return func(t *Tables) error {
		if mmPerDay <= 0 {
			return fmt.Errorf("crop water requirement for %q must be positive", crop)
		}
		t.cropWater[normKey(crop)] = mmPerDay
		return nil
	}
}

func WithBulkDensity(soil string, gcm3 float64) Option {
	return func(t *Tables) error {
		if gcm3 <= 0 {
			return fmt.Errorf("bulk density for %q must be positive", soil)
		}
		t.bulkDensity[normKey(soil)] = gcm3
		return nil
	}
}

func WithBaseYield(crop string, kgPerHa float64) Option {
	return func(t *Tables) error {
		if kgPerHa < 0 {
			return fmt.Errorf("base yield for %q must not be negative", crop)
		}
		t.baseYield[normKey(crop)] = kgPerHa
		return nil
	}
}

func WithTemperatureRange(crop string, r TemperatureRange) Option {
	return func(t *Tables) error {
		if r.Min > r.Max {
			return fmt.Errorf("temperature range for %q is inverted", crop)
		}
		t.tempRange[normKey(crop)] = r
		return nil
	}
}

func WithFertilizerOptimum(crop string, kgPerHa float64) Option {
	return func(t *Tables) error {
		if kgPerHa <= 0 {
			return fmt.Errorf("fertilizer optimum for %q must be positive", crop)
		}
		t.fertilizer[normKey(crop)] = kgPerHa
		return nil
	}
}

func WithIrrigationParams(p IrrigationParams) Option {
	return func(t *Tables) error {
		if p.RootDepthCm <= 0 || p.FlowRateLpm <= 0 {
			return fmt.Errorf("root depth and flow rate must be positive")
		}
		if p.DepletionFraction <= 0 || p.DepletionFraction > 1 {
			return fmt.Errorf("depletion fraction must be in (0,1]")
		}
		if p.RainNeutralMM <= 0 {
			return fmt.Errorf("rain neutral amount must be positive")
		}
		t.irrigation = p
		return nil
	}
}

func WithYieldWeights(w YieldWeights) Option {
	return func(t *Tables) error {
		t.weights = w
		return nil
	}
}

// DefaultTables returns the seeded tables.
func DefaultTables() Tables {
	t, _ := NewTables()
	return t
}

// NewTables builds the seeded tables and applies opts on top of them.
func NewTables(opts ...Option) (Tables, error) {
	t := Tables{
		ready: true,
		cropWater: map[string]float64{
			"rice":       7.0,
			"wheat":      4.5,
			"corn":       5.5,
			"soybean":    5.0,
			"cotton":     6.0,
			"vegetables": 4.5,
		},
		bulkDensity: map[string]float64{
			"clay":  1.3,
			"sandy": 1.6,
			"loam":  1.4,
			"silt":  1.3,
		},
		baseYield: map[string]float64{
			"rice":    5000,
			"wheat":   3500,
			"corn":    9000,
			"soybean": 2800,
			"cotton":  2500,
			"potato":  25000,
			"tomato":  40000,
			"sorghum": 3200,
			"barley":  3000,
			"cassava": 12000,
		},
		tempRange: map[string]TemperatureRange{
			"rice":    {Min: 25, Max: 30},
			"wheat":   {Min: 18, Max: 22},
			"corn":    {Min: 20, Max: 28},
			"soybean": {Min: 20, Max: 25},
			"cotton":  {Min: 25, Max: 32},
		},
		fertilizer: map[string]float64{
			"rice":    100,
			"wheat":   120,
			"corn":    150,
			"soybean": 50,
			"cotton":  80,
		},
		irrigation: IrrigationParams{
			RootDepthCm:       30,
			FlowRateLpm:       1000,
			DepletionFraction: 0.5,
			RainDelayMM:       10,
			RainSkipMM:        15,
			RainNeutralMM:     25,
		},
		weights: YieldWeights{
			SoilFertility:     0.25,
			WaterAvailability: 0.20,
			Temperature:       0.15,
			Rainfall:          0.10,
			Sunlight:          0.10,
			PestPressure:      0.10,
			DiseasePressure:   0.10,
			Fertilizer:        0.10,
		},
	}
	for _, opt := range opts {
		if err := opt(&t); err != nil {
			return Tables{}, err
		}
	}
	return t, nil
}

// orDefault returns t, or the default tables when t is the zero value.
func (t Tables) orDefault() Tables {
	if !t.ready {
		return DefaultTables()
	}
	return t
}

func (t Tables) CropWaterRequirement(crop string) float64 {
	return lookup(t.cropWater, crop, defaultCropWater)
}

func (t Tables) BulkDensity(soil string) float64 {
	return lookup(t.bulkDensity, soil, defaultBulkDensity)
}

func (t Tables) BaseYield(crop string) float64 {
	return lookup(t.baseYield, crop, defaultBaseYield)
}

func (t Tables) FertilizerOptimum(crop string) float64 {
	return lookup(t.fertilizer, crop, defaultFertilizer)
}

func (t Tables) TemperatureRange(crop string) TemperatureRange {
	if r, ok := t.tempRange[normKey(crop)]; ok {
		return r
	}
	return defaultTempRange
}

func (t Tables) Irrigation() IrrigationParams { return t.irrigation }

func (t Tables) Weights() YieldWeights { return t.weights }

// Crops lists the varieties with a seeded base yield, sorted.
func (t Tables) Crops() []string {
	out := make([]string, 0, len(t.baseYield))
	for k := range t.baseYield {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KnownCrop returns the normalized crop key and whether it has a seeded base yield.
func (t Tables) KnownCrop(crop string) (string, bool) {
	k := normKey(crop)
	_, ok := t.orDefault().baseYield[k]
	return k, ok
}

func lookup(m map[string]float64, key string, def float64) float64 {
	if v, ok := m[normKey(key)]; ok {
		return v
	}
	return def
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
