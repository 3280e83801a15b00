package agronomy

import (
	"testing"
)

func TestDefaultTablesLookups(t *testing.T) {
	tb := DefaultTables()
	if got := tb.BulkDensity("Sandy "); got != 1.6 {
		t.Fatalf("expected keys to be normalized, got %v", got)
	}
	if got := tb.BulkDensity("peat"); got != defaultBulkDensity {
		t.Fatalf("expected default density, got %v", got)
	}
	if got := tb.BaseYield("durian"); got != 5000 {
		t.Fatalf("expected default base yield 5000, got %v", got)
	}
	if got := tb.TemperatureRange("cotton"); got != (TemperatureRange{Min: 25, Max: 32}) {
		t.Fatalf("unexpected cotton range %+v", got)
	}
	if got := len(tb.Crops()); got != 10 {
		t.Fatalf("expected 10 seeded crops, got %d", got)
	}
	w := tb.Weights()
	primary := w.SoilFertility + w.WaterAvailability + w.Temperature + w.Sunlight + w.PestPressure + w.DiseasePressure
	if !approx(primary, 0.90, 1e-9) || w.Fertilizer != 0.10 {
		t.Fatalf("unexpected weights %+v", w)
	}
}

func TestNewTablesOverridesAreIsolated(t *testing.T) {
	custom, err := NewTables(WithBaseYield("rice", 6000), WithBulkDensity("peat", 0.4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if custom.BaseYield("rice") != 6000 || custom.BulkDensity("peat") != 0.4 {
		t.Fatal("expected overrides to apply")
	}
	if DefaultTables().BaseYield("rice") != 5000 {
		t.Fatal("expected defaults to be unaffected by overrides")
	}

	in := riceInput()
	p, err := NewYieldModel(custom).Predict(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.EstimatedYield != 6990 {
		t.Fatalf("expected 6990 from custom base yield, got %v", p.EstimatedYield)
	}
}

func TestNewTablesRejectsBadOptions(t *testing.T) {
	bad := []Option{
		WithBulkDensity("clay", 0),
		WithTemperatureRange("rice", TemperatureRange{Min: 30, Max: 20}),
		WithFertilizerOptimum("rice", 0),
		WithIrrigationParams(IrrigationParams{RootDepthCm: 30, FlowRateLpm: 0, DepletionFraction: 0.5, RainNeutralMM: 25}),
		WithIrrigationParams(IrrigationParams{RootDepthCm: 30, FlowRateLpm: 10, DepletionFraction: 1.5, RainNeutralMM: 25}),
	}
	for i, opt := range bad {
		if _, err := NewTables(opt); err == nil {
			t.Fatalf("option %d: expected an error", i)
		}
	}
}
