package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

const (
	defaultSeed  = 30.0 // %
	soilGridsURL = "https://rest.isric.org/soilgrids/v2.0/properties/query"
)

// DataGenerator evolves the soil moisture of one sensor: it decays while the
// line is idle and rises while an irrigation is running.
type DataGenerator struct {
	mu          sync.Mutex
	seeded      bool
	moisture    float64 // %
	decayPerMin float64 // percentage points per minute
	gainPerMin  float64
	last        time.Time
	wetUntil    time.Time
	now         func() time.Time

	http    *http.Client
	baseURL string
}

func NewDataGenerator(decayPerMin, gainPerMin float64) *DataGenerator {
	return &DataGenerator{
		decayPerMin: math.Max(0, decayPerMin),
		gainPerMin:  math.Max(0, gainPerMin),
		now:         time.Now,
		http:        &http.Client{Timeout: 8 * time.Second},
		baseURL:     soilGridsURL,
	}
}

// Seed sets the starting moisture.
func (g *DataGenerator) Seed(moisture float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.moisture = clampPct(moisture)
	g.last = g.now()
	g.seeded = true
}

// SeedFromSoilGrids seeds from the SoilGrids volumetric water content at
// 10 kPa for the sensor location, or from the default when unavailable.
func (g *DataGenerator) SeedFromSoilGrids(ctx context.Context, s entities.Sensor) {
	seed := defaultSeed
	if s.Latitude != 0 || s.Longitude != 0 {
		m, err := g.fetchSoilMoisture(ctx, s.Latitude, s.Longitude)
		if err != nil {
			log.Printf("simulator: soilgrids unavailable, seeding %.0f%%: %v", defaultSeed, err)
		} else {
			seed = m
		}
	}
	g.Seed(seed)
}

// Irrigate keeps the line open for d from now.
func (g *DataGenerator) Irrigate(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	until := g.now().Add(d)
	if until.After(g.wetUntil) {
		g.wetUntil = until
	}
}

func (g *DataGenerator) Irrigating() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.wetUntil)
}

// Next advances the model to now and returns a raw reading.
func (g *DataGenerator) Next(s entities.Sensor) messages.SensorData {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	return messages.SensorData{
		FieldID:   s.FieldID,
		SensorID:  s.ID,
		Moisture:  math.Round(g.moisture*10) / 10,
		Timestamp: g.last.UTC(),
	}
}

// advance integrates the wet and dry phases since the last update.
func (g *DataGenerator) advance() {
	now := g.now()
	if !g.seeded {
		g.moisture = defaultSeed
		g.last = now
		g.seeded = true
		return
	}
	if !now.After(g.last) {
		return
	}
	wetEnd := g.wetUntil
	if wetEnd.After(now) {
		wetEnd = now
	}
	var wet time.Duration
	if wetEnd.After(g.last) {
		wet = wetEnd.Sub(g.last)
	}
	dry := now.Sub(g.last) - wet
	g.moisture = clampPct(g.moisture + g.gainPerMin*wet.Minutes() - g.decayPerMin*dry.Minutes())
	g.last = now
}

type soilGridsResp struct {
	Properties struct {
		Layers []struct {
			Name        string `json:"name"`
			UnitMeasure struct {
				DFactor float64 `json:"d_factor"`
			} `json:"unit_measure"`
			Depths []struct {
				Label  string `json:"label"`
				Values struct {
					Mean *float64 `json:"mean"`
				} `json:"values"`
			} `json:"depths"`
		} `json:"layers"`
	} `json:"properties"`
}

func (g *DataGenerator) fetchSoilMoisture(ctx context.Context, lat, lon float64) (float64, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&property=wv0010&depth=0-5cm&value=mean", g.baseURL, lat, lon)

	var out float64
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "sdcc-sensor-simulator/1.0")
		resp, err := g.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("soilgrids HTTP %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("soilgrids HTTP %d", resp.StatusCode))
		}
		m, err := parseSoilGrids(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		out = m
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 600 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 1), ctx)); err != nil {
		return 0, err
	}
	return out, nil
}

// parseSoilGrids returns the first mean value of the wv0010 layer in percent.
func parseSoilGrids(body []byte) (float64, error) {
	var r soilGridsResp
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, err
	}
	for _, l := range r.Properties.Layers {
		if l.Name != "wv0010" {
			continue
		}
		d := l.UnitMeasure.DFactor
		if d <= 0 {
			d = 1
		}
		for _, dp := range l.Depths {
			if dp.Values.Mean != nil {
				return clampPct(*dp.Values.Mean / d), nil
			}
		}
	}
	return 0, fmt.Errorf("soilgrids: wv0010 mean not found")
}

func clampPct(x float64) float64 {
	return math.Max(0, math.Min(100, x))
}
