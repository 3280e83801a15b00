package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

// ErrNoReadings is returned when the store has nothing for a sensor.
var ErrNoReadings = errors.New("no readings")

const (
	latestLookback    = 24 * time.Hour
	maxWindowReadings = 500
)

// ReadingStore serves the moisture history of a sensor.
type ReadingStore interface {
	Latest(ctx context.Context, fieldID, sensorID string) (entities.MoistureReading, error)
	Window(ctx context.Context, fieldID, sensorID string, window time.Duration) ([]entities.MoistureReading, error)
}

// RecommendationWriter persists emitted recommendations.
type RecommendationWriter interface {
	WriteRecommendation(ctx context.Context, evt messages.RecommendationEvent) error
}

type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string // moisture readings
	EventsName  string // recommendations
}

// InfluxStore reads sensor history and writes recommendations to InfluxDB.
type InfluxStore struct {
	client      influxdb2.Client
	query       api.QueryAPI
	write       api.WriteAPIBlocking
	bucket      string
	measurement string
	events      string
	cb          *gobreaker.CircuitBreaker
}

func NewInfluxStore(cfg InfluxConfig, cb *gobreaker.CircuitBreaker) (*InfluxStore, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = "soil_moisture"
	}
	if cfg.EventsName == "" {
		cfg.EventsName = "irrigation_recommendation"
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxStore{
		client:      client,
		query:       client.QueryAPI(cfg.Org),
		write:       client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:      cfg.Bucket,
		measurement: cfg.Measurement,
		events:      cfg.EventsName,
		cb:          cb,
	}, nil
}

func (s *InfluxStore) Close() {
	s.client.Close()
}

// Ping reports whether the InfluxDB server answers.
func (s *InfluxStore) Ping(ctx context.Context) bool {
	ok, err := s.client.Ping(ctx)
	return err == nil && ok
}

func buildMoistureFlux(bucket, measurement, fieldID, sensorID string, window time.Duration, limit int) string {
	minutes := int(math.Ceil(window.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.field_id == %q and r.sensor_id == %q)
  |> filter(fn: (r) => r._field == "moisture")
  |> keep(columns: ["_time","_value"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, measurement, fieldID, sensorID, limit)
}

func (s *InfluxStore) Latest(ctx context.Context, fieldID, sensorID string) (entities.MoistureReading, error) {
	rs, err := s.run(ctx, buildMoistureFlux(s.bucket, s.measurement, fieldID, sensorID, latestLookback, 1))
	if err != nil {
		return entities.MoistureReading{}, err
	}
	if len(rs) == 0 {
		return entities.MoistureReading{}, fmt.Errorf("%w: %s/%s", ErrNoReadings, fieldID, sensorID)
	}
	return rs[0], nil
}

func (s *InfluxStore) Window(ctx context.Context, fieldID, sensorID string, window time.Duration) ([]entities.MoistureReading, error) {
	return s.run(ctx, buildMoistureFlux(s.bucket, s.measurement, fieldID, sensorID, window, maxWindowReadings))
}

func (s *InfluxStore) run(ctx context.Context, flux string) ([]entities.MoistureReading, error) {
	res, err := s.cb.Execute(func() (any, error) {
		result, err := s.query.Query(ctx, flux)
		if err != nil {
			return nil, err
		}
		defer result.Close()

		var out []entities.MoistureReading
		for result.Next() {
			rec := result.Record()
			v, ok := toFloat(rec.Value())
			if !ok {
				continue
			}
			out = append(out, entities.MoistureReading{Moisture: v, Timestamp: rec.Time().UTC()})
		}
		if result.Err() != nil {
			return nil, result.Err()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	rs, _ := res.([]entities.MoistureReading)
	return rs, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func recommendationPoint(measurement string, evt messages.RecommendationEvent) *write.Point {
	rec := evt.Recommendation
	tags := map[string]string{
		"field_id":  evt.FieldID,
		"sensor_id": evt.SensorID,
		"type":      string(rec.Type),
		"priority":  string(rec.Priority),
		"trend":     string(evt.Trend),
	}
	fields := map[string]interface{}{
		"event_id":       evt.ID,
		"moisture":       evt.Moisture,
		"water_l":        rec.EstimatedWaterNeeded,
		"duration_min":   int64(rec.RecommendedDurationMinutes),
		"weather_factor": rec.WeatherFactor,
		"crop_water_mm":  rec.CropWaterRequirement,
		"reason":         rec.Reason,
	}
	t := evt.Timestamp
	if t.IsZero() {
		t = time.Now()
	}
	return influxdb2.NewPoint(measurement, tags, fields, t)
}

func (s *InfluxStore) WriteRecommendation(ctx context.Context, evt messages.RecommendationEvent) error {
	return s.write.WritePoint(ctx, recommendationPoint(s.events, evt))
}
