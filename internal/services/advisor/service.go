package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

// Deps wires the advisor. Store, Writer, Sink, Consumer and Metrics are optional.
type Deps struct {
	Tables      agronomy.Tables
	Fields      *FieldRegistry
	Weather     WeatherClient
	Store       ReadingStore
	Writer      RecommendationWriter
	Sink        Sink
	Consumer    rabbitmq.IConsumer
	Metrics     *Metrics
	Dedup       *dedup.Deduper
	TrendWindow time.Duration
	Now         func() time.Time

	// Readiness checks reported by /readyz, keyed by dependency name.
	Readiness map[string]func(ctx context.Context) bool
}

// Service evaluates sensor readings against the field profiles and publishes
// irrigation recommendations. It also serves ad-hoc recommendations and yield
// predictions for the HTTP and gRPC APIs.
type Service struct {
	tables      agronomy.Tables
	engine      *agronomy.IrrigationEngine
	yield       *agronomy.YieldModel
	fields      *FieldRegistry
	weather     WeatherClient
	store       ReadingStore
	writer      RecommendationWriter
	sink        Sink
	consumer    rabbitmq.IConsumer
	metrics     *Metrics
	deduper     *dedup.Deduper
	trendWindow time.Duration
	now         func() time.Time
	readiness   map[string]func(ctx context.Context) bool
}

func NewService(d Deps) (*Service, error) {
	if d.Fields == nil {
		return nil, fmt.Errorf("field registry required")
	}
	if d.Weather == nil {
		return nil, fmt.Errorf("weather client required")
	}
	if d.Dedup == nil {
		d.Dedup = dedup.New(10*time.Minute, 10000)
	}
	if d.TrendWindow <= 0 {
		d.TrendWindow = 24 * time.Hour
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		tables:      d.Tables,
		engine:      agronomy.NewIrrigationEngine(d.Tables),
		yield:       agronomy.NewYieldModel(d.Tables),
		fields:      d.Fields,
		weather:     d.Weather,
		store:       d.Store,
		writer:      d.Writer,
		sink:        d.Sink,
		consumer:    d.Consumer,
		metrics:     d.Metrics,
		deduper:     d.Dedup,
		trendWindow: d.TrendWindow,
		now:         d.Now,
		readiness:   d.Readiness,
	}, nil
}

// Start consumes aggregated readings until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.consumer == nil {
		<-ctx.Done()
		return
	}
	s.consumer.SetHandler(func(topic string, msg mqtt.Message) error {
		return s.handleReading(ctx, topic, msg.Payload())
	})
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handleReading(ctx context.Context, topic string, payload []byte) error {
	if !s.deduper.ShouldProcessPayload(payload) {
		s.metrics.duplicate()
		return nil
	}
	var m messages.SensorData
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("advisor: invalid JSON on %s: %v", topic, err)
		return nil
	}
	if !m.Aggregated {
		return nil
	}
	at := m.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	evt, err := s.Evaluate(ctx, m.FieldID, m.SensorID, m.Moisture, at)
	if err != nil {
		if errors.Is(err, ErrUnknownSensor) || errors.Is(err, agronomy.ErrInvalidInput) {
			log.Printf("advisor: skip field=%s sensor=%s: %v", m.FieldID, m.SensorID, err)
			return nil
		}
		return err
	}

	if s.sink != nil {
		if err := s.sink.Publish(ctx, evt); err != nil {
			log.Printf("advisor: publish id=%s err=%v", evt.ID, err)
		}
	}
	if s.writer != nil {
		if err := s.writer.WriteRecommendation(ctx, evt); err != nil {
			log.Printf("advisor: store id=%s err=%v", evt.ID, err)
		}
	}
	rec := evt.Recommendation
	log.Printf("advisor: field=%s sensor=%s moisture=%.1f trend=%s type=%s priority=%s water_l=%.0f minutes=%d",
		evt.FieldID, evt.SensorID, evt.Moisture, evt.Trend, rec.Type, rec.Priority, rec.EstimatedWaterNeeded, rec.RecommendedDurationMinutes)
	return nil
}

// Evaluate builds the recommendation event for one sensor reading.
func (s *Service) Evaluate(ctx context.Context, fieldID, sensorID string, moisture float64, at time.Time) (messages.RecommendationEvent, error) {
	field, sensor, err := s.fields.Lookup(fieldID, sensorID)
	if err != nil {
		return messages.RecommendationEvent{}, err
	}

	fc := s.forecast(ctx, sensor, at)
	in := entities.IrrigationInput{
		CurrentMoisture:        moisture,
		TargetMoisture:         field.TargetMoisture,
		MinMoisture:            field.MinMoisture,
		MaxMoisture:            field.MaxMoisture,
		FieldCapacity:          field.Soil.FieldCapacity,
		WiltingPoint:           field.Soil.WiltingPoint,
		AreaHectares:           field.AreaHectares,
		CropType:               field.CropType,
		SoilType:               field.Soil.Type,
		Temperature:            fc.TempC,
		Humidity:               fc.Humidity,
		RainfallForecast:       fc.RainMM,
		EvapotranspirationRate: fc.ET0MM,
	}
	rec, err := s.Recommend(in, sensor.FlowLpm)
	if err != nil {
		return messages.RecommendationEvent{}, err
	}

	return messages.RecommendationEvent{
		ID:             uuid.NewString(),
		FieldID:        fieldID,
		SensorID:       sensorID,
		Moisture:       moisture,
		Trend:          s.trend(ctx, fieldID, sensorID, entities.MoistureReading{Moisture: moisture, Timestamp: at}),
		Recommendation: rec,
		Timestamp:      at.UTC(),
	}, nil
}

// EvaluateLatest evaluates the newest stored reading of a sensor.
func (s *Service) EvaluateLatest(ctx context.Context, fieldID, sensorID string) (messages.RecommendationEvent, error) {
	if s.store == nil {
		return messages.RecommendationEvent{}, ErrNoReadings
	}
	r, err := s.store.Latest(ctx, fieldID, sensorID)
	if err != nil {
		return messages.RecommendationEvent{}, err
	}
	return s.Evaluate(ctx, fieldID, sensorID, r.Moisture, r.Timestamp)
}

// Recommend runs the irrigation engine; flowLpm <= 0 uses the default line flow.
func (s *Service) Recommend(in entities.IrrigationInput, flowLpm float64) (entities.IrrigationRecommendation, error) {
	var (
		rec entities.IrrigationRecommendation
		err error
	)
	if flowLpm > 0 {
		rec, err = s.engine.RecommendWithFlow(in, flowLpm)
	} else {
		rec, err = s.engine.Recommend(in)
	}
	if err != nil {
		if errors.Is(err, agronomy.ErrInvalidInput) {
			s.metrics.invalidInput("recommend")
		}
		return entities.IrrigationRecommendation{}, err
	}
	s.metrics.observeRecommendation(rec)
	return rec, nil
}

func (s *Service) PredictYield(in entities.YieldPredictionInput) (entities.YieldPrediction, error) {
	p, err := s.yield.Predict(in)
	if err != nil {
		if errors.Is(err, agronomy.ErrInvalidInput) {
			s.metrics.invalidInput("predict_yield")
		}
		return entities.YieldPrediction{}, err
	}
	s.metrics.observePrediction(s.cropLabel(in.CropVariety), p)
	return p, nil
}

// Ready runs the readiness checks.
func (s *Service) Ready(ctx context.Context) (bool, map[string]bool) {
	out := make(map[string]bool, len(s.readiness))
	ready := true
	for name, check := range s.readiness {
		ok := check(ctx)
		out[name] = ok
		ready = ready && ok
	}
	return ready, out
}

// TrendFor classifies the stored history of a sensor over window.
func (s *Service) TrendFor(ctx context.Context, fieldID, sensorID string, window time.Duration) (entities.Trend, int, error) {
	if _, _, err := s.fields.Lookup(fieldID, sensorID); err != nil {
		return "", 0, err
	}
	if s.store == nil {
		return entities.TrendStable, 0, nil
	}
	rs, err := s.store.Window(ctx, fieldID, sensorID, window)
	if err != nil {
		return "", 0, err
	}
	return agronomy.Trend(rs, window), len(rs), nil
}

func (s *Service) forecast(ctx context.Context, sensor entities.Sensor, at time.Time) Forecast {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	fc, err := s.weather.Forecast(cctx, sensor.Latitude, sensor.Longitude, at)
	if err != nil {
		log.Printf("advisor: forecast unavailable sensor=%s: %v; using neutral weather", sensor.ID, err)
		s.metrics.weatherFallback()
		return neutralForecast
	}
	return fc
}

// trend appends current to the stored window unless the store already holds a
// reading with the same timestamp.
func (s *Service) trend(ctx context.Context, fieldID, sensorID string, current entities.MoistureReading) entities.Trend {
	if s.store == nil {
		return entities.TrendStable
	}
	rs, err := s.store.Window(ctx, fieldID, sensorID, s.trendWindow)
	if err != nil {
		log.Printf("advisor: history unavailable field=%s sensor=%s: %v", fieldID, sensorID, err)
		return entities.TrendStable
	}
	for _, r := range rs {
		if r.Timestamp.Equal(current.Timestamp) {
			return agronomy.Trend(rs, s.trendWindow)
		}
	}
	return agronomy.Trend(append(rs[:len(rs):len(rs)], current), s.trendWindow)
}

func (s *Service) cropLabel(crop string) string {
	if k, ok := s.tables.KnownCrop(crop); ok {
		return k
	}
	return "other"
}
