// Package persistence stores sensor readings in InfluxDB, where the advisor
// reads the moisture history back.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

// PointWriter is satisfied by api.WriteAPIBlocking.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type Service struct {
	consumer    rabbitmq.IConsumer
	writer      PointWriter
	measurement string
	deduper     *dedup.Deduper
	now         func() time.Time

	mu     sync.RWMutex
	latest map[string]messages.SensorData // field|sensor
}

func NewService(consumer rabbitmq.IConsumer, writer PointWriter, measurement string) (*Service, error) {
	if writer == nil {
		return nil, fmt.Errorf("influx writer required")
	}
	if measurement == "" {
		measurement = "soil_moisture"
	}
	return &Service{
		consumer:    consumer,
		writer:      writer,
		measurement: sanitizeMeasurement(measurement),
		deduper:     dedup.New(10*time.Minute, 10000),
		now:         time.Now,
		latest:      make(map[string]messages.SensorData),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(func(topic string, msg mqtt.Message) error {
		return s.store(ctx, topic, msg.Payload())
	})
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) store(ctx context.Context, topic string, payload []byte) error {
	if !s.deduper.ShouldProcessPayload(payload) {
		return nil
	}
	var m messages.SensorData
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("persistence: invalid JSON on %s: %v", topic, err)
		return nil
	}
	if m.FieldID == "" || m.SensorID == "" || math.IsNaN(m.Moisture) || math.IsInf(m.Moisture, 0) {
		log.Printf("persistence: drop malformed reading on %s", topic)
		return nil
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}

	if err := s.writer.WritePoint(ctx, s.point(m)); err != nil {
		// a redelivery must be able to retry the write
		s.deduper.ForgetPayload(payload)
		log.Printf("persistence: write error: %v", err)
		return err
	}

	s.mu.Lock()
	s.latest[m.FieldID+"|"+m.SensorID] = m
	s.mu.Unlock()

	log.Printf("persistence: wrote %s field=%s sensor=%s moisture=%.2f aggregated=%v",
		s.measurement, m.FieldID, m.SensorID, m.Moisture, m.Aggregated)
	return nil
}

func (s *Service) point(m messages.SensorData) *write.Point {
	tags := map[string]string{
		"field_id":  m.FieldID,
		"sensor_id": m.SensorID,
	}
	fields := map[string]interface{}{
		"moisture":   m.Moisture,
		"aggregated": m.Aggregated,
	}
	return influxdb2.NewPoint(s.measurement, tags, fields, m.Timestamp.UTC())
}

// Latest returns the last stored reading of every sensor.
func (s *Service) Latest() []messages.SensorData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]messages.SensorData, 0, len(s.latest))
	for _, v := range s.latest {
		out = append(out, v)
	}
	return out
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
