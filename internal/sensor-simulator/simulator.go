// Package sensor_simulator publishes synthetic moisture readings for one
// sensor and reacts to the irrigation recommendations addressed to it.
package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

const DefaultRawTopic = "sensor/data/{field}/{sensor}"

type SensorSimulator struct {
	sensor    entities.Sensor
	generator *DataGenerator
	publisher rabbitmq.IPublisher
	consumer  rabbitmq.IConsumer
	deduper   *dedup.Deduper
	topic     string
}

func NewSensorSimulator(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher, gen *DataGenerator, sensor entities.Sensor, topicTmpl string) *SensorSimulator {
	if strings.TrimSpace(topicTmpl) == "" {
		topicTmpl = DefaultRawTopic
	}
	return &SensorSimulator{
		sensor:    sensor,
		generator: gen,
		publisher: publisher,
		consumer:  consumer,
		deduper:   dedup.New(2*time.Minute, 10000),
		topic:     strings.NewReplacer("{field}", sensor.FieldID, "{sensor}", sensor.ID).Replace(topicTmpl),
	}
}

func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		s.consumer.SetHandler(s.handleMessage)
		go s.consumer.ConsumeMessage(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.publish(); err != nil {
				log.Printf("simulator: publish error: %v", err)
			}
		}
	}
}

func (s *SensorSimulator) publish() error {
	sd := s.generator.Next(s.sensor)
	payload, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	log.Printf("simulator: raw field=%s sensor=%s moisture=%.1f%% irrigating=%v",
		sd.FieldID, sd.SensorID, sd.Moisture, s.generator.Irrigating())
	return s.publisher.Publish(s.topic, rabbitmq.QosFor(s.topic), false, payload)
}

func (s *SensorSimulator) handleMessage(_ string, msg mqtt.Message) error {
	return s.apply(msg.Payload())
}

// apply opens the line for the recommended duration when the event asks to
// irrigate this sensor.
func (s *SensorSimulator) apply(payload []byte) error {
	if !s.deduper.ShouldProcessPayload(payload) {
		return nil
	}
	var evt messages.RecommendationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("invalid recommendation event: %w", err)
	}
	if evt.FieldID != s.sensor.FieldID || evt.SensorID != s.sensor.ID {
		return nil
	}
	rec := evt.Recommendation
	switch rec.Type {
	case entities.IrrigateNow, entities.Increase:
	default:
		return nil
	}
	d := time.Duration(rec.RecommendedDurationMinutes) * time.Minute
	if d <= 0 {
		return nil
	}
	s.generator.Irrigate(d)
	log.Printf("simulator: sensor %s irrigating for %s (%s/%s)", s.sensor.ID, d, rec.Type, rec.Priority)
	return nil
}
