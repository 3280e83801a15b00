// Package aggregator averages raw moisture readings per sensor and publishes
// one aggregated reading per sensor every interval.
package aggregator

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

const DefaultAggregatedTopic = "sensor/aggregated/{field}/{sensor}"

type sensorKey struct {
	field  string
	sensor string
}

type window struct {
	sum   float64
	count int
}

type Service struct {
	consumer  rabbitmq.IConsumer
	publisher rabbitmq.IPublisher
	topicTmpl string
	interval  time.Duration
	now       func() time.Time

	mu     sync.Mutex
	buffer map[sensorKey]*window
}

func NewService(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher, topicTmpl string, interval time.Duration) *Service {
	if strings.TrimSpace(topicTmpl) == "" {
		topicTmpl = DefaultAggregatedTopic
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		consumer:  consumer,
		publisher: publisher,
		topicTmpl: topicTmpl,
		interval:  interval,
		now:       time.Now,
		buffer:    make(map[sensorKey]*window),
	}
}

func (s *Service) handle(_ string, msg mqtt.Message) error {
	return s.add(msg.Payload())
}

// add buffers one raw reading; out of range or non-finite readings are dropped.
func (s *Service) add(payload []byte) error {
	var m messages.SensorData
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("aggregator: invalid JSON: %v", err)
		return nil
	}
	if m.FieldID == "" || m.SensorID == "" {
		return nil
	}
	if math.IsNaN(m.Moisture) || m.Moisture < 0 || m.Moisture > 100 {
		log.Printf("aggregator: drop field=%s sensor=%s moisture=%v", m.FieldID, m.SensorID, m.Moisture)
		return nil
	}

	k := sensorKey{field: m.FieldID, sensor: m.SensorID}
	s.mu.Lock()
	w, ok := s.buffer[k]
	if !ok {
		w = &window{}
		s.buffer[k] = w
	}
	w.sum += m.Moisture
	w.count++
	s.mu.Unlock()
	return nil
}

func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(s.handle)
	go s.consumer.ConsumeMessage(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush publishes the mean of every non-empty window and resets it.
func (s *Service) flush() int {
	s.mu.Lock()
	pending := s.buffer
	s.buffer = make(map[sensorKey]*window, len(pending))
	s.mu.Unlock()

	now := s.now().UTC()
	sent := 0
	for k, w := range pending {
		if w.count == 0 {
			continue
		}
		out := messages.SensorData{
			FieldID:    k.field,
			SensorID:   k.sensor,
			Moisture:   math.Round(w.sum/float64(w.count)*100) / 100,
			Aggregated: true,
			Timestamp:  now,
		}
		b, err := json.Marshal(out)
		if err != nil {
			log.Printf("aggregator: marshal err %v", err)
			continue
		}
		topic := strings.NewReplacer("{field}", k.field, "{sensor}", k.sensor).Replace(s.topicTmpl)
		if err := s.publisher.Publish(topic, rabbitmq.QosFor(topic), false, b); err != nil {
			log.Printf("aggregator: publish %s err %v", topic, err)
			continue
		}
		sent++
		log.Printf("aggregator: field=%s sensor=%s samples=%d moisture=%.2f", k.field, k.sensor, w.count, out.Moisture)
	}
	return sent
}
