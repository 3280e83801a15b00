package advisor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

const DefaultRecommendationTopic = "event/irrigationRecommendation/{field}/{sensor}"

// Sink delivers recommendation events downstream.
type Sink interface {
	Publish(ctx context.Context, evt messages.RecommendationEvent) error
	Close() error
}

// MQTTSink publishes on a per-sensor topic, QoS 1, not retained.
type MQTTSink struct {
	pub  rabbitmq.IPublisher
	tmpl string
}

func NewMQTTSink(pub rabbitmq.IPublisher, tmpl string) *MQTTSink {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultRecommendationTopic
	}
	return &MQTTSink{pub: pub, tmpl: tmpl}
}

func RecommendationTopic(tmpl, fieldID, sensorID string) string {
	return strings.NewReplacer("{field}", fieldID, "{sensor}", sensorID).Replace(tmpl)
}

func (s *MQTTSink) Publish(_ context.Context, evt messages.RecommendationEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	topic := RecommendationTopic(s.tmpl, evt.FieldID, evt.SensorID)
	return s.pub.Publish(topic, rabbitmq.QosFor(topic), false, b)
}

func (s *MQTTSink) Close() error {
	s.pub.Close()
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events keyed by field|sensor so one sensor stays on one partition.
type KafkaSink struct {
	w messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, evt messages.RecommendationEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.FieldID + "|" + evt.SensorID),
		Value: b,
		Time:  evt.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID)},
			{Key: "type", Value: []byte(evt.Recommendation.Type)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}
