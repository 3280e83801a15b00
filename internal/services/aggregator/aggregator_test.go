package aggregator

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

type sent struct {
	topic string
	qos   byte
	data  messages.SensorData
}

type fakePublisher struct {
	out  []sent
	fail bool
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload []byte) error {
	if p.fail {
		return errors.New("broker down")
	}
	var m messages.SensorData
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	p.out = append(p.out, sent{topic: topic, qos: qos, data: m})
	return nil
}

func (p *fakePublisher) Close() {}

func reading(field, sensor string, moisture float64) []byte {
	b, _ := json.Marshal(messages.SensorData{FieldID: field, SensorID: sensor, Moisture: moisture})
	return b
}

func TestFlushPublishesMeanPerSensor(t *testing.T) {
	pub := &fakePublisher{}
	s := NewService(nil, pub, "", time.Minute)
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for _, p := range [][]byte{
		reading("field1", "s1", 30),
		reading("field1", "s1", 31),
		reading("field1", "s1", 32.5),
		reading("field1", "s2", 20),
		reading("field1", "s2", 150), // out of range
		[]byte("{"),
		reading("", "s3", 10),
	} {
		if err := s.add(p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n := s.flush(); n != 2 {
		t.Fatalf("expected 2 aggregated readings, got %d", n)
	}
	sort.Slice(pub.out, func(i, j int) bool { return pub.out[i].topic < pub.out[j].topic })

	first := pub.out[0]
	if first.topic != "sensor/aggregated/field1/s1" || first.qos != 1 {
		t.Fatalf("unexpected delivery: %s qos=%d", first.topic, first.qos)
	}
	if first.data.Moisture != 31.17 || !first.data.Aggregated || !first.data.Timestamp.Equal(now) {
		t.Fatalf("unexpected aggregate: %+v", first.data)
	}
	if pub.out[1].data.Moisture != 20 {
		t.Fatalf("expected s2 mean 20, got %v", pub.out[1].data.Moisture)
	}

	if n := s.flush(); n != 0 {
		t.Fatalf("expected windows to be reset, got %d", n)
	}
}

func TestFlushCountsOnlyDelivered(t *testing.T) {
	s := NewService(nil, &fakePublisher{fail: true}, "agg/{sensor}", time.Minute)
	_ = s.add(reading("f", "s", 40))
	if n := s.flush(); n != 0 {
		t.Fatalf("expected nothing delivered, got %d", n)
	}
}
