package dedup

import (
	"testing"
	"time"
)

func TestShouldProcessWithinTTL(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	d := New(time.Minute, 10).WithClock(func() time.Time { return now })

	if !d.ShouldProcess("a") {
		t.Fatal("expected first delivery to be processed")
	}
	if d.ShouldProcess("a") {
		t.Fatal("expected redelivery to be dropped")
	}
	now = now.Add(2 * time.Minute)
	if !d.ShouldProcess("a") {
		t.Fatal("expected id to be processed again after TTL")
	}
	if !d.ShouldProcess("") {
		t.Fatal("expected empty id to always be processed")
	}
}

func TestShouldProcessPayload(t *testing.T) {
	d := New(time.Minute, 10)
	p := []byte(`{"field_id":"f1","sensor_id":"s1","moisture":31}`)
	if !d.ShouldProcessPayload(p) {
		t.Fatal("expected first payload to be processed")
	}
	if d.ShouldProcessPayload(append([]byte(nil), p...)) {
		t.Fatal("expected identical payload to be dropped")
	}
	if !d.ShouldProcessPayload([]byte(`{"moisture":32}`)) {
		t.Fatal("expected different payload to be processed")
	}
}

func TestForgetPayload(t *testing.T) {
	d := New(time.Minute, 10)
	p := []byte(`{"field_id":"f1","sensor_id":"s1","moisture":31}`)
	if !d.ShouldProcessPayload(p) {
		t.Fatal("expected first payload to be processed")
	}
	d.ForgetPayload(p)
	if !d.ShouldProcessPayload(p) {
		t.Fatal("expected a forgotten payload to be processed again")
	}
	if d.ShouldProcessPayload(p) {
		t.Fatal("expected the payload to be marked again")
	}
}

func TestCapacityIsBounded(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	d := New(time.Hour, 3).WithClock(func() time.Time { return now })
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		now = now.Add(time.Second)
		d.ShouldProcess(id)
	}
	if got := d.Len(); got > 3 {
		t.Fatalf("expected at most 3 tracked ids, got %d", got)
	}
	if d.ShouldProcess("e") {
		t.Fatal("expected the newest id to still be tracked")
	}
}
