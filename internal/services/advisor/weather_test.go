package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func owmServer(t *testing.T, status int, body string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Query().Get("appid") != "k" || r.URL.Query().Get("units") != "metric" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestOWMClientPicksClosestDay(t *testing.T) {
	day1 := time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2026, 6, 2, 11, 0, 0, 0, time.UTC).Unix()
	body := fmt.Sprintf(`{"daily":[
		{"dt":%d,"temp":{"day":22,"min":14,"max":26},"humidity":55,"rain":0},
		{"dt":%d,"temp":{"day":24,"min":16,"max":30},"humidity":70,"rain":12.5}
	]}`, day1, day2)
	srv, _ := owmServer(t, http.StatusOK, body)

	c := NewOWMClient("k", time.Second).WithBaseURL(srv.URL)
	f, err := c.Forecast(context.Background(), 41.9, 12.5, time.Date(2026, 6, 2, 6, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.TempC != 24 || f.Humidity != 70 || f.RainMM != 12.5 {
		t.Fatalf("expected the second day, got %+v", f)
	}
	if want := etoHargreaves(16, 30, 0.408); math.Abs(f.ET0MM-want) > 1e-9 {
		t.Fatalf("expected ET0 %v, got %v", want, f.ET0MM)
	}
}

func TestOWMClientErrors(t *testing.T) {
	if _, err := NewOWMClient("", time.Second).Forecast(context.Background(), 0, 0, time.Now()); err == nil {
		t.Fatal("expected error without api key")
	}

	srv, _ := owmServer(t, http.StatusInternalServerError, "boom")
	if _, err := NewOWMClient("k", time.Second).WithBaseURL(srv.URL).Forecast(context.Background(), 0, 0, time.Now()); err == nil {
		t.Fatal("expected error on 500")
	}

	empty, _ := owmServer(t, http.StatusOK, `{"daily":[]}`)
	if _, err := NewOWMClient("k", time.Second).WithBaseURL(empty.URL).Forecast(context.Background(), 0, 0, time.Now()); err == nil {
		t.Fatal("expected error without daily data")
	}
}

func TestEtoHargreaves(t *testing.T) {
	// tmean 20, range 16
	got := etoHargreaves(12, 28, 0.408)
	want := 0.0023 * 37.8 * 4 * 0.408
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := etoHargreaves(20, 18, 0.408); got != 0 {
		t.Fatalf("expected 0 for an inverted range, got %v", got)
	}
}

func TestBreakerWeatherOpens(t *testing.T) {
	inner := &fakeWeather{err: errors.New("down")}
	bw := NewBreakerWeather(inner, NewBreaker("test", 2, time.Minute, 0))

	for i := 0; i < 2; i++ {
		if _, err := bw.Forecast(context.Background(), 0, 0, testNow); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	_, err := bw.Forecast(context.Background(), 0, 0, testNow)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected the open breaker to short-circuit, got %d calls", inner.calls)
	}
}

func TestCachedWeather(t *testing.T) {
	inner := &fakeWeather{f: Forecast{TempC: 27, Humidity: 40, RainMM: 1, ET0MM: 5}}
	cache := NewMemoryCache()
	cw := NewCachedWeather(inner, cache, time.Hour)

	for i := 0; i < 3; i++ {
		f, err := cw.Forecast(context.Background(), 41.9, 12.5, testNow.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f != inner.f {
			t.Fatalf("expected %+v, got %+v", inner.f, f)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected one upstream call for the same day, got %d", inner.calls)
	}

	if _, err := cw.Forecast(context.Background(), 41.9, 12.5, testNow.Add(24*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected a miss for the next day, got %d calls", inner.calls)
	}
}

func TestCachedWeatherDoesNotCacheErrors(t *testing.T) {
	inner := &fakeWeather{err: errors.New("down")}
	cw := NewCachedWeather(inner, NewMemoryCache(), time.Hour)
	for i := 0; i < 2; i++ {
		if _, err := cw.Forecast(context.Background(), 0, 0, testNow); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected every failure to reach upstream, got %d calls", inner.calls)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := testNow
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, ok, _ := c.Get(context.Background(), "k"); !ok || string(b) != "v" {
		t.Fatalf("expected hit, got %q %v", b, ok)
	}
	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(context.Background(), "k"); ok {
		t.Fatal("expected entry to expire")
	}
}
