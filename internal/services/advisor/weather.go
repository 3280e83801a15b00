package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Forecast is the daily weather the irrigation engine needs.
type Forecast struct {
	TempC    float64 `json:"temp_c"`
	Humidity float64 `json:"humidity"`
	RainMM   float64 `json:"rain_mm"`
	ET0MM    float64 `json:"et0_mm"`
}

// neutralForecast is used when no forecast can be obtained.
var neutralForecast = Forecast{TempC: 20, Humidity: 60, RainMM: 0, ET0MM: 4.0}

// WeatherClient returns the forecast for lat/lon on day.
type WeatherClient interface {
	Forecast(ctx context.Context, lat, lon float64, day time.Time) (Forecast, error)
}

type owmDaily struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Day float64 `json:"day"`
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
	Humidity float64 `json:"humidity"`
	Rain     float64 `json:"rain"`
}

type owmResp struct {
	Daily []owmDaily `json:"daily"`
}

const owmBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

// OWMClient reads the OpenWeather One Call daily forecast.
type OWMClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewOWMClient(key string, timeout time.Duration) *OWMClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OWMClient{apiKey: key, baseURL: owmBaseURL, http: &http.Client{Timeout: timeout}}
}

// WithBaseURL points the client at another endpoint.
func (c *OWMClient) WithBaseURL(base string) *OWMClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func (c *OWMClient) Forecast(ctx context.Context, lat, lon float64, day time.Time) (Forecast, error) {
	if c.apiKey == "" {
		return Forecast{}, fmt.Errorf("missing api key")
	}
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("exclude", "current,minutely,hourly,alerts")
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Forecast{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Forecast{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Forecast{}, fmt.Errorf("owm status %d: %s", resp.StatusCode, string(b))
	}
	var out owmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Forecast{}, fmt.Errorf("owm decode: %w", err)
	}
	if len(out.Daily) == 0 {
		return Forecast{}, fmt.Errorf("no daily data")
	}

	d := closestDay(out.Daily, day)
	temp := d.Temp.Day
	if temp == 0 {
		temp = (d.Temp.Min + d.Temp.Max) / 2
	}
	return Forecast{
		TempC:    temp,
		Humidity: d.Humidity,
		RainMM:   d.Rain,
		ET0MM:    etoHargreaves(d.Temp.Min, d.Temp.Max, 0.408),
	}, nil
}

// closestDay picks the daily entry whose UTC date is nearest to day.
func closestDay(daily []owmDaily, day time.Time) owmDaily {
	target := truncateDay(day)
	chosen := daily[0]
	minDelta := time.Duration(math.MaxInt64)
	for _, d := range daily {
		delta := target.Sub(truncateDay(time.Unix(d.Dt, 0)))
		if delta < 0 {
			delta = -delta
		}
		if delta < minDelta {
			minDelta = delta
			chosen = d
		}
	}
	return chosen
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// simplified Hargreaves with a constant radiation term, mm/day
func etoHargreaves(tmin, tmax, ra float64) float64 {
	tmean := (tmin + tmax) / 2.0
	return 0.0023 * (tmean + 17.8) * math.Sqrt(math.Max(tmax-tmin, 0)) * ra
}

// BreakerWeather trips after repeated upstream failures so a dead weather
// API does not slow every evaluation down.
type BreakerWeather struct {
	next WeatherClient
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerWeather(next WeatherClient, cb *gobreaker.CircuitBreaker) *BreakerWeather {
	return &BreakerWeather{next: next, cb: cb}
}

func (b *BreakerWeather) Forecast(ctx context.Context, lat, lon float64, day time.Time) (Forecast, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Forecast(ctx, lat, lon, day)
	})
	if err != nil {
		return Forecast{}, err
	}
	return res.(Forecast), nil
}

// NewBreaker builds a breaker that opens after fails consecutive failures.
func NewBreaker(name string, fails int, openFor, interval time.Duration) *gobreaker.CircuitBreaker {
	if fails < 1 {
		fails = 1
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: interval,
		Timeout:  openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
	})
}
