package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

const scenarioInput = `{
	"current_moisture": 15, "target_moisture": 60, "min_moisture": 20, "max_moisture": 80,
	"field_capacity": 35, "wilting_point": 15, "area_hectares": 2,
	"crop_type": "rice", "soil_type": "clay",
	"temperature": 25, "humidity": 60, "rainfall_forecast": 0
}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRecommendEndpoint(t *testing.T) {
	svc := newTestService(t, &fakeWeather{}, nil, nil)
	h := NewRouter(svc, nil)

	rr := do(t, h, http.MethodPost, "/v1/irrigation/recommendations", scenarioInput)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rec entities.IrrigationRecommendation
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Type != entities.IrrigateNow || rec.Priority != entities.PriorityCritical {
		t.Fatalf("expected irrigate_now/critical, got %s/%s", rec.Type, rec.Priority)
	}
	if rec.EstimatedWaterNeeded != 351000 || rec.RecommendedDurationMinutes != 351 {
		t.Fatalf("expected 351000 L over 351 min, got %v over %d", rec.EstimatedWaterNeeded, rec.RecommendedDurationMinutes)
	}

	rr = do(t, h, http.MethodPost, "/v1/irrigation/recommendations?flow_lpm=2000", scenarioInput)
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.RecommendedDurationMinutes != 176 {
		t.Fatalf("expected 176 min at 2000 L/min, got %d", rec.RecommendedDurationMinutes)
	}
}

func TestRecommendEndpointRejects(t *testing.T) {
	h := NewRouter(newTestService(t, &fakeWeather{}, nil, nil), nil)
	cases := []struct {
		name string
		path string
		body string
	}{
		{"bad json", "/v1/irrigation/recommendations", "{"},
		{"bad flow", "/v1/irrigation/recommendations?flow_lpm=-3", scenarioInput},
		{"invalid input", "/v1/irrigation/recommendations", strings.Replace(scenarioInput, `"current_moisture": 15`, `"current_moisture": 150`, 1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, c.path, c.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			var e apiError
			if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Error == "" {
				t.Fatalf("expected an error body, got %q", rr.Body.String())
			}
		})
	}
}

func TestPredictEndpoint(t *testing.T) {
	h := NewRouter(newTestService(t, &fakeWeather{}, nil, nil), nil)
	body := `{
		"crop_variety": "rice", "field_area": 3, "soil_fertility": 75, "water_availability": 85,
		"temperature": 27, "rainfall": 100, "sunlight": 13, "pest_pressure": 5,
		"disease_pressure": 5, "fertilizer_applied": 100
	}`
	rr := do(t, h, http.MethodPost, "/v1/yield/predictions", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var p entities.YieldPrediction
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.EstimatedYield != 5825 || p.TotalProduction != 17475 {
		t.Fatalf("expected 5825 kg/ha and 17475 kg, got %v and %v", p.EstimatedYield, p.TotalProduction)
	}
	if len(p.Factors) != 7 {
		t.Fatalf("expected 7 factors, got %d", len(p.Factors))
	}

	rr = do(t, h, http.MethodPost, "/v1/yield/predictions", `{"crop_variety":"rice","soil_fertility":-1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTrendEndpoint(t *testing.T) {
	store := &fakeStore{window: []entities.MoistureReading{
		{Moisture: 30, Timestamp: testNow.Add(-2 * time.Hour)},
		{Moisture: 33, Timestamp: testNow.Add(-time.Hour)},
		{Moisture: 36, Timestamp: testNow},
	}}
	h := NewRouter(newTestService(t, &fakeWeather{}, store, nil), nil)

	rr := do(t, h, http.MethodGet, "/v1/fields/field1/sensors/s1/trend?hours=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var out trendResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Trend != entities.TrendIncreasing || out.Readings != 3 || out.Hours != 6 {
		t.Fatalf("unexpected response: %+v", out)
	}

	if rr := do(t, h, http.MethodGet, "/v1/fields/field1/sensors/s1/trend?hours=0", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for hours=0, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/fields/field1/sensors/zz/trend", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sensor, got %d", rr.Code)
	}
}

func TestLatestRecommendationEndpoint(t *testing.T) {
	store := &fakeStore{latest: entities.MoistureReading{Moisture: 18, Timestamp: testNow}}
	h := NewRouter(newTestService(t, &fakeWeather{f: neutralForecast}, store, nil), nil)

	rr := do(t, h, http.MethodGet, "/v1/fields/field1/sensors/s1/recommendation", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var evt messages.RecommendationEvent
	if err := json.Unmarshal(rr.Body.Bytes(), &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Recommendation.Priority != entities.PriorityCritical {
		t.Fatalf("expected critical, got %s", evt.Recommendation.Priority)
	}

	empty := NewRouter(newTestService(t, &fakeWeather{}, &fakeStore{}, nil), nil)
	if rr := do(t, empty, http.MethodGet, "/v1/fields/field1/sensors/s1/recommendation", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without readings, got %d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newTestService(t, &fakeWeather{}, nil, nil)
	svc.metrics = NewMetrics(reg)
	h := NewRouter(svc, reg)

	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("expected ok, got %d %q", rr.Code, rr.Body.String())
	}
	do(t, h, http.MethodPost, "/v1/irrigation/recommendations", scenarioInput)

	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `agronomy_irrigation_recommendations_total{priority="critical",type="irrigate_now"} 1`) {
		t.Fatalf("expected recommendation counter in metrics output:\n%s", rr.Body.String())
	}
	if rr := do(t, h, http.MethodGet, "/v1/irrigation/recommendations", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestReadyEndpoint(t *testing.T) {
	svc := newTestService(t, &fakeWeather{}, nil, nil)
	up := true
	svc.readiness = map[string]func(context.Context) bool{
		"mqtt":   func(context.Context) bool { return true },
		"influx": func(context.Context) bool { return up },
	}
	h := NewRouter(svc, nil)

	if rr := do(t, h, http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	up = false
	rr := do(t, h, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var out readyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Ready || out.Checks["influx"] || !out.Checks["mqtt"] {
		t.Fatalf("unexpected readiness: %+v", out)
	}
}
