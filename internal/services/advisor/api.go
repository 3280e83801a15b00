package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Error string `json:"error"`
}

type readyResponse struct {
	Ready  bool            `json:"ready"`
	Checks map[string]bool `json:"checks"`
}

type trendResponse struct {
	FieldID  string         `json:"field_id"`
	SensorID string         `json:"sensor_id"`
	Hours    int            `json:"hours"`
	Readings int            `json:"readings"`
	Trend    entities.Trend `json:"trend"`
}

// NewRouter exposes the service over HTTP. A nil gatherer leaves /metrics out.
func NewRouter(svc *Service, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyHandler(svc)).Methods(http.MethodGet)
	r.HandleFunc("/v1/irrigation/recommendations", recommendHandler(svc)).Methods(http.MethodPost)
	r.HandleFunc("/v1/yield/predictions", predictHandler(svc)).Methods(http.MethodPost)
	r.HandleFunc("/v1/fields/{field}/sensors/{sensor}/trend", trendHandler(svc)).Methods(http.MethodGet)
	r.HandleFunc("/v1/fields/{field}/sensors/{sensor}/recommendation", latestHandler(svc)).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// readyHandler answers 503 unless every dependency check passes.
func readyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		ready, checks := svc.Ready(ctx)
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyResponse{Ready: ready, Checks: checks})
	}
}

// POST /v1/irrigation/recommendations[?flow_lpm=N]
func recommendHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in entities.IrrigationInput
		if !decodeBody(w, r, &in) {
			return
		}
		flow := 0.0
		if v := strings.TrimSpace(r.URL.Query().Get("flow_lpm")); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				writeJSON(w, http.StatusBadRequest, apiError{Error: "flow_lpm must be a positive number"})
				return
			}
			flow = f
		}
		rec, err := svc.Recommend(in, flow)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// POST /v1/yield/predictions
func predictHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in entities.YieldPredictionInput
		if !decodeBody(w, r, &in) {
			return
		}
		p, err := svc.PredictYield(in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// GET /v1/fields/{field}/sensors/{sensor}/trend?hours=24
func trendHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		hours := 24
		if v := strings.TrimSpace(r.URL.Query().Get("hours")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 24*30 {
				writeJSON(w, http.StatusBadRequest, apiError{Error: "hours must be between 1 and 720"})
				return
			}
			hours = n
		}
		trend, n, err := svc.TrendFor(r.Context(), vars["field"], vars["sensor"], time.Duration(hours)*time.Hour)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, trendResponse{
			FieldID:  vars["field"],
			SensorID: vars["sensor"],
			Hours:    hours,
			Readings: n,
			Trend:    trend,
		})
	}
}

// GET /v1/fields/{field}/sensors/{sensor}/recommendation
func latestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		evt, err := svc.EvaluateLatest(r.Context(), vars["field"], vars["sensor"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, evt)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, agronomy.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnknownSensor), errors.Is(err, ErrNoReadings):
		status = http.StatusNotFound
	}
	writeJSON(w, status, apiError{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
