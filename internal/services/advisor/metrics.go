package advisor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	recommendations  *prometheus.CounterVec
	predictions      *prometheus.CounterVec
	estimatedYield   *prometheus.HistogramVec
	invalidInputs    *prometheus.CounterVec
	weatherFallbacks prometheus.Counter
	duplicates       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "irrigation_recommendations_total",
			Help:      "Irrigation recommendations by type and priority.",
		}, []string{"type", "priority"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "yield_predictions_total",
			Help:      "Yield predictions by crop.",
		}, []string{"crop"}),
		estimatedYield: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agronomy",
			Name:      "estimated_yield_kg_per_ha",
			Help:      "Estimated yield of served predictions.",
			Buckets:   prometheus.ExponentialBuckets(500, 2, 8),
		}, []string{"crop"}),
		invalidInputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "invalid_inputs_total",
			Help:      "Rejected inputs by operation.",
		}, []string{"operation"}),
		weatherFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "weather_fallbacks_total",
			Help:      "Evaluations that used the neutral forecast.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agronomy",
			Name:      "duplicate_messages_total",
			Help:      "Redelivered sensor messages dropped.",
		}),
	}
	reg.MustRegister(m.recommendations, m.predictions, m.estimatedYield, m.invalidInputs, m.weatherFallbacks, m.duplicates)
	return m
}

func (m *Metrics) observeRecommendation(rec entities.IrrigationRecommendation) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(string(rec.Type), string(rec.Priority)).Inc()
}

func (m *Metrics) observePrediction(crop string, p entities.YieldPrediction) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(crop).Inc()
	m.estimatedYield.WithLabelValues(crop).Observe(p.EstimatedYield)
}

func (m *Metrics) invalidInput(op string) {
	if m == nil {
		return
	}
	m.invalidInputs.WithLabelValues(op).Inc()
}

func (m *Metrics) weatherFallback() {
	if m == nil {
		return
	}
	m.weatherFallbacks.Inc()
}

func (m *Metrics) duplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}
