package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	TurnsTotal             *prometheus.CounterVec
	StageFailures          *prometheus.CounterVec
	TurnDuration           prometheus.Histogram
	ActiveVoiceConnections prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed conversation turns by outcome.",
		}, []string{"outcome"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Turn pipeline failures by stage.",
		}, []string{"stage"}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn duration in seconds.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		ActiveVoiceConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_voice_connections",
			Help:      "Number of live guild voice connections.",
		}),
	}
}

// ObserveTurn records one finished turn
func (m *Metrics) ObserveTurn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(d.Seconds())
}

// ObserveStageFailure records a pipeline failure at the given stage
func (m *Metrics) ObserveStageFailure(stage string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}

// VoiceConnected adjusts the live connection gauge
func (m *Metrics) VoiceConnected(delta float64) {
	if m == nil {
		return
	}
	m.ActiveVoiceConnections.Add(delta)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
