package adapters

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"app-installer/internal/ports"
	"app-installer/internal/types"
)

const metricsNamespace = "app_installer"

// MetricsPrometheusAdapter counts verification outcomes on a private
// registry so tests and multiple servers never collide on the global one.
type MetricsPrometheusAdapter struct {
	registry     *prometheus.Registry
	results      *prometheus.CounterVec
	inconclusive *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

var _ ports.VerificationMetricsPort = (*MetricsPrometheusAdapter)(nil)

func NewMetricsPrometheusAdapter() *MetricsPrometheusAdapter {
	registry := prometheus.NewRegistry()
	adapter := &MetricsPrometheusAdapter{
		registry: registry,
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verification_results_total",
			Help:      "Verification results by package manager and status.",
		}, []string{"manager", "status"}),
		inconclusive: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verification_inconclusive_total",
			Help:      "Registry lookups that ended in an error and were flagged for review.",
		}, []string{"manager"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "verification_duration_seconds",
			Help:      "Time spent verifying one package.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"manager"}),
	}
	registry.MustRegister(adapter.results, adapter.inconclusive, adapter.duration)
	return adapter
}

func (a *MetricsPrometheusAdapter) ObserveVerification(result types.VerificationResult, inconclusive bool, elapsed time.Duration) {
	manager := string(result.PackageManagerID)
	a.results.WithLabelValues(manager, string(result.Status)).Inc()
	if inconclusive {
		a.inconclusive.WithLabelValues(manager).Inc()
	}
	a.duration.WithLabelValues(manager).Observe(elapsed.Seconds())
}

// Handler exposes the adapter's registry in the Prometheus text format.
func (a *MetricsPrometheusAdapter) Handler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

func (a *MetricsPrometheusAdapter) Registry() *prometheus.Registry {
	return a.registry
}
