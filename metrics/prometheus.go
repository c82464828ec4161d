package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a MetricsCollector backed by client_golang. Register
// it with a prometheus.Registerer and expose it through promhttp the
// way any Prometheus-instrumented service does.
type Prometheus struct {
	exchangeBytes    *prometheus.CounterVec
	exchangeMessages *prometheus.CounterVec
	collectiveLatency *prometheus.HistogramVec
}

// NewPrometheus builds and registers the collector's metrics against
// reg. Pass prometheus.DefaultRegisterer to use the global registry.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		exchangeBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tacs_exchange_bytes_total",
			Help: "Total bytes moved by the ghost exchange protocol.",
		}, []string{"direction"}),
		exchangeMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tacs_exchange_messages_total",
			Help: "Total messages posted by the ghost exchange protocol.",
		}, []string{"direction"}),
		collectiveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tacs_collective_latency_seconds",
			Help:    "Latency of communicator collective operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
	}
	reg.MustRegister(p.exchangeBytes, p.exchangeMessages, p.collectiveLatency)
	return p
}

// RecordExchange implements MetricsCollector.
func (p *Prometheus) RecordExchange(direction string, bytes int) {
	p.exchangeMessages.WithLabelValues(direction).Inc()
	p.exchangeBytes.WithLabelValues(direction).Add(float64(bytes))
}

// RecordCollective implements MetricsCollector.
func (p *Prometheus) RecordCollective(op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.collectiveLatency.WithLabelValues(op, status).Observe(duration.Seconds())
}
