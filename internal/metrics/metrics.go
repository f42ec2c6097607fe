package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "streamlog"

// Session error reasons.
const (
	ReasonTail = "tail"
	ReasonSend = "send"
)

// Metrics holds the collectors for one server instance on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive prometheus.Gauge
	messagesSent   prometheus.Counter
	sessionErrors  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New registers all collectors, including the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream", Name: "sessions_active",
			Help: "Live log stream sessions currently open",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "messages_sent_total",
			Help: "Rendered log batches pushed to stream clients",
		}),
		sessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream", Name: "session_errors_total",
			Help: "Stream sessions ended by an error",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route template and status code",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.sessionsActive,
		m.messagesSent,
		m.sessionErrors,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionOpened() { m.sessionsActive.Inc() }

func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

func (m *Metrics) MessageSent() { m.messagesSent.Inc() }

func (m *Metrics) SessionError(reason string) { m.sessionErrors.WithLabelValues(reason).Inc() }

// Request counts one served request. code is the decimal status code.
func (m *Metrics) Request(route, code string) {
	m.httpRequests.WithLabelValues(route, code).Inc()
}
