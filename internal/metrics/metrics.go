package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics: метрики сервиса. Nil *Metrics допустим и ничего не пишет.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	Responses *prometheus.CounterVec

	AcquireDuration *prometheus.HistogramVec
	AcquireFailures *prometheus.CounterVec
	SessionsOpen    prometheus.Gauge
	SessionsClosed  prometheus.Counter
}

// New регистрирует метрики в собственном реестре
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webapp_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webapp_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"method", "path"},
		),
		Responses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webapp_responses_total",
				Help: "Responses by route and reported status",
			},
			[]string{"route", "status"},
		),
		AcquireDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webapp_session_acquire_duration_seconds",
				Help:    "Time spent acquiring a session, including retries",
				Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20},
			},
			[]string{"kind"},
		),
		AcquireFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webapp_session_acquire_failures_total",
				Help: "Failed session acquisitions",
			},
			[]string{"kind"},
		),
		SessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webapp_sessions_open",
				Help: "Sessions currently held by requests",
			},
		),
		SessionsClosed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webapp_sessions_released_total",
				Help: "Sessions released",
			},
		),
	}
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordResponse(route, status string) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(route, status).Inc()
}

func (m *Metrics) ObserveAcquire(kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.AcquireDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		m.AcquireFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsOpen.Inc()
}

func (m *Metrics) SessionReleased() {
	if m == nil {
		return
	}
	m.SessionsOpen.Dec()
	m.SessionsClosed.Inc()
}

// Handler отдаёт собственный реестр; для nil не вызывать
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
