package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robotctl",
			Subsystem: "admin",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "robotctl",
			Subsystem: "admin",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robotctl",
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Finished robot sessions by end state and error class.",
		},
		[]string{"service", "state", "class", "found"},
	)
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "robotctl",
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Robot session duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "class"},
	)
	sessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "robotctl",
			Subsystem: "session",
			Name:      "active",
			Help:      "Robot sessions currently running.",
		},
		[]string{"service"},
	)
	sessionProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robotctl",
			Subsystem: "session",
			Name:      "probes_total",
			Help:      "GET MESSAGE probes issued.",
		},
		[]string{"service"},
	)
	sessionRecharges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robotctl",
			Subsystem: "session",
			Name:      "recharges_total",
			Help:      "RECHARGING notices absorbed.",
		},
		[]string{"service"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			sessionsTotal, sessionDuration, sessionsActive, sessionProbes, sessionRecharges,
		)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// SessionStarted bumps the active gauge; pair with RecordSession.
func SessionStarted(service string) {
	RegisterMetrics()
	sessionsActive.WithLabelValues(service).Inc()
}

// SessionReport is what one finished session contributes to metrics.
type SessionReport struct {
	State     string
	Class     string
	Found     bool
	Probes    int
	Recharges int
	Duration  time.Duration
}

func RecordSession(service string, r SessionReport) {
	RegisterMetrics()
	sessionsActive.WithLabelValues(service).Dec()
	sessionsTotal.WithLabelValues(service, r.State, r.Class, strconv.FormatBool(r.Found)).Inc()
	sessionDuration.WithLabelValues(service, r.Class).Observe(r.Duration.Seconds())
	sessionProbes.WithLabelValues(service).Add(float64(r.Probes))
	sessionRecharges.WithLabelValues(service).Add(float64(r.Recharges))
}
