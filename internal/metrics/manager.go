package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "repcycle"

type Manager struct {
	// http
	CounterRequests     *prometheus.CounterVec
	CounterPanics       prometheus.Counter
	CounterRateLimited  prometheus.Counter
	GaugeRequests       prometheus.Gauge
	HistRequestDuration *prometheus.HistogramVec

	// domain
	CounterGoalsCreated   prometheus.Counter
	CounterGoalsCloned    prometheus.Counter
	CounterAdvances       *prometheus.CounterVec
	CounterDoneLogged     *prometheus.CounterVec
	CounterAuthRejections *prometheus.CounterVec
	HistAdvanceDuration   prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("test", reg), reg
}

func NewManager(subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		CounterPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_panics_total",
			Help:      "The total number of recovered handler panics",
		}),
		CounterRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_rate_limited_total",
			Help:      "The total number of requests rejected by the rate limiter",
		}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Current number of requests being served",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		CounterGoalsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "goals_created_total",
			Help:      "The total number of goals created by users",
		}),
		CounterGoalsCloned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "goals_cloned_total",
			Help:      "The total number of goals cloned into a new microcycle",
		}),
		CounterAdvances: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_advances_total",
			Help:      "Microcycle advance attempts by outcome",
		}, []string{"outcome"}),
		CounterDoneLogged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "done_logged_total",
			Help:      "Logged workout sets by result",
		}, []string{"result"}),
		CounterAuthRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_rejections_total",
			Help:      "Rejected authentication attempts by reason",
		}, []string{"reason"}),
		HistAdvanceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_advance_duration_seconds",
			Help:      "Duration of a microcycle advance in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}
