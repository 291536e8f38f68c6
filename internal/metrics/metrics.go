package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Inbound HTTP metrics (mock backend)
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Outbound API metrics
	apiRequestsTotal    *prometheus.CounterVec
	apiRequestDuration  *prometheus.HistogramVec
	apiRequestsInFlight prometheus.Gauge

	// Dashboard metrics
	polls            *prometheus.CounterVec
	pollDuration     prometheus.Histogram
	staleDropped     prometheus.Counter
	refreshCoalesced prometheus.Counter
	snapshotSignals  prometheus.Gauge
	watchlistSymbols prometheus.Gauge
	streamEvents     prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaldeck_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"endpoint", "status"},
	)
	r.apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signaldeck_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	r.apiRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signaldeck_api_requests_in_flight",
			Help: "Number of backend API requests currently in flight",
		},
	)
	r.polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaldeck_polls_total",
			Help: "Total number of completed poll cycles",
		},
		[]string{"result"},
	)
	r.pollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signaldeck_poll_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
	)
	r.staleDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signaldeck_stale_results_dropped_total",
			Help: "Poll results discarded because the poll was superseded or torn down",
		},
	)
	r.refreshCoalesced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signaldeck_refresh_coalesced_total",
			Help: "Manual refresh requests ignored because a fetch was in flight",
		},
	)
	r.snapshotSignals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signaldeck_snapshot_signals",
			Help: "Number of signals in the latest snapshot",
		},
	)
	r.watchlistSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signaldeck_watchlist_symbols",
			Help: "Number of symbols in watchlist",
		},
	)
	r.streamEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signaldeck_stream_events_total",
			Help: "Update notifications received from the backend stream",
		},
	)

	reg.MustRegister(r.apiRequestsTotal)
	reg.MustRegister(r.apiRequestDuration)
	reg.MustRegister(r.apiRequestsInFlight)
	reg.MustRegister(r.polls)
	reg.MustRegister(r.pollDuration)
	reg.MustRegister(r.staleDropped)
	reg.MustRegister(r.refreshCoalesced)
	reg.MustRegister(r.snapshotSignals)
	reg.MustRegister(r.watchlistSymbols)
	reg.MustRegister(r.streamEvents)

	return r
}

// RecordRequest records metrics for an inbound HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// The dashboard recorders below are no-ops on a nil Registry.

// RecordAPIRequest records an outbound backend request. A status of 0 means
// the request failed before a response arrived.
func (r *Registry) RecordAPIRequest(endpoint string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := "error"
	if status > 0 {
		statusStr = statusToString(status)
	}
	r.apiRequestsTotal.WithLabelValues(endpoint, statusStr).Inc()
	r.apiRequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordPoll records a completed poll cycle.
func (r *Registry) RecordPoll(ok bool, duration float64) {
	if r == nil {
		return
	}
	r.polls.WithLabelValues(strconv.FormatBool(ok)).Inc()
	r.pollDuration.Observe(duration)
}

// RecordStaleResult counts a discarded poll result.
func (r *Registry) RecordStaleResult() {
	if r == nil {
		return
	}
	r.staleDropped.Inc()
}

// RecordRefreshCoalesced counts an ignored manual refresh.
func (r *Registry) RecordRefreshCoalesced() {
	if r == nil {
		return
	}
	r.refreshCoalesced.Inc()
}

// RecordStreamEvent counts a backend update notification.
func (r *Registry) RecordStreamEvent() {
	if r == nil {
		return
	}
	r.streamEvents.Inc()
}

// SetSnapshotSignals sets the signal count of the latest snapshot.
func (r *Registry) SetSnapshotSignals(n int) {
	if r == nil {
		return
	}
	r.snapshotSignals.Set(float64(n))
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	if r == nil {
		return
	}
	r.watchlistSymbols.Set(float64(size))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
