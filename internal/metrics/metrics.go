package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the TidyTap server. All methods
// are safe to call on a nil *Metrics so components can run without them.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AssistantCallsTotal *prometheus.CounterVec
	HouseholdTxTotal    *prometheus.CounterVec

	WebsocketClients prometheus.Gauge
	PushSentTotal    *prometheus.CounterVec
	RemindersTotal   prometheus.Counter
	BackupsTotal     *prometheus.CounterVec

	ServerStartTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidytap_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tidytap_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AssistantCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidytap_assistant_calls_total",
			Help: "Assistant invocations by kind and outcome.",
		}, []string{"kind", "outcome"}),

		HouseholdTxTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidytap_household_transactions_total",
			Help: "Household membership transactions by operation and outcome.",
		}, []string{"op", "outcome"}),

		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidytap_websocket_clients",
			Help: "Number of connected websocket clients.",
		}),

		PushSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidytap_push_notifications_total",
			Help: "Web push deliveries by outcome.",
		}, []string{"outcome"}),

		RemindersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidytap_task_reminders_total",
			Help: "Due-task reminders recorded by the scheduler.",
		}),

		BackupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidytap_backups_total",
			Help: "Database backup runs by outcome.",
		}, []string{"outcome"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidytap_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AssistantCallsTotal,
		m.HouseholdTxTotal,
		m.WebsocketClients,
		m.PushSentTotal,
		m.RemindersTotal,
		m.BackupsTotal,
		m.ServerStartTime,
	)
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterDBStatsCollector exposes database/sql pool stats.
func (m *Metrics) RegisterDBStatsCollector(statFunc DBStatFunc) {
	if m == nil {
		return
	}
	m.registry.MustRegister(NewDBStatsCollector(statFunc))
}

func (m *Metrics) ObserveHTTP(method, pattern string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pattern).Observe(elapsed.Seconds())
}

// ObserveAssistant counts one assistant call. kind is chat, suggest,
// affirmation or propose.
func (m *Metrics) ObserveAssistant(kind, outcome string) {
	if m == nil {
		return
	}
	m.AssistantCallsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveHouseholdTx counts a membership transaction; a nil err is "ok".
func (m *Metrics) ObserveHouseholdTx(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.HouseholdTxTotal.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) WebsocketConnected() {
	if m == nil {
		return
	}
	m.WebsocketClients.Inc()
}

func (m *Metrics) WebsocketDisconnected() {
	if m == nil {
		return
	}
	m.WebsocketClients.Dec()
}

func (m *Metrics) ObservePush(outcome string) {
	if m == nil {
		return
	}
	m.PushSentTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncReminder() {
	if m == nil {
		return
	}
	m.RemindersTotal.Inc()
}

// ObserveBackup counts one backup run; a nil err is "ok".
func (m *Metrics) ObserveBackup(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BackupsTotal.WithLabelValues(outcome).Inc()
}
