package observability

import (
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the hub BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	backendErrors     *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	boards            *prometheus.CounterVec
	mutations         *prometheus.CounterVec
	wizardTransitions *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	duplicates        *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests call NewMetrics
// repeatedly without "duplicate collector" panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_request_duration_seconds",
				Help:    "Duration of operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_backend_errors_total",
				Help: "Total failed calls to the household backend.",
			},
			[]string{"section"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		boards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_boards_total",
				Help: "Section boards reconciled.",
			},
			[]string{"section"},
		),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_mutations_total",
				Help: "Record mutations by result.",
			},
			[]string{"op", "result"},
		),
		wizardTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_wizard_transitions_total",
				Help: "Get Started wizard transitions by action.",
			},
			[]string{"action"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_notifications_enqueued_total",
				Help: "Reminders added to onboarding queues.",
			},
			[]string{"type"},
		),
		duplicates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_duplicate_slot_records_total",
				Help: "Records that matched an already filled catalog slot.",
			},
			[]string{"section"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrBackendError increments the backend error counter.
func (m *Metrics) IncrBackendError(section string) {
	m.backendErrors.WithLabelValues(section).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrBoard counts a reconciled board and the duplicates it surfaced.
func (m *Metrics) IncrBoard(section string, duplicates int) {
	m.boards.WithLabelValues(section).Inc()
	if duplicates > 0 {
		m.duplicates.WithLabelValues(section).Add(float64(duplicates))
	}
}

// IncrMutation counts a create/update/delete by outcome ("success" or "error").
func (m *Metrics) IncrMutation(op, result string) {
	m.mutations.WithLabelValues(op, result).Inc()
}

// IncrWizard counts a wizard transition.
func (m *Metrics) IncrWizard(action string) {
	m.wizardTransitions.WithLabelValues(action).Inc()
}

// IncrNotification counts a newly queued reminder.
func (m *Metrics) IncrNotification(t domain.NotificationType) {
	m.notifications.WithLabelValues(string(t)).Inc()
}

// Snapshot summarises the counters for GET /v1/metrics/dashboard.
func (m *Metrics) Snapshot() *domain.DashboardMetrics {
	hits := sumCounter(m.cacheHits)
	misses := sumCounter(m.cacheMisses)
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	var succeeded, failed float64
	for _, op := range []string{"create", "update", "delete"} {
		succeeded += getCounterValue(m.mutations, op, "success")
		failed += getCounterValue(m.mutations, op, "error")
	}

	return &domain.DashboardMetrics{
		BoardRequests:         int64(sumCounter(m.boards)),
		MutationsSucceeded:    int64(succeeded),
		MutationsFailed:       int64(failed),
		BackendErrors:         int64(sumCounter(m.backendErrors)),
		CacheHitRate:          hitRate,
		NotificationsEnqueued: int64(sumCounter(m.notifications)),
		WizardCompletions:     int64(getCounterValue(m.wizardTransitions, "complete")),
		DuplicateSlotRecords:  int64(sumCounter(m.duplicates)),
		Period:                "all_time",
	}
}

// getCounterValue extracts the current value of one labelled counter.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	pb := &dto.Metric{}
	if err := counter.Write(pb); err != nil {
		return 0
	}
	if pb.Counter != nil && pb.Counter.Value != nil {
		return *pb.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of a counter vector.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil {
			continue
		}
		if pb.Counter != nil && pb.Counter.Value != nil {
			total += *pb.Counter.Value
		}
	}
	return total
}
