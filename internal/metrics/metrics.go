// Package metrics exposes Prometheus collectors for group formation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mmynk/splitpass/internal/models"
)

const namespace = "splitpass"

// Metrics holds the collectors registered for one process.
type Metrics struct {
	runs          *prometheus.CounterVec
	groupsFormed  *prometheus.CounterVec
	grouped       *prometheus.CounterVec
	ungrouped     *prometheus.CounterVec
	failures      *prometheus.CounterVec
	rebalances    *prometheus.CounterVec
	tickDurations prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Grouping runs by mode and outcome (completed, skipped).",
		}, []string{"mode", "outcome"}),
		groupsFormed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_formed_total",
			Help:      "Groups produced by grouping runs.",
		}, []string{"mode"}),
		grouped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_grouped_total",
			Help:      "Participants placed in a group.",
		}, []string{"mode"}),
		ungrouped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_ungrouped_total",
			Help:      "Participants left without a group.",
		}, []string{"mode"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partition_failures_total",
			Help:      "Itinerary buckets or trips that could not be grouped, by reason.",
		}, []string{"mode", "reason"}),
		rebalances: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebalances_total",
			Help:      "Reactive rebalances by operation and outcome (ok, error).",
		}, []string{"op", "outcome"}),
		tickDurations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_tick_duration_seconds",
			Help:      "Wall time of batch ticks that ran.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveRun records a batch or manual run.
func (m *Metrics) ObserveRun(r models.RunResult) {
	mode := string(r.Mode)
	if r.Skipped {
		m.runs.WithLabelValues(mode, "skipped").Inc()
		return
	}

	m.runs.WithLabelValues(mode, "completed").Inc()
	m.tickDurations.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	m.observeTotals(mode, r.TotalGroups, r.TotalGrouped, r.TotalUngrouped, r.Failures)
}

// ObserveRebalance records one join or leave. err is the error returned by
// the rebalance, if any.
func (m *Metrics) ObserveRebalance(op string, r models.TripResult, err error) {
	if err != nil {
		m.rebalances.WithLabelValues(op, "error").Inc()
		m.failures.WithLabelValues(string(models.RunModeReactive), string(models.FailurePersistence)).Inc()
		return
	}

	m.rebalances.WithLabelValues(op, "ok").Inc()
	m.observeTotals(string(models.RunModeReactive), r.Groups, r.Grouped, r.Ungrouped, r.Failures)
}

func (m *Metrics) observeTotals(mode string, groups, grouped, ungrouped int, failures map[models.FailureReason]int) {
	m.groupsFormed.WithLabelValues(mode).Add(float64(groups))
	m.grouped.WithLabelValues(mode).Add(float64(grouped))
	m.ungrouped.WithLabelValues(mode).Add(float64(ungrouped))
	for reason, n := range failures {
		m.failures.WithLabelValues(mode, string(reason)).Add(float64(n))
	}
}
