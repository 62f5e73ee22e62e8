// Package metrics exposes Prometheus collectors for the filter.
// Collection is passive; nothing here ever fails a caller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haukened/sinkhole/internal/filter/domain"
)

var (
	blockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinkhole_blocked_total",
			Help: "Total refused calls by interception layer",
		},
		[]string{"layer"},
	)
	reloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sinkhole_reloads_total",
			Help: "Total rule-set reload cycles completed",
		},
	)
	loadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sinkhole_load_errors_total",
			Help: "Total rule-source read failures (non-fatal)",
		},
		[]string{"source"},
	)
	ruleCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sinkhole_rules",
			Help: "Entries in the active rule set per list",
		},
		[]string{"list"},
	)
)

func init() {
	prometheus.MustRegister(blockedTotal, reloadsTotal, loadErrorsTotal, ruleCount)
}

// ObserveReload counts one completed reload cycle.
func ObserveReload() {
	reloadsTotal.Inc()
}

// ObserveLoadError counts one non-fatal source read failure.
func ObserveLoadError(source string) {
	loadErrorsTotal.WithLabelValues(source).Inc()
}

// SetRuleCounts records the size of the active rule set.
func SetRuleCounts(blocked, allowed int) {
	ruleCount.WithLabelValues("blocked").Set(float64(blocked))
	ruleCount.WithLabelValues("allowed").Set(float64(allowed))
}

// BlockSink counts block events. It satisfies the hook registry's
// event sink contract.
type BlockSink struct{}

// BlockedEvent increments the per-layer refusal counter.
func (BlockSink) BlockedEvent(ev domain.BlockEvent) {
	blockedTotal.WithLabelValues(ev.Layer.String()).Inc()
}
