// Package metrics exposes prometheus instrumentation for analysis
// runs: run counts and durations, repair fixes by category, and
// voltage violations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all engine metrics
type Registry struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RepairFixesTotal *prometheus.CounterVec
	ViolationsTotal  prometheus.Counter
	GraphNodes       prometheus.Histogram
	GraphEdges       prometheus.Histogram
}

// NewRegistry creates and registers all engine metrics against the
// given registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridmend",
			Name:      "runs_total",
			Help:      "Analysis runs by outcome status",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridmend",
			Name:      "run_duration_seconds",
			Help:      "End-to-end duration of analysis runs",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		RepairFixesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridmend",
			Name:      "repair_fixes_total",
			Help:      "Topology fixes applied, by category",
		}, []string{"category"}),
		ViolationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridmend",
			Name:      "voltage_violations_total",
			Help:      "Nodes flagged over the voltage-drop threshold",
		}),
		GraphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridmend",
			Name:      "graph_nodes",
			Help:      "Node counts of analyzed graphs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		GraphEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridmend",
			Name:      "graph_edges",
			Help:      "Edge counts of analyzed graphs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	reg.MustRegister(
		r.RunsTotal,
		r.RunDuration,
		r.RepairFixesTotal,
		r.ViolationsTotal,
		r.GraphNodes,
		r.GraphEdges,
	)
	return r
}

// RecordRun records the outcome and duration of one analysis run
func (r *Registry) RecordRun(status string, duration time.Duration) {
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(duration.Seconds())
}

// RecordGraph records the size of an analyzed graph
func (r *Registry) RecordGraph(nodes, edges int) {
	r.GraphNodes.Observe(float64(nodes))
	r.GraphEdges.Observe(float64(edges))
}

// RecordFixes records repair counters by category
func (r *Registry) RecordFixes(cyclesRemoved, selfLoops, merged, reversed, parallelFeeds, orphans int) {
	r.RepairFixesTotal.WithLabelValues("cycles_removed").Add(float64(cyclesRemoved))
	r.RepairFixesTotal.WithLabelValues("self_loops_dropped").Add(float64(selfLoops))
	r.RepairFixesTotal.WithLabelValues("components_merged").Add(float64(merged))
	r.RepairFixesTotal.WithLabelValues("edges_reversed").Add(float64(reversed))
	r.RepairFixesTotal.WithLabelValues("parallel_feeds_removed").Add(float64(parallelFeeds))
	r.RepairFixesTotal.WithLabelValues("orphans_removed").Add(float64(orphans))
}

// RecordViolations records voltage-threshold violations
func (r *Registry) RecordViolations(count int) {
	r.ViolationsTotal.Add(float64(count))
}
