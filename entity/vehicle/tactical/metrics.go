package tactical

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plansBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tactical_plans_total",
		Help: "Operational plans built by kind",
	}, []string{"kind"})

	planDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tactical_plan_build_duration_seconds",
		Help:    "Time spent building one operational plan",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	laneChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tactical_lane_changes_total",
		Help: "Committed lane changes by side",
	}, []string{"side"})

	networkInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tactical_network_inconsistencies_total",
		Help: "Suitability queries degraded to no-change because of a route or network inconsistency",
	})

	unreachableLanes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tactical_unreachable_lanes_total",
		Help: "Plans degraded to car following because the lane ends without an accessible neighbour",
	})
)
