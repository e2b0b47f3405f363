// Package metrics holds the engine's prometheus collectors. They
// register into prometheus.DefaultRegisterer the way a plain Go
// service would.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "engine"

var (
	// QueueDepth reports the current occupancy of the event queue.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of events held in the bounded event queue.",
	})

	// QueuePushTotal counts push outcomes by result: ok, retried, flooded.
	QueuePushTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_push_total",
		Help:      "Total event queue push attempts by outcome.",
	}, []string{"outcome"})

	// QueuePopTotal counts successful pops from the event queue.
	QueuePopTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_pop_total",
		Help:      "Total events popped from the event queue.",
	})

	// RouterEventsTotal counts router dispatch outcomes by route name,
	// or "unmatched" when no route's filter succeeded.
	RouterEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "router_events_total",
		Help:      "Total events dispatched by the router, by matched route name.",
	}, []string{"route"})

	// RouterEvalDuration tracks policy expression evaluation latency.
	RouterEvalDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "router_eval_duration_seconds",
		Help:      "Duration of one route's filter+policy evaluation.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"route"})

	// RouterWorkers reports the configured worker pool size.
	RouterWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "router_workers",
		Help:      "Configured router worker pool size.",
	})

	// KVDBCallsTotal counts kvdb_* helper calls by operation and outcome.
	KVDBCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kvdb_calls_total",
		Help:      "Total KVDB collaborator calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	// WDBCallDuration tracks wdb_update's socket round-trip latency.
	WDBCallDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "wdb_call_duration_seconds",
		Help:      "Duration of wdb_update socket round trips.",
		Buckets:   prometheus.DefBuckets,
	})

	// StoreReloadsTotal counts asset store hot-reload invalidations.
	StoreReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_reloads_total",
		Help:      "Total asset store cache invalidations triggered by file watch events.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		QueueDepth,
		QueuePushTotal,
		QueuePopTotal,
		RouterEventsTotal,
		RouterEvalDuration,
		RouterWorkers,
		KVDBCallsTotal,
		WDBCallDuration,
		StoreReloadsTotal,
	)
}
