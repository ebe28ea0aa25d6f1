package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexchan_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexchan_graph_entities_total",
		Help: "Total number of entities in the code graph.",
	})

	GraphReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexchan_graph_references_total",
		Help: "Total number of resolved references in the code graph.",
	})

	GraphUnresolved = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexchan_graph_unresolved_total",
		Help: "Total number of unresolved reference sites.",
	})

	ResolverPassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexchan_resolver_pass_seconds",
		Help:    "Time spent in each resolver pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	RefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexchan_refresh_seconds",
		Help:    "Time spent on a store refresh.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	DeadCodeTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "indexchan_dead_code_total",
		Help: "Number of non-live entities per safety tier.",
	}, []string{"tier"})

	ContextGatherDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "indexchan_context_gather_seconds",
		Help:    "Time spent assembling a context bundle.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexchan_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexchan_write_queue_depth",
		Help: "Current number of in-memory apply requests waiting to be persisted.",
	})

	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexchan_rpc_requests_total",
		Help: "Total number of RPC requests handled, by method and outcome.",
	}, []string{"method", "outcome"})
)
