package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apidrift_classifications_total",
		Help: "Total number of classified tasks by outcome.",
	}, []string{"outcome"})

	ClassifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "apidrift_classify_duration_seconds",
		Help:    "Time spent resolving bindings and classifying one task.",
		Buckets: prometheus.DefBuckets,
	})

	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apidrift_scan_duration_seconds",
		Help:    "Time spent scanning one package version.",
		Buckets: prometheus.DefBuckets,
	}, []string{"package"})

	ScannedAPIs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apidrift_scanned_apis",
		Help: "Number of APIs recorded by the last scanned version.",
	})

	RepairQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apidrift_repair_queue_depth",
		Help: "Current number of repair tasks waiting to be consumed.",
	})

	RepairEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apidrift_repair_enqueued_total",
		Help: "Total number of repair tasks accepted by the repair sink.",
	})

	RepairDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apidrift_repair_dropped_total",
		Help: "Total number of repair tasks rejected by the repair sink.",
	})

	SignatureLookupErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apidrift_signature_lookup_errors_total",
		Help: "Total number of tasks skipped because no signature could be loaded.",
	})

	WatchEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apidrift_watch_events_total",
		Help: "Total number of file system events seen by the corpus watcher.",
	})
)
