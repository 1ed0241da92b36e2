package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// crash ETL pipeline.
type Metrics struct {
	RowsIngested      *prometheus.CounterVec // labels: jurisdiction, table
	RowsKept          *prometheus.CounterVec // labels: jurisdiction, table
	CrashesMerged     *prometheus.CounterVec // labels: jurisdiction
	DuplicateKeys     *prometheus.CounterVec // labels: jurisdiction
	PartitionFailures *prometheus.CounterVec // labels: jurisdiction
	PartitionDuration prometheus.Histogram
	PipelineRunning   prometheus.Gauge

	// Export metrics.
	FeaturesExported   *prometheus.CounterVec // labels: jurisdiction
	BucketFilesWritten *prometheus.CounterVec // labels: jurisdiction
	RowsSkippedNoCoord *prometheus.CounterVec // labels: jurisdiction
	FeaturesPublished  prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "rows_ingested_total",
			Help:      "Raw rows read from source extracts.",
		}, []string{"jurisdiction", "table"}),
		RowsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "rows_kept_total",
			Help:      "Rows remaining after normalization and filtering.",
		}, []string{"jurisdiction", "table"}),
		CrashesMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "crashes_merged_total",
			Help:      "Joined crash rows produced by the merge step.",
		}, []string{"jurisdiction"}),
		DuplicateKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "duplicate_keys_total",
			Help:      "Crash rows sharing a composite key (last write wins).",
		}, []string{"jurisdiction"}),
		PartitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "partition_failures_total",
			Help:      "Partitions that aborted before producing a merged snapshot.",
		}, []string{"jurisdiction"}),
		PartitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crash_etl",
			Name:      "partition_duration_seconds",
			Help:      "Duration of a complete ingest-normalize-merge cycle for one partition.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crash_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		FeaturesExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "features_exported_total",
			Help:      "Point features written to bucket files.",
		}, []string{"jurisdiction"}),
		BucketFilesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "bucket_files_written_total",
			Help:      "Feature-collection files written per export run.",
		}, []string{"jurisdiction"}),
		RowsSkippedNoCoord: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "rows_skipped_no_coordinates_total",
			Help:      "Joined rows dropped from export for lacking parseable coordinates.",
		}, []string{"jurisdiction"}),
		FeaturesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crash_etl",
			Name:      "features_published_total",
			Help:      "Classified features published to the Kafka sink.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsIngested,
		m.RowsKept,
		m.CrashesMerged,
		m.DuplicateKeys,
		m.PartitionFailures,
		m.PartitionDuration,
		m.PipelineRunning,
		m.FeaturesExported,
		m.BucketFilesWritten,
		m.RowsSkippedNoCoord,
		m.FeaturesPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
