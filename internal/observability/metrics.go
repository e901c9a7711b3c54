package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for an ETL run.
type Metrics struct {
	ObjectIDs       prometheus.Counter
	BatchesFetched  prometheus.Counter
	RecordsFetched  prometheus.Counter
	RecordsWritten  prometheus.Counter
	RunInProgress   prometheus.Gauge
	RunDuration     prometheus.Gauge
	LastSuccessTime prometheus.Gauge

	// Batch fetch metrics.
	BatchSize          prometheus.Histogram
	BatchFetchDuration prometheus.Histogram

	// Corrections holds rows dropped or changed per rule. labels: rule
	Corrections *prometheus.CounterVec
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.ObjectIDs,
		m.BatchesFetched,
		m.RecordsFetched,
		m.RecordsWritten,
		m.RunInProgress,
		m.RunDuration,
		m.LastSuccessTime,
		m.BatchSize,
		m.BatchFetchDuration,
		m.Corrections,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObjectIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind_etl",
			Name:      "object_ids_total",
			Help:      "Object ids returned by the id-only query.",
		}),
		BatchesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind_etl",
			Name:      "batches_fetched_total",
			Help:      "Feature batches fetched from the query service.",
		}),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind_etl",
			Name:      "records_fetched_total",
			Help:      "Turbine records fetched before correction.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind_etl",
			Name:      "records_written_total",
			Help:      "Turbine records written to the output file.",
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind_etl",
			Name:      "run_in_progress",
			Help:      "1 while a run is active, 0 otherwise.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of the last completed run.",
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wind_etl",
			Name:      "batch_size",
			Help:      "Records per fetched batch.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 750, 1000},
		}),
		BatchFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wind_etl",
			Name:      "batch_fetch_duration_seconds",
			Help:      "Duration of a single batch query.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		Corrections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wind_etl",
			Name:      "corrections_total",
			Help:      "Rows dropped or changed by each correction rule.",
		}, []string{"rule"}),
	}
}

// WriteTextfile writes the default gatherer to path in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
