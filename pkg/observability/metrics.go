package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "labdesc"

// Load results recorded by DescriptorLoadsTotal.
const (
	LoadResultOK             = "ok"
	LoadResultReadError      = "read_error"
	LoadResultParseError     = "parse_error"
	LoadResultSchemaError    = "schema_error"
	LoadResultReferenceError = "reference_error"
)

var (
	// DescriptorLoadsTotal counts descriptor loads by result.
	DescriptorLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "descriptor_loads_total",
			Help:      "Total number of lab descriptor loads",
		},
		[]string{"result"},
	)

	// DescriptorLoadDuration measures how long a full load takes, reference checks included.
	DescriptorLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "descriptor_load_duration_seconds",
			Help:      "Duration of lab descriptor loads in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	// CatalogScenarios tracks the number of scenarios in the active catalog.
	CatalogScenarios = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "catalog_scenarios",
			Help:      "Number of scenarios currently loaded in the catalog",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DescriptorLoadsTotal,
		DescriptorLoadDuration,
		CatalogScenarios,
	)
}

// ObserveLoad records one descriptor load.
func ObserveLoad(result string, took time.Duration) {
	DescriptorLoadsTotal.WithLabelValues(result).Inc()
	DescriptorLoadDuration.Observe(took.Seconds())
}
