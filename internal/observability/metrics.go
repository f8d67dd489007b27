package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "climate_grid"

// Metrics holds the Prometheus counters and histograms for estimation and
// gridding runs.
type Metrics struct {
	registry *prometheus.Registry

	// Estimator metrics.
	StationsEstimated  *prometheus.CounterVec // labels: state
	StationsSkipped    *prometheus.CounterVec // labels: reason={empty,aggregate,observed,out_of_domain}
	RangeViolations    *prometheus.CounterVec // labels: field
	ReferenceOverrides prometheus.Counter
	CardinalityAnomaly prometheus.Counter
	RegionFailures     *prometheus.CounterVec // labels: state
	RunDuration        prometheus.Histogram

	// Gridder metrics.
	InsufficientData *prometheus.CounterVec // labels: variable
	ClampedCells     *prometheus.CounterVec // labels: variable
	SlicesWritten    *prometheus.CounterVec // labels: variable
}

// NewMetrics creates the metrics and registers them on a dedicated
// registry. Use Registry to expose or push them.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.registry.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		registry: prometheus.NewRegistry(),
		StationsEstimated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_estimated_total",
			Help:      "Daily records written with estimated values.",
		}, []string{"state"}),
		StationsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_skipped_total",
			Help:      "Stations not written, by reason.",
		}, []string{"reason"}),
		RangeViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_violations_total",
			Help:      "Estimated values that failed a plausibility bound.",
		}, []string{"field"}),
		ReferenceOverrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_overrides_total",
			Help:      "Fields replaced by a reference site observation.",
		}),
		CardinalityAnomaly: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_cardinality_anomalies_total",
			Help:      "Estimate updates that did not touch exactly one row.",
		}),
		RegionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_failures_total",
			Help:      "Regions whose transaction was rolled back.",
		}, []string{"state"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete estimator or gridder run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		InsufficientData: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_data_total",
			Help:      "Grids skipped for lack of valid samples.",
		}, []string{"variable"}),
		ClampedCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clamped_cells_total",
			Help:      "Cells clamped to the variable's valid range on write.",
		}, []string{"variable"}),
		SlicesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slices_written_total",
			Help:      "Grid slices written to a store.",
		}, []string{"variable"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StationsEstimated,
		m.StationsSkipped,
		m.RangeViolations,
		m.ReferenceOverrides,
		m.CardinalityAnomaly,
		m.RegionFailures,
		m.RunDuration,
		m.InsufficientData,
		m.ClampedCells,
		m.SlicesWritten,
	}
}

// Registry returns the registry holding the metrics. For metrics built with
// NewMetricsForTesting it is empty.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the metrics to a Prometheus Pushgateway under a job name. It
// is a no-op when url is empty.
func (m *Metrics) Push(url, job, instance string) error {
	if url == "" {
		return nil
	}
	p := push.New(url, job).Gatherer(m.registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
