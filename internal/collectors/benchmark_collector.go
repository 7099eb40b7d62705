package collectors

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"snapbench/internal/memregion"
)

// BenchmarkCollector exposes the outcome of every benchmark invocation.
// It is fed by the benchmark itself, so CollectMetrics has nothing to poll.
type BenchmarkCollector struct {
	invocations     *prometheus.CounterVec
	readDuration    *prometheus.HistogramVec
	workIterations  prometheus.Counter
	regionBytes     prometheus.Gauge
	regionPages     prometheus.Gauge
	populateSeconds prometheus.Gauge
}

// NewBenchmarkCollector creates a new BenchmarkCollector
// Returns:
// - *BenchmarkCollector: new BenchmarkCollector instance
func NewBenchmarkCollector() *BenchmarkCollector {
	return &BenchmarkCollector{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapbench_invocations_total",
				Help: "Benchmark invocations by access pattern and outcome",
			},
			[]string{"pattern", "outcome"}, // ok, error
		),
		readDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snapbench_read_duration_milliseconds",
				Help:    "Elapsed time of one full page walk in whole milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"pattern"},
		),
		workIterations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snapbench_work_iterations_total",
				Help: "Busy loop iterations executed before memory reads",
			},
		),
		regionBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapbench_region_bytes",
				Help: "Size of the populated memory region in bytes",
			},
		),
		regionPages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapbench_region_pages",
				Help: "Number of pages in the populated memory region",
			},
		),
		populateSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapbench_populate_duration_seconds",
				Help: "Time spent populating the memory region before freeze",
			},
		),
	}
}

func (c *BenchmarkCollector) Name() string {
	return "benchmark"
}

// Describe implements the prometheus.Collector interface
func (c *BenchmarkCollector) Describe(ch chan<- *prometheus.Desc) {
	c.invocations.Describe(ch)
	c.readDuration.Describe(ch)
	c.workIterations.Describe(ch)
	c.regionBytes.Describe(ch)
	c.regionPages.Describe(ch)
	c.populateSeconds.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (c *BenchmarkCollector) Collect(ch chan<- prometheus.Metric) {
	c.invocations.Collect(ch)
	c.readDuration.Collect(ch)
	c.workIterations.Collect(ch)
	c.regionBytes.Collect(ch)
	c.regionPages.Collect(ch)
	c.populateSeconds.Collect(ch)
}

func (c *BenchmarkCollector) CollectMetrics(ctx context.Context) error {
	return nil
}

// ObserveInvocation records one invocation. elapsedMs is ignored on error.
func (c *BenchmarkCollector) ObserveInvocation(plan memregion.AccessPlan, elapsedMs int64, err error) {
	if err != nil {
		c.invocations.WithLabelValues(plan.String(), "error").Inc()
		return
	}
	c.invocations.WithLabelValues(plan.String(), "ok").Inc()
	c.readDuration.WithLabelValues(plan.String()).Observe(float64(elapsedMs))
}

// ObservePopulate records the populated region.
func (c *BenchmarkCollector) ObservePopulate(bytes, pages int, took time.Duration) {
	c.regionBytes.Set(float64(bytes))
	c.regionPages.Set(float64(pages))
	c.populateSeconds.Set(took.Seconds())
}

// WorkIterations is the counter advanced by the work simulator.
func (c *BenchmarkCollector) WorkIterations() prometheus.Counter {
	return c.workIterations
}
