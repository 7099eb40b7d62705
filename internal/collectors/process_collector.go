package collectors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"snapbench/internal/utils"
)

// ProcessCollector collects memory and page fault figures of the benchmark
// process itself. Page faults are what the access patterns provoke after a
// restore, so they are reported next to the read timings.
type ProcessCollector struct {
	deps *CollectorDependencies
	pid  int

	// Prometheus metrics
	// memoryBytes: resident and virtual size in bytes
	// pageFaults: cumulative minor and major page faults as reported by ps
	memoryBytes *prometheus.GaugeVec
	pageFaults  *prometheus.GaugeVec
}

// NewProcessCollector creates a new ProcessCollector
// Args:
// - deps: CollectorDependencies
// Returns:
// - *ProcessCollector: new ProcessCollector instance
func NewProcessCollector(deps *CollectorDependencies) *ProcessCollector {
	return &ProcessCollector{
		deps: deps,
		pid:  os.Getpid(),
		memoryBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "snapbench_process_memory_bytes",
				Help: "Benchmark process memory in bytes",
			},
			[]string{"type"}, // rss, vsz
		),
		pageFaults: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "snapbench_process_page_faults",
				Help: "Cumulative page faults of the benchmark process",
			},
			[]string{"type"}, // minor, major
		),
	}
}

func (c *ProcessCollector) Name() string {
	return "process"
}

// Describe implements the prometheus.Collector interface
func (c *ProcessCollector) Describe(ch chan<- *prometheus.Desc) {
	c.memoryBytes.Describe(ch)
	c.pageFaults.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (c *ProcessCollector) Collect(ch chan<- prometheus.Metric) {
	c.memoryBytes.Collect(ch)
	c.pageFaults.Collect(ch)
}

// CollectMetrics refreshes the process metrics
// The command it runs is:
// - ps -o rss=,vsz=,min_flt=,maj_flt= -p pid
func (c *ProcessCollector) CollectMetrics(ctx context.Context) error {
	if !c.deps.Config.Metrics.EnableProcessMetrics {
		return nil
	}
	c.deps.Logger.Debug("Collecting process metrics", zap.Int("pid", c.pid))

	output, err := c.deps.Executor.GetProcessMemory(ctx, c.pid)
	if err != nil {
		return err
	}

	stats, err := parseProcessStats(string(output))
	if err != nil {
		return err
	}

	// ps reports rss and vsz in KiB
	c.memoryBytes.WithLabelValues("rss").Set(stats[0] * 1024)
	c.memoryBytes.WithLabelValues("vsz").Set(stats[1] * 1024)
	c.pageFaults.WithLabelValues("minor").Set(stats[2])
	c.pageFaults.WithLabelValues("major").Set(stats[3])

	return nil
}

// parseProcessStats parses the first "rss vsz minflt majflt" line of ps output
// Example: "  51234 1203332   10422     3"
func parseProcessStats(output string) ([4]float64, error) {
	var stats [4]float64

	lines := utils.ParseCommandOutput([]byte(output))
	if len(lines) == 0 {
		return stats, errors.New("empty ps output")
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 4 {
		return stats, fmt.Errorf("unexpected ps output %q", strings.TrimSpace(output))
	}

	for i := range stats {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return stats, fmt.Errorf("parse ps field %d: %w", i, err)
		}
		stats[i] = v
	}

	return stats, nil
}
