package collectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"snapbench/internal/config"
	"snapbench/internal/memregion"
)

type fakeExecutor struct {
	output []byte
	err    error
	pids   []int
}

func (f *fakeExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	return f.output, f.err
}

func (f *fakeExecutor) GetProcessMemory(ctx context.Context, pid int) ([]byte, error) {
	f.pids = append(f.pids, pid)
	return f.output, f.err
}

func newDeps(t *testing.T, exec *fakeExecutor) *CollectorDependencies {
	return &CollectorDependencies{
		Executor: exec,
		Logger:   zaptest.NewLogger(t),
		Config:   config.New(),
	}
}

func TestProcessCollector_CollectMetrics(t *testing.T) {
	exec := &fakeExecutor{output: []byte("  2048  409600   1500    7\n")}
	c := NewProcessCollector(newDeps(t, exec))

	require.NoError(t, c.CollectMetrics(context.Background()))

	assert.Equal(t, []int{c.pid}, exec.pids)
	assert.Equal(t, float64(2048*1024), testutil.ToFloat64(c.memoryBytes.WithLabelValues("rss")))
	assert.Equal(t, float64(409600*1024), testutil.ToFloat64(c.memoryBytes.WithLabelValues("vsz")))
	assert.Equal(t, float64(1500), testutil.ToFloat64(c.pageFaults.WithLabelValues("minor")))
	assert.Equal(t, float64(7), testutil.ToFloat64(c.pageFaults.WithLabelValues("major")))
}

func TestProcessCollector_Disabled(t *testing.T) {
	exec := &fakeExecutor{}
	deps := newDeps(t, exec)
	deps.Config.Metrics.EnableProcessMetrics = false

	require.NoError(t, NewProcessCollector(deps).CollectMetrics(context.Background()))
	assert.Empty(t, exec.pids)
}

func TestProcessCollector_Errors(t *testing.T) {
	boom := errors.New("ps missing")
	c := NewProcessCollector(newDeps(t, &fakeExecutor{err: boom}))
	assert.ErrorIs(t, c.CollectMetrics(context.Background()), boom)

	c = NewProcessCollector(newDeps(t, &fakeExecutor{output: []byte("12 34")}))
	assert.Error(t, c.CollectMetrics(context.Background()))

	c = NewProcessCollector(newDeps(t, &fakeExecutor{output: []byte("12 34 x 1")}))
	assert.Error(t, c.CollectMetrics(context.Background()))

	c = NewProcessCollector(newDeps(t, &fakeExecutor{output: []byte("\n  \n")}))
	assert.ErrorContains(t, c.CollectMetrics(context.Background()), "empty ps output")
}

func TestParseProcessStats_FirstLine(t *testing.T) {
	stats, err := parseProcessStats("\n  100 200 3 4\n  999 999 9 9\n")
	require.NoError(t, err)
	assert.Equal(t, [4]float64{100, 200, 3, 4}, stats)
}

func TestBenchmarkCollector_ObserveInvocation(t *testing.T) {
	c := NewBenchmarkCollector()

	c.ObserveInvocation(memregion.Random, 12, nil)
	c.ObserveInvocation(memregion.Random, 3, nil)
	c.ObserveInvocation(memregion.Sequential, 0, memregion.ErrUninitializedRegion)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.invocations.WithLabelValues("random", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.invocations.WithLabelValues("sequential", "error")))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	count, err := testutil.GatherAndCount(reg, "snapbench_read_duration_milliseconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBenchmarkCollector_ObservePopulate(t *testing.T) {
	c := NewBenchmarkCollector()
	c.ObservePopulate(8192, 2, 1500*time.Millisecond)

	assert.Equal(t, float64(8192), testutil.ToFloat64(c.regionBytes))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.regionPages))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.populateSeconds))
}

func TestBenchmarkCollector_WorkIterations(t *testing.T) {
	c := NewBenchmarkCollector()
	c.WorkIterations().Add(250)

	assert.Equal(t, float64(250), testutil.ToFloat64(c.workIterations))
	assert.NoError(t, c.CollectMetrics(context.Background()))
}

func TestCollectorsRegister(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	deps := newDeps(t, &fakeExecutor{})

	for _, c := range []Collector{NewBenchmarkCollector(), NewProcessCollector(deps)} {
		assert.NoError(t, reg.Register(c), c.Name())
	}
}
