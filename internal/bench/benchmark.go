package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snapbench/internal/config"
	"snapbench/internal/lifecycle"
	"snapbench/internal/memregion"
	"snapbench/internal/response"
	"snapbench/internal/timing"
	"snapbench/internal/workload"
)

// Observer receives benchmark events. *collectors.BenchmarkCollector satisfies it.
type Observer interface {
	ObserveInvocation(plan memregion.AccessPlan, elapsedMs int64, err error)
	ObservePopulate(bytes, pages int, took time.Duration)
}

// Options selects the benchmark variant.
type Options struct {
	BufferSize int
	Plan       memregion.AccessPlan
	Region     string
	InstanceID string

	// Strategy overrides the strategy derived from Plan
	Strategy    memregion.Strategy
	Slot        *memregion.Slot
	Observer    Observer
	WorkCounter workload.IterationCounter
}

// OptionsFromConfig maps the benchmark section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BufferSize: int(cfg.Benchmark.BufferSize),
		Plan:       cfg.Benchmark.AccessPattern,
		Region:     cfg.Benchmark.Region,
	}
}

// Invocation is one validated request.
type Invocation struct {
	IncrementLimit uint64
	// RequestID is the host supplied identity, empty when there is none
	RequestID string
}

// Benchmark is the per-process pipeline: busy work, then a timed walk over
// the region populated at freeze.
type Benchmark struct {
	logger     *zap.Logger
	slot       *memregion.Slot
	sim        *workload.Simulator
	strategy   memregion.Strategy
	plan       memregion.AccessPlan
	size       int
	region     string
	instanceID string
	observer   Observer
}

// New creates a new Benchmark and registers its freeze and resume hooks
// Args:
// - logger: *zap.Logger
// - hooks: lifecycle.Hooks the region population is attached to
// - opts: Options
// Returns:
// - *Benchmark: new Benchmark instance
func New(logger *zap.Logger, hooks lifecycle.Hooks, opts Options) *Benchmark {
	if opts.Slot == nil {
		opts.Slot = memregion.NewSlot()
	}
	if opts.Strategy == nil {
		opts.Strategy = memregion.StrategyFor(opts.Plan)
	}
	if opts.InstanceID == "" {
		opts.InstanceID = uuid.NewString()
	}

	b := &Benchmark{
		logger:     logger.With(zap.String("instance", opts.InstanceID)),
		slot:       opts.Slot,
		sim:        workload.NewSimulator(opts.WorkCounter),
		strategy:   opts.Strategy,
		plan:       opts.Plan,
		size:       opts.BufferSize,
		region:     opts.Region,
		instanceID: opts.InstanceID,
		observer:   opts.Observer,
	}

	hooks.OnFreeze("populate-memory-region", b.populate)
	hooks.OnResume("memory-region-resumed", b.resumed)
	return b
}

func (b *Benchmark) populate(ctx context.Context) error {
	b.logger.Info("Populating memory region",
		zap.Int("bytes", b.size),
		zap.Stringer("pattern", b.plan),
	)

	var (
		region *memregion.Region
		err    error
	)
	took := timing.Default.Elapsed(func() { region, err = b.slot.Populate(b.size) })
	if err != nil {
		return fmt.Errorf("populate memory region: %w", err)
	}

	if b.observer != nil {
		b.observer.ObservePopulate(region.Len(), region.Pages(), took)
	}
	b.logger.Info("Memory region populated",
		zap.Int("pages", region.Pages()),
		zap.Duration("took", took),
	)
	return nil
}

func (b *Benchmark) resumed(ctx context.Context) error {
	region, err := b.slot.Region()
	if err != nil {
		return err
	}
	b.logger.Info("Resumed with populated memory region", zap.Int("pages", region.Pages()))
	return nil
}

// Invoke runs one benchmark invocation. It never retries and returns no
// result when the read fails.
func (b *Benchmark) Invoke(ctx context.Context, inv Invocation) (response.InvocationResult, error) {
	b.sim.Run(inv.IncrementLimit)

	elapsed, err := b.slot.ReadWith(b.strategy)
	ms := timing.Millis(elapsed)
	if b.observer != nil {
		b.observer.ObserveInvocation(b.plan, ms, err)
	}
	if err != nil {
		b.logger.Error("Memory read failed",
			zap.String("request_id", inv.RequestID),
			zap.Error(err),
		)
		return response.InvocationResult{}, fmt.Errorf("read memory region: %w", err)
	}

	result := response.Build(b.region, inv.RequestID, timing.FormatMillis(ms))
	b.logger.Debug("Invocation completed",
		zap.String("request_id", result.RequestID),
		zap.Uint64("increment_limit", inv.IncrementLimit),
		zap.Stringer("pattern", b.plan),
		zap.Int64("elapsed_ms", ms),
	)
	return result, nil
}

// Info describes the benchmark variant.
type Info struct {
	InstanceID string `json:"instanceId"`
	Pattern    string `json:"accessPattern"`
	BufferSize int    `json:"bufferSize"`
	Pages      int    `json:"pages"`
	Region     string `json:"region"`
	Populated  bool   `json:"populated"`
}

func (b *Benchmark) Info() Info {
	_, err := b.slot.Region()
	region := b.region
	if region == "" {
		region = response.DefaultRegion
	}
	return Info{
		InstanceID: b.instanceID,
		Pattern:    b.plan.String(),
		BufferSize: b.size,
		Pages:      b.size / memregion.PageSize,
		Region:     region,
		Populated:  err == nil,
	}
}

// ParseError reports a malformed incrementLimit.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid incrementLimit %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseIncrementLimit parses the optional incrementLimit parameter. An empty
// value means no work.
func ParseIncrementLimit(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &ParseError{Value: s, Err: err}
	}
	return n, nil
}

// ParseIncrementLimitBody reads IncrementLimit from a JSON request body such
// as {"IncrementLimit": 1000}. The value may be a number or a decimal string.
// An empty body or a missing field means no work.
func ParseIncrementLimitBody(body []byte) (uint64, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, nil
	}

	var payload struct {
		IncrementLimit json.RawMessage `json:"IncrementLimit"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, &ParseError{Value: string(body), Err: err}
	}

	raw := payload.IncrementLimit
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseIncrementLimit(s)
	}
	return ParseIncrementLimit(string(raw))
}

// ResolveIncrementLimit prefers the query parameter and falls back to the body.
func ResolveIncrementLimit(query string, body []byte) (uint64, error) {
	if query != "" {
		return ParseIncrementLimit(query)
	}
	return ParseIncrementLimitBody(body)
}

// IsUninitialized reports whether err comes from reading before populate.
func IsUninitialized(err error) bool {
	return errors.Is(err, memregion.ErrUninitializedRegion)
}
