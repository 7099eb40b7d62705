package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snapbench/internal/response"
	"snapbench/internal/server"
)

const (
	envTarget   = "SNAPBENCH_TARGET"
	envMaxLimit = "SNAPBENCH_MAX_INCREMENT_LIMIT"

	defaultTarget = "http://localhost:8080/invoke"
	// Roughly 10ms of busy work on a Lambda vCPU.
	defaultMaxLimit = 6103705
)

// caller invokes the benchmark endpoint and decodes its response.
type caller struct {
	client *http.Client
	target string
	logger *zap.Logger
}

// invoke calls the endpoint once with the given incrementLimit.
// Returns:
// - response.InvocationResult: decoded body
// - time.Duration: round trip time seen by the caller
// - error: transport, status or decoding error
func (c *caller) invoke(ctx context.Context, incrementLimit uint64) (response.InvocationResult, time.Duration, error) {
	var result response.InvocationResult

	u, err := url.Parse(c.target)
	if err != nil {
		return result, 0, err
	}
	q := u.Query()
	q.Set("incrementLimit", strconv.FormatUint(incrementLimit, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return result, 0, err
	}
	req.Header.Set(server.RequestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return result, 0, err
	}
	defer resp.Body.Close()
	rtt := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return result, rtt, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, rtt, fmt.Errorf("decode response: %w", err)
	}
	return result, rtt, nil
}

// burst calls the endpoint repetitions times with the same incrementLimit.
func (c *caller) burst(ctx context.Context, incrementLimit uint64, repetitions int, pause time.Duration) int {
	ok := 0
	for i := 0; i < repetitions; i++ {
		result, rtt, err := c.invoke(ctx, incrementLimit)
		if err != nil {
			c.logger.Warn("Invocation failed", zap.Uint64("increment_limit", incrementLimit), zap.Error(err))
		} else {
			ok++
			c.logger.Info("Invocation completed",
				zap.String("request_id", result.RequestID),
				zap.String("region", result.Region),
				zap.Strings("timestamp_chain", result.TimestampChain),
				zap.Duration("rtt", rtt),
			)
		}

		select {
		case <-ctx.Done():
			return ok
		case <-time.After(pause):
		}
	}
	return ok
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	target := os.Getenv(envTarget)
	if target == "" {
		target = defaultTarget
	}
	maxLimit := uint64(defaultMaxLimit)
	if v := os.Getenv(envMaxLimit); v != "" {
		if maxLimit, err = strconv.ParseUint(v, 10, 64); err != nil {
			logger.Fatal("Invalid max increment limit", zap.String("value", v), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &caller{
		client: &http.Client{Timeout: 2 * time.Minute},
		target: target,
		logger: logger,
	}

	logger.Info("Starting bursty benchmark caller", zap.String("target", target))

	// Each burst picks one incrementLimit so the cost of pre-request work
	// shows up as a step in the reported read times.
	for ctx.Err() == nil {
		limit := rand.Uint64N(maxLimit + 1)
		repetitions := rand.IntN(41) + 10

		logger.Info("Starting new burst",
			zap.Uint64("increment_limit", limit),
			zap.Int("repetitions", repetitions),
		)
		ok := c.burst(ctx, limit, repetitions, 200*time.Millisecond)
		logger.Info("Burst finished", zap.Int("successful", ok))

		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
	}
}
