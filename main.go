package main

import (
	"context"
	"fmt"
	"time"

	"snapbench/internal/bench"
	"snapbench/internal/collectors"
	"snapbench/internal/config"
	"snapbench/internal/lambdaadapter"
	"snapbench/internal/lifecycle"
	"snapbench/internal/server"
	"snapbench/internal/utils"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var configPath = "internal/config/configurations.json"

// Populating a 1GiB region takes a while on small instances.
const startTimeout = 2 * time.Minute

func main() {
	app := fx.New(
		appOptions(configPath),
		fx.StartTimeout(startTimeout),
	)

	app.Run()
}

func appOptions(path string) fx.Option {
	return fx.Options(
		// Provide dependencies
		fx.Provide(
			func() (*config.Config, error) {
				cfg, err := config.Load(path)
				if err != nil {
					return nil, fmt.Errorf("failed to load configuration: %w", err)
				}
				return cfg, nil
			},
			newLogger,
			lifecycle.NewRegistry,
			collectors.NewBenchmarkCollector,
			newBenchmark,
			fx.Annotate(utils.NewSystemCommandExecutor, fx.As(new(utils.CommandExecutor))),
			server.New,
			server.NewServerLifecycle,
			lambdaadapter.NewHandler,
		),

		// Invoke startup functions
		fx.Invoke(registerLifecycle),

		// Configure logging
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

// newLogger builds the zap logger selected by the logging section
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Logging.Format == "json" {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level

	return zcfg.Build()
}

func newBenchmark(cfg *config.Config, logger *zap.Logger, registry *lifecycle.Registry, metrics *collectors.BenchmarkCollector) *bench.Benchmark {
	opts := bench.OptionsFromConfig(cfg)
	opts.Observer = metrics
	opts.WorkCounter = metrics.WorkIterations()
	return bench.New(logger, registry, opts)
}

// registerLifecycle populates the memory region before any transport starts.
// Without an external snapshot host the process freezes and resumes at once.
func registerLifecycle(
	lc fx.Lifecycle,
	registry *lifecycle.Registry,
	serverLifecycle *server.ServerLifecycle,
	handler *lambdaadapter.Handler,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := registry.Freeze(ctx); err != nil {
				return err
			}
			return registry.Resume(ctx)
		},
	})

	if lambdaadapter.InLambda() {
		logger.Info("Lambda runtime detected, HTTP server disabled")
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go handler.Start()
				return nil
			},
		})
		return
	}

	lc.Append(fx.Hook{
		OnStart: serverLifecycle.Start,
		OnStop:  serverLifecycle.Stop,
	})
}
