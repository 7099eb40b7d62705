package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrAlreadyFrozen = errors.New("freeze hooks already fired")
	ErrNotFrozen     = errors.New("resume requested before freeze")
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// Hooks lets a component register work for the snapshot boundary.
// On-freeze hooks run at most once, before the process state is captured.
// On-resume hooks run after every restore, always after freeze.
type Hooks interface {
	OnFreeze(name string, h Hook)
	OnResume(name string, h Hook)
}

type namedHook struct {
	name string
	hook Hook
}

// Registry collects hooks and fires them when the host calls Freeze or Resume.
type Registry struct {
	logger *zap.Logger

	mu      sync.Mutex
	freeze  []namedHook
	resume  []namedHook
	frozen  bool
	resumes int
}

// NewRegistry creates a new Registry
// Args:
// - logger: *zap.Logger
// Returns:
// - *Registry: new Registry instance
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger}
}

func (r *Registry) OnFreeze(name string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freeze = append(r.freeze, namedHook{name: name, hook: h})
}

func (r *Registry) OnResume(name string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resume = append(r.resume, namedHook{name: name, hook: h})
}

// Freeze runs the on-freeze hooks in registration order. It may be called
// once; the first failing hook aborts the rest.
func (r *Registry) Freeze(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrAlreadyFrozen
	}
	r.frozen = true

	r.logger.Info("Running freeze hooks", zap.Int("hooks", len(r.freeze)))
	return r.run(ctx, "freeze", r.freeze)
}

// Resume runs the on-resume hooks. It fails with ErrNotFrozen until Freeze
// has been called.
func (r *Registry) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frozen {
		return ErrNotFrozen
	}
	r.resumes++

	r.logger.Info("Running resume hooks",
		zap.Int("hooks", len(r.resume)),
		zap.Int("resume", r.resumes),
	)
	return r.run(ctx, "resume", r.resume)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

func (r *Registry) run(ctx context.Context, phase string, hooks []namedHook) error {
	for _, h := range hooks {
		if err := h.hook(ctx); err != nil {
			r.logger.Error("Lifecycle hook failed",
				zap.String("phase", phase),
				zap.String("hook", h.name),
				zap.Error(err),
			)
			return fmt.Errorf("%s hook %q: %w", phase, h.name, err)
		}
		r.logger.Debug("Lifecycle hook completed",
			zap.String("phase", phase),
			zap.String("hook", h.name),
		)
	}
	return nil
}
