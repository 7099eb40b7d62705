package memregion

import (
	"sync"
	"sync/atomic"
	"time"
)

// Slot is the process-wide home of the Region. It starts empty, is filled
// once by Populate during the freeze phase and is read concurrently after.
type Slot struct {
	mu     sync.Mutex
	region atomic.Pointer[Region]
	opts   []Option
}

// NewSlot creates an empty Slot whose Populate applies opts.
func NewSlot(opts ...Option) *Slot {
	return &Slot{opts: opts}
}

// Populate fills the slot. A second call fails with ErrAlreadyPopulated.
func (s *Slot) Populate(size int) (*Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.region.Load() != nil {
		return nil, ErrAlreadyPopulated
	}
	r, err := Populate(size, s.opts...)
	if err != nil {
		return nil, err
	}
	s.region.Store(r)
	return r, nil
}

// Region returns the populated region or ErrUninitializedRegion.
func (s *Slot) Region() (*Region, error) {
	r := s.region.Load()
	if r == nil {
		return nil, ErrUninitializedRegion
	}
	return r, nil
}

// Read walks the populated region with plan.
func (s *Slot) Read(plan AccessPlan) (time.Duration, error) {
	return s.ReadWith(StrategyFor(plan))
}

// ReadWith walks the populated region with strategy.
func (s *Slot) ReadWith(strategy Strategy) (time.Duration, error) {
	r, err := s.Region()
	if err != nil {
		return 0, err
	}
	return r.ReadWith(strategy), nil
}
