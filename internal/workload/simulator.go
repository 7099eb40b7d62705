package workload

import "sync/atomic"

// sink receives the final loop count of every SimulateWork call so the
// compiler has an observable use of the counter and keeps the loop.
var sink atomic.Uint64

// onIteration, when set, is called once per loop iteration. Nil outside tests.
var onIteration func()

// SimulateWork spins the CPU for exactly n iterations of a counting loop
// and returns the number of iterations executed.
func SimulateWork(n uint64) uint64 {
	var i uint64
	for i < n {
		i++
		if onIteration != nil {
			onIteration()
		}
	}
	sink.Store(i)
	return i
}

// IterationCounter receives the number of iterations a Simulator executed.
// prometheus.Counter satisfies it.
type IterationCounter interface {
	Add(float64)
}

// Simulator runs SimulateWork and reports executed iterations to a counter.
type Simulator struct {
	counter IterationCounter
}

// NewSimulator creates a new Simulator
// Args:
// - counter: IterationCounter, may be nil
// Returns:
// - *Simulator: new Simulator instance
func NewSimulator(counter IterationCounter) *Simulator {
	return &Simulator{counter: counter}
}

// Run burns n iterations and returns the executed count.
func (s *Simulator) Run(n uint64) uint64 {
	done := SimulateWork(n)
	if s.counter != nil && done > 0 {
		s.counter.Add(float64(done))
	}
	return done
}
