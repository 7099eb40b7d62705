package memregion

import "math/rand/v2"

// Pages is anything that can be walked one page at a time.
type Pages interface {
	// Pages returns the number of pages
	Pages() int
	// Touch reads one byte at the start of the page
	Touch(page int) byte
}

// Strategy walks every page once, in its own order, and returns the XOR of
// the touched bytes.
type Strategy interface {
	Walk(p Pages) byte
}

// SequentialStrategy visits pages 0..N-1 in ascending order.
type SequentialStrategy struct{}

func (SequentialStrategy) Walk(p Pages) byte {
	var sum byte
	n := p.Pages()
	for page := 0; page < n; page++ {
		sum ^= p.Touch(page)
	}
	return sum
}

// RandomStrategy visits pages in a uniformly shuffled order. The
// permutation is drawn fresh on every Walk.
type RandomStrategy struct {
	// Rand overrides the global generator, used by tests
	Rand *rand.Rand
}

func (s RandomStrategy) Walk(p Pages) byte {
	var sum byte
	for _, page := range s.perm(p.Pages()) {
		sum ^= p.Touch(page)
	}
	return sum
}

func (s RandomStrategy) perm(n int) []int {
	if s.Rand != nil {
		return s.Rand.Perm(n)
	}
	return rand.Perm(n)
}

// StrategyFor returns the strategy implementing plan.
func StrategyFor(plan AccessPlan) Strategy {
	if plan == Random {
		return RandomStrategy{}
	}
	return SequentialStrategy{}
}
