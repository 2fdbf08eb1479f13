package noise

import "math/rand"

// Source is an explicitly owned pseudo-random generator. Callers create one per goroutine
// and hand it to every function that consumes randomness; those functions reseed it on entry.
type Source struct {
	rng *rand.Rand
}

// NewSource returns a generator seeded with seed.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Reseed resets the generator so the next draws repeat the sequence for seed.
func (s *Source) Reseed(seed int64) {
	s.rng.Seed(seed)
}

// Uniform draws a value from [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}
