package sim

import "math/rand"

// Random is the process-wide deterministic random stream. Every draw is made
// from an event handler; since execution is single threaded, the sequence of
// draws is a pure function of the seed and the event order.
type Random struct {
	src *rand.Rand
}

// NewRandom creates a random stream with the given seed.
func NewRandom(seed uint64) *Random {
	return &Random{src: rand.New(rand.NewSource(int64(seed)))}
}

// U64 returns a uniformly distributed integer in [min, max].
func (r *Random) U64(min, max uint64) uint64 {
	if min > max {
		panic("random: min greater than max")
	}
	return min + uint64(r.src.Int63n(int64(max-min+1)))
}

// F64 returns a uniformly distributed float in [0, 1).
func (r *Random) F64() float64 {
	return r.src.Float64()
}

// Intn returns a uniformly distributed integer in [0, n).
func (r *Random) Intn(n int) int {
	return r.src.Intn(n)
}
