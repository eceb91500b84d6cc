package workload

import (
	"math"

	"github.com/sarchlab/fabsim/sim"
)

// CyclesToSend returns the number of cycles needed to emit numFlits flits
// at the given injection rate. The fractional remainder is rounded
// probabilistically so that the long-run average matches the rate exactly.
func CyclesToSend(rand *sim.Random, rate float64, numFlits uint32) uint64 {
	if math.IsInf(rate, 0) {
		return 0
	}
	cycles := float64(numFlits) / rate
	whole := uint64(math.Floor(cycles))
	remainder := cycles - float64(whole)
	if remainder > 0 && rand.F64() < remainder {
		whole++
	}
	return whole
}
