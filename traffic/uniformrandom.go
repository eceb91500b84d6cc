package traffic

import "github.com/sarchlab/fabsim/sim"

func init() {
	Register("uniform_random", newUniformRandom)
}

// uniformRandom draws every destination uniformly over all terminals,
// optionally excluding the sender itself.
type uniformRandom struct {
	rand         *sim.Random
	numTerminals int
	self         int
	sendToSelf   bool
}

func newUniformRandom(ctx Context) (Continuous, error) {
	return &uniformRandom{
		rand:         ctx.Rand,
		numTerminals: ctx.NumTerminals,
		self:         ctx.Self,
		sendToSelf:   ctx.Settings.SendToSelf,
	}, nil
}

// NextDestination implements Continuous.
func (p *uniformRandom) NextDestination() int {
	for {
		dst := int(p.rand.U64(0, uint64(p.numTerminals-1)))
		if p.sendToSelf || dst != p.self {
			return dst
		}
	}
}
