package netif

import (
	"log"

	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/routing"
	"github.com/sarchlab/fabsim/sim"
)

// Builder can build interfaces.
type Builder struct {
	engine  sim.Engine
	clock   sim.Clock
	parent  sim.Named
	id      int
	address []int
	numVcs  int
	pcMap   routing.PcMap
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{numVcs: 1}
}

// WithEngine sets the engine that drives the interface.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithClock sets the interface clock.
func (b Builder) WithClock(clock sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithParent sets the parent component in the naming tree.
func (b Builder) WithParent(parent sim.Named) Builder {
	b.parent = parent
	return b
}

// WithID sets the interface id and topology address.
func (b Builder) WithID(id int, address []int) Builder {
	b.id = id
	b.address = address
	return b
}

// WithNumVcs sets the number of virtual channels.
func (b Builder) WithNumVcs(n int) Builder {
	b.numVcs = n
	return b
}

// WithPcMap sets the protocol-class map of the network.
func (b Builder) WithPcMap(m routing.PcMap) Builder {
	b.pcMap = m
	return b
}

// Build creates an interface.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		log.Panic("interface builder: engine is not set")
	}
	if b.pcMap == nil {
		log.Panic("interface builder: pc map is not set")
	}

	c := &Comp{
		id:       b.id,
		address:  b.address,
		numVcs:   b.numVcs,
		pcMap:    b.pcMap,
		injAlgs:  make([]routing.InjectionAlgorithm, b.pcMap.NumPcs()),
		credits:  make([]int, b.numVcs),
		received: make(map[*messaging.Message]int),
	}
	c.TickingComponent = sim.NewTickingComponent(
		name, b.parent, b.engine, b.clock, sim.EpsilonTick, c)

	return c
}
