package router

import (
	"log"

	"github.com/sarchlab/fabsim/arbitration"
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/routing"
	"github.com/sarchlab/fabsim/sim"
)

// Builder can build routers.
type Builder struct {
	engine      sim.Engine
	clock       sim.Clock
	parent      sim.Named
	id          int
	address     []int
	numPorts    int
	numVcs      int
	bufferDepth int
	pcMap       routing.PcMap
	traffic     TrafficLogger
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		numPorts:    2,
		numVcs:      1,
		bufferDepth: 4,
	}
}

// WithEngine sets the engine that drives the router.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithClock sets the router clock.
func (b Builder) WithClock(clock sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithParent sets the parent component in the naming tree.
func (b Builder) WithParent(parent sim.Named) Builder {
	b.parent = parent
	return b
}

// WithID sets the router id and topology address.
func (b Builder) WithID(id int, address []int) Builder {
	b.id = id
	b.address = address
	return b
}

// WithNumPorts sets the number of ports.
func (b Builder) WithNumPorts(n int) Builder {
	b.numPorts = n
	return b
}

// WithNumVcs sets the number of virtual channels per port.
func (b Builder) WithNumVcs(n int) Builder {
	b.numVcs = n
	return b
}

// WithBufferDepth sets the per-VC input buffer depth.
func (b Builder) WithBufferDepth(n int) Builder {
	b.bufferDepth = n
	return b
}

// WithPcMap sets the protocol-class map of the network.
func (b Builder) WithPcMap(m routing.PcMap) Builder {
	b.pcMap = m
	return b
}

// WithTrafficLogger sets the traffic log sink.
func (b Builder) WithTrafficLogger(t TrafficLogger) Builder {
	b.traffic = t
	return b
}

// Build creates a router.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		log.Panic("router builder: engine is not set")
	}
	if b.pcMap == nil {
		log.Panic("router builder: pc map is not set")
	}
	if b.bufferDepth <= 0 {
		log.Panic("router builder: buffer depth must be positive")
	}

	c := &Comp{
		id:          b.id,
		address:     b.address,
		numPorts:    b.numPorts,
		numVcs:      b.numVcs,
		bufferDepth: b.bufferDepth,
		pcMap:       b.pcMap,
		traffic:     b.traffic,
		vcArb:       arbitration.NewRoundRobin(),
	}
	c.TickingComponent = sim.NewTickingComponent(
		name, b.parent, b.engine, b.clock, sim.EpsilonTick, c)

	c.inputs = make([][]*inputVC, b.numPorts)
	for p := 0; p < b.numPorts; p++ {
		c.inputs[p] = make([]*inputVC, b.numVcs)
		for v := 0; v < b.numVcs; v++ {
			c.inputs[p][v] = &inputVC{
				outPort: unassigned,
				outVC:   unassigned,
			}
		}
	}

	c.inputChannels = make([]*messaging.Channel, b.numPorts)

	c.outputs = make([]*output, b.numPorts)
	c.portArb = make([]*arbitration.RoundRobin, b.numPorts)
	c.swArb = make([]arbitration.Arbiter, b.numPorts)
	for p := 0; p < b.numPorts; p++ {
		c.outputs[p] = &output{
			credits: make([]int, b.numVcs),
			owner:   make([]*messaging.Packet, b.numVcs),
		}
		c.portArb[p] = arbitration.NewRoundRobin()
		c.swArb[p] = arbitration.NewRoundRobin()
	}

	return c
}
