package messaging

import (
	"log"

	"github.com/sarchlab/fabsim/sim"
)

const (
	flitOpcode   int32 = 0xF1
	creditOpcode int32 = 0xC1
)

// A FlitSink receives flits delivered by a channel.
type FlitSink interface {
	ReceiveFlit(f *Flit)
}

// A CreditSink receives credits delivered by a channel.
type CreditSink interface {
	ReceiveCredit(c *Credit)
}

// A Monitor reports whether the monitoring window is open.
type Monitor interface {
	Monitoring() bool
}

// A Channel is a directed pipeline from one device's output port to
// another's input port. It carries flits forward and credits backward, both
// with the same latency. The pipeline depth equals the latency; a sender
// that honors credits can never overfill it.
type Channel struct {
	*sim.ComponentBase

	engine  sim.Engine
	clock   sim.Clock
	latency uint64

	sink       FlitSink
	creditSink CreditSink

	inflightFlits   int
	inflightCredits int

	monitor        Monitor
	monitoredFlits uint64
}

// NewChannel creates a channel with the given latency in channel cycles.
func NewChannel(
	name string,
	parent sim.Named,
	engine sim.Engine,
	clock sim.Clock,
	latency uint64,
) *Channel {
	if latency == 0 {
		log.Panicf("channel %s: latency must be at least 1", name)
	}
	return &Channel{
		ComponentBase: sim.NewComponentBase(name, parent),
		engine:        engine,
		clock:         clock,
		latency:       latency,
	}
}

// SetSink sets the downstream receiver of flits.
func (c *Channel) SetSink(sink FlitSink) {
	c.sink = sink
}

// SetCreditSink sets the upstream receiver of credits.
func (c *Channel) SetCreditSink(sink CreditSink) {
	c.creditSink = sink
}

// SetMonitor attaches the monitoring window toggle.
func (c *Channel) SetMonitor(m Monitor) {
	c.monitor = m
}

// Latency returns the channel latency in channel cycles.
func (c *Channel) Latency() uint64 {
	return c.latency
}

// Send puts a flit on the wire. The flit arrives at the sink latency cycles
// later. Offering a flit when the pipeline is full is a contract violation.
func (c *Channel) Send(f *Flit) {
	c.inflightFlits++
	if uint64(c.inflightFlits) > c.latency {
		log.Panicf("channel %s: pipeline overfull, credits were not honored",
			c.Name())
	}

	f.SendTime = c.engine.CurrentTime()
	arrival := c.clock.FutureCycle(c.engine.CurrentTime(), c.latency)
	c.engine.Schedule(sim.MakeEvent(arrival, sim.EpsilonFlit, c, f, flitOpcode))
}

// SendCredit returns a credit to the upstream sender, with the same latency
// semantics as the forward direction.
func (c *Channel) SendCredit(cr *Credit) {
	c.inflightCredits++
	if uint64(c.inflightCredits) > c.latency {
		log.Panicf("channel %s: credit pipeline overfull", c.Name())
	}

	arrival := c.clock.FutureCycle(c.engine.CurrentTime(), c.latency)
	c.engine.Schedule(
		sim.MakeEvent(arrival, sim.EpsilonCredit, c, cr, creditOpcode))
}

// Handle delivers a flit or a credit that reached the end of the pipeline.
func (c *Channel) Handle(e *sim.Event) error {
	switch e.Opcode {
	case flitOpcode:
		f := e.Payload.(*Flit)
		c.inflightFlits--
		f.ReceiveTime = c.engine.CurrentTime()
		if c.monitor != nil && c.monitor.Monitoring() {
			c.monitoredFlits++
		}
		c.sink.ReceiveFlit(f)
	case creditOpcode:
		cr := e.Payload.(*Credit)
		c.inflightCredits--
		c.creditSink.ReceiveCredit(cr)
	default:
		log.Panicf("channel %s: unknown event opcode 0x%x", c.Name(), e.Opcode)
	}
	return nil
}

// InflightFlits returns the number of flits currently on the wire.
func (c *Channel) InflightFlits() int {
	return c.inflightFlits
}

// InflightCredits returns the number of credits currently on the wire.
func (c *Channel) InflightCredits() int {
	return c.inflightCredits
}

// MonitoredFlits returns the number of flits delivered while the monitoring
// window was open.
func (c *Channel) MonitoredFlits() uint64 {
	return c.monitoredFlits
}
