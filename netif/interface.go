// Package netif implements the host-side interface: message injection under
// credit flow control and ejection-side reassembly.
package netif

import (
	"log"

	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/routing"
	"github.com/sarchlab/fabsim/sim"
)

// A MessageEjector receives fully reassembled messages.
type MessageEjector interface {
	EjectMessage(m *messaging.Message)
}

// Comp is an interface between a terminal and the fabric.
type Comp struct {
	*sim.TickingComponent

	id      int
	address []int
	numVcs  int

	pcMap   routing.PcMap
	injAlgs []routing.InjectionAlgorithm

	outChannel *messaging.Channel
	inChannel  *messaging.Channel
	credits    []int

	injQueue []*messaging.Flit

	ejector  MessageEjector
	received map[*messaging.Message]int
}

// ID returns the interface id.
func (c *Comp) ID() int {
	return c.id
}

// Address returns the topology address of the interface.
func (c *Comp) Address() []int {
	return c.address
}

// SetInjectionAlgorithm installs the injection algorithm for one protocol
// class.
func (c *Comp) SetInjectionAlgorithm(pc int, alg routing.InjectionAlgorithm) {
	c.injAlgs[pc] = alg
}

// SetEjector sets the receiver of reassembled messages.
func (c *Comp) SetEjector(e MessageEjector) {
	c.ejector = e
}

// SetOutputChannel attaches the channel toward the router. The router input
// buffers hold downstreamDepth flits per VC.
func (c *Comp) SetOutputChannel(ch *messaging.Channel, downstreamDepth int) {
	c.outChannel = ch
	for v := 0; v < c.numVcs; v++ {
		c.credits[v] = downstreamDepth
	}
	ch.SetCreditSink(c)
}

// SetInputChannel attaches the channel from the router. The ejection side
// consumes flits as they arrive and returns the credit immediately.
func (c *Comp) SetInputChannel(ch *messaging.Channel) {
	c.inChannel = ch
	ch.SetSink(c)
}

// Inject hands a message to the interface. The injection algorithm of the
// message's protocol class assigns each packet an outgoing VC; the flits
// then leave one per cycle as credits allow.
func (c *Comp) Inject(m *messaging.Message) {
	m.EnqueueTime = c.CurrentTime()

	alg := c.injAlgs[m.ProtocolClass]
	vcs := alg.InjectionVCs(m)
	if len(vcs) != m.NumPackets() {
		log.Panicf("%s: injection algorithm returned %d vcs for %d packets",
			c.Name(), len(vcs), m.NumPackets())
	}

	baseVc, numVcs := c.pcMap.PcVcs(m.ProtocolClass)
	for i, p := range m.Packets {
		vc := vcs[i]
		if vc < baseVc || vc >= baseVc+numVcs {
			log.Panicf("%s: injection vc %d outside protocol class range",
				c.Name(), vc)
		}
		for _, f := range p.Flits {
			f.VC = vc
			c.injQueue = append(c.injQueue, f)
		}
	}

	c.TickLater()
}

// Tick sends at most one flit per cycle toward the router.
func (c *Comp) Tick() bool {
	if len(c.injQueue) == 0 {
		return false
	}

	f := c.injQueue[0]
	if c.credits[f.VC] <= 0 {
		return false
	}

	c.injQueue = c.injQueue[1:]
	c.credits[f.VC]--

	msg := f.Packet.Message
	if f.Head && f.Packet.ID == 0 {
		msg.InjectTime = c.CurrentTime()
	}
	c.outChannel.Send(f)

	return true
}

// ReceiveFlit accepts a flit from the router, returns the buffer credit, and
// reassembles packets into messages. When the last flit of the last packet
// arrives, the message is ejected.
func (c *Comp) ReceiveFlit(f *messaging.Flit) {
	c.inChannel.SendCredit(&messaging.Credit{VC: f.VC})

	msg := f.Packet.Message
	c.received[msg]++
	if c.received[msg] < msg.NumFlits() {
		return
	}

	delete(c.received, msg)
	msg.DeliverTime = c.CurrentTime()
	c.ejector.EjectMessage(msg)
}

// ReceiveCredit accepts a returned credit from the router input buffers.
func (c *Comp) ReceiveCredit(cr *messaging.Credit) {
	c.credits[cr.VC]++
	c.TickNow()
}
