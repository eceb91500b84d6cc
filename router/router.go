// Package router implements the input-queued, virtual-output-queued switch
// with per-VC credit flow control.
package router

import (
	"log"

	"github.com/sarchlab/fabsim/arbitration"
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/routing"
	"github.com/sarchlab/fabsim/sim"
)

// A TrafficLogger records flit movements per (device, input port, input VC,
// output port, output VC).
type TrafficLogger interface {
	LogTraffic(device sim.Named, inputPort, inputVc, outputPort, outputVc,
		flits int)
}

const unassigned = -1

// inputVC is the state a router keeps per (input port, input VC): the flit
// buffer, the routing algorithm instance, and the allocation of the packet
// currently crossing.
type inputVC struct {
	buf []*messaging.Flit
	alg routing.Algorithm

	routeRequested bool
	routeReqCycle  uint64
	routeOpts      []routing.Option

	outPort int
	outVC   int
}

// output is the state a router keeps per output port: the channel, the
// downstream credit counters, and the downstream VC ownership used by VC
// allocation.
type output struct {
	channel *messaging.Channel
	credits []int
	owner   []*messaging.Packet
}

// Comp is a router.
type Comp struct {
	*sim.TickingComponent

	id      int
	address []int

	numPorts    int
	numVcs      int
	bufferDepth int

	pcMap   routing.PcMap
	traffic TrafficLogger

	inputs        [][]*inputVC
	inputChannels []*messaging.Channel
	outputs       []*output

	vcArb   *arbitration.RoundRobin
	portArb []*arbitration.RoundRobin
	swArb   []arbitration.Arbiter
}

// ID returns the router id.
func (c *Comp) ID() int {
	return c.id
}

// Address returns the topology address of the router.
func (c *Comp) Address() []int {
	return c.address
}

// NumPorts returns the number of ports of the router.
func (c *Comp) NumPorts() int {
	return c.numPorts
}

// SetRoutingAlgorithm installs the routing algorithm instance for one
// (input port, input VC) pair.
func (c *Comp) SetRoutingAlgorithm(port, vc int, alg routing.Algorithm) {
	c.inputs[port][vc].alg = alg
}

// SetInputChannel attaches the channel that delivers flits into the given
// port. Credits for freed buffer slots are returned on the same channel.
func (c *Comp) SetInputChannel(port int, ch *messaging.Channel) {
	c.inputChannels[port] = ch
	ch.SetSink(&portSink{router: c, port: port})
}

// SetOutputChannel attaches the channel leaving the given port. The
// downstream device owns downstreamDepth buffer slots per VC.
func (c *Comp) SetOutputChannel(
	port int,
	ch *messaging.Channel,
	downstreamDepth int,
) {
	c.outputs[port].channel = ch
	for v := 0; v < c.numVcs; v++ {
		c.outputs[port].credits[v] = downstreamDepth
	}
	ch.SetCreditSink(&portSink{router: c, port: port})
}

// portSink adapts a port index to the channel sink interfaces. Flits arrive
// on the port's input channel; credits arrive on the port's output channel.
type portSink struct {
	router *Comp
	port   int
}

func (s *portSink) ReceiveFlit(f *messaging.Flit) {
	s.router.receiveFlit(s.port, f)
}

func (s *portSink) ReceiveCredit(cr *messaging.Credit) {
	s.router.receiveCredit(s.port, cr)
}

func (c *Comp) receiveFlit(port int, f *messaging.Flit) {
	ivc := c.inputs[port][f.VC]

	if len(ivc.buf) >= c.bufferDepth {
		log.Panicf("%s: input buffer overflow at port %d vc %d",
			c.Name(), port, f.VC)
	}
	if f.Head && len(ivc.buf) > 0 && !ivc.buf[len(ivc.buf)-1].Tail {
		log.Panicf("%s: packet interleaving at port %d vc %d",
			c.Name(), port, f.VC)
	}

	ivc.buf = append(ivc.buf, f)
	c.TickNow()
}

func (c *Comp) receiveCredit(port int, cr *messaging.Credit) {
	c.outputs[port].credits[cr.VC]++
	if c.outputs[port].credits[cr.VC] > c.bufferDepthOf(port) {
		log.Panicf("%s: credit overflow at port %d vc %d",
			c.Name(), port, cr.VC)
	}
	c.TickNow()
}

// bufferDepthOf returns the credit ceiling for an output port. All devices
// in one network share the input buffer depth, so the local depth is the
// bound.
func (c *Comp) bufferDepthOf(_ int) int {
	return c.bufferDepth
}

// Tick runs the pipeline stages of one cycle. Stage order within the cycle
// is causal: routes computed this cycle are eligible for VC allocation this
// cycle, and allocations for switch traversal.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.route() || madeProgress
	madeProgress = c.allocateVCs() || madeProgress
	madeProgress = c.traverse() || madeProgress

	return madeProgress
}

// route computes routing responses for head flits at the head of their
// input buffers.
func (c *Comp) route() bool {
	cycle := c.Clock().Cycle(c.CurrentTime())
	progress := false

	for p := 0; p < c.numPorts; p++ {
		for v := 0; v < c.numVcs; v++ {
			ivc := c.inputs[p][v]
			if len(ivc.buf) == 0 || ivc.routeOpts != nil {
				continue
			}

			f := ivc.buf[0]
			if !f.Head {
				// A body flit at the head of the buffer inherits the
				// packet's allocation, which is still held in ivc.
				continue
			}
			if ivc.outPort != unassigned {
				continue
			}

			if !ivc.routeRequested {
				ivc.routeRequested = true
				ivc.routeReqCycle = cycle
				progress = true
			}
			if cycle < ivc.routeReqCycle+ivc.alg.Latency() {
				progress = true
				continue
			}

			opts := ivc.alg.Route(f)
			pc := f.Packet.Message.ProtocolClass
			baseVc, numVcs := c.pcMap.PcVcs(pc)
			routing.MustBeInPc(opts, baseVc, numVcs)

			ivc.routeOpts = opts
			progress = true
		}
	}

	return progress
}

// allocateVCs assigns downstream VCs to head flits with a computed route. A
// downstream VC is eligible only while no other packet owns it. Input ports
// are served round-robin; at most one winner per downstream VC per cycle.
func (c *Comp) allocateVCs() bool {
	progress := false

	start := c.vcArb.Start(c.numPorts)
	for i := 0; i < c.numPorts; i++ {
		p := (start + i) % c.numPorts
		for v := 0; v < c.numVcs; v++ {
			ivc := c.inputs[p][v]
			if ivc.routeOpts == nil || ivc.outPort != unassigned {
				continue
			}

			f := ivc.buf[0]
			for _, opt := range ivc.routeOpts {
				out := c.outputs[opt.Port]
				if out.owner[opt.VC] != nil {
					continue
				}

				out.owner[opt.VC] = f.Packet
				ivc.outPort = opt.Port
				ivc.outVC = opt.VC
				f.OutputPort = opt.Port
				f.OutputVC = opt.VC
				progress = true
				break
			}
		}
	}
	c.vcArb.Rotate(c.numPorts)

	return progress
}

// traverse performs switch allocation and crossbar traversal: one flit per
// input port and one per output port per cycle, gated by downstream
// credits.
func (c *Comp) traverse() bool {
	// Each input port nominates one sendable VC.
	candidate := make([]int, c.numPorts)
	for p := 0; p < c.numPorts; p++ {
		candidate[p] = c.pickCandidate(p)
	}

	progress := false
	requesting := make([]bool, c.numPorts)
	for o := 0; o < c.numPorts; o++ {
		for p := 0; p < c.numPorts; p++ {
			requesting[p] = candidate[p] != unassigned &&
				c.inputs[p][candidate[p]].outPort == o
		}

		winner := c.swArb[o].Grant(requesting)
		if winner == unassigned {
			continue
		}

		c.forwardFlit(winner, candidate[winner])
		candidate[winner] = unassigned
		progress = true
	}

	return progress
}

// pickCandidate chooses the input VC of a port that competes for the
// crossbar this cycle, round-robin across the port's VCs.
func (c *Comp) pickCandidate(p int) int {
	start := c.portArb[p].Start(c.numVcs)
	for i := 0; i < c.numVcs; i++ {
		v := (start + i) % c.numVcs
		ivc := c.inputs[p][v]
		if len(ivc.buf) == 0 || ivc.outPort == unassigned {
			continue
		}
		if c.outputs[ivc.outPort].credits[ivc.outVC] <= 0 {
			continue
		}
		c.portArb[p].Rotate(c.numVcs)
		return v
	}
	return unassigned
}

// forwardFlit moves the flit at the head of (port p, VC v) through the
// crossbar onto its output channel, returns a credit upstream, and releases
// the downstream VC on tails.
func (c *Comp) forwardFlit(p, v int) {
	ivc := c.inputs[p][v]
	f := ivc.buf[0]
	ivc.buf = ivc.buf[1:]

	outPort := ivc.outPort
	outVC := ivc.outVC
	out := c.outputs[outPort]

	out.credits[outVC]--
	if out.credits[outVC] < 0 {
		log.Panicf("%s: credit underflow at port %d vc %d",
			c.Name(), outPort, outVC)
	}

	if c.traffic != nil {
		c.traffic.LogTraffic(c, p, v, outPort, outVC, 1)
	}

	if f.Head {
		f.Packet.HopCount++
	}
	f.OutputPort = outPort
	f.OutputVC = outVC
	f.VC = outVC
	out.channel.Send(f)

	c.inputChannels[p].SendCredit(&messaging.Credit{VC: v})

	if f.Tail {
		out.owner[outVC] = nil
		ivc.outPort = unassigned
		ivc.outVC = unassigned
		ivc.routeOpts = nil
		ivc.routeRequested = false
	}
}
