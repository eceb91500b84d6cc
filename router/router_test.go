package router_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/router"
	"github.com/sarchlab/fabsim/routing"
	"github.com/sarchlab/fabsim/sim"
)

// onePcMap is a protocol-class map with a single class owning every VC.
type onePcMap struct {
	numVcs int
}

func (m onePcMap) NumPcs() int          { return 1 }
func (m onePcMap) NumVcs() int          { return m.numVcs }
func (m onePcMap) PcVcs(int) (int, int) { return 0, m.numVcs }
func (m onePcMap) VcToPc(int) int       { return 0 }

// fixedRoute always steers to one (port, vc).
type fixedRoute struct {
	opts []routing.Option
}

func (r fixedRoute) Route(*messaging.Flit) []routing.Option { return r.opts }
func (r fixedRoute) Latency() uint64                        { return 0 }

// drain consumes flits at the far end of a channel and returns the credit,
// like an interface's ejection side.
type drain struct {
	ch    *messaging.Channel
	flits []*messaging.Flit
}

func (d *drain) ReceiveFlit(f *messaging.Flit) {
	d.flits = append(d.flits, f)
	d.ch.SendCredit(&messaging.Credit{VC: f.VC})
}

// creditCounter observes credits returned to the upstream sender.
type creditCounter struct {
	credits []int
}

func (c *creditCounter) ReceiveCredit(cr *messaging.Credit) {
	c.credits = append(c.credits, cr.VC)
}

var _ = Describe("Router", func() {
	var (
		engine *sim.SerialEngine
		clock  sim.Clock
		rtr    *router.Comp

		in, out  *messaging.Channel
		sink     *drain
		upstream *creditCounter
	)

	const bufferDepth = 2

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		clock = sim.MakeClock("Router", 1000)

		rtr = router.MakeBuilder().
			WithEngine(engine).
			WithClock(clock).
			WithID(0, []int{0}).
			WithNumPorts(2).
			WithNumVcs(2).
			WithBufferDepth(bufferDepth).
			WithPcMap(onePcMap{numVcs: 2}).
			Build("Router")

		in = messaging.NewChannel("In", nil, engine, clock, 1)
		out = messaging.NewChannel("Out", nil, engine, clock, 1)

		upstream = &creditCounter{}
		in.SetCreditSink(upstream)
		rtr.SetInputChannel(0, in)

		sink = &drain{ch: out}
		out.SetSink(sink)
		rtr.SetOutputChannel(1, out, bufferDepth)

		for port := 0; port < 2; port++ {
			for vc := 0; vc < 2; vc++ {
				rtr.SetRoutingAlgorithm(port, vc, fixedRoute{
					opts: []routing.Option{{Port: 1, VC: 1}},
				})
			}
		}
	})

	It("should move a packet from input to output in order", func() {
		msg := messaging.BuildMessage(2, 2, 0, 0, 0)
		head := msg.Packets[0].Flits[0]
		tail := msg.Packets[0].Flits[1]
		head.VC = 0
		tail.VC = 0

		in.Send(head)
		engine.Schedule(sim.MakeEvent(
			1000, sim.EpsilonTick,
			handlerFunc(func() { in.Send(tail) }), nil, 0))

		Expect(engine.Run()).To(Succeed())

		Expect(sink.flits).To(Equal([]*messaging.Flit{head, tail}))

		// The head took the routed option and the tail inherited it.
		Expect(head.OutputPort).To(Equal(1))
		Expect(head.VC).To(Equal(1))
		Expect(tail.VC).To(Equal(1))

		// One credit per forwarded flit came back on the input VC.
		Expect(upstream.credits).To(Equal([]int{0, 0}))
	})

	It("should panic on an empty routing response", func() {
		rtr.SetRoutingAlgorithm(0, 0, fixedRoute{opts: nil})

		msg := messaging.BuildMessage(1, 1, 0, 0, 0)
		f := msg.Packets[0].Flits[0]
		f.VC = 0
		in.Send(f)

		Expect(func() { _ = engine.Run() }).To(Panic())
	})

	It("should panic when packets interleave on one input VC", func() {
		partial := messaging.BuildMessage(2, 2, 0, 0, 0)
		headA := partial.Packets[0].Flits[0]
		headA.VC = 0

		other := messaging.BuildMessage(1, 1, 0, 0, 1)
		headB := other.Packets[0].Flits[0]
		headB.VC = 0

		// A deeper channel lets both heads arrive in the same cycle; the
		// second lands behind a flit that is not a tail.
		deep := messaging.NewChannel("Deep", nil, engine, clock, 2)
		deep.SetCreditSink(upstream)
		rtr.SetInputChannel(0, deep)

		deep.Send(headA)
		deep.Send(headB)

		Expect(func() { _ = engine.Run() }).To(Panic())
	})
})

type handlerFunc func()

func (f handlerFunc) Handle(e *sim.Event) error {
	f()
	return nil
}
