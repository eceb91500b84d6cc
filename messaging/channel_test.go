package messaging

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fabsim/sim"
)

type collectingSink struct {
	flits []*Flit
	times []sim.TimePs
	tt    sim.TimeTeller
}

func (s *collectingSink) ReceiveFlit(f *Flit) {
	s.flits = append(s.flits, f)
	s.times = append(s.times, s.tt.CurrentTime())
}

type collectingCreditSink struct {
	credits []*Credit
	times   []sim.TimePs
	tt      sim.TimeTeller
}

func (s *collectingCreditSink) ReceiveCredit(c *Credit) {
	s.credits = append(s.credits, c)
	s.times = append(s.times, s.tt.CurrentTime())
}

var _ = Describe("Channel", func() {
	var (
		engine     *sim.SerialEngine
		clock      sim.Clock
		ch         *Channel
		sink       *collectingSink
		creditSink *collectingCreditSink
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		clock = sim.MakeClock("Channel", 1000)
		ch = NewChannel("Channel", nil, engine, clock, 2)
		sink = &collectingSink{tt: engine}
		creditSink = &collectingCreditSink{tt: engine}
		ch.SetSink(sink)
		ch.SetCreditSink(creditSink)
	})

	It("should deliver a flit after the channel latency", func() {
		msg := BuildMessage(1, 1, 0, 0, 0)
		f := msg.Packets[0].Flits[0]

		ch.Send(f)
		Expect(engine.Run()).To(Succeed())

		Expect(sink.flits).To(HaveLen(1))
		Expect(sink.flits[0]).To(BeIdenticalTo(f))
		Expect(sink.times[0]).To(Equal(sim.TimePs(2000)))
		Expect(ch.InflightFlits()).To(Equal(0))
	})

	It("should keep flits in order", func() {
		msg := BuildMessage(2, 2, 0, 0, 0)
		first := msg.Packets[0].Flits[0]
		second := msg.Packets[0].Flits[1]

		ch.Send(first)
		engine.Schedule(sim.MakeEvent(
			1000, sim.EpsilonTick, senderFunc(func() { ch.Send(second) }),
			nil, 0))
		Expect(engine.Run()).To(Succeed())

		Expect(sink.flits).To(Equal([]*Flit{first, second}))
		Expect(sink.times).To(Equal([]sim.TimePs{2000, 3000}))
	})

	It("should panic when the pipeline is overfilled", func() {
		msg := BuildMessage(3, 3, 0, 0, 0)

		ch.Send(msg.Packets[0].Flits[0])
		ch.Send(msg.Packets[0].Flits[1])
		Expect(func() { ch.Send(msg.Packets[0].Flits[2]) }).To(Panic())
	})

	It("should carry credits backward with the same latency", func() {
		ch.SendCredit(&Credit{VC: 3})
		Expect(engine.Run()).To(Succeed())

		Expect(creditSink.credits).To(HaveLen(1))
		Expect(creditSink.credits[0].VC).To(Equal(3))
		Expect(creditSink.times[0]).To(Equal(sim.TimePs(2000)))
		Expect(ch.InflightCredits()).To(Equal(0))
	})

	It("should count flits only while the monitor is open", func() {
		monitor := &stubMonitor{}
		ch.SetMonitor(monitor)

		msg := BuildMessage(2, 2, 0, 0, 0)
		ch.Send(msg.Packets[0].Flits[0])
		Expect(engine.Run()).To(Succeed())
		Expect(ch.MonitoredFlits()).To(Equal(uint64(0)))

		monitor.open = true
		ch.Send(msg.Packets[0].Flits[1])
		Expect(engine.Run()).To(Succeed())
		Expect(ch.MonitoredFlits()).To(Equal(uint64(1)))
	})
})

type senderFunc func()

func (f senderFunc) Handle(e *sim.Event) error {
	f()
	return nil
}

type stubMonitor struct {
	open bool
}

func (m *stubMonitor) Monitoring() bool {
	return m.open
}
