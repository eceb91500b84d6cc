package sim

import (
	gomock "go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fire events in time order", func() {
		handler := NewMockHandler(mockCtrl)

		evt1 := MakeEvent(400, 0, handler, nil, 1)
		evt2 := MakeEvent(200, 0, handler, nil, 2)
		evt3 := MakeEvent(300, 0, handler, nil, 3)

		c2 := handler.EXPECT().Handle(evt2)
		c3 := handler.EXPECT().Handle(evt3).After(c2)
		handler.EXPECT().Handle(evt1).After(c3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(TimePs(400)))
	})

	It("should break same-time ties by epsilon, then insertion order", func() {
		handler := NewMockHandler(mockCtrl)

		flit1 := MakeEvent(100, EpsilonFlit, handler, nil, 1)
		flit2 := MakeEvent(100, EpsilonFlit, handler, nil, 2)
		credit := MakeEvent(100, EpsilonCredit, handler, nil, 3)

		c := handler.EXPECT().Handle(credit)
		c1 := handler.EXPECT().Handle(flit1).After(c)
		handler.EXPECT().Handle(flit2).After(c1)

		engine.Schedule(flit1)
		engine.Schedule(flit2)
		engine.Schedule(credit)

		Expect(engine.Run()).To(Succeed())
	})

	It("should allow scheduling from within a handler", func() {
		handler := NewMockHandler(mockCtrl)

		evt2 := MakeEvent(200, 0, handler, nil, 2)
		evt1 := MakeEvent(100, 0, handler, nil, 1)

		c1 := handler.EXPECT().Handle(evt1).Do(func(e *Event) {
			engine.Schedule(evt2)
		})
		handler.EXPECT().Handle(evt2).After(c1)

		engine.Schedule(evt1)

		Expect(engine.Run()).To(Succeed())
	})

	It("should panic when scheduling an event in the past", func() {
		handler := NewMockHandler(mockCtrl)

		evt := MakeEvent(100, 0, handler, nil, 1)
		handler.EXPECT().Handle(evt).Do(func(e *Event) {
			engine.Schedule(MakeEvent(50, 0, handler, nil, 2))
		})
		engine.Schedule(evt)

		Expect(func() { _ = engine.Run() }).To(Panic())
	})

	It("should stop at the deadline and leave later events in place", func() {
		handler := NewMockHandler(mockCtrl)

		early := MakeEvent(100, 0, handler, nil, 1)
		late := MakeEvent(900, 0, handler, nil, 2)
		handler.EXPECT().Handle(early)

		engine.Schedule(early)
		engine.Schedule(late)
		engine.SetDeadline(500)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(TimePs(100)))
	})

	It("should stop when halted from a handler", func() {
		handler := NewMockHandler(mockCtrl)

		evt1 := MakeEvent(100, 0, handler, nil, 1)
		evt2 := MakeEvent(200, 0, handler, nil, 2)
		handler.EXPECT().Handle(evt1).Do(func(e *Event) {
			engine.Halt()
		})

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(TimePs(100)))
	})

	It("should invoke simulation end handlers in order", func() {
		calls := []int{}
		engine.RegisterSimulationEndHandler(endHandlerFunc(func(now TimePs) {
			calls = append(calls, 1)
		}))
		engine.RegisterSimulationEndHandler(endHandlerFunc(func(now TimePs) {
			calls = append(calls, 2)
		}))

		engine.Finished()

		Expect(calls).To(Equal([]int{1, 2}))
	})
})

type endHandlerFunc func(now TimePs)

func (f endHandlerFunc) Handle(now TimePs) {
	f(now)
}
