package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Clock", func() {
	clock := MakeClock("Channel", 1000)

	It("should count full cycles since time 0", func() {
		Expect(clock.Cycle(0)).To(Equal(uint64(0)))
		Expect(clock.Cycle(999)).To(Equal(uint64(0)))
		Expect(clock.Cycle(1000)).To(Equal(uint64(1)))
		Expect(clock.Cycle(2500)).To(Equal(uint64(2)))
	})

	It("should round up to this cycle", func() {
		Expect(clock.ThisCycle(0)).To(Equal(TimePs(0)))
		Expect(clock.ThisCycle(1)).To(Equal(TimePs(1000)))
		Expect(clock.ThisCycle(1000)).To(Equal(TimePs(1000)))
		Expect(clock.ThisCycle(1001)).To(Equal(TimePs(2000)))
	})

	It("should compute future cycles exactly", func() {
		Expect(clock.FutureCycle(0, 1)).To(Equal(TimePs(1000)))
		Expect(clock.FutureCycle(500, 1)).To(Equal(TimePs(2000)))
		Expect(clock.FutureCycle(1000, 3)).To(Equal(TimePs(4000)))
		Expect(clock.FutureCycle(1000, 0)).To(Equal(TimePs(1000)))
	})

	It("should panic on a non-positive period", func() {
		Expect(func() { MakeClock("bad", 0) }).To(Panic())
	})
})

var _ = Describe("Random", func() {
	It("should repeat the same stream for the same seed", func() {
		a := NewRandom(42)
		b := NewRandom(42)
		for i := 0; i < 100; i++ {
			Expect(a.U64(0, 1000)).To(Equal(b.U64(0, 1000)))
		}
	})

	It("should stay within the requested range", func() {
		r := NewRandom(7)
		for i := 0; i < 1000; i++ {
			v := r.U64(10, 20)
			Expect(v).To(BeNumerically(">=", 10))
			Expect(v).To(BeNumerically("<=", 20))
		}
	})
})
