package sim

import "log"

// TimePs is a point in simulated time, in picoseconds. All event times and
// clock periods are exact integers; there is no floating-point time anywhere
// in the kernel.
type TimePs int64

// Defines common period units.
const (
	Picosecond  TimePs = 1
	Nanosecond  TimePs = 1000
	Microsecond TimePs = 1000 * 1000
)

// A Clock is a named frequency domain. The epoch of every clock is 0.
type Clock struct {
	Name   string
	Period TimePs
}

// MakeClock creates a clock with the given period.
func MakeClock(name string, period TimePs) Clock {
	if period <= 0 {
		log.Panicf("clock %s: period must be positive, got %d", name, period)
	}
	return Clock{Name: name, Period: period}
}

// Cycle converts a time to the number of full cycles passed since time 0.
func (c Clock) Cycle(now TimePs) uint64 {
	return uint64(now / c.Period)
}

// ThisCycle returns the soonest cycle boundary at or after now.
//
//	           Input
//	           [         )
//	|----------|----------|----------|----->
//	           |
//	           Output
func (c Clock) ThisCycle(now TimePs) TimePs {
	count := (now + c.Period - 1) / c.Period
	return count * c.Period
}

// FutureCycle returns the time n cycles after the soonest cycle boundary at
// or after now. FutureCycle(now, 0) == ThisCycle(now).
func (c Clock) FutureCycle(now TimePs, n uint64) TimePs {
	return c.ThisCycle(now) + TimePs(n)*c.Period
}

// Clocks is the fixed set of frequency domains in a simulation.
type Clocks struct {
	Channel   Clock
	Router    Clock
	Interface Clock
	Terminal  Clock
}

// MakeDefaultClocks returns a clock set where every domain runs at the same
// period.
func MakeDefaultClocks(period TimePs) Clocks {
	return Clocks{
		Channel:   MakeClock("Channel", period),
		Router:    MakeClock("Router", period),
		Interface: MakeClock("Interface", period),
		Terminal:  MakeClock("Terminal", period),
	}
}
