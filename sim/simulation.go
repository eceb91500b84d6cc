package sim

import (
	"github.com/rs/xid"
)

// A Simulation bundles the state shared by every component of one run: the
// event engine, the clock set, and the random stream. It is passed
// explicitly at construction time; there are no process-global singletons.
type Simulation struct {
	id     string
	engine Engine
	clocks Clocks
	rand   *Random
}

// NewSimulation creates a simulation context.
func NewSimulation(engine Engine, clocks Clocks, seed uint64) *Simulation {
	return &Simulation{
		id:     xid.New().String(),
		engine: engine,
		clocks: clocks,
		rand:   NewRandom(seed),
	}
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the event engine of the run.
func (s *Simulation) Engine() Engine {
	return s.engine
}

// Clocks returns the clock set of the run.
func (s *Simulation) Clocks() Clocks {
	return s.clocks
}

// Rand returns the deterministic random stream of the run.
func (s *Simulation) Rand() *Random {
	return s.rand
}

// Now returns the current simulated time.
func (s *Simulation) Now() TimePs {
	return s.engine.CurrentTime()
}

// FutureCycle returns the time n cycles of the given clock after now.
func (s *Simulation) FutureCycle(c Clock, n uint64) TimePs {
	return c.FutureCycle(s.Now(), n)
}

// Cycle returns the current cycle count of the given clock.
func (s *Simulation) Cycle(c Clock) uint64 {
	return c.Cycle(s.Now())
}
