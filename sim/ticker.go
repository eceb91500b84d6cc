package sim

// TickOpcode marks tick events scheduled by a TickScheduler.
const TickOpcode int32 = 0x7101

// A Ticker is an object that updates state cycle by cycle.
type Ticker interface {
	Tick() bool
}

// TickScheduler schedules tick events on a clock. It never schedules two
// ticks for the same cycle.
type TickScheduler struct {
	handler Handler
	engine  Engine
	clock   Clock
	epsilon int

	nextTickTime TimePs
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	clock Clock,
	epsilon int,
) *TickScheduler {
	return &TickScheduler{
		handler:      handler,
		engine:       engine,
		clock:        clock,
		epsilon:      epsilon,
		nextTickTime: -1,
	}
}

// Clock returns the clock the scheduler ticks on.
func (t *TickScheduler) Clock() Clock {
	return t.clock
}

// CurrentTime returns the current time of the engine the scheduler ticks on.
func (t *TickScheduler) CurrentTime() TimePs {
	return t.engine.CurrentTime()
}

// TickNow schedules a tick at the current cycle boundary.
func (t *TickScheduler) TickNow() {
	time := t.clock.ThisCycle(t.engine.CurrentTime())
	t.schedule(time)
}

// TickLater schedules a tick at the cycle after the current time.
func (t *TickScheduler) TickLater() {
	time := t.clock.FutureCycle(t.engine.CurrentTime(), 1)
	t.schedule(time)
}

func (t *TickScheduler) schedule(time TimePs) {
	if t.nextTickTime >= time {
		return
	}
	t.nextTickTime = time
	t.engine.Schedule(MakeEvent(time, t.epsilon, t.handler, nil, TickOpcode))
}

// TickingComponent is a component that updates state from cycle to cycle.
// Implementations provide a Tick function; as long as Tick reports progress
// the component keeps ticking.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a new ticking component.
func NewTickingComponent(
	name string,
	parent Named,
	engine Engine,
	clock Clock,
	epsilon int,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.ComponentBase = NewComponentBase(name, parent)
	tc.TickScheduler = NewTickScheduler(tc, engine, clock, epsilon)
	tc.ticker = ticker
	return tc
}

// Handle triggers the tick function of the TickingComponent.
func (c *TickingComponent) Handle(e *Event) error {
	madeProgress := c.ticker.Tick()
	if madeProgress {
		c.TickLater()
	}
	return nil
}
