package sim

import (
	"log"
	"math"
)

// A SerialEngine is an Engine that runs events one after another.
type SerialEngine struct {
	HookableBase

	time  TimePs
	queue EventQueue
	seq   uint64

	halted   bool
	deadline TimePs

	simulationEndHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)
	e.queue = NewEventQueue()
	e.deadline = TimePs(math.MaxInt64)
	return e
}

// Schedule registers an event to happen in the future. Scheduling an event
// earlier than the current time is fatal. Scheduling from within a handler
// is allowed; the event receives the current sequence counter.
func (e *SerialEngine) Schedule(evt *Event) {
	if evt.time < e.time {
		log.Panicf(
			"scheduling an event in the past: evt @ %d ps, now %d ps",
			evt.time, e.time,
		)
	}
	if evt.handler == nil {
		log.Panic("scheduling an event without a handler")
	}

	evt.seq = e.seq
	e.seq++
	e.queue.Push(evt)
}

// Run processes all the events scheduled in the SerialEngine.
func (e *SerialEngine) Run() error {
	for !e.halted && e.queue.Len() > 0 {
		evt := e.queue.Peek()
		if evt.Time() > e.deadline {
			return nil
		}
		e.queue.Pop()

		e.time = evt.Time()

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(hookCtx)

		if err := evt.Handler().Handle(evt); err != nil {
			log.Panicf("event handler failed: %v", err)
		}

		hookCtx.Pos = HookPosAfterEvent
		e.InvokeHook(hookCtx)
	}

	return nil
}

// Halt stops the engine after the event currently being handled.
func (e *SerialEngine) Halt() {
	e.halted = true
}

// SetDeadline stops the run once the next event would fire after t.
func (e *SerialEngine) SetDeadline(t TimePs) {
	e.deadline = t
}

// CurrentTime returns the time of the event currently being handled.
func (e *SerialEngine) CurrentTime() TimePs {
	return e.time
}

// RegisterSimulationEndHandler registers a handler to be invoked when the
// simulation ends.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished should be called after the simulation ends. It invokes all the
// registered SimulationEndHandlers in registration order.
func (e *SerialEngine) Finished() {
	now := e.time
	for _, h := range e.simulationEndHandlers {
		h.Handle(now)
	}
}
