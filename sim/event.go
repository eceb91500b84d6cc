package sim

// An Event is something going to happen in the future. Events scheduled at
// the same time are ordered by epsilon, then by scheduling order.
type Event struct {
	time    TimePs
	epsilon int
	seq     uint64

	handler Handler

	// Payload is an opaque value interpreted by the handler. The kernel
	// holds it by reference and never inspects it.
	Payload any

	// Opcode distinguishes event kinds within one handler.
	Opcode int32
}

// MakeEvent creates an event to be delivered to handler at the given time.
func MakeEvent(
	time TimePs,
	epsilon int,
	handler Handler,
	payload any,
	opcode int32,
) *Event {
	return &Event{
		time:    time,
		epsilon: epsilon,
		handler: handler,
		Payload: payload,
		Opcode:  opcode,
	}
}

// Time returns the time that the event is going to happen.
func (e *Event) Time() TimePs {
	return e.time
}

// Epsilon returns the same-time ordering rank of the event.
func (e *Event) Epsilon() int {
	return e.epsilon
}

// Handler returns the handler that processes the event.
func (e *Event) Handler() Handler {
	return e.handler
}

// A Handler defines a domain for events. An event is always scheduled by
// and delivered to one handler.
type Handler interface {
	Handle(e *Event) error
}

// Epsilon ranks used fabric-wide so that same-cycle actions observe a fixed
// order: credit returns, then flit deliveries, then device ticks, then
// application events.
const (
	EpsilonCredit = 0
	EpsilonFlit   = 1
	EpsilonTick   = 2
	EpsilonApp    = 3
)
