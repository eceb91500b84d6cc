package workload

import (
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/netif"
	"github.com/sarchlab/fabsim/sim"
)

// TerminalBase carries the bookkeeping every terminal needs: message
// sending, enroute accounting, and transaction id generation. Concrete
// terminals embed it; it is a library, not a base class with behavior.
type TerminalBase struct {
	*sim.ComponentBase

	sim     *sim.Simulation
	id      int
	address []int
	iface   *netif.Comp

	nextMessageID   int
	nextTransaction uint64

	enrouteMessages int
	enroutePackets  int
	enrouteFlits    int
}

// NewTerminalBase creates the shared terminal state.
func NewTerminalBase(
	name string,
	parent sim.Named,
	s *sim.Simulation,
	id int,
	address []int,
	iface *netif.Comp,
) *TerminalBase {
	return &TerminalBase{
		ComponentBase: sim.NewComponentBase(name, parent),
		sim:           s,
		id:            id,
		address:       address,
		iface:         iface,
	}
}

// ID returns the terminal id.
func (t *TerminalBase) ID() int {
	return t.id
}

// Address returns the topology address of the terminal's interface.
func (t *TerminalBase) Address() []int {
	return t.address
}

// Simulation returns the simulation context.
func (t *TerminalBase) Simulation() *sim.Simulation {
	return t.sim
}

// SendMessage stamps the message identity and injects it. Returns the
// message id within the terminal.
func (t *TerminalBase) SendMessage(m *messaging.Message, dst int) int {
	m.ID = t.nextMessageID
	t.nextMessageID++
	m.SourceID = t.id
	m.DestinationID = dst

	t.enrouteMessages++
	t.enroutePackets += m.NumPackets()
	t.enrouteFlits += m.NumFlits()

	t.iface.Inject(m)
	return m.ID
}

// MessageDelivered removes a delivered message from the enroute counters.
func (t *TerminalBase) MessageDelivered(m *messaging.Message) {
	t.enrouteMessages--
	t.enroutePackets -= m.NumPackets()
	t.enrouteFlits -= m.NumFlits()
}

// EnrouteCount returns the messages, packets, and flits the terminal has
// launched but not yet observed delivered.
func (t *TerminalBase) EnrouteCount() (msgs, pkts, flits int) {
	return t.enrouteMessages, t.enroutePackets, t.enrouteFlits
}

// CreateTransaction returns a fresh transaction id, unique across
// terminals.
func (t *TerminalBase) CreateTransaction() uint64 {
	id := uint64(t.id)<<32 | t.nextTransaction
	t.nextTransaction++
	return id
}
