// Package messaging defines the wire-level data model of the fabric:
// messages, packets, flits, and credits, plus the channel that carries them
// between devices.
package messaging

import (
	"log"

	"github.com/sarchlab/fabsim/sim"
)

// A Flit is the smallest unit the fabric moves and arbitrates. Its identity
// is immutable; the routing state (VC, OutputPort, OutputVC) is rewritten at
// every hop.
type Flit struct {
	ID     int
	Head   bool
	Tail   bool
	Packet *Packet

	// Routing state on the current hop. Non-head flits inherit the head's
	// assignment inside the router and never consult a routing algorithm.
	VC         int
	OutputPort int
	OutputVC   int

	SendTime    sim.TimePs
	ReceiveTime sim.TimePs
}

// A Packet is a sequence of flits routed as a unit.
type Packet struct {
	ID      int
	Flits   []*Flit
	Message *Message

	HopCount int
}

// NumFlits returns the number of flits in the packet.
func (p *Packet) NumFlits() int {
	return len(p.Flits)
}

// HeadFlit returns flit 0 of the packet.
func (p *Packet) HeadFlit() *Flit {
	return p.Flits[0]
}

// TailFlit returns the last flit of the packet.
func (p *Packet) TailFlit() *Flit {
	return p.Flits[len(p.Flits)-1]
}

// A Message is an application-level unit, possibly multiple packets. Once
// injected, source, destination, and protocol class are immutable.
type Message struct {
	ID      int
	Packets []*Packet

	ProtocolClass int
	OpCode        uint32
	Transaction   uint64

	SourceID      int
	DestinationID int

	// Timing, stamped by the interface as the message moves.
	EnqueueTime sim.TimePs
	InjectTime  sim.TimePs
	DeliverTime sim.TimePs
}

// NumPackets returns the number of packets in the message.
func (m *Message) NumPackets() int {
	return len(m.Packets)
}

// NumFlits returns the total number of flits across all packets.
func (m *Message) NumFlits() int {
	n := 0
	for _, p := range m.Packets {
		n += len(p.Flits)
	}
	return n
}

// BuildMessage packetizes numFlits flits into packets of at most
// maxPacketSize flits and returns the assembled message. Exactly one flit
// per packet is a head and one is a tail.
func BuildMessage(
	numFlits int,
	maxPacketSize int,
	protocolClass int,
	opCode uint32,
	transaction uint64,
) *Message {
	if numFlits <= 0 {
		log.Panicf("message must have at least one flit, got %d", numFlits)
	}
	if maxPacketSize <= 0 {
		log.Panicf("max packet size must be positive, got %d", maxPacketSize)
	}

	numPackets := numFlits / maxPacketSize
	if numFlits%maxPacketSize > 0 {
		numPackets++
	}

	msg := &Message{
		Packets:       make([]*Packet, 0, numPackets),
		ProtocolClass: protocolClass,
		OpCode:        opCode,
		Transaction:   transaction,
	}

	flitsLeft := numFlits
	for p := 0; p < numPackets; p++ {
		packetLength := flitsLeft
		if packetLength > maxPacketSize {
			packetLength = maxPacketSize
		}

		packet := &Packet{
			ID:      p,
			Flits:   make([]*Flit, 0, packetLength),
			Message: msg,
		}
		for f := 0; f < packetLength; f++ {
			packet.Flits = append(packet.Flits, &Flit{
				ID:     f,
				Head:   f == 0,
				Tail:   f == packetLength-1,
				Packet: packet,
			})
		}
		msg.Packets = append(msg.Packets, packet)
		flitsLeft -= packetLength
	}

	return msg
}
