// Package routing defines the contracts between the router/interface
// pipeline and the routing and injection algorithms that steer it.
package routing

import (
	"log"

	"github.com/sarchlab/fabsim/messaging"
)

// An Option is one (output port, output VC) pair a flit is allowed to take.
type Option struct {
	Port int
	VC   int
}

// A PcMap publishes the protocol-class to virtual-channel mapping of a
// network. The map is fixed for the whole run.
type PcMap interface {
	NumPcs() int
	NumVcs() int

	// PcVcs returns the contiguous VC range [baseVc, baseVc+numVcs) owned
	// by the protocol class.
	PcVcs(pc int) (baseVc, numVcs int)

	// VcToPc returns the protocol class owning the VC. Total over
	// [0, NumVcs).
	VcToPc(vc int) int
}

// An Algorithm produces the set of allowed next hops for a head flit. It may
// be stateful, but must be deterministic given its inputs and the global
// random stream. Non-head flits never reach an Algorithm.
type Algorithm interface {
	// Route returns a non-empty set of options, all within the protocol
	// class VC set of the flit. Returning an empty set is fatal.
	Route(f *messaging.Flit) []Option

	// Latency is the route computation latency in router cycles.
	Latency() uint64
}

// An InjectionAlgorithm assigns each packet of a message an outgoing VC at
// the interface.
type InjectionAlgorithm interface {
	// InjectionVCs returns one VC choice per packet of the message.
	InjectionVCs(m *messaging.Message) []int
}

// MustBeInPc panics unless every option VC lies within the protocol-class VC
// range. Called on every routing response; a violation indicates a broken
// algorithm and would break deadlock freedom.
func MustBeInPc(opts []Option, baseVc, numVcs int) {
	if len(opts) == 0 {
		log.Panic("routing algorithm returned an empty response")
	}
	for _, o := range opts {
		if o.VC < baseVc || o.VC >= baseVc+numVcs {
			log.Panicf(
				"routing response vc %d outside protocol class range [%d, %d)",
				o.VC, baseVc, baseVc+numVcs)
		}
	}
}
