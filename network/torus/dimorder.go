package torus

import (
	"log"

	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/routing"
)

// dimOrderRouting resolves dimensions in ascending order and takes the
// shorter way around each ring. Within a dimension, packets start on the
// even dateline class and move to the odd class when the hop wraps around;
// the class never goes back. This keeps each ring's channel dependency
// graph acyclic within one protocol class.
type dimOrderRouting struct {
	topo *Topology

	routerAddr []int
	inputPort  int
	inputVc    int

	baseVc  int
	numVcs  int
	latency uint64
}

func newDimOrderRouting(
	topo *Topology,
	routerAddr []int,
	inputPort, inputVc int,
	baseVc, numVcs int,
	latency uint64,
) *dimOrderRouting {
	if numVcs < 2 {
		log.Panic(
			"torus dimension-order routing needs at least 2 vcs per class")
	}
	return &dimOrderRouting{
		topo:       topo,
		routerAddr: routerAddr,
		inputPort:  inputPort,
		inputVc:    inputVc,
		baseVc:     baseVc,
		numVcs:     numVcs,
		latency:    latency,
	}
}

// Latency returns the route computation latency in router cycles.
func (a *dimOrderRouting) Latency() uint64 {
	return a.latency
}

// Route returns the allowed next hops for a head flit.
func (a *dimOrderRouting) Route(f *messaging.Flit) []routing.Option {
	dst := a.topo.InterfaceIDToAddress(f.Packet.Message.DestinationID)

	dim := -1
	for d := range a.topo.dims {
		if a.routerAddr[d] != dst[1+d] {
			dim = d
			break
		}
	}

	if dim == -1 {
		// All dimensions resolved; eject through the terminal port. Any VC
		// of the class may carry the final hop.
		opts := make([]routing.Option, 0, a.numVcs)
		for v := a.baseVc; v < a.baseVc+a.numVcs; v++ {
			opts = append(opts, routing.Option{Port: dst[0], VC: v})
		}
		return opts
	}

	w := a.topo.dims[dim]
	cur := a.routerAddr[dim]
	want := dst[1+dim]
	fwd := ((want - cur) + w) % w
	bwd := ((cur - want) + w) % w

	dir := 0
	if bwd < fwd {
		dir = 1
	}
	port := a.topo.concentration + 2*dim + dir

	class := a.datelineClass(dim)
	wraps := (dir == 0 && cur == w-1) || (dir == 1 && cur == 0)
	if wraps {
		class = 1
	}

	opts := make([]routing.Option, 0, a.numVcs/2)
	for v := a.baseVc; v < a.baseVc+a.numVcs; v++ {
		if (v-a.baseVc)%2 == class {
			opts = append(opts, routing.Option{Port: port, VC: v})
		}
	}
	return opts
}

// datelineClass returns the dateline class the packet currently travels on.
// Entering a dimension, from a terminal port or from another dimension,
// resets the class to 0.
func (a *dimOrderRouting) datelineClass(dim int) int {
	if a.inputPort < a.topo.concentration {
		return 0
	}
	inputDim := (a.inputPort - a.topo.concentration) / 2
	if inputDim != dim {
		return 0
	}
	return (a.inputVc - a.baseVc) % 2
}

// dimOrderInjection starts every packet on the base VC of its protocol
// class, the even dateline class dimension-order routing expects.
type dimOrderInjection struct {
	baseVc int
}

// InjectionVCs implements routing.InjectionAlgorithm.
func (a *dimOrderInjection) InjectionVCs(m *messaging.Message) []int {
	vcs := make([]int, m.NumPackets())
	for i := range vcs {
		vcs[i] = a.baseVc
	}
	return vcs
}
