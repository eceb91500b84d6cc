package foldedclos

import (
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/routing"
)

// lcaRouting ascends the tree until the destination lies in the subtree
// below, then descends deterministically by the destination's digits. Any
// up port reaches a common ancestor, so the ascent offers all of them; the
// tree carries no cyclic channel dependency, so every VC of the class is
// allowed on every hop.
type lcaRouting struct {
	topo *Topology

	level int
	pos   int

	baseVc  int
	numVcs  int
	latency uint64
}

// Latency returns the route computation latency in router cycles.
func (a *lcaRouting) Latency() uint64 {
	return a.latency
}

// Route returns the allowed next hops for a head flit.
func (a *lcaRouting) Route(f *messaging.Flit) []routing.Option {
	t := a.topo
	dst := f.Packet.Message.DestinationID
	dstRouter := dst / t.radix

	if !a.covers(dstRouter) {
		opts := make([]routing.Option, 0, t.radix*a.numVcs)
		for u := 0; u < t.radix; u++ {
			for v := a.baseVc; v < a.baseVc+a.numVcs; v++ {
				opts = append(opts, routing.Option{Port: t.radix + u, VC: v})
			}
		}
		return opts
	}

	var port int
	if a.level == 0 {
		port = dst % t.radix
	} else {
		port = t.digit(dstRouter, a.level-1)
	}

	opts := make([]routing.Option, 0, a.numVcs)
	for v := a.baseVc; v < a.baseVc+a.numVcs; v++ {
		opts = append(opts, routing.Option{Port: port, VC: v})
	}
	return opts
}

// covers reports whether the destination leaf router lies in the subtree
// below this router: the position digits at and above this level match.
func (a *lcaRouting) covers(dstRouter int) bool {
	for i := a.level; i < a.topo.numLevels-1; i++ {
		if a.topo.digit(a.pos, i) != a.topo.digit(dstRouter, i) {
			return false
		}
	}
	return true
}

// baseVcInjection starts every packet on the base VC of its protocol class.
type baseVcInjection struct {
	baseVc int
}

// InjectionVCs implements routing.InjectionAlgorithm.
func (a *baseVcInjection) InjectionVCs(m *messaging.Message) []int {
	vcs := make([]int, m.NumPackets())
	for i := range vcs {
		vcs[i] = a.baseVc
	}
	return vcs
}
