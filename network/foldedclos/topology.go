// Package foldedclos constructs k-ary n-tree (folded-Clos) fabrics and the
// least-common-ancestor routing that goes with them.
package foldedclos

import (
	"fmt"
	"log"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/netif"
	"github.com/sarchlab/fabsim/network"
	"github.com/sarchlab/fabsim/router"
	"github.com/sarchlab/fabsim/routing"
	"github.com/sarchlab/fabsim/sim"
)

func init() {
	network.RegisterTopology("folded_clos", newTopology)
}

// Topology is a k-ary n-tree. Terminals number radix^numLevels; each level
// holds radix^(numLevels-1) routers with radix down ports and radix up
// ports. Interface addresses are the base-radix digits of the terminal id,
// least significant first; router addresses are [level, position digits...].
type Topology struct {
	sim *sim.Simulation
	cfg *config.Config

	numLevels int
	radix     int

	routersPerLevel int
	numRouters      int
	numInterfaces   int
}

func newTopology(s *sim.Simulation, cfg *config.Config) (network.Topology, error) {
	fc := cfg.Network.FoldedClos
	if fc == nil {
		return nil, fmt.Errorf(
			"folded_clos: network.folded_clos geometry is required")
	}
	if fc.NumLevels < 1 {
		return nil, fmt.Errorf("folded_clos: num_levels must be at least 1")
	}
	if fc.Radix < 2 {
		return nil, fmt.Errorf("folded_clos: radix must be at least 2")
	}
	return NewTopology(s, cfg, fc.NumLevels, fc.Radix), nil
}

// NewTopology creates a folded-Clos topology with the given geometry.
func NewTopology(
	s *sim.Simulation,
	cfg *config.Config,
	numLevels, radix int,
) *Topology {
	perLevel := 1
	for l := 0; l < numLevels-1; l++ {
		perLevel *= radix
	}
	return &Topology{
		sim:             s,
		cfg:             cfg,
		numLevels:       numLevels,
		radix:           radix,
		routersPerLevel: perLevel,
		numRouters:      perLevel * numLevels,
		numInterfaces:   perLevel * radix,
	}
}

// NumRouters returns the number of routers.
func (t *Topology) NumRouters() int {
	return t.numRouters
}

// NumInterfaces returns the number of interfaces.
func (t *Topology) NumInterfaces() int {
	return t.numInterfaces
}

// digit returns the i-th base-radix digit of v.
func (t *Topology) digit(v, i int) int {
	for ; i > 0; i-- {
		v /= t.radix
	}
	return v % t.radix
}

// setDigit returns v with its i-th base-radix digit replaced.
func (t *Topology) setDigit(v, i, d int) int {
	scale := 1
	for j := 0; j < i; j++ {
		scale *= t.radix
	}
	old := (v / scale) % t.radix
	return v + (d-old)*scale
}

// InterfaceIDToAddress converts an interface id to its address.
func (t *Topology) InterfaceIDToAddress(id int) []int {
	addr := make([]int, t.numLevels)
	for i := range addr {
		addr[i] = id % t.radix
		id /= t.radix
	}
	return addr
}

// InterfaceAddressToID converts an interface address to its id.
func (t *Topology) InterfaceAddressToID(addr []int) int {
	id := 0
	for i := len(addr) - 1; i >= 0; i-- {
		id = id*t.radix + addr[i]
	}
	return id
}

// RouterIDToAddress converts a router id to its address.
func (t *Topology) RouterIDToAddress(id int) []int {
	level := id / t.routersPerLevel
	pos := id % t.routersPerLevel
	addr := make([]int, t.numLevels)
	addr[0] = level
	for i := 1; i < t.numLevels; i++ {
		addr[i] = pos % t.radix
		pos /= t.radix
	}
	return addr
}

// RouterAddressToID converts a router address to its id.
func (t *Topology) RouterAddressToID(addr []int) int {
	pos := 0
	for i := len(addr) - 1; i >= 1; i-- {
		pos = pos*t.radix + addr[i]
	}
	return addr[0]*t.routersPerLevel + pos
}

// MinimalHops returns the minimum number of routers visited between two
// interface addresses: one for terminals under the same leaf router, and
// otherwise an up-down path through the least common ancestor level.
func (t *Topology) MinimalHops(src, dst []int) int {
	s := t.InterfaceAddressToID(src) / t.radix
	d := t.InterfaceAddressToID(dst) / t.radix
	if s == d {
		return 1
	}
	lca := 0
	for i := 0; i < t.numLevels-1; i++ {
		if t.digit(s, i) != t.digit(d, i) {
			lca = i + 1
		}
	}
	return 2*lca + 1
}

// Build creates the routers, interfaces, and channels of the tree and wires
// them together.
func (t *Topology) Build(n *network.Network) {
	engine := t.sim.Engine()
	clocks := t.sim.Clocks()
	netCfg := &t.cfg.Network
	depth := netCfg.InputQueueDepth
	latency := netCfg.ChannelLatency

	routerBuilder := router.MakeBuilder().
		WithEngine(engine).
		WithClock(clocks.Router).
		WithParent(n).
		WithNumPorts(2 * t.radix).
		WithNumVcs(n.NumVcs()).
		WithBufferDepth(depth).
		WithPcMap(n).
		WithTrafficLogger(n)

	for r := 0; r < t.numRouters; r++ {
		addr := t.RouterIDToAddress(r)
		rtr := routerBuilder.
			WithID(r, addr).
			Build(fmt.Sprintf("Router_%d", r))
		n.AddRouter(rtr)
		t.installRoutingAlgorithms(n, rtr)
	}

	ifaceBuilder := netif.MakeBuilder().
		WithEngine(engine).
		WithClock(clocks.Interface).
		WithParent(n).
		WithNumVcs(n.NumVcs()).
		WithPcMap(n)

	for i := 0; i < t.numInterfaces; i++ {
		addr := t.InterfaceIDToAddress(i)
		iface := ifaceBuilder.
			WithID(i, addr).
			Build(fmt.Sprintf("Interface_%d", i))
		n.AddInterface(iface)
		t.installInjectionAlgorithms(n, iface)

		rtr := n.Router(i / t.radix)
		port := i % t.radix

		in := messaging.NewChannel(
			fmt.Sprintf("Channel_I%d_to_R%d", i, rtr.ID()),
			n, engine, clocks.Channel, latency)
		iface.SetOutputChannel(in, depth)
		rtr.SetInputChannel(port, in)
		n.AddChannel(in)

		out := messaging.NewChannel(
			fmt.Sprintf("Channel_R%d_to_I%d", rtr.ID(), i),
			n, engine, clocks.Channel, latency)
		rtr.SetOutputChannel(port, out, depth)
		iface.SetInputChannel(out)
		n.AddChannel(out)
	}

	// Channels between level l and level l+1.
	for l := 0; l < t.numLevels-1; l++ {
		for pos := 0; pos < t.routersPerLevel; pos++ {
			lower := n.Router(l*t.routersPerLevel + pos)
			for u := 0; u < t.radix; u++ {
				upperPos := t.setDigit(pos, l, u)
				upper := n.Router((l+1)*t.routersPerLevel + upperPos)
				upPort := t.radix + u
				downPort := t.digit(pos, l)

				fwd := messaging.NewChannel(
					fmt.Sprintf("Channel_R%d_to_R%d", lower.ID(), upper.ID()),
					n, engine, clocks.Channel, latency)
				lower.SetOutputChannel(upPort, fwd, depth)
				upper.SetInputChannel(downPort, fwd)
				n.AddChannel(fwd)

				bwd := messaging.NewChannel(
					fmt.Sprintf("Channel_R%d_to_R%d", upper.ID(), lower.ID()),
					n, engine, clocks.Channel, latency)
				upper.SetOutputChannel(downPort, bwd, depth)
				lower.SetInputChannel(upPort, bwd)
				n.AddChannel(bwd)
			}
		}
	}
}

func (t *Topology) installRoutingAlgorithms(
	n *network.Network,
	rtr *router.Comp,
) {
	for port := 0; port < 2*t.radix; port++ {
		for vc := 0; vc < n.NumVcs(); vc++ {
			pc := n.VcToPc(vc)
			pcCfg := t.cfg.Network.ProtocolClasses[pc]
			baseVc, numVcs := n.PcVcs(pc)

			var alg routing.Algorithm
			switch pcCfg.Routing.Algorithm {
			case "least_common_ancestor":
				alg = &lcaRouting{
					topo:    t,
					level:   rtr.Address()[0],
					pos:     rtr.ID() % t.routersPerLevel,
					baseVc:  baseVc,
					numVcs:  numVcs,
					latency: pcCfg.Routing.Latency,
				}
			default:
				log.Panicf("folded_clos: unknown routing algorithm %q",
					pcCfg.Routing.Algorithm)
			}
			rtr.SetRoutingAlgorithm(port, vc, alg)
		}
	}
}

func (t *Topology) installInjectionAlgorithms(
	n *network.Network,
	iface *netif.Comp,
) {
	for pc := 0; pc < n.NumPcs(); pc++ {
		pcCfg := t.cfg.Network.ProtocolClasses[pc]
		baseVc, _ := n.PcVcs(pc)

		var alg routing.InjectionAlgorithm
		switch pcCfg.Injection.Algorithm {
		case "base_vc":
			alg = &baseVcInjection{baseVc: baseVc}
		default:
			log.Panicf("folded_clos: unknown injection algorithm %q",
				pcCfg.Injection.Algorithm)
		}
		iface.SetInjectionAlgorithm(pc, alg)
	}
}
