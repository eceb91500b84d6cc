// Package torus constructs k-ary n-dimensional torus fabrics and the
// routing and injection algorithms that go with them.
package torus

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
	network.RegisterTopology("torus", newTopology)
}

// Topology is a torus. Interface addresses are
// [offset, dim0, dim1, ...]; router addresses are [dim0, dim1, ...] with
// dimension 0 varying fastest in id order.
type Topology struct {
	sim *sim.Simulation
	cfg *config.Config

	dims          []int
	concentration int

	numRouters    int
	numInterfaces int
}

func newTopology(s *sim.Simulation, cfg *config.Config) (network.Topology, error) {
	t := cfg.Network.Torus
	if t == nil {
		return nil, fmt.Errorf("torus: network.torus geometry is required")
	}
	if len(t.Dimensions) == 0 {
		return nil, fmt.Errorf("torus: at least one dimension is required")
	}
	for _, w := range t.Dimensions {
		if w < 2 {
			return nil, fmt.Errorf("torus: dimension widths must be >= 2")
		}
	}
	if t.Concentration <= 0 {
		return nil, fmt.Errorf("torus: concentration must be positive")
	}
	return NewTopology(s, cfg, t.Dimensions, t.Concentration), nil
}

// NewTopology creates a torus topology with the given geometry.
func NewTopology(
	s *sim.Simulation,
	cfg *config.Config,
	dims []int,
	concentration int,
) *Topology {
	numRouters := 1
	for _, w := range dims {
		numRouters *= w
	}
	return &Topology{
		sim:           s,
		cfg:           cfg,
		dims:          dims,
		concentration: concentration,
		numRouters:    numRouters,
		numInterfaces: numRouters * concentration,
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

// routerRadix is the number of ports per router: concentration terminal
// ports plus two per dimension.
func (t *Topology) routerRadix() int {
	return t.concentration + 2*len(t.dims)
}

// InterfaceIDToAddress converts an interface id to its address.
func (t *Topology) InterfaceIDToAddress(id int) []int {
	addr := make([]int, 1+len(t.dims))
	addr[0] = id % t.concentration
	rest := id / t.concentration
	for d, w := range t.dims {
		addr[1+d] = rest % w
		rest /= w
	}
	return addr
}

// InterfaceAddressToID converts an interface address to its id.
func (t *Topology) InterfaceAddressToID(addr []int) int {
	id := 0
	for d := len(t.dims) - 1; d >= 0; d-- {
		id = id*t.dims[d] + addr[1+d]
	}
	return id*t.concentration + addr[0]
}

// RouterIDToAddress converts a router id to its address.
func (t *Topology) RouterIDToAddress(id int) []int {
	addr := make([]int, len(t.dims))
	for d, w := range t.dims {
		addr[d] = id % w
		id /= w
	}
	return addr
}

// RouterAddressToID converts a router address to its id.
func (t *Topology) RouterAddressToID(addr []int) int {
	id := 0
	for d := len(t.dims) - 1; d >= 0; d-- {
		id = id*t.dims[d] + addr[d]
	}
	return id
}

// MinimalHops returns the minimum number of routers visited between two
// interface addresses: one plus the shortest wrap-aware distance per
// dimension.
func (t *Topology) MinimalHops(src, dst []int) int {
	hops := 1
	for d, w := range t.dims {
		fwd := ((dst[1+d] - src[1+d]) + w) % w
		bwd := ((src[1+d] - dst[1+d]) + w) % w
		if fwd < bwd {
			hops += fwd
		} else {
			hops += bwd
		}
	}
	return hops
}

// Build creates the routers, interfaces, and channels of the torus and
// wires them together.
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
		WithNumPorts(t.routerRadix()).
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

		// Terminal channels between the interface and its router.
		rtr := n.Router(t.RouterAddressToID(addr[1:]))
		port := addr[0]

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

	// Inter-router channels, one pair per dimension neighbor.
	for r := 0; r < t.numRouters; r++ {
		addr := t.RouterIDToAddress(r)
		for d, w := range t.dims {
			next := make([]int, len(addr))
			copy(next, addr)
			next[d] = (addr[d] + 1) % w
			nb := t.RouterAddressToID(next)

			rightPort := t.concentration + 2*d
			leftPort := t.concentration + 2*d + 1

			fwd := messaging.NewChannel(
				fmt.Sprintf("Channel_R%d_to_R%d_dim%d", r, nb, d),
				n, engine, clocks.Channel, latency)
			n.Router(r).SetOutputChannel(rightPort, fwd, depth)
			n.Router(nb).SetInputChannel(leftPort, fwd)
			n.AddChannel(fwd)

			bwd := messaging.NewChannel(
				fmt.Sprintf("Channel_R%d_to_R%d_dim%d", nb, r, d),
				n, engine, clocks.Channel, latency)
			n.Router(nb).SetOutputChannel(leftPort, bwd, depth)
			n.Router(r).SetInputChannel(rightPort, bwd)
			n.AddChannel(bwd)
		}
	}
}

func (t *Topology) installRoutingAlgorithms(
	n *network.Network,
	rtr *router.Comp,
) {
	for port := 0; port < t.routerRadix(); port++ {
		for vc := 0; vc < n.NumVcs(); vc++ {
			pc := n.VcToPc(vc)
			pcCfg := t.cfg.Network.ProtocolClasses[pc]
			baseVc, numVcs := n.PcVcs(pc)

			var alg routing.Algorithm
			switch pcCfg.Routing.Algorithm {
			case "dimension_order":
				alg = newDimOrderRouting(
					t, rtr.Address(), port, vc,
					baseVc, numVcs, pcCfg.Routing.Latency)
			default:
				log.Panicf("torus: unknown routing algorithm %q",
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
		case "dimension_order":
			alg = &dimOrderInjection{baseVc: baseVc}
		default:
			log.Panicf("torus: unknown injection algorithm %q",
				pcCfg.Injection.Algorithm)
		}
		iface.SetInjectionAlgorithm(pc, alg)
	}
}
