// Package network binds routers, interfaces, and channels into a fabric and
// publishes the protocol-class to virtual-channel map.
package network

import (
	"log"

	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/netif"
	"github.com/sarchlab/fabsim/router"
	"github.com/sarchlab/fabsim/sim"
)

// A Topology constructs the devices and wiring of a concrete network shape
// and defines its address space.
type Topology interface {
	NumRouters() int
	NumInterfaces() int

	InterfaceIDToAddress(id int) []int
	InterfaceAddressToID(addr []int) int
	RouterIDToAddress(id int) []int
	RouterAddressToID(addr []int) int

	// MinimalHops returns the minimum number of routers a flit visits
	// between two interface addresses.
	MinimalHops(src, dst []int) int

	// Build creates the routers, interfaces, and channels of the fabric
	// and registers them with the network.
	Build(n *Network)
}

// A TrafficSink accumulates per-hop flit counts.
type TrafficSink interface {
	Add(device string, inputPort, inputVc, outputPort, outputVc, flits int)
}

// PcVcInfo is the VC range owned by one protocol class.
type PcVcInfo struct {
	BaseVc int
	NumVcs int
}

// Network owns all routers, interfaces, and channels of the fabric.
type Network struct {
	*sim.ComponentBase

	sim  *sim.Simulation
	topo Topology

	pcVcs  []PcVcInfo
	vcToPc []int

	routers    []*router.Comp
	interfaces []*netif.Comp
	channels   []*messaging.Channel

	monitoring   bool
	monitorStart sim.TimePs
	monitorEnd   sim.TimePs

	traffic TrafficSink
}

// New creates a network. pcVcCounts gives the number of VCs owned by each
// protocol class; class p owns the contiguous range following class p-1.
// Build must be called before the network is used.
func New(
	name string,
	s *sim.Simulation,
	topo Topology,
	pcVcCounts []int,
	traffic TrafficSink,
) *Network {
	if len(pcVcCounts) == 0 {
		log.Panic("network: at least one protocol class is required")
	}

	n := &Network{
		ComponentBase: sim.NewComponentBase(name, nil),
		sim:           s,
		topo:          topo,
		traffic:       traffic,
	}

	base := 0
	for pc, count := range pcVcCounts {
		if count <= 0 {
			log.Panicf("network: protocol class %d must own at least one vc",
				pc)
		}
		n.pcVcs = append(n.pcVcs, PcVcInfo{BaseVc: base, NumVcs: count})
		for v := 0; v < count; v++ {
			n.vcToPc = append(n.vcToPc, pc)
		}
		base += count
	}

	return n
}

// Build constructs the fabric through the topology.
func (n *Network) Build() {
	n.topo.Build(n)
}

// Simulation returns the simulation context.
func (n *Network) Simulation() *sim.Simulation {
	return n.sim
}

// NumPcs returns the number of protocol classes.
func (n *Network) NumPcs() int {
	return len(n.pcVcs)
}

// NumVcs returns the total number of virtual channels.
func (n *Network) NumVcs() int {
	return len(n.vcToPc)
}

// PcVcs returns the VC range owned by the protocol class.
func (n *Network) PcVcs(pc int) (baseVc, numVcs int) {
	info := n.pcVcs[pc]
	return info.BaseVc, info.NumVcs
}

// VcToPc returns the protocol class owning the VC.
func (n *Network) VcToPc(vc int) int {
	return n.vcToPc[vc]
}

// AddRouter registers a router. Routers must be added in id order.
func (n *Network) AddRouter(r *router.Comp) {
	if r.ID() != len(n.routers) {
		log.Panicf("network: router %d added out of order", r.ID())
	}
	n.routers = append(n.routers, r)
}

// AddInterface registers an interface. Interfaces must be added in id order.
func (n *Network) AddInterface(i *netif.Comp) {
	if i.ID() != len(n.interfaces) {
		log.Panicf("network: interface %d added out of order", i.ID())
	}
	n.interfaces = append(n.interfaces, i)
}

// AddChannel registers a channel and attaches the monitoring window.
func (n *Network) AddChannel(c *messaging.Channel) {
	c.SetMonitor(n)
	n.channels = append(n.channels, c)
}

// NumRouters returns the number of routers.
func (n *Network) NumRouters() int {
	return len(n.routers)
}

// NumInterfaces returns the number of interfaces.
func (n *Network) NumInterfaces() int {
	return len(n.interfaces)
}

// Router returns the router with the given id.
func (n *Network) Router(id int) *router.Comp {
	return n.routers[id]
}

// Interface returns the interface with the given id.
func (n *Network) Interface(id int) *netif.Comp {
	return n.interfaces[id]
}

// Channels returns all channels of the fabric.
func (n *Network) Channels() []*messaging.Channel {
	return n.channels
}

// TranslateInterfaceIDToAddress converts an interface id to its address.
func (n *Network) TranslateInterfaceIDToAddress(id int) []int {
	return n.topo.InterfaceIDToAddress(id)
}

// TranslateInterfaceAddressToID converts an interface address to its id.
func (n *Network) TranslateInterfaceAddressToID(addr []int) int {
	return n.topo.InterfaceAddressToID(addr)
}

// TranslateRouterIDToAddress converts a router id to its address.
func (n *Network) TranslateRouterIDToAddress(id int) []int {
	return n.topo.RouterIDToAddress(id)
}

// TranslateRouterAddressToID converts a router address to its id.
func (n *Network) TranslateRouterAddressToID(addr []int) int {
	return n.topo.RouterAddressToID(addr)
}

// ComputeMinimalHops returns the minimum hop count between two interface
// addresses.
func (n *Network) ComputeMinimalHops(src, dst []int) int {
	return n.topo.MinimalHops(src, dst)
}

// StartMonitoring opens the monitoring window observed by the channel and
// traffic logs.
func (n *Network) StartMonitoring() {
	n.monitoring = true
	n.monitorStart = n.sim.Now()
}

// EndMonitoring closes the monitoring window.
func (n *Network) EndMonitoring() {
	n.monitoring = false
	n.monitorEnd = n.sim.Now()
}

// Monitoring reports whether the monitoring window is open.
func (n *Network) Monitoring() bool {
	return n.monitoring
}

// MonitorWindow returns the open and close times of the monitoring window.
func (n *Network) MonitorWindow() (start, end sim.TimePs) {
	return n.monitorStart, n.monitorEnd
}

// LogTraffic records a flit movement. Samples outside the monitoring window
// are discarded.
func (n *Network) LogTraffic(
	device sim.Named,
	inputPort, inputVc, outputPort, outputVc, flits int,
) {
	if !n.monitoring || n.traffic == nil {
		return
	}
	n.traffic.Add(device.Name(), inputPort, inputVc, outputPort, outputVc,
		flits)
}
