package network

import (
	"fmt"
	"sort"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/sim"
)

// A TopologyFactory creates a topology from the configuration.
type TopologyFactory func(s *sim.Simulation, cfg *config.Config) (Topology, error)

var topologyFactories = map[string]TopologyFactory{}

// RegisterTopology registers a topology constructor under a name. Called
// from package init functions at process start.
func RegisterTopology(name string, f TopologyFactory) {
	if _, dup := topologyFactories[name]; dup {
		panic(fmt.Sprintf("topology %q registered twice", name))
	}
	topologyFactories[name] = f
}

// NewTopology creates the topology named in the configuration.
func NewTopology(s *sim.Simulation, cfg *config.Config) (Topology, error) {
	f, ok := topologyFactories[cfg.Network.Topology]
	if !ok {
		return nil, fmt.Errorf("unknown topology %q (known: %v)",
			cfg.Network.Topology, knownTopologies())
	}
	return f(s, cfg)
}

func knownTopologies() []string {
	names := make([]string, 0, len(topologyFactories))
	for n := range topologyFactories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
