// Package config loads and validates the simulation settings document. The
// document is read once at startup; nothing mutates it afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root of the settings tree.
type Config struct {
	Seed         uint64       `json:"seed"`
	ClockPeriods ClockPeriods `json:"clock_periods"`
	Network      Network      `json:"network"`
	Workload     Workload     `json:"workload"`
	Stats        Stats        `json:"stats"`
}

// ClockPeriods gives the period of each clock in picoseconds.
type ClockPeriods struct {
	ChannelPs   int64 `json:"channel_ps"`
	RouterPs    int64 `json:"router_ps"`
	InterfacePs int64 `json:"interface_ps"`
	TerminalPs  int64 `json:"terminal_ps"`
}

// Network selects the topology and the fabric-wide parameters.
type Network struct {
	Topology        string          `json:"topology"`
	Torus           *Torus          `json:"torus,omitempty"`
	FoldedClos      *FoldedClos     `json:"folded_clos,omitempty"`
	ChannelLatency  uint64          `json:"channel_latency"`
	InputQueueDepth int             `json:"input_queue_depth"`
	ProtocolClasses []ProtocolClass `json:"protocol_classes"`
}

// Torus is the geometry of a torus network.
type Torus struct {
	Dimensions    []int `json:"dimensions"`
	Concentration int   `json:"concentration"`
}

// FoldedClos is the geometry of a folded-Clos network.
type FoldedClos struct {
	NumLevels int `json:"num_levels"`
	Radix     int `json:"radix"`
}

// ProtocolClass allocates VCs to one traffic class and selects its
// algorithms.
type ProtocolClass struct {
	NumVcs    int       `json:"num_vcs"`
	Routing   Routing   `json:"routing"`
	Injection Injection `json:"injection"`
}

// Routing selects a routing algorithm by name.
type Routing struct {
	Algorithm string `json:"algorithm"`
	Latency   uint64 `json:"latency"`
}

// Injection selects an injection algorithm by name.
type Injection struct {
	Algorithm string `json:"algorithm"`
}

// Workload selects the application driving the terminals.
type Workload struct {
	Application string `json:"application"`
	Blast       *Blast `json:"blast,omitempty"`
}

// MessageSize selects a message-size distribution by name.
type MessageSize struct {
	Distribution string `json:"distribution"`
	Size         int    `json:"size"`
	MinSize      int    `json:"min_size"`
	MaxSize      int    `json:"max_size"`
}

// Blast holds the per-terminal settings of the blast workload.
type Blast struct {
	RequestInjectionRate     float64     `json:"request_injection_rate"`
	RelativeInjection        []float64   `json:"relative_injection,omitempty"`
	NumTransactions          uint32      `json:"num_transactions"`
	TransactionSize          uint32      `json:"transaction_size"`
	MaxPacketSize            int         `json:"max_packet_size"`
	TrafficPattern           Traffic     `json:"traffic_pattern"`
	MessageSize              MessageSize `json:"message_size_distribution"`
	RequestProtocolClass     int         `json:"request_protocol_class"`
	EnableResponses          bool        `json:"enable_responses"`
	ResponseProtocolClass    int         `json:"response_protocol_class"`
	RequestProcessingLatency uint64      `json:"request_processing_latency"`
	KillOnSaturation         bool        `json:"kill_on_saturation"`
	LogDuringSaturation      bool        `json:"log_during_saturation"`
	MaxSaturationCycles      uint64      `json:"max_saturation_cycles"`
	WarmupInterval           uint32      `json:"warmup_interval"`
	WarmupWindow             uint32      `json:"warmup_window"`
	WarmupAttempts           uint32      `json:"warmup_attempts"`
	WarmupThreshold          float64     `json:"warmup_threshold"`
}

// Traffic selects a traffic pattern by name.
type Traffic struct {
	Pattern           string `json:"pattern"`
	SendToSelf        bool   `json:"send_to_self"`
	EnabledDimensions []bool `json:"enabled_dimensions,omitempty"`
}

// Stats selects the statistics outputs.
type Stats struct {
	ChannelLog string `json:"channel_log"`
	TrafficLog string `json:"traffic_log"`
	MessageLog string `json:"message_log"`
	Format     string `json:"format"`
	Database   string `json:"database"`
}

// Load reads a configuration file (JSON or YAML by extension), applies the
// dotted-path overrides, and validates the result.
func Load(path string, overrides []string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	tree := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parsing yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parsing json config: %w", err)
		}
	}

	for _, o := range overrides {
		if err := applyOverride(tree, o); err != nil {
			return nil, err
		}
	}

	// Normalize through JSON so YAML and JSON documents decode identically.
	normalized, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("normalizing config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(normalized, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with the defaults applied.
func Default() *Config {
	return &Config{
		ClockPeriods: ClockPeriods{
			ChannelPs:   1000,
			RouterPs:    1000,
			InterfacePs: 1000,
			TerminalPs:  1000,
		},
		Network: Network{
			ChannelLatency:  1,
			InputQueueDepth: 4,
		},
	}
}

// applyOverride applies one "a.b.c=value" assignment to the generic tree.
// The value is parsed as JSON when possible, and treated as a string
// otherwise.
func applyOverride(tree map[string]any, override string) error {
	key, value, found := strings.Cut(override, "=")
	if !found {
		return fmt.Errorf("override %q is not of the form key=value", override)
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}

	segments := strings.Split(key, ".")
	node := tree
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = parsed

	return nil
}

// Validate checks the configuration for errors that would otherwise surface
// as mid-run failures. It is called once at load time; a failed validation
// prevents any partial run.
func (c *Config) Validate() error {
	if err := c.validateClocks(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	return c.validateWorkload()
}

func (c *Config) validateClocks() error {
	periods := []int64{
		c.ClockPeriods.ChannelPs,
		c.ClockPeriods.RouterPs,
		c.ClockPeriods.InterfacePs,
		c.ClockPeriods.TerminalPs,
	}
	for _, p := range periods {
		if p <= 0 {
			return fmt.Errorf("config: clock periods must be positive")
		}
	}
	return nil
}

func (c *Config) validateNetwork() error {
	n := &c.Network
	if n.Topology == "" {
		return fmt.Errorf("config: network.topology is required")
	}
	if n.ChannelLatency == 0 {
		return fmt.Errorf("config: network.channel_latency must be at least 1")
	}
	if n.InputQueueDepth <= 0 {
		return fmt.Errorf("config: network.input_queue_depth must be positive")
	}
	if len(n.ProtocolClasses) == 0 {
		return fmt.Errorf("config: at least one protocol class is required")
	}
	for i, pc := range n.ProtocolClasses {
		if pc.NumVcs <= 0 {
			return fmt.Errorf(
				"config: protocol class %d must own at least one vc", i)
		}
		if pc.Routing.Algorithm == "" {
			return fmt.Errorf(
				"config: protocol class %d has no routing algorithm", i)
		}
		if pc.Injection.Algorithm == "" {
			return fmt.Errorf(
				"config: protocol class %d has no injection algorithm", i)
		}
	}
	return nil
}

func (c *Config) validateWorkload() error {
	w := &c.Workload
	if w.Application == "" {
		return fmt.Errorf("config: workload.application is required")
	}
	if w.Application == "blast" {
		if w.Blast == nil {
			return fmt.Errorf("config: workload.blast settings are required")
		}
		return w.Blast.validate(len(c.Network.ProtocolClasses))
	}
	return nil
}

func (b *Blast) validate(numPcs int) error {
	if b.RequestInjectionRate < 0 || b.RequestInjectionRate > 1 {
		return fmt.Errorf(
			"config: request_injection_rate must be within [0, 1]")
	}
	if b.TransactionSize == 0 {
		return fmt.Errorf("config: transaction_size must be positive")
	}
	if b.MaxPacketSize <= 0 {
		return fmt.Errorf("config: max_packet_size must be positive")
	}
	if b.RequestProtocolClass < 0 || b.RequestProtocolClass >= numPcs {
		return fmt.Errorf("config: request_protocol_class out of range")
	}
	if b.EnableResponses &&
		(b.ResponseProtocolClass < 0 || b.ResponseProtocolClass >= numPcs) {
		return fmt.Errorf("config: response_protocol_class out of range")
	}
	if b.WarmupThreshold < 0 || b.WarmupThreshold > 1 {
		return fmt.Errorf("config: warmup_threshold must be within [0, 1]")
	}
	if b.WarmupInterval > 0 {
		if b.WarmupWindow < 5 {
			return fmt.Errorf("config: warmup_window must be at least 5")
		}
		if b.WarmupAttempts == 0 {
			return fmt.Errorf("config: warmup_attempts must be positive")
		}
		// A message longer than half the interval would alias the enroute
		// samples; reject rather than clamp.
		maxMsg := b.MessageSize.maxSize()
		if uint32(2*maxMsg) > b.WarmupInterval {
			return fmt.Errorf(
				"config: warmup_interval %d is shorter than twice the "+
					"maximum message size %d", b.WarmupInterval, maxMsg)
		}
	}
	if b.LogDuringSaturation && b.MaxSaturationCycles == 0 {
		return fmt.Errorf(
			"config: max_saturation_cycles is required with " +
				"log_during_saturation")
	}
	return b.MessageSize.validate()
}

func (m *MessageSize) maxSize() int {
	switch m.Distribution {
	case "uniform":
		return m.MaxSize
	default:
		return m.Size
	}
}

func (m *MessageSize) validate() error {
	switch m.Distribution {
	case "single":
		if m.Size <= 0 {
			return fmt.Errorf("config: message size must be positive")
		}
	case "uniform":
		if m.MinSize <= 0 || m.MaxSize < m.MinSize {
			return fmt.Errorf("config: message size range is invalid")
		}
	case "":
		return fmt.Errorf("config: message_size_distribution is required")
	}
	return nil
}
