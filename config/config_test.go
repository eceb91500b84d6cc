package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonConfig = `{
  "seed": 12345,
  "network": {
    "topology": "torus",
    "torus": {"dimensions": [4, 4], "concentration": 2},
    "channel_latency": 2,
    "input_queue_depth": 8,
    "protocol_classes": [
      {
        "num_vcs": 2,
        "routing": {"algorithm": "dimension_order"},
        "injection": {"algorithm": "dimension_order"}
      }
    ]
  },
  "workload": {
    "application": "blast",
    "blast": {
      "request_injection_rate": 0.2,
      "num_transactions": 100,
      "transaction_size": 1,
      "max_packet_size": 4,
      "traffic_pattern": {"pattern": "uniform_random", "send_to_self": true},
      "message_size_distribution": {"distribution": "single", "size": 8},
      "request_protocol_class": 0,
      "warmup_interval": 200,
      "warmup_window": 10,
      "warmup_attempts": 20,
      "warmup_threshold": 0.9
    }
  }
}`

const yamlConfig = `
seed: 12345
network:
  topology: torus
  torus:
    dimensions: [4, 4]
    concentration: 2
  channel_latency: 2
  input_queue_depth: 8
  protocol_classes:
    - num_vcs: 2
      routing: {algorithm: dimension_order}
      injection: {algorithm: dimension_order}
workload:
  application: blast
  blast:
    request_injection_rate: 0.2
    num_transactions: 100
    transaction_size: 1
    max_packet_size: 4
    traffic_pattern: {pattern: uniform_random, send_to_self: true}
    message_size_distribution: {distribution: single, size: 8}
    request_protocol_class: 0
    warmup_interval: 200
    warmup_window: 10
    warmup_attempts: 20
    warmup_threshold: 0.9
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", jsonConfig), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(12345), cfg.Seed)
	assert.Equal(t, "torus", cfg.Network.Topology)
	assert.Equal(t, []int{4, 4}, cfg.Network.Torus.Dimensions)
	assert.Equal(t, uint64(2), cfg.Network.ChannelLatency)
	assert.Equal(t, 0.2, cfg.Workload.Blast.RequestInjectionRate)
	// Defaults survive for settings the file does not name.
	assert.Equal(t, int64(1000), cfg.ClockPeriods.ChannelPs)
}

func TestLoadYAMLMatchesJSON(t *testing.T) {
	fromJSON, err := Load(writeFile(t, "config.json", jsonConfig), nil)
	require.NoError(t, err)
	fromYAML, err := Load(writeFile(t, "config.yaml", yamlConfig), nil)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestOverrides(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", jsonConfig), []string{
		"seed=99",
		"workload.blast.num_transactions=7",
		"network.topology=torus",
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, uint32(7), cfg.Workload.Blast.NumTransactions)
}

func TestMalformedOverride(t *testing.T) {
	_, err := Load(writeFile(t, "config.json", jsonConfig),
		[]string{"no-equals-sign"})
	assert.Error(t, err)
}

func TestValidationRejectsBadConfigs(t *testing.T) {
	overrides := [][]string{
		{"network.topology=\"\""},
		{"network.channel_latency=0"},
		{"network.input_queue_depth=0"},
		{"workload.blast.request_injection_rate=1.5"},
		{"workload.blast.transaction_size=0"},
		{"workload.blast.warmup_threshold=2"},
		{"workload.blast.warmup_window=2"},
		{"workload.blast.request_protocol_class=5"},
	}

	for _, o := range overrides {
		_, err := Load(writeFile(t, "config.json", jsonConfig), o)
		assert.Error(t, err, "override %v should fail validation", o)
	}
}

func TestValidationRejectsShortWarmupInterval(t *testing.T) {
	// A message of 8 flits needs an interval of at least 16.
	_, err := Load(writeFile(t, "config.json", jsonConfig),
		[]string{"workload.blast.warmup_interval=10"})
	assert.Error(t, err)

	cfg, err := Load(writeFile(t, "config.json", jsonConfig),
		[]string{"workload.blast.warmup_interval=16"})
	require.NoError(t, err)
	assert.Equal(t, uint32(16), cfg.Workload.Blast.WarmupInterval)

	// Zero disables warm-up sampling entirely.
	_, err = Load(writeFile(t, "config.json", jsonConfig),
		[]string{"workload.blast.warmup_interval=0"})
	assert.NoError(t, err)
}

func TestLogDuringSaturationNeedsATimeout(t *testing.T) {
	_, err := Load(writeFile(t, "config.json", jsonConfig),
		[]string{"workload.blast.log_during_saturation=true"})
	assert.Error(t, err)

	_, err = Load(writeFile(t, "config.json", jsonConfig), []string{
		"workload.blast.log_during_saturation=true",
		"workload.blast.max_saturation_cycles=1000",
	})
	assert.NoError(t, err)
}
