package blast

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/network"
	"github.com/sarchlab/fabsim/sim"
	"github.com/sarchlab/fabsim/workload"

	_ "github.com/sarchlab/fabsim/network/torus"
)

// captureLog records everything the workload reports, in order.
type captureLog struct {
	started  map[uint64]sim.TimePs
	ended    map[uint64]sim.TimePs
	delivers map[uint64][]sim.TimePs
	order    []uint64
}

func newCaptureLog() *captureLog {
	return &captureLog{
		started:  map[uint64]sim.TimePs{},
		ended:    map[uint64]sim.TimePs{},
		delivers: map[uint64][]sim.TimePs{},
	}
}

func (l *captureLog) StartTransaction(id uint64, now sim.TimePs) {
	l.started[id] = now
}

func (l *captureLog) EndTransaction(id uint64, now sim.TimePs) {
	l.ended[id] = now
	l.order = append(l.order, id)
}

func (l *captureLog) LogMessage(m *messaging.Message) {
	l.delivers[m.Transaction] = append(
		l.delivers[m.Transaction], m.DeliverTime)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func baseConfig() *config.Config {
	cfg := config.Default()
	cfg.Seed = 0xBAADF00D
	cfg.Network.Topology = "torus"
	cfg.Network.Torus = &config.Torus{
		Dimensions:    []int{2, 2},
		Concentration: 1,
	}
	cfg.Network.ProtocolClasses = []config.ProtocolClass{{
		NumVcs:    2,
		Routing:   config.Routing{Algorithm: "dimension_order"},
		Injection: config.Injection{Algorithm: "dimension_order"},
	}}
	cfg.Workload.Application = "blast"
	cfg.Workload.Blast = &config.Blast{
		RequestInjectionRate: 0.05,
		NumTransactions:      2,
		TransactionSize:      1,
		MaxPacketSize:        2,
		TrafficPattern: config.Traffic{
			Pattern:    "uniform_random",
			SendToSelf: true,
		},
		MessageSize: config.MessageSize{
			Distribution: "single",
			Size:         4,
		},
		WarmupWindow:   5,
		WarmupAttempts: 3,
	}
	return cfg
}

func buildStack(
	t *testing.T,
	cfg *config.Config,
) (*sim.SerialEngine, *network.Network, *workload.Workload, *captureLog) {
	t.Helper()

	engine := sim.NewSerialEngine()
	clocks := sim.MakeDefaultClocks(1000)
	s := sim.NewSimulation(engine, clocks, cfg.Seed)

	topo, err := network.NewTopology(s, cfg)
	require.NoError(t, err)

	counts := make([]int, len(cfg.Network.ProtocolClasses))
	for i, pc := range cfg.Network.ProtocolClasses {
		counts[i] = pc.NumVcs
	}
	net := network.New("Network", s, topo, counts, nil)
	net.Build()

	capture := newCaptureLog()
	w, err := workload.New(s, net, cfg, capture, quietLogger())
	require.NoError(t, err)

	return engine, net, w, capture
}

func TestBlastRunsToCompletion(t *testing.T) {
	cfg := baseConfig()
	engine, net, w, capture := buildStack(t, cfg)

	engine.SetDeadline(1_000_000_000)
	require.NoError(t, engine.Run())

	// Warm-up threshold 0 opens the monitoring window at time 0.
	start, end := net.MonitorWindow()
	assert.Equal(t, sim.TimePs(0), start)
	assert.Greater(t, end, start)

	// Every tagged transaction started was also ended.
	assert.Equal(t, len(capture.started), len(capture.ended))
	assert.GreaterOrEqual(t, len(capture.ended), 4*2)

	// Transaction size 1 and responses disabled: the transaction ends at
	// the delivery time of its sole message.
	for id, endTime := range capture.ended {
		deliveries := capture.delivers[id]
		require.Len(t, deliveries, 1)
		assert.Equal(t, deliveries[0], endTime)
	}

	// Nothing leaked: every launched flit was observed delivered.
	app := w.Application()
	for i := 0; i < app.NumTerminals(); i++ {
		_, _, flits := app.Terminal(i).(*Terminal).EnrouteCount()
		assert.Zero(t, flits)
	}

	assert.Equal(t, 1.0, app.PercentComplete())
}

func TestBlastIsDeterministic(t *testing.T) {
	run := func() []uint64 {
		cfg := baseConfig()
		engine, _, _, capture := buildStack(t, cfg)
		engine.SetDeadline(1_000_000_000)
		require.NoError(t, engine.Run())
		require.NotEmpty(t, capture.order)
		return capture.order
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestBlastRequestResponseFlow(t *testing.T) {
	cfg := baseConfig()
	cfg.Network.ProtocolClasses = append(cfg.Network.ProtocolClasses,
		config.ProtocolClass{
			NumVcs:    2,
			Routing:   config.Routing{Algorithm: "dimension_order"},
			Injection: config.Injection{Algorithm: "dimension_order"},
		})
	cfg.Workload.Blast.EnableResponses = true
	cfg.Workload.Blast.ResponseProtocolClass = 1
	cfg.Workload.Blast.RequestProcessingLatency = 4

	engine, _, w, capture := buildStack(t, cfg)
	engine.SetDeadline(1_000_000_000)
	require.NoError(t, engine.Run())

	assert.Equal(t, len(capture.started), len(capture.ended))
	assert.NotEmpty(t, capture.ended)

	app := w.Application()
	for i := 0; i < app.NumTerminals(); i++ {
		_, _, flits := app.Terminal(i).(*Terminal).EnrouteCount()
		assert.Zero(t, flits)
	}
}

func TestBlastKillOnSaturation(t *testing.T) {
	cfg := baseConfig()
	cfg.Workload.Blast.KillOnSaturation = true
	cfg.Workload.Blast.WarmupThreshold = 1.0
	cfg.Workload.Blast.WarmupInterval = 10

	_, _, w, capture := buildStack(t, cfg)

	exitCode := -1
	w.SetExit(func(code int) { exitCode = code })

	app := w.Application().(*Application)
	app.terminalSaturated(0)

	// A saturation kill reports success, and nothing was logged.
	assert.Equal(t, 0, exitCode)
	assert.Empty(t, capture.started)
	assert.Empty(t, capture.ended)
}

func TestBlastLogDuringSaturationTimesOut(t *testing.T) {
	cfg := baseConfig()
	cfg.Workload.Blast.LogDuringSaturation = true
	cfg.Workload.Blast.MaxSaturationCycles = 10
	cfg.Workload.Blast.WarmupThreshold = 1.0
	cfg.Workload.Blast.WarmupInterval = 10

	engine, net, w, _ := buildStack(t, cfg)

	app := w.Application().(*Application)
	app.terminalSaturated(0)
	assert.Equal(t, appLogging, app.fsm)
	assert.True(t, net.Monitoring())

	// The timeout sentinel moves the application on even though the
	// terminals never complete.
	engine.SetDeadline(1_000_000)
	require.NoError(t, engine.Run())
	assert.GreaterOrEqual(t, int(app.fsm), int(appBlabbing))
	assert.False(t, net.Monitoring())
}
