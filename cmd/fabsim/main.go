// fabsim runs one interconnection-network simulation from a configuration
// file and writes the configured statistics outputs.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/network"
	"github.com/sarchlab/fabsim/sim"
	"github.com/sarchlab/fabsim/stats"
	"github.com/sarchlab/fabsim/workload"

	// Topologies and applications register themselves at process start.
	_ "github.com/sarchlab/fabsim/network/foldedclos"
	_ "github.com/sarchlab/fabsim/network/torus"
	_ "github.com/sarchlab/fabsim/workload/blast"
)

var (
	overrides   []string
	seedFlag    int64
	logLevel    string
	traceEvents bool
)

var rootCmd = &cobra.Command{
	Use:   "fabsim <config>",
	Short: "Cycle-accurate interconnection-network simulator.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(args[0])
	},
}

func init() {
	rootCmd.Flags().StringArrayVar(&overrides, "set", nil,
		"override a setting, e.g. --set workload.blast.num_transactions=10")
	rootCmd.Flags().Int64Var(&seedFlag, "seed", -1,
		"override the random seed")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info",
		"log level: trace, debug, info, warn, error")
	rootCmd.Flags().BoolVar(&traceEvents, "trace-events", false,
		"log every event the engine fires")
}

func main() {
	// A .env file may set FABSIM_STATS_DIR; nothing in the simulation core
	// reads the environment.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func run(configPath string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		fatal(err)
	}
	logrus.SetLevel(level)
	log := logrus.StandardLogger()

	cfg, err := config.Load(configPath, overrides)
	if err != nil {
		fatal(err)
	}
	if seedFlag >= 0 {
		cfg.Seed = uint64(seedFlag)
	}

	engine := sim.NewSerialEngine()
	if traceEvents {
		engine.AcceptHook(sim.NewEventLogger(log))
	}

	clocks := sim.Clocks{
		Channel: sim.MakeClock("Channel",
			sim.TimePs(cfg.ClockPeriods.ChannelPs)),
		Router: sim.MakeClock("Router",
			sim.TimePs(cfg.ClockPeriods.RouterPs)),
		Interface: sim.MakeClock("Interface",
			sim.TimePs(cfg.ClockPeriods.InterfacePs)),
		Terminal: sim.MakeClock("Terminal",
			sim.TimePs(cfg.ClockPeriods.TerminalPs)),
	}
	simulation := sim.NewSimulation(engine, clocks, cfg.Seed)
	log.WithField("id", simulation.ID()).Info("simulation created")

	topo, err := network.NewTopology(simulation, cfg)
	if err != nil {
		fatal(err)
	}

	trafficLog := stats.NewTrafficLog()
	net := network.New("Network", simulation, topo,
		pcVcCounts(cfg), trafficLog)
	net.Build()
	log.WithFields(logrus.Fields{
		"routers":    net.NumRouters(),
		"interfaces": net.NumInterfaces(),
		"channels":   len(net.Channels()),
	}).Info("network built")

	msgLog := makeMessageLog(cfg)
	w, err := workload.New(simulation, net, cfg, msgLog, log)
	if err != nil {
		fatal(err)
	}
	if err := engine.Run(); err != nil {
		fatal(err)
	}
	engine.Finished()
	log.WithFields(logrus.Fields{
		"time":     engine.CurrentTime(),
		"complete": w.Application().PercentComplete(),
	}).Info("simulation finished")

	writeStats(cfg, net, trafficLog)
	reportResources(log)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	atexit.Exit(1)
}

func pcVcCounts(cfg *config.Config) []int {
	counts := make([]int, len(cfg.Network.ProtocolClasses))
	for i, pc := range cfg.Network.ProtocolClasses {
		counts[i] = pc.NumVcs
	}
	return counts
}

func makeMessageLog(cfg *config.Config) stats.MessageLog {
	path := statsPath(cfg.Stats.MessageLog)
	switch {
	case cfg.Stats.Format == "sqlite":
		return stats.NewSQLiteMessageLog(statsPath(cfg.Stats.Database))
	case path != "":
		return stats.NewCSVMessageLog(path)
	default:
		return stats.NullMessageLog{}
	}
}

// statsPath resolves a stats output path against FABSIM_STATS_DIR.
func statsPath(path string) string {
	dir := os.Getenv("FABSIM_STATS_DIR")
	if path == "" || dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func writeStats(
	cfg *config.Config,
	net *network.Network,
	trafficLog *stats.TrafficLog,
) {
	if path := statsPath(cfg.Stats.TrafficLog); path != "" {
		if err := trafficLog.WriteCSV(path); err != nil {
			fatal(err)
		}
	}

	if path := statsPath(cfg.Stats.ChannelLog); path != "" {
		start, end := net.MonitorWindow()
		period := net.Simulation().Clocks().Channel.Period
		cycles := uint64(0)
		if end > start {
			cycles = uint64((end - start) / period)
		}

		samples := make([]stats.ChannelSample, 0, len(net.Channels()))
		for _, ch := range net.Channels() {
			samples = append(samples, stats.ChannelSample{
				Name:            ch.Name(),
				Flits:           ch.MonitoredFlits(),
				MonitoredCycles: cycles,
			})
		}
		if err := stats.WriteChannelLog(path, samples); err != nil {
			fatal(err)
		}
	}
}

func reportResources(log *logrus.Logger) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	mem, memErr := proc.MemoryInfo()
	cpu, cpuErr := proc.Times()
	if memErr != nil || cpuErr != nil {
		return
	}
	log.WithFields(logrus.Fields{
		"rss_mb":   mem.RSS / (1024 * 1024),
		"user_sec": cpu.User,
		"sys_sec":  cpu.System,
	}).Info("resource usage")
}
