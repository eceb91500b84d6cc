// Package workload drives the terminals: it owns the application, routes
// delivery notifications between terminals, and couples the application's
// measurement phases to the network's monitoring window.
package workload

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/network"
	"github.com/sarchlab/fabsim/sim"
	"github.com/sarchlab/fabsim/stats"
)

// A Terminal is the per-host endpoint of an application.
type Terminal interface {
	ID() int

	RequestInjectionRate() float64

	StopWarming()
	StartLogging()
	StopLogging()
	StopSending()

	// MessageDelivered updates the enroute accounting of the sending
	// terminal. Called before the delivery hooks.
	MessageDelivered(m *messaging.Message)

	// HandleDeliveredMessage runs on the sending terminal when one of its
	// messages is fully ejected.
	HandleDeliveredMessage(m *messaging.Message)

	// HandleReceivedMessage runs on the receiving terminal afterwards.
	HandleReceivedMessage(m *messaging.Message)
}

// An Application owns the terminals of one workload.
type Application interface {
	NumTerminals() int
	Terminal(id int) Terminal

	// Start moves the application into its measurement phase.
	Start()

	// Stop ends the measurement phase.
	Stop()

	// Kill stops all sending so the fabric can drain.
	Kill()

	PercentComplete() float64
}

// An ApplicationFactory creates an application bound to a workload.
type ApplicationFactory func(
	w *Workload,
	s *sim.Simulation,
	net *network.Network,
	cfg *config.Config,
) (Application, error)

var applicationFactories = map[string]ApplicationFactory{}

// RegisterApplication registers an application constructor under a name.
// Called from package init functions at process start.
func RegisterApplication(name string, f ApplicationFactory) {
	if _, dup := applicationFactories[name]; dup {
		panic(fmt.Sprintf("application %q registered twice", name))
	}
	applicationFactories[name] = f
}

// Workload coordinates one application over one network.
type Workload struct {
	log *logrus.Logger

	sim *sim.Simulation
	net *network.Network
	app Application

	msgLog stats.MessageLog
	exit   func(code int)
}

// New creates a workload and its application.
func New(
	s *sim.Simulation,
	net *network.Network,
	cfg *config.Config,
	msgLog stats.MessageLog,
	log *logrus.Logger,
) (*Workload, error) {
	factory, ok := applicationFactories[cfg.Workload.Application]
	if !ok {
		return nil, fmt.Errorf("unknown application %q (known: %v)",
			cfg.Workload.Application, knownApplications())
	}

	w := &Workload{
		log:    log,
		sim:    s,
		net:    net,
		msgLog: msgLog,
		exit:   atexit.Exit,
	}

	app, err := factory(w, s, net, cfg)
	if err != nil {
		return nil, err
	}
	w.app = app

	w.bindEjectors()
	return w, nil
}

func knownApplications() []string {
	names := make([]string, 0, len(applicationFactories))
	for n := range applicationFactories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// bindEjectors routes every interface's reassembled messages through the
// two terminal hooks.
func (w *Workload) bindEjectors() {
	for i := 0; i < w.net.NumInterfaces(); i++ {
		w.net.Interface(i).SetEjector(&ejector{w: w, terminalID: i})
	}
}

type ejector struct {
	w          *Workload
	terminalID int
}

// EjectMessage dispatches a fully reassembled message: the source terminal
// observes the delivery, then the receiving terminal handles the message.
func (e *ejector) EjectMessage(m *messaging.Message) {
	src := e.w.app.Terminal(m.SourceID)
	src.MessageDelivered(m)
	src.HandleDeliveredMessage(m)
	e.w.app.Terminal(e.terminalID).HandleReceivedMessage(m)
}

// Simulation returns the simulation context.
func (w *Workload) Simulation() *sim.Simulation {
	return w.sim
}

// Application returns the application of the workload.
func (w *Workload) Application() Application {
	return w.app
}

// MessageLog returns the per-message log sink.
func (w *Workload) MessageLog() stats.MessageLog {
	return w.msgLog
}

// SetExit replaces the process-exit function. Tests use this to observe the
// saturation-kill path.
func (w *Workload) SetExit(exit func(code int)) {
	w.exit = exit
}

// Exit terminates the process. A saturation kill exits with code 0: the run
// succeeded in determining saturation.
func (w *Workload) Exit(code int) {
	w.exit(code)
}

// ApplicationReady is called when the application finished warming. It
// opens the monitoring window and starts the measurement phase.
func (w *Workload) ApplicationReady() {
	w.log.WithField("time", w.sim.Now()).Info("application ready")
	w.net.StartMonitoring()
	w.app.Start()
}

// ApplicationComplete is called when the measurement phase ends. It closes
// the monitoring window.
func (w *Workload) ApplicationComplete() {
	w.log.WithField("time", w.sim.Now()).Info("application complete")
	w.net.EndMonitoring()
	w.app.Stop()
}

// ApplicationDone is called when all terminals are done sending. The
// application stops injecting and the fabric drains.
func (w *Workload) ApplicationDone() {
	w.log.WithField("time", w.sim.Now()).Info("application done")
	w.app.Kill()
}
