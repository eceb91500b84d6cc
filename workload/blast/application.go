// Package blast implements the blast workload: every terminal issues
// transactions at a configured rate, the application detects warm-up and
// saturation across terminals, and measurement runs only over the steady
// state.
package blast

import (
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/network"
	"github.com/sarchlab/fabsim/sim"
	"github.com/sarchlab/fabsim/workload"
)

func init() {
	workload.RegisterApplication("blast", newApplication)
}

// Application event opcodes.
const (
	forceWarmedOpcode   int32 = 0x123
	maxSaturationOpcode int32 = 0x456
)

type appFsm int

const (
	appWarming appFsm = iota
	appLogging
	appBlabbing
	appDraining
)

// Application runs the application-level phase machine of the blast
// workload.
type Application struct {
	*sim.ComponentBase

	log *logrus.Logger
	sim *sim.Simulation
	w   *workload.Workload

	killOnSaturation    bool
	logDuringSaturation bool
	maxSaturationCycles uint64
	warmupThreshold     float64

	terminals       []*Terminal
	activeTerminals int

	fsm       appFsm
	doLogging bool

	warmedTerminals    int
	saturatedTerminals int
	completedTerminals int
	doneTerminals      int
}

func newApplication(
	w *workload.Workload,
	s *sim.Simulation,
	net *network.Network,
	cfg *config.Config,
) (workload.Application, error) {
	b := cfg.Workload.Blast

	a := &Application{
		ComponentBase:       sim.NewComponentBase("Blast", nil),
		log:                 logrus.StandardLogger(),
		sim:                 s,
		w:                   w,
		killOnSaturation:    b.KillOnSaturation,
		logDuringSaturation: b.LogDuringSaturation,
		maxSaturationCycles: b.MaxSaturationCycles,
		warmupThreshold:     b.WarmupThreshold,
	}

	if rel := b.RelativeInjection; rel != nil &&
		len(rel) != net.NumInterfaces() {
		return nil, fmt.Errorf(
			"blast: relative_injection has %d entries for %d terminals",
			len(rel), net.NumInterfaces())
	}

	a.activeTerminals = net.NumInterfaces()
	for id := 0; id < net.NumInterfaces(); id++ {
		t, err := newTerminal(a, s, net, cfg, id)
		if err != nil {
			return nil, err
		}
		a.terminals = append(a.terminals, t)

		if t.RequestInjectionRate() == 0 {
			a.activeTerminals--
		}
	}
	a.log.WithField("active", a.activeTerminals).Debug("blast terminals")

	if a.warmupThreshold == 0 {
		s.Engine().Schedule(sim.MakeEvent(
			0, sim.EpsilonApp, a, nil, forceWarmedOpcode))
	}

	return a, nil
}

// NumTerminals returns the number of terminals.
func (a *Application) NumTerminals() int {
	return len(a.terminals)
}

// Terminal returns a terminal by id.
func (a *Application) Terminal(id int) workload.Terminal {
	return a.terminals[id]
}

// PercentComplete averages the terminals' logging progress.
func (a *Application) PercentComplete() float64 {
	if a.activeTerminals == 0 {
		return 1
	}
	sum := 0.0
	for _, t := range a.terminals {
		sum += t.percentComplete()
	}
	return sum / float64(a.activeTerminals)
}

// Start begins the measurement phase on every terminal. When warming ended
// in saturation without logging, the terminals stop sending instead and the
// measurement phase is empty.
func (a *Application) Start() {
	for _, t := range a.terminals {
		if a.doLogging {
			t.StartLogging()
		} else {
			t.StopSending()
		}
	}
	if !a.doLogging {
		a.w.ApplicationComplete()
	}
}

// Stop ends the measurement phase.
func (a *Application) Stop() {
	if a.doLogging {
		for _, t := range a.terminals {
			t.StopLogging()
		}
	} else {
		a.w.ApplicationDone()
	}
}

// Kill stops all sending so the fabric drains.
func (a *Application) Kill() {
	if a.doLogging {
		for _, t := range a.terminals {
			t.StopSending()
		}
	}
}

// terminalWarmed accounts one warmed terminal. The forced transition at
// time 0 passes id < 0 and does not count.
func (a *Application) terminalWarmed(id int) {
	if a.fsm != appWarming {
		log.Panic("blast: terminal warmed outside the warming phase")
	}
	if id >= 0 {
		a.warmedTerminals++
	}
	a.log.WithFields(logrus.Fields{
		"terminal": id,
		"warmed":   a.warmedTerminals,
		"active":   a.activeTerminals,
	}).Debug("terminal warmed")

	percentWarmed := 1.0
	if a.activeTerminals > 0 {
		percentWarmed = float64(a.warmedTerminals) /
			float64(a.activeTerminals)
	}
	if percentWarmed >= a.warmupThreshold {
		a.fsm = appLogging
		a.doLogging = true
		for _, t := range a.terminals {
			t.StopWarming()
		}
		a.w.ApplicationReady()
	}
}

// terminalSaturated accounts one saturated terminal and reacts when too
// many terminals are saturated to ever reach the warm-up threshold.
func (a *Application) terminalSaturated(id int) {
	if a.fsm != appWarming {
		log.Panic("blast: terminal saturated outside the warming phase")
	}
	a.saturatedTerminals++
	a.log.WithFields(logrus.Fields{
		"terminal":  id,
		"saturated": a.saturatedTerminals,
		"active":    a.activeTerminals,
	}).Debug("terminal saturated")

	percentSaturated := float64(a.saturatedTerminals) /
		float64(a.activeTerminals)
	if percentSaturated <= 1-a.warmupThreshold {
		return
	}

	switch {
	case a.killOnSaturation:
		a.log.Info("saturation threshold reached, killing the run")
		a.w.Exit(0)

	case a.logDuringSaturation:
		a.log.Info("saturation threshold reached, logging anyway")
		a.fsm = appLogging
		a.doLogging = true
		for _, t := range a.terminals {
			t.StopWarming()
		}
		a.w.ApplicationReady()

		timeout := a.sim.FutureCycle(
			a.sim.Clocks().Terminal, a.maxSaturationCycles)
		a.sim.Engine().Schedule(sim.MakeEvent(
			timeout, sim.EpsilonApp, a, nil, maxSaturationOpcode))

	default:
		a.log.Info("saturation threshold reached, draining")
		a.fsm = appDraining
		a.doLogging = false
		for _, t := range a.terminals {
			t.StopWarming()
		}
		a.w.ApplicationReady()
	}
}

// terminalComplete accounts one terminal that finished logging.
func (a *Application) terminalComplete(id int) {
	a.completedTerminals++
	if a.completedTerminals == a.activeTerminals && a.fsm == appLogging {
		a.log.Debug("all terminals done logging")
		a.fsm = appBlabbing
		a.w.ApplicationComplete()
	}
}

// terminalDone accounts one terminal that is done sending.
func (a *Application) terminalDone(id int) {
	a.doneTerminals++
	if a.doneTerminals == a.activeTerminals {
		a.log.Debug("all terminals done sending")
		a.fsm = appDraining
		a.w.ApplicationDone()
	}
}

// Handle processes the application's self-scheduled events: the forced
// warm-up at time 0 and the saturation timeout sentinel. The sentinel
// checks the phase and no-ops when the phase has already moved on.
func (a *Application) Handle(e *sim.Event) error {
	switch e.Opcode {
	case forceWarmedOpcode:
		a.terminalWarmed(-1)
	case maxSaturationOpcode:
		if a.fsm == appLogging {
			a.log.Info("max saturation time reached")
			a.fsm = appBlabbing
			a.w.ApplicationComplete()
		}
	default:
		log.Panicf("blast: unknown application event opcode 0x%x", e.Opcode)
	}
	return nil
}
