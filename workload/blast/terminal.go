package blast

import (
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/fabsim/config"
	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/network"
	"github.com/sarchlab/fabsim/sim"
	"github.com/sarchlab/fabsim/traffic"
	"github.com/sarchlab/fabsim/workload"
)

// Terminal event opcodes; the message opcodes reuse them on the wire.
const (
	requestOpcode  int32 = 0xFA
	responseOpcode int32 = 0x82
)

// Message opcodes carried by blast messages.
const (
	RequestMsg  uint32 = uint32(requestOpcode)
	ResponseMsg uint32 = uint32(responseOpcode)
)

type terminalFsm int

const (
	termWarming terminalFsm = iota
	termWarmBlabbing
	termLogging
	termLogBlabbing
	termDraining
)

// Terminal is one blast endpoint.
type Terminal struct {
	*workload.TerminalBase

	log *logrus.Logger
	app *Application

	requestInjectionRate     float64
	numTransactions          uint32
	transactionSize          uint32
	maxPacketSize            int
	requestProtocolClass     int
	enableResponses          bool
	responseProtocolClass    int
	requestProcessingLatency uint64

	pattern traffic.Continuous
	sizes   traffic.SizeDistribution

	fsm      terminalFsm
	detector *warmupDetector

	outstandingTransactions map[uint64]uint32
	transactionsToLog       map[uint64]struct{}
	loggableCompleteCount   uint32
	notifiedDone            bool
}

func newTerminal(
	app *Application,
	s *sim.Simulation,
	net *network.Network,
	cfg *config.Config,
	id int,
) (*Terminal, error) {
	b := cfg.Workload.Blast
	address := net.TranslateInterfaceIDToAddress(id)

	rate := b.RequestInjectionRate
	if b.RelativeInjection != nil {
		rel := b.RelativeInjection[id]
		if rel < 0 {
			return nil, fmt.Errorf(
				"blast: negative relative injection for terminal %d", id)
		}
		rate *= rel
	}

	pattern, err := traffic.New(traffic.Context{
		Rand:         s.Rand(),
		NumTerminals: net.NumInterfaces(),
		Self:         id,
		Settings:     b.TrafficPattern,
		Torus:        cfg.Network.Torus,
	})
	if err != nil {
		return nil, err
	}

	sizes, err := traffic.NewSizeDistribution(s.Rand(), b.MessageSize)
	if err != nil {
		return nil, err
	}

	t := &Terminal{
		TerminalBase: workload.NewTerminalBase(
			fmt.Sprintf("BlastTerminal_%d", id), app, s, id, address,
			net.Interface(id)),
		log:                      logrus.StandardLogger(),
		app:                      app,
		requestInjectionRate:     rate,
		numTransactions:          b.NumTransactions,
		transactionSize:          b.TransactionSize,
		maxPacketSize:            b.MaxPacketSize,
		requestProtocolClass:     b.RequestProtocolClass,
		enableResponses:          b.EnableResponses,
		responseProtocolClass:    b.ResponseProtocolClass,
		requestProcessingLatency: b.RequestProcessingLatency,
		pattern:                  pattern,
		sizes:                    sizes,
		detector: newWarmupDetector(
			b.WarmupInterval, b.WarmupWindow, b.WarmupAttempts),
		outstandingTransactions: map[uint64]uint32{},
		transactionsToLog:       map[uint64]struct{}{},
	}

	// Spread the start times so the terminals do not begin in lockstep.
	if rate > 0 {
		maxTrans := uint32(sizes.MaxMessageSize()) * t.transactionSize
		cycles := workload.CyclesToSend(s.Rand(), rate, maxTrans)
		cycles = s.Rand().U64(1, 1+cycles*3)

		clock := s.Clocks().Channel
		start := clock.FutureCycle(0, 1) +
			sim.TimePs(cycles-1)*clock.Period
		s.Engine().Schedule(sim.MakeEvent(
			start, sim.EpsilonApp, t, nil, requestOpcode))
	}

	return t, nil
}

// RequestInjectionRate returns the configured injection rate, scaled by the
// terminal's relative injection factor.
func (t *Terminal) RequestInjectionRate() float64 {
	return t.requestInjectionRate
}

func (t *Terminal) percentComplete() float64 {
	if t.fsm < termLogging || t.requestInjectionRate == 0 {
		return 0
	}
	if t.numTransactions == 0 {
		return 1
	}
	count := t.loggableCompleteCount
	if count > t.numTransactions {
		count = t.numTransactions
	}
	return float64(count) / float64(t.numTransactions)
}

// StopWarming moves the terminal out of the warming phase.
func (t *Terminal) StopWarming() {
	t.fsm = termWarmBlabbing
}

// StartLogging begins tagging new transactions for the message log.
func (t *Terminal) StartLogging() {
	t.detector.clear()

	t.fsm = termLogging
	if t.requestInjectionRate > 0 && t.numTransactions == 0 {
		t.complete()
	}
}

// StopLogging stops tagging new transactions; already tagged ones keep
// logging until they end.
func (t *Terminal) StopLogging() {
	t.fsm = termLogBlabbing
	if t.requestInjectionRate > 0 &&
		(t.numTransactions == 0 || len(t.transactionsToLog) == 0) {
		t.done()
	}
}

// StopSending moves the terminal into the draining phase.
func (t *Terminal) StopSending() {
	t.fsm = termDraining
}

// Handle processes the terminal's self-scheduled events.
func (t *Terminal) Handle(e *sim.Event) error {
	switch e.Opcode {
	case requestOpcode:
		if t.fsm != termDraining {
			t.startTransaction()
		}
	case responseOpcode:
		t.sendResponse(e.Payload.(*messaging.Message))
	default:
		log.Panicf("blast: unknown terminal event opcode 0x%x", e.Opcode)
	}
	return nil
}

// HandleDeliveredMessage runs on the sending terminal when one of its
// messages is fully ejected at the destination.
func (t *Terminal) HandleDeliveredMessage(m *messaging.Message) {
	if t.fsm == termWarming {
		t.warmDetector(m)
	}

	if m.OpCode != RequestMsg {
		return
	}

	lastOfTrans := false
	if !t.enableResponses {
		lastOfTrans = t.completeTracking(m.Transaction)
	}

	if _, tagged := t.transactionsToLog[m.Transaction]; tagged {
		t.app.w.MessageLog().LogMessage(m)
		if !t.enableResponses && lastOfTrans {
			t.completeLoggable(m.Transaction)
		}
	}
}

// HandleReceivedMessage runs on the receiving terminal.
func (t *Terminal) HandleReceivedMessage(m *messaging.Message) {
	if m.OpCode == ResponseMsg {
		if !t.enableResponses {
			log.Panic("blast: response received with responses disabled")
		}

		lastOfTrans := t.completeTracking(m.Transaction)
		if _, tagged := t.transactionsToLog[m.Transaction]; tagged {
			t.app.w.MessageLog().LogMessage(m)
			if lastOfTrans {
				t.completeLoggable(m.Transaction)
			}
		}
	}

	if t.enableResponses && m.OpCode == RequestMsg {
		if t.requestProcessingLatency == 0 {
			t.sendResponse(m)
		} else {
			s := t.Simulation()
			respTime := s.FutureCycle(
				s.Clocks().Channel, t.requestProcessingLatency)
			s.Engine().Schedule(sim.MakeEvent(
				respTime, sim.EpsilonApp, t, m, responseOpcode))
		}
	}
}

// warmDetector feeds the saturation detector with a delivered message.
func (t *Terminal) warmDetector(m *messaging.Message) {
	s := t.Simulation()
	cycle := s.Cycle(s.Clocks().Channel)
	_, _, enrouteFlits := t.EnrouteCount()

	warmed, saturated := t.detector.observe(m.NumFlits(), cycle, enrouteFlits)
	if !warmed && !saturated {
		return
	}

	t.fsm = termWarmBlabbing
	if saturated {
		t.log.WithField("terminal", t.ID()).Debug("saturated")
		t.app.terminalSaturated(t.ID())
	} else {
		t.log.WithField("terminal", t.ID()).Debug("warmed")
		t.app.terminalWarmed(t.ID())
	}
	t.detector.clear()
}

func (t *Terminal) complete() {
	t.app.terminalComplete(t.ID())
}

func (t *Terminal) done() {
	if !t.notifiedDone {
		t.notifiedDone = true
		t.app.terminalDone(t.ID())
	}
}

// completeTracking decrements the outstanding counter of the transaction
// and reports whether this was its last expected message.
func (t *Terminal) completeTracking(transID uint64) bool {
	remaining, ok := t.outstandingTransactions[transID]
	if !ok || remaining == 0 {
		log.Panicf("blast: transaction %d is not outstanding", transID)
	}
	remaining--
	if remaining > 0 {
		t.outstandingTransactions[transID] = remaining
		return false
	}

	delete(t.outstandingTransactions, transID)
	return true
}

// completeLoggable closes the log entry of a finished tagged transaction
// and detects logging completion.
func (t *Terminal) completeLoggable(transID uint64) {
	delete(t.transactionsToLog, transID)

	s := t.Simulation()
	t.app.w.MessageLog().EndTransaction(transID, s.Now())
	t.loggableCompleteCount++

	if t.loggableCompleteCount == t.numTransactions {
		t.complete()
		return
	}

	if t.fsm == termLogBlabbing && len(t.transactionsToLog) == 0 {
		t.done()
	}
}

// startTransaction issues one transaction: transactionSize request messages
// to one destination, then schedules the next transaction to match the
// injection rate.
func (t *Terminal) startTransaction() {
	if t.fsm == termDraining {
		log.Panic("blast: transaction started while draining")
	}
	s := t.Simulation()

	destination := t.pattern.NextDestination()
	messageSize := t.sizes.NextMessageSize()
	transaction := t.CreateTransaction()

	t.outstandingTransactions[transaction] = t.transactionSize

	if t.fsm == termLogging {
		t.transactionsToLog[transaction] = struct{}{}
		t.app.w.MessageLog().StartTransaction(transaction, s.Now())
	}

	for req := uint32(0); req < t.transactionSize; req++ {
		m := messaging.BuildMessage(
			messageSize, t.maxPacketSize,
			t.requestProtocolClass, RequestMsg, transaction)
		t.SendMessage(m, destination)
	}

	transSize := uint32(messageSize) * t.transactionSize
	cycles := workload.CyclesToSend(s.Rand(), t.requestInjectionRate, transSize)
	next := s.FutureCycle(s.Clocks().Channel, cycles)
	if next == s.Now() {
		t.startTransaction()
	} else {
		s.Engine().Schedule(sim.MakeEvent(
			next, sim.EpsilonApp, t, nil, requestOpcode))
	}
}

// sendResponse turns a received request into a response back to its source.
func (t *Terminal) sendResponse(request *messaging.Message) {
	if !t.enableResponses {
		log.Panic("blast: sending a response with responses disabled")
	}

	destination := request.SourceID
	messageSize := t.sizes.NextMessageSize()
	transaction := request.Transaction

	m := messaging.BuildMessage(
		messageSize, t.maxPacketSize,
		t.responseProtocolClass, ResponseMsg, transaction)
	t.SendMessage(m, destination)
}
