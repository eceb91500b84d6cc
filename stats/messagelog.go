// Package stats implements the statistics sinks: the per-channel log, the
// per-hop traffic log, and the per-message/per-transaction log. All sinks
// are append-only and are flushed at process exit.
package stats

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/sim"
)

// A MessageLog records messages and transactions observed during the
// monitoring window.
type MessageLog interface {
	StartTransaction(id uint64, now sim.TimePs)
	EndTransaction(id uint64, now sim.TimePs)
	LogMessage(m *messaging.Message)
}

// NullMessageLog drops everything. Used when no message log is configured.
type NullMessageLog struct{}

// StartTransaction implements MessageLog.
func (NullMessageLog) StartTransaction(uint64, sim.TimePs) {}

// EndTransaction implements MessageLog.
func (NullMessageLog) EndTransaction(uint64, sim.TimePs) {}

// LogMessage implements MessageLog.
func (NullMessageLog) LogMessage(*messaging.Message) {}

// CSVMessageLog writes one line per message and one line per completed
// transaction into a single CSV file, distinguished by a record-type
// column.
type CSVMessageLog struct {
	file *os.File

	lines      []string
	bufferSize int

	transactionStart map[uint64]sim.TimePs
}

// NewCSVMessageLog creates the log file. An existing file is overwritten.
func NewCSVMessageLog(path string) *CSVMessageLog {
	file, err := os.Create(path)
	if err != nil {
		panic(err)
	}

	l := &CSVMessageLog{
		file:             file,
		bufferSize:       1000,
		transactionStart: map[uint64]sim.TimePs{},
	}

	fmt.Fprintf(file, "record,transaction,message,opcode,src,dst,"+
		"packets,flits,enqueue_ps,inject_ps,deliver_ps,"+
		"queue_latency_ps,network_latency_ps,total_latency_ps\n")

	atexit.Register(func() {
		l.Flush()
		_ = l.file.Close()
	})

	return l
}

// StartTransaction implements MessageLog.
func (l *CSVMessageLog) StartTransaction(id uint64, now sim.TimePs) {
	l.transactionStart[id] = now
}

// EndTransaction implements MessageLog.
func (l *CSVMessageLog) EndTransaction(id uint64, now sim.TimePs) {
	start, ok := l.transactionStart[id]
	if !ok {
		panic(fmt.Sprintf("message log: transaction %d ended twice", id))
	}
	delete(l.transactionStart, id)

	l.append(fmt.Sprintf("T,%d,,,,,,,%d,,%d,,,%d",
		id, start, now, now-start))
}

// LogMessage implements MessageLog.
func (l *CSVMessageLog) LogMessage(m *messaging.Message) {
	l.append(fmt.Sprintf("M,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d",
		m.Transaction, m.ID, m.OpCode, m.SourceID, m.DestinationID,
		m.NumPackets(), m.NumFlits(),
		m.EnqueueTime, m.InjectTime, m.DeliverTime,
		m.InjectTime-m.EnqueueTime,
		m.DeliverTime-m.InjectTime,
		m.DeliverTime-m.EnqueueTime))
}

func (l *CSVMessageLog) append(line string) {
	l.lines = append(l.lines, line)
	if len(l.lines) >= l.bufferSize {
		l.Flush()
	}
}

// Flush writes the buffered lines to the file.
func (l *CSVMessageLog) Flush() {
	for _, line := range l.lines {
		fmt.Fprintln(l.file, line)
	}
	l.lines = nil
}
