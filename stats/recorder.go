package stats

import (
	"database/sql"
	"fmt"
	"os"

	// SQLite driver for the recorder backend.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/fabsim/messaging"
	"github.com/sarchlab/fabsim/sim"
)

// SQLiteMessageLog records messages and transactions into a SQLite
// database, batching inserts and flushing at exit.
type SQLiteMessageLog struct {
	db *sql.DB

	messages     []*messaging.Message
	transactions []transactionRecord
	batchSize    int

	transactionStart map[uint64]sim.TimePs
}

type transactionRecord struct {
	id    uint64
	start sim.TimePs
	end   sim.TimePs
}

// NewSQLiteMessageLog opens the database and creates the tables. An empty
// path picks a fresh generated filename.
func NewSQLiteMessageLog(path string) *SQLiteMessageLog {
	if path == "" {
		path = "fabsim_" + xid.New().String() + ".sqlite3"
	}

	if _, err := os.Stat(path); err == nil {
		panic(fmt.Errorf("stats database %s already exists", path))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		panic(err)
	}

	l := &SQLiteMessageLog{
		db:               db,
		batchSize:        100000,
		transactionStart: map[uint64]sim.TimePs{},
	}
	l.createTables()

	atexit.Register(func() {
		l.Flush()
		_ = l.db.Close()
	})

	return l
}

func (l *SQLiteMessageLog) createTables() {
	mustExec(l.db, `CREATE TABLE messages (
		txn INTEGER, message INTEGER, opcode INTEGER,
		src INTEGER, dst INTEGER,
		packets INTEGER, flits INTEGER,
		enqueue_ps INTEGER, inject_ps INTEGER, deliver_ps INTEGER)`)
	mustExec(l.db, `CREATE TABLE transactions (
		txn INTEGER, start_ps INTEGER, end_ps INTEGER)`)
}

func mustExec(db *sql.DB, stmt string) {
	if _, err := db.Exec(stmt); err != nil {
		panic(err)
	}
}

// StartTransaction implements MessageLog.
func (l *SQLiteMessageLog) StartTransaction(id uint64, now sim.TimePs) {
	l.transactionStart[id] = now
}

// EndTransaction implements MessageLog.
func (l *SQLiteMessageLog) EndTransaction(id uint64, now sim.TimePs) {
	start, ok := l.transactionStart[id]
	if !ok {
		panic(fmt.Sprintf("message log: transaction %d ended twice", id))
	}
	delete(l.transactionStart, id)

	l.transactions = append(l.transactions,
		transactionRecord{id: id, start: start, end: now})
	if len(l.transactions) >= l.batchSize {
		l.Flush()
	}
}

// LogMessage implements MessageLog.
func (l *SQLiteMessageLog) LogMessage(m *messaging.Message) {
	l.messages = append(l.messages, m)
	if len(l.messages) >= l.batchSize {
		l.Flush()
	}
}

// Flush writes the buffered records into the database in one transaction.
func (l *SQLiteMessageLog) Flush() {
	tx, err := l.db.Begin()
	if err != nil {
		panic(err)
	}

	msgStmt, err := tx.Prepare(
		`INSERT INTO messages VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		panic(err)
	}
	for _, m := range l.messages {
		_, err = msgStmt.Exec(
			int64(m.Transaction), m.ID, m.OpCode,
			m.SourceID, m.DestinationID,
			m.NumPackets(), m.NumFlits(),
			int64(m.EnqueueTime), int64(m.InjectTime), int64(m.DeliverTime))
		if err != nil {
			panic(err)
		}
	}

	txnStmt, err := tx.Prepare(`INSERT INTO transactions VALUES (?,?,?)`)
	if err != nil {
		panic(err)
	}
	for _, t := range l.transactions {
		_, err = txnStmt.Exec(int64(t.id), int64(t.start), int64(t.end))
		if err != nil {
			panic(err)
		}
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	l.messages = nil
	l.transactions = nil
}
