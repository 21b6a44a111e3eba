package cxlmemctrl

import (
	"database/sql"
	"log"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// StatsBackend selects where a controller's stats snapshots, one per
// completed drain, get persisted, following the pluggable-backend shape tracing.SQLiteTraceWriter
// demonstrates for task traces.
type StatsBackend int

const (
	// StatsBackendNone disables stats persistence entirely.
	StatsBackendNone StatsBackend = iota
	// StatsBackendSQLite persists snapshots to a local sqlite3 file.
	StatsBackendSQLite
	// StatsBackendMySQL persists snapshots to a MySQL database.
	StatsBackendMySQL
)

const statsBatchSize = 100

// statsRow is one persisted snapshot of a controller's running counters.
type statsRow struct {
	id              string
	time            float64
	totalReads      int64
	totalWrites     int64
	avgLatency      float64
	avgReadLatency  float64
	avgWriteLatency float64
	compressions    int64
}

// statsSink batches and flushes stats snapshots to the configured
// backend, grounded on tracing.SQLiteTraceWriter's batched-insert and
// atexit-flush pattern.
type statsSink struct {
	backend   StatsBackend
	db        *sql.DB
	statement *sql.Stmt
	pending   []statsRow
	batchSize int
}

// newStatsSink opens the configured backend and prepares it to accept
// snapshots. dsn is a sqlite file path or a MySQL DSN depending on
// backend; it is ignored for StatsBackendNone.
func newStatsSink(backend StatsBackend, dsn string) *statsSink {
	s := &statsSink{backend: backend, batchSize: statsBatchSize}

	if backend == StatsBackendNone {
		return s
	}

	driver, path := "sqlite3", dsn
	if backend == StatsBackendMySQL {
		driver = "mysql"
	}
	if backend == StatsBackendSQLite && path == "" {
		path = xid.New().String() + "_stats.sqlite3"
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		log.Panicf("cxlmemctrl: cannot open stats backend: %v", err)
	}
	s.db = db

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS stats_snapshots (
		id TEXT PRIMARY KEY,
		time REAL,
		total_reads INTEGER,
		total_writes INTEGER,
		avg_latency REAL,
		avg_read_latency REAL,
		avg_write_latency REAL,
		compressions INTEGER
	)`)
	if err != nil {
		log.Panicf("cxlmemctrl: cannot create stats table: %v", err)
	}

	stmt, err := db.Prepare(`INSERT INTO stats_snapshots
		(id, time, total_reads, total_writes, avg_latency,
		 avg_read_latency, avg_write_latency, compressions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Panicf("cxlmemctrl: cannot prepare stats insert: %v", err)
	}
	s.statement = stmt

	atexit.Register(func() { s.Flush() })

	return s
}

// record queues one snapshot for persistence, flushing automatically
// once batchSize rows have accumulated.
func (s *statsSink) record(now float64, stats *Stats) {
	if s.backend == StatsBackendNone {
		return
	}

	s.pending = append(s.pending, statsRow{
		id:              xid.New().String(),
		time:            now,
		totalReads:      stats.TotalReadPackets,
		totalWrites:     stats.TotalWritePackets,
		avgLatency:      stats.AvgLatency,
		avgReadLatency:  stats.AvgReadLatency,
		avgWriteLatency: stats.AvgWriteLatency,
		compressions:    stats.TotalCompressionTimes,
	})

	if len(s.pending) >= s.batchSize {
		s.Flush()
	}
}

// Flush writes any queued snapshots out to the backend.
func (s *statsSink) Flush() {
	if s.backend == StatsBackendNone || len(s.pending) == 0 {
		return
	}

	for _, row := range s.pending {
		_, err := s.statement.Exec(
			row.id, row.time, row.totalReads, row.totalWrites,
			row.avgLatency, row.avgReadLatency, row.avgWriteLatency,
			row.compressions)
		if err != nil {
			log.Printf("cxlmemctrl: stats insert failed: %v", err)
		}
	}

	s.pending = s.pending[:0]
}

func (s *statsSink) close() error {
	s.Flush()
	if s.statement != nil {
		s.statement.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
