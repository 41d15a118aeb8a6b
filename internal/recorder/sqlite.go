package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ETFSentinel/internal/model"
)

// SQLiteRecorder persists analysis and notification history to a
// SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS low_snapshots (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			price          REAL,
			change_1d      REAL,
			volume         REAL,
			period_days    INTEGER,
			low_price      REAL,
			low_date       TEXT,
			days_since_low INTEGER,
			at_low         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_low_ts ON low_snapshots(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_low_symbol ON low_snapshots(symbol)`,

		`CREATE TABLE IF NOT EXISTS change_alerts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			previous   REAL,
			current    REAL,
			change_pct REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_change_ts ON change_alerts(timestamp)`,

		`CREATE TABLE IF NOT EXISTS deliveries (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			kind       TEXT NOT NULL,
			recipients INTEGER,
			failed     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_ts ON deliveries(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordAnalysis writes one row per present period; a symbol with no
// analysis writes a single marker row with no period fields.
func (r *SQLiteRecorder) RecordAnalysis(rep *model.SymbolReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	if rep.Analysis == nil {
		_, err := r.db.Exec(`INSERT INTO low_snapshots (timestamp, symbol) VALUES (?,?)`,
			now, rep.Symbol)
		return err
	}

	a := rep.Analysis
	for days, p := range a.Periods {
		if p == nil {
			continue
		}
		if _, err := r.db.Exec(`INSERT INTO low_snapshots
			(timestamp, symbol, price, change_1d, volume, period_days, low_price, low_date, days_since_low, at_low)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			now, rep.Symbol, a.Current, a.Change1D, a.Volume,
			days, p.LowPrice, p.LowDate.Format("2006-01-02"), p.DaysSinceLow, boolToInt(p.AtLow),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordChange(rec *model.ChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO change_alerts
		(timestamp, symbol, previous, current, change_pct)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), rec.Symbol, rec.Previous, rec.Current, rec.ChangePct,
	)
	return err
}

func (r *SQLiteRecorder) RecordDelivery(d *Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO deliveries
		(timestamp, kind, recipients, failed)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), d.Kind, d.Recipients, d.Failed,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
