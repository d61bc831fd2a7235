// Package sqlite provides the decision journal and the candle cache used by
// backtests. Single-writer WAL database, same file for both tables.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"crypto-alert-bot/internal/decision"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns the SQLite database. Safe for concurrent use; the connection
// pool is capped at one writer.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database with WAL mode and the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT    NOT NULL,
			timeframe   TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			verdict     TEXT    NOT NULL,
			score       INTEGER NOT NULL,
			regime      TEXT    NOT NULL,
			high_volume INTEGER NOT NULL,
			reasons     TEXT    NOT NULL,
			notified    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_pair_ts
			ON decisions (symbol, timeframe, ts);

		CREATE TABLE IF NOT EXISTS candles (
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			open_time INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    REAL    NOT NULL,
			PRIMARY KEY (symbol, timeframe, open_time)
		);
	`)
	return err
}

// SaveDecision appends one decision to the journal.
func (s *Store) SaveDecision(d decision.Decision, notified bool) error {
	reasons, err := json.Marshal(d.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO decisions (symbol, timeframe, ts, verdict, score, regime, high_volume, reasons, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.Symbol, d.Timeframe, d.Timestamp.Unix(), string(d.Verdict), d.Score,
		string(d.Regime), boolInt(d.HighVolume), string(reasons), boolInt(notified))
	if err != nil {
		return fmt.Errorf("sqlite insert decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the newest decisions for a pair, newest first.
func (s *Store) RecentDecisions(symbol, timeframe string, limit int) ([]decision.Decision, error) {
	rows, err := s.db.Query(`
		SELECT symbol, timeframe, ts, verdict, score, regime, high_volume, reasons
		FROM decisions
		WHERE symbol = ? AND timeframe = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query decisions: %w", err)
	}
	defer rows.Close()

	var out []decision.Decision
	for rows.Next() {
		var d decision.Decision
		var ts int64
		var highVolume int
		var reasons string
		if err := rows.Scan(&d.Symbol, &d.Timeframe, &ts, &d.Verdict, &d.Score, &d.Regime, &highVolume, &reasons); err != nil {
			return nil, fmt.Errorf("sqlite scan decision: %w", err)
		}
		d.Timestamp = unixUTC(ts)
		d.HighVolume = highVolume != 0
		if err := json.Unmarshal([]byte(reasons), &d.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal reasons: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
