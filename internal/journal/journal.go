// Package journal persists executed trades to SQLite for audit and analysis.
//
// The journal is write-only from the engine's point of view: it is never read
// back into a ledger, so process restarts still start from a fresh portfolio.
package journal

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hedgefund-systemv1/internal/portfolio"
)

// Journal is an append-only SQLite trade log.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the journal database.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		ticker      TEXT NOT NULL,
		quantity    INTEGER NOT NULL,
		price       TEXT NOT NULL,
		value       TEXT NOT NULL,
		executed_at DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker);
	CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades(executed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// DB returns the underlying database handle for health checks.
func (j *Journal) DB() *sql.DB {
	if j == nil {
		return nil
	}
	return j.db
}

// RecordTrade persists one executed trade. Prices and notionals are stored
// as their exact decimal text, never as binary floats.
func (j *Journal) RecordTrade(runID string, trade portfolio.Trade) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (run_id, ticker, quantity, price, value, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		trade.Ticker,
		trade.Quantity,
		trade.Price.String(),
		trade.Value.String(),
		trade.Timestamp.Format(time.RFC3339),
	)
	return err
}

// Record is one row from the trades table.
type Record struct {
	ID         int64  `json:"id"`
	RunID      string `json:"run_id"`
	Ticker     string `json:"ticker"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
	Value      string `json:"value"`
	ExecutedAt string `json:"executed_at"`
}

// GetTrades returns the last N journaled trades, newest first.
func (j *Journal) GetTrades(limit int) ([]Record, error) {
	if j == nil {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, run_id, ticker, quantity, price, value, executed_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []Record
	for rows.Next() {
		var t Record
		if err := rows.Scan(&t.ID, &t.RunID, &t.Ticker, &t.Quantity, &t.Price, &t.Value, &t.ExecutedAt); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
