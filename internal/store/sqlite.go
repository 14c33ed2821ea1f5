package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"swingbot/internal/events"
)

// Compile-time interface checks.
var _ TradeStore = (*SQLiteStore)(nil)
var _ EventStore = (*SQLiteStore)(nil)

// SQLiteStore implements TradeStore and EventStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker          TEXT NOT NULL,
	kind            TEXT NOT NULL,
	side            TEXT NOT NULL,
	qty             REAL NOT NULL,
	price           REAL NOT NULL,
	strategy        TEXT NOT NULL,
	reason          TEXT NOT NULL DEFAULT '',
	client_order_id TEXT NOT NULL DEFAULT '',
	executed_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades(executed_at);

CREATE TABLE IF NOT EXISTS lifecycle_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	type      TEXT NOT NULL,
	ticker    TEXT NOT NULL DEFAULT '',
	fields    TEXT NOT NULL DEFAULT '{}',
	occurred  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_occurred ON lifecycle_events(occurred);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTrade appends one executed trade.
func (s *SQLiteStore) SaveTrade(ctx context.Context, rec TradeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (ticker, kind, side, qty, price, strategy, reason, client_order_id, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Ticker, rec.Kind, rec.Side, rec.Qty, rec.Price, rec.Strategy, rec.Reason,
		rec.ClientOrderID, rec.ExecutedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting trade for %s: %w", rec.Ticker, err)
	}
	return nil
}

// ListTrades returns trades executed at or after since, oldest first.
func (s *SQLiteStore) ListTrades(ctx context.Context, since time.Time) ([]TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker, kind, side, qty, price, strategy, reason, client_order_id, executed_at
		 FROM trades WHERE executed_at >= ? ORDER BY executed_at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(&rec.Ticker, &rec.Kind, &rec.Side, &rec.Qty, &rec.Price,
			&rec.Strategy, &rec.Reason, &rec.ClientOrderID, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scanning trade row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveEvent appends one lifecycle event. Event fields are stored as JSON.
func (s *SQLiteStore) SaveEvent(ctx context.Context, e events.Event) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("marshaling event fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lifecycle_events (type, ticker, fields, occurred) VALUES (?, ?, ?, ?)`,
		string(e.Type), e.Ticker, string(fields), e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting event %s: %w", e.Type, err)
	}
	return nil
}

// ListEvents returns the most recent events, newest first, up to limit.
func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, ticker, fields, occurred FROM lifecycle_events
		 ORDER BY occurred DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e      events.Event
			typ    string
			fields string
		)
		if err := rows.Scan(&typ, &e.Ticker, &fields, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e.Type = events.Type(typ)
		if fields != "" && fields != "{}" {
			if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
				return nil, fmt.Errorf("unmarshaling event fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
