// Package store persists trade history and lifecycle events: executed trades
// go to SQLite for queries and to Parquet for the daily journal.
package store

import (
	"context"
	"time"

	"swingbot/internal/events"
)

// TradeRecord is one executed entry or exit.
type TradeRecord struct {
	Ticker        string    `json:"ticker"`
	Kind          string    `json:"kind"` // "entry" or "exit"
	Side          string    `json:"side"`
	Qty           float64   `json:"qty"`
	Price         float64   `json:"price"`
	Strategy      string    `json:"strategy"`
	Reason        string    `json:"reason"`
	ClientOrderID string    `json:"client_order_id"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// TradeStore persists executed trades.
type TradeStore interface {
	// SaveTrade appends one executed trade.
	SaveTrade(ctx context.Context, rec TradeRecord) error

	// ListTrades returns trades executed at or after since, oldest first.
	ListTrades(ctx context.Context, since time.Time) ([]TradeRecord, error)
}

// EventStore persists lifecycle events for later inspection.
type EventStore interface {
	// SaveEvent appends one lifecycle event.
	SaveEvent(ctx context.Context, e events.Event) error

	// ListEvents returns the most recent events, newest first, up to limit.
	ListEvents(ctx context.Context, limit int) ([]events.Event, error)
}
