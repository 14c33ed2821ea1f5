// Package position maintains the engine's in-memory mirror of broker
// positions, refreshed wholesale by explicit sync.
package position

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"swingbot/internal/broker"
	"swingbot/internal/domain"
)

// Position is the engine's view of one broker-held position. Quantity is
// signed; negative means short.
type Position struct {
	Ticker          string      `json:"ticker"`
	Qty             float64     `json:"qty"`
	EntryPrice      float64     `json:"entry_price"`
	CurrentPrice    float64     `json:"current_price"`
	UnrealizedPL    float64     `json:"unrealized_pl"`
	UnrealizedPLPct float64     `json:"unrealized_pl_pct"`
	Side            domain.Side `json:"side"`
	EntryTime       time.Time   `json:"entry_time"`
}

// FromBroker converts a raw broker record into a Position. Side is inferred
// from the sign of quantity rather than trusting a separate field, since
// brokers report shorts as negative quantity.
func FromBroker(bp domain.BrokerPosition) Position {
	side := domain.SideLong
	if bp.Qty < 0 {
		side = domain.SideShort
	}
	return Position{
		Ticker:          bp.Symbol,
		Qty:             bp.Qty,
		EntryPrice:      bp.AvgEntryPrice,
		CurrentPrice:    bp.CurrentPrice,
		UnrealizedPL:    bp.UnrealizedPL,
		UnrealizedPLPct: bp.UnrealizedPLPct,
		Side:            side,
	}
}

// Tracker is the ticker-keyed position store. Between syncs it may be stale
// but always holds one entry per ticker; a sync replaces it entirely.
type Tracker struct {
	positions map[string]Position
	now       func() time.Time
	log       *slog.Logger
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		positions: make(map[string]Position),
		now:       time.Now,
		log:       slog.Default().With("component", "positions"),
	}
}

// SetNow overrides the tracker's clock. Used by tests.
func (t *Tracker) SetNow(now func() time.Time) { t.now = now }

// SyncFromBroker fetches the full position list from the broker and replaces
// the internal map. Entry times already known for surviving tickers are
// preserved across the sync; a ticker seen for the first time is stamped with
// the sync time, since broker position records carry no entry timestamp.
func (t *Tracker) SyncFromBroker(ctx context.Context, b broker.Broker) error {
	brokerPositions, err := b.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("syncing positions: %w", err)
	}

	fresh := make(map[string]Position, len(brokerPositions))
	for _, bp := range brokerPositions {
		p := FromBroker(bp)
		if prev, ok := t.positions[p.Ticker]; ok && !prev.EntryTime.IsZero() {
			p.EntryTime = prev.EntryTime
		} else {
			p.EntryTime = t.now()
		}
		fresh[p.Ticker] = p
	}
	t.positions = fresh

	t.log.Debug("positions synced", "count", len(fresh))
	return nil
}

// Add inserts or replaces the position for its ticker.
func (t *Tracker) Add(p Position) {
	t.positions[p.Ticker] = p
}

// Remove deletes the position for ticker.
func (t *Tracker) Remove(ticker string) bool {
	if _, ok := t.positions[ticker]; !ok {
		return false
	}
	delete(t.positions, ticker)
	return true
}

// Get returns the position for ticker, if held.
func (t *Tracker) Get(ticker string) (Position, bool) {
	p, ok := t.positions[ticker]
	return p, ok
}

// Has reports whether ticker is held.
func (t *Tracker) Has(ticker string) bool {
	_, ok := t.positions[ticker]
	return ok
}

// Count returns the number of held positions.
func (t *Tracker) Count() int {
	return len(t.positions)
}

// All returns the positions sorted by ticker.
func (t *Tracker) All() []Position {
	out := make([]Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Clear removes every tracked position.
func (t *Tracker) Clear() {
	t.positions = make(map[string]Position)
}

// UpdatePnL mutates a position's unrealized P&L in place between syncs, for
// when fresher data is available without forcing a full resync.
func (t *Tracker) UpdatePnL(ticker string, unrealizedPL, unrealizedPLPct float64) bool {
	p, ok := t.positions[ticker]
	if !ok {
		return false
	}
	p.UnrealizedPL = unrealizedPL
	p.UnrealizedPLPct = unrealizedPLPct
	t.positions[ticker] = p
	return true
}

// Restore replaces the tracker's contents from a persisted snapshot.
func (t *Tracker) Restore(positions []Position) {
	t.positions = make(map[string]Position, len(positions))
	for _, p := range positions {
		t.positions[p.Ticker] = p
	}
}
