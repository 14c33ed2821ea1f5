// Package order handles order submission, position closing, and cancellation
// confirmation against the broker.
//
// The Manager never lets a broker failure escape its public methods: every
// failure becomes a nil return plus a logged reason, so a bad order can never
// abort a trading cycle.
package order

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"swingbot/internal/broker"
	"swingbot/internal/domain"
	"swingbot/internal/events"
)

// DefaultPollInterval is how often cancellation confirmation re-checks the
// broker's open-orders list.
const DefaultPollInterval = 2 * time.Second

// Manager submits bracket orders and closes positions.
type Manager struct {
	broker       broker.Broker
	analyzeMode  bool
	pollInterval time.Duration
	bus          *events.Bus
	pending      map[string]domain.Order // keyed by client order ID
	log          *slog.Logger
}

// NewManager creates a Manager. In analyze mode, submit and close calls only
// log intent and never contact the broker.
func NewManager(b broker.Broker, analyzeMode bool, bus *events.Bus) *Manager {
	return &Manager{
		broker:       b,
		analyzeMode:  analyzeMode,
		pollInterval: DefaultPollInterval,
		bus:          bus,
		pending:      make(map[string]domain.Order),
		log:          slog.Default().With("component", "orders"),
	}
}

// SetPollInterval overrides the cancellation poll interval. Used by tests.
func (m *Manager) SetPollInterval(d time.Duration) { m.pollInterval = d }

// AnalyzeMode reports whether the manager only logs intent.
func (m *Manager) AnalyzeMode() bool { return m.analyzeMode }

// ValidateAsset checks broker-reported tradability and, for short-side
// actions, shortability. Any API failure is treated as invalid (fail closed).
func (m *Manager) ValidateAsset(ctx context.Context, ticker string, action domain.Action) (bool, string) {
	asset, err := m.broker.GetAsset(ctx, ticker)
	if err != nil {
		m.log.Warn("asset validation failed", "ticker", ticker, "err", err)
		return false, "asset lookup failed"
	}
	if !asset.Tradable {
		return false, "asset not tradable"
	}
	if action.IsShortSide() && !asset.Shortable {
		return false, "asset not shortable"
	}
	return true, ""
}

// SubmitBracket validates the asset, rounds prices to the venue's tick
// conventions, and submits a single combined entry+stop+target order. A
// failed submission returns nil; the cycle continues.
func (m *Manager) SubmitBracket(ctx context.Context, params domain.OrderParams) *domain.Order {
	if m.analyzeMode {
		m.log.Info("analyze mode: would submit bracket order",
			"ticker", params.Ticker,
			"action", params.Action,
			"qty", params.Qty,
			"entry", params.EntryPrice,
			"stop", params.StopLoss,
			"target", params.Target,
		)
		return nil
	}

	if ok, reason := m.ValidateAsset(ctx, params.Ticker, params.Action); !ok {
		m.log.Warn("order rejected before submission", "ticker", params.Ticker, "reason", reason)
		return nil
	}

	params.EntryPrice = RoundPrice(params.EntryPrice)
	params.StopLoss = RoundPrice(params.StopLoss)
	params.Target = RoundPrice(params.Target)

	clientID := clientOrderID(params.Strategy, params.Ticker, params.Action)
	order, err := m.broker.SubmitBracketOrder(ctx, params, clientID)
	if err != nil {
		m.log.Error("bracket submission failed", "ticker", params.Ticker, "err", err)
		return nil
	}

	m.pending[order.ClientOrderID] = *order
	m.log.Info("bracket order submitted",
		"ticker", params.Ticker,
		"qty", params.Qty,
		"entry", params.EntryPrice,
		"client_order_id", order.ClientOrderID,
	)
	if m.bus != nil {
		m.bus.Publish(events.New(events.OrderSubmitted, params.Ticker, map[string]any{
			"client_order_id": order.ClientOrderID,
			"qty":             params.Qty,
			"entry":           params.EntryPrice,
		}))
	}
	return order
}

// ClosePosition liquidates ticker. When cancelOrders is set, open orders for
// the ticker are canceled and confirmed gone first, so a stale bracket leg
// cannot fill concurrently with the close and double-exit the position. If
// confirmation times out, the close proceeds anyway and the risk is logged.
func (m *Manager) ClosePosition(ctx context.Context, ticker string, cancelOrders bool, timeout time.Duration) *domain.Order {
	if m.analyzeMode {
		m.log.Info("analyze mode: would close position", "ticker", ticker)
		return nil
	}

	if cancelOrders {
		if !m.cancelOrdersForTicker(ctx, ticker, timeout) {
			m.log.Error("orders still open after cancellation window, closing anyway", "ticker", ticker)
		}
	}

	order, err := m.broker.ClosePosition(ctx, ticker)
	if err != nil {
		m.log.Error("close failed", "ticker", ticker, "err", err)
		return nil
	}

	m.log.Info("position closed", "ticker", ticker, "order_id", order.ID)
	if m.bus != nil {
		m.bus.Publish(events.New(events.PositionClosed, ticker, map[string]any{
			"order_id": order.ID,
		}))
	}
	return order
}

// cancelOrdersForTicker cancels every open order for ticker and polls until
// the broker reports none remain or the timeout elapses. Returns whether the
// open-orders list was observed empty.
func (m *Manager) cancelOrdersForTicker(ctx context.Context, ticker string, timeout time.Duration) bool {
	open, err := m.broker.GetOpenOrders(ctx, ticker)
	if err != nil {
		m.log.Warn("listing open orders failed", "ticker", ticker, "err", err)
		return false
	}
	if len(open) == 0 {
		return true
	}

	for _, o := range open {
		// "Already pending cancel" and "not found" are handled as success by
		// the broker adapter; anything else is logged and the poll decides.
		if err := m.broker.CancelOrder(ctx, o.ID); err != nil {
			m.log.Warn("cancel request failed", "ticker", ticker, "order_id", o.ID, "err", err)
		}
		delete(m.pending, o.ClientOrderID)
	}

	deadline := time.Now().Add(timeout)
	for {
		open, err = m.broker.GetOpenOrders(ctx, ticker)
		if err != nil {
			m.log.Warn("confirmation poll failed", "ticker", ticker, "err", err)
		} else if len(open) == 0 {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.pollInterval):
		}
	}
}

// Pending returns the orders submitted this session that have not been
// canceled. The slice is unordered.
func (m *Manager) Pending() []domain.Order {
	out := make([]domain.Order, 0, len(m.pending))
	for _, o := range m.pending {
		out = append(out, o)
	}
	return out
}

// Restore replaces the pending-order map from a persisted snapshot.
func (m *Manager) Restore(orders []domain.Order) {
	m.pending = make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		if o.ClientOrderID != "" {
			m.pending[o.ClientOrderID] = o
		}
	}
}

// RoundPrice rounds to 2 decimals at or above $1 and 4 decimals below,
// matching equity tick-size conventions for sub-dollar instruments.
func RoundPrice(p float64) float64 {
	if p >= 1 {
		return math.Round(p*100) / 100
	}
	return math.Round(p*10_000) / 10_000
}

// clientOrderID builds a unique, idempotent identifier for one submission
// attempt: {strategy}_{ticker}_{side}_{random}.
func clientOrderID(strategy, ticker string, action domain.Action) string {
	side := "buy"
	if action.IsShortSide() {
		side = "sell"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strategy + "_" + ticker + "_" + side + "_" + suffix
}
