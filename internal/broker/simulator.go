package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swingbot/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

// SimulatorBroker implements the Broker interface in memory for paper runs
// and tests. It records every call in order so tests can assert sequencing
// (exits before entries, cancel before close).
type SimulatorBroker struct {
	mu sync.Mutex

	Account    domain.AccountInfo
	Positions  map[string]domain.BrokerPosition
	Assets     map[string]domain.Asset
	openOrders map[string][]domain.Order
	Status     domain.MarketStatus

	// CancelLag is how many GetOpenOrders polls a cancellation takes to
	// clear. Zero clears on the first poll after CancelOrder.
	CancelLag      int
	pendingCancels map[string]int // order ID -> polls remaining

	// Failure injection.
	FailSubmit bool
	FailClose  bool
	FailAsset  bool

	calls  []string
	nextID int
}

// NewSimulatorBroker creates a SimulatorBroker with a funded paper account
// and an open market.
func NewSimulatorBroker() *SimulatorBroker {
	return &SimulatorBroker{
		Account:        domain.AccountInfo{Equity: 100_000, Cash: 100_000, BuyingPower: 200_000},
		Positions:      make(map[string]domain.BrokerPosition),
		Assets:         make(map[string]domain.Asset),
		openOrders:     make(map[string][]domain.Order),
		pendingCancels: make(map[string]int),
		Status:         domain.MarketOpen,
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string { return "simulator" }

// Calls returns the ordered log of broker calls made so far.
func (b *SimulatorBroker) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

// AddOpenOrder seeds an open order for symbol.
func (b *SimulatorBroker) AddOpenOrder(symbol string, order domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if order.ID == "" {
		b.nextID++
		order.ID = fmt.Sprintf("sim-%d", b.nextID)
	}
	order.Symbol = symbol
	b.openOrders[symbol] = append(b.openOrders[symbol], order)
}

func (b *SimulatorBroker) record(call string) {
	b.calls = append(b.calls, call)
}

// GetAccount returns the simulated account snapshot.
func (b *SimulatorBroker) GetAccount(_ context.Context) (*domain.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("GetAccount")
	acct := b.Account
	return &acct, nil
}

// GetPositions returns the simulated positions.
func (b *SimulatorBroker) GetPositions(_ context.Context) ([]domain.BrokerPosition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("GetPositions")
	out := make([]domain.BrokerPosition, 0, len(b.Positions))
	for _, p := range b.Positions {
		out = append(out, p)
	}
	return out, nil
}

// GetAsset returns the seeded asset for symbol, defaulting to a tradable,
// shortable equity when none was seeded.
func (b *SimulatorBroker) GetAsset(_ context.Context, symbol string) (*domain.Asset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("GetAsset:" + symbol)
	if b.FailAsset {
		return nil, fmt.Errorf("simulated asset lookup failure for %s", symbol)
	}
	if a, ok := b.Assets[symbol]; ok {
		return &a, nil
	}
	return &domain.Asset{Symbol: symbol, Tradable: true, Shortable: true}, nil
}

// SubmitBracketOrder records the order and leaves it open.
func (b *SimulatorBroker) SubmitBracketOrder(_ context.Context, params domain.OrderParams, clientOrderID string) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("SubmitBracketOrder:" + params.Ticker)
	if b.FailSubmit {
		return nil, fmt.Errorf("simulated submission failure for %s", params.Ticker)
	}

	b.nextID++
	side := "buy"
	if params.Action.IsShortSide() {
		side = "sell"
	}
	limit := params.EntryPrice
	order := domain.Order{
		ID:            fmt.Sprintf("sim-%d", b.nextID),
		ClientOrderID: clientOrderID,
		Symbol:        params.Ticker,
		Side:          side,
		Type:          "limit",
		Status:        "new",
		Qty:           float64(params.Qty),
		LimitPrice:    &limit,
		SubmittedAt:   time.Now().UTC(),
	}
	b.openOrders[params.Ticker] = append(b.openOrders[params.Ticker], order)
	return &order, nil
}

// GetOpenOrders returns open orders for symbol, clearing any cancellations
// whose lag has elapsed.
func (b *SimulatorBroker) GetOpenOrders(_ context.Context, symbol string) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("GetOpenOrders:" + symbol)

	var kept []domain.Order
	for _, o := range b.openOrders[symbol] {
		remaining, canceling := b.pendingCancels[o.ID]
		if !canceling {
			kept = append(kept, o)
			continue
		}
		if remaining > 0 {
			b.pendingCancels[o.ID] = remaining - 1
			kept = append(kept, o)
			continue
		}
		delete(b.pendingCancels, o.ID)
	}
	b.openOrders[symbol] = kept

	out := make([]domain.Order, len(kept))
	copy(out, kept)
	return out, nil
}

// CancelOrder marks the order as canceling; it clears after CancelLag polls.
func (b *SimulatorBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("CancelOrder:" + orderID)
	b.pendingCancels[orderID] = b.CancelLag
	return nil
}

// ClosePosition removes the simulated position and returns a market order.
func (b *SimulatorBroker) ClosePosition(_ context.Context, symbol string) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("ClosePosition:" + symbol)
	if b.FailClose {
		return nil, fmt.Errorf("simulated close failure for %s", symbol)
	}

	pos, ok := b.Positions[symbol]
	if !ok {
		return nil, fmt.Errorf("no position for %s", symbol)
	}
	delete(b.Positions, symbol)

	side := "sell"
	qty := pos.Qty
	if qty < 0 {
		side = "buy"
		qty = -qty
	}
	b.nextID++
	return &domain.Order{
		ID:          fmt.Sprintf("sim-%d", b.nextID),
		Symbol:      symbol,
		Side:        side,
		Type:        "market",
		Status:      "filled",
		Qty:         qty,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// MarketStatus returns the configured session status.
func (b *SimulatorBroker) MarketStatus(_ context.Context) (domain.MarketStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("MarketStatus")
	return b.Status, nil
}
