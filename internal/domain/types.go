// Package domain defines the core types shared across the swingbot trading
// system: signals, positions, orders, and the records exchanged with the
// broker and market-data collaborators.
package domain

import "time"

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// Action is the trade action a signal recommends.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionShort Action = "short"
	ActionCover Action = "cover"
)

// IsShortSide reports whether the action opens or increases short exposure.
func (a Action) IsShortSide() bool {
	return a == ActionSell || a == ActionShort
}

// Side is the direction of a held position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// MarketStatus describes the current trading session.
type MarketStatus string

const (
	MarketOpen       MarketStatus = "open"
	MarketClosed     MarketStatus = "closed"
	MarketPreMarket  MarketStatus = "pre-market"
	MarketAfterHours MarketStatus = "after-hours"
)

// ---------------------------------------------------------------------------
// Broker-side records
// ---------------------------------------------------------------------------

// Asset holds the tradability flags the broker reports for one symbol.
type Asset struct {
	Symbol    string
	Tradable  bool
	Shortable bool
}

// AccountInfo is a snapshot of the account's financial metrics.
type AccountInfo struct {
	Equity      float64
	Cash        float64
	BuyingPower float64
}

// BrokerPosition is a raw position record as reported by the broker.
// Quantity is signed: brokers represent short positions as negative
// quantity rather than via a separate side field.
type BrokerPosition struct {
	Symbol          string
	Qty             float64
	AvgEntryPrice   float64
	CurrentPrice    float64
	UnrealizedPL    float64
	UnrealizedPLPct float64
}

// Order mirrors the broker's view of one submitted order.
type Order struct {
	ID            string     `json:"id"`
	ClientOrderID string     `json:"client_order_id"`
	Symbol        string     `json:"symbol"`
	Side          string     `json:"side"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	Qty           float64    `json:"qty"`
	LimitPrice    *float64   `json:"limit_price,omitempty"`
	StopPrice     *float64   `json:"stop_price,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	FilledAt      *time.Time `json:"filled_at,omitempty"`
}

// OrderParams specifies one bracket order: an entry leg with attached
// stop-loss and take-profit legs, submitted as a single unit.
type OrderParams struct {
	Ticker      string
	Action      Action
	Qty         int
	EntryPrice  float64
	StopLoss    float64
	Target      float64
	Strategy    string
	TimeInForce string
}

// ---------------------------------------------------------------------------
// Signal payloads
// ---------------------------------------------------------------------------

// AgentRecommendation is the opaque strategy payload attached to a pending
// signal. It carries the price levels an upstream analyst pipeline produced.
type AgentRecommendation struct {
	Action     Action  `json:"action"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	Target     float64 `json:"target"`
	Confidence float64 `json:"confidence"`
	RiskReward float64 `json:"risk_reward"`
	Thesis     string  `json:"thesis,omitempty"`
}

// TechnicalSignals is the indicator snapshot the technical-analysis
// collaborator computes for one ticker.
type TechnicalSignals struct {
	Ticker    string
	Price     float64
	SMA20     float64
	SMA50     float64
	RSI14     float64
	ATR14     float64
	Volume    int64
	Timestamp time.Time
}

// Bar is a single OHLCV bar.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}
