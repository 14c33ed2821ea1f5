// Package broker defines the Broker interface the execution core trades
// through and provides Alpaca and in-memory simulator implementations.
package broker

import (
	"context"

	"swingbot/internal/domain"
)

// Broker abstracts the brokerage operations the execution core depends on.
// Implementations convert transport-level failures into plain errors; the
// order manager decides how far a failure propagates.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "simulator").
	Name() string

	// GetAccount returns a snapshot of the account's financial metrics.
	GetAccount(ctx context.Context) (*domain.AccountInfo, error)

	// GetPositions returns all currently held positions.
	GetPositions(ctx context.Context) ([]domain.BrokerPosition, error)

	// GetAsset returns tradability flags for one symbol.
	GetAsset(ctx context.Context, symbol string) (*domain.Asset, error)

	// SubmitBracketOrder submits an entry order with attached stop-loss and
	// take-profit legs as a single unit.
	SubmitBracketOrder(ctx context.Context, params domain.OrderParams, clientOrderID string) (*domain.Order, error)

	// GetOpenOrders returns the open orders for one symbol.
	GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)

	// CancelOrder requests cancellation of an open order. Orders that are
	// already pending cancellation or no longer exist count as success.
	CancelOrder(ctx context.Context, orderID string) error

	// ClosePosition liquidates the full position for symbol.
	ClosePosition(ctx context.Context, symbol string) (*domain.Order, error)

	// MarketStatus returns the current trading session.
	MarketStatus(ctx context.Context) (domain.MarketStatus, error)
}
