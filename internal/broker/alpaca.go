package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"swingbot/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker implements the Broker interface against the Alpaca trading
// API. The underlying SDK client is request/response; ctx is honored as a
// pre-flight check since the SDK does not thread contexts through.
type AlpacaBroker struct {
	client *alpaca.Client
}

// NewAlpacaBroker creates an AlpacaBroker for the given credentials and API
// endpoint (paper or live).
func NewAlpacaBroker(apiKey, apiSecret, baseURL string) *AlpacaBroker {
	return &AlpacaBroker{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string { return "alpaca" }

// GetAccount returns the current account equity and buying power.
func (b *AlpacaBroker) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acct, err := b.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return &domain.AccountInfo{
		Equity:      acct.Equity.InexactFloat64(),
		Cash:        acct.Cash.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
	}, nil
}

// GetPositions returns all positions held at Alpaca. Short positions arrive
// with negative quantity.
func (b *AlpacaBroker) GetPositions(ctx context.Context) ([]domain.BrokerPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	positions, err := b.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("GetPositions: %w", err)
	}

	out := make([]domain.BrokerPosition, 0, len(positions))
	for _, p := range positions {
		bp := domain.BrokerPosition{
			Symbol:        p.Symbol,
			Qty:           p.Qty.InexactFloat64(),
			AvgEntryPrice: p.AvgEntryPrice.InexactFloat64(),
		}
		if p.CurrentPrice != nil {
			bp.CurrentPrice = p.CurrentPrice.InexactFloat64()
		}
		if p.UnrealizedPL != nil {
			bp.UnrealizedPL = p.UnrealizedPL.InexactFloat64()
		}
		if p.UnrealizedPLPC != nil {
			bp.UnrealizedPLPct = p.UnrealizedPLPC.InexactFloat64() * 100
		}
		out = append(out, bp)
	}
	return out, nil
}

// GetAsset returns tradability flags for one symbol.
func (b *AlpacaBroker) GetAsset(ctx context.Context, symbol string) (*domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	asset, err := b.client.GetAsset(symbol)
	if err != nil {
		return nil, fmt.Errorf("GetAsset %s: %w", symbol, err)
	}
	return &domain.Asset{
		Symbol:    symbol,
		Tradable:  asset.Tradable,
		Shortable: asset.Shortable,
	}, nil
}

// SubmitBracketOrder places a limit entry with attached stop-loss and
// take-profit legs.
func (b *AlpacaBroker) SubmitBracketOrder(ctx context.Context, params domain.OrderParams, clientOrderID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	side := alpaca.Buy
	if params.Action.IsShortSide() {
		side = alpaca.Sell
	}

	tif := alpaca.TimeInForce(params.TimeInForce)
	if tif == "" {
		tif = alpaca.GTC
	}

	qty := decimal.NewFromInt(int64(params.Qty))
	limit := decimal.NewFromFloat(params.EntryPrice)
	stop := decimal.NewFromFloat(params.StopLoss)
	target := decimal.NewFromFloat(params.Target)

	order, err := b.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        params.Ticker,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Limit,
		TimeInForce:   tif,
		LimitPrice:    &limit,
		ClientOrderID: clientOrderID,
		OrderClass:    alpaca.Bracket,
		TakeProfit:    &alpaca.TakeProfit{LimitPrice: &target},
		StopLoss:      &alpaca.StopLoss{StopPrice: &stop},
	})
	if err != nil {
		return nil, fmt.Errorf("PlaceOrder %s: %w", params.Ticker, err)
	}
	return fromAlpacaOrder(order), nil
}

// GetOpenOrders returns the open orders for one symbol.
func (b *AlpacaBroker) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orders, err := b.client.GetOrders(alpaca.GetOrdersRequest{
		Status:  "open",
		Symbols: []string{symbol},
		Nested:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("GetOrders %s: %w", symbol, err)
	}

	out := make([]domain.Order, 0, len(orders))
	for i := range orders {
		out = append(out, *fromAlpacaOrder(&orders[i]))
	}
	return out, nil
}

// CancelOrder requests cancellation of an open order. A 404 (order gone) or
// 422 (already pending cancel / not cancelable) from the API means the order
// is already resolving, so both are treated as success.
func (b *AlpacaBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.client.CancelOrder(orderID)
	if err == nil {
		return nil
	}

	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return nil
		}
	}
	return fmt.Errorf("CancelOrder %s: %w", orderID, err)
}

// ClosePosition liquidates the full position for symbol at market.
func (b *AlpacaBroker) ClosePosition(ctx context.Context, symbol string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order, err := b.client.ClosePosition(symbol, alpaca.ClosePositionRequest{})
	if err != nil {
		return nil, fmt.Errorf("ClosePosition %s: %w", symbol, err)
	}
	return fromAlpacaOrder(order), nil
}

// MarketStatus maps the Alpaca clock onto the session taxonomy. Outside
// regular hours, 4:00-9:30 ET counts as pre-market and 16:00-20:00 ET as
// after-hours.
func (b *AlpacaBroker) MarketStatus(ctx context.Context) (domain.MarketStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clock, err := b.client.GetClock()
	if err != nil {
		return "", fmt.Errorf("GetClock: %w", err)
	}
	if clock.IsOpen {
		return domain.MarketOpen, nil
	}

	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return domain.MarketClosed, nil
	}
	now := clock.Timestamp.In(et)
	minutes := now.Hour()*60 + now.Minute()
	switch {
	case now.Weekday() == time.Saturday || now.Weekday() == time.Sunday:
		return domain.MarketClosed, nil
	case minutes >= 4*60 && minutes < 9*60+30:
		return domain.MarketPreMarket, nil
	case minutes >= 16*60 && minutes < 20*60:
		return domain.MarketAfterHours, nil
	default:
		return domain.MarketClosed, nil
	}
}

// fromAlpacaOrder converts an SDK order into the domain record.
func fromAlpacaOrder(o *alpaca.Order) *domain.Order {
	out := &domain.Order{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		Type:          string(o.Type),
		Status:        o.Status,
		SubmittedAt:   o.SubmittedAt,
		FilledAt:      o.FilledAt,
	}
	if o.Qty != nil {
		out.Qty = o.Qty.InexactFloat64()
	}
	if o.LimitPrice != nil {
		v := o.LimitPrice.InexactFloat64()
		out.LimitPrice = &v
	}
	if o.StopPrice != nil {
		v := o.StopPrice.InexactFloat64()
		out.StopPrice = &v
	}
	return out
}
