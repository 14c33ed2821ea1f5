package ta

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"swingbot/internal/domain"
	"swingbot/internal/util"
)

// Compile-time interface check.
var _ Analyzer = (*AlpacaAnalyzer)(nil)

// volatilityProxy is the broad-market symbol used for the VIX-style reading.
const volatilityProxy = "SPY"

// AlpacaAnalyzer computes indicator snapshots from Alpaca daily bars.
type AlpacaAnalyzer struct {
	client  *marketdata.Client
	feed    string
	limiter *util.RateLimiter
	now     func() time.Time
	log     *slog.Logger
}

// NewAlpacaAnalyzer creates an analyzer backed by the Alpaca market-data API.
// rateLimitPerMin bounds outbound request volume across all tickers.
func NewAlpacaAnalyzer(apiKey, apiSecret, dataURL, feed string, rateLimitPerMin int) *AlpacaAnalyzer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}

	return &AlpacaAnalyzer{
		client:  marketdata.NewClient(opts),
		feed:    feed,
		limiter: util.NewRateLimiter(rateLimitPerMin),
		now:     time.Now,
		log:     slog.Default().With("component", "ta"),
	}
}

// AnalyzeStock fetches recent daily bars for ticker and computes the
// indicator snapshot. Insufficient history yields (nil, nil): the caller
// skips the ticker for this cycle.
func (a *AlpacaAnalyzer) AnalyzeStock(ctx context.Context, ticker string) (*domain.TechnicalSignals, error) {
	bars, err := a.fetchDailyBars(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return BuildSignals(ticker, bars), nil
}

// MarketVolatility returns annualized realized volatility of the broad
// market proxy, or zero when data is unavailable.
func (a *AlpacaAnalyzer) MarketVolatility(ctx context.Context) float64 {
	bars, err := a.fetchDailyBars(ctx, volatilityProxy)
	if err != nil {
		a.log.Warn("volatility fetch failed", "symbol", volatilityProxy, "err", err)
		return 0
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return RealizedVolatility(closes, 20)
}

func (a *AlpacaAnalyzer) fetchDailyBars(ctx context.Context, ticker string) ([]domain.Bar, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	now := a.now()
	alpacaBars, err := a.client.GetBars(strings.ToUpper(ticker), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     barsLookback(now),
		End:       now,
		Feed:      marketdata.Feed(a.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", ticker, err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     strings.ToUpper(ticker),
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars, nil
}
