// Package ta provides the technical-analysis collaborator the engine
// consults for per-ticker indicator snapshots.
package ta

import (
	"context"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"swingbot/internal/domain"
)

// Analyzer computes indicator snapshots for tickers. A nil result with a nil
// error means no usable data for this ticker this cycle: a soft skip, not a
// failure.
type Analyzer interface {
	// AnalyzeStock returns the current indicator snapshot for ticker.
	AnalyzeStock(ctx context.Context, ticker string) (*domain.TechnicalSignals, error)

	// MarketVolatility returns a VIX-like volatility reading for the broad
	// market, or zero when unavailable.
	MarketVolatility(ctx context.Context) float64
}

// minBars is the history needed before indicators are considered meaningful.
const minBars = 50

// BuildSignals computes the indicator snapshot from daily bars, oldest
// first. Returns nil when there is not enough history.
func BuildSignals(ticker string, bars []domain.Bar) *domain.TechnicalSignals {
	if len(bars) < minBars {
		return nil
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)
	rsi14 := talib.Rsi(closes, 14)
	atr14 := talib.Atr(highs, lows, closes, 14)

	last := len(bars) - 1
	return &domain.TechnicalSignals{
		Ticker:    ticker,
		Price:     closes[last],
		SMA20:     sma20[last],
		SMA50:     sma50[last],
		RSI14:     rsi14[last],
		ATR14:     atr14[last],
		Volume:    bars[last].Volume,
		Timestamp: bars[last].Timestamp,
	}
}

// RealizedVolatility annualizes the standard deviation of daily log returns
// over the trailing window, expressed in percent (a VIX-style number).
func RealizedVolatility(closes []float64, window int) float64 {
	if len(closes) < window+1 || window < 2 {
		return 0
	}
	returns := make([]float64, 0, window)
	for i := len(closes) - window; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			return 0
		}
		returns = append(returns, math.Log(cur/prev))
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(252) * 100
}

// barsLookback is how far back daily-bar requests reach to guarantee minBars
// trading days even across holidays.
func barsLookback(now time.Time) time.Time {
	return now.AddDate(0, 0, -120)
}
