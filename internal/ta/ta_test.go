package ta

import (
	"math"
	"testing"
	"time"

	"swingbot/internal/domain"
)

// syntheticBars builds n daily bars with the given closes and a 2-point
// high/low spread.
func syntheticBars(closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	base := time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1_000_000,
		}
	}
	return bars
}

func TestBuildSignalsNeedsEnoughHistory(t *testing.T) {
	closes := make([]float64, minBars-1)
	for i := range closes {
		closes[i] = 100
	}
	if got := BuildSignals("TEST", syntheticBars(closes)); got != nil {
		t.Errorf("BuildSignals() = %+v with short history, want nil", got)
	}
}

func TestBuildSignalsFlatSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	sig := BuildSignals("TEST", syntheticBars(closes))
	if sig == nil {
		t.Fatal("BuildSignals() = nil with enough history")
	}

	if sig.Price != 100 {
		t.Errorf("Price = %v, want 100", sig.Price)
	}
	// On a flat series both moving averages equal the price.
	if math.Abs(sig.SMA20-100) > 1e-9 || math.Abs(sig.SMA50-100) > 1e-9 {
		t.Errorf("SMAs = (%v, %v), want 100", sig.SMA20, sig.SMA50)
	}
	// Constant high-low spread of 2 pins the ATR at 2.
	if math.Abs(sig.ATR14-2) > 1e-9 {
		t.Errorf("ATR14 = %v, want 2", sig.ATR14)
	}
	if sig.Ticker != "TEST" || sig.Volume != 1_000_000 {
		t.Errorf("signal = %+v, want ticker and volume carried through", sig)
	}
}

func TestBuildSignalsUptrendRSI(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i) // strictly rising
	}
	sig := BuildSignals("TEST", syntheticBars(closes))
	if sig == nil {
		t.Fatal("BuildSignals() = nil")
	}
	if sig.RSI14 < 99 {
		t.Errorf("RSI14 = %v on a monotone uptrend, want near 100", sig.RSI14)
	}
	if sig.SMA20 >= sig.Price {
		t.Errorf("SMA20 = %v not below price %v in an uptrend", sig.SMA20, sig.Price)
	}
}

func TestRealizedVolatility(t *testing.T) {
	// A constant series has zero volatility.
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	if got := RealizedVolatility(flat, 20); got != 0 {
		t.Errorf("RealizedVolatility(flat) = %v, want 0", got)
	}

	// Alternating +/-1% moves produce a clearly nonzero annualized figure.
	swingy := make([]float64, 30)
	swingy[0] = 100
	for i := 1; i < len(swingy); i++ {
		if i%2 == 0 {
			swingy[i] = swingy[i-1] * 1.01
		} else {
			swingy[i] = swingy[i-1] * 0.99
		}
	}
	got := RealizedVolatility(swingy, 20)
	if got < 10 || got > 40 {
		t.Errorf("RealizedVolatility(swingy) = %v, want a VIX-scale value", got)
	}
}

func TestRealizedVolatilityGuards(t *testing.T) {
	if got := RealizedVolatility([]float64{100, 101}, 20); got != 0 {
		t.Errorf("RealizedVolatility(short series) = %v, want 0", got)
	}
	if got := RealizedVolatility([]float64{100, 0, 100, 100, 100}, 3); got != 0 {
		t.Errorf("RealizedVolatility(non-positive close) = %v, want 0", got)
	}
}

func TestBarsLookbackCoversMinBars(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	start := barsLookback(now)
	if days := now.Sub(start).Hours() / 24; days < 70 {
		t.Errorf("lookback = %v days, too short to guarantee %d trading days", days, minBars)
	}
}
