// Package builtins provides the strategy implementations that ship with
// swingbot.
package builtins

import (
	"fmt"

	"swingbot/internal/domain"
	"swingbot/internal/position"
	"swingbot/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*LLMSwing)(nil)

// LLMSwing trades the price levels carried on an upstream analyst
// recommendation: it enters at the recommended level when the live price has
// not run away from it, and exits on trend break or outsized moves.
type LLMSwing struct {
	maxPositionValue float64
	minConfidence    float64
	maxVIX           float64
	entrySlippagePct float64
}

// NewLLMSwing creates an LLMSwing strategy.
//
//   - maxPositionValue caps the dollar amount per position.
//   - minConfidence rejects recommendations below this confidence (0-100).
//   - maxVIX suppresses new entries when volatility is above this level
//     (zero disables the check).
func NewLLMSwing(maxPositionValue, minConfidence, maxVIX float64) *LLMSwing {
	return &LLMSwing{
		maxPositionValue: maxPositionValue,
		minConfidence:    minConfidence,
		maxVIX:           maxVIX,
		entrySlippagePct: 2.0,
	}
}

// Name returns "llm-swing".
func (s *LLMSwing) Name() string { return "llm-swing" }

// EvaluateEntry accepts a candidate only when an analyst recommendation is
// attached and the live price is still near the recommended entry level.
func (s *LLMSwing) EvaluateEntry(sig domain.TechnicalSignals, mc strategy.MarketContext, rec *domain.AgentRecommendation) strategy.EntryDecision {
	if rec == nil {
		return strategy.EntryDecision{Reason: "no analyst recommendation"}
	}
	if rec.Confidence < s.minConfidence {
		return strategy.EntryDecision{Reason: fmt.Sprintf("confidence %.0f below threshold %.0f", rec.Confidence, s.minConfidence)}
	}
	if mc.MarketStatus != domain.MarketOpen {
		return strategy.EntryDecision{Reason: "market not open"}
	}
	if s.maxVIX > 0 && mc.VIX > s.maxVIX {
		return strategy.EntryDecision{Reason: fmt.Sprintf("VIX %.1f above cap %.1f", mc.VIX, s.maxVIX)}
	}
	if sig.Price <= 0 || rec.EntryPrice <= 0 {
		return strategy.EntryDecision{Reason: "no usable price"}
	}

	// Refuse to chase: the live price must be within the slippage band of the
	// recommended entry, in the adverse direction.
	drift := (sig.Price - rec.EntryPrice) / rec.EntryPrice * 100
	if rec.Action.IsShortSide() {
		drift = -drift
	}
	if drift > s.entrySlippagePct {
		return strategy.EntryDecision{Reason: fmt.Sprintf("price drifted %.1f%% past entry", drift)}
	}

	size := strategy.DefaultPositionSize(sig.Price, s.maxPositionValue)
	if size <= 0 {
		return strategy.EntryDecision{Reason: "position size rounds to zero"}
	}

	return strategy.EntryDecision{
		ShouldEnter: true,
		Reason:      "analyst levels confirmed",
		Size:        size,
		EntryPrice:  rec.EntryPrice,
		StopLoss:    rec.StopLoss,
		Target:      rec.Target,
	}
}

// EvaluateExit closes on trend break against the position, a stop-sized
// drawdown, or a target-sized gain.
func (s *LLMSwing) EvaluateExit(pos position.Position, sig domain.TechnicalSignals, _ strategy.MarketContext) strategy.ExitDecision {
	switch {
	case pos.UnrealizedPLPct <= -8:
		return strategy.ExitDecision{ShouldExit: true, Reason: "drawdown beyond stop threshold", Urgency: "high"}
	case pos.UnrealizedPLPct >= 20:
		return strategy.ExitDecision{ShouldExit: true, Reason: "target-sized gain reached", Urgency: "normal"}
	}

	if sig.Price > 0 && sig.SMA20 > 0 {
		if pos.Side == domain.SideLong && sig.Price < sig.SMA20 && sig.RSI14 < 40 {
			return strategy.ExitDecision{ShouldExit: true, Reason: "trend break below SMA20", Urgency: "normal"}
		}
		if pos.Side == domain.SideShort && sig.Price > sig.SMA20 && sig.RSI14 > 60 {
			return strategy.ExitDecision{ShouldExit: true, Reason: "trend break above SMA20", Urgency: "normal"}
		}
	}

	return strategy.ExitDecision{Reason: "holding"}
}

// PositionSize applies the default dollar-cap sizing rule.
func (s *LLMSwing) PositionSize(sig domain.TechnicalSignals, _ strategy.MarketContext, maxAmount float64) int {
	if maxAmount <= 0 || maxAmount > s.maxPositionValue {
		maxAmount = s.maxPositionValue
	}
	return strategy.DefaultPositionSize(sig.Price, maxAmount)
}
