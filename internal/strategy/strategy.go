// Package strategy defines the decision-making contract the execution engine
// calls into, and a Registry for selecting an implementation by name.
package strategy

import (
	"fmt"
	"math"
	"sort"

	"swingbot/internal/domain"
	"swingbot/internal/position"
)

// MarketContext is the market-wide snapshot handed to a strategy alongside
// the per-ticker signals.
type MarketContext struct {
	Equity          float64
	BuyingPower     float64
	VIX             float64
	MarketStatus    domain.MarketStatus
	Positions       []position.Position
	CooldownTickers []string
}

// EntryDecision is a strategy's answer to "should we open this position."
type EntryDecision struct {
	ShouldEnter bool
	Reason      string
	Size        int
	EntryPrice  float64
	StopLoss    float64
	Target      float64
}

// ExitDecision is a strategy's answer to "should we close this position."
type ExitDecision struct {
	ShouldExit bool
	Reason     string
	Urgency    string // "low", "normal", "high"
}

// Strategy is the interface concrete trading strategies implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// EvaluateEntry decides whether to open a position for the candidate.
	// rec carries the upstream analyst recommendation when one exists.
	EvaluateEntry(sig domain.TechnicalSignals, mc MarketContext, rec *domain.AgentRecommendation) EntryDecision

	// EvaluateExit decides whether to close the held position.
	EvaluateExit(pos position.Position, sig domain.TechnicalSignals, mc MarketContext) ExitDecision

	// PositionSize returns the share count to trade given a dollar cap.
	PositionSize(sig domain.TechnicalSignals, mc MarketContext, maxAmount float64) int
}

// DefaultPositionSize is the baseline sizing rule: floor(maxAmount / price),
// clamped to zero for non-positive price.
func DefaultPositionSize(price, maxAmount float64) int {
	if price <= 0 {
		return 0
	}
	return int(math.Floor(maxAmount / price))
}

// Registry holds a named collection of strategies. It is an explicit
// instance, not a package-level singleton, so tests can build isolated sets.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return s, nil
}

// List returns the sorted registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
