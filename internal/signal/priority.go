package signal

import (
	"time"

	"swingbot/internal/domain"
)

// FromRecommendation builds a pending signal from an analyst recommendation,
// deriving priority from the recommendation's risk/reward ratio: better
// ratios get lower priority values and execute first. Priority is fixed at
// construction and never recomputed.
func FromRecommendation(ticker, source string, rec domain.AgentRecommendation) Pending {
	return Pending{
		Ticker:         ticker,
		Action:         rec.Action,
		Confidence:     rec.Confidence,
		Source:         source,
		Priority:       priorityFor(rec),
		CreatedAt:      time.Now().UTC(),
		Recommendation: &rec,
	}
}

// priorityFor maps a risk/reward ratio onto the priority scale. Ratios at or
// above 5:1 saturate at priority 0; a missing ratio lands mid-scale.
func priorityFor(rec domain.AgentRecommendation) int {
	rr := rec.RiskReward
	if rr <= 0 && rec.EntryPrice > 0 && rec.StopLoss > 0 && rec.Target > 0 {
		risk := rec.EntryPrice - rec.StopLoss
		reward := rec.Target - rec.EntryPrice
		if rec.Action.IsShortSide() {
			risk, reward = -risk, -reward
		}
		if risk > 0 {
			rr = reward / risk
		}
	}

	switch {
	case rr <= 0:
		return 50
	case rr >= 5:
		return 0
	default:
		return int((5 - rr) * 10)
	}
}
