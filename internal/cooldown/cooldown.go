// Package cooldown tracks per-ticker re-entry suppression windows after a
// position exit.
package cooldown

import (
	"log/slog"
	"sort"
	"time"

	"swingbot/internal/events"
)

// Entry is one suppression record.
type Entry struct {
	Ticker   string        `json:"ticker"`
	ExitTime time.Time     `json:"exit_time"`
	Duration time.Duration `json:"cooldown"`
	Reason   string        `json:"reason"`
	Strategy string        `json:"strategy"`
}

// ExpiresAt returns the end of the suppression window.
func (e Entry) ExpiresAt() time.Time {
	return e.ExitTime.Add(e.Duration)
}

// Expired reports whether the window has passed at time now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt())
}

// Manager is a per-ticker boolean gate with TTL. Like the signal queue it is
// not internally synchronized; the engine cycle is the sole mutator.
type Manager struct {
	entries    map[string]Entry
	defaultDur time.Duration
	bus        *events.Bus
	now        func() time.Time
	log        *slog.Logger
}

// NewManager creates a Manager whose Add calls default to defaultDur when no
// per-call duration is given.
func NewManager(defaultDur time.Duration, bus *events.Bus) *Manager {
	return &Manager{
		entries:    make(map[string]Entry),
		defaultDur: defaultDur,
		bus:        bus,
		now:        time.Now,
		log:        slog.Default().With("component", "cooldown"),
	}
}

// Add records a cooldown for ticker starting now, replacing any existing
// entry (reset, not accumulate). A zero duration selects the manager's
// default.
func (m *Manager) Add(ticker, reason, strategy string, dur time.Duration) Entry {
	if dur <= 0 {
		dur = m.defaultDur
	}
	e := Entry{
		Ticker:   ticker,
		ExitTime: m.now(),
		Duration: dur,
		Reason:   reason,
		Strategy: strategy,
	}
	m.entries[ticker] = e

	m.log.Info("cooldown started", "ticker", ticker, "until", e.ExpiresAt(), "reason", reason)
	if m.bus != nil {
		m.bus.Publish(events.New(events.CooldownStarted, ticker, map[string]any{
			"reason":     reason,
			"strategy":   strategy,
			"expires_at": e.ExpiresAt(),
		}))
	}
	return e
}

// InCooldown reports whether ticker is currently suppressed, lazily evicting
// an expired entry before answering.
func (m *Manager) InCooldown(ticker string) bool {
	e, ok := m.entries[ticker]
	if !ok {
		return false
	}
	if e.Expired(m.now()) {
		m.evict(e)
		return false
	}
	return true
}

// Get returns the active entry for ticker, if any.
func (m *Manager) Get(ticker string) (Entry, bool) {
	e, ok := m.entries[ticker]
	if !ok {
		return Entry{}, false
	}
	if e.Expired(m.now()) {
		m.evict(e)
		return Entry{}, false
	}
	return e, true
}

// Remove deletes the entry for ticker (manual override).
func (m *Manager) Remove(ticker string) bool {
	if _, ok := m.entries[ticker]; !ok {
		return false
	}
	delete(m.entries, ticker)
	return true
}

// Active sweeps expired entries, then returns the remaining ones sorted by
// ticker.
func (m *Manager) Active() []Entry {
	m.CleanupExpired()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Tickers sweeps expired entries, then returns the suppressed tickers sorted.
func (m *Manager) Tickers() []string {
	m.CleanupExpired()
	out := make([]string, 0, len(m.entries))
	for t := range m.entries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CleanupExpired removes every expired entry and returns the count removed.
// The engine calls this once per cycle.
func (m *Manager) CleanupExpired() int {
	now := m.now()
	removed := 0
	for _, e := range m.entries {
		if e.Expired(now) {
			m.evict(e)
			removed++
		}
	}
	return removed
}

// Restore replaces the manager's entries from a persisted snapshot.
func (m *Manager) Restore(entries []Entry) {
	m.entries = make(map[string]Entry, len(entries))
	for _, e := range entries {
		m.entries[e.Ticker] = e
	}
}

// SetNow overrides the manager's clock. Used by tests.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

func (m *Manager) evict(e Entry) {
	delete(m.entries, e.Ticker)
	m.log.Info("cooldown ended", "ticker", e.Ticker)
	if m.bus != nil {
		m.bus.Publish(events.New(events.CooldownEnded, e.Ticker, map[string]any{
			"reason":   e.Reason,
			"strategy": e.Strategy,
		}))
	}
}
