package cooldown

import (
	"testing"
	"time"

	"swingbot/internal/events"
)

// fakeClock lets tests advance time manually.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(defaultDur time.Duration) (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)}
	m := NewManager(defaultDur, nil)
	m.SetNow(clock.now)
	return m, clock
}

func TestInCooldownWithinWindow(t *testing.T) {
	m, clock := newTestManager(time.Hour)

	m.Add("AAPL", "exit", "llm-swing", 0)
	if !m.InCooldown("AAPL") {
		t.Error("InCooldown(AAPL) = false immediately after Add")
	}

	clock.advance(59 * time.Minute)
	if !m.InCooldown("AAPL") {
		t.Error("InCooldown(AAPL) = false before expiry")
	}

	clock.advance(2 * time.Minute)
	if m.InCooldown("AAPL") {
		t.Error("InCooldown(AAPL) = true after expiry")
	}
}

func TestAddResetsWindowInsteadOfAccumulating(t *testing.T) {
	m, clock := newTestManager(5 * time.Minute)

	m.Add("AAPL", "first exit", "llm-swing", 0)
	clock.advance(4 * time.Minute)
	second := m.Add("AAPL", "second exit", "llm-swing", 0)

	remaining := second.ExpiresAt().Sub(clock.t)
	if remaining != 5*time.Minute {
		t.Errorf("remaining after re-add = %v, want 5m (reset, not 1m+5m)", remaining)
	}

	// One active entry, carrying the newer reason.
	got, ok := m.Get("AAPL")
	if !ok || got.Reason != "second exit" {
		t.Errorf("Get(AAPL) = %+v, want the replacing entry", got)
	}
}

func TestLazyEvictionForgetsExpiredEntry(t *testing.T) {
	m, clock := newTestManager(time.Minute)

	m.Add("AAPL", "exit", "llm-swing", 0)
	clock.advance(2 * time.Minute)

	if m.InCooldown("AAPL") {
		t.Fatal("InCooldown(AAPL) = true after expiry")
	}
	// The entry is gone, not just hidden.
	if _, ok := m.entries["AAPL"]; ok {
		t.Error("expired entry still present after lazy eviction")
	}
}

func TestCleanupExpiredReturnsCount(t *testing.T) {
	m, clock := newTestManager(time.Minute)

	m.Add("AAPL", "exit", "llm-swing", 0)
	m.Add("MSFT", "exit", "llm-swing", time.Hour)
	clock.advance(5 * time.Minute)

	if got := m.CleanupExpired(); got != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", got)
	}
	if tickers := m.Tickers(); len(tickers) != 1 || tickers[0] != "MSFT" {
		t.Errorf("Tickers() = %v, want [MSFT]", tickers)
	}
}

func TestSweepEmitsCooldownEnded(t *testing.T) {
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	clock := &fakeClock{t: time.Now()}
	m := NewManager(time.Minute, bus)
	m.SetNow(clock.now)

	m.Add("AAPL", "exit", "llm-swing", 0)
	<-ch // drain cooldown-started

	clock.advance(2 * time.Minute)
	m.CleanupExpired()

	select {
	case e := <-ch:
		if e.Type != events.CooldownEnded || e.Ticker != "AAPL" {
			t.Errorf("event = %+v, want cooldown_ended for AAPL", e)
		}
	default:
		t.Error("no cooldown-ended event published")
	}
}

func TestPerCallDurationOverride(t *testing.T) {
	m, clock := newTestManager(time.Hour)

	m.Add("AAPL", "quick exit", "llm-swing", 10*time.Minute)
	clock.advance(11 * time.Minute)
	if m.InCooldown("AAPL") {
		t.Error("per-call duration not honored")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	m.Add("AAPL", "exit", "llm-swing", 0)
	m.Add("MSFT", "exit", "llm-swing", 0)

	entries := m.Active()

	m2, _ := newTestManager(time.Hour)
	m2.Restore(entries)
	if !m2.InCooldown("AAPL") || !m2.InCooldown("MSFT") {
		t.Error("restored manager lost cooldowns")
	}
}
