package position

import (
	"context"
	"testing"
	"time"

	"swingbot/internal/broker"
	"swingbot/internal/domain"
)

func TestFromBrokerInfersSideFromSign(t *testing.T) {
	long := FromBroker(domain.BrokerPosition{Symbol: "AAPL", Qty: 10})
	if long.Side != domain.SideLong {
		t.Errorf("side for qty 10 = %s, want long", long.Side)
	}

	short := FromBroker(domain.BrokerPosition{Symbol: "TSLA", Qty: -5})
	if short.Side != domain.SideShort {
		t.Errorf("side for qty -5 = %s, want short", short.Side)
	}
	if short.Qty != -5 {
		t.Errorf("Qty = %v, want -5 (sign preserved)", short.Qty)
	}
}

func TestSyncReplacesNotMerges(t *testing.T) {
	tr := NewTracker()
	tr.Add(Position{Ticker: "STALE", Qty: 10, Side: domain.SideLong})

	sim := broker.NewSimulatorBroker()
	sim.Positions["AAPL"] = domain.BrokerPosition{Symbol: "AAPL", Qty: 10, AvgEntryPrice: 150}

	if err := tr.SyncFromBroker(context.Background(), sim); err != nil {
		t.Fatalf("SyncFromBroker() error = %v", err)
	}

	if tr.Has("STALE") {
		t.Error("sync kept a position the broker no longer reports")
	}
	if !tr.Has("AAPL") {
		t.Error("sync dropped a position the broker reports")
	}
	if got := tr.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestSyncPreservesKnownEntryTime(t *testing.T) {
	tr := NewTracker()
	entered := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	tr.Add(Position{Ticker: "AAPL", Qty: 10, EntryTime: entered})

	sim := broker.NewSimulatorBroker()
	sim.Positions["AAPL"] = domain.BrokerPosition{Symbol: "AAPL", Qty: 10, AvgEntryPrice: 150}

	if err := tr.SyncFromBroker(context.Background(), sim); err != nil {
		t.Fatalf("SyncFromBroker() error = %v", err)
	}

	got, _ := tr.Get("AAPL")
	if !got.EntryTime.Equal(entered) {
		t.Errorf("EntryTime after sync = %v, want %v", got.EntryTime, entered)
	}
}

func TestSyncStampsFirstSeenEntryTime(t *testing.T) {
	tr := NewTracker()
	firstSeen := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	tr.SetNow(func() time.Time { return firstSeen })

	sim := broker.NewSimulatorBroker()
	sim.Positions["AAPL"] = domain.BrokerPosition{Symbol: "AAPL", Qty: 10, AvgEntryPrice: 150}

	if err := tr.SyncFromBroker(context.Background(), sim); err != nil {
		t.Fatalf("SyncFromBroker() error = %v", err)
	}
	got, _ := tr.Get("AAPL")
	if !got.EntryTime.Equal(firstSeen) {
		t.Errorf("EntryTime = %v, want first-seen stamp %v", got.EntryTime, firstSeen)
	}

	// A later sync keeps the original stamp, not the new clock reading.
	tr.SetNow(func() time.Time { return firstSeen.Add(time.Hour) })
	if err := tr.SyncFromBroker(context.Background(), sim); err != nil {
		t.Fatalf("second SyncFromBroker() error = %v", err)
	}
	got, _ = tr.Get("AAPL")
	if !got.EntryTime.Equal(firstSeen) {
		t.Errorf("EntryTime after resync = %v, want %v preserved", got.EntryTime, firstSeen)
	}
}

func TestUpdatePnL(t *testing.T) {
	tr := NewTracker()
	tr.Add(Position{Ticker: "AAPL", Qty: 10})

	if !tr.UpdatePnL("AAPL", 120, 8.5) {
		t.Fatal("UpdatePnL(AAPL) returned false")
	}
	got, _ := tr.Get("AAPL")
	if got.UnrealizedPL != 120 || got.UnrealizedPLPct != 8.5 {
		t.Errorf("PnL after update = (%v, %v), want (120, 8.5)", got.UnrealizedPL, got.UnrealizedPLPct)
	}

	if tr.UpdatePnL("MSFT", 1, 1) {
		t.Error("UpdatePnL for unknown ticker returned true")
	}
}

func TestAllSortedByTicker(t *testing.T) {
	tr := NewTracker()
	tr.Add(Position{Ticker: "MSFT"})
	tr.Add(Position{Ticker: "AAPL"})
	tr.Add(Position{Ticker: "GOOG"})

	all := tr.All()
	want := []string{"AAPL", "GOOG", "MSFT"}
	for i, p := range all {
		if p.Ticker != want[i] {
			t.Fatalf("All()[%d] = %s, want %s", i, p.Ticker, want[i])
		}
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	tr := NewTracker()
	tr.Add(Position{Ticker: "AAPL", Qty: 10, Side: domain.SideLong})
	tr.Add(Position{Ticker: "TSLA", Qty: -4, Side: domain.SideShort})

	tr2 := NewTracker()
	tr2.Restore(tr.All())

	if tr2.Count() != 2 || !tr2.Has("AAPL") || !tr2.Has("TSLA") {
		t.Errorf("restored tracker = %v, want both positions", tr2.All())
	}
}
