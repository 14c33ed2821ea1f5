package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"swingbot/internal/events"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndListTrades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)

	trades := []TradeRecord{
		{Ticker: "AAPL", Kind: "entry", Side: "long", Qty: 10, Price: 150.12, Strategy: "llm-swing", ClientOrderID: "c1", ExecutedAt: base},
		{Ticker: "AAPL", Kind: "exit", Side: "long", Qty: 10, Price: 158.40, Strategy: "llm-swing", Reason: "target", ClientOrderID: "c2", ExecutedAt: base.Add(time.Hour)},
	}
	for _, rec := range trades {
		if err := s.SaveTrade(ctx, rec); err != nil {
			t.Fatalf("SaveTrade() error = %v", err)
		}
	}

	got, err := s.ListTrades(ctx, base)
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(ListTrades()) = %d, want 2", len(got))
	}
	if got[0].Kind != "entry" || got[1].Kind != "exit" {
		t.Errorf("order = [%s %s], want oldest first", got[0].Kind, got[1].Kind)
	}
	if got[1].Reason != "target" || got[1].Price != 158.40 {
		t.Errorf("exit row = %+v, want reason and price preserved", got[1])
	}
}

func TestListTradesFiltersBySince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)

	s.SaveTrade(ctx, TradeRecord{Ticker: "OLD", Kind: "entry", Side: "long", Qty: 1, Price: 1, Strategy: "s", ExecutedAt: base.Add(-48 * time.Hour)})
	s.SaveTrade(ctx, TradeRecord{Ticker: "NEW", Kind: "entry", Side: "long", Qty: 1, Price: 1, Strategy: "s", ExecutedAt: base})

	got, err := s.ListTrades(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "NEW" {
		t.Errorf("ListTrades(since) = %v, want just NEW", got)
	}
}

func TestSaveAndListEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, typ := range []events.Type{events.SignalExpired, events.CooldownStarted, events.PositionClosed} {
		e := events.Event{
			Type:      typ,
			Ticker:    "AAPL",
			Timestamp: time.Date(2026, 8, 28, 10, i, 0, 0, time.UTC),
			Fields:    map[string]any{"seq": float64(i)},
		}
		if err := s.SaveEvent(ctx, e); err != nil {
			t.Fatalf("SaveEvent() error = %v", err)
		}
	}

	got, err := s.ListEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(ListEvents(2)) = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Type != events.PositionClosed || got[1].Type != events.CooldownStarted {
		t.Errorf("order = [%s %s], want newest first", got[0].Type, got[1].Type)
	}
	if got[0].Fields["seq"] != float64(2) {
		t.Errorf("Fields = %v, want seq preserved through JSON", got[0].Fields)
	}
}
