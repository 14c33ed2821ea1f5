package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"swingbot/internal/domain"
)

func dropFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanReadsAndArchives(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "aapl.json", `{
		"ticker": "aapl",
		"source": "analyst",
		"recommendation": {
			"action": "buy",
			"entry_price": 150,
			"stop_loss": 145,
			"target": 165,
			"confidence": 82,
			"risk_reward": 3
		}
	}`)

	s := NewInboxScanner(dir)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(Scan()) = %d, want 1", len(got))
	}

	sig := got[0]
	if sig.Ticker != "AAPL" {
		t.Errorf("Ticker = %q, want AAPL (uppercased)", sig.Ticker)
	}
	if sig.Source != "analyst" || sig.Action != domain.ActionBuy {
		t.Errorf("signal = %+v, want source and action carried over", sig)
	}
	if sig.Priority != 20 { // 3:1 risk/reward
		t.Errorf("Priority = %d, want 20", sig.Priority)
	}
	if sig.Recommendation == nil || sig.Recommendation.EntryPrice != 150 {
		t.Error("recommendation payload not attached")
	}

	// Consumed file moved aside, so a second scan finds nothing.
	if _, err := os.Stat(filepath.Join(dir, "processed", "aapl.json")); err != nil {
		t.Errorf("processed file not archived: %v", err)
	}
	again, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Scan() = %v, want empty", again)
	}
}

func TestScanExplicitPriorityWins(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "msft.json", `{
		"ticker": "MSFT",
		"priority": 2,
		"recommendation": {"action": "buy", "entry_price": 400, "stop_loss": 390, "target": 430, "confidence": 75}
	}`)

	s := NewInboxScanner(dir)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 1 || got[0].Priority != 2 {
		t.Errorf("Scan() = %v, want priority override 2", got)
	}
}

func TestScanSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	dropFile(t, dir, "bad.json", `{not json`)
	dropFile(t, dir, "empty.json", `{"recommendation": {"action": "buy"}}`) // no ticker
	dropFile(t, dir, "good.json", `{"ticker": "NVDA", "recommendation": {"action": "buy", "confidence": 80}}`)
	dropFile(t, dir, "notes.txt", `ignored`)

	s := NewInboxScanner(dir)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "NVDA" {
		t.Errorf("Scan() = %v, want just NVDA", got)
	}
}

func TestScanMissingDirIsEmpty(t *testing.T) {
	s := NewInboxScanner(filepath.Join(t.TempDir(), "nope"))
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Errorf("Scan() on missing dir error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("Scan() = %v, want empty", got)
	}
}
