// Command swingbot-state inspects a persisted engine state snapshot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"swingbot/internal/engine"
)

func main() {
	path := flag.String("state", "data/state.json", "path to the state snapshot")
	flag.Parse()

	snap, err := engine.LoadSnapshot(*path)
	if err != nil {
		log.Fatalf("failed to load snapshot: %v", err)
	}
	if snap == nil {
		fmt.Printf("no restorable state at %s (missing or version != %s)\n", *path, engine.StateVersion)
		os.Exit(1)
	}

	fmt.Printf("snapshot version %s, saved %s\n\n", snap.Version, snap.Timestamp.Format("2006-01-02 15:04:05 MST"))

	fmt.Printf("signals (%d):\n", len(snap.SignalQueue))
	for _, s := range snap.SignalQueue {
		exp := "never"
		if s.ExpiresAt != nil {
			exp = s.ExpiresAt.Format("01-02 15:04")
		}
		fmt.Printf("  %-6s %-5s prio=%-3d conf=%.0f src=%s expires=%s\n",
			s.Ticker, s.Action, s.Priority, s.Confidence, s.Source, exp)
	}

	fmt.Printf("\npositions (%d):\n", len(snap.Positions))
	for _, p := range snap.Positions {
		fmt.Printf("  %-6s %-5s qty=%.0f entry=%.2f pl=%.2f (%.1f%%)\n",
			p.Ticker, p.Side, p.Qty, p.EntryPrice, p.UnrealizedPL, p.UnrealizedPLPct)
	}

	fmt.Printf("\ncooldowns (%d):\n", len(snap.Cooldowns))
	for _, c := range snap.Cooldowns {
		fmt.Printf("  %-6s until %s (%s)\n", c.Ticker, c.ExpiresAt().Format("01-02 15:04"), c.Reason)
	}

	fmt.Printf("\npending orders (%d):\n", len(snap.Orders))
	for _, o := range snap.Orders {
		fmt.Printf("  %-6s %-4s qty=%.0f status=%s id=%s\n", o.Symbol, o.Side, o.Qty, o.Status, o.ClientOrderID)
	}
}
