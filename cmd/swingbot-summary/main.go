// Command swingbot-summary prints a daily trade summary from the Parquet
// journal.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"swingbot/internal/store"
)

func main() {
	dataDir := flag.String("data", "data", "journal data directory")
	day := flag.String("day", "", "trading day to summarize (YYYY-MM-DD, default today)")
	flag.Parse()

	target := time.Now().UTC()
	if *day != "" {
		parsed, err := time.Parse("2006-01-02", *day)
		if err != nil {
			log.Fatalf("invalid -day %q: %v", *day, err)
		}
		target = parsed
	}

	journal := store.NewJournal(*dataDir)
	records, err := journal.ReadDay(target)
	if err != nil {
		log.Fatalf("failed to read journal: %v", err)
	}
	if len(records) == 0 {
		fmt.Printf("no trades on %s\n", target.Format("2006-01-02"))
		return
	}

	var entries, exits int
	var notional float64
	fmt.Printf("trades on %s:\n", target.Format("2006-01-02"))
	for _, r := range records {
		fmt.Printf("  %s %-6s %-5s %-5s qty=%.0f @ %.2f  %s\n",
			r.ExecutedAt.Format("15:04:05"), r.Ticker, r.Kind, r.Side, r.Qty, r.Price, r.Reason)
		notional += r.Qty * r.Price
		if r.Kind == "entry" {
			entries++
		} else {
			exits++
		}
	}
	fmt.Printf("\n%d trades (%d entries, %d exits), %.2f notional\n",
		len(records), entries, exits, notional)
}
