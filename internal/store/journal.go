package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Journal writes the daily trade journal as Parquet files on disk, one file
// per trading day.
type Journal struct {
	DataDir string
}

// NewJournal creates a Journal rooted at the given data directory.
func NewJournal(dataDir string) *Journal {
	return &Journal{DataDir: dataDir}
}

// journalRow is the Parquet schema for one executed trade.
type journalRow struct {
	Ticker        string  `parquet:"ticker"`
	Kind          string  `parquet:"kind"`
	Side          string  `parquet:"side"`
	Qty           float64 `parquet:"qty"`
	Price         float64 `parquet:"price"`
	Strategy      string  `parquet:"strategy"`
	Reason        string  `parquet:"reason"`
	ClientOrderID string  `parquet:"client_order_id"`
	ExecutedAt    int64   `parquet:"executed_at,timestamp(millisecond)"` // Unix ms
}

// Append merges the records into their per-day journal files, deduplicating
// by (client order ID, timestamp) so re-appends after a restart are benign.
func (j *Journal) Append(records []TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	byDay := make(map[string][]journalRow)
	for _, rec := range records {
		day := rec.ExecutedAt.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], journalRow{
			Ticker:        rec.Ticker,
			Kind:          rec.Kind,
			Side:          rec.Side,
			Qty:           rec.Qty,
			Price:         rec.Price,
			Strategy:      rec.Strategy,
			Reason:        rec.Reason,
			ClientOrderID: rec.ClientOrderID,
			ExecutedAt:    rec.ExecutedAt.UnixMilli(),
		})
	}

	for day, rows := range byDay {
		path := j.dayPath(day)

		existing, _ := readJournalFile(path)
		merged := mergeJournalRows(existing, rows)

		if err := writeJournalFile(path, merged); err != nil {
			return fmt.Errorf("writing journal for %s: %w", day, err)
		}
	}
	return nil
}

// ReadDay returns the journal entries for one trading day (UTC), oldest
// first. A missing file yields an empty slice.
func (j *Journal) ReadDay(day time.Time) ([]TradeRecord, error) {
	rows, err := readJournalFile(j.dayPath(day.UTC().Format("2006-01-02")))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]TradeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, TradeRecord{
			Ticker:        r.Ticker,
			Kind:          r.Kind,
			Side:          r.Side,
			Qty:           r.Qty,
			Price:         r.Price,
			Strategy:      r.Strategy,
			Reason:        r.Reason,
			ClientOrderID: r.ClientOrderID,
			ExecutedAt:    time.UnixMilli(r.ExecutedAt).UTC(),
		})
	}
	return out, nil
}

// dayPath returns the journal file path for one day.
// Layout: <DataDir>/journal/<YYYY-MM-DD>.parquet
func (j *Journal) dayPath(day string) string {
	return filepath.Join(j.DataDir, "journal", day+".parquet")
}

func writeJournalFile(path string, rows []journalRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, rows)
}

func readJournalFile(path string) ([]journalRow, error) {
	return parquet.ReadFile[journalRow](path)
}

// mergeJournalRows deduplicates rows by (client order ID, timestamp),
// preferring incoming rows, and sorts by execution time.
func mergeJournalRows(existing, incoming []journalRow) []journalRow {
	type key struct {
		id string
		ts int64
	}
	seen := make(map[key]journalRow, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.ClientOrderID, r.ExecutedAt}] = r
	}
	for _, r := range incoming {
		seen[key{r.ClientOrderID, r.ExecutedAt}] = r
	}

	merged := make([]journalRow, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ExecutedAt < merged[j].ExecutedAt
	})
	return merged
}
