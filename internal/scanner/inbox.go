package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"swingbot/internal/domain"
	"swingbot/internal/signal"
)

// Compile-time interface check.
var _ Scanner = (*InboxScanner)(nil)

// InboxScanner picks up signals dropped as JSON files by the analyst
// pipeline. Each file holds one recommendation; consumed files are moved to
// a processed/ subdirectory so a crash between read and queue re-delivers
// rather than loses.
type InboxScanner struct {
	dir string
	log *slog.Logger
}

// inboxFile is the on-disk shape of one dropped recommendation.
type inboxFile struct {
	Ticker         string                     `json:"ticker"`
	Source         string                     `json:"source"`
	Priority       *int                       `json:"priority,omitempty"`
	Recommendation domain.AgentRecommendation `json:"recommendation"`
}

// NewInboxScanner creates an InboxScanner watching dir.
func NewInboxScanner(dir string) *InboxScanner {
	return &InboxScanner{
		dir: dir,
		log: slog.Default().With("scanner", "inbox"),
	}
}

// Name returns the scanner identifier.
func (s *InboxScanner) Name() string { return "inbox" }

// Scan reads every JSON file in the inbox, converts each into a pending
// signal, and moves the file aside. Malformed files are skipped with a
// warning, not treated as fatal.
func (s *InboxScanner) Scan(ctx context.Context) ([]signal.Pending, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []signal.Pending
	for _, name := range names {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("inbox file unreadable", "file", name, "err", err)
			continue
		}

		var f inboxFile
		if err := json.Unmarshal(data, &f); err != nil || f.Ticker == "" {
			s.log.Warn("inbox file malformed, skipping", "file", name, "err", err)
			continue
		}

		source := f.Source
		if source == "" {
			source = s.Name()
		}
		sig := signal.FromRecommendation(strings.ToUpper(f.Ticker), source, f.Recommendation)
		if f.Priority != nil {
			sig.Priority = *f.Priority
		}
		out = append(out, sig)

		if err := s.archive(path, name); err != nil {
			s.log.Warn("archiving inbox file failed", "file", name, "err", err)
		}
	}
	return out, nil
}

func (s *InboxScanner) archive(path, name string) error {
	processed := filepath.Join(s.dir, "processed")
	if err := os.MkdirAll(processed, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(processed, name))
}
