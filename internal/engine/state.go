package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"swingbot/internal/cooldown"
	"swingbot/internal/domain"
	"swingbot/internal/position"
	"swingbot/internal/signal"
)

// StateVersion gates snapshot restores. Bump it when the snapshot layout
// changes incompatibly; an old snapshot is then discarded wholesale rather
// than migrated.
const StateVersion = "2"

// Snapshot is the durable state of the four stateful components plus an
// opaque strategy blob.
type Snapshot struct {
	Version       string              `json:"version"`
	Timestamp     time.Time           `json:"timestamp"`
	SignalQueue   []signal.Pending    `json:"signal_queue"`
	Positions     []position.Position `json:"positions"`
	Cooldowns     []cooldown.Entry    `json:"cooldowns"`
	Orders        []domain.Order      `json:"orders"`
	StrategyState json.RawMessage     `json:"strategy_state,omitempty"`
}

// Snapshot captures the engine's current state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Version:       StateVersion,
		Timestamp:     e.now().UTC(),
		SignalQueue:   e.queue.Snapshot(),
		Positions:     e.positions.All(),
		Cooldowns:     e.cooldowns.Active(),
		Orders:        e.orders.Pending(),
		StrategyState: e.strategyState,
	}
}

// SaveState writes the current snapshot to path atomically (temp file plus
// rename), so a crash mid-write never leaves a torn snapshot.
func (e *Engine) SaveState(path string) error {
	snap := e.Snapshot()
	return WriteSnapshot(path, snap)
}

// RestoreState loads the snapshot at path and seeds the engine's components
// from it. A missing file or version mismatch leaves the engine empty.
func (e *Engine) RestoreState(path string) error {
	snap, err := LoadSnapshot(path)
	if err != nil {
		return err
	}
	if snap == nil {
		e.log.Info("no restorable state, starting fresh", "path", path)
		return nil
	}

	e.queue.Restore(snap.SignalQueue)
	e.positions.Restore(snap.Positions)
	e.cooldowns.Restore(snap.Cooldowns)
	e.orders.Restore(snap.Orders)
	e.strategyState = snap.StrategyState

	e.log.Info("state restored",
		"saved_at", snap.Timestamp,
		"signals", len(snap.SignalQueue),
		"positions", len(snap.Positions),
		"cooldowns", len(snap.Cooldowns),
	)
	return nil
}

// WriteSnapshot serializes snap to path atomically.
func WriteSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot at path. It returns (nil, nil) when the
// file does not exist or carries a different version: both mean "start from
// empty state." Corrupt JSON is an error; the caller decides whether to
// proceed fresh.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}

	if snap.Version != StateVersion {
		// No field-level migration: a mismatched snapshot is discarded.
		return nil, nil
	}
	return &snap, nil
}
