// Package scanner defines the boundary to the signal-sourcing pipelines
// (social scanners, LLM analyst agents) and provides a file-inbox
// implementation for decoupled operation.
package scanner

import (
	"context"

	"swingbot/internal/signal"
)

// Scanner produces candidate trading signals.
type Scanner interface {
	// Name returns the scanner identifier.
	Name() string

	// Scan returns the candidate signals discovered since the last call.
	Scan(ctx context.Context) ([]signal.Pending, error)
}
