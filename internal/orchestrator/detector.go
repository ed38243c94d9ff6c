package orchestrator

import (
	"context"

	"github.com/dusk-indust/pdfcompare/internal/engine"
)

// Detector probes the comparison engine before any real work is attempted.
type Detector interface {
	// Detect returns the engine's availability. It never fails: errors,
	// panics and timeouts all map to engine.NotInstalled with a detail.
	Detect(ctx context.Context) engine.Status
}
