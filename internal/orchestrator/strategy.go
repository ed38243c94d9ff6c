package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"go.uber.org/zap"
)

// Env is everything a strategy attempt may use.
type Env struct {
	Request Request

	// Session is open for strategies that require the engine and nil
	// otherwise. It is owned by the chain, which closes it after the attempt.
	Session engine.Session

	// StagingDir receives the attempt's artifact.
	StagingDir string

	// Prior lists the failures of earlier attempts.
	Prior []string

	// Identical is set when both inputs are byte-identical.
	Identical bool
}

// Strategy is one way of producing a comparison artifact.
type Strategy interface {
	Name() StrategyName

	// RequiresEngine reports whether the chain must open an engine session
	// for this strategy. Such strategies are never attempted while the
	// engine is unavailable.
	RequiresEngine() bool

	// Attempt tries to produce an artifact. A nil error with
	// Result.Success false also counts as a failure.
	Attempt(ctx context.Context, env Env) (*Result, error)
}

// NewStrategies builds the strategies named in order.
func NewStrategies(names []StrategyName, cfg Config, logger *zap.Logger) ([]Strategy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case StrategyNativeCompare:
			out = append(out, NewNativeCompare())
		case StrategyAlternative:
			out = append(out, NewAlternativeAnalysis(cfg.PositionTolerance))
		case StrategyManualEscalation:
			out = append(out, NewManualEscalation())
		case StrategyBasicMetadata:
			out = append(out, NewBasicMetadataReport(logger))
		default:
			return nil, fmt.Errorf("orchestrator: unknown strategy %q", name)
		}
	}
	return out, nil
}
