package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/report"
)

// Compile-time check.
var _ Strategy = (*ManualEscalation)(nil)

// ManualEscalation opens the engine's interactive compare dialog and leaves
// the comparison to the operator. Its result is advisory: it names where the
// operator should save the report but cannot confirm that they did.
type ManualEscalation struct{}

// NewManualEscalation creates the ManualUIEscalation strategy.
func NewManualEscalation() *ManualEscalation { return &ManualEscalation{} }

func (m *ManualEscalation) Name() StrategyName { return StrategyManualEscalation }

func (m *ManualEscalation) RequiresEngine() bool { return true }

func (m *ManualEscalation) Attempt(ctx context.Context, env Env) (*Result, error) {
	mc, ok := env.Session.(engine.ManualComparer)
	if !ok {
		return nil, fmt.Errorf("engine has no interactive compare: %w", engine.ErrUnsupported)
	}

	if err := mc.OpenCompareDialog(ctx, env.Request.First, env.Request.Second); err != nil {
		return nil, err
	}

	expected := report.FinalPath(env.Request.OutputDir, env.Request.ReportName, report.VisualReport)
	return &Result{
		Success:      true,
		Kind:         report.VisualReport,
		ArtifactPath: expected,
		Advisory:     true,
		Diagnostics: []string{
			fmt.Sprintf("%s: compare dialog opened; complete the comparison and save it as %s",
				StrategyManualEscalation, expected),
		},
	}, nil
}
