package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/report"
)

// Compile-time check.
var _ Strategy = (*NativeCompare)(nil)

// NativeCompare asks the engine for its own visual comparison over every
// page of the first document. It is the only strategy yielding a true visual
// diff.
type NativeCompare struct{}

// NewNativeCompare creates the NativeEngineCompare strategy.
func NewNativeCompare() *NativeCompare { return &NativeCompare{} }

func (n *NativeCompare) Name() StrategyName { return StrategyNativeCompare }

func (n *NativeCompare) RequiresEngine() bool { return true }

func (n *NativeCompare) Attempt(ctx context.Context, env Env) (*Result, error) {
	if env.Session == nil {
		return nil, fmt.Errorf("no engine session")
	}

	pages, err := env.Session.PageCount(ctx, env.Request.First)
	if err != nil {
		return nil, err
	}
	if pages < 1 {
		return nil, fmt.Errorf("%s has no pages", env.Request.First)
	}

	out := filepath.Join(env.StagingDir, "native-compare.pdf")
	opts := engine.CompareOptions{
		StartPage:   0,
		EndPage:     pages - 1,
		Interactive: false,
		TextOnly:    false,
	}
	if err := env.Session.Compare(ctx, env.Request.First, env.Request.Second, out, opts); err != nil {
		return nil, err
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("engine reported success but wrote no report: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("engine wrote an empty report")
	}

	return &Result{
		Success:      true,
		Kind:         report.VisualReport,
		ArtifactPath: out,
		Diagnostics:  []string{fmt.Sprintf("%s: compared pages 1-%d", StrategyNativeCompare, pages)},
	}, nil
}
