package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/report"
)

// StrategyName identifies a comparison strategy.
type StrategyName string

const (
	StrategyNativeCompare    StrategyName = "native-engine-compare"
	StrategyAlternative      StrategyName = "alternative-engine-analysis"
	StrategyManualEscalation StrategyName = "manual-ui-escalation"
	StrategyBasicMetadata    StrategyName = "basic-metadata-report"
)

// DefaultStrategyOrder is the escalation order used when none is configured.
var DefaultStrategyOrder = []StrategyName{
	StrategyNativeCompare,
	StrategyAlternative,
	StrategyManualEscalation,
	StrategyBasicMetadata,
}

// ParseStrategies converts configured names into StrategyNames, rejecting
// unknown and duplicate entries.
func ParseStrategies(names []string) ([]StrategyName, error) {
	if len(names) == 0 {
		return append([]StrategyName(nil), DefaultStrategyOrder...), nil
	}

	seen := make(map[StrategyName]bool, len(names))
	out := make([]StrategyName, 0, len(names))
	for _, n := range names {
		name := StrategyName(strings.TrimSpace(n))
		known := false
		for _, k := range DefaultStrategyOrder {
			if name == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("orchestrator: unknown strategy %q", n)
		}
		if seen[name] {
			return nil, fmt.Errorf("orchestrator: strategy %q listed twice", n)
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// Request is one comparison to perform. Build it with NewRequest; it is not
// modified afterwards.
type Request struct {
	First      string
	Second     string
	OutputDir  string
	ReportName string
}

// NewRequest builds a Request, defaulting the report name from now.
func NewRequest(first, second, outputDir, reportName string, now time.Time) Request {
	if strings.TrimSpace(reportName) == "" {
		reportName = report.DefaultName(now)
	}
	return Request{
		First:      first,
		Second:     second,
		OutputDir:  outputDir,
		ReportName: reportName,
	}
}

// Result is what one strategy attempt produced.
type Result struct {
	Success  bool
	Strategy StrategyName
	Kind     report.Kind

	// ArtifactPath is the staged artifact for verified results, or the
	// expected final location for advisory ones.
	ArtifactPath string

	// Advisory marks results nobody can confirm, such as a comparison handed
	// to a human operator. Check the filesystem before trusting them.
	Advisory bool

	// Identical is set when both inputs were byte-identical.
	Identical bool

	// Diagnostics holds the failures of earlier attempts followed by this
	// attempt's own notes.
	Diagnostics []string
}

// Outcome is the end-to-end result of a pipeline run.
type Outcome struct {
	RunID   string
	Request Request
	Engine  engine.Status
	Result  *Result

	// ReportPath is where the report lives (or is expected to, for advisory
	// results).
	ReportPath string

	// Verified is false only for advisory results whose artifact never
	// appeared.
	Verified bool
}

// ProgressEvent is emitted as the pipeline moves through its steps.
type ProgressEvent struct {
	Step    string
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a pipeline step.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
	ProgressSkipped  ProgressStatus = "skipped"
)

// Comparer runs comparisons. Pipeline is the production implementation.
type Comparer interface {
	// Compare validates req, probes the engine, runs the strategy chain and
	// writes the report.
	Compare(ctx context.Context, req Request) (*Outcome, error)

	// Probe reports engine availability without comparing anything.
	Probe(ctx context.Context) engine.Status
}
