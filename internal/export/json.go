package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/orchestrator"
)

// OutcomeExport is the JSON form of one comparison run.
type OutcomeExport struct {
	RunID      string        `json:"runId,omitempty"`
	ExportedAt string        `json:"exportedAt"`
	Success    bool          `json:"success"`
	First      string        `json:"first"`
	Second     string        `json:"second"`
	OutputDir  string        `json:"outputDir"`
	ReportName string        `json:"reportName"`
	Engine     *EngineExport `json:"engine,omitempty"`
	Result     *ResultExport `json:"result,omitempty"`
	ReportPath string        `json:"reportPath,omitempty"`
	Verified   bool          `json:"verified"`

	FailedStage string   `json:"failedStage,omitempty"`
	Error       string   `json:"error,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// EngineExport describes the probed engine.
type EngineExport struct {
	Name         string `json:"name"`
	Availability string `json:"availability"`
	Edition      string `json:"edition,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Remediation  string `json:"remediation,omitempty"`
}

// ResultExport describes the winning strategy's result.
type ResultExport struct {
	Strategy  string `json:"strategy"`
	Kind      string `json:"kind"`
	Advisory  bool   `json:"advisory"`
	Identical bool   `json:"identical"`
}

// ExportEngine converts a probed engine status.
func ExportEngine(s engine.Status) *EngineExport {
	return &EngineExport{
		Name:         s.Engine,
		Availability: s.Availability.String(),
		Edition:      s.Edition,
		Detail:       s.Detail,
		Remediation:  s.Remediation(),
	}
}

// ExportOutcome builds an OutcomeExport from a pipeline run. out may be nil
// when the run failed validation; req is then used for the inputs.
func ExportOutcome(req orchestrator.Request, out *orchestrator.Outcome, runErr error, now time.Time) *OutcomeExport {
	exp := &OutcomeExport{
		ExportedAt: now.UTC().Format(time.RFC3339),
		First:      req.First,
		Second:     req.Second,
		OutputDir:  req.OutputDir,
		ReportName: req.ReportName,
	}

	if out != nil {
		exp.RunID = out.RunID
		exp.ReportName = out.Request.ReportName
		exp.ReportPath = out.ReportPath
		exp.Verified = out.Verified
		if out.Engine.Engine != "" {
			exp.Engine = ExportEngine(out.Engine)
		}
		if out.Result != nil {
			exp.Result = &ResultExport{
				Strategy:  string(out.Result.Strategy),
				Kind:      out.Result.Kind.String(),
				Advisory:  out.Result.Advisory,
				Identical: out.Result.Identical,
			}
			exp.Diagnostics = out.Result.Diagnostics
		}
	}

	if runErr != nil {
		exp.Error = runErr.Error()
		var re *orchestrator.RunError
		if errors.As(runErr, &re) {
			exp.FailedStage = string(re.Stage)
		}
		var exhausted *orchestrator.ExhaustedError
		if errors.As(runErr, &exhausted) {
			exp.Diagnostics = exhausted.Diagnostics()
		}
	}

	exp.Success = runErr == nil && out != nil && out.Verified
	return exp
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}
