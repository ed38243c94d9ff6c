// Package status turns pipeline outcomes into what the user sees: exit codes,
// the run summary and the failure report with troubleshooting steps.
package status

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/input"
	"github.com/dusk-indust/pdfcompare/internal/orchestrator"
	"github.com/dusk-indust/pdfcompare/internal/report"
)

// Process exit codes.
const (
	ExitOK                  = 0
	ExitValidation          = 1
	ExitProviderUnavailable = 2
	ExitExhausted           = 3
	ExitReportWrite         = 4
	ExitUnconfirmed         = 5

	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

// Troubleshooting is printed after every failure.
var Troubleshooting = []string{
	"Verify both files exist, are readable and carry the .pdf extension.",
	"Ensure the documents are not password-protected or damaged.",
	"Check write permissions on the output directory.",
	"Install the full edition of Adobe Acrobat (Standard or Pro), not Acrobat Reader.",
	"Close any Acrobat windows or dialogs left open by a previous run.",
	"Run again with --verbose for detailed diagnostics.",
}

// ExitCode maps a pipeline result to the process exit code.
func ExitCode(out *orchestrator.Outcome, err error) int {
	if err != nil {
		var (
			unavailable *orchestrator.ProviderUnavailableError
			writeErr    *report.WriteError
		)
		switch {
		case errors.Is(err, context.Canceled):
			return ExitInterrupted
		case errors.Is(err, input.ErrValidation):
			return ExitValidation
		case errors.As(err, &unavailable):
			return ExitProviderUnavailable
		case errors.As(err, &writeErr):
			return ExitReportWrite
		default:
			return ExitExhausted
		}
	}
	if out != nil && out.Result != nil && out.Result.Advisory && !out.Verified {
		return ExitUnconfirmed
	}
	return ExitOK
}

// DescribeEngine renders a probed engine on one line.
func DescribeEngine(s engine.Status) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", s.Engine, s.Availability))
	if s.Edition != "" {
		sb.WriteString(fmt.Sprintf(" (edition %s)", s.Edition))
	}
	if s.Detail != "" {
		sb.WriteString(" - " + s.Detail)
	}
	return sb.String()
}

// Summary renders a finished run. verbose adds the diagnostics of every
// attempt.
func Summary(out *orchestrator.Outcome, verbose bool) string {
	var sb strings.Builder
	res := out.Result

	switch {
	case res.Advisory && out.Verified:
		sb.WriteString("Comparison completed manually.\n")
	case res.Advisory:
		sb.WriteString("Comparison handed to the operator; the report could not be confirmed.\n")
	default:
		sb.WriteString("Comparison complete.\n")
	}

	sb.WriteString(fmt.Sprintf("  First:    %s\n", out.Request.First))
	sb.WriteString(fmt.Sprintf("  Second:   %s\n", out.Request.Second))
	sb.WriteString(fmt.Sprintf("  Engine:   %s\n", DescribeEngine(out.Engine)))
	sb.WriteString(fmt.Sprintf("  Strategy: %s\n", res.Strategy))
	if res.Identical {
		sb.WriteString("  Result:   documents are byte-identical\n")
	}
	sb.WriteString(fmt.Sprintf("  Report:   %s\n", out.ReportPath))

	if res.Advisory && !out.Verified {
		sb.WriteString("\nComplete the comparison in the open Acrobat window and save the result as\n")
		sb.WriteString("  " + out.ReportPath + "\n")
		sb.WriteString("then re-check that the file exists before relying on it.\n")
	}
	if !out.Engine.Available() && !res.Identical {
		if hint := out.Engine.Remediation(); hint != "" {
			sb.WriteString("\nNote: " + hint + "\n")
		}
	}

	if verbose && len(res.Diagnostics) > 0 {
		sb.WriteString("\nDiagnostics:\n")
		for _, d := range res.Diagnostics {
			sb.WriteString("  - " + d + "\n")
		}
	}
	return sb.String()
}

// Failure renders a failed run: the failing stage, the underlying message,
// remediation and attempt diagnostics when known, and the troubleshooting list.
func Failure(out *orchestrator.Outcome, err error) string {
	var sb strings.Builder

	var re *orchestrator.RunError
	if errors.Is(err, context.Canceled) {
		sb.WriteString("Comparison interrupted.\n")
		if errors.As(err, &re) {
			sb.WriteString(fmt.Sprintf("  Stopped during %s. No report was written.\n", re.Stage))
		}
		return sb.String()
	}
	if errors.As(err, &re) {
		sb.WriteString(fmt.Sprintf("Comparison failed during %s.\n", re.Stage))
		sb.WriteString(fmt.Sprintf("  Error: %v\n", re.Err))
	} else {
		sb.WriteString("Comparison failed.\n")
		sb.WriteString(fmt.Sprintf("  Error: %v\n", err))
	}

	var unavailable *orchestrator.ProviderUnavailableError
	if errors.As(err, &unavailable) {
		sb.WriteString("  Fix:   " + unavailable.Status.Remediation() + "\n")
	} else if out != nil && out.Engine.Engine != "" && !out.Engine.Available() {
		sb.WriteString("  Engine: " + DescribeEngine(out.Engine) + "\n")
	}

	var exhausted *orchestrator.ExhaustedError
	if errors.As(err, &exhausted) {
		sb.WriteString("\nAttempts:\n")
		for _, d := range exhausted.Diagnostics() {
			sb.WriteString("  - " + d + "\n")
		}
	}

	sb.WriteString("\nTroubleshooting:\n")
	for i, tip := range Troubleshooting {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, tip))
	}
	return sb.String()
}
