package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/pdfcompare/internal/engine"
)

// ProviderUnavailableError is returned when the engine is unavailable and the
// configuration requires it.
type ProviderUnavailableError struct {
	Status engine.Status
}

func (e *ProviderUnavailableError) Error() string {
	if e == nil {
		return "comparison engine unavailable"
	}
	msg := fmt.Sprintf("comparison engine %s unavailable (%s)", e.Status.Engine, e.Status.Availability)
	if e.Status.Detail != "" {
		msg += ": " + e.Status.Detail
	}
	return msg
}

// StrategyError records why one strategy attempt did not succeed. It never
// leaves the chain on its own; the chain collects it into diagnostics.
type StrategyError struct {
	Strategy StrategyName
	Skipped  bool
	Err      error
}

func (e *StrategyError) Error() string {
	if e == nil {
		return "strategy failed"
	}
	if e.Skipped {
		return fmt.Sprintf("%s: skipped: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every strategy failed. Attempts holds one
// entry per strategy in chain order.
type ExhaustedError struct {
	Attempts []*StrategyError
}

func (e *ExhaustedError) Error() string {
	if e == nil || len(e.Attempts) == 0 {
		return "all comparison strategies exhausted"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return "all comparison strategies exhausted: " + strings.Join(parts, "; ")
}

// Diagnostics returns one line per attempt.
func (e *ExhaustedError) Diagnostics() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Error())
	}
	return out
}

// Stage names the pipeline step a RunError came from.
type Stage string

const (
	StageValidation Stage = "input validation"
	StageProvider   Stage = "provider check"
	StageComparison Stage = "comparison"
	StageReport     Stage = "report writing"
)

// RunError is the error returned by Pipeline.Compare. It names the failing
// stage and wraps the underlying error, so errors.As still reaches the
// validation, provider, exhaustion and write errors below it.
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	if e == nil {
		return "comparison run failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
