package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/input"
	"github.com/dusk-indust/pdfcompare/internal/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time interface check.
var _ Comparer = (*Pipeline)(nil)

// Pipeline runs one comparison end to end: input validation, provider check,
// strategy chain and report writing, in that order. Progress is reported
// through a ProgressReporter.
type Pipeline struct {
	cfg      Config
	detector Detector
	chain    *Chain
	progress *ProgressReporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewPipeline creates a Pipeline driving eng with the configured strategies.
func NewPipeline(cfg Config, eng engine.Engine, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	strategies, err := NewStrategies(cfg.Strategies, cfg, logger)
	if err != nil {
		return nil, err
	}

	progress := NewProgressReporter()
	return &Pipeline{
		cfg:      cfg,
		detector: NewDefaultDetector(eng, cfg.ProbeTimeout, logger),
		chain:    NewChain(strategies, eng, cfg.AttemptTimeout, logger, progress.Emit),
		progress: progress,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close ends the progress stream. It is safe to call more than once.
func (p *Pipeline) Close() {
	p.progress.Close()
	if n := p.progress.Dropped(); n > 0 {
		p.logger.Debug("progress events dropped", zap.Int64("count", n))
	}
}

// Probe reports engine availability.
func (p *Pipeline) Probe(ctx context.Context) engine.Status {
	return p.detector.Detect(ctx)
}

// Compare runs one comparison. The returned Outcome is non-nil whenever the
// run got past input validation, including on failure, so callers can report
// what happened. Every error is a *RunError.
func (p *Pipeline) Compare(ctx context.Context, req Request) (*Outcome, error) {
	if req.ReportName == "" {
		req.ReportName = report.DefaultName(p.now())
	}

	runID := uuid.NewString()
	log := p.logger.With(zap.String("run_id", runID))

	if err := p.step(StageValidation, func() error { return p.validate(req) }); err != nil {
		log.Warn("input rejected", zap.Error(err))
		return nil, &RunError{Stage: StageValidation, Err: err}
	}

	out := &Outcome{RunID: runID, Request: req}

	p.progress.Emit(ProgressEvent{Step: string(StageProvider), Status: ProgressWorking})
	out.Engine = p.detector.Detect(ctx)
	if !out.Engine.Available() {
		log.Warn("comparison engine unavailable",
			zap.String("engine", out.Engine.Engine),
			zap.Stringer("availability", out.Engine.Availability),
			zap.String("remediation", out.Engine.Remediation()),
		)
		if p.cfg.RequireEngine {
			err := &ProviderUnavailableError{Status: out.Engine}
			p.progress.Emit(ProgressEvent{Step: string(StageProvider), Status: ProgressFailed, Message: err.Error()})
			return out, &RunError{Stage: StageProvider, Err: err}
		}
	}
	p.progress.Emit(ProgressEvent{Step: string(StageProvider), Status: ProgressComplete, Message: out.Engine.Availability.String()})

	identical := false
	if p.cfg.ShortCircuitIdentical {
		facts, err := CollectFacts(ctx, req.First, req.Second)
		if err != nil {
			log.Warn("identity check failed", zap.Error(err))
		} else {
			identical = facts.Identical()
		}
	}

	staging, err := os.MkdirTemp("", "pdfcompare-"+runID+"-")
	if err != nil {
		return out, &RunError{Stage: StageComparison, Err: fmt.Errorf("create staging directory: %w", err)}
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			log.Warn("remove staging directory", zap.String("dir", staging), zap.Error(err))
		}
	}()

	res, err := p.chain.Run(ctx, ChainInput{
		Request:    req,
		Engine:     out.Engine,
		StagingDir: staging,
		Identical:  identical,
	})
	if err != nil {
		log.Error("comparison failed", zap.Error(err))
		return out, &RunError{Stage: StageComparison, Err: err}
	}
	out.Result = res

	if res.Advisory {
		out.ReportPath = res.ArtifactPath
		p.progress.Emit(ProgressEvent{Step: string(StageReport), Status: ProgressWorking, Message: "waiting for " + res.ArtifactPath})
		out.Verified = report.WaitFor(res.ArtifactPath, p.cfg.ManualWait, p.cfg.PollInterval)
		if out.Verified {
			p.progress.Emit(ProgressEvent{Step: string(StageReport), Status: ProgressComplete, Message: res.ArtifactPath})
		} else {
			p.progress.Emit(ProgressEvent{Step: string(StageReport), Status: ProgressPending, Message: "report not yet saved"})
		}
		log.Info("advisory result", zap.String("expected", res.ArtifactPath), zap.Bool("verified", out.Verified))
		return out, nil
	}

	err = p.step(StageReport, func() error {
		path, err := report.Write(res.ArtifactPath, res.Kind, req.OutputDir, req.ReportName)
		out.ReportPath = path
		return err
	})
	if err != nil {
		log.Error("report write failed", zap.Error(err))
		return out, &RunError{Stage: StageReport, Err: err}
	}
	out.Verified = true

	log.Info("comparison complete",
		zap.String("strategy", string(res.Strategy)),
		zap.String("report", out.ReportPath),
	)
	return out, nil
}

func (p *Pipeline) validate(req Request) error {
	if err := input.Validate(req.First, p.cfg.Extension); err != nil {
		return err
	}
	if err := input.Validate(req.Second, p.cfg.Extension); err != nil {
		return err
	}
	if err := input.ValidateReportName(req.ReportName); err != nil {
		return err
	}
	return input.EnsureOutputDirectory(req.OutputDir)
}

// step runs fn between working and complete/failed progress events.
func (p *Pipeline) step(stage Stage, fn func() error) error {
	p.progress.Emit(ProgressEvent{Step: string(stage), Status: ProgressWorking})
	if err := fn(); err != nil {
		p.progress.Emit(ProgressEvent{Step: string(stage), Status: ProgressFailed, Message: err.Error()})
		return err
	}
	p.progress.Emit(ProgressEvent{Step: string(stage), Status: ProgressComplete})
	return nil
}
