package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"go.uber.org/zap"
)

// Compile-time check.
var _ Detector = (*DefaultDetector)(nil)

// probeSettle bounds how long Detect waits, after the probe timeout, for the
// engine to tear down whatever the probe started.
const probeSettle = 15 * time.Second

// DefaultDetector probes an engine with a bounded handshake.
type DefaultDetector struct {
	engine       engine.Engine
	probeTimeout time.Duration
	settle       time.Duration
	logger       *zap.Logger
}

// NewDefaultDetector creates a DefaultDetector for eng. A non-positive
// timeout uses the default probe timeout.
func NewDefaultDetector(eng engine.Engine, timeout time.Duration, logger *zap.Logger) *DefaultDetector {
	if timeout <= 0 {
		timeout = DefaultConfig().ProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultDetector{
		engine:       eng,
		probeTimeout: timeout,
		settle:       probeSettle,
		logger:       logger,
	}
}

type probeResult struct {
	status engine.Status
	err    error
}

// Detect runs the engine's probe under the probe timeout. The probe runs in
// its own goroutine so an engine that ignores its context cannot stall the
// run forever. After a timeout Detect still waits up to the settle period for
// the probe to return, since that is when the engine has shut down what the
// probe started.
func (d *DefaultDetector) Detect(ctx context.Context) engine.Status {
	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		done <- d.probe(probeCtx)
	}()

	var res probeResult
	select {
	case res = <-done:
	case <-probeCtx.Done():
		res = probeResult{err: fmt.Errorf("probe timed out after %s: %w", d.probeTimeout, probeCtx.Err())}
		d.awaitTeardown(done)
	}

	status := res.status
	if status.Engine == "" {
		status.Engine = d.engine.Name()
	}
	if res.err != nil {
		status.Availability = engine.NotInstalled
		if status.Detail == "" {
			status.Detail = res.err.Error()
		}
		d.logger.Warn("engine probe failed", zap.String("engine", status.Engine), zap.Error(res.err))
	}

	d.logger.Info("engine probed",
		zap.String("engine", status.Engine),
		zap.Stringer("availability", status.Availability),
		zap.String("edition", status.Edition),
		zap.String("detail", status.Detail),
	)
	return status
}

// awaitTeardown waits for an abandoned probe to return.
func (d *DefaultDetector) awaitTeardown(done <-chan probeResult) {
	timer := time.NewTimer(d.settle)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		d.logger.Error("engine probe still running after timeout; engine processes may be left behind",
			zap.String("engine", d.engine.Name()),
			zap.Duration("waited", d.probeTimeout+d.settle),
		)
	}
}

// probe calls the engine, converting a panic into an error.
func (d *DefaultDetector) probe(ctx context.Context) (res probeResult) {
	defer func() {
		if r := recover(); r != nil {
			res = probeResult{err: fmt.Errorf("probe panicked: %v", r)}
		}
	}()

	status, err := d.engine.Probe(ctx)
	return probeResult{status: status, err: err}
}
