package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"go.uber.org/zap"
)

var errNoSuccess = errors.New("strategy returned no successful result")

// ChainInput is what the chain needs besides the strategies themselves.
type ChainInput struct {
	Request    Request
	Engine     engine.Status
	StagingDir string
	Identical  bool
}

// Chain tries strategies in a fixed order and returns the first success.
// A strategy is attempted at most once per run. Strategies that require the
// engine are skipped, and recorded as skipped, when the engine is unavailable
// or the inputs are byte-identical.
type Chain struct {
	strategies     []Strategy
	engine         engine.Engine
	attemptTimeout time.Duration
	logger         *zap.Logger
	onProgress     func(ProgressEvent)
}

// NewChain creates a Chain. onProgress is called synchronously for every
// attempt transition; it may be nil.
func NewChain(strategies []Strategy, eng engine.Engine, attemptTimeout time.Duration, logger *zap.Logger, onProgress func(ProgressEvent)) *Chain {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultConfig().AttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		strategies:     strategies,
		engine:         eng,
		attemptTimeout: attemptTimeout,
		logger:         logger,
		onProgress:     onProgress,
	}
}

// Strategies returns the configured order.
func (c *Chain) Strategies() []StrategyName {
	out := make([]StrategyName, len(c.strategies))
	for i, s := range c.strategies {
		out[i] = s.Name()
	}
	return out
}

// Run attempts each strategy in order. On success the result's diagnostics
// start with every earlier attempt's failure. When all strategies fail the
// error is an *ExhaustedError.
func (c *Chain) Run(ctx context.Context, in ChainInput) (*Result, error) {
	var attempts []*StrategyError

	for i, s := range c.strategies {
		name := s.Name()
		log := c.logger.With(zap.String("strategy", string(name)), zap.Int("attempt", i+1))

		if reason := c.skipReason(s, in); reason != "" {
			attempts = append(attempts, &StrategyError{Strategy: name, Skipped: true, Err: errors.New(reason)})
			log.Info("strategy skipped", zap.String("reason", reason))
			c.emit(ProgressEvent{Step: string(name), Status: ProgressSkipped, Message: reason})
			continue
		}

		c.emit(ProgressEvent{Step: string(name), Status: ProgressWorking})
		env := Env{
			Request:    in.Request,
			StagingDir: in.StagingDir,
			Prior:      diagnosticsOf(attempts),
			Identical:  in.Identical,
		}

		res, err := c.attempt(ctx, s, env)
		if err == nil && (res == nil || !res.Success) {
			err = errNoSuccess
		}
		if err != nil {
			attempts = append(attempts, &StrategyError{Strategy: name, Err: err})
			log.Warn("strategy failed", zap.Error(err))
			c.emit(ProgressEvent{Step: string(name), Status: ProgressFailed, Message: err.Error()})

			if ctx.Err() != nil {
				return nil, fmt.Errorf("chain: %w", ctx.Err())
			}
			continue
		}

		res.Strategy = name
		res.Identical = res.Identical || in.Identical
		res.Diagnostics = append(diagnosticsOf(attempts), res.Diagnostics...)
		log.Info("strategy succeeded",
			zap.Stringer("kind", res.Kind),
			zap.Bool("advisory", res.Advisory),
			zap.String("artifact", res.ArtifactPath),
		)
		c.emit(ProgressEvent{Step: string(name), Status: ProgressComplete})
		return res, nil
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

func (c *Chain) skipReason(s Strategy, in ChainInput) string {
	if !s.RequiresEngine() {
		return ""
	}
	if in.Identical {
		return "inputs are byte-identical"
	}
	if !in.Engine.Available() {
		reason := fmt.Sprintf("engine %s %s", in.Engine.Engine, in.Engine.Availability)
		if in.Engine.Detail != "" {
			reason += ": " + in.Engine.Detail
		}
		return reason
	}
	return ""
}

// attempt runs one strategy under the attempt timeout. Engine sessions are
// opened here and closed before returning, also when the strategy panics.
func (c *Chain) attempt(ctx context.Context, s Strategy, env Env) (res *Result, err error) {
	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	if s.RequiresEngine() {
		session, err := c.engine.Open(actx)
		if err != nil {
			return nil, fmt.Errorf("open engine session: %w", err)
		}
		defer func() {
			if cerr := session.Close(); cerr != nil {
				c.logger.Warn("close engine session", zap.String("strategy", string(s.Name())), zap.Error(cerr))
			}
		}()
		env.Session = session
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	res, err = s.Attempt(actx, env)
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("timed out after %s: %w", c.attemptTimeout, err)
	}
	return res, err
}

func (c *Chain) emit(ev ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(ev)
	}
}

func diagnosticsOf(attempts []*StrategyError) []string {
	if len(attempts) == 0 {
		return nil
	}
	out := make([]string, len(attempts))
	for i, a := range attempts {
		out[i] = a.Error()
	}
	return out
}
