package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/config"
	"github.com/dusk-indust/pdfcompare/internal/export"
	"github.com/dusk-indust/pdfcompare/internal/logging"
	"github.com/dusk-indust/pdfcompare/internal/orchestrator"
	"github.com/dusk-indust/pdfcompare/internal/status"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type compareFlags struct {
	open    bool
	openDir bool
}

func (a *app) rootCommand() *cobra.Command {
	var cf compareFlags

	root := &cobra.Command{
		Use:   "pdfcompare <first.pdf> <second.pdf> <output-dir> [report-name]",
		Short: "Compare two PDF documents and write a comparison report",
		Long: `pdfcompare compares two PDF documents and writes a report to the output
directory. It tries the engine's visual compare first, then a text-position
analysis, the engine's interactive compare dialog and finally a metadata
report, stopping at the first one that succeeds.

Exit codes:
  0  report written
  1  invalid input, usage or configuration
  2  comparison engine unavailable (with --require-engine)
  3  every strategy failed
  4  report could not be written
  5  comparison handed to the operator and not yet saved
  130 interrupted`,
		Version:       version,
		Args:          cobra.RangeArgs(3, 4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompare(cmd, args, cf)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./pdfcompare.yml)")
	pf.BoolVar(&a.jsonOut, "json", false, "print the result as JSON")
	pf.String("engine", "auto", "comparison engine: auto, acrobat or builtin")
	pf.Bool("verbose", false, "print progress and diagnostics")
	pf.Bool("log-json", false, "write logs as JSON")
	pf.Duration("probe-timeout", 0, "how long to wait for the engine handshake")

	f := root.Flags()
	f.Bool("require-engine", false, "fail instead of degrading when the engine is unavailable")
	f.Duration("attempt-timeout", 0, "time limit for each strategy attempt")
	f.Duration("manual-wait", 0, "how long to wait for a manually saved report")
	f.StringSlice("strategy", nil, "strategies to try, in order (repeatable)")
	f.BoolVar(&cf.open, "open", false, "open the report when done")
	f.BoolVar(&cf.openDir, "open-dir", false, "open the output directory when done")

	root.AddCommand(
		a.probeCommand(),
		a.configCommand(),
		a.serveCommand(),
		a.initCommand(),
		a.versionCommand(),
	)
	return root
}

// setup loads configuration and builds the logger and pipeline shared by the
// commands that run comparisons.
func (a *app) setup(cmd *cobra.Command) (*config.Config, *orchestrator.Pipeline, *zap.Logger, error) {
	cfg, err := config.Load(a.configDir, a.configFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Verbose, cfg.Log.JSON)
	if err != nil {
		return nil, nil, nil, err
	}

	eng, err := a.newEngine(cfg.Engine, cfg.EngineOptions(), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	oc, err := cfg.Orchestrator()
	if err != nil {
		return nil, nil, nil, err
	}
	pipeline, err := orchestrator.NewPipeline(oc, eng, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, pipeline, logger, nil
}

func (a *app) runCompare(cmd *cobra.Command, args []string, cf compareFlags) error {
	cfg, pipeline, logger, err := a.setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	name := ""
	if len(args) == 4 {
		name = args[3]
	}
	req := orchestrator.NewRequest(args[0], args[1], args[2], name, time.Now())

	var wg sync.WaitGroup
	events := pipeline.Progress()
	showProgress := cfg.Log.Verbose && !a.jsonOut
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			if showProgress {
				fmt.Fprintln(a.stderr, orchestrator.FormatProgress(ev))
			}
		}
	}()

	if showProgress {
		fmt.Fprintln(a.stderr, orchestrator.FormatRunHeader(req))
	}
	out, runErr := pipeline.Compare(cmd.Context(), req)
	pipeline.Close()
	wg.Wait()

	if a.jsonOut {
		if err := export.WriteJSON(a.stdout, export.ExportOutcome(req, out, runErr, time.Now())); err != nil {
			return err
		}
	} else if runErr != nil {
		fmt.Fprint(a.stderr, status.Failure(out, runErr))
	} else {
		fmt.Fprint(a.stdout, status.Summary(out, cfg.Log.Verbose))
	}

	if runErr == nil && out.Verified {
		a.openResult(out, cf, logger)
	}

	if code := status.ExitCode(out, runErr); code != status.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// openResult runs the post-run open actions. Failures are logged, never
// fatal: the report is already on disk.
func (a *app) openResult(out *orchestrator.Outcome, cf compareFlags, logger *zap.Logger) {
	if cf.open {
		if err := a.openPath(out.ReportPath); err != nil {
			logger.Warn("open report", zap.String("path", out.ReportPath), zap.Error(err))
		}
	}
	if cf.openDir {
		if err := a.openPath(out.Request.OutputDir); err != nil {
			logger.Warn("open output directory", zap.String("path", out.Request.OutputDir), zap.Error(err))
		}
	}
}
