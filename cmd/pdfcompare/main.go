package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/status"
	"go.uber.org/zap"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := newApp(os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// exitError carries a process exit code out of a command. The command has
// already told the user what went wrong.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// app holds what every subcommand shares. Tests replace newEngine and
// openPath.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	configDir string
	newEngine func(name string, opts engine.Options, logger *zap.Logger) (engine.Engine, error)
	openPath  func(path string) error

	configFile string
	jsonOut    bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:    stdout,
		stderr:    stderr,
		configDir: ".",
		newEngine: engine.New,
		openPath:  openWithSystem,
	}
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return status.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Usage and configuration errors.
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	return status.ExitValidation
}
