package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/scriptdata"
	"go.uber.org/zap"
)

// Compile-time checks.
var (
	_ Engine         = (*Acrobat)(nil)
	_ Session        = (*acrobatSession)(nil)
	_ ManualComparer = (*acrobatSession)(nil)
)

// quitTimeout bounds the shutdown script run by Close.
const quitTimeout = 30 * time.Second

// probeTeardownTimeout bounds the shutdown script run after an interrupted
// probe. It stays below the detector's settle period.
const probeTeardownTimeout = 10 * time.Second

// Acrobat drives Adobe Acrobat through its COM automation interface by
// running the embedded JScript programs under the Windows Script Host.
type Acrobat struct {
	host   string
	runner Runner
	goos   string
	logger *zap.Logger
}

// NewAcrobat creates an Acrobat engine. host is the script host executable;
// empty means "cscript".
func NewAcrobat(host string, logger *zap.Logger) *Acrobat {
	if host == "" {
		host = DefaultScriptHost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acrobat{
		host:   host,
		runner: ExecRunner{},
		goos:   runtime.GOOS,
		logger: logger.With(zap.String("engine", NameAcrobat)),
	}
}

// Name returns "acrobat".
func (a *Acrobat) Name() string { return NameAcrobat }

// Probe runs probe.js, which instantiates the automation objects and exits
// Acrobat again unless the user already had documents open.
func (a *Acrobat) Probe(ctx context.Context) (Status, error) {
	status := Status{Engine: NameAcrobat, Availability: NotInstalled}

	if a.goos != "windows" {
		status.Detail = fmt.Sprintf("Acrobat automation requires Windows (running on %s)", a.goos)
		return status, nil
	}

	dir, err := a.materialize()
	if err != nil {
		status.Detail = err.Error()
		return status, err
	}
	defer os.RemoveAll(dir)

	out, err := a.run(ctx, dir, "probe.js")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			status.Detail = fmt.Sprintf("script host %q not found", a.host)
			return status, nil
		}
		status.Detail = err.Error()
		if ctx.Err() != nil {
			// The script host was killed; Acrobat may still be starting.
			a.teardown(dir)
		}
		return status, fmt.Errorf("acrobat: probe: %w", err)
	}

	status.Edition = parseEdition(out)
	switch status.Edition {
	case "full":
		status.Availability = Available
	case "reader":
		status.Availability = InsufficientEdition
		status.Detail = "only Acrobat Reader is installed; it does not provide comparison automation"
	default:
		status.Detail = "Acrobat automation objects are not registered"
	}

	return status, nil
}

// teardown runs quit.js after an interrupted probe.
func (a *Acrobat) teardown(dir string) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTeardownTimeout)
	defer cancel()
	if _, err := a.run(ctx, dir, "quit.js"); err != nil {
		a.logger.Warn("quit after interrupted probe", zap.Error(err))
	}
}

// Open prepares a session directory holding the automation scripts. Acrobat
// itself starts on the first automation call.
func (a *Acrobat) Open(_ context.Context) (Session, error) {
	if a.goos != "windows" {
		return nil, fmt.Errorf("acrobat: open session: automation requires Windows (running on %s)", a.goos)
	}
	dir, err := a.materialize()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("session opened", zap.String("dir", dir))
	return &acrobatSession{acrobat: a, dir: dir}, nil
}

// materialize writes the embedded scripts into a fresh temporary directory.
func (a *Acrobat) materialize() (string, error) {
	dir, err := os.MkdirTemp("", "pdfcompare-acrobat-")
	if err != nil {
		return "", fmt.Errorf("acrobat: create script dir: %w", err)
	}

	err = fs.WalkDir(scriptdata.AcrobatFS, "acrobat", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := scriptdata.AcrobatFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", path, err)
		}
		return os.WriteFile(filepath.Join(dir, d.Name()), data, 0o644)
	})
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("acrobat: write scripts: %w", err)
	}

	return dir, nil
}

// run executes one script from dir under the script host.
func (a *Acrobat) run(ctx context.Context, dir, script string, args ...string) ([]byte, error) {
	argv := append([]string{"//NoLogo", "//E:JScript", filepath.Join(dir, script)}, args...)
	a.logger.Debug("running script", zap.String("script", script), zap.Strings("args", args))
	return a.runner.Run(ctx, a.host, argv...)
}

// acrobatSession owns one script directory. Acrobat is told to exit when the
// session closes unless the UI was handed to an operator.
type acrobatSession struct {
	acrobat *Acrobat
	dir     string

	mu        sync.Mutex
	closed    bool
	handedOff bool
}

func (s *acrobatSession) script(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}
	return s.acrobat.run(ctx, s.dir, name, args...)
}

func (s *acrobatSession) PageCount(ctx context.Context, doc string) (int, error) {
	abs, err := filepath.Abs(doc)
	if err != nil {
		return 0, fmt.Errorf("acrobat: page count: %w", err)
	}
	out, err := s.script(ctx, "pagecount.js", abs)
	if err != nil {
		return 0, fmt.Errorf("acrobat: page count of %s: %w", doc, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("acrobat: page count of %s: unexpected output %q", doc, strings.TrimSpace(string(out)))
	}
	return n, nil
}

func (s *acrobatSession) PageWords(ctx context.Context, doc string, page int) ([]Word, error) {
	if page < 1 {
		return nil, fmt.Errorf("acrobat: page %d out of range", page)
	}
	abs, err := filepath.Abs(doc)
	if err != nil {
		return nil, fmt.Errorf("acrobat: page words: %w", err)
	}
	out, err := s.script(ctx, "words.js", abs, strconv.Itoa(page-1))
	if err != nil {
		return nil, fmt.Errorf("acrobat: words of %s page %d: %w", doc, page, err)
	}
	return parseWords(out)
}

func (s *acrobatSession) Compare(ctx context.Context, first, second, out string, opts CompareOptions) error {
	if opts.Interactive || opts.TextOnly {
		return fmt.Errorf("acrobat: compare: %w: interactive or text-only comparison", ErrUnsupported)
	}
	absFirst, err := filepath.Abs(first)
	if err != nil {
		return fmt.Errorf("acrobat: compare: %w", err)
	}
	absSecond, err := filepath.Abs(second)
	if err != nil {
		return fmt.Errorf("acrobat: compare: %w", err)
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("acrobat: compare: %w", err)
	}

	_, err = s.script(ctx, "compare.js",
		absFirst, absSecond, deviceIndependentPath(absOut),
		strconv.Itoa(opts.StartPage), strconv.Itoa(opts.EndPage))
	if err != nil {
		return fmt.Errorf("acrobat: compare: %w", err)
	}
	return nil
}

func (s *acrobatSession) OpenCompareDialog(ctx context.Context, first, second string) error {
	absFirst, err := filepath.Abs(first)
	if err != nil {
		return fmt.Errorf("acrobat: manual compare: %w", err)
	}
	absSecond, err := filepath.Abs(second)
	if err != nil {
		return fmt.Errorf("acrobat: manual compare: %w", err)
	}
	if _, err := s.script(ctx, "manual.js", absFirst, absSecond); err != nil {
		return fmt.Errorf("acrobat: manual compare: %w", err)
	}

	s.mu.Lock()
	s.handedOff = true
	s.mu.Unlock()
	return nil
}

// Close exits Acrobat (unless an operator now owns its UI) and removes the
// session's scripts.
func (s *acrobatSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	handedOff := s.handedOff
	s.mu.Unlock()

	var quitErr error
	if !handedOff {
		ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
		_, quitErr = s.acrobat.run(ctx, s.dir, "quit.js")
		cancel()
		if quitErr != nil {
			quitErr = fmt.Errorf("acrobat: quit: %w", quitErr)
		}
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return errors.Join(quitErr, fmt.Errorf("acrobat: remove script dir: %w", err))
	}
	s.acrobat.logger.Debug("session closed", zap.Bool("handed_off", handedOff))
	return quitErr
}

// parseEdition extracts the edition from probe.js output.
func parseEdition(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, "edition="); ok {
			return v
		}
	}
	return "none"
}

// parseWords decodes words.js output: one "x\ty\tword" line per word.
func parseWords(out []byte) ([]Word, error) {
	var words []Word
	sc := bufio.NewScanner(bytes.NewReader(out))
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("acrobat: words line %d: want 3 fields, got %d", lineNo, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("acrobat: words line %d: x: %w", lineNo, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("acrobat: words line %d: y: %w", lineNo, err)
		}
		words = append(words, Word{Text: fields[2], X: x, Y: y})
	}
	return words, sc.Err()
}

// deviceIndependentPath converts a Windows path into the form Acrobat's
// JavaScript API expects: C:\dir\file.pdf becomes /C/dir/file.pdf.
func deviceIndependentPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	switch {
	case strings.HasPrefix(p, "//"):
		return p[1:]
	case len(p) >= 2 && p[1] == ':':
		return "/" + p[:1] + p[2:]
	default:
		return p
	}
}
