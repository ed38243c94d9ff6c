// Package enginetest provides a scriptable in-memory engine for tests of
// code that drives an engine.Engine.
package enginetest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/dusk-indust/pdfcompare/internal/engine"
)

// Compile-time checks.
var (
	_ engine.Engine         = (*Engine)(nil)
	_ engine.Session        = (*session)(nil)
	_ engine.ManualComparer = (*manualSession)(nil)
)

// Engine is a fake engine. Configure the exported fields before use; the
// zero value probes as not installed.
type Engine struct {
	Status   engine.Status
	ProbeErr error
	// ProbePanic makes Probe panic with the given value.
	ProbePanic any

	OpenErr error

	// Pages maps a document path to its words per one-based page.
	Pages map[string][][]engine.Word

	CompareErr error
	// CompareOutput is written to the output path on a successful Compare.
	CompareOutput []byte
	// ComparePanic makes Compare panic with the given value.
	ComparePanic any
	// CompareBlock makes Compare wait for context cancellation.
	CompareBlock bool

	// Manual makes sessions implement engine.ManualComparer.
	Manual    bool
	ManualErr error

	mu     sync.Mutex
	calls  []string
	opened int
	closed int
}

// Name returns "fake".
func (e *Engine) Name() string { return "fake" }

func (e *Engine) record(call string) {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()
}

// Calls returns the operations performed so far, in order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Opened returns how many sessions were opened.
func (e *Engine) Opened() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened
}

// OpenSessions returns how many sessions are currently open.
func (e *Engine) OpenSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened - e.closed
}

func (e *Engine) Probe(ctx context.Context) (engine.Status, error) {
	e.record("probe")
	if e.ProbePanic != nil {
		panic(e.ProbePanic)
	}
	if err := ctx.Err(); err != nil {
		return engine.Status{Engine: e.Name()}, err
	}
	status := e.Status
	if status.Engine == "" {
		status.Engine = e.Name()
	}
	return status, e.ProbeErr
}

func (e *Engine) Open(_ context.Context) (engine.Session, error) {
	e.record("open")
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}

	e.mu.Lock()
	e.opened++
	e.mu.Unlock()

	s := &session{engine: e}
	if e.Manual {
		return &manualSession{session: s}, nil
	}
	return s, nil
}

type session struct {
	engine *Engine

	mu     sync.Mutex
	closed bool
}

func (s *session) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return engine.ErrSessionClosed
	}
	return nil
}

func (s *session) PageCount(_ context.Context, doc string) (int, error) {
	s.engine.record("page-count")
	if err := s.check(); err != nil {
		return 0, err
	}
	pages, ok := s.engine.Pages[doc]
	if !ok {
		return 0, fmt.Errorf("fake: unknown document %s", doc)
	}
	return len(pages), nil
}

func (s *session) PageWords(_ context.Context, doc string, page int) ([]engine.Word, error) {
	s.engine.record("page-words")
	if err := s.check(); err != nil {
		return nil, err
	}
	pages, ok := s.engine.Pages[doc]
	if !ok {
		return nil, fmt.Errorf("fake: unknown document %s", doc)
	}
	if page < 1 || page > len(pages) {
		return nil, fmt.Errorf("fake: page %d out of range", page)
	}
	return pages[page-1], nil
}

func (s *session) Compare(ctx context.Context, _, _, out string, _ engine.CompareOptions) error {
	s.engine.record("compare")
	if err := s.check(); err != nil {
		return err
	}
	if s.engine.ComparePanic != nil {
		panic(s.engine.ComparePanic)
	}
	if s.engine.CompareBlock {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.engine.CompareErr != nil {
		return s.engine.CompareErr
	}
	data := s.engine.CompareOutput
	if data == nil {
		data = []byte("%PDF-1.7\n% fake comparison\n")
	}
	return os.WriteFile(out, data, 0o644)
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.engine.record("close")
	s.engine.mu.Lock()
	s.engine.closed++
	s.engine.mu.Unlock()
	return nil
}

type manualSession struct {
	*session
}

func (s *manualSession) OpenCompareDialog(_ context.Context, _, _ string) error {
	s.engine.record("manual")
	if err := s.check(); err != nil {
		return err
	}
	return s.engine.ManualErr
}
