package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/engine/enginetest"
	"github.com/stretchr/testify/require"
)

// writeDoc writes content to dir/name and returns the path.
func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testRequest creates two differing documents and an output directory.
func testRequest(t *testing.T) Request {
	t.Helper()
	dir := t.TempDir()
	first := writeDoc(t, dir, "first.pdf", "%PDF-1.4\nfirst document\n")
	second := writeDoc(t, dir, "second.pdf", "%PDF-1.4\nsecond document, a little longer\n")
	return NewRequest(first, second, filepath.Join(dir, "out"), "report", time.Now())
}

func words(texts ...string) []engine.Word {
	out := make([]engine.Word, len(texts))
	for i, s := range texts {
		out[i] = engine.Word{Text: s, X: float64(72 + 40*i), Y: 720}
	}
	return out
}

// availableEngine returns a fake engine that probes as available and knows
// the pages of both request documents.
func availableEngine(req Request) *enginetest.Engine {
	return &enginetest.Engine{
		Status: engine.Status{Availability: engine.Available, Edition: "full"},
		Pages: map[string][][]engine.Word{
			req.First:  {words("Hello", "World"), words("Page", "two")},
			req.Second: {words("Hello", "World"), words("Page", "2")},
		},
	}
}

// stubStrategy is a scriptable Strategy that records its attempts.
type stubStrategy struct {
	name     StrategyName
	requires bool
	res      *Result
	err      error
	panicVal any

	mu    *sync.Mutex
	order *[]StrategyName
	envs  []Env
}

func (s *stubStrategy) Name() StrategyName   { return s.name }
func (s *stubStrategy) RequiresEngine() bool { return s.requires }

func (s *stubStrategy) Attempt(_ context.Context, env Env) (*Result, error) {
	if s.mu != nil {
		s.mu.Lock()
		*s.order = append(*s.order, s.name)
		s.mu.Unlock()
	}
	s.envs = append(s.envs, env)
	if s.panicVal != nil {
		panic(s.panicVal)
	}
	return s.res, s.err
}
