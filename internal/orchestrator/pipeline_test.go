package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/engine/enginetest"
	"github.com/dusk-indust/pdfcompare/internal/input"
	"github.com/dusk-indust/pdfcompare/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, cfg Config, eng engine.Engine) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, eng, nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func drain(p *Pipeline) []ProgressEvent {
	var events []ProgressEvent
	for {
		select {
		case ev := <-p.Progress():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func stagingDirs(t *testing.T, runID string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "pdfcompare-"+runID+"-*"))
	require.NoError(t, err)
	return matches
}

func TestPipeline_IdenticalFilesEngineUnavailable(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("0123456789", 1024)
	first := writeDoc(t, dir, "a.pdf", content)
	second := writeDoc(t, dir, "b.pdf", content)
	outDir := filepath.Join(dir, "reports")
	fake := &enginetest.Engine{}

	p := newTestPipeline(t, DefaultConfig(), fake)
	out, err := p.Compare(context.Background(), NewRequest(first, second, outDir, "same", time.Now()))
	require.NoError(t, err)

	assert.Equal(t, engine.NotInstalled, out.Engine.Availability)
	assert.Equal(t, StrategyBasicMetadata, out.Result.Strategy)
	assert.True(t, out.Result.Identical)
	assert.True(t, out.Verified)
	assert.Equal(t, filepath.Join(outDir, "same.txt"), out.ReportPath)

	data, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Files are the same size.")
	assert.Contains(t, string(data), "Checksums match.")
	assert.Equal(t, 0, fake.Opened())
	assert.Empty(t, stagingDirs(t, out.RunID))
}

func TestPipeline_NativeCompare(t *testing.T) {
	req := testRequest(t)
	fake := availableEngine(req)
	fake.CompareOutput = []byte("%PDF-1.7 native diff")

	p := newTestPipeline(t, DefaultConfig(), fake)
	out, err := p.Compare(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StrategyNativeCompare, out.Result.Strategy)
	assert.Equal(t, filepath.Join(req.OutputDir, "report.pdf"), out.ReportPath)
	data, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 native diff", string(data))
	assert.Equal(t, 0, fake.OpenSessions())
	assert.NotEmpty(t, out.RunID)
	assert.Empty(t, stagingDirs(t, out.RunID))

	var steps []string
	for _, ev := range drain(p) {
		if ev.Status == ProgressComplete {
			steps = append(steps, ev.Step)
		}
	}
	assert.Equal(t, []string{
		string(StageValidation),
		string(StageProvider),
		string(StrategyNativeCompare),
		string(StageReport),
	}, steps)
}

func TestPipeline_SameNameReplaces(t *testing.T) {
	req := testRequest(t)
	fake := availableEngine(req)

	p := newTestPipeline(t, DefaultConfig(), fake)
	fake.CompareOutput = []byte("first run")
	out1, err := p.Compare(context.Background(), req)
	require.NoError(t, err)
	fake.CompareOutput = []byte("second run")
	out2, err := p.Compare(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, out1.ReportPath, out2.ReportPath)
	data, err := os.ReadFile(out2.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, "second run", string(data))
	assert.NotEqual(t, out1.RunID, out2.RunID)
}

func TestPipeline_ValidationFailsBeforeProbe(t *testing.T) {
	req := testRequest(t)
	req.Second = filepath.Join(filepath.Dir(req.First), "missing.txt")
	fake := availableEngine(req)

	p := newTestPipeline(t, DefaultConfig(), fake)
	out, err := p.Compare(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, out)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageValidation, runErr.Stage)
	assert.ErrorIs(t, err, input.ErrValidation)
	var notFound *input.FileNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Empty(t, fake.Calls())
}

func TestPipeline_RequireEngine(t *testing.T) {
	req := testRequest(t)
	fake := &enginetest.Engine{Status: engine.Status{Availability: engine.InsufficientEdition, Edition: "reader"}}
	cfg := DefaultConfig()
	cfg.RequireEngine = true

	p := newTestPipeline(t, cfg, fake)
	out, err := p.Compare(context.Background(), req)
	require.Error(t, err)

	var unavailable *ProviderUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, engine.InsufficientEdition, unavailable.Status.Availability)
	require.NotNil(t, out)
	assert.Nil(t, out.Result)
	assert.Equal(t, 0, fake.Opened())
	_, statErr := os.Stat(req.OutputDir)
	assert.NoError(t, statErr, "output directory is created during validation")
}

func TestPipeline_DegradesWithoutEngine(t *testing.T) {
	req := testRequest(t)
	fake := &enginetest.Engine{ProbeErr: errors.New("cscript not found")}

	p := newTestPipeline(t, DefaultConfig(), fake)
	out, err := p.Compare(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StrategyBasicMetadata, out.Result.Strategy)
	assert.Equal(t, report.TextReport, out.Result.Kind)
	assert.Equal(t, filepath.Join(req.OutputDir, "report.txt"), out.ReportPath)
	assert.Equal(t, []string{"probe"}, fake.Calls())
}

func TestPipeline_ScenarioC(t *testing.T) {
	req := testRequest(t)
	fake := availableEngine(req)
	fake.CompareErr = errors.New("comparePages threw")

	p := newTestPipeline(t, DefaultConfig(), fake)
	out, err := p.Compare(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StrategyAlternative, out.Result.Strategy)
	assert.Equal(t, filepath.Join(req.OutputDir, "report.pdf"), out.ReportPath)
	assert.Contains(t, out.Result.Diagnostics[0], "comparePages threw")
	assert.True(t, report.Verify(out.ReportPath))
}

func TestPipeline_ReportWriteError(t *testing.T) {
	req := testRequest(t)
	fake := availableEngine(req)
	// A non-empty directory squatting on the report path makes the final
	// rename fail even when running as root.
	squat := filepath.Join(req.OutputDir, "report.pdf")
	require.NoError(t, os.MkdirAll(filepath.Join(squat, "keep"), 0o755))

	p := newTestPipeline(t, DefaultConfig(), fake)
	out, err := p.Compare(context.Background(), req)
	require.Error(t, err)

	var writeErr *report.WriteError
	require.ErrorAs(t, err, &writeErr)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageReport, runErr.Stage)
	require.NotNil(t, out)
	assert.False(t, out.Verified)

	entries, err := os.ReadDir(req.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no partial file may be left behind")
	assert.Equal(t, "report.pdf", entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestPipeline_ExhaustedError(t *testing.T) {
	req := testRequest(t)
	cfg := DefaultConfig()
	cfg.Strategies = []StrategyName{StrategyNativeCompare}
	fake := availableEngine(req)
	fake.CompareErr = errors.New("nope")

	p := newTestPipeline(t, cfg, fake)
	out, err := p.Compare(context.Background(), req)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Attempts, 1)
	require.NotNil(t, out)
	assert.Nil(t, out.Result)
	assert.Empty(t, stagingDirs(t, out.RunID))
}

func TestPipeline_AdvisoryResult(t *testing.T) {
	req := testRequest(t)
	cfg := DefaultConfig()
	cfg.Strategies = []StrategyName{StrategyManualEscalation, StrategyBasicMetadata}
	cfg.PollInterval = 10 * time.Millisecond
	fake := &enginetest.Engine{Status: engine.Status{Availability: engine.Available}, Manual: true}

	t.Run("unconfirmed", func(t *testing.T) {
		p := newTestPipeline(t, cfg, fake)
		out, err := p.Compare(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, out.Result.Advisory)
		assert.False(t, out.Verified)
		assert.Equal(t, filepath.Join(req.OutputDir, "report.pdf"), out.ReportPath)
		_, statErr := os.Stat(out.ReportPath)
		assert.True(t, os.IsNotExist(statErr), "advisory results are never written by the pipeline")
	})

	t.Run("saved by operator", func(t *testing.T) {
		cfg := cfg
		cfg.ManualWait = 5 * time.Second
		p := newTestPipeline(t, cfg, fake)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.MkdirAll(req.OutputDir, 0o755)
			_ = os.WriteFile(filepath.Join(req.OutputDir, "report.pdf"), []byte("%PDF saved by hand"), 0o644)
		}()

		out, err := p.Compare(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, out.Result.Advisory)
		assert.True(t, out.Verified)
	})
}

func TestPipeline_DefaultReportName(t *testing.T) {
	req := testRequest(t)
	req.ReportName = ""
	fake := &enginetest.Engine{}

	p := newTestPipeline(t, DefaultConfig(), fake)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local) }
	out, err := p.Compare(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "PDF_Comparison_20260102_030405", out.Request.ReportName)
	assert.Equal(t, filepath.Join(req.OutputDir, "PDF_Comparison_20260102_030405.txt"), out.ReportPath)
}

func TestNewPipeline_UnknownStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategies = []StrategyName{"telepathy"}
	_, err := NewPipeline(cfg, &enginetest.Engine{}, nil)
	assert.Error(t, err)
}

func TestPipeline_Probe(t *testing.T) {
	fake := &enginetest.Engine{Status: engine.Status{Availability: engine.Available, Edition: "full"}}
	p := newTestPipeline(t, DefaultConfig(), fake)

	status := p.Probe(context.Background())
	assert.True(t, status.Available())
	assert.Equal(t, 0, fake.Opened())
}
