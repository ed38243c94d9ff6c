package mcptools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/export"
	"github.com/dusk-indust/pdfcompare/internal/orchestrator"
	"github.com/dusk-indust/pdfcompare/internal/status"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CompareService handles MCP tool calls. It wraps a Comparer; comparisons
// and probes are serialized because they share one external engine.
type CompareService struct {
	comparer orchestrator.Comparer
	now      func() time.Time

	mu sync.Mutex
}

// NewCompareService creates a CompareService backed by comparer.
func NewCompareService(comparer orchestrator.Comparer) *CompareService {
	return &CompareService{
		comparer: comparer,
		now:      time.Now,
	}
}

// ComparePDFs runs one comparison. Comparison failures are reported in the
// output, not as tool errors; only malformed input is a tool error.
func (s *CompareService) ComparePDFs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ComparePDFsInput,
) (*mcp.CallToolResult, ComparePDFsOutput, error) {
	if strings.TrimSpace(input.First) == "" || strings.TrimSpace(input.Second) == "" {
		return nil, ComparePDFsOutput{}, errors.New("first and second are required")
	}
	if strings.TrimSpace(input.OutputDir) == "" {
		return nil, ComparePDFsOutput{}, errors.New("outputDir is required")
	}

	req := orchestrator.NewRequest(input.First, input.Second, input.OutputDir, input.ReportName, s.now())

	s.mu.Lock()
	out, err := s.comparer.Compare(ctx, req)
	s.mu.Unlock()

	result := ComparePDFsOutput{
		Outcome:  export.ExportOutcome(req, out, err, s.now()),
		ExitCode: status.ExitCode(out, err),
	}
	if err != nil {
		result.Summary = status.Failure(out, err)
	} else {
		result.Summary = status.Summary(out, true)
	}
	return nil, result, nil
}

// ProbeEngine reports whether the comparison engine is usable. A probe
// starts and stops the engine, so it waits for any running comparison.
func (s *CompareService) ProbeEngine(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ProbeEngineInput,
) (*mcp.CallToolResult, ProbeEngineOutput, error) {
	s.mu.Lock()
	st := s.comparer.Probe(ctx)
	s.mu.Unlock()
	return nil, ProbeEngineOutput{Engine: *export.ExportEngine(st)}, nil
}
