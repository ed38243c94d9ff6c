package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/report"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Compile-time check.
var _ Strategy = (*BasicMetadataReport)(nil)

// BasicMetadataReport is the terminal fallback. It needs no engine and
// compares only what the filesystem knows about both inputs.
type BasicMetadataReport struct {
	logger    *zap.Logger
	pageCount func(path string) (int, error)
	now       func() time.Time
}

// NewBasicMetadataReport creates the BasicMetadataReport strategy.
func NewBasicMetadataReport(logger *zap.Logger) *BasicMetadataReport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BasicMetadataReport{
		logger:    logger,
		pageCount: api.PageCountFile,
		now:       time.Now,
	}
}

func (b *BasicMetadataReport) Name() StrategyName { return StrategyBasicMetadata }

func (b *BasicMetadataReport) RequiresEngine() bool { return false }

func (b *BasicMetadataReport) Attempt(ctx context.Context, env Env) (*Result, error) {
	facts, err := CollectFacts(ctx, env.Request.First, env.Request.Second)
	if err != nil {
		return nil, err
	}
	identical := env.Identical || facts.Identical()

	text := b.render(env.Request, facts, identical, env.Prior)
	out := filepath.Join(env.StagingDir, "metadata.txt")
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write metadata report: %w", err)
	}

	note := fmt.Sprintf("%s: checksums differ", StrategyBasicMetadata)
	if identical {
		note = fmt.Sprintf("%s: no differences, documents are byte-identical", StrategyBasicMetadata)
	}
	return &Result{
		Success:      true,
		Kind:         report.TextReport,
		ArtifactPath: out,
		Identical:    identical,
		Diagnostics:  []string{note},
	}, nil
}

func (b *BasicMetadataReport) render(req Request, facts *PairFacts, identical bool, prior []string) string {
	var sb strings.Builder

	sb.WriteString("PDF Comparison Report\n")
	sb.WriteString("=====================\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", b.now().Format(time.RFC1123)))

	if identical {
		sb.WriteString("The documents are byte-identical; no comparison engine was needed.\n\n")
	} else {
		sb.WriteString("NOTICE: a full visual or text comparison was unavailable.\n")
		sb.WriteString("This report compares file metadata only. Content differences are\n")
		sb.WriteString("not detected beyond what the checksums reveal.\n\n")
	}

	b.writeFacts(&sb, "First document", facts.First)
	b.writeFacts(&sb, "Second document", facts.Second)

	sb.WriteString("Result\n------\n")
	switch {
	case identical:
		sb.WriteString("Files are the same size.\n")
		sb.WriteString("Checksums match.\n")
		sb.WriteString("No differences found.\n")
	default:
		if delta := facts.Second.Size - facts.First.Size; delta == 0 {
			sb.WriteString("Files are the same size.\n")
		} else {
			sb.WriteString(fmt.Sprintf("Sizes differ by %d bytes (%d vs %d).\n",
				abs64(delta), facts.First.Size, facts.Second.Size))
		}
		sb.WriteString("Checksums differ.\n")
		sb.WriteString(modTimeLine(facts.First.ModTime, facts.Second.ModTime))
	}

	if len(prior) > 0 {
		sb.WriteString("\nEarlier comparison attempts\n---------------------------\n")
		for _, p := range prior {
			sb.WriteString("- " + p + "\n")
		}
	}
	return sb.String()
}

func (b *BasicMetadataReport) writeFacts(sb *strings.Builder, title string, f FileFacts) {
	pages := "n/a"
	if n, err := b.countPages(f.Path); err == nil {
		pages = fmt.Sprint(n)
	} else {
		b.logger.Debug("page count unavailable", zap.String("path", f.Path), zap.Error(err))
	}

	sb.WriteString(title + "\n")
	sb.WriteString(fmt.Sprintf("  Path:     %s\n", f.Path))
	sb.WriteString(fmt.Sprintf("  Size:     %d bytes\n", f.Size))
	sb.WriteString(fmt.Sprintf("  Modified: %s\n", f.ModTime.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("  MD5:      %s\n", f.MD5))
	sb.WriteString(fmt.Sprintf("  Pages:    %s\n\n", pages))
}

// countPages is best effort; the parser may panic on damaged files.
func (b *BasicMetadataReport) countPages(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("page count panicked: %v", r)
		}
	}()
	return b.pageCount(path)
}

func modTimeLine(first, second time.Time) string {
	switch {
	case first.Equal(second):
		return "Modification times match.\n"
	case second.After(first):
		return fmt.Sprintf("Second document is newer by %s.\n", second.Sub(first).Round(time.Second))
	default:
		return fmt.Sprintf("First document is newer by %s.\n", first.Sub(second).Round(time.Second))
	}
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
