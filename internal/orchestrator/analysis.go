package orchestrator

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/report"
	"github.com/go-pdf/fpdf"
)

// Compile-time check.
var _ Strategy = (*AlternativeAnalysis)(nil)

// PageVerdict is the positional comparison of one page pair.
type PageVerdict struct {
	Page        int // 1-based
	FirstWords  int
	SecondWords int
	Mismatches  int

	// FirstDifference describes the first mismatch, if any.
	FirstDifference string
}

// Match reports whether the page pair is positionally equal.
func (v PageVerdict) Match() bool { return v.Mismatches == 0 }

// Analysis is the outcome of comparing two documents page by page.
type Analysis struct {
	FirstPages  int
	SecondPages int

	// Pages holds one verdict per compared page, in page order.
	Pages []PageVerdict
}

// Compared is the number of page pairs compared.
func (a *Analysis) Compared() int { return min(a.FirstPages, a.SecondPages) }

// SkippedTrailing is the number of pages of the longer document that have no
// counterpart. They are not compared and not counted as differences.
func (a *Analysis) SkippedTrailing() int {
	if a.FirstPages > a.SecondPages {
		return a.FirstPages - a.SecondPages
	}
	return a.SecondPages - a.FirstPages
}

// Matching counts the pages without differences.
func (a *Analysis) Matching() int {
	n := 0
	for _, p := range a.Pages {
		if p.Match() {
			n++
		}
	}
	return n
}

// ComparePageWords compares two pages' words in reading order. Two words
// match when their text is equal and both coordinates lie within tolerance.
// Every unmatched index counts as one mismatch.
func ComparePageWords(page int, first, second []engine.Word, tolerance float64) PageVerdict {
	v := PageVerdict{
		Page:        page,
		FirstWords:  len(first),
		SecondWords: len(second),
	}

	n := min(len(first), len(second))
	for i := 0; i < n; i++ {
		a, b := first[i], second[i]
		if a.Text == b.Text && math.Abs(a.X-b.X) <= tolerance && math.Abs(a.Y-b.Y) <= tolerance {
			continue
		}
		v.Mismatches++
		if v.FirstDifference == "" {
			v.FirstDifference = fmt.Sprintf("word %d: %q at (%.1f, %.1f) vs %q at (%.1f, %.1f)",
				i+1, a.Text, a.X, a.Y, b.Text, b.X, b.Y)
		}
	}

	extra := len(first) - len(second)
	if extra < 0 {
		extra = -extra
	}
	if extra > 0 {
		v.Mismatches += extra
		if v.FirstDifference == "" {
			v.FirstDifference = fmt.Sprintf("word count differs: %d vs %d", len(first), len(second))
		}
	}
	return v
}

// AlternativeAnalysis extracts positioned words from corresponding pages of
// both documents through the engine and authors a pass/fail summary PDF.
type AlternativeAnalysis struct {
	tolerance float64
	now       func() time.Time
}

// NewAlternativeAnalysis creates the AlternativeEngineAnalysis strategy.
func NewAlternativeAnalysis(tolerance float64) *AlternativeAnalysis {
	return &AlternativeAnalysis{tolerance: tolerance, now: time.Now}
}

func (a *AlternativeAnalysis) Name() StrategyName { return StrategyAlternative }

func (a *AlternativeAnalysis) RequiresEngine() bool { return true }

func (a *AlternativeAnalysis) Attempt(ctx context.Context, env Env) (*Result, error) {
	if env.Session == nil {
		return nil, fmt.Errorf("no engine session")
	}

	analysis, err := a.Analyze(ctx, env.Session, env.Request.First, env.Request.Second)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(env.StagingDir, "text-analysis.pdf")
	if err := a.writeReport(out, env.Request, analysis); err != nil {
		return nil, fmt.Errorf("author analysis report: %w", err)
	}

	notes := []string{fmt.Sprintf("%s: %d of %d compared pages match",
		StrategyAlternative, analysis.Matching(), analysis.Compared())}
	if skipped := analysis.SkippedTrailing(); skipped > 0 {
		notes = append(notes, fmt.Sprintf("%s: %d trailing page(s) of the longer document were not compared",
			StrategyAlternative, skipped))
	}

	return &Result{
		Success:      true,
		Kind:         report.VisualReport,
		ArtifactPath: out,
		Diagnostics:  notes,
	}, nil
}

// Analyze compares the page pairs both documents have.
func (a *AlternativeAnalysis) Analyze(ctx context.Context, s engine.Session, first, second string) (*Analysis, error) {
	firstPages, err := s.PageCount(ctx, first)
	if err != nil {
		return nil, err
	}
	secondPages, err := s.PageCount(ctx, second)
	if err != nil {
		return nil, err
	}

	res := &Analysis{FirstPages: firstPages, SecondPages: secondPages}
	for page := 1; page <= res.Compared(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fw, err := s.PageWords(ctx, first, page)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", page, filepath.Base(first), err)
		}
		sw, err := s.PageWords(ctx, second, page)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", page, filepath.Base(second), err)
		}
		res.Pages = append(res.Pages, ComparePageWords(page, fw, sw, a.tolerance))
	}
	return res, nil
}

func (a *AlternativeAnalysis) writeReport(path string, req Request, an *Analysis) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("PDF comparison (text analysis)", true)
	pdf.SetCreator("pdfcompare", true)
	pdf.SetMargins(48, 48, 48)
	pdf.SetAutoPageBreak(true, 48)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 22, "PDF comparison (text analysis)", "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 14, tr(fmt.Sprintf("First:  %s (%d pages)\nSecond: %s (%d pages)\nGenerated: %s",
		req.First, an.FirstPages, req.Second, an.SecondPages,
		a.now().Format(time.RFC1123))), "", "L", false)
	pdf.Ln(6)
	pdf.MultiCell(0, 14, tr(fmt.Sprintf(
		"The visual comparison was unavailable. Words and their positions were compared "+
			"page by page with a tolerance of %.2f pt.", a.tolerance)), "", "L", false)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(50, 16, "Page", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 16, "Words (1st)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 16, "Words (2nd)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 16, "Result", "1", 0, "C", false, 0, "")
	pdf.CellFormat(0, 16, "First difference", "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, p := range an.Pages {
		result := "PASS"
		if !p.Match() {
			result = "FAIL"
			pdf.SetTextColor(170, 0, 0)
		}
		pdf.CellFormat(50, 14, fmt.Sprint(p.Page), "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 14, fmt.Sprint(p.FirstWords), "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 14, fmt.Sprint(p.SecondWords), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 14, result, "1", 0, "C", false, 0, "")
		pdf.CellFormat(0, 14, tr(truncate(p.FirstDifference, 60)), "1", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.MultiCell(0, 14, fmt.Sprintf("%d of %d compared pages match.", an.Matching(), an.Compared()), "", "L", false)
	if skipped := an.SkippedTrailing(); skipped > 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 14, fmt.Sprintf(
			"Note: the documents differ in length. %d trailing page(s) of the longer document "+
				"were NOT compared and are NOT counted as differences.", skipped), "", "L", false)
	}

	return pdf.OutputFileAndClose(path)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
