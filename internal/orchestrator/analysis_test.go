package orchestrator

import (
	"context"
	"os"
	"testing"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/engine/enginetest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparePageWords(t *testing.T) {
	base := []engine.Word{{Text: "Total", X: 72, Y: 700}, {Text: "42", X: 130, Y: 700}}

	tests := []struct {
		name   string
		second []engine.Word
		want   PageVerdict
	}{
		{
			name:   "identical",
			second: base,
			want:   PageVerdict{Page: 1, FirstWords: 2, SecondWords: 2},
		},
		{
			name:   "within tolerance",
			second: []engine.Word{{Text: "Total", X: 72.8, Y: 699.5}, {Text: "42", X: 130, Y: 700}},
			want:   PageVerdict{Page: 1, FirstWords: 2, SecondWords: 2},
		},
		{
			name:   "moved beyond tolerance",
			second: []engine.Word{{Text: "Total", X: 72, Y: 700}, {Text: "42", X: 140, Y: 700}},
			want: PageVerdict{
				Page: 1, FirstWords: 2, SecondWords: 2, Mismatches: 1,
				FirstDifference: `word 2: "42" at (130.0, 700.0) vs "42" at (140.0, 700.0)`,
			},
		},
		{
			name:   "changed text",
			second: []engine.Word{{Text: "Total", X: 72, Y: 700}, {Text: "43", X: 130, Y: 700}},
			want: PageVerdict{
				Page: 1, FirstWords: 2, SecondWords: 2, Mismatches: 1,
				FirstDifference: `word 2: "42" at (130.0, 700.0) vs "43" at (130.0, 700.0)`,
			},
		},
		{
			name:   "missing word",
			second: base[:1],
			want: PageVerdict{
				Page: 1, FirstWords: 2, SecondWords: 1, Mismatches: 1,
				FirstDifference: "word count differs: 2 vs 1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComparePageWords(1, base, tt.second, 1.0)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ComparePageWords mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.want.Mismatches == 0, got.Match())
		})
	}
}

func TestAnalyze_SkipsTrailingPages(t *testing.T) {
	fake := &enginetest.Engine{
		Pages: map[string][][]engine.Word{
			"a.pdf": {words("one"), words("two")},
			"b.pdf": {words("one"), words("TWO"), words("three"), words("four")},
		},
	}
	session, err := fake.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	an, err := NewAlternativeAnalysis(1.0).Analyze(context.Background(), session, "a.pdf", "b.pdf")
	require.NoError(t, err)

	assert.Equal(t, 2, an.FirstPages)
	assert.Equal(t, 4, an.SecondPages)
	assert.Equal(t, 2, an.Compared())
	assert.Equal(t, 2, an.SkippedTrailing())
	assert.Equal(t, 1, an.Matching())
	require.Len(t, an.Pages, 2)
	assert.True(t, an.Pages[0].Match())
	assert.False(t, an.Pages[1].Match())
}

func TestAlternativeAnalysis_Attempt(t *testing.T) {
	req := testRequest(t)
	fake := availableEngine(req)
	fake.Pages[req.Second] = append(fake.Pages[req.Second], words("extra"))
	session, err := fake.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	res, err := NewAlternativeAnalysis(1.0).Attempt(context.Background(), Env{
		Request:    req,
		Session:    session,
		StagingDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{
		"alternative-engine-analysis: 1 of 2 compared pages match",
		"alternative-engine-analysis: 1 trailing page(s) of the longer document were not compared",
	}, res.Diagnostics)

	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestAlternativeAnalysis_NeedsSession(t *testing.T) {
	_, err := NewAlternativeAnalysis(1.0).Attempt(context.Background(), Env{})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
