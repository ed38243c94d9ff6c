package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"rsc.io/pdf"
)

// Compile-time checks.
var (
	_ Engine  = (*Builtin)(nil)
	_ Session = (*builtinSession)(nil)
)

// Builtin is the in-process engine. It reads documents with rsc.io/pdf and
// can extract positioned words, but it has no visual comparison of its own.
type Builtin struct {
	logger *zap.Logger
}

// NewBuiltin creates the builtin engine.
func NewBuiltin(logger *zap.Logger) *Builtin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builtin{logger: logger.With(zap.String("engine", NameBuiltin))}
}

// Name returns "builtin".
func (b *Builtin) Name() string { return NameBuiltin }

// Probe always succeeds; the builtin engine ships with the binary.
func (b *Builtin) Probe(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{Engine: NameBuiltin, Availability: NotInstalled, Detail: err.Error()}, err
	}
	return Status{Engine: NameBuiltin, Availability: Available, Edition: "builtin"}, nil
}

// Open returns a session that opens documents lazily.
func (b *Builtin) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &builtinSession{logger: b.logger, docs: make(map[string]*builtinDoc)}, nil
}

type builtinDoc struct {
	file   *os.File
	reader *pdf.Reader
}

type builtinSession struct {
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	docs   map[string]*builtinDoc
}

// doc returns the parsed document at path, opening it on first use.
func (s *builtinSession) doc(path string) (*builtinDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	key, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if d, ok := s.docs[key]; ok {
		return d, nil
	}

	f, err := os.Open(key)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	var r *pdf.Reader
	err = safely(func() error {
		var perr error
		r, perr = pdf.NewReader(f, info.Size())
		return perr
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	d := &builtinDoc{file: f, reader: r}
	s.docs[key] = d
	return d, nil
}

func (s *builtinSession) PageCount(ctx context.Context, doc string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d, err := s.doc(doc)
	if err != nil {
		return 0, fmt.Errorf("builtin: page count: %w", err)
	}

	var n int
	err = safely(func() error {
		n = d.reader.NumPage()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("builtin: page count of %s: %w", doc, err)
	}
	return n, nil
}

func (s *builtinSession) PageWords(ctx context.Context, doc string, page int) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := s.doc(doc)
	if err != nil {
		return nil, fmt.Errorf("builtin: page words: %w", err)
	}

	var words []Word
	err = safely(func() error {
		if page < 1 || page > d.reader.NumPage() {
			return fmt.Errorf("page %d out of range 1..%d", page, d.reader.NumPage())
		}
		p := d.reader.Page(page)
		if p.V.IsNull() {
			return fmt.Errorf("page %d has no page object", page)
		}
		words = groupWords(p.Content().Text)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("builtin: words of %s: %w", doc, err)
	}
	return words, nil
}

// Compare is not available in the builtin engine.
func (s *builtinSession) Compare(_ context.Context, _, _, _ string, _ CompareOptions) error {
	return fmt.Errorf("builtin: visual comparison: %w", ErrUnsupported)
}

func (s *builtinSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for path, d := range s.docs {
		if err := d.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("builtin: close %s: %w", path, err)
		}
	}
	s.docs = nil
	return firstErr
}

// groupWords joins the per-glyph text runs produced by rsc.io/pdf into
// words. A word ends at whitespace, at a line change, or at a horizontal
// gap wider than a quarter of the font size.
func groupWords(texts []pdf.Text) []Word {
	var (
		words   []Word
		cur     strings.Builder
		start   pdf.Text
		lastEnd float64
		lastY   float64
	)

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, Word{Text: cur.String(), X: start.X, Y: start.Y})
			cur.Reset()
		}
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}

		size := t.FontSize
		if size <= 0 {
			size = 1
		}
		if cur.Len() > 0 {
			gap := t.X - lastEnd
			sameLine := math.Abs(t.Y-lastY) < size/2
			if !sameLine || gap > size/4 || gap < -size {
				flush()
			}
		}
		if t.S != strings.TrimLeftFunc(t.S, isSpace) {
			flush()
		}

		for i, field := range strings.Fields(t.S) {
			if i > 0 {
				flush()
			}
			if cur.Len() == 0 {
				start = t
			}
			cur.WriteString(field)
		}
		if t.S != strings.TrimRightFunc(t.S, isSpace) {
			flush()
		}

		lastEnd = t.X + t.W
		lastY = t.Y
	}
	flush()

	return words
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

// safely runs fn, converting a panic from the PDF parser into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()
	return fn()
}
