package orchestrator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileFacts are the filesystem facts of one input document.
type FileFacts struct {
	Path    string
	Size    int64
	ModTime time.Time
	MD5     string
}

// PairFacts are the facts of both inputs.
type PairFacts struct {
	First  FileFacts
	Second FileFacts
}

// Identical reports whether both inputs have the same size and checksum.
func (p *PairFacts) Identical() bool {
	return p.First.Size == p.Second.Size && p.First.MD5 == p.Second.MD5
}

// CollectFacts stats and hashes both inputs in parallel. The first failure
// cancels the other hash.
func CollectFacts(ctx context.Context, first, second string) (*PairFacts, error) {
	var facts PairFacts
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := fileFacts(gctx, first)
		facts.First = f
		return err
	})
	g.Go(func() error {
		f, err := fileFacts(gctx, second)
		facts.Second = f
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &facts, nil
}

func fileFacts(ctx context.Context, path string) (FileFacts, error) {
	facts := FileFacts{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return facts, fmt.Errorf("facts: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return facts, fmt.Errorf("facts: stat %s: %w", path, err)
	}
	facts.Size = info.Size()
	facts.ModTime = info.ModTime()

	h := md5.New()
	if _, err := io.Copy(h, ctxReader{ctx: ctx, r: f}); err != nil {
		return facts, fmt.Errorf("facts: hash %s: %w", path, err)
	}
	facts.MD5 = hex.EncodeToString(h.Sum(nil))
	return facts, nil
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
