// Package report persists comparison artifacts under deterministic names in
// the output directory.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Kind classifies a comparison artifact.
type Kind int

const (
	// VisualReport is an engine-produced or engine-derived PDF.
	VisualReport Kind = iota
	// TextReport is a plain-text summary.
	TextReport
	// ErrorReport is a PDF describing a failed comparison.
	ErrorReport
)

func (k Kind) String() string {
	switch k {
	case VisualReport:
		return "visual-report"
	case TextReport:
		return "text-report"
	case ErrorReport:
		return "error-report"
	default:
		return "unknown"
	}
}

// Extension returns the file suffix, without the dot, for artifacts of k.
func (k Kind) Extension() string {
	if k == TextReport {
		return "txt"
	}
	return "pdf"
}

// NamePrefix starts every default report name.
const NamePrefix = "PDF_Comparison_"

// DefaultName returns the report name used when the caller supplies none:
// PDF_Comparison_<local time to the second>.
func DefaultName(now time.Time) string {
	return NamePrefix + now.Local().Format("20060102_150405")
}

// FinalPath returns where an artifact of kind named name is stored in dir.
func FinalPath(dir, name string, kind Kind) string {
	return filepath.Join(dir, name+"."+kind.Extension())
}

// WriteError reports a failure to persist the artifact.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e == nil || e.Err == nil {
		return "report write failed"
	}
	return fmt.Sprintf("report write failed for %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Write copies the staged artifact src into dir as {name}.{ext}. The copy is
// written to a temporary file and renamed into place, so an existing report
// with the same name is replaced and a failed write leaves nothing behind.
// Name collisions are not detected.
func Write(src string, kind Kind, dir, name string) (string, error) {
	final := FinalPath(dir, name, kind)
	if err := copyAtomic(src, dir, final); err != nil {
		return "", &WriteError{Path: final, Err: err}
	}
	return final, nil
}

func copyAtomic(src, dir, final string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open staged artifact: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(final)+".*.partial")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err = os.Rename(tmpName, final); err != nil {
		return err
	}
	return nil
}

// Verify reports whether a non-empty artifact exists at path. Results that
// only claim an artifact (manual escalation) must be checked this way.
func Verify(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// WaitFor polls Verify every interval until it succeeds or timeout passes.
func WaitFor(path string, timeout, interval time.Duration) bool {
	if Verify(path) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-deadline.C:
			return Verify(path)
		case <-tick.C:
			if Verify(path) {
				return true
			}
		}
	}
}
