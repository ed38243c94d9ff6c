// Package engine defines the contract between the comparison pipeline and an
// external PDF comparison engine, plus the engines shipped with pdfcompare.
//
// An Engine is probed for availability and then opened into short-lived
// Sessions. A Session is exclusively owned by one strategy attempt and must be
// closed before another attempt opens a new one.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

var (
	// ErrUnsupported is returned by sessions for operations the engine does
	// not implement (for example, visual comparison in the builtin engine).
	ErrUnsupported = errors.New("engine: operation not supported")

	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("engine: session closed")
)

// Availability describes whether an engine can serve comparisons.
type Availability int

const (
	// NotInstalled means the engine could not be reached at all.
	NotInstalled Availability = iota

	// InsufficientEdition means the engine is installed but its edition or
	// license lacks the automation features pdfcompare needs.
	InsufficientEdition

	// Available means the engine answered the handshake with full features.
	Available
)

func (a Availability) String() string {
	switch a {
	case NotInstalled:
		return "not-installed"
	case InsufficientEdition:
		return "insufficient-edition"
	case Available:
		return "available"
	default:
		return "unknown"
	}
}

// Status is the outcome of probing an engine.
type Status struct {
	Engine       string
	Availability Availability
	Edition      string // engine-reported edition, e.g. "full" or "reader"
	Detail       string // human-readable reason when not Available
}

// Available reports whether the engine can be used for comparisons.
func (s Status) Available() bool { return s.Availability == Available }

// Remediation returns the user-facing hint for an unavailable engine.
func (s Status) Remediation() string {
	switch s.Availability {
	case Available:
		return ""
	case InsufficientEdition:
		return "Install the full edition of Adobe Acrobat (Standard or Pro); Acrobat Reader does not expose the comparison automation interface."
	default:
		return "Install Adobe Acrobat (Standard or Pro) on this machine, or run with --engine builtin for a text-level comparison."
	}
}

// Word is a single word extracted from a page with its position in PDF
// user-space points (origin bottom-left).
type Word struct {
	Text string
	X    float64
	Y    float64
}

// CompareOptions controls the engine's native comparison.
type CompareOptions struct {
	// StartPage and EndPage are zero-based and inclusive, referring to the
	// first document.
	StartPage int
	EndPage   int

	// Interactive lets the engine show UI during comparison.
	Interactive bool

	// TextOnly restricts the comparison to text instead of full page content.
	TextOnly bool
}

// Engine is an external comparison provider.
type Engine interface {
	// Name identifies the engine in logs and reports.
	Name() string

	// Probe performs a minimal handshake and reports availability. It must
	// not leave any engine process running.
	Probe(ctx context.Context) (Status, error)

	// Open acquires a new exclusive session.
	Open(ctx context.Context) (Session, error)
}

// Session is an exclusively-owned handle to a running engine.
type Session interface {
	// PageCount returns the number of pages in doc.
	PageCount(ctx context.Context, doc string) (int, error)

	// PageWords returns the words on a one-based page of doc in reading
	// order.
	PageWords(ctx context.Context, doc string, page int) ([]Word, error)

	// Compare runs the engine's native comparison and writes the
	// synthesized report document to out.
	Compare(ctx context.Context, first, second, out string, opts CompareOptions) error

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// ManualComparer is implemented by sessions that can hand a comparison over
// to a human operator through the engine's own user interface.
type ManualComparer interface {
	// OpenCompareDialog opens both documents and the engine's interactive
	// compare tool. Success only means the UI was driven; nothing confirms
	// the operator completed the comparison.
	OpenCompareDialog(ctx context.Context, first, second string) error
}

// Engine names accepted by New.
const (
	NameAuto    = "auto"
	NameAcrobat = "acrobat"
	NameBuiltin = "builtin"
)

// DefaultScriptHost runs the Acrobat engine's JScript files.
const DefaultScriptHost = "cscript"

// Options configures engines built by New.
type Options struct {
	// ScriptHost is the Windows Script Host executable used by the Acrobat
	// engine. Defaults to "cscript".
	ScriptHost string
}

// New returns the engine registered under name. "auto" selects Acrobat on
// Windows and the builtin engine everywhere else.
func New(name string, opts Options, logger *zap.Logger) (Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" || name == NameAuto {
		name = NameBuiltin
		if runtime.GOOS == "windows" {
			name = NameAcrobat
		}
	}

	switch name {
	case NameAcrobat:
		return NewAcrobat(opts.ScriptHost, logger), nil
	case NameBuiltin:
		return NewBuiltin(logger), nil
	default:
		return nil, fmt.Errorf("engine: unknown engine %q (want %s, %s or %s)", name, NameAuto, NameAcrobat, NameBuiltin)
	}
}
