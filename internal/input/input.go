// Package input validates the documents and output location of a comparison
// before any engine work starts.
package input

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtension is the document suffix pdfcompare accepts.
const DefaultExtension = ".pdf"

// ErrValidation matches every error returned by this package.
var ErrValidation = errors.New("validation failed")

// FileNotFoundError reports a document path that does not name a readable
// regular file.
type FileNotFoundError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FileNotFoundError) Error() string {
	if e == nil {
		return "file not found"
	}
	if e.Reason != "" {
		return fmt.Sprintf("file not found: %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

func (e *FileNotFoundError) Is(target error) bool { return target == ErrValidation }

// WrongExtensionError reports a document whose suffix is not the expected
// one.
type WrongExtensionError struct {
	Path     string
	Expected string
}

func (e *WrongExtensionError) Error() string {
	if e == nil {
		return "wrong extension"
	}
	got := filepath.Ext(e.Path)
	if got == "" {
		got = "none"
	}
	return fmt.Sprintf("wrong extension: %s: want %s, got %s", e.Path, e.Expected, got)
}

func (e *WrongExtensionError) Is(target error) bool { return target == ErrValidation }

// DirectoryCreateError reports an output directory that could not be
// created. Err carries the operating system's error.
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	if e == nil || e.Err == nil {
		return "cannot create output directory"
	}
	return fmt.Sprintf("cannot create output directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error { return e.Err }

func (e *DirectoryCreateError) Is(target error) bool { return target == ErrValidation }

// InvalidNameError reports a report name that cannot be used as a file name.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	if e == nil {
		return "invalid report name"
	}
	return fmt.Sprintf("invalid report name %q: %s", e.Name, e.Reason)
}

func (e *InvalidNameError) Is(target error) bool { return target == ErrValidation }

// Validate checks that path names an existing regular file and, only then,
// that its extension matches ext case-insensitively.
func Validate(path, ext string) error {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &FileNotFoundError{Path: path, Err: err}
	case err != nil:
		return &FileNotFoundError{Path: path, Reason: "cannot be accessed", Err: err}
	case info.IsDir():
		return &FileNotFoundError{Path: path, Reason: "is a directory"}
	}

	if !strings.EqualFold(filepath.Ext(path), ext) {
		return &WrongExtensionError{Path: path, Expected: ext}
	}
	return nil
}

// EnsureOutputDirectory creates path and any missing parents. An existing
// directory is left untouched.
func EnsureOutputDirectory(path string) error {
	if strings.TrimSpace(path) == "" {
		return &DirectoryCreateError{Path: path, Err: errors.New("empty path")}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &DirectoryCreateError{Path: path, Err: err}
	}
	return nil
}

// ValidateReportName rejects names that would escape the output directory
// or cannot be a file name.
func ValidateReportName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &InvalidNameError{Name: name, Reason: "empty"}
	case name == "." || name == "..":
		return &InvalidNameError{Name: name, Reason: "reserved"}
	case strings.ContainsAny(name, `/\`):
		return &InvalidNameError{Name: name, Reason: "contains a path separator"}
	case strings.ContainsRune(name, 0):
		return &InvalidNameError{Name: name, Reason: "contains a NUL byte"}
	}
	return nil
}
