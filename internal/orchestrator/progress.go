package orchestrator

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// progressBuffer is enough for every event of one run with room to spare.
const progressBuffer = 64

// ProgressReporter fans pipeline events out to a single consumer. Emit never
// blocks the pipeline: when nobody drains the channel (the MCP server, for
// example) events beyond the buffer are counted and discarded.
type ProgressReporter struct {
	events  chan ProgressEvent
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewProgressReporter creates a ProgressReporter.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{events: make(chan ProgressEvent, progressBuffer)}
}

// Emit queues ev for the consumer. Events emitted after Close are ignored.
func (pr *ProgressReporter) Emit(ev ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	select {
	case pr.events <- ev:
	default:
		pr.dropped.Add(1)
	}
}

// Subscribe returns the event stream. It is closed by Close.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.events
}

// Dropped returns how many events were discarded because the buffer was full.
func (pr *ProgressReporter) Dropped() int64 {
	return pr.dropped.Load()
}

// Close ends the stream. It may be called more than once.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if !pr.closed {
		pr.closed = true
		close(pr.events)
	}
}

// progressLines maps a status to its marker and whether the message is shown.
var progressLines = map[ProgressStatus]struct {
	format      string
	withMessage bool
}{
	ProgressPending:  {"  ○ %s (pending)", false},
	ProgressWorking:  {"  ● %s...", false},
	ProgressComplete: {"  ✓ %s complete", false},
	ProgressFailed:   {"  ✗ %s failed: %s", true},
	ProgressSkipped:  {"  - %s skipped: %s", true},
}

// FormatProgress renders ev as one status line.
func FormatProgress(ev ProgressEvent) string {
	line, ok := progressLines[ev.Status]
	switch {
	case !ok:
		return fmt.Sprintf("  ? %s (unknown status)", ev.Step)
	case line.withMessage:
		return fmt.Sprintf(line.format, ev.Step, ev.Message)
	default:
		return fmt.Sprintf(line.format, ev.Step)
	}
}

// FormatRunHeader formats the header printed before a run's progress lines.
func FormatRunHeader(req Request) string {
	return fmt.Sprintf("Comparing %s with %s", req.First, req.Second)
}
