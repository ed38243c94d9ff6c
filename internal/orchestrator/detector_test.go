package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/engine/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// hangingEngine ignores its context while probing.
type hangingEngine struct {
	enginetest.Engine
	release chan struct{}
}

func (h *hangingEngine) Probe(_ context.Context) (engine.Status, error) {
	<-h.release
	return engine.Status{Availability: engine.Available}, nil
}

func TestDetector_Available(t *testing.T) {
	fake := &enginetest.Engine{Status: engine.Status{Availability: engine.Available, Edition: "full"}}
	core, logs := observer.New(zapcore.InfoLevel)

	status := NewDefaultDetector(fake, time.Second, zap.New(core)).Detect(context.Background())

	assert.True(t, status.Available())
	assert.Equal(t, "fake", status.Engine)
	assert.Equal(t, "full", status.Edition)
	require.Equal(t, 1, logs.FilterMessage("engine probed").Len())
	assert.Equal(t, 0, fake.OpenSessions())
}

func TestDetector_InsufficientEdition(t *testing.T) {
	fake := &enginetest.Engine{Status: engine.Status{Availability: engine.InsufficientEdition, Edition: "reader"}}

	status := NewDefaultDetector(fake, time.Second, nil).Detect(context.Background())

	assert.Equal(t, engine.InsufficientEdition, status.Availability)
	assert.Contains(t, status.Remediation(), "full edition")
}

func TestDetector_ErrorMapsToNotInstalled(t *testing.T) {
	fake := &enginetest.Engine{
		Status:   engine.Status{Availability: engine.Available},
		ProbeErr: errors.New("automation server refused"),
	}
	core, logs := observer.New(zapcore.WarnLevel)

	status := NewDefaultDetector(fake, time.Second, zap.New(core)).Detect(context.Background())

	assert.Equal(t, engine.NotInstalled, status.Availability)
	assert.Contains(t, status.Detail, "automation server refused")
	assert.Equal(t, 1, logs.FilterMessage("engine probe failed").Len())
}

func TestDetector_PanicMapsToNotInstalled(t *testing.T) {
	fake := &enginetest.Engine{ProbePanic: "COM exploded"}

	status := NewDefaultDetector(fake, time.Second, nil).Detect(context.Background())

	assert.Equal(t, engine.NotInstalled, status.Availability)
	assert.Contains(t, status.Detail, "COM exploded")
}

func TestDetector_Timeout(t *testing.T) {
	h := &hangingEngine{release: make(chan struct{})}
	defer close(h.release)
	core, logs := observer.New(zapcore.WarnLevel)

	d := NewDefaultDetector(h, 50*time.Millisecond, zap.New(core))
	d.settle = 50 * time.Millisecond

	start := time.Now()
	status := d.Detect(context.Background())

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, engine.NotInstalled, status.Availability)
	assert.Contains(t, status.Detail, "timed out")
	assert.Equal(t, 1, logs.FilterMessage("engine probe still running after timeout; engine processes may be left behind").Len())
}

// slowTeardownEngine honours cancellation but needs a moment to stop what
// its probe started.
type slowTeardownEngine struct {
	enginetest.Engine
	tornDown atomic.Bool
}

func (s *slowTeardownEngine) Probe(ctx context.Context) (engine.Status, error) {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	s.tornDown.Store(true)
	return engine.Status{}, ctx.Err()
}

func TestDetector_TimeoutWaitsForTeardown(t *testing.T) {
	e := &slowTeardownEngine{}

	status := NewDefaultDetector(e, 20*time.Millisecond, nil).Detect(context.Background())

	assert.Equal(t, engine.NotInstalled, status.Availability)
	assert.True(t, e.tornDown.Load(), "Detect returned before the probe cleaned up")
}

func TestDetector_DefaultTimeout(t *testing.T) {
	d := NewDefaultDetector(&enginetest.Engine{}, 0, nil)
	assert.Equal(t, DefaultConfig().ProbeTimeout, d.probeTimeout)
}
