package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptCall records one script host invocation.
type scriptCall struct {
	Script string
	Args   []string
}

// fakeRunner answers script host invocations from a table keyed by script
// file name.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []scriptCall
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(args) < 3 || args[0] != "//NoLogo" || args[1] != "//E:JScript" {
		return nil, errors.New("unexpected script host arguments")
	}
	script := filepath.Base(args[2])
	if _, err := os.Stat(args[2]); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, scriptCall{Script: script, Args: args[3:]})

	if err := f.errs[script]; err != nil {
		return nil, err
	}
	return []byte(f.outputs[script]), nil
}

func (f *fakeRunner) scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		names = append(names, c.Script)
	}
	return names
}

func newTestAcrobat(r *fakeRunner) *Acrobat {
	a := NewAcrobat("", zap.NewNop())
	a.runner = r
	a.goos = "windows"
	return a
}

func TestAcrobat_ProbeEditions(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    Availability
		edition string
	}{
		{"full", "edition=full\r\n", Available, "full"},
		{"reader", "edition=reader\r\n", InsufficientEdition, "reader"},
		{"none", "edition=none\r\n", NotInstalled, "none"},
		{"garbage", "Microsoft (R) Windows Script Host\r\n", NotInstalled, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{outputs: map[string]string{"probe.js": tt.output}}
			status, err := newTestAcrobat(r).Probe(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Availability)
			assert.Equal(t, tt.edition, status.Edition)
			assert.Equal(t, NameAcrobat, status.Engine)
			assert.Equal(t, []string{"probe.js"}, r.scripts())
		})
	}
}

func TestAcrobat_ProbeNonWindows(t *testing.T) {
	r := &fakeRunner{}
	a := newTestAcrobat(r)
	a.goos = "linux"

	status, err := a.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NotInstalled, status.Availability)
	assert.Contains(t, status.Detail, "requires Windows")
	assert.Empty(t, r.scripts(), "no script host should be started")
}

func TestAcrobat_ProbeHostMissing(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"probe.js": exec.ErrNotFound}}
	status, err := newTestAcrobat(r).Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NotInstalled, status.Availability)
	assert.Contains(t, status.Detail, "cscript")
}

func TestAcrobat_ProbeFailure(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"probe.js": errors.New("exit status 1")}}
	status, err := newTestAcrobat(r).Probe(context.Background())
	require.Error(t, err)
	assert.Equal(t, NotInstalled, status.Availability)
}

func TestAcrobat_ProbeFailureLeavesAcrobatAlone(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"probe.js": errors.New("exit status 1")}}
	_, err := newTestAcrobat(r).Probe(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"probe.js"}, r.scripts())
}

func TestAcrobat_InterruptedProbeQuitsAcrobat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeRunner{errs: map[string]error{"probe.js": context.Canceled}}

	status, err := newTestAcrobat(r).Probe(ctx)
	require.Error(t, err)
	assert.Equal(t, NotInstalled, status.Availability)
	assert.Equal(t, []string{"probe.js", "quit.js"}, r.scripts())
}

func TestAcrobat_SessionOperations(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"pagecount.js": "3\r\n",
		"words.js":     "72\t720.5\tHello\r\n90.25\t720.5\tWorld\r\n",
		"compare.js":   "ok\r\n",
	}}
	a := newTestAcrobat(r)
	ctx := context.Background()

	sess, err := a.Open(ctx)
	require.NoError(t, err)

	n, err := sess.PageCount(ctx, "first.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	words, err := sess.PageWords(ctx, "first.pdf", 2)
	require.NoError(t, err)
	assert.Equal(t, []Word{{Text: "Hello", X: 72, Y: 720.5}, {Text: "World", X: 90.25, Y: 720.5}}, words)

	err = sess.Compare(ctx, "first.pdf", "second.pdf", "out.pdf", CompareOptions{StartPage: 0, EndPage: 2})
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close(), "Close must be idempotent")

	assert.Equal(t, []string{"pagecount.js", "words.js", "compare.js", "quit.js"}, r.scripts())

	// Page numbers are zero-based inside Acrobat.
	assert.Equal(t, "1", r.calls[1].Args[1])
	// Compare receives the page range and a device-independent output path.
	cmpArgs := r.calls[2].Args
	require.Len(t, cmpArgs, 5)
	assert.True(t, strings.HasSuffix(cmpArgs[2], "/out.pdf"))
	assert.Equal(t, []string{"0", "2"}, cmpArgs[3:])

	_, err = sess.PageCount(ctx, "first.pdf")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestAcrobat_CompareRejectsInteractive(t *testing.T) {
	r := &fakeRunner{}
	sess, err := newTestAcrobat(r).Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Compare(context.Background(), "a.pdf", "b.pdf", "out.pdf", CompareOptions{Interactive: true})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestAcrobat_ManualHandOffSkipsQuit(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"manual.js": "dialog\r\n"}}
	sess, err := newTestAcrobat(r).Open(context.Background())
	require.NoError(t, err)

	mc, ok := sess.(ManualComparer)
	require.True(t, ok, "acrobat sessions support manual comparison")
	require.NoError(t, mc.OpenCompareDialog(context.Background(), "a.pdf", "b.pdf"))
	require.NoError(t, sess.Close())

	assert.Equal(t, []string{"manual.js"}, r.scripts(), "Acrobat stays open for the operator")
}

func TestAcrobat_CloseRemovesScripts(t *testing.T) {
	r := &fakeRunner{}
	sess, err := newTestAcrobat(r).Open(context.Background())
	require.NoError(t, err)

	dir := sess.(*acrobatSession).dir
	_, err = os.Stat(filepath.Join(dir, "compare.js"))
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestParseWords_Malformed(t *testing.T) {
	_, err := parseWords([]byte("72\tHello\n"))
	require.Error(t, err)

	_, err = parseWords([]byte("x\t1\tHello\n"))
	require.Error(t, err)
}

func TestDeviceIndependentPath(t *testing.T) {
	assert.Equal(t, "/C/Reports/diff.pdf", deviceIndependentPath(`C:\Reports\diff.pdf`))
	assert.Equal(t, "/server/share/diff.pdf", deviceIndependentPath(`\\server\share\diff.pdf`))
	assert.Equal(t, "/tmp/diff.pdf", deviceIndependentPath("/tmp/diff.pdf"))
}

func TestNew(t *testing.T) {
	e, err := New(NameBuiltin, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, NameBuiltin, e.Name())

	e, err = New(NameAcrobat, Options{ScriptHost: "wscript"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "wscript", e.(*Acrobat).host)

	e, err = New(NameAuto, Options{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, e.Name())

	_, err = New("ghostscript", Options{}, nil)
	assert.Error(t, err)
}

func TestStatus_Remediation(t *testing.T) {
	assert.Empty(t, Status{Availability: Available}.Remediation())
	assert.Contains(t, Status{Availability: InsufficientEdition}.Remediation(), "full edition")
	assert.Contains(t, Status{Availability: NotInstalled}.Remediation(), "Install Adobe Acrobat")
}
