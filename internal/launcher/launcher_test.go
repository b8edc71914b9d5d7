package launcher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// countingPauser records how many times the launcher paused.
type countingPauser struct {
	calls int
}

func (p *countingPauser) Pause() error {
	p.calls++
	return nil
}

func lookupFound(path string) LookupFunc {
	return func(string) (string, error) { return path, nil }
}

func lookupMissing(string) (string, error) {
	return "", exec.ErrNotFound
}

// TestLaunch covers the three launcher outcomes: missing tool, success,
// and failure of the dispatched program.
func TestLaunch(t *testing.T) {
	tests := []struct {
		name       string
		lookup     LookupFunc
		runCode    int
		wantCode   int
		wantRun    bool
		wantPauses int
		wantStderr string
	}{
		{
			name:       "tool missing exits 1 without running",
			lookup:     lookupMissing,
			runCode:    0,
			wantCode:   1,
			wantRun:    false,
			wantPauses: 1,
			wantStderr: "uv not found",
		},
		{
			name:       "success exits 0 without pausing",
			lookup:     lookupFound("/usr/bin/uv"),
			runCode:    0,
			wantCode:   0,
			wantRun:    true,
			wantPauses: 0,
		},
		{
			name:       "failure surfaces the program's code and pauses",
			lookup:     lookupFound("/usr/bin/uv"),
			runCode:    42,
			wantCode:   42,
			wantRun:    true,
			wantPauses: 1,
			wantStderr: "exited with code 42",
		},
		{
			name:       "exit code 1 from the program is not confused with tool missing",
			lookup:     lookupFound("/usr/bin/uv"),
			runCode:    1,
			wantCode:   1,
			wantRun:    true,
			wantPauses: 1,
			wantStderr: "exited with code 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pauser := &countingPauser{}
			var stderr bytes.Buffer
			l := New(WithLookup(tt.lookup), WithPauser(pauser), WithStderr(&stderr))

			ran := false
			var gotPath string
			code := l.Launch(context.Background(), "uv", func(_ context.Context, path string) int {
				ran = true
				gotPath = path
				return tt.runCode
			})

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantRun, ran)
			assert.Equal(t, tt.wantPauses, pauser.calls)
			if tt.wantRun {
				assert.Equal(t, "/usr/bin/uv", gotPath, "run receives the resolved path")
			}
			if tt.wantStderr != "" {
				assert.Contains(t, stderr.String(), tt.wantStderr)
			} else {
				assert.Empty(t, stderr.String())
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	l := New(WithLookup(lookupMissing))

	_, err := l.Preflight("git")
	var notFound *ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "git", notFound.Tool)
	assert.ErrorIs(t, err, exec.ErrNotFound)

	_, err = New().Preflight("")
	assert.Error(t, err)
}

func TestGuard(t *testing.T) {
	pauser := &countingPauser{}
	l := New(WithPauser(pauser), WithStderr(&bytes.Buffer{}))

	assert.Equal(t, 0, l.Guard(func() int { return 0 }))
	assert.Equal(t, 0, pauser.calls)

	assert.Equal(t, int(model.ExitPartialFailure), l.Guard(func() int { return int(model.ExitPartialFailure) }))
	assert.Equal(t, 1, pauser.calls)
}

// TestExec runs a real shell to verify exit code propagation.
func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	l := New(WithStderr(&bytes.Buffer{}))
	ctx := context.Background()

	assert.Equal(t, 0, l.Exec(ctx, sh, []string{"-c", "exit 0"}, ""))
	assert.Equal(t, 3, l.Exec(ctx, sh, []string{"-c", "exit 3"}, ""))
	assert.Equal(t, 1, l.Exec(ctx, sh, []string{"-c", "kill -9 $$"}, ""), "signal death maps to 1")

	dir := t.TempDir()
	assert.Equal(t, 0, l.Exec(ctx, sh, []string{"-c", `test "$(pwd -P)" = "$(cd "$0" && pwd -P)"`, dir}, dir),
		"runs in the requested directory")
}

func TestExec_StartFailure(t *testing.T) {
	var stderr bytes.Buffer
	l := New(WithStderr(&stderr))

	code := l.Exec(context.Background(), "/definitely/not/a/program", nil, "")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to start")
}

func TestPromptPauser(t *testing.T) {
	var out bytes.Buffer
	p := &PromptPauser{In: strings.NewReader("\n"), Out: &out}

	require.NoError(t, p.Pause())
	assert.Contains(t, out.String(), "Press Enter to exit...")

	eof := &PromptPauser{In: strings.NewReader(""), Out: &bytes.Buffer{}, Message: "waiting"}
	assert.NoError(t, eof.Pause(), "EOF acknowledges")

	broken := &PromptPauser{In: errReader{}, Out: &bytes.Buffer{}}
	assert.Error(t, broken.Pause())
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestParsePausePolicy(t *testing.T) {
	tests := []struct {
		input    string
		expected PausePolicy
		hasError bool
	}{
		{"", PauseAuto, false},
		{"auto", PauseAuto, false},
		{"ALWAYS", PauseAlways, false},
		{"never", PauseNever, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePausePolicy(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNewPauser(t *testing.T) {
	// A regular file is never a terminal, so auto never pauses here.
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.IsType(t, NoPause{}, NewPauser(PauseNever, f, &bytes.Buffer{}))
	assert.IsType(t, NoPause{}, NewPauser(PauseAuto, f, &bytes.Buffer{}))
	assert.IsType(t, &PromptPauser{}, NewPauser(PauseAlways, f, &bytes.Buffer{}))
}
