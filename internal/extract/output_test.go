package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

type stubPrompter struct {
	answer Resolution
	err    error
	asked  []string
}

func (s *stubPrompter) ResolveConflict(path string) (Resolution, error) {
	s.asked = append(s.asked, path)
	return s.answer, s.err
}

func TestParseConflictPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ConflictPolicy
		wantErr bool
	}{
		{"", ConflictAsk, false},
		{"ask", ConflictAsk, false},
		{"Overwrite", ConflictOverwrite, false},
		{"keep", ConflictKeep, false},
		{"FAIL", ConflictFail, false},
		{"merge", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConflictPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_Target(t *testing.T) {
	layout := Layout{Root: filepath.Join("out", "diff")}

	got, err := layout.Target(model.SideOld, "src/main.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "diff", "old", "src", "main.go"), got)

	got, err = layout.Target(model.SideNew, "libs/sub/a b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "diff", "new", "libs", "sub", "a b.txt"), got)

	for _, bad := range []string{"../escape.txt", "a/../../b", ""} {
		_, err := layout.Target(model.SideNew, bad)
		assert.Error(t, err, bad)
	}
}

// TestLayout_TargetStaysInside checks that every accepted path maps under
// the side directory.
func TestLayout_TargetStaysInside(t *testing.T) {
	layout := Layout{Root: filepath.Join("out", "diff")}

	rapid.Check(t, func(rt *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b c", "..", ".", "src", "x.txt"}), 1, 6).Draw(rt, "parts")
		side := rapid.SampledFrom([]model.Side{model.SideOld, model.SideNew}).Draw(rt, "side")
		repoPath := strings.Join(parts, "/")

		target, err := layout.Target(side, repoPath)
		if err != nil {
			return
		}
		rel, err := filepath.Rel(layout.Dir(side), target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			rt.Fatalf("%q escaped to %q", repoPath, target)
		}
	})
}

func TestValidateOutputPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name     string
		output   string
		folder   string
		wantCode model.ExitCode
	}{
		{"valid", dir, "diff", model.ExitSuccess},
		{"empty output", "", "diff", model.ExitInvalidInput},
		{"empty folder", dir, " ", model.ExitInvalidInput},
		{"nested folder", dir, "a/b", model.ExitInvalidInput},
		{"parent folder", dir, "..", model.ExitInvalidInput},
		{"missing output", filepath.Join(dir, "nope"), "diff", model.ExitOutputError},
		{"output is a file", file, "diff", model.ExitOutputError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(tt.output, tt.folder)
			assert.Equal(t, tt.wantCode, model.ExitCodeOf(err))
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the write probe is removed")
}

func TestPrepareOutput_Fresh(t *testing.T) {
	out := t.TempDir()

	layout, err := PrepareOutput(out, "diff", ConflictAsk, nil)
	require.NoError(t, err)
	assert.False(t, layout.Reused)
	assert.DirExists(t, layout.OldDir())
	assert.DirExists(t, layout.NewDir())
	assert.Equal(t, filepath.Join(out, "diff"), layout.Root)
}

func TestPrepareOutput_Existing(t *testing.T) {
	tests := []struct {
		name       string
		policy     ConflictPolicy
		prompter   *stubPrompter
		wantCode   model.ExitCode
		wantReused bool
		wantStale  bool
	}{
		{name: "overwrite", policy: ConflictOverwrite, wantStale: false},
		{name: "keep", policy: ConflictKeep, wantReused: true, wantStale: true},
		{name: "fail", policy: ConflictFail, wantCode: model.ExitOutputError},
		{name: "ask without prompter", policy: ConflictAsk, wantCode: model.ExitOutputError},
		{name: "ask overwrite", policy: ConflictAsk, prompter: &stubPrompter{answer: ResolveOverwrite}},
		{name: "ask keep", policy: ConflictAsk, prompter: &stubPrompter{answer: ResolveKeep}, wantReused: true, wantStale: true},
		{name: "ask cancel", policy: ConflictAsk, prompter: &stubPrompter{answer: ResolveCancel}, wantCode: model.ExitUserCancelled},
		{name: "ask error", policy: ConflictAsk, prompter: &stubPrompter{err: errors.New("eof")}, wantCode: model.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()
			stale := filepath.Join(out, "diff", "old", "stale.txt")
			require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
			require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

			var prompter ConflictPrompter
			if tt.prompter != nil {
				prompter = tt.prompter
			}

			layout, err := PrepareOutput(out, "diff", tt.policy, prompter)
			assert.Equal(t, tt.wantCode, model.ExitCodeOf(err))
			if tt.prompter != nil {
				assert.Equal(t, []string{filepath.Join(out, "diff")}, tt.prompter.asked)
			}
			if err != nil {
				assert.FileExists(t, stale, "existing output is untouched on error")
				return
			}

			assert.Equal(t, tt.wantReused, layout.Reused)
			assert.DirExists(t, layout.NewDir())
			_, statErr := os.Stat(stale)
			assert.Equal(t, tt.wantStale, statErr == nil)
		})
	}
}
