package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/git-diff-extract/internal/extract"
	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

func TestRenderPlan(t *testing.T) {
	plan := extract.Plan{
		Entries: []model.DiffEntry{
			{Status: model.StatusModified, OldPath: "src/main.go", NewPath: "src/main.go"},
			{Status: model.StatusRenamed, OldPath: "docs/old.md", NewPath: "docs/new.md", Similarity: 87},
			{Status: model.StatusDeleted, OldPath: "gone.txt"},
		},
		Submodules: []model.SubmoduleChange{
			{Path: "libs/core", OldCommit: "1111111111111111", NewCommit: "2222222222222222"},
			{Path: "libs/new", NewCommit: "3333333333333333"},
		},
	}

	out, err := RenderPlan(plan)
	require.NoError(t, err)
	for _, want := range []string{
		"src/main.go", "docs/new.md", "docs/old.md", "renamed (87%)", "gone.txt", "deleted",
		"Submodules:", "libs/core", "111111111111", "added",
		"3 file(s), 2 submodule(s) changed",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "1111111111111111", "commits are shortened")
}

func TestRenderPlan_Empty(t *testing.T) {
	out, err := RenderPlan(extract.Plan{})
	require.NoError(t, err)
	assert.Contains(t, out, "No changes found.")
}

func TestRenderStats(t *testing.T) {
	layout := extract.Layout{Root: "/tmp/out/review"}

	out, err := RenderStats(model.ExtractStats{Entries: 3, Copied: 5, Bytes: 2048}, layout)
	require.NoError(t, err)
	assert.Contains(t, out, "/tmp/out/review")
	assert.Contains(t, out, "2.0 KB")
	assert.NotContains(t, out, "Failed files:")

	out, err = RenderStats(model.ExtractStats{
		Copied: 1,
		Failed: []model.FailedFile{{Path: "libs/sub", Reason: "submodule is not initialized"}},
	}, layout)
	require.NoError(t, err)
	assert.Contains(t, out, "Failed files:")
	assert.Contains(t, out, "libs/sub")
	assert.Contains(t, out, "submodule is not initialized")
}

func TestPrompter(t *testing.T) {
	tests := []struct {
		input string
		want  extract.Resolution
	}{
		{"o\n", extract.ResolveOverwrite},
		{"OVERWRITE\n", extract.ResolveOverwrite},
		{"k\n", extract.ResolveKeep},
		{" keep \r\n", extract.ResolveKeep},
		{"\n", extract.ResolveCancel},
		{"", extract.ResolveCancel},
		{"x\n", extract.ResolveCancel},
	}
	for _, tt := range tests {
		var out strings.Builder
		got, err := newPrompter(strings.NewReader(tt.input), &out).ResolveConflict("/tmp/out")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "/tmp/out already exists")
	}

	p := newPrompter(strings.NewReader("y\nno\nYes\n"), &strings.Builder{})
	for _, want := range []bool{true, false, true} {
		got, err := p.Confirm("Continue?")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
