package gitrepo

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// TestParseNameStatus covers the record shapes `git diff --name-status -z`
// produces, including paths that would break line-based parsing.
func TestParseNameStatus(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []model.DiffEntry
	}{
		{
			name:   "empty output",
			output: "",
			want:   nil,
		},
		{
			name:   "single modification",
			output: "M\x00src/main.go\x00",
			want: []model.DiffEntry{
				{Status: model.StatusModified, OldPath: "src/main.go", NewPath: "src/main.go"},
			},
		},
		{
			name:   "added deleted and type change",
			output: "A\x00new.txt\x00D\x00gone.txt\x00T\x00link\x00",
			want: []model.DiffEntry{
				{Status: model.StatusAdded, OldPath: "new.txt", NewPath: "new.txt"},
				{Status: model.StatusDeleted, OldPath: "gone.txt", NewPath: "gone.txt"},
				{Status: model.StatusTypeChanged, OldPath: "link", NewPath: "link"},
			},
		},
		{
			name:   "rename carries similarity and both paths",
			output: "R087\x00docs/old name.md\x00docs/new name.md\x00",
			want: []model.DiffEntry{
				{Status: model.StatusRenamed, OldPath: "docs/old name.md", NewPath: "docs/new name.md", Similarity: 87},
			},
		},
		{
			name:   "copy followed by modification",
			output: "C100\x00a.txt\x00b.txt\x00M\x00c.txt\x00",
			want: []model.DiffEntry{
				{Status: model.StatusCopied, OldPath: "a.txt", NewPath: "b.txt", Similarity: 100},
				{Status: model.StatusModified, OldPath: "c.txt", NewPath: "c.txt"},
			},
		},
		{
			name:   "path with newline and tab",
			output: "M\x00weird\nname\twith tab\x00",
			want: []model.DiffEntry{
				{Status: model.StatusModified, OldPath: "weird\nname\twith tab", NewPath: "weird\nname\twith tab"},
			},
		},
		{
			name:   "unknown status is skipped",
			output: "Q\x00ignored\x00M\x00kept.txt\x00",
			want: []model.DiffEntry{
				// "Q" is dropped, then "ignored" is read as a status token and
				// dropped too, resynchronising on "M".
				{Status: model.StatusModified, OldPath: "kept.txt", NewPath: "kept.txt"},
			},
		},
		{
			name:   "truncated record is dropped",
			output: "M\x00a.txt\x00D",
			want: []model.DiffEntry{
				{Status: model.StatusModified, OldPath: "a.txt", NewPath: "a.txt"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseNameStatus(tt.output))
		})
	}
}

// TestParseNameStatus_Property encodes arbitrary entries the way git does
// and checks that parsing returns them unchanged.
func TestParseNameStatus_Property(t *testing.T) {
	pathGen := rapid.StringMatching(`[a-zA-Z0-9 _.\-/\t\n]{1,24}`)
	statusGen := rapid.SampledFrom([]model.DiffStatus{
		model.StatusModified, model.StatusAdded, model.StatusDeleted,
		model.StatusTypeChanged, model.StatusRenamed, model.StatusCopied,
	})

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "count")

		var want []model.DiffEntry
		var b strings.Builder
		for i := 0; i < n; i++ {
			status := statusGen.Draw(rt, "status")
			oldPath := pathGen.Draw(rt, "oldPath")
			entry := model.DiffEntry{Status: status, OldPath: oldPath, NewPath: oldPath}

			token := string(status)
			if status == model.StatusRenamed || status == model.StatusCopied {
				entry.Similarity = rapid.IntRange(0, 100).Draw(rt, "similarity")
				entry.NewPath = pathGen.Draw(rt, "newPath")
				token += strconv.Itoa(entry.Similarity)
			}

			b.WriteString(token + "\x00" + entry.OldPath + "\x00")
			if token != string(status) {
				b.WriteString(entry.NewPath + "\x00")
			}
			want = append(want, entry)
		}

		got := parseNameStatus(b.String())
		if len(want) == 0 {
			assert.Empty(rt, got)
			return
		}
		assert.Equal(rt, want, got)
	})
}

func TestParseLsTreeGitlinks(t *testing.T) {
	output := strings.Join([]string{
		"100644 blob 0123456789abcdef0123456789abcdef01234567\tREADME.md",
		"160000 commit 89abcdef0123456789abcdef0123456789abcdef\tvendor/lib",
		"120000 blob fedcba9876543210fedcba9876543210fedcba98\tlink",
		"160000 commit 1111111111111111111111111111111111111111\tthird party/dep",
		"garbage without tab",
		"",
	}, "\x00")

	links := parseLsTreeGitlinks(output)

	assert.Equal(t, map[string]string{
		"vendor/lib":      "89abcdef0123456789abcdef0123456789abcdef",
		"third party/dep": "1111111111111111111111111111111111111111",
	}, links)
}

func TestShortSHA(t *testing.T) {
	assert.Equal(t, "-", ShortSHA(""))
	assert.Equal(t, "abc", ShortSHA("abc"))
	assert.Equal(t, strings.Repeat("a", 12), ShortSHA(strings.Repeat("a", 40)))
}
