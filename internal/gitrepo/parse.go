package gitrepo

import (
	"strconv"
	"strings"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// parseNameStatus parses the output of `git diff --name-status -z`.
//
// Every field is NUL-terminated. A record is a status token followed by one
// path, or by two paths for renames and copies, whose token carries the
// similarity score:
//
//	M\0file.txt\0R087\0old name.txt\0new name.txt\0
//
// Empty tokens and unknown statuses are skipped; a truncated trailing record
// is dropped.
func parseNameStatus(output string) []model.DiffEntry {
	var entries []model.DiffEntry

	parts := strings.Split(output, "\x00")
	for i := 0; i < len(parts); {
		token := parts[i]
		i++
		if token == "" {
			continue
		}

		status, err := model.ParseDiffStatus(token)
		if err != nil {
			continue
		}

		if i >= len(parts) || parts[i] == "" {
			break
		}
		path := parts[i]
		i++

		entry := model.DiffEntry{Status: status, OldPath: path, NewPath: path}

		if status == model.StatusRenamed || status == model.StatusCopied {
			if score, err := strconv.Atoi(token[1:]); err == nil {
				entry.Similarity = score
			}
			if i < len(parts) && parts[i] != "" {
				entry.NewPath = parts[i]
				i++
			}
		}

		entries = append(entries, entry)
	}

	return entries
}

// parseLsTreeGitlinks extracts submodule entries from `git ls-tree -r -z`.
//
// Each record has the form "<mode> SP <type> SP <object> TAB <path>" and is
// NUL-terminated. Only entries of type "commit" (gitlinks) are returned, as
// a path → commit map.
func parseLsTreeGitlinks(output string) map[string]string {
	links := make(map[string]string)
	for _, record := range strings.Split(output, "\x00") {
		if record == "" {
			continue
		}
		meta, path, ok := strings.Cut(record, "\t")
		if !ok || path == "" {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) < 3 || fields[1] != "commit" {
			continue
		}
		links[path] = fields[2]
	}
	return links
}

// ShortSHA abbreviates a commit id for display. An empty id, such as the
// missing side of an added submodule, is shown as "-".
func ShortSHA(sha string) string {
	if sha == "" {
		return "-"
	}
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
