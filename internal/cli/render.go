package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/shinji-kodama/git-diff-extract/internal/extract"
	"github.com/shinji-kodama/git-diff-extract/internal/gitrepo"
	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

func newTable(buf *strings.Builder) *tablewriter.Table {
	return tablewriter.NewTable(buf,
		tablewriter.WithRowAutoWrap(tw.WrapBreak),
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off}},
		})))
}

// RenderPlan renders the changes between two revisions as tables: one for
// files, one for submodules when any changed.
func RenderPlan(plan extract.Plan) (string, error) {
	if len(plan.Entries) == 0 && len(plan.Submodules) == 0 {
		return Gold("No changes found.") + "\n", nil
	}

	var buf strings.Builder
	if len(plan.Entries) > 0 {
		table := newTable(&buf)
		table.Header(LightBlue("Status"), "Path", Grey("From"), "Change")

		data := make([][]any, len(plan.Entries))
		for i, e := range plan.Entries {
			from := "-"
			if e.IsRename() {
				from = e.OldPath
			}
			data[i] = []any{StatusColor(e.Status), e.Path(), Grey(from), e.Status.Description(e.Similarity)}
		}
		if err := table.Bulk(data); err != nil {
			return "", fmt.Errorf("error formatting changes: %v", err)
		}
		if err := table.Render(); err != nil {
			return "", fmt.Errorf("error rendering changes: %v", err)
		}
	}

	if len(plan.Submodules) > 0 {
		buf.WriteString("\nSubmodules:\n")
		table := newTable(&buf)
		table.Header(LightBlue("Path"), "Old", "New", "Change")

		data := make([][]any, len(plan.Submodules))
		for i, s := range plan.Submodules {
			change := Gold("updated")
			switch {
			case s.Added():
				change = Green("added")
			case s.Removed():
				change = Red("removed")
			}
			data[i] = []any{s.Path, gitrepo.ShortSHA(s.OldCommit), gitrepo.ShortSHA(s.NewCommit), change}
		}
		if err := table.Bulk(data); err != nil {
			return "", fmt.Errorf("error formatting submodules: %v", err)
		}
		if err := table.Render(); err != nil {
			return "", fmt.Errorf("error rendering submodules: %v", err)
		}
	}

	fmt.Fprintf(&buf, "%d file(s), %d submodule(s) changed\n", len(plan.Entries), len(plan.Submodules))
	return buf.String(), nil
}

// RenderStats renders the result of an extraction: a summary table and,
// when files failed, a table of failures.
func RenderStats(stats model.ExtractStats, layout extract.Layout) (string, error) {
	var buf strings.Builder
	table := newTable(&buf)
	table.Header(LightBlue("Output"), Green("Copied"), Grey("Skipped"), Red("Failed"), "Size")

	failed := strconv.Itoa(len(stats.Failed))
	if stats.HasFailures() {
		failed = Red(failed)
	}
	row := []any{layout.Root, Green(strconv.Itoa(stats.Copied)), Grey(strconv.Itoa(stats.Skipped)), failed, extract.FormatSize(stats.Bytes)}
	if err := table.Bulk([][]any{row}); err != nil {
		return "", fmt.Errorf("error formatting summary: %v", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering summary: %v", err)
	}

	if stats.HasFailures() {
		buf.WriteString("\n" + Red("Failed files:") + "\n")
		failures := newTable(&buf)
		failures.Header("Path", "Reason")
		data := make([][]any, len(stats.Failed))
		for i, f := range stats.Failed {
			data[i] = []any{f.Path, f.Reason}
		}
		if err := failures.Bulk(data); err != nil {
			return "", fmt.Errorf("error formatting failures: %v", err)
		}
		if err := failures.Render(); err != nil {
			return "", fmt.Errorf("error rendering failures: %v", err)
		}
	}
	return buf.String(), nil
}
