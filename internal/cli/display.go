package cli

import (
	gkcolor "github.com/gookit/color"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

func Gold(s string) string {
	return gkcolor.RGB(181, 181, 91).Sprint(s)
}

func Green(s string) string {
	return gkcolor.FgGreen.Sprint(s)
}

func Grey(s string) string {
	return gkcolor.RGB(138, 138, 138).Sprint(s)
}

func LightBlue(s string) string {
	return gkcolor.HiBlue.Sprint(s)
}

func Red(s string) string {
	return gkcolor.FgRed.Sprint(s)
}

// StatusColor colours a diff status letter by the kind of change.
func StatusColor(status model.DiffStatus) string {
	s := status.String()
	switch status {
	case model.StatusAdded:
		return Green(s)
	case model.StatusDeleted:
		return Red(s)
	case model.StatusModified, model.StatusTypeChanged:
		return Gold(s)
	case model.StatusRenamed, model.StatusCopied:
		return LightBlue(s)
	default:
		return Grey(s)
	}
}
