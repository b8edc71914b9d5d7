package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shinji-kodama/git-diff-extract/internal/extract"
)

// prompter asks yes/no and conflict questions on a terminal. Questions go
// to out (stderr) so that stdout stays clean for results.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// readAnswer reads one line, lowercased and trimmed. A closed input yields
// an empty answer.
func (p *prompter) readAnswer() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// Confirm asks question and reports whether the user answered y or yes.
func (p *prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	answer, err := p.readAnswer()
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "yes", nil
}

// ResolveConflict asks what to do with an existing output folder.
func (p *prompter) ResolveConflict(path string) (extract.Resolution, error) {
	fmt.Fprintf(p.out, "Output folder %s already exists.\n", path)
	fmt.Fprint(p.out, "  [o] overwrite: delete it and start fresh\n")
	fmt.Fprint(p.out, "  [k] keep: reuse it, backing up files that would be replaced\n")
	fmt.Fprint(p.out, "  [c] cancel\n")
	fmt.Fprint(p.out, "Choice [o/k/C] ")

	answer, err := p.readAnswer()
	if err != nil {
		return extract.ResolveCancel, err
	}
	switch answer {
	case "o", "overwrite":
		return extract.ResolveOverwrite, nil
	case "k", "keep":
		return extract.ResolveKeep, nil
	default:
		return extract.ResolveCancel, nil
	}
}
