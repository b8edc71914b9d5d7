package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Pauser blocks until the user acknowledges a failure.
type Pauser interface {
	Pause() error
}

// NoPause never blocks.
type NoPause struct{}

// Pause returns immediately.
func (NoPause) Pause() error { return nil }

// PromptPauser prints a prompt and waits for one line of input.
type PromptPauser struct {
	In      io.Reader
	Out     io.Writer
	Message string
}

// Pause prints the prompt and reads up to the next newline. End of input
// counts as acknowledgement.
func (p *PromptPauser) Pause() error {
	msg := p.Message
	if msg == "" {
		msg = "Press Enter to exit..."
	}
	fmt.Fprint(p.Out, msg)

	_, err := bufio.NewReader(p.In).ReadString('\n')
	fmt.Fprintln(p.Out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// PausePolicy decides whether failures pause for acknowledgement.
type PausePolicy string

const (
	// PauseAuto pauses only when the process looks like it was started
	// from a file manager, where the console closes on exit.
	PauseAuto PausePolicy = "auto"

	// PauseAlways pauses after every failure.
	PauseAlways PausePolicy = "always"

	// PauseNever never pauses.
	PauseNever PausePolicy = "never"
)

// String returns the policy name.
func (p PausePolicy) String() string {
	return string(p)
}

// IsValid checks whether the policy is one of the known values.
func (p PausePolicy) IsValid() bool {
	switch p {
	case PauseAuto, PauseAlways, PauseNever:
		return true
	default:
		return false
	}
}

// ParsePausePolicy converts a string to a PausePolicy. An empty string
// selects PauseAuto.
func ParsePausePolicy(s string) (PausePolicy, error) {
	if s == "" {
		return PauseAuto, nil
	}
	policy := PausePolicy(strings.ToLower(s))
	if !policy.IsValid() {
		return "", fmt.Errorf("invalid pause policy: %q (valid: auto, always, never)", s)
	}
	return policy, nil
}

// NewPauser returns the Pauser for policy, reading from in and prompting
// on out.
func NewPauser(policy PausePolicy, in *os.File, out io.Writer) Pauser {
	switch policy {
	case PauseAlways:
		return &PromptPauser{In: in, Out: out}
	case PauseAuto:
		if interactive(in) && autoPauseDefault {
			return &PromptPauser{In: in, Out: out}
		}
	}
	return NoPause{}
}

func interactive(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
