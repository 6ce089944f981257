package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from in and writes labels to out.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	stdin  *os.File
	hidden func(fd int) ([]byte, error)
}

var std = New(os.Stdin, os.Stdout)

// New returns a prompter over in/out. Hidden input uses the terminal only
// when in is a terminal file; otherwise it reads a plain line.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, hidden: term.ReadPassword}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.stdin = f
	}
	return p
}

// String prompts for a single trimmed line
func (p *Prompter) String(label string) (string, error) {
	fmt.Fprint(p.out, label)
	input, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// Password prompts for a secret without echo
func (p *Prompter) Password(label string) (string, error) {
	if p.stdin == nil {
		return p.String(label)
	}
	fmt.Fprint(p.out, label)
	pw, err := p.hidden(int(p.stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// Confirm prompts for yes/no
func (p *Prompter) Confirm(label string) (bool, error) {
	answer, err := p.String(label + " (y/n) ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// Multiline reads lines until an empty line or maxLines
func (p *Prompter) Multiline(label string, maxLines int) (string, error) {
	fmt.Fprintf(p.out, "%s (empty line to finish):\n", label)

	var lines []string
	for i := 0; i < maxLines; i++ {
		line, err := p.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	return strings.Join(lines, "\n"), nil
}

// PromptString prompts on stdin
func PromptString(label string) (string, error) { return std.String(label) }

// PromptPassword prompts on stdin without echo
func PromptPassword(label string) (string, error) { return std.Password(label) }

// PromptConfirm prompts on stdin for yes/no
func PromptConfirm(label string) (bool, error) { return std.Confirm(label) }

// PromptMultilineString prompts on stdin for several lines
func PromptMultilineString(label string, maxLines int) (string, error) {
	return std.Multiline(label, maxLines)
}
