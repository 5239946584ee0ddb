// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when input ends before a line is read.
var ErrNoInput = errors.New("no input")

// Prompter reads answers from in and writes prompts to out. When in is a
// terminal, secrets are read without echo.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewPrompter wraps in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// Interactive reports whether input comes from a terminal.
func (p *Prompter) Interactive() bool { return p.tty }

// AssumeInteractive makes a non-terminal input behave as one. Secrets are
// then read as plain lines.
func (p *Prompter) AssumeInteractive() { p.tty = true }

// Line prompts for a line of text and returns it trimmed.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		if err == io.EOF {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// Secret prompts for a value without echoing it on a terminal.
func (p *Prompter) Secret(label string) (string, error) {
	if p.fd < 0 {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Choose prompts until the answer is one of the 1-based indices of options.
// An empty answer picks def.
func (p *Prompter) Choose(label string, options []string, def int) (int, error) {
	for i, o := range options {
		fmt.Fprintf(p.out, "%2d. %s\n", i+1, o)
	}
	for {
		ans, err := p.Line(label)
		if err != nil {
			return 0, err
		}
		if ans == "" && def >= 1 && def <= len(options) {
			p.echoChoice(label, ans, options[def-1])
			return def, nil
		}
		var n int
		if _, err := fmt.Sscanf(ans, "%d", &n); err == nil && n >= 1 && n <= len(options) {
			p.echoChoice(label, ans, options[n-1])
			return n, nil
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(options))
	}
}

// echoChoice replaces the typed answer with the chosen option on a terminal.
func (p *Prompter) echoChoice(label, answer, option string) {
	if p.fd < 0 {
		return
	}
	f, _ := p.out.(*os.File)
	ClearPreviousLines(p.out, len(label)+len(answer), Width(f))
	fmt.Fprintf(p.out, "%s%s\n", label, option)
}
