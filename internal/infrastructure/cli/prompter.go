package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/doeshing/tasq/internal/ports"
)

// Prompter reads operator answers from stdin. It also serves as the plain
// line reader when stdin is not a terminal, so both share one buffer.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm proceeds on an empty answer, "y" or "yes".
func (p *Prompter) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [Y/n]: ", prompt)
	line, err := p.readAnswer()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ConfirmExplicit proceeds only on a typed "yes".
func (p *Prompter) ConfirmExplicit(prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s\nType 'yes' to confirm (or anything else to cancel): ", prompt)
	line, err := p.readAnswer()
	if err != nil {
		return false, err
	}
	return strings.EqualFold(line, "yes"), nil
}

// ReadLine prints prompt and returns the next line without its newline.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readAnswer treats end of input as an empty answer. Confirm then proceeds
// and ConfirmExplicit refuses.
func (p *Prompter) readAnswer() (string, error) {
	line, err := p.in.ReadString('\n')
	if errors.Is(err, io.EOF) {
		if strings.TrimSpace(line) == "" {
			fmt.Fprintln(p.out)
			return "", nil
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var (
	_ ports.Confirmer  = (*Prompter)(nil)
	_ ports.LineReader = (*Prompter)(nil)
)
