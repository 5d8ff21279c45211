// Package confirm decides whether a prepared edit may be saved.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrNotInteractive is returned by Prompt when stdin is not a terminal.
var ErrNotInteractive = errors.New("confirmation needs an interactive terminal")

// Request describes the edit awaiting approval.
type Request struct {
	Page        string
	Description string
	Before      string
	After       string
}

// Confirmer approves or declines edits.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

// Always answers every request the same way.
type Always bool

func (a Always) Confirm(context.Context, Request) (bool, error) { return bool(a), nil }

// Prompt shows the diff and asks on the terminal.
type Prompt struct {
	in           *os.File
	out          io.Writer
	contextLines int
}

func NewPrompt(in *os.File, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out, contextLines: 2}
}

func (p *Prompt) Confirm(ctx context.Context, req Request) (bool, error) {
	if !term.IsTerminal(int(p.in.Fd())) {
		return false, ErrNotInteractive
	}
	fmt.Fprintf(p.out, "\n>>> %s <<<\n%s\n", req.Page, Render(req.Before, req.After, p.contextLines))

	ok := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(req.Description).
			Description(req.Page).
			Affirmative("Salva").
			Negative("Salta").
			Value(&ok),
	)).WithInput(p.in).WithOutput(p.out)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirm %s: %w", req.Page, err)
	}
	return ok, nil
}
