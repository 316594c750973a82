// Package selection implements the interactive numbered menus used to pick
// clusters, accounts, roles and databases. Input is read one line per
// attempt, so the menus behave the same for an operator at a terminal and
// for a scripted test reader.
package selection

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/internal/cli/pretty_print"
	"github.com/spechtlabs/th/pkg/tsh"
	"golang.org/x/term"
)

// Interactive reports whether stdin is a terminal an operator can answer
// prompts on. Commands check this before opening a menu so scripted runs get
// a clear error instead of a hanging prompt.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ElevatedRolePrefix marks privileged role variants. Choosing one is always
// an explicit operator decision, never an automatic escalation.
const ElevatedRolePrefix = "sudo_"

// Result is the outcome of one menu selection.
type Result struct {
	Entry    tsh.ResourceEntry
	Elevated bool
}

// Menu reads operator choices line by line. The zero value is not usable;
// construct with NewMenu.
type Menu struct {
	in  *bufio.Reader
	out io.Writer
}

// MenuOption configures a Menu.
type MenuOption func(*Menu)

// WithInput replaces the input stream, used by tests to script choices.
func WithInput(r io.Reader) MenuOption {
	return func(m *Menu) { m.in = bufio.NewReader(r) }
}

// WithOutput replaces the output stream.
func WithOutput(w io.Writer) MenuOption {
	return func(m *Menu) { m.out = w }
}

// NewMenu creates a menu on the process terminal.
func NewMenu(opts ...MenuOption) *Menu {
	m := &Menu{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Select renders the entries 1-indexed, with inaccessible ones dimmed, and
// prompts until the operator picks a valid index. Invalid input re-prompts
// without limit; an empty line, "q", end of input, or a cancelled context
// cancels.
func (m *Menu) Select(ctx context.Context, title string, entries []tsh.ResourceEntry) (*Result, humane.Error) {
	if len(entries) == 0 {
		return nil, humane.New(fmt.Sprintf("nothing to select for %q", strings.ToLower(title)))
	}

	m.printHeader(title)
	m.printEntries(entries)

	for {
		line, err := m.prompt(ctx, "\nSelect (number): ")
		if err != nil {
			return nil, err
		}

		if line == "" || strings.EqualFold(line, "q") {
			return nil, humane.Wrap(tsh.ErrCancelled, "no selection made")
		}

		index, convErr := strconv.Atoi(line)
		if convErr != nil || index < 1 || index > len(entries) {
			fmt.Fprint(m.out, pretty_print.FormatErrorMessage(
				fmt.Sprintf("Invalid selection, enter a number between 1 and %d", len(entries)),
			))
			continue
		}

		entry := entries[index-1]
		return &Result{
			Entry:    entry,
			Elevated: strings.HasPrefix(entry.Name, ElevatedRolePrefix),
		}, nil
	}
}

// Confirm asks a yes/no question until the operator answers it. Empty input
// or end of input cancels, like Select.
func (m *Menu) Confirm(ctx context.Context, question string) (bool, humane.Error) {
	for {
		line, err := m.prompt(ctx, fmt.Sprintf("%s (y/n): ", question))
		if err != nil {
			return false, err
		}

		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "", "q":
			return false, humane.Wrap(tsh.ErrCancelled, "no answer given")
		default:
			fmt.Fprint(m.out, pretty_print.FormatErrorMessage("Please answer y or n"))
		}
	}
}

// ReadLine prompts for one line of free text, such as a request reason.
func (m *Menu) ReadLine(ctx context.Context, prompt string) (string, humane.Error) {
	return m.prompt(ctx, prompt)
}

type readAttempt struct {
	line string
	err  error
}

// prompt reads one line while watching the context, so an interrupt unwinds
// a waiting menu instead of leaving it blocked on stdin. The read happens in
// a goroutine because bufio has no cancellable read; after a cancellation the
// abandoned read is harmless since the process is on its way out.
func (m *Menu) prompt(ctx context.Context, prompt string) (string, humane.Error) {
	fmt.Fprint(m.out, prompt)

	attempt := make(chan readAttempt, 1)
	go func() {
		line, err := m.in.ReadString('\n')
		attempt <- readAttempt{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", humane.Wrap(tsh.ErrCancelled, "interrupted")
	case r := <-attempt:
		if r.err != nil && r.line == "" {
			return "", humane.Wrap(tsh.ErrCancelled, "input closed")
		}
		return strings.TrimSpace(r.line), nil
	}
}

func (m *Menu) printHeader(title string) {
	style := lipgloss.NewStyle().Bold(true)
	fmt.Fprintf(m.out, "%s\n\n", style.Render(title))
}

func (m *Menu) printEntries(entries []tsh.ResourceEntry) {
	dim := lipgloss.NewStyle().Faint(true)

	for i, entry := range entries {
		line := fmt.Sprintf("%2d. %s", i+1, entry.Name)
		if !entry.Accessible {
			line = dim.Render(line)
		}
		fmt.Fprintln(m.out, line)
	}
}
