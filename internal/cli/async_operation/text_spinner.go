package async_operation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/pkg/tsh"
)

// textPollModel drives the same poll state machine as the bubbletea spinner,
// but renders it with plain carriage-return updates. Used when stdout is not
// a terminal worth a full TUI.
type textPollModel[T any] struct {
	tea *teaPollModel[T]
}

func newTextSpinner[T any](pollFunc PollFunc[T], opts *spinnerOptions, model *spinnerModel[T]) *textPollModel[T] {
	WithSpinnerStyle(Line)(opts)

	return &textPollModel[T]{
		tea: newTeaSpinner(pollFunc, opts, model),
	}
}

func (m textPollModel[T]) Run(ctx context.Context) (*T, humane.Error) {
	m.tea.ctx = ctx
	m.tea.model.startedAt = time.Now()

	var msg tea.Msg = pollTriggerMsg{}

	for {
		if ctx.Err() != nil {
			return nil, humane.Wrap(errors.Join(tsh.ErrCancelled, ctx.Err()), "interrupted")
		}

		var tick tea.Cmd
		m.tea.s, tick = m.tea.s.Update(m.tea.s.Tick())
		tick()

		model, cmd := m.tea.Update(msg)
		m.render(model.View())

		msg = cmd()
		if msg == tea.Quit() {
			final := model.(teaPollModel[T])
			m.render(final.View())
			return final.result()
		}
	}
}

func (m textPollModel[T]) render(txt string) {
	if m.tea.opts.quiet {
		return
	}
	fmt.Printf("\r%s", strings.TrimSuffix(txt, "\n"))
}
