package cmd

import (
	"errors"
	"testing"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "generic", err: errors.New("boom"), want: ExitFailure},
		{name: "generic humane", err: humane.New("boom", "advice"), want: ExitFailure},
		{name: "not found", err: humane.Wrap(tsh.ErrNotFound, "tsh missing"), want: ExitNotFound},
		{name: "timeout", err: humane.Wrap(tsh.ErrTimeout, "too slow"), want: ExitTimeout},
		{name: "cancelled", err: humane.Wrap(tsh.ErrCancelled, "aborted"), want: ExitCancelled},
		{name: "joined cause", err: humane.Wrap(errors.Join(tsh.ErrTimeout, errors.New("context deadline exceeded")), "proxy wait"), want: ExitTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
