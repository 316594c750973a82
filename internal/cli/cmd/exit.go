package cmd

import (
	"errors"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/pkg/tsh"
)

// Process exit codes. Commands return typed errors; the mapping to a code
// happens here and nowhere else.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
	ExitNotFound    = 3
	ExitTimeout     = 4
	ExitCancelled   = 5
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	cause := err
	var herr humane.Error
	if errors.As(err, &herr) && herr.Cause() != nil {
		cause = herr.Cause()
	}

	switch {
	case errors.Is(cause, tsh.ErrNotFound):
		return ExitNotFound
	case errors.Is(cause, tsh.ErrTimeout):
		return ExitTimeout
	case errors.Is(cause, tsh.ErrCancelled):
		return ExitCancelled
	default:
		return ExitFailure
	}
}
