// Package tsh drives the Teleport tsh binary as a subprocess and turns its
// JSON output into typed resource listings. It never speaks to Teleport
// directly; every operation is one tsh invocation.
package tsh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/go-otel-utils/otelzap"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// RawOutput captures everything a single tsh invocation produced.
type RawOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr concatenated in that order. Some tsh
// subcommands print their useful output on stderr (role tables, proxy
// instructions), so parsers often want both streams.
func (o *RawOutput) Combined() string {
	return o.Stdout + o.Stderr
}

// Client invokes tsh. The zero value is not usable; construct with New.
type Client struct {
	path    string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithPath overrides the executable name resolved via the search path.
func WithPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.path = path
		}
	}
}

// WithTimeout sets the per-invocation deadline for non-interactive calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a tsh client resolving the binary from the search path.
func New(opts ...Option) *Client {
	c := &Client{
		path:    "tsh",
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Path returns the executable name or path this client invokes. Components
// that spawn tsh through other means, like the background proxy, use it so
// a configured binary location applies everywhere.
func (c *Client) Path() string {
	return c.path
}

// Invoke runs one tsh subprocess with captured output. Exactly one process is
// spawned per call and no retries happen here; callers decide whether a retry
// (for example after re-authentication) makes sense.
//
// On a non-zero exit the captured RawOutput is returned alongside the error,
// because several tsh subcommands deliver usable output on failure paths.
func (c *Client) Invoke(ctx context.Context, args ...string) (*RawOutput, humane.Error) {
	path, err := exec.LookPath(c.path)
	if err != nil {
		return nil, humane.Wrap(errors.Join(ErrNotFound, err),
			fmt.Sprintf("could not find %s on your PATH", c.path),
			"install the Teleport client from https://goteleport.com/download",
			"or set paths.tsh in your config file to its location",
		)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	otelzap.L().DebugContext(ctx, "invoking tsh", zap.Strings("args", args))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	out := &RawOutput{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		// CommandContext already killed the child.
		return out, humane.Wrap(ErrTimeout,
			fmt.Sprintf("tsh %s did not finish within %s", firstArg(args), c.timeout),
			"check your network connection to the Teleport proxy",
			"raise teleport.timeout in your config file if the proxy is just slow",
		)
	}

	if runErr != nil {
		if ctx.Err() == context.Canceled {
			// Interrupted: the child was signal-killed, not genuinely
			// failing, so no re-login advice applies.
			return out, humane.Wrap(ErrCancelled, "interrupted")
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return out, humane.Wrap(errors.Join(ErrNonZeroExit, runErr),
				fmt.Sprintf("tsh %s failed: %s", firstArg(args), firstLine(out.Stderr)),
				"run 'th login' if your Teleport session has expired",
			)
		}

		return out, humane.Wrap(runErr, fmt.Sprintf("failed to run tsh %s", firstArg(args)))
	}

	return out, nil
}

// InvokeJSON runs tsh and unmarshals its stdout into v.
func (c *Client) InvokeJSON(ctx context.Context, v any, args ...string) humane.Error {
	out, err := c.Invoke(ctx, args...)
	if err != nil {
		return err
	}

	if jsonErr := json.Unmarshal([]byte(out.Stdout), v); jsonErr != nil {
		return humane.Wrap(jsonErr,
			fmt.Sprintf("tsh %s returned output that is not valid JSON", firstArg(args)),
			"upgrade tsh if its output format has changed",
		)
	}

	return nil
}

// RunInteractive runs tsh with inherited stdio. Used for flows that need the
// operator's terminal, like the browser-based login. No timeout applies; the
// passed context still cancels the child on interrupt.
func (c *Client) RunInteractive(ctx context.Context, args ...string) humane.Error {
	path, err := exec.LookPath(c.path)
	if err != nil {
		return humane.Wrap(errors.Join(ErrNotFound, err),
			fmt.Sprintf("could not find %s on your PATH", c.path),
			"install the Teleport client from https://goteleport.com/download",
		)
	}

	otelzap.L().DebugContext(ctx, "invoking tsh interactively", zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if runErr := cmd.Run(); runErr != nil {
		if ctx.Err() == context.Canceled {
			return humane.Wrap(ErrCancelled, "interrupted")
		}

		return humane.Wrap(errors.Join(ErrNonZeroExit, runErr),
			fmt.Sprintf("tsh %s failed", firstArg(args)),
		)
	}

	return nil
}

// CheckInstalled probes for a working tsh binary.
func (c *Client) CheckInstalled(ctx context.Context) humane.Error {
	_, err := c.Invoke(ctx, "version")
	return err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
