// Package proc tracks long-lived background subprocesses, such as credential
// proxies and database tunnels, and guarantees their termination on every
// exit path of the owning command.
package proc

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/go-otel-utils/otelzap"
	"go.uber.org/zap"
)

const (
	gracePeriod  = 3 * time.Second
	pollInterval = 50 * time.Millisecond
)

// Handle identifies one supervised background process.
type Handle struct {
	PID       int
	StartedAt time.Time

	cmd *exec.Cmd
}

// Supervisor owns every background process spawned during one command
// invocation. Commands pair each spawn with a deferred TerminateAll so that
// children never outlive the invocation, on success, error, and interrupt
// paths alike.
type Supervisor struct {
	mu      sync.Mutex
	handles []*Handle
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// SpawnBackground starts a process without waiting for it. Its stdout and
// stderr both go to the given writer, which callers use to watch for
// readiness markers in proxy output.
//
// The child is deliberately not bound to the context's lifetime: cleanup
// happens through TerminateAll, and a successfully established proxy may be
// handed over to the next logout via Detach.
func (s *Supervisor) SpawnBackground(ctx context.Context, output io.Writer, name string, args ...string) (*Handle, humane.Error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, humane.Wrap(err,
			fmt.Sprintf("could not find %s on your PATH", name),
		)
	}

	cmd := exec.Command(path, args...)
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Start(); err != nil {
		return nil, humane.Wrap(err, fmt.Sprintf("failed to start %s", name))
	}

	// Reap the child as soon as it exits so TerminateAll never blocks on a
	// zombie. The error is irrelevant; backgrounded proxies are expected to
	// die from our signal.
	go func() { _ = cmd.Wait() }()

	handle := &Handle{
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		cmd:       cmd,
	}

	s.mu.Lock()
	s.handles = append(s.handles, handle)
	s.mu.Unlock()

	otelzap.L().DebugContext(ctx, "spawned background process",
		zap.String("name", name),
		zap.Int("pid", handle.PID),
	)

	return handle, nil
}

// Detach releases a handle from supervision without stopping the process.
// Used for proxies that must keep serving credentials after this invocation
// exits; a later logout reaps them by pattern.
func (s *Supervisor) Detach(handle *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, h := range s.handles {
		if h == handle {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			return
		}
	}
}

// TerminateAll stops every supervised process: graceful SIGTERM first, then a
// bounded wait, then SIGKILL for anything still alive. A process that already
// exited is success, never an error. Safe to call multiple times.
func (s *Supervisor) TerminateAll() {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for _, h := range handles {
		terminate(h)
	}
}

func terminate(h *Handle) {
	if h.cmd == nil || h.cmd.Process == nil {
		return
	}

	if !alive(h.PID) {
		return
	}

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Likely already gone; SIGKILL below settles it either way.
		_ = h.cmd.Process.Kill()
		return
	}

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !alive(h.PID) {
			return
		}
		time.Sleep(pollInterval)
	}

	_ = h.cmd.Process.Kill()
}

// alive probes a pid with signal 0.
func alive(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

// KillByPattern force-kills every process whose command line matches the
// pattern. Best effort cleanup for strays left behind by crashed runs; a
// missing pgrep or an empty match set is not an error.
func KillByPattern(ctx context.Context, pattern string) {
	out, err := exec.CommandContext(ctx, "pgrep", "-f", pattern).Output()
	if err != nil {
		return
	}

	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}
