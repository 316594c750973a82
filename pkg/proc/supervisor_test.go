package proc

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnBackgroundAndTerminate(t *testing.T) {
	sup := NewSupervisor()

	var buf bytes.Buffer
	handle, err := sup.SpawnBackground(context.Background(), &buf, "/bin/sleep", "30")
	require.NoError(t, err)
	require.NotZero(t, handle.PID)
	assert.False(t, handle.StartedAt.IsZero())

	sup.TerminateAll()

	assert.Eventually(t, func() bool {
		return syscall.Kill(handle.PID, syscall.Signal(0)) != nil
	}, 5*time.Second, 50*time.Millisecond, "child should be gone after TerminateAll")
}

func TestTerminateAllOnExitedChild(t *testing.T) {
	sup := NewSupervisor()

	var buf bytes.Buffer
	handle, err := sup.SpawnBackground(context.Background(), &buf, "/bin/sh", "-c", "exit 0")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return syscall.Kill(handle.PID, syscall.Signal(0)) != nil
	}, 5*time.Second, 50*time.Millisecond)

	// Must be a no-op, not an error or a hang.
	sup.TerminateAll()
}

func TestTerminateAllIsIdempotent(t *testing.T) {
	sup := NewSupervisor()

	var buf bytes.Buffer
	_, err := sup.SpawnBackground(context.Background(), &buf, "/bin/sleep", "30")
	require.NoError(t, err)

	sup.TerminateAll()
	sup.TerminateAll()
}

func TestDetachSurvivesTerminateAll(t *testing.T) {
	sup := NewSupervisor()

	var buf bytes.Buffer
	handle, err := sup.SpawnBackground(context.Background(), &buf, "/bin/sleep", "30")
	require.NoError(t, err)

	sup.Detach(handle)
	sup.TerminateAll()

	assert.NoError(t, syscall.Kill(handle.PID, syscall.Signal(0)), "detached child must still be running")

	_ = syscall.Kill(handle.PID, syscall.SIGKILL)
}

func TestSpawnBackgroundMissingBinary(t *testing.T) {
	sup := NewSupervisor()

	var buf bytes.Buffer
	_, err := sup.SpawnBackground(context.Background(), &buf, "definitely-not-a-real-binary")
	require.Error(t, err)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpawnBackgroundCapturesOutput(t *testing.T) {
	sup := NewSupervisor()
	defer sup.TerminateAll()

	var buf syncBuffer
	_, err := sup.SpawnBackground(context.Background(), &buf, "/bin/sh", "-c", "echo ready")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "ready")
	}, 5*time.Second, 50*time.Millisecond)
}
