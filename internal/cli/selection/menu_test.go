package selection

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entriesFixture() []tsh.ResourceEntry {
	return []tsh.ResourceEntry{
		{Name: "aslive-dev-eks-blue", Kind: tsh.KindCluster, Accessible: true},
		{Name: "live-prod-eks-blue", Kind: tsh.KindCluster, Accessible: false},
		{Name: "sudo_dev-admin", Kind: tsh.KindRole, Accessible: true},
	}
}

func scriptedMenu(input string) (*Menu, *bytes.Buffer) {
	var out bytes.Buffer
	return NewMenu(WithInput(strings.NewReader(input)), WithOutput(&out)), &out
}

func TestSelectValidIndex(t *testing.T) {
	menu, out := scriptedMenu("1\n")

	result, err := menu.Select(context.Background(), "Available Clusters", entriesFixture())
	require.NoError(t, err)
	assert.Equal(t, "aslive-dev-eks-blue", result.Entry.Name)
	assert.False(t, result.Elevated)

	assert.Contains(t, out.String(), "1. aslive-dev-eks-blue")
	assert.Contains(t, out.String(), "Available Clusters")
}

func TestSelectElevatedEntry(t *testing.T) {
	menu, _ := scriptedMenu("3\n")

	result, err := menu.Select(context.Background(), "Available Roles", entriesFixture())
	require.NoError(t, err)
	assert.Equal(t, "sudo_dev-admin", result.Entry.Name)
	assert.True(t, result.Elevated)
}

func TestSelectRepromptsUntilValid(t *testing.T) {
	menu, out := scriptedMenu("abc\n0\n99\n2\n")

	result, err := menu.Select(context.Background(), "Available Clusters", entriesFixture())
	require.NoError(t, err)
	assert.Equal(t, "live-prod-eks-blue", result.Entry.Name)

	assert.Equal(t, 3, strings.Count(out.String(), "Invalid selection"))
}

func TestSelectCancelOnEmptyLine(t *testing.T) {
	menu, _ := scriptedMenu("\n")

	_, err := menu.Select(context.Background(), "Available Clusters", entriesFixture())
	require.Error(t, err)
	assert.True(t, errors.Is(err.Cause(), tsh.ErrCancelled))
}

func TestSelectCancelOnQ(t *testing.T) {
	menu, _ := scriptedMenu("q\n")

	_, err := menu.Select(context.Background(), "Available Clusters", entriesFixture())
	require.Error(t, err)
	assert.True(t, errors.Is(err.Cause(), tsh.ErrCancelled))
}

func TestSelectCancelOnEOF(t *testing.T) {
	menu, _ := scriptedMenu("nonsense\n")

	// First attempt re-prompts, second hits end of input.
	_, err := menu.Select(context.Background(), "Available Clusters", entriesFixture())
	require.Error(t, err)
	assert.True(t, errors.Is(err.Cause(), tsh.ErrCancelled))
}

func TestSelectEmptyEntries(t *testing.T) {
	menu, _ := scriptedMenu("")

	_, err := menu.Select(context.Background(), "Available Clusters", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err.Cause(), tsh.ErrCancelled))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      bool
		cancelled bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "yes long", input: "YES\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "retry then no", input: "maybe\nn\n", want: false},
		{name: "empty cancels", input: "\n", cancelled: true},
		{name: "eof cancels", input: "", cancelled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			menu, _ := scriptedMenu(tt.input)

			got, err := menu.Confirm(context.Background(), "Raise a privilege request?")
			if tt.cancelled {
				require.Error(t, err)
				assert.True(t, errors.Is(err.Cause(), tsh.ErrCancelled))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectUnwindsOnCancelledContext(t *testing.T) {
	// An open pipe with no writer models an operator who never answers.
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	var out bytes.Buffer
	menu := NewMenu(WithInput(pr), WithOutput(&out))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan humane.Error, 1)
	go func() {
		_, err := menu.Select(ctx, "Available Clusters", entriesFixture())
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err.Cause(), tsh.ErrCancelled))
	case <-time.After(2 * time.Second):
		t.Fatal("Select did not return after the context was cancelled")
	}
}

func TestConfirmUnwindsOnCancelledContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	menu := NewMenu(WithInput(pr), WithOutput(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := menu.Confirm(ctx, "Raise a privilege request?")
	require.Error(t, err)
	assert.True(t, errors.Is(err.Cause(), tsh.ErrCancelled))
}

func TestReadLine(t *testing.T) {
	menu, _ := scriptedMenu("need prod access\n")

	line, err := menu.ReadLine(context.Background(), "Enter request reason: ")
	require.NoError(t, err)
	assert.Equal(t, "need prod access", line)
}
