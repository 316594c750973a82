package session

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/pkg/proc"
	"github.com/spechtlabs/th/pkg/shellenv"
	"github.com/spechtlabs/th/pkg/tsh"
)

// sourceLinePrefix marks the line materialization appends to the shell
// profile so the next interactive shell picks up the artifact. Logout strips
// every line with this prefix again.
const sourceLinePrefix = "source "

// updateProfileSourceLine replaces any previous artifact source line in the
// shell profile with one pointing at the new artifact.
func updateProfileSourceLine(artifact string) humane.Error {
	profile, err := shellenv.ProfilePath()
	if err != nil {
		return humane.Wrap(err, "could not resolve shell profile path")
	}

	content, readErr := os.ReadFile(profile)
	if readErr != nil && !os.IsNotExist(readErr) {
		return humane.Wrap(readErr, "could not read shell profile")
	}

	kept := stripArtifactSourceLines(string(content))
	kept = append(kept, sourceLinePrefix+artifact, "")

	if writeErr := os.WriteFile(profile, []byte(strings.Join(kept, "\n")), 0o644); writeErr != nil {
		return humane.Wrap(writeErr, "could not update shell profile")
	}

	return nil
}

// removeProfileSourceLines drops every artifact source line from the shell
// profile. Missing profile is success.
func removeProfileSourceLines() humane.Error {
	profile, err := shellenv.ProfilePath()
	if err != nil {
		return humane.Wrap(err, "could not resolve shell profile path")
	}

	content, readErr := os.ReadFile(profile)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil
		}
		return humane.Wrap(readErr, "could not read shell profile")
	}

	kept := stripArtifactSourceLines(string(content))
	if writeErr := os.WriteFile(profile, []byte(strings.Join(kept, "\n")), 0o644); writeErr != nil {
		return humane.Wrap(writeErr, "could not update shell profile")
	}

	return nil
}

func stripArtifactSourceLines(content string) []string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, sourceLinePrefix) && strings.Contains(trimmed, ArtifactPrefix) {
			continue
		}
		kept = append(kept, line)
	}

	// Drop the trailing empty element Split leaves behind so rewrites do not
	// accumulate blank lines.
	for len(kept) > 0 && kept[len(kept)-1] == "" {
		kept = kept[:len(kept)-1]
	}

	return kept
}

// Logout tears down everything a session may have left behind: artifacts in
// the temp dir, the profile source line, stray proxy processes, and the tsh
// app and cluster sessions. It returns the dialect-correct unset statements
// for every recognized credential variable; these are emitted even when no
// artifact existed, so a wrapper can always clean its environment. The whole
// operation is idempotent.
func (m *Materializer) Logout(ctx context.Context) ([]string, humane.Error) {
	removeArtifacts(m.tempDir)

	if err := removeProfileSourceLines(); err != nil {
		return nil, err
	}

	proc.KillByPattern(ctx, "tsh proxy aws")
	proc.KillByPattern(ctx, "tsh proxy db")

	// Both logouts are best effort; an expired session already is logged
	// out, and only a missing binary is worth surfacing.
	if _, err := m.client.Invoke(ctx, "apps", "logout"); isNotFound(err) {
		return nil, err
	}
	if _, err := m.client.Invoke(ctx, "logout"); isNotFound(err) {
		return nil, err
	}

	statements := make([]string, 0, len(RecognizedVariables))
	for _, key := range RecognizedVariables {
		statements = append(statements, m.dialect.UnsetStatement(key))
	}

	return statements, nil
}

func isNotFound(err humane.Error) bool {
	return err != nil && stderrors.Is(err.Cause(), tsh.ErrNotFound)
}
