// Package shellenv renders environment variable statements for the operator's
// interactive shell. It only produces text; mutating the parent shell's
// environment is impossible from a child process, so the statements are
// written to a file the shell wrapper sources after this process exits.
package shellenv

import (
	"fmt"
	"os"
	"path/filepath"

	"al.essio.dev/pkg/shellescape"
)

// Dialect is the syntax family used for variable export and unset statements.
type Dialect string

const (
	// DialectPosix covers bash, zsh, sh and anything unrecognized.
	DialectPosix Dialect = "posix"

	// DialectFish covers the fish shell's set -gx / set -e syntax.
	DialectFish Dialect = "fish"
)

// Detect resolves the invoking shell's dialect from the environment. Unknown
// shells degrade to POSIX rendering rather than failing.
func Detect() Dialect {
	if shell := os.Getenv("SHELL"); shell != "" {
		switch filepath.Base(shell) {
		case "fish":
			return DialectFish
		case "bash", "zsh", "sh", "dash", "ksh":
			return DialectPosix
		}
	}

	if os.Getenv("FISH_VERSION") != "" {
		return DialectFish
	}

	return DialectPosix
}

// ExportStatement renders one variable assignment. Values are always quoted;
// credential material routinely contains characters the shell would eat.
func (d Dialect) ExportStatement(key, value string) string {
	switch d {
	case DialectFish:
		return fmt.Sprintf("set -gx %s %s", key, shellescape.Quote(value))
	default:
		return fmt.Sprintf("export %s=%s", key, shellescape.Quote(value))
	}
}

// UnsetStatement renders the removal of one variable.
func (d Dialect) UnsetStatement(key string) string {
	switch d {
	case DialectFish:
		return fmt.Sprintf("set -e %s", key)
	default:
		return fmt.Sprintf("unset %s", key)
	}
}

// ProfilePath returns the startup file of the invoking shell, used to hint
// where the sourcing wrapper belongs. This package never writes to it.
func ProfilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch filepath.Base(os.Getenv("SHELL")) {
	case "zsh":
		return filepath.Join(home, ".zshrc"), nil
	case "bash":
		return filepath.Join(home, ".bash_profile"), nil
	case "fish":
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return filepath.Join(home, ".profile"), nil
	}
}
