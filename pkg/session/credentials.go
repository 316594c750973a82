// Package session materializes ephemeral AWS credentials into a transfer
// artifact the shell wrapper sources, and cleans everything up again on
// logout. One credential set exists per command invocation at most.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/spechtlabs/th/pkg/shellenv"
)

// RecognizedVariables is the fixed contract of credential variable names.
// Materialize and logout must agree on this exact set: every variable a
// materialized artifact may export is unset again on logout.
var RecognizedVariables = []string{
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_CA_BUNDLE",
	"HTTPS_PROXY",
	"AWS_DEFAULT_REGION",
	"ACCOUNT",
	"ROLE",
}

// Variable is one environment variable of a credential set.
type Variable struct {
	Key   string
	Value string
}

// CredentialSet is an ordered sequence of credential variables plus an
// optional expiry hint. Values are secret: String and any log form redact
// them, and the set is never persisted beyond its transfer artifact.
type CredentialSet struct {
	Variables   []Variable
	ExpiresHint time.Duration
}

// Set appends a variable, replacing an earlier one with the same key in
// place so ordering stays stable.
func (c *CredentialSet) Set(key, value string) {
	for i, v := range c.Variables {
		if v.Key == key {
			c.Variables[i].Value = value
			return
		}
	}
	c.Variables = append(c.Variables, Variable{Key: key, Value: value})
}

// Get returns the value for a key and whether it is present.
func (c *CredentialSet) Get(key string) (string, bool) {
	for _, v := range c.Variables {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// String renders the set with every value redacted.
func (c *CredentialSet) String() string {
	keys := make([]string, 0, len(c.Variables))
	for _, v := range c.Variables {
		keys = append(keys, v.Key+"=<redacted>")
	}
	return fmt.Sprintf("CredentialSet{%s}", strings.Join(keys, ", "))
}

// Render produces the artifact body: one dialect-correct export statement
// per variable, in order, newline-terminated.
func (c *CredentialSet) Render(dialect shellenv.Dialect) string {
	var b strings.Builder
	for _, v := range c.Variables {
		b.WriteString(dialect.ExportStatement(v.Key, v.Value))
		b.WriteString("\n")
	}
	return b.String()
}

// ParseExports reads export statements back into a credential set. Both
// dialects are understood, so an artifact round-trips regardless of the
// shell it was rendered for. Lines that are not export statements are
// skipped.
func ParseExports(content string) *CredentialSet {
	set := &CredentialSet{}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "export "):
			kv := strings.TrimPrefix(trimmed, "export ")
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				continue
			}
			set.Set(key, unquote(value))

		case strings.HasPrefix(trimmed, "set -gx "):
			kv := strings.TrimPrefix(trimmed, "set -gx ")
			key, value, ok := strings.Cut(kv, " ")
			if !ok || key == "" {
				continue
			}
			set.Set(key, unquote(value))
		}
	}

	return set
}

// unquote undoes shell quoting for the simple forms our own renderer and
// tsh produce: a fully single- or double-quoted value, including the
// '"'"' escape for embedded single quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	if strings.HasPrefix(s, "'") {
		s = strings.ReplaceAll(s, `'"'"'`, "\x00")
		s = strings.ReplaceAll(s, "'", "")
		return strings.ReplaceAll(s, "\x00", "'")
	}

	return s
}
