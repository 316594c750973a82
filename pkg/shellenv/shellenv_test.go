package shellenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		shell string
		fish  string
		want  Dialect
	}{
		{name: "bash", shell: "/bin/bash", want: DialectPosix},
		{name: "zsh", shell: "/usr/bin/zsh", want: DialectPosix},
		{name: "fish", shell: "/opt/homebrew/bin/fish", want: DialectFish},
		{name: "unknown shell defaults to posix", shell: "/bin/nushell", want: DialectPosix},
		{name: "empty SHELL with fish version marker", shell: "", fish: "3.7.0", want: DialectFish},
		{name: "nothing set defaults to posix", shell: "", want: DialectPosix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHELL", tt.shell)
			t.Setenv("FISH_VERSION", tt.fish)

			assert.Equal(t, tt.want, Detect())
		})
	}
}

func TestExportStatement(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		key     string
		value   string
		want    string
	}{
		{
			name:    "posix plain value",
			dialect: DialectPosix,
			key:     "AWS_DEFAULT_REGION",
			value:   "eu-west-1",
			want:    "export AWS_DEFAULT_REGION=eu-west-1",
		},
		{
			name:    "posix value with spaces",
			dialect: DialectPosix,
			key:     "ROLE",
			value:   "two words",
			want:    "export ROLE='two words'",
		},
		{
			name:    "posix value with dollar sign",
			dialect: DialectPosix,
			key:     "AWS_SECRET_ACCESS_KEY",
			value:   "ab$cd",
			want:    "export AWS_SECRET_ACCESS_KEY='ab$cd'",
		},
		{
			name:    "posix value with single quote",
			dialect: DialectPosix,
			key:     "AWS_SESSION_TOKEN",
			value:   "it's",
			want:    `export AWS_SESSION_TOKEN='it'"'"'s'`,
		},
		{
			name:    "fish plain value",
			dialect: DialectFish,
			key:     "ACCOUNT",
			value:   "yl-dev",
			want:    "set -gx ACCOUNT yl-dev",
		},
		{
			name:    "fish value with spaces",
			dialect: DialectFish,
			key:     "ROLE",
			value:   "two words",
			want:    "set -gx ROLE 'two words'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.ExportStatement(tt.key, tt.value))
		})
	}
}

func TestUnsetStatement(t *testing.T) {
	assert.Equal(t, "unset AWS_ACCESS_KEY_ID", DialectPosix.UnsetStatement("AWS_ACCESS_KEY_ID"))
	assert.Equal(t, "set -e AWS_ACCESS_KEY_ID", DialectFish.UnsetStatement("AWS_ACCESS_KEY_ID"))
}

func TestProfilePath(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/zsh")
	path, err := ProfilePath()
	assert.NoError(t, err)
	assert.Contains(t, path, ".zshrc")

	t.Setenv("SHELL", "/opt/homebrew/bin/fish")
	path, err = ProfilePath()
	assert.NoError(t, err)
	assert.Contains(t, path, "config.fish")
}
