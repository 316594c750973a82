package session

import (
	"strings"
	"testing"

	"github.com/spechtlabs/th/pkg/shellenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialSetOrderingAndReplace(t *testing.T) {
	set := &CredentialSet{}
	set.Set("A", "1")
	set.Set("B", "2")
	set.Set("A", "3")

	require.Len(t, set.Variables, 2)
	assert.Equal(t, "A", set.Variables[0].Key)
	assert.Equal(t, "3", set.Variables[0].Value)
	assert.Equal(t, "B", set.Variables[1].Key)
}

func TestCredentialSetStringRedactsValues(t *testing.T) {
	set := &CredentialSet{}
	set.Set("AWS_SECRET_ACCESS_KEY", "super-secret-value")

	s := set.String()
	assert.NotContains(t, s, "super-secret-value")
	assert.Contains(t, s, "AWS_SECRET_ACCESS_KEY")
	assert.Contains(t, s, "<redacted>")
}

func TestRenderRoundTrip(t *testing.T) {
	for _, dialect := range []shellenv.Dialect{shellenv.DialectPosix, shellenv.DialectFish} {
		t.Run(string(dialect), func(t *testing.T) {
			set := &CredentialSet{}
			set.Set("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
			set.Set("AWS_SECRET_ACCESS_KEY", "with space and $dollar")
			set.Set("ROLE", "it's-complicated")

			parsed := ParseExports(set.Render(dialect))

			require.Len(t, parsed.Variables, len(set.Variables))
			for _, v := range set.Variables {
				got, ok := parsed.Get(v.Key)
				require.True(t, ok, v.Key)
				assert.Equal(t, v.Value, got)
			}
		})
	}
}

func TestParseExportsFromProxyOutput(t *testing.T) {
	output := strings.Join([]string{
		"Started AWS proxy for app yl-dev",
		"Use the following credentials:",
		"  export AWS_ACCESS_KEY_ID=AKIAEXAMPLE",
		`  export AWS_SECRET_ACCESS_KEY="sekret"`,
		"  export AWS_CA_BUNDLE=/tmp/ca.pem",
		"some trailing noise",
	}, "\n")

	set := ParseExports(output)

	require.Len(t, set.Variables, 3)
	key, _ := set.Get("AWS_ACCESS_KEY_ID")
	assert.Equal(t, "AKIAEXAMPLE", key)
	secret, _ := set.Get("AWS_SECRET_ACCESS_KEY")
	assert.Equal(t, "sekret", secret)
}

func TestParseExportsIgnoresGarbage(t *testing.T) {
	set := ParseExports("not an export\nexport =nokey\nexport NOVALUE\n")
	assert.Empty(t, set.Variables)
}
