package tsh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTSH installs a shell script standing in for the tsh binary.
func fakeTSH(t *testing.T, script string) *Catalog {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tsh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	return NewCatalog(New(WithPath(path)))
}

func TestListClusters(t *testing.T) {
	catalog := fakeTSH(t, `echo '[
		{"kube_cluster_name": "aslive-dev-eks-blue", "labels": {"env": "dev"}},
		{"kube_cluster_name": "live-prod-eks-blue", "labels": {"env": "prod"}, "selected": false}
	]'`)

	entries, err := catalog.List(context.Background(), KindCluster)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "aslive-dev-eks-blue", entries[0].Name)
	assert.Equal(t, KindCluster, entries[0].Kind)
	assert.Equal(t, "dev", entries[0].Metadata["env"])
	assert.Equal(t, "live-prod-eks-blue", entries[1].Name)
}

func TestListClustersMalformedEntry(t *testing.T) {
	catalog := fakeTSH(t, `echo '[
		{"kube_cluster_name": "aslive-dev-eks-blue"},
		{"labels": {"env": "prod"}}
	]'`)

	_, err := catalog.List(context.Background(), KindCluster)
	require.Error(t, err)
	assert.True(t, errors.Is(err.Cause(), ErrMalformedEntry))
	assert.Contains(t, err.Error(), "record 1")
	assert.Contains(t, err.Error(), "kube_cluster_name")
}

func TestListAccountsPreservesOrder(t *testing.T) {
	catalog := fakeTSH(t, `echo '[
		{"metadata": {"name": "yl-sandbox"}},
		{"metadata": {"name": "yl-admin"}},
		{"metadata": {"name": "yl-dev"}}
	]'`)

	entries, err := catalog.List(context.Background(), KindAccount)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "yl-sandbox", entries[0].Name)
	assert.Equal(t, "yl-admin", entries[1].Name)
	assert.Equal(t, "yl-dev", entries[2].Name)
}

func TestListAccountsMalformedEntry(t *testing.T) {
	catalog := fakeTSH(t, `echo '[{"metadata": {"labels": {}}}]'`)

	_, err := catalog.List(context.Background(), KindAccount)
	require.Error(t, err)
	assert.True(t, errors.Is(err.Cause(), ErrMalformedEntry))
	assert.Contains(t, err.Error(), "metadata.name")
}

func TestListDatabases(t *testing.T) {
	catalog := fakeTSH(t, `echo '[
		{"metadata": {"name": "prod-postgres", "labels": {"db_type": "rds"}}},
		{"metadata": {"name": "atlas-mongo", "labels": {"db_type": "mongo"}}}
	]'`)

	entries, err := catalog.List(context.Background(), KindDatabase)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, IsRDS(entries[0]))
	assert.False(t, IsRDS(entries[1]))
}

func TestListUnknownKind(t *testing.T) {
	catalog := fakeTSH(t, "echo '[]'")

	_, err := catalog.List(context.Background(), KindRole)
	require.Error(t, err)
}

func TestStatusLoggedIn(t *testing.T) {
	catalog := fakeTSH(t, `echo '{
		"active": {
			"username": "jane@example.com",
			"cluster": "example.teleport.sh",
			"roles": ["access", "requester"],
			"active_requests": ["0194a2c3-atlas-can-read"],
			"valid_until": "2099-01-01T00:00:00Z"
		}
	}'`)

	status, err := catalog.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.LoggedIn())
	assert.Equal(t, "jane@example.com", status.Username)
	assert.True(t, status.HasRole("requester"))
	assert.False(t, status.HasRole("admin"))
	assert.True(t, status.HasAtlasAccess())
}

func TestStatusLoggedOut(t *testing.T) {
	catalog := fakeTSH(t, `echo 'ERROR: Not logged in.' >&2; exit 1`)

	status, err := catalog.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.LoggedIn())
	assert.False(t, status.HasAtlasAccess())
}

func TestRolesFromTable(t *testing.T) {
	catalog := fakeTSH(t, `cat >&2 <<'EOF'
Available AWS roles:
Role Name         Role ARN
----------------  ---------------------------------------------
dev-read          arn:aws:iam::111111111111:role/dev-read
sudo_dev-admin    arn:aws:iam::111111111111:role/sudo_dev-admin

ERROR: --aws-role flag is required
EOF
exit 1`)

	entries, err := catalog.Roles(context.Background(), "yl-dev")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "dev-read", entries[0].Name)
	assert.Equal(t, "sudo_dev-admin", entries[1].Name)
	assert.Equal(t, KindRole, entries[0].Kind)
	assert.Equal(t, "yl-dev", entries[0].Metadata["app"])
}

func TestRolesARNFallback(t *testing.T) {
	catalog := fakeTSH(t, `echo 'ERROR: logging in to arn:aws:iam::222222222222:role/only-role' >&2; exit 1`)

	entries, err := catalog.Roles(context.Background(), "yl-sandbox")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "only-role", entries[0].Name)
}

func TestRolesNoneFound(t *testing.T) {
	catalog := fakeTSH(t, `echo 'ERROR: access denied' >&2; exit 1`)

	_, err := catalog.Roles(context.Background(), "yl-dev")
	require.Error(t, err)
}

func TestParseRoleTable(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "empty output",
			output: "",
			want:   nil,
		},
		{
			name:   "no table marker",
			output: "ERROR: something else\n",
			want:   nil,
		},
		{
			name: "table ends at error line",
			output: "Available AWS roles:\n" +
				"Role Name  Role ARN\n" +
				"---------  --------\n" +
				"first      arn:aws:iam::1:role/first\n" +
				"ERROR: --aws-role flag is required\n",
			want: []string{"first"},
		},
		{
			name: "table ends at blank line",
			output: "Available AWS roles:\n" +
				"Role Name  Role ARN\n" +
				"---------  --------\n" +
				"first      arn:aws:iam::1:role/first\n" +
				"second     arn:aws:iam::1:role/second\n" +
				"\n" +
				"trailing text\n",
			want: []string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRoleTable(tt.output))
		})
	}
}

func TestAnnotateDatabaseAccess(t *testing.T) {
	catalog := fakeTSH(t, `echo '{"active": {"username": "jane", "valid_until": "2099-01-01T00:00:00Z", "active_requests": []}}'`)

	entries := []ResourceEntry{
		{Name: "prod-postgres", Kind: KindDatabase, Metadata: map[string]string{DBTypeLabel: DBTypeRDS}},
		{Name: "atlas-mongo", Kind: KindDatabase, Metadata: map[string]string{DBTypeLabel: "mongo"}},
	}

	annotated, err := catalog.AnnotateDatabaseAccess(context.Background(), entries)
	require.NoError(t, err)
	assert.True(t, annotated[0].Accessible)
	assert.False(t, annotated[1].Accessible)
}
