package main

import (
	"testing"

	"github.com/spechtlabs/th/pkg/tsh"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestParseRequestID(t *testing.T) {
	output := `Creating request...
Request ID: 019231a4-8b1d-7c3e-9f00-2d5a41c0beef
Username:   jane@example.com
Roles:      sudo_prod_eks_cluster
Waiting for request approval...
`
	assert.Equal(t, "019231a4-8b1d-7c3e-9f00-2d5a41c0beef", parseRequestID(output))
	assert.Equal(t, "", parseRequestID("nothing useful here"))
}

func TestResolveAlias(t *testing.T) {
	aliases := map[string]string{
		"dev":  "aslive-dev-account",
		"prod": "live-prod-account",
	}

	assert.Equal(t, "aslive-dev-account", resolveAlias(aliases, "dev"))
	assert.Equal(t, "aslive-dev-account", resolveAlias(aliases, "DEV"))
	assert.Equal(t, "live-prod-account", resolveAlias(aliases, "prod"))
	assert.Equal(t, "some-full-app-name", resolveAlias(aliases, "some-full-app-name"))
}

func TestClusterWriteRole(t *testing.T) {
	viper.Set("kube.requestRoles", map[string]string{
		"live-prod-eks-blue": "sudo_prod_eks_cluster",
	})
	defer viper.Set("kube.requestRoles", map[string]string{})

	assert.Equal(t, "sudo_prod_eks_cluster", clusterWriteRole("live-prod-eks-blue"))
	assert.Equal(t, "sudo_live_usprod_eks_blue", clusterWriteRole("live-usprod-eks-blue"))
}

func TestTeleportContext(t *testing.T) {
	assert.True(t, teleportContext("teleport.example.com-live-prod-eks-blue"))
	assert.True(t, teleportContext("tsh-aslive-dev"))
	assert.False(t, teleportContext("minikube"))
	assert.False(t, teleportContext("docker-desktop"))
}

func TestDatabaseRequestRole(t *testing.T) {
	viper.Set("db.rdsRequestRole", "sudo_teleport_rds_read_role")
	viper.Set("db.atlasRequestRole", "atlas-read-only")

	rds := tsh.ResourceEntry{Name: "prod-rds", Kind: tsh.KindDatabase, Metadata: map[string]string{"db_type": "rds"}}
	mongo := tsh.ResourceEntry{Name: "prod-atlas", Kind: tsh.KindDatabase}

	assert.Equal(t, "sudo_teleport_rds_read_role", databaseRequestRole(rds))
	assert.Equal(t, "atlas-read-only", databaseRequestRole(mongo))
}

func TestTunnelHint(t *testing.T) {
	rds := tsh.ResourceEntry{Name: "prod-rds", Kind: tsh.KindDatabase, Metadata: map[string]string{"db_type": "rds"}}
	mongo := tsh.ResourceEntry{Name: "prod-atlas", Kind: tsh.KindDatabase}

	assert.Equal(t, "postgres://tf_teleport_rds_read_user@localhost:5433/postgres",
		tunnelHint(rds, "tf_teleport_rds_read_user", "postgres", 5433))
	assert.Equal(t, "mongodb://localhost:5433",
		tunnelHint(mongo, "tf_teleport_rds_read_user", "postgres", 5433))
}
