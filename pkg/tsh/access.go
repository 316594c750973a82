package tsh

import (
	"context"
	"strings"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/go-otel-utils/otelzap"
	"go.uber.org/zap"
)

// Label key on database resources distinguishing RDS from Atlas-hosted Mongo.
const DBTypeLabel = "db_type"

// DBTypeRDS is the label value for RDS-backed databases.
const DBTypeRDS = "rds"

// atlasReadRequest names the access request granting read access to Atlas.
const atlasReadRequest = "atlas-can-read"

// IsRDS reports whether a database entry is RDS-backed.
func IsRDS(entry ResourceEntry) bool {
	return entry.Metadata[DBTypeLabel] == DBTypeRDS
}

// IsProduction reports whether a cluster entry is a production cluster.
func IsProduction(entry ResourceEntry) bool {
	return strings.Contains(entry.Name, "prod")
}

// HasAtlasAccess reports whether the session carries an approved Atlas read
// request. Access is derived from this explicit marker only.
func (s *Status) HasAtlasAccess() bool {
	if s == nil {
		return false
	}
	for _, req := range s.ActiveRequests {
		if strings.Contains(req, atlasReadRequest) {
			return true
		}
	}
	return false
}

// AnnotateClusterAccess fills the Accessible flag on cluster entries.
// Non-production clusters are always accessible. Production access is probed
// once, against the first production cluster in the list: log into it and ask
// kubectl whether pods can be created. The probe result applies to every
// production entry; a failed probe marks them inaccessible, never an error.
func (c *Catalog) AnnotateClusterAccess(ctx context.Context, entries []ResourceEntry) []ResourceEntry {
	probe := ""
	for _, e := range entries {
		if IsProduction(e) {
			probe = e.Name
			break
		}
	}

	prodAccess := false
	if probe != "" {
		prodAccess = c.probeClusterWriteAccess(ctx, probe)
	}

	annotated := make([]ResourceEntry, len(entries))
	for i, e := range entries {
		if IsProduction(e) {
			e.Accessible = prodAccess
		} else {
			e.Accessible = true
		}
		annotated[i] = e
	}

	return annotated
}

func (c *Catalog) probeClusterWriteAccess(ctx context.Context, cluster string) bool {
	if _, err := c.client.Invoke(ctx, "kube", "login", cluster); err != nil {
		otelzap.L().DebugContext(ctx, "production cluster probe login failed", zap.String("cluster", cluster))
		return false
	}

	kubectl := New(WithPath("kubectl"), WithTimeout(c.client.timeout))
	out, err := kubectl.Invoke(ctx, "auth", "can-i", "create", "pod")
	if err != nil {
		return false
	}

	return strings.HasPrefix(strings.TrimSpace(out.Stdout), "yes")
}

// AnnotateDatabaseAccess fills the Accessible flag on database entries. RDS
// databases are reachable with the base session; Mongo databases require an
// approved Atlas read request in the current status.
func (c *Catalog) AnnotateDatabaseAccess(ctx context.Context, entries []ResourceEntry) ([]ResourceEntry, humane.Error) {
	status, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}

	annotated := make([]ResourceEntry, len(entries))
	for i, e := range entries {
		if IsRDS(e) {
			e.Accessible = true
		} else {
			e.Accessible = status.HasAtlasAccess()
		}
		annotated[i] = e
	}

	return annotated, nil
}
