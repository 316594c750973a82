package tsh

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	humane "github.com/sierrasoftworks/humane-errors-go"
)

// ResourceKind identifies the resource family a catalog entry belongs to.
type ResourceKind string

const (
	KindCluster  ResourceKind = "cluster"
	KindAccount  ResourceKind = "account"
	KindRole     ResourceKind = "role"
	KindDatabase ResourceKind = "database"
)

// ResourceEntry is one row of a catalog listing. Entries are immutable after
// creation and live for a single command invocation.
type ResourceEntry struct {
	Name       string
	Kind       ResourceKind
	Accessible bool
	Metadata   map[string]string
}

// Status describes the active Teleport session as reported by tsh.
type Status struct {
	Username       string
	Cluster        string
	ValidUntil     time.Time
	Roles          []string
	ActiveRequests []string
}

// LoggedIn reports whether the session certificate is still valid.
func (s *Status) LoggedIn() bool {
	return s != nil && s.Username != "" && s.ValidUntil.After(time.Now())
}

// HasRole reports whether the session carries the given role, either
// statically or through an approved access request.
func (s *Status) HasRole(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Catalog lists Teleport resources by shelling out to tsh and parsing its
// JSON output. Ordering of the external tool is preserved; no re-sorting.
type Catalog struct {
	client *Client
}

// NewCatalog creates a catalog backed by the given client.
func NewCatalog(client *Client) *Catalog {
	return &Catalog{client: client}
}

type kubeClusterRecord struct {
	KubeClusterName string            `json:"kube_cluster_name"`
	Labels          map[string]string `json:"labels"`
}

type metadataRecord struct {
	Metadata struct {
		Name   string            `json:"name"`
		Labels map[string]string `json:"labels"`
	} `json:"metadata"`
}

// List fetches all entries of one resource kind. A record missing its
// required name field fails the whole call with ErrMalformedEntry naming the
// offending record; unknown fields are ignored.
func (c *Catalog) List(ctx context.Context, kind ResourceKind) ([]ResourceEntry, humane.Error) {
	switch kind {
	case KindCluster:
		return c.listClusters(ctx)
	case KindAccount:
		return c.listApps(ctx, KindAccount)
	case KindDatabase:
		return c.listDatabases(ctx)
	default:
		return nil, humane.New(fmt.Sprintf("cannot list resources of kind %q", kind))
	}
}

func (c *Catalog) listClusters(ctx context.Context) ([]ResourceEntry, humane.Error) {
	var records []kubeClusterRecord
	if err := c.client.InvokeJSON(ctx, &records, "kube", "ls", "--format=json"); err != nil {
		return nil, err
	}

	entries := make([]ResourceEntry, 0, len(records))
	for i, rec := range records {
		if rec.KubeClusterName == "" {
			return nil, malformed(i, "kube_cluster_name")
		}
		entries = append(entries, ResourceEntry{
			Name:       rec.KubeClusterName,
			Kind:       KindCluster,
			Accessible: true,
			Metadata:   rec.Labels,
		})
	}

	return entries, nil
}

func (c *Catalog) listApps(ctx context.Context, kind ResourceKind) ([]ResourceEntry, humane.Error) {
	var records []metadataRecord
	if err := c.client.InvokeJSON(ctx, &records, "apps", "ls", "--format=json"); err != nil {
		return nil, err
	}

	entries := make([]ResourceEntry, 0, len(records))
	for i, rec := range records {
		if rec.Metadata.Name == "" {
			return nil, malformed(i, "metadata.name")
		}
		entries = append(entries, ResourceEntry{
			Name:       rec.Metadata.Name,
			Kind:       kind,
			Accessible: true,
			Metadata:   rec.Metadata.Labels,
		})
	}

	return entries, nil
}

func (c *Catalog) listDatabases(ctx context.Context) ([]ResourceEntry, humane.Error) {
	var records []metadataRecord
	if err := c.client.InvokeJSON(ctx, &records, "db", "ls", "--format=json"); err != nil {
		return nil, err
	}

	entries := make([]ResourceEntry, 0, len(records))
	for i, rec := range records {
		if rec.Metadata.Name == "" {
			return nil, malformed(i, "metadata.name")
		}
		entries = append(entries, ResourceEntry{
			Name:       rec.Metadata.Name,
			Kind:       KindDatabase,
			Accessible: true,
			Metadata:   rec.Metadata.Labels,
		})
	}

	return entries, nil
}

func malformed(index int, field string) humane.Error {
	return humane.Wrap(ErrMalformedEntry,
		fmt.Sprintf("record %d is missing required field %q", index, field),
		"upgrade tsh if its output format has changed",
	)
}

type statusPayload struct {
	Active struct {
		Username       string   `json:"username"`
		Cluster        string   `json:"cluster"`
		Roles          []string `json:"roles"`
		ActiveRequests []string `json:"active_requests"`
		ValidUntil     string   `json:"valid_until"`
	} `json:"active"`
}

// Status reads the active session from tsh. A logged-out client yields a
// zero-value Status, not an error.
func (c *Catalog) Status(ctx context.Context) (*Status, humane.Error) {
	var payload statusPayload
	if err := c.client.InvokeJSON(ctx, &payload, "status", "--format=json"); err != nil {
		// tsh exits non-zero when no profile is active. That is a valid
		// logged-out state, not a failure.
		if errors.Is(err.Cause(), ErrNonZeroExit) {
			return &Status{}, nil
		}
		return nil, err
	}

	status := &Status{
		Username:       payload.Active.Username,
		Cluster:        payload.Active.Cluster,
		Roles:          payload.Active.Roles,
		ActiveRequests: payload.Active.ActiveRequests,
	}

	if payload.Active.ValidUntil != "" {
		if ts, err := time.Parse(time.RFC3339, payload.Active.ValidUntil); err == nil {
			status.ValidUntil = ts
		}
	}

	return status, nil
}

// rolesHeader precedes the role table tsh prints when an app login is
// attempted without --aws-role.
const rolesHeader = "Available AWS roles:"

var defaultRoleARN = regexp.MustCompile(`arn:aws:iam::\d+:role/([\w+=,.@-]+)`)

// Roles discovers the AWS roles assumable for an app. tsh has no listing
// subcommand for this, so we attempt a login without a role and parse the
// role table from the rejection message. The attempt is expected to fail.
func (c *Catalog) Roles(ctx context.Context, app string) ([]ResourceEntry, humane.Error) {
	out, err := c.client.Invoke(ctx, "apps", "login", app)
	if err != nil && out == nil {
		return nil, err
	}

	names := parseRoleTable(out.Combined())
	if len(names) == 0 {
		// Single-role apps skip the table and name the default role ARN.
		if m := defaultRoleARN.FindStringSubmatch(out.Combined()); m != nil {
			names = []string{m[1]}
		}
	}

	if len(names) == 0 {
		return nil, humane.New(
			fmt.Sprintf("no AWS roles found for app %q", app),
			"verify you have access to this app with 'tsh apps ls'",
		)
	}

	entries := make([]ResourceEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, ResourceEntry{
			Name:       name,
			Kind:       KindRole,
			Accessible: true,
			Metadata:   map[string]string{"app": app},
		})
	}

	return entries, nil
}

// parseRoleTable extracts role names from the "Available AWS roles:" table.
// The table has a column-header line and a dashed separator line before the
// rows; rows end at a blank line or at tsh's trailing ERROR line.
func parseRoleTable(output string) []string {
	var names []string

	inTable := false
	headerLines := 0
	for _, line := range strings.Split(output, "\n") {
		if !inTable {
			if strings.Contains(line, rolesHeader) {
				inTable = true
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(names) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "ERROR") {
			break
		}
		if headerLines < 2 {
			headerLines++
			continue
		}

		if fields := strings.Fields(trimmed); len(fields) > 0 {
			names = append(names, fields[0])
		}
	}

	return names
}
