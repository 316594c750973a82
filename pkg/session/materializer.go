package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/go-otel-utils/otelzap"
	"github.com/spechtlabs/th/pkg/proc"
	"github.com/spechtlabs/th/pkg/shellenv"
	"github.com/spechtlabs/th/pkg/tsh"
	"go.uber.org/zap"
)

// Sentinel errors for the materialization pipeline.
var (
	// ErrCredentialParse indicates required variables were absent from the
	// credential response.
	ErrCredentialParse = errors.New("credential response missing required variables")

	// ErrMaterialize indicates the artifact could not be written.
	ErrMaterialize = errors.New("failed to materialize credentials")
)

// credentialMarker is the line tsh proxy aws prints once credentials are
// ready. The two leading spaces are part of tsh's output format.
const credentialMarker = "  export AWS_ACCESS_KEY_ID="

const (
	credentialWait = 10 * time.Second
	credentialPoll = 500 * time.Millisecond
)

// Target is a resolved (app, role) pair ready for materialization.
type Target struct {
	App  string
	Role string
}

// Materializer turns a resolved target into a transfer artifact. It owns the
// credential set for the duration of one command and nothing beyond the
// written artifact survives it.
type Materializer struct {
	client     *tsh.Client
	supervisor *proc.Supervisor
	dialect    shellenv.Dialect
	tempDir    string
	regions    map[string]string
	region     string
}

// MaterializerOption configures a Materializer.
type MaterializerOption func(*Materializer)

// WithDialect overrides the detected shell dialect.
func WithDialect(d shellenv.Dialect) MaterializerOption {
	return func(m *Materializer) { m.dialect = d }
}

// WithTempDir overrides the artifact directory, used by tests.
func WithTempDir(dir string) MaterializerOption {
	return func(m *Materializer) {
		if dir != "" {
			m.tempDir = dir
		}
	}
}

// WithRegions sets the app-prefix to region mapping and the fallback region.
func WithRegions(regions map[string]string, fallback string) MaterializerOption {
	return func(m *Materializer) {
		m.regions = regions
		if fallback != "" {
			m.region = fallback
		}
	}
}

// NewMaterializer creates a materializer writing artifacts to the shared
// temp dir in the invoking shell's dialect.
func NewMaterializer(client *tsh.Client, supervisor *proc.Supervisor, opts ...MaterializerOption) *Materializer {
	m := &Materializer{
		client:     client,
		supervisor: supervisor,
		dialect:    shellenv.Detect(),
		tempDir:    os.TempDir(),
		regions:    map[string]string{"yl-us": "us-east-2"},
		region:     "eu-west-1",
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Dialect returns the dialect artifacts are rendered in.
func (m *Materializer) Dialect() shellenv.Dialect {
	return m.dialect
}

// watchBuffer collects proxy output across goroutines.
type watchBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *watchBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *watchBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// MaterializeAWS starts a credential proxy for the target and writes the
// resulting credential set to a fresh transfer artifact. On success the
// proxy stays alive to serve the credentials and is reaped by the next
// logout; on any failure the proxy is terminated and no artifact remains.
func (m *Materializer) MaterializeAWS(ctx context.Context, target Target) (string, humane.Error) {
	var output watchBuffer

	handle, err := m.supervisor.SpawnBackground(ctx, &output, m.client.Path(), "proxy", "aws", "--app", target.App)
	if err != nil {
		return "", err
	}

	success := false
	defer func() {
		if success {
			m.supervisor.Detach(handle)
		} else {
			m.supervisor.TerminateAll()
		}
	}()

	if err := waitForMarker(ctx, &output); err != nil {
		return "", err
	}

	set := ParseExports(output.String())
	if _, ok := set.Get("AWS_ACCESS_KEY_ID"); !ok {
		return "", humane.Wrap(ErrCredentialParse,
			fmt.Sprintf("proxy output for %s contained no access key", target.App),
			"run 'tsh apps login' manually to inspect the proxy output",
		)
	}

	set.Set("ACCOUNT", target.App)
	set.Set("ROLE", target.Role)
	set.Set("AWS_DEFAULT_REGION", m.RegionFor(target.App))

	path, pathErr := newArtifactPath(m.tempDir, target.App)
	if pathErr != nil {
		return "", humane.Wrap(errors.Join(ErrMaterialize, pathErr), "failed to name credential file")
	}

	if err := writeArtifact(path, m.dialect, set); err != nil {
		return "", err
	}

	if err := updateProfileSourceLine(path); err != nil {
		otelzap.L().DebugContext(ctx, "could not update shell profile", zap.Error(err.Cause()))
	}

	otelzap.L().DebugContext(ctx, "materialized credentials",
		zap.String("app", target.App),
		zap.String("role", target.Role),
		zap.String("artifact", path),
	)

	success = true
	return path, nil
}

func waitForMarker(ctx context.Context, output *watchBuffer) humane.Error {
	deadline := time.Now().Add(credentialWait)
	for time.Now().Before(deadline) {
		if strings.Contains(output.String(), credentialMarker) {
			return nil
		}

		select {
		case <-ctx.Done():
			return humane.Wrap(tsh.ErrCancelled, "interrupted while waiting for credentials")
		case <-time.After(credentialPoll):
		}
	}

	return humane.Wrap(tsh.ErrTimeout,
		"timed out waiting for AWS credentials",
		"check your Teleport session with 'tsh status'",
		"retry after running 'th login'",
	)
}

// RegionFor resolves the AWS region for an app by prefix match against the
// configured region map, falling back to the default region.
func (m *Materializer) RegionFor(app string) string {
	for prefix, region := range m.regions {
		if strings.HasPrefix(app, prefix) {
			return region
		}
	}
	return m.region
}
