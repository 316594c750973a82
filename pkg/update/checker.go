// Package update checks GitHub for newer releases, installs them in place,
// and renders release notes. The startup check runs in the background and
// never blocks or fails the primary command.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/go-otel-utils/otelzap"
	"go.uber.org/zap"
)

const (
	defaultRepo     = "YouLend/th"
	defaultInterval = 24 * time.Hour
	cacheFileName   = ".th_update_check.json"
)

// Cache is the persisted result of the last release check.
type Cache struct {
	LastCheck       time.Time `json:"last_check"`
	LatestVersion   string    `json:"latest_version"`
	UpdateAvailable bool      `json:"update_available"`
}

// Checker compares the running version against the latest GitHub release.
type Checker struct {
	repo      string
	current   string
	interval  time.Duration
	cachePath string
	apiBase   string
	client    *http.Client
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithRepo sets the GitHub repository in owner/name form.
func WithRepo(repo string) CheckerOption {
	return func(c *Checker) {
		if repo != "" {
			c.repo = repo
		}
	}
}

// WithInterval sets how long a check result stays fresh.
func WithInterval(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithCachePath overrides the cache file location.
func WithCachePath(path string) CheckerOption {
	return func(c *Checker) {
		if path != "" {
			c.cachePath = path
		}
	}
}

// WithAPIBase points the checker at a different API endpoint, used by tests.
func WithAPIBase(base string) CheckerOption {
	return func(c *Checker) {
		if base != "" {
			c.apiBase = base
		}
	}
}

// NewChecker creates a checker for the given running version.
func NewChecker(currentVersion string, opts ...CheckerOption) *Checker {
	home, _ := os.UserHomeDir()

	c := &Checker{
		repo:      defaultRepo,
		current:   currentVersion,
		interval:  defaultInterval,
		cachePath: filepath.Join(home, cacheFileName),
		apiBase:   "https://api.github.com",
		client:    &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckBackground refreshes the cache in a goroutine. Failures are logged at
// debug level and otherwise ignored; the returned channel closes when the
// check finishes so callers can flush a notice after their primary output.
func (c *Checker) CheckBackground(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		if _, err := c.Check(ctx); err != nil {
			otelzap.L().DebugContext(ctx, "release check failed", zap.Error(err.Cause()))
		}
	}()

	return done
}

// Check refreshes the cached release information if it has gone stale and
// reports whether a newer release exists. A network failure falls back to
// the cached answer.
func (c *Checker) Check(ctx context.Context) (bool, humane.Error) {
	cache := c.loadCache()

	if !cache.LastCheck.IsZero() && time.Since(cache.LastCheck) < c.interval {
		return cache.UpdateAvailable, nil
	}

	release, err := c.FetchLatest(ctx)
	if err != nil {
		return cache.UpdateAvailable, err
	}

	available, verErr := Newer(c.current, release.TagName)
	if verErr != nil {
		return false, verErr
	}

	c.saveCache(Cache{
		LastCheck:       time.Now(),
		LatestVersion:   release.TagName,
		UpdateAvailable: available,
	})

	return available, nil
}

// Notice returns the deferred update hint, or empty when the cache shows the
// running version is current.
func (c *Checker) Notice() string {
	cache := c.loadCache()
	if !cache.UpdateAvailable || cache.LatestVersion == "" {
		return ""
	}

	return fmt.Sprintf("Update available: %s -> %s (run 'th update', or 'th changelog' for details)",
		c.current, cache.LatestVersion)
}

func (c *Checker) loadCache() Cache {
	var cache Cache

	content, err := os.ReadFile(c.cachePath)
	if err != nil {
		return cache
	}

	_ = json.Unmarshal(content, &cache)
	return cache
}

func (c *Checker) saveCache(cache Cache) {
	content, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return
	}

	_ = os.WriteFile(c.cachePath, content, 0o644)
}

// Newer reports whether the release tag is a higher semantic version than
// the running one. Tags may carry a leading v.
func Newer(current, tag string) (bool, humane.Error) {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, humane.Wrap(err, fmt.Sprintf("running version %q is not a semantic version", current))
	}

	latest, err := semver.NewVersion(tag)
	if err != nil {
		return false, humane.Wrap(err, fmt.Sprintf("release tag %q is not a semantic version", tag))
	}

	return latest.GreaterThan(cur), nil
}
