package update

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		tag     string
		want    bool
		wantErr bool
	}{
		{name: "newer patch", current: "1.5.0", tag: "v1.5.1", want: true},
		{name: "newer major", current: "1.5.0", tag: "2.0.0", want: true},
		{name: "same version", current: "1.5.0", tag: "v1.5.0", want: false},
		{name: "older release", current: "1.5.0", tag: "v1.4.9", want: false},
		{name: "garbage tag", current: "1.5.0", tag: "latest", wantErr: true},
		{name: "garbage current", current: "dev", tag: "v1.5.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Newer(tt.current, tt.tag)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func releaseServer(t *testing.T, release Release) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/releases/latest")
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(release))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func newTestChecker(t *testing.T, current string, release Release) *Checker {
	t.Helper()

	srv := releaseServer(t, release)
	return NewChecker(current,
		WithAPIBase(srv.URL),
		WithCachePath(filepath.Join(t.TempDir(), "cache.json")),
	)
}

func TestCheckWritesCache(t *testing.T) {
	checker := newTestChecker(t, "1.0.0", Release{TagName: "v1.1.0", Body: "notes"})

	available, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, available)

	cache := checker.loadCache()
	assert.Equal(t, "v1.1.0", cache.LatestVersion)
	assert.True(t, cache.UpdateAvailable)
	assert.WithinDuration(t, time.Now(), cache.LastCheck, time.Minute)

	assert.Contains(t, checker.Notice(), "v1.1.0")
}

func TestCheckUsesFreshCache(t *testing.T) {
	tries := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tries++
		require.NoError(t, json.NewEncoder(w).Encode(Release{TagName: "v2.0.0"}))
	}))
	t.Cleanup(srv.Close)

	checker := NewChecker("1.0.0",
		WithAPIBase(srv.URL),
		WithCachePath(filepath.Join(t.TempDir(), "cache.json")),
	)

	_, err := checker.Check(context.Background())
	require.NoError(t, err)
	_, err = checker.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, tries, "a fresh cache must short-circuit the network call")
}

func TestCheckStaleCacheRefetches(t *testing.T) {
	checker := newTestChecker(t, "1.0.0", Release{TagName: "v1.0.1"})
	checker.saveCache(Cache{
		LastCheck:       time.Now().Add(-48 * time.Hour),
		LatestVersion:   "v0.9.0",
		UpdateAvailable: false,
	})

	available, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, available)
	assert.Equal(t, "v1.0.1", checker.loadCache().LatestVersion)
}

func TestCheckNetworkFailureFallsBackToCache(t *testing.T) {
	checker := NewChecker("1.0.0",
		WithAPIBase("http://127.0.0.1:1"),
		WithCachePath(filepath.Join(t.TempDir(), "cache.json")),
	)
	checker.saveCache(Cache{
		LastCheck:       time.Now().Add(-48 * time.Hour),
		LatestVersion:   "v1.2.0",
		UpdateAvailable: true,
	})

	available, err := checker.Check(context.Background())
	require.Error(t, err)
	assert.True(t, available, "cached answer survives a network failure")
}

func TestNoticeEmptyWhenCurrent(t *testing.T) {
	checker := NewChecker("1.0.0", WithCachePath(filepath.Join(t.TempDir(), "cache.json")))
	checker.saveCache(Cache{LastCheck: time.Now(), LatestVersion: "v1.0.0", UpdateAvailable: false})

	assert.Empty(t, checker.Notice())
}

func TestChangelog(t *testing.T) {
	checker := newTestChecker(t, "1.0.0", Release{TagName: "v1.1.0", Body: "## Fixes\n- things"})

	md, err := checker.Changelog(context.Background())
	require.NoError(t, err)
	assert.Contains(t, md, "1.0.0 -> v1.1.0")
	assert.Contains(t, md, "## Fixes")
}

func TestSelectAsset(t *testing.T) {
	platform := "th_" + runtime.GOOS + "_" + runtime.GOARCH

	asset, err := selectAsset([]Asset{
		{Name: "th_windows_amd64"},
		{Name: platform},
		{Name: "th"},
	})
	require.NoError(t, err)
	assert.Equal(t, platform, asset.Name)

	asset, err = selectAsset([]Asset{{Name: "th"}})
	require.NoError(t, err)
	assert.Equal(t, "th", asset.Name)

	_, err = selectAsset([]Asset{{Name: "something-else"}})
	require.Error(t, err)
}

func TestLoadCacheMissingFile(t *testing.T) {
	checker := NewChecker("1.0.0", WithCachePath(filepath.Join(t.TempDir(), "nope.json")))

	cache := checker.loadCache()
	assert.True(t, cache.LastCheck.IsZero())
	assert.False(t, cache.UpdateAvailable)
}
