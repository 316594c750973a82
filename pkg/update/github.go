package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	humane "github.com/sierrasoftworks/humane-errors-go"
)

// Release is the subset of the GitHub release payload we consume.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Body    string  `json:"body"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// FetchLatest retrieves the newest release of the configured repository.
func (c *Checker) FetchLatest(ctx context.Context) (*Release, humane.Error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, humane.Wrap(err, "failed to build release request")
	}
	req.Header.Set("User-Agent", "th-cli")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, humane.Wrap(err,
			"failed to reach GitHub",
			"check your network connection",
		)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, humane.New(
			fmt.Sprintf("GitHub returned %s for %s", resp.Status, c.repo),
			"verify the update.repo setting points at an existing repository",
		)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, humane.Wrap(err, "failed to decode release payload")
	}

	return &release, nil
}

// Changelog renders the latest release notes as markdown, prefixed with the
// version transition when the release is newer than the running version.
func (c *Checker) Changelog(ctx context.Context) (string, humane.Error) {
	release, err := c.FetchLatest(ctx)
	if err != nil {
		return "", err
	}

	newer, verErr := Newer(c.current, release.TagName)
	if verErr != nil {
		return "", verErr
	}

	if newer {
		return fmt.Sprintf("## %s -> %s\n\n%s\n", c.current, release.TagName, release.Body), nil
	}

	return fmt.Sprintf("## Current version: %s\n\nYou are running the latest release.\n\n%s\n", c.current, release.Body), nil
}

func (c *Checker) downloadAsset(ctx context.Context, asset *Asset) ([]byte, humane.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return nil, humane.Wrap(err, "failed to build download request")
	}
	req.Header.Set("User-Agent", "th-cli")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, humane.Wrap(err, fmt.Sprintf("failed to download %s", asset.Name))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, humane.New(fmt.Sprintf("download of %s returned %s", asset.Name, resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, humane.Wrap(err, fmt.Sprintf("failed to read %s", asset.Name))
	}

	return data, nil
}
