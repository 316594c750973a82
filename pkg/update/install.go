package update

import (
	"context"
	"fmt"
	"os"
	"runtime"

	humane "github.com/sierrasoftworks/humane-errors-go"
)

// Install downloads the release asset matching this platform and replaces
// the running executable atomically: the new binary is written next to the
// current one, made executable, and renamed over it.
func (c *Checker) Install(ctx context.Context) (string, humane.Error) {
	release, err := c.FetchLatest(ctx)
	if err != nil {
		return "", err
	}

	newer, verErr := Newer(c.current, release.TagName)
	if verErr != nil {
		return "", verErr
	}
	if !newer {
		return "", nil
	}

	asset, assetErr := selectAsset(release.Assets)
	if assetErr != nil {
		return "", assetErr
	}

	data, dlErr := c.downloadAsset(ctx, asset)
	if dlErr != nil {
		return "", dlErr
	}

	exe, exeErr := os.Executable()
	if exeErr != nil {
		return "", humane.Wrap(exeErr, "could not locate the running executable")
	}

	// Sibling temp file so the rename stays on one filesystem.
	tmp := exe + ".new"
	if writeErr := os.WriteFile(tmp, data, 0o755); writeErr != nil {
		return "", humane.Wrap(writeErr, "failed to stage the new binary",
			"check you have write permissions to the install directory",
		)
	}

	if renameErr := os.Rename(tmp, exe); renameErr != nil {
		_ = os.Remove(tmp)
		return "", humane.Wrap(renameErr, "failed to replace the running binary",
			"reinstall manually from the release page",
		)
	}

	return release.TagName, nil
}

// selectAsset finds the binary built for this platform, falling back to an
// unsuffixed asset name.
func selectAsset(assets []Asset) (*Asset, humane.Error) {
	pattern := fmt.Sprintf("th_%s_%s", runtime.GOOS, runtime.GOARCH)

	for i := range assets {
		if assets[i].Name == pattern {
			return &assets[i], nil
		}
	}

	for i := range assets {
		if assets[i].Name == "th" {
			return &assets[i], nil
		}
	}

	return nil, humane.New(
		fmt.Sprintf("no release asset found for %s/%s", runtime.GOOS, runtime.GOARCH),
		"download the binary manually from the release page",
	)
}
