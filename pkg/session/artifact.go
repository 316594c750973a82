package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	humane "github.com/sierrasoftworks/humane-errors-go"
	"github.com/spechtlabs/th/pkg/shellenv"
)

// ArtifactPrefix is the naming contract shared with the shell wrapper: the
// wrapper discovers the newest file carrying this prefix and sources it.
// Changing it requires updating the wrapper.
const ArtifactPrefix = "tsh_proxy_"

// legacyArtifactPrefixes are names older wrapper generations wrote to the
// temp dir. Logout still removes them.
var legacyArtifactPrefixes = []string{"yl_", "admin_"}

// newArtifactPath generates a unique artifact path. Concurrent invocations
// in separate terminals share the temp dir, so the name carries both the pid
// and a random component.
func newArtifactPath(dir, app string) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s%s_%d_%s.env", ArtifactPrefix, app, os.Getpid(), hex.EncodeToString(suffix))
	return filepath.Join(dir, name), nil
}

// writeArtifact creates the artifact and writes the rendered credential set
// into it. The file is created with owner-only permissions before any secret
// byte is written; O_EXCL guarantees we never write into a path someone else
// created. On any failure the partial file is removed.
func writeArtifact(path string, dialect shellenv.Dialect, set *CredentialSet) humane.Error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return humane.Wrap(err,
			"failed to create credential file",
			"check you have write permissions to the temp directory",
		)
	}

	if _, err := f.WriteString(set.Render(dialect)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return humane.Wrap(err,
			"failed to write credential file",
			"check disk space and permissions",
		)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return humane.Wrap(err, "failed to finalize credential file")
	}

	return nil
}

// removeArtifacts deletes every credential artifact in dir, current and
// legacy naming alike. Missing files are fine; this runs on every logout.
func removeArtifacts(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	prefixes := append([]string{ArtifactPrefix}, legacyArtifactPrefixes...)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(entry.Name(), prefix) {
				_ = os.Remove(filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
}
