// Package fsutil holds small filesystem helpers shared by the build stages.
package fsutil

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic replaces path with data through a temporary sibling file
// that is fsynced and renamed over the target. Readers see either the old or
// the new content, never a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := renameio.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	return nil
}
