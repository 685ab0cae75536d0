package images

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ListDirectory returns the paths of the supported image files directly in dir,
// sorted by name. Previously rendered results ending in "_result" are skipped.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []string: Image paths in name order.
//   - error: Error if the directory cannot be read.
func ListDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := FormatFromPath(name); err != nil {
			continue
		}
		if strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), "_result") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}

	sort.Strings(paths)
	return paths, nil
}
