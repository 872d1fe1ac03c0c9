package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover expands path into the files to process. A regular file is returned
// as is, whatever its extension. A directory is scanned without recursion for
// files whose extension matches one of exts, compared case-insensitively;
// matches are grouped in the order of exts and sorted by name within a group.
func Discover(path string, exts ...string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	groups := make([][]string, len(exts))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for i, want := range exts {
			if strings.EqualFold(ext, want) {
				groups[i] = append(groups[i], filepath.Join(path, entry.Name()))
				break
			}
		}
	}

	var files []string
	for _, group := range groups {
		sort.Strings(group)
		files = append(files, group...)
	}
	return files, nil
}

// TargetPath replaces the extension of src with ext. A source without an
// extension gets ext appended.
func TargetPath(src, ext string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ext
}
