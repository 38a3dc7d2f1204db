package fs

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const globMeta = "*?[{"

// IsPattern reports whether path contains glob syntax.
func IsPattern(path string) bool {
	return strings.ContainsAny(path, globMeta)
}

// Expand resolves a file path or doublestar pattern into regular files,
// sorted lexically. A plain path, or an existing file whose name happens to
// contain glob syntax, is returned as-is so that a missing file surfaces
// when it is opened.
func Expand(pattern string) ([]string, error) {
	if !IsPattern(pattern) {
		return []string{pattern}, nil
	}
	if _, err := os.Stat(pattern); err == nil {
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}

	sort.Strings(files)
	return files, nil
}
