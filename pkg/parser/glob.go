package parser

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ResolvePath expands a file path or glob pattern that must name exactly one
// file. Rotated logs (e.g. "central-broker-master-*.log") are the usual case.
// A pattern that matches nothing is returned as-is so the caller reports a
// file-not-found error with the original name.
func ResolvePath(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	switch len(matches) {
	case 0:
		return pattern, nil
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("pattern %q matches %d files (%s, ...), want exactly one",
			pattern, len(matches), matches[0])
	}
}

// ResolvePaths resolves each pattern with ResolvePath, preserving order.
func ResolvePaths(patterns []string) ([]string, error) {
	result := make([]string, 0, len(patterns))
	for _, p := range patterns {
		path, err := ResolvePath(p)
		if err != nil {
			return nil, err
		}
		result = append(result, path)
	}
	return result, nil
}
