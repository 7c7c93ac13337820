package config

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveSources expands the configured glob patterns and returns the
// deduplicated, sorted list of contract files under rootPath, with ignore
// patterns already applied.
func (c *Config) ResolveSources(rootPath string) ([]string, error) {
	fileSet := make(map[string]bool)

	for _, pattern := range c.Sources {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			// Skip invalid patterns; the remaining patterns still apply.
			continue
		}

		for _, match := range matches {
			if strings.ToLower(filepath.Ext(match)) != ".compact" {
				continue
			}
			if c.ShouldIgnoreFile(match) {
				continue
			}
			fileSet[match] = true
		}
	}

	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)

	return files, nil
}

// expandGlob expands a glob pattern, handling ** for recursive matching.
func expandGlob(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	prefix, suffix, _ := strings.Cut(pattern, "**")
	baseDir := filepath.Clean(prefix)
	if baseDir == "" {
		baseDir = "."
	}
	suffix = strings.TrimPrefix(suffix, string(filepath.Separator))

	var results []string
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if suffix == "" || matchSuffix(path, suffix) {
			results = append(results, path)
		}
		return nil
	})

	return results, err
}

// matchSuffix checks whether a path matches the pattern remainder after **.
func matchSuffix(path, pattern string) bool {
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}
	if len(path) > len(pattern) {
		matched, _ := filepath.Match(pattern, path[len(path)-len(pattern):])
		return matched
	}
	return false
}
