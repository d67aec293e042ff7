package disclosure

import (
	"fmt"
	"strings"
)

// NormalizePath canonicalizes one changed-file path.
//
// Rules: reject any segment equal to "..", collapse repeated
// separators, strip a leading "./", strip a trailing separator.
// Normalization is idempotent: a canonical path passes through
// unchanged.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.ContainsAny(p, "\n\r") {
		return "", fmt.Errorf("path %q must not contain line breaks", p)
	}

	s := p
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimSuffix(s, "/")
	if s == "" || s == "." {
		return "", fmt.Errorf("path %q normalizes to nothing", p)
	}

	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path %q contains a parent traversal segment", p)
		}
	}
	return s, nil
}

// normalizePathSet normalizes, deduplicates, and collects violations
// for a set-valued path field. The returned slice is unsorted; callers
// sort at serialization time.
func normalizePathSet(paths []string) ([]string, []string) {
	var violations []string
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		n, err := NormalizePath(p)
		if err != nil {
			violations = append(violations, "paths: "+err.Error())
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, violations
}
