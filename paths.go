package smpa

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// In-archive paths are canonically backslash-separated; forward slashes are
// accepted on input everywhere and normalized at the boundary.

// toArchivePath normalizes p to the archive's canonical separator.
func toArchivePath(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}

// toNativePath converts an in-archive path to host filesystem separators.
func toNativePath(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
}

func isSep(c byte) bool {
	return c == '\\' || c == '/'
}

func hasTrailingSep(p string) bool {
	return p != "" && isSep(p[len(p)-1])
}

func stripTrailingSep(p string) string {
	if hasTrailingSep(p) {
		return p[:len(p)-1]
	}
	return p
}

// combinePath joins an in-archive directory and name. Either part may be
// empty; no separator is doubled.
func combinePath(dir, name string) string {
	if dir == "" || name == "" {
		return dir + name
	}
	if hasTrailingSep(dir) {
		return dir + name
	}
	return dir + `\` + name
}

// baseName returns everything after the last separator.
func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if isSep(p[i]) {
			return p[i+1:]
		}
	}
	return p
}

// upDir strips the last path component. A path with no separator left
// becomes "".
func upDir(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if isSep(p[i]) {
			return p[:i]
		}
	}
	return ""
}

// dedupeByName resolves flatten-mode collisions: candidates whose bare file
// name matches a later candidate's (case-insensitively) are dropped, so the
// last occurrence in the original input order wins.
func dedupeByName(paths []string) []string {
	keep := make([]bool, len(paths))
	last := make(map[string]int, len(paths))
	for i, p := range paths {
		key := strings.ToUpper(baseName(p))
		if j, ok := last[key]; ok {
			keep[j] = false
		}
		last[key] = i
		keep[i] = true
	}

	out := make([]string, 0, len(last))
	for i, p := range paths {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// pathSet is an upper-cased, sorted list of in-archive paths supporting
// case-insensitive membership tests.
type pathSet []string

func newPathSet(paths []string) pathSet {
	s := make(pathSet, len(paths))
	for i, p := range paths {
		s[i] = strings.ToUpper(toArchivePath(p))
	}
	sort.Strings(s)
	return s
}

func (s pathSet) contains(path string) bool {
	_, ok := slices.BinarySearch(s, strings.ToUpper(toArchivePath(path)))
	return ok
}

// matchesAncestor reports whether path or any of its parent directories is
// in the set. Deleting a directory thereby deletes everything nested under
// it without the format storing parent/child links.
func (s pathSet) matchesAncestor(path string) bool {
	p := strings.ToUpper(toArchivePath(path))
	for p != "" {
		if _, ok := slices.BinarySearch(s, p); ok {
			return true
		}
		p = upDir(p)
	}
	return false
}

// newDeleteSet normalizes a host-supplied deletion list: the directory
// wildcard suffix "*.*" and any trailing separator are stripped, empty
// results are dropped, and the rest is upper-cased and sorted.
func newDeleteSet(paths []string) pathSet {
	s := make(pathSet, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSuffix(p, "*.*")
		p = stripTrailingSep(p)
		if p == "" {
			continue
		}
		s = append(s, strings.ToUpper(toArchivePath(p)))
	}
	sort.Strings(s)
	return s
}

// caseInsensitiveLess orders in-archive paths for the packer's insertion
// order.
func caseInsensitiveLess(a, b string) bool {
	return strings.ToUpper(a) < strings.ToUpper(b)
}
