package vfs

import (
	"regexp"
	"strings"
)

// compileGlob builds a case-insensitive regex matching names against a
// glob pattern: "*" matches any run of characters, "?" matches exactly one.
// No character classes, no brace expansion. An empty pattern or "*" matches
// everything. The match is anchored at both ends of the name.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = "*"
	}
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// ListMode selects shallow (direct children only) or recursive
// (depth-first) traversal for FileSystem.Entries, with a glob filter
// applied to each candidate's base name.
type ListMode struct {
	recursive bool
	filter    string
	re        *regexp.Regexp
}

// Shallow returns a ListMode that yields only direct children of the
// queried directory, filtered by the glob pattern.
func Shallow(filter string) ListMode {
	re, _ := compileGlob(filter)
	return ListMode{recursive: false, filter: filter, re: re}
}

// Recursive returns a ListMode that yields every descendant of the queried
// directory, filtered by the glob pattern.
func Recursive(filter string) ListMode {
	re, _ := compileGlob(filter)
	return ListMode{recursive: true, filter: filter, re: re}
}

// IsRecursive reports whether this mode requests a depth-first walk.
func (m ListMode) IsRecursive() bool { return m.recursive }

// Filter returns the glob pattern this mode was constructed with.
func (m ListMode) Filter() string { return m.filter }

// Match reports whether name satisfies the mode's glob filter.
func (m ListMode) Match(name string) bool {
	if m.re == nil {
		return true
	}
	return m.re.MatchString(name)
}
