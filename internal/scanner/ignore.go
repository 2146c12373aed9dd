package scanner

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// IgnorePattern represents a single gitignore-style pattern.
type IgnorePattern struct {
	pattern     string // Original pattern
	isNegation  bool   // True if pattern starts with !
	isDirectory bool   // True if pattern ends with /
	base        string // Directory of the ignore file, relative to the root
	matcher     glob.Glob
}

// ParseIgnorePattern parses a gitignore-style pattern string. A pattern
// without a slash matches at any depth; a leading slash anchors it to the root.
func ParseIgnorePattern(pattern string) (IgnorePattern, error) {
	p := IgnorePattern{pattern: pattern}
	body := pattern

	if strings.HasPrefix(body, "!") {
		p.isNegation = true
		body = body[1:]
	}
	if strings.HasSuffix(body, "/") {
		p.isDirectory = true
		body = strings.TrimSuffix(body, "/")
	}

	anchored := strings.HasPrefix(body, "/") || strings.Contains(strings.TrimPrefix(body, "/"), "/")
	body = strings.TrimPrefix(body, "/")
	if body == "" {
		return p, fmt.Errorf("empty ignore pattern %q", pattern)
	}

	alts := []string{body}
	if !anchored {
		alts = append(alts, "**/"+body)
	}
	// A matched directory also covers everything below it.
	for _, a := range append([]string(nil), alts...) {
		alts = append(alts, a+"/**")
	}

	m, err := glob.Compile("{"+strings.Join(alts, ",")+"}", '/')
	if err != nil {
		return p, fmt.Errorf("compiling ignore pattern %q: %w", pattern, err)
	}
	p.matcher = m
	return p, nil
}

// WithBase scopes the pattern to the directory base, as for patterns read
// from an ignore file below the root.
func (p IgnorePattern) WithBase(base string) IgnorePattern {
	p.base = base
	return p
}

// Match reports whether path, relative to the root with forward slashes,
// matches the pattern. isDir tells whether path itself is a directory.
func (p IgnorePattern) Match(path string, isDir bool) bool {
	if p.base != "" {
		rest, ok := strings.CutPrefix(path, p.base+"/")
		if !ok {
			return false
		}
		path = rest
	}
	if !p.matcher.Match(path) {
		return false
	}
	if p.isDirectory && isDir {
		return true
	}
	if p.isDirectory {
		// A file matches a directory pattern only through one of its parents.
		return p.matcher.Match(parentDir(path))
	}
	return true
}

// IsNegation returns true if this pattern is a negation pattern.
func (p IgnorePattern) IsNegation() bool {
	return p.isNegation
}

// String returns the pattern as written.
func (p IgnorePattern) String() string {
	return p.pattern
}

func parentDir(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Matcher matches relative paths against a list of globs. A leading "**/"
// also matches at the root, so "**/*.c" selects "main.c".
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: patterns}
	for _, pattern := range patterns {
		src := pattern
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			src = "{" + rest + "," + pattern + "}"
		}
		g, err := glob.Compile(src, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether any pattern matches path.
func (m *Matcher) Match(path string) bool {
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return len(m.globs) == 0
}
