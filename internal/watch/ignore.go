package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnores are the built-in ignore patterns: version-control metadata
// and common build output directories.
var DefaultIgnores = []string{
	".git",
	".hg",
	".svn",
	"node_modules",
	"target",
	"dist",
}

// IgnoreSet holds compiled glob patterns used to exclude paths from
// watching. A pattern matches when it matches any single path component or
// the full slash-separated path.
type IgnoreSet struct {
	raw      []string
	patterns []glob.Glob
}

// NewIgnoreSet compiles the given glob patterns into an IgnoreSet.
func NewIgnoreSet(patterns ...string) (*IgnoreSet, error) {
	s := &IgnoreSet{raw: append([]string(nil), patterns...)}

	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", p, err)
		}

		s.patterns = append(s.patterns, g)
	}

	return s, nil
}

// Match reports whether path is excluded by any pattern.
func (s *IgnoreSet) Match(path string) bool {
	if s == nil || len(s.patterns) == 0 {
		return false
	}

	slashed := filepath.ToSlash(path)
	components := strings.Split(slashed, "/")

	for _, g := range s.patterns {
		if g.Match(slashed) {
			return true
		}

		for _, c := range components {
			if c != "" && g.Match(c) {
				return true
			}
		}
	}

	return false
}

// Patterns returns the raw patterns the set was built from.
func (s *IgnoreSet) Patterns() []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s.raw...)
}
