// SPDX-License-Identifier: MPL-2.0

package pluginname

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

const (
	// DefaultPattern selects unscoped identifiers following the plugin naming convention.
	DefaultPattern = "*-plugin"
	// DefaultScopedPattern selects scoped identifiers following the plugin naming convention.
	DefaultScopedPattern = "@*/*-plugin"

	// negationPrefix marks a pattern that excludes identifiers.
	negationPrefix = "!"

	// scopedPatternPrefix is ignored when deriving literal affixes from a pattern.
	scopedPatternPrefix = "@*/"
)

// ErrInvalidPattern is returned when a glob pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid plugin pattern")

type (
	// Matcher selects qualifying identifiers. An identifier qualifies when it
	// matches at least one positive pattern and no negated ("!") pattern.
	// A Matcher is immutable and safe for concurrent use.
	Matcher struct {
		patterns []string
		include  []glob.Glob
		exclude  []glob.Glob
	}

	// InvalidPatternError is returned when a pattern does not compile.
	// It wraps ErrInvalidPattern for errors.Is() compatibility.
	InvalidPatternError struct {
		Pattern string
		Err     error
	}
)

// DefaultPatterns returns the patterns used when none are configured.
func DefaultPatterns() []string {
	return []string{DefaultPattern, DefaultScopedPattern}
}

// NewMatcher compiles patterns into a Matcher. With no patterns, DefaultPatterns is used.
func NewMatcher(patterns ...string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}

	m := &Matcher{patterns: append([]string(nil), patterns...)}
	for _, p := range patterns {
		source, negated := strings.CutPrefix(p, negationPrefix)
		g, err := compile(source)
		if err != nil {
			return nil, &InvalidPatternError{Pattern: p, Err: err}
		}
		if negated {
			m.exclude = append(m.exclude, g)
		} else {
			m.include = append(m.include, g)
		}
	}

	return m, nil
}

// Match reports whether identifier satisfies pattern. Matching is
// case-sensitive and covers the whole identifier.
func Match(identifier, pattern string) (bool, error) {
	g, err := compile(pattern)
	if err != nil {
		return false, &InvalidPatternError{Pattern: pattern, Err: err}
	}
	return g.Match(identifier), nil
}

// Match reports whether identifier qualifies as a plugin.
func (m *Matcher) Match(identifier string) bool {
	for _, g := range m.exclude {
		if g.Match(identifier) {
			return false
		}
	}
	for _, g := range m.include {
		if g.Match(identifier) {
			return true
		}
	}
	return false
}

// Patterns returns the patterns the matcher was built from.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Affixes returns the literal prefix and suffix of the first positive
// pattern. They are the defaults for prefix and suffix stripping.
func (m *Matcher) Affixes() (prefix, suffix string) {
	for _, p := range m.patterns {
		if strings.HasPrefix(p, negationPrefix) {
			continue
		}
		return LiteralAffixes(p)
	}
	return "", ""
}

// LiteralAffixes returns the fixed text before the first wildcard and after
// the last wildcard of pattern. A leading "@*/" scope wildcard is skipped, so
// "@*/*-plugin" yields ("", "-plugin"). A pattern without wildcards has no
// affixes: stripping it would leave nothing.
func LiteralAffixes(pattern string) (prefix, suffix string) {
	pattern = strings.TrimPrefix(pattern, scopedPatternPrefix)

	first := strings.IndexAny(pattern, "*?[{")
	if first < 0 {
		return "", ""
	}
	last := strings.LastIndexAny(pattern, "*?]}")

	return unescape(pattern[:first]), unescape(pattern[last+1:])
}

// Error implements the error interface for InvalidPatternError.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid plugin pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidPatternError) Unwrap() error {
	return ErrInvalidPattern
}

// compile builds a glob without separators, so "*" spans "/" and "@".
func compile(pattern string) (glob.Glob, error) {
	if pattern == "" {
		return nil, errors.New("pattern must not be empty")
	}
	return glob.Compile(pattern)
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}
