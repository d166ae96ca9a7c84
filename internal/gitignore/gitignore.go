// Package gitignore implements gitignore pattern matching, as documented at
// https://git-scm.com/docs/gitignore, plus a small set of patterns vgrep
// always applies for its own on-disk artifacts.
package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// BuiltinPatterns are gitignore-syntax patterns vgrep applies to every scan
// regardless of the project's own .gitignore content, so a project's cache
// directory and on-disk index never get walked back into itself.
var BuiltinPatterns = []string{
	".vgrep/",
	"*.vgrep-embedcache.json",
	"*.hnsw",
}

// Matcher holds compiled gitignore-style patterns and matches paths against
// them concurrently.
type Matcher struct {
	mu    sync.RWMutex
	rules []compiledRule
}

// compiledRule is one pattern after its flags (negation, directory-only,
// anchoring) have been parsed out and its glob syntax compiled to a regex.
type compiledRule struct {
	source   string
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
	anchored bool
	base     string // nested .gitignore directory this rule is scoped to
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// NewWithBuiltins creates a Matcher pre-loaded with BuiltinPatterns, for
// callers that want vgrep's own artifacts excluded even before any
// project .gitignore is consulted.
func NewWithBuiltins() *Matcher {
	m := New()
	for _, p := range BuiltinPatterns {
		m.AddPattern(p)
	}
	return m
}

// AddPattern adds an unscoped gitignore pattern to the matcher.
func (m *Matcher) AddPattern(pattern string) {
	m.AddPatternWithBase(pattern, "")
}

// AddPatternWithBase adds a pattern that only applies to paths under base,
// the directory a nested .gitignore file lives in relative to the scan root.
func (m *Matcher) AddPatternWithBase(pattern, base string) {
	rule, ok := parsePattern(pattern, base)
	if !ok {
		return
	}

	m.mu.Lock()
	m.rules = append(m.rules, rule)
	m.mu.Unlock()
}

// parsePattern strips a pattern's negation/anchor/directory-only markers and
// compiles what's left into a regex. Reports false for a blank line or a
// comment, neither of which produce a rule.
func parsePattern(pattern, base string) (compiledRule, bool) {
	hasEscapedTrailingSpace := strings.HasSuffix(pattern, `\ `)
	pattern = strings.TrimSpace(pattern)

	if pattern == "" || (strings.HasPrefix(pattern, "#") && !strings.HasPrefix(pattern, `\#`)) {
		return compiledRule{}, false
	}

	r := compiledRule{source: pattern, base: base}

	switch {
	case strings.HasPrefix(pattern, `\#`), strings.HasPrefix(pattern, `\!`):
		pattern = strings.TrimPrefix(pattern, `\`)
		r.source = pattern
	case strings.HasPrefix(pattern, "!"):
		r.negation = true
		pattern = strings.TrimPrefix(pattern, "!")
	}

	if hasEscapedTrailingSpace && strings.HasSuffix(pattern, `\`) {
		pattern = strings.TrimSuffix(pattern, `\`) + " "
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") && !strings.HasPrefix(pattern, "*") {
		// "doc/frotz" means "/doc/frotz", not "**/doc/frotz": any internal
		// slash anchors the pattern to the base it was declared under.
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + globToRegex(pattern) + "$")
	return r, true
}

// AddFromFile reads patterns from a gitignore file line by line.
func (m *Matcher) AddFromFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gitignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPatternWithBase(scanner.Text(), base)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read gitignore file: %w", err)
	}
	return nil
}

// Match reports whether path should be ignored: the last rule that matches
// wins, so a later "!pattern" can re-include something an earlier pattern
// excluded.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if matches(path, isDir, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

// matches checks path against a single compiled rule. A directory-only
// pattern like "temp/" also matches files inside that directory, e.g.
// "temp/file.go".
func matches(path string, isDir bool, r compiledRule) bool {
	if r.base != "" {
		if !strings.HasPrefix(path, r.base+"/") && path != r.base {
			return false
		}
		if path == r.base {
			path = filepath.Base(path)
		} else {
			path = strings.TrimPrefix(path, r.base+"/")
		}
	}

	parts := strings.Split(path, "/")
	basename := parts[len(parts)-1]

	if r.anchored {
		return matchesAnchored(path, parts, isDir, r)
	}
	if r.dirOnly {
		return matchesDirOnlyUnanchored(parts, isDir, r)
	}

	if r.regex.MatchString(basename) || r.regex.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// matchesAnchored checks a pattern that must match from the scan root (or
// its rule's base): a full-path match, or for a directory-only pattern, a
// match against any ancestor directory on the way to path.
func matchesAnchored(path string, parts []string, isDir bool, r compiledRule) bool {
	if r.regex.MatchString(path) {
		if r.dirOnly {
			return isDir
		}
		return true
	}
	if r.dirOnly {
		for i := range parts[:len(parts)-1] {
			if r.regex.MatchString(strings.Join(parts[:i+1], "/")) {
				return true
			}
		}
	}
	return false
}

// matchesDirOnlyUnanchored checks an unanchored directory-only pattern
// ("temp/") against every path component: a match on a non-final component
// always hits (it's a parent directory), a match on the final component only
// hits when that component is itself the directory being tested.
func matchesDirOnlyUnanchored(parts []string, isDir bool, r compiledRule) bool {
	for i, part := range parts {
		if !r.regex.MatchString(part) {
			continue
		}
		if i == len(parts)-1 {
			return isDir
		}
		return true
	}
	return false
}

// globToRegex translates one gitignore glob pattern into the regex body that
// implements it (no anchors; callers wrap with ^...$).
func globToRegex(pattern string) string {
	var result strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					result.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				if i == 0 || pattern[i-1] == '/' {
					result.WriteString(".*")
					i += 2
					continue
				}
			}
			result.WriteString("[^/]*")
			i++
		case '?':
			result.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				result.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				result.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '\\':
			if i+1 < len(pattern) {
				result.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				result.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			result.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			result.WriteString(string(c))
			i++
		}
	}
	return result.String()
}
