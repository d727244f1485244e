// Package ignore decides which paths the indexing pipeline must not touch.
//
// Patterns follow gitignore syntax: blank lines and # comments are skipped,
// * and ? never cross a directory boundary, ** does, a trailing slash
// restricts a pattern to directories, a leading slash anchors it to the
// root, and ! negates with last-match-wins. Rules come from a single
// .troveignore file at the indexed root; there is no nesting.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// IgnoreFileName is the single ignore-rules file honored at an
// indexed root.
const IgnoreFileName = ".troveignore"

// Matcher holds a compiled pattern set. Matching is safe for unlimited
// concurrent readers.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

// rule is one compiled pattern.
type rule struct {
	pattern  string
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
	anchored bool
}

// New returns a Matcher that excludes nothing.
func New() *Matcher {
	return &Matcher{}
}

// Load builds a Matcher from the ignore file at root, if one exists. Any
// failure to build the set fails open: the returned matcher excludes
// nothing and the problem is logged as a warning, because indexing too much
// beats refusing to index.
func Load(root string, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}

	m := New()
	path := filepath.Join(root, IgnoreFileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return m
	}
	if err := m.AddFromFile(path); err != nil {
		logger.Warn("ignore rules unavailable, excluding nothing",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return New()
	}
	return m
}

// AddPattern compiles one pattern into the set. Blank lines and comments
// are no-ops. An uncompilable pattern (such as a malformed character class)
// is an error and leaves the set unchanged.
func (m *Matcher) AddPattern(pattern string) error {
	// A trailing space survives only when escaped, so detect it before
	// trimming.
	escapedTrailingSpace := strings.HasSuffix(pattern, `\ `)
	pattern = strings.TrimSpace(pattern)

	if pattern == "" || (strings.HasPrefix(pattern, "#") && !strings.HasPrefix(pattern, `\#`)) {
		return nil
	}

	r := rule{pattern: pattern}

	switch {
	case strings.HasPrefix(pattern, `\#`), strings.HasPrefix(pattern, `\!`):
		pattern = strings.TrimPrefix(pattern, `\`)
		r.pattern = pattern
	case strings.HasPrefix(pattern, "!"):
		r.negation = true
		pattern = strings.TrimPrefix(pattern, "!")
	}

	if escapedTrailingSpace && strings.HasSuffix(pattern, `\`) {
		pattern = strings.TrimSuffix(pattern, `\`) + " "
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}
	// An internal slash also anchors: "doc/frotz" means /doc/frotz, not
	// **/doc/frotz.
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") && !strings.HasPrefix(pattern, "*") {
		r.anchored = true
	}

	regex, err := regexp.Compile("^" + patternToRegex(pattern) + "$")
	if err != nil {
		return fmt.Errorf("compile pattern %q: %w", r.pattern, err)
	}
	r.regex = regex

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
	return nil
}

// AddFromFile reads one pattern per line from path. The first unusable
// pattern aborts the load so the caller can fail open on the whole set.
func (m *Matcher) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := m.AddPattern(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ignore file: %w", err)
	}
	return nil
}

// Match reports whether the pattern set excludes relPath. relPath is
// relative to the indexed root; isDir tells directory-only patterns what
// they are looking at. The last matching rule wins, so a negation can
// re-include what an earlier rule excluded.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if matchRule(relPath, isDir, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

// matchRule checks one rule against one path. Directory-only patterns also
// match everything inside a matched directory: for "temp/", the path
// "temp/file.go" is excluded too.
func matchRule(path string, isDir bool, r rule) bool {
	parts := strings.Split(path, "/")
	basename := parts[len(parts)-1]

	if r.anchored {
		if r.regex.MatchString(path) {
			if r.dirOnly {
				return isDir
			}
			return true
		}
		// A matched parent directory excludes its contents.
		for i := range parts[:len(parts)-1] {
			if r.regex.MatchString(strings.Join(parts[:i+1], "/")) {
				return true
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	if r.regex.MatchString(basename) {
		return true
	}
	if r.regex.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// patternToRegex translates gitignore glob syntax into a regular
// expression. Everything that is not glob syntax is escaped literally.
func patternToRegex(pattern string) string {
	var out strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]

		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// **/ crosses any number of directories.
					out.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				if i == 0 || pattern[i-1] == '/' {
					// Trailing or path-separated ** swallows the rest.
					out.WriteString(".*")
					i += 2
					continue
				}
			}
			// A single star stops at directory boundaries.
			out.WriteString("[^/]*")
			i++

		case '?':
			out.WriteString("[^/]")
			i++

		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				out.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '\\':
			if i+1 < len(pattern) {
				out.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			out.WriteString(regexp.QuoteMeta(string(c)))
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String()
}
