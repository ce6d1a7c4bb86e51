// Package ignore provides gitignore-style matching for the optional
// .scourignore file. Patterns here remove paths from discovery entirely,
// before zone classification; they complement the config's exclude globs.
//
// Pattern syntax follows .gitignore:
//
//	# comment
//	*.gen.ts         files by glob, any depth
//	fixtures/        directories by name (trailing slash)
//	/sandbox         anchored to the repository root
//	!fixtures/keep/  negate an earlier pattern
package ignore

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// File is the ignore file read from the repository root.
const File = ".scourignore"

type rule struct {
	pattern  string
	negation bool
	dirOnly  bool
	anchored bool
}

// Matcher answers whether a repository-relative path is ignored. Rules are
// evaluated in file order; the last match wins, so negations can punch
// holes in earlier patterns.
type Matcher struct {
	rules []rule
}

// Load reads <root>/.scourignore. A missing file yields an empty matcher.
func Load(root string) (*Matcher, error) {
	m := &Matcher{}
	f, err := os.Open(filepath.Join(root, File))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.rules = append(m.rules, parse(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// FromPatterns builds a matcher directly, mainly for tests.
func FromPatterns(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		m.rules = append(m.rules, parse(p))
	}
	return m
}

// Empty reports whether the matcher has no rules at all.
func (m *Matcher) Empty() bool { return len(m.rules) == 0 }

// Ignored reports whether a forward-slash, repo-relative path is ignored.
// isDir must be true for directories so dir-only rules apply.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	rel = strings.TrimSuffix(strings.TrimPrefix(rel, "./"), "/")
	if rel == "" || rel == "." {
		return false
	}

	ignored := false
	matched := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.match(rel) {
			ignored = !r.negation
			matched = true
		}
	}
	if ignored {
		return true
	}
	// An explicit negation beats the parent-directory check.
	if matched {
		return false
	}

	// Files under an ignored directory are ignored even when the walk
	// hands us the file path directly (the watcher does this).
	if !isDir {
		parts := strings.Split(rel, "/")
		for i := 1; i < len(parts); i++ {
			if m.Ignored(strings.Join(parts[:i], "/"), true) {
				return true
			}
		}
	}
	return false
}

func parse(pattern string) rule {
	r := rule{}
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}
	// Per gitignore, any interior slash anchors the pattern to the root.
	if strings.Contains(pattern, "/") {
		r.anchored = true
	}
	r.pattern = pattern
	return r
}

func (r *rule) match(rel string) bool {
	if r.anchored {
		ok, err := doublestar.Match(r.pattern, rel)
		return err == nil && ok
	}
	// Unanchored: match the basename, or the pattern at any depth.
	if ok, err := doublestar.Match(r.pattern, path.Base(rel)); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match("**/"+r.pattern, rel)
	return err == nil && ok
}
