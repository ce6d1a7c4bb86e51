package scan

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scourdev/scour/pkg/ignore"
)

// defaultSkipDirs are directory basenames never descended into, applied
// before user excludes. Organized by ecosystem but applied universally.
var defaultSkipDirs = map[string]bool{
	// Version control
	".git": true, ".svn": true, ".hg": true,

	// Scour internal
	".scour": true,

	// Node/JavaScript/TypeScript
	"node_modules": true,
	".next":        true,
	".nuxt":        true,
	".cache":       true,

	// Python
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".ruff_cache":   true,
	"site-packages": true,

	// Go
	// vendor/ stays discoverable: the zone classifier marks it Vendor and
	// scoring excludes it, but stats still count it.

	// Rust / Java / Gradle
	".gradle": true,

	// Editors
	".idea":   true,
	".vscode": true,
}

// maxFileSize bounds what discovery will read into memory.
const maxFileSize = 4 << 20 // 4 MiB

// discovered is one walked file with its content loaded.
type discovered struct {
	Rel     string
	Abs     string
	Content []byte
	LOC     int
}

// discover walks the repository and returns text files in sorted order,
// honoring skip dirs, user exclude globs, and the .scourignore matcher.
// Content is read once here and shared with every later stage.
func discover(root string, exclude []string, ign *ignore.Matcher) ([]discovered, int, error) {
	var out []discovered
	dirs := 0

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil || rel == "." {
			if d.IsDir() {
				dirs++
			}
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if defaultSkipDirs[d.Name()] || excluded(rel+"/", exclude) || ign.Ignored(rel, true) {
				return filepath.SkipDir
			}
			dirs++
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if excluded(rel, exclude) || ign.Ignored(rel, false) {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil || info.Size() > maxFileSize {
			return nil
		}
		content, rerr := os.ReadFile(p)
		if rerr != nil {
			return nil
		}
		if isBinary(content) {
			return nil
		}
		out = append(out, discovered{
			Rel:     rel,
			Abs:     p,
			Content: content,
			LOC:     countLOC(content),
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, dirs, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
		// "dir/" patterns exclude the whole subtree.
		if strings.HasSuffix(p, "/") && strings.HasPrefix(rel, p) {
			return true
		}
	}
	return false
}

// isBinary uses the git heuristic: a NUL byte in the first 8000 bytes.
func isBinary(content []byte) bool {
	probe := content
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

func countLOC(content []byte) int {
	n := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
