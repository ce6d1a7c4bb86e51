// Package lang provides the language plugin contract and the built-in
// table-driven plugins. The core consumes plugins through the Plugin
// interface only; everything language-specific (extensions, zone rules,
// import syntax, function shapes) lives in per-language tables.
package lang

import (
	"path"
	"sort"
	"strings"

	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// Import is one raw import statement extracted from a source file.
// Deferred imports (type-only, lazy, guarded) are excluded from cycle
// detection but still count toward coupling.
type Import struct {
	Raw      string
	Deferred bool
}

// Plugin is what the scan pipeline consumes per language.
type Plugin interface {
	Name() string
	// Extensions are matched against file suffixes, e.g. ".py".
	Extensions() []string
	// DetectMarkers are repo-root filenames whose presence selects this
	// language, e.g. "pyproject.toml".
	DetectMarkers() []string
	// ZoneRules extend the default zone classification.
	ZoneRules() []zone.Rule
	// Thresholds supplies the language's default detector limits.
	Thresholds() phase.Thresholds
	// IsEntry reports whether a file is an entry point (exempt from
	// orphan detection).
	IsEntry(rel string, content []byte) bool
	// Imports extracts raw import statements from a file.
	Imports(content []byte) []Import
	// ResolveImport expands a raw import into candidate repo-relative
	// paths; the scan keeps the first candidate that exists.
	ResolveImport(fromRel, raw string) []string
	// ExtractFunctions parses a file into lightweight function records
	// for duplication and structural analysis.
	ExtractFunctions(rel string, content []byte) []phase.Function
}

// builtins in registration order; first match wins on ties.
var builtins = []Plugin{newPython(), newGo(), newJavaScript()}

// All returns the built-in plugins.
func All() []Plugin {
	return builtins
}

// ForFile returns the plugin owning a file by extension.
func ForFile(rel string) (Plugin, bool) {
	ext := strings.ToLower(path.Ext(rel))
	for _, p := range builtins {
		for _, e := range p.Extensions() {
			if e == ext {
				return p, true
			}
		}
	}
	return nil, false
}

// Detect picks the repository's languages from marker files and extension
// counts. Returned sorted by file count descending, name ascending.
func Detect(files []string, hasRootFile func(string) bool) []Plugin {
	counts := make(map[string]int)
	byName := make(map[string]Plugin)
	for _, p := range builtins {
		byName[p.Name()] = p
		for _, marker := range p.DetectMarkers() {
			if hasRootFile(marker) {
				counts[p.Name()] += 1000 // marker outweighs stray files
			}
		}
	}
	for _, f := range files {
		if p, ok := ForFile(f); ok {
			counts[p.Name()]++
		}
	}

	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	out := make([]Plugin, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}
