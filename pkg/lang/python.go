package lang

import (
	"regexp"
	"strings"

	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

func newPython() Plugin {
	return newGeneric(spec{
		name:       "python",
		extensions: []string{".py", ".pyi"},
		markers:    []string{"pyproject.toml", "setup.py", "requirements.txt"},
		zoneRules: []zone.Rule{
			{Pattern: "conftest.py", Zone: zone.Config},
			{Pattern: "test_", Zone: zone.Test},
			{Pattern: "_test", Zone: zone.Test},
			{Pattern: "/migrations/", Zone: zone.Generated},
			{Pattern: "setup.py", Zone: zone.Config},
		},
		thresholds: phase.Thresholds{
			LargeLOC:      500,
			Complexity:    10,
			FanOut:        15,
			FanIn:         20,
			DupSimilarity: 0.9,
		},
		imports: []importPattern{
			{re: regexp.MustCompile(`^from\s+([\w.]+)\s+import\b`)},
			{re: regexp.MustCompile(`^import\s+([\w.]+)`)},
		},
		resolve:      resolvePythonImport,
		entryBases:   []string{"__main__.py", "manage.py", "conftest.py", "setup.py", "wsgi.py", "asgi.py"},
		entryPatterns: []*regexp.Regexp{
			regexp.MustCompile(`if\s+__name__\s*==\s*["']__main__["']`),
		},
		funcStart:    regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(([^)]*)`),
		indentBlocks: true,
		branchKeywords: []string{
			"if", "elif", "for", "while", "except", "with", "assert",
			"and", "or", "case",
		},
		lineComment: "#",
	})
}

// resolvePythonImport maps "pkg.mod" to the module file or package
// __init__, both absolute from the repo root and relative to the importer.
func resolvePythonImport(fromRel, raw string) []string {
	rel := strings.ReplaceAll(strings.TrimLeft(raw, "."), ".", "/")
	if rel == "" {
		return nil
	}
	candidates := []string{
		rel + ".py",
		rel + "/__init__.py",
	}
	if i := strings.LastIndexByte(fromRel, '/'); i >= 0 {
		dir := fromRel[:i]
		candidates = append(candidates,
			dir+"/"+rel+".py",
			dir+"/"+rel+"/__init__.py",
		)
	}
	return candidates
}
