package lang

import (
	"regexp"
	"strings"

	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

func newJavaScript() Plugin {
	return newGeneric(spec{
		name:       "javascript",
		extensions: []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"},
		markers:    []string{"package.json", "tsconfig.json"},
		zoneRules: []zone.Rule{
			{Pattern: ".test.ts", Zone: zone.Test},
			{Pattern: ".spec.ts", Zone: zone.Test},
			{Pattern: ".test.js", Zone: zone.Test},
			{Pattern: ".spec.js", Zone: zone.Test},
			{Pattern: "/__mocks__/", Zone: zone.Test},
			{Pattern: ".d.ts", Zone: zone.Generated},
			{Pattern: ".min.js", Zone: zone.Generated},
			{Pattern: "/dist/", Zone: zone.Generated},
			{Pattern: "/build/", Zone: zone.Generated},
		},
		thresholds: phase.Thresholds{
			LargeLOC:      400,
			Complexity:    10,
			FanOut:        15,
			FanIn:         20,
			DupSimilarity: 0.9,
		},
		imports: []importPattern{
			// import type only participates in coupling, not cycles.
			{re: regexp.MustCompile(`^import\s+type\s+.*from\s+['"]([^'"]+)['"]`), deferred: true},
			{re: regexp.MustCompile(`^import\s+.*from\s+['"]([^'"]+)['"]`)},
			{re: regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)},
			{re: regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`)},
			// Dynamic import() is lazy by construction.
			{re: regexp.MustCompile(`import\(['"]([^'"]+)['"]\)`), deferred: true},
		},
		resolve:    resolveJSImport,
		entryBases: []string{"index.js", "index.ts", "main.ts", "main.js", "cli.js", "cli.ts"},
		funcStart: regexp.MustCompile(
			`^\s*(?:export\s+)?(?:async\s+)?(?:function\s+(\w+)|const\s+(\w+)\s*=\s*(?:async\s*)?\()` +
				`\s*\(?([^)]*)`),
		branchKeywords: []string{
			"if", "for", "while", "case", "catch", "&&", "\\|\\|", "\\?",
		},
		lineComment: "//",
	})
}

// resolveJSImport expands relative specifiers into the usual candidate
// extensions and index files. Bare package specifiers resolve to nothing
// in-repo.
func resolveJSImport(fromRel, raw string) []string {
	if !strings.HasPrefix(raw, ".") {
		return nil
	}
	dir := ""
	if i := strings.LastIndexByte(fromRel, '/'); i >= 0 {
		dir = fromRel[:i]
	}
	joined := joinRel(dir, raw)
	exts := []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
	candidates := make([]string, 0, 2*len(exts)+1)
	if hasJSExt(joined) {
		candidates = append(candidates, joined)
	}
	for _, e := range exts {
		candidates = append(candidates, joined+e)
	}
	for _, e := range exts {
		candidates = append(candidates, joined+"/index"+e)
	}
	return candidates
}

func hasJSExt(p string) bool {
	for _, e := range []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"} {
		if strings.HasSuffix(p, e) {
			return true
		}
	}
	return false
}

// joinRel resolves ./ and ../ against a base directory without touching
// the filesystem.
func joinRel(dir, raw string) string {
	parts := []string{}
	if dir != "" {
		parts = strings.Split(dir, "/")
	}
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case ".", "":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}
