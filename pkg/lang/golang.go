package lang

import (
	"regexp"
	"strings"

	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

func newGo() Plugin {
	return newGeneric(spec{
		name:       "go",
		extensions: []string{".go"},
		markers:    []string{"go.mod"},
		zoneRules: []zone.Rule{
			{Pattern: "_test", Zone: zone.Test},
			{Pattern: ".pb.go", Zone: zone.Generated},
			{Pattern: ".gen.go", Zone: zone.Generated},
			{Pattern: "/vendor/", Zone: zone.Vendor},
		},
		thresholds: phase.Thresholds{
			LargeLOC:      800,
			Complexity:    15,
			FanOut:        15,
			FanIn:         20,
			DupSimilarity: 0.9,
		},
		imports: []importPattern{
			{re: regexp.MustCompile(`^(?:import\s+)?(?:\w+\s+|\.\s+|_\s+)?"([^"]+)"`)},
		},
		resolve:    resolveGoImport,
		entryBases: []string{"main.go"},
		entryPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^package main\b`),
		},
		funcStart: regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?(\w+)\s*\(([^)]*)`),
		branchKeywords: []string{
			"if", "for", "case", "select", "go", "defer",
		},
		lineComment: "//",
	})
}

// resolveGoImport maps a module-qualified import to in-repo package
// directories. The scan probes each candidate directory's files, so the
// candidate is the directory path with a trailing marker file pattern.
func resolveGoImport(fromRel, raw string) []string {
	// Only path segments after the module root can exist in-repo; probe
	// progressively shorter suffixes of the import path as directories.
	parts := strings.Split(raw, "/")
	var candidates []string
	for i := 0; i < len(parts); i++ {
		dir := strings.Join(parts[i:], "/")
		if dir == "" {
			continue
		}
		candidates = append(candidates, dir+"/")
	}
	return candidates
}
