package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/lang"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// UsagePhase runs the unused-import and single-use abstraction detectors.
func UsagePhase() phase.Phase {
	return phase.Phase{
		Name:      "usage",
		Detectors: []string{finding.DetectorUnused, finding.DetectorSingleUse},
		Run:       runUsage,
	}
}

func runUsage(ctx context.Context, pc *phase.Context) (phase.Result, error) {
	e := newEmitter()

	// Word occurrence counts across the whole corpus drive single-use
	// detection; per-file counts drive unused imports.
	corpus := make(map[string]int)
	perFile := make(map[string]map[string]int, len(pc.Files))

	for _, f := range pc.Files {
		if err := ctx.Err(); err != nil {
			return phase.Result{}, err
		}
		content, err := pc.ReadFile(f.Rel)
		if err != nil {
			continue
		}
		counts := wordCounts(string(content))
		perFile[f.Rel] = counts
		for w, n := range counts {
			corpus[w] += n
		}
	}

	for _, f := range pc.Files {
		if zone.ExcludedFromScoring(f.Zone) {
			continue
		}
		plugin, ok := lang.ForFile(f.Rel)
		if !ok {
			continue
		}
		content, err := pc.ReadFile(f.Rel)
		if err != nil {
			continue
		}
		e.checked(finding.DetectorUnused, 1)

		counts := perFile[f.Rel]
		for _, imp := range plugin.Imports(content) {
			name := importedName(imp.Raw)
			if name == "" {
				continue
			}
			// The import line itself mentions the name once; more than
			// one occurrence means it is used somewhere in the body.
			if counts[name] <= 1 {
				fd := newFinding(finding.DetectorUnused, f.Rel, "import#"+name,
					finding.TierAutoFix, finding.ConfidenceMedium,
					fmt.Sprintf("Import %q appears unused", name))
				fd.Detail.Extra = map[string]string{"import": imp.Raw}
				fd.Lang = f.Lang
				e.emit(fd, f.Zone)
			}
		}
	}

	// Single-use: a named function referenced exactly once beyond its
	// definition, in production code, suggests an abstraction with one
	// caller.
	zoneOf := make(map[string]zone.Zone, len(pc.Files))
	langOf := make(map[string]string, len(pc.Files))
	for _, f := range pc.Files {
		zoneOf[f.Rel] = f.Zone
		langOf[f.Rel] = f.Lang
	}
	for _, fn := range pc.Functions {
		z := zoneOf[fn.File]
		if zone.ExcludedFromScoring(z) {
			continue
		}
		if isCommonName(fn.Name) {
			continue
		}
		e.checked(finding.DetectorSingleUse, 1)
		if corpus[strings.ToLower(fn.Name)] == 2 {
			fd := newFinding(finding.DetectorSingleUse, fn.File, fn.Name,
				finding.TierJudgment, finding.ConfidenceLow,
				fmt.Sprintf("%s has exactly one caller; consider inlining", fn.Name))
			fd.Detail.Symbol = fn.Name
			fd.Detail.Line = fn.Line
			fd.Lang = langOf[fn.File]
			e.emit(fd, z)
		}
	}

	return e.result(), nil
}

// importedName extracts the referenced name from a raw import target:
// the last path or dot segment.
func importedName(raw string) string {
	raw = strings.TrimSuffix(raw, "/")
	if i := strings.LastIndexAny(raw, "/."); i >= 0 {
		raw = raw[i+1:]
	}
	return strings.ToLower(raw)
}

// commonNames are entry and framework hooks with implicit callers.
var commonNames = map[string]bool{
	"main": true, "init": true, "new": true, "setup": true, "teardown": true,
	"run": true, "test": true, "handler": true, "handle": true,
	"string": true, "error": true, "close": true,
}

func isCommonName(name string) bool {
	lower := strings.ToLower(name)
	if commonNames[lower] {
		return true
	}
	return strings.HasPrefix(lower, "test") || strings.HasPrefix(lower, "_")
}

// wordCounts tokenizes content into lowercase identifier-ish words.
func wordCounts(content string) map[string]int {
	counts := make(map[string]int)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 1 {
			counts[strings.ToLower(cur.String())]++
		}
		cur.Reset()
	}
	for _, r := range content {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return counts
}
