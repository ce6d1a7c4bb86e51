package detect

import (
	"context"
	"fmt"
	"regexp"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// ComplexityPhase runs the cyclomatic complexity and code smell detectors
// over the extracted functions.
func ComplexityPhase() phase.Phase {
	return phase.Phase{
		Name:      "complexity",
		Detectors: []string{finding.DetectorComplexity, finding.DetectorSmells},
		Run:       runComplexity,
	}
}

// smellPattern is one regex-detected smell applied to normalized bodies.
type smellPattern struct {
	id         string
	re         *regexp.Regexp
	summary    string
	confidence string
}

var smellPatterns = []smellPattern{
	{
		id:         "broad_except",
		re:         regexp.MustCompile(`except\s*:|except\s+exception\b|catch\s*\(\s*\w*\s*\)\s*\{\s*\}`),
		summary:    "Broad or silent exception handler",
		confidence: finding.ConfidenceHigh,
	},
	{
		id:         "print_debugging",
		re:         regexp.MustCompile(`\bprint\(|console\.log\(|fmt\.println\(`),
		summary:    "Debug print in production code",
		confidence: finding.ConfidenceMedium,
	},
	{
		id:         "magic_sleep",
		re:         regexp.MustCompile(`time\.sleep\(|setTimeout\(|time\.sleep \(`),
		summary:    "Timing-based synchronization",
		confidence: finding.ConfidenceLow,
	},
	{
		id:         "mutable_default",
		re:         regexp.MustCompile(`def \w+\([^)]*= ?(\[\]|\{\})`),
		summary:    "Mutable default argument",
		confidence: finding.ConfidenceHigh,
	},
}

func runComplexity(_ context.Context, pc *phase.Context) (phase.Result, error) {
	e := newEmitter()

	threshold := pc.Thresholds.Complexity
	if threshold <= 0 {
		threshold = DefaultComplexityThreshold
	}

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
		e.checked(finding.DetectorComplexity, 1)
		e.checked(finding.DetectorSmells, 1)

		if fn.Complexity > threshold {
			conf := finding.ConfidenceMedium
			tier := finding.TierJudgment
			if fn.Complexity > 2*threshold {
				conf = finding.ConfidenceHigh
			}
			fd := newFinding(finding.DetectorComplexity, fn.File, fn.Name, tier, conf,
				fmt.Sprintf("%s has cyclomatic complexity %d (threshold %d)",
					fn.Name, fn.Complexity, threshold))
			fd.Detail.Complexity = fn.Complexity
			fd.Detail.Symbol = fn.Name
			fd.Detail.Line = fn.Line
			fd.Detail.LOC = fn.LOC
			fd.Lang = langOf[fn.File]
			e.emit(fd, z)
		}

		if fn.LOC >= MonsterFunctionLOC {
			fd := newFinding(finding.DetectorSmells, fn.File, fn.Name,
				finding.TierJudgment, finding.ConfidenceHigh,
				fmt.Sprintf("%s is a monster function (%d lines)", fn.Name, fn.LOC))
			fd.Detail.Symbol = fn.Name
			fd.Detail.Line = fn.Line
			fd.Detail.LOC = fn.LOC
			fd.Detail.Extra = map[string]string{"smell_id": "monster_function"}
			fd.Lang = langOf[fn.File]
			e.emit(fd, z)
		}

		for _, sp := range smellPatterns {
			if !sp.re.MatchString(fn.Normalized) {
				continue
			}
			fd := newFinding(finding.DetectorSmells, fn.File, fn.Name+"#"+sp.id,
				finding.TierJudgment, sp.confidence,
				fmt.Sprintf("%s in %s", sp.summary, fn.Name))
			fd.Detail.Symbol = fn.Name
			fd.Detail.Line = fn.Line
			fd.Detail.Extra = map[string]string{"smell_id": sp.id}
			fd.Lang = langOf[fn.File]
			e.emit(fd, z)
		}
	}

	return e.result(), nil
}
