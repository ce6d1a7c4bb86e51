package detect

import (
	"context"
	"path"
	"strings"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// TestCoveragePhase flags production files with no matching test file.
// This is presence-based coverage, not line coverage: it answers "does a
// test for this file exist at all".
func TestCoveragePhase() phase.Phase {
	return phase.Phase{
		Name:      "test_coverage",
		Detectors: []string{finding.DetectorTestCov},
		Run:       runTestCoverage,
	}
}

func runTestCoverage(_ context.Context, pc *phase.Context) (phase.Result, error) {
	e := newEmitter()

	// Stems of every test-zone file, for matching production stems.
	testStems := make(map[string]bool)
	for _, f := range pc.Files {
		if f.Zone != zone.Test {
			continue
		}
		stem := stemOf(f.Rel)
		stem = strings.TrimPrefix(stem, "test_")
		stem = strings.TrimSuffix(stem, "_test")
		stem = strings.TrimSuffix(stem, ".test")
		stem = strings.TrimSuffix(stem, ".spec")
		testStems[stem] = true
	}

	for _, f := range pc.Files {
		if f.Zone != zone.Production {
			continue
		}
		e.checked(finding.DetectorTestCov, 1)
		if testStems[stemOf(f.Rel)] {
			continue
		}
		// Entry points are wired, not unit-tested.
		if pc.IsEntry != nil && pc.IsEntry(f.Rel) {
			continue
		}
		fd := newFinding(finding.DetectorTestCov, f.Rel, "file",
			finding.TierJudgment, finding.ConfidenceLow,
			"No test file found for this module")
		fd.Lang = f.Lang
		e.emit(fd, f.Zone)
	}

	return e.result(), nil
}

func stemOf(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}
