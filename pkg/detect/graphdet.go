package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// GraphPhase runs the import-graph detectors: coupling, cycles, orphans.
func GraphPhase() phase.Phase {
	return phase.Phase{
		Name: "graph",
		Detectors: []string{
			finding.DetectorCoupling,
			finding.DetectorCycles,
			finding.DetectorOrphaned,
		},
		Run: runGraph,
	}
}

func runGraph(_ context.Context, pc *phase.Context) (phase.Result, error) {
	e := newEmitter()
	if pc.Graph == nil {
		return e.result(), nil
	}

	fanOutLimit := pc.Thresholds.FanOut
	if fanOutLimit <= 0 {
		fanOutLimit = DefaultFanOutThreshold
	}
	fanInLimit := pc.Thresholds.FanIn
	if fanInLimit <= 0 {
		fanInLimit = DefaultFanInThreshold
	}

	zoneOf := make(map[string]zone.Zone, len(pc.Files))
	langOf := make(map[string]string, len(pc.Files))
	for _, f := range pc.Files {
		zoneOf[f.Rel] = f.Zone
		langOf[f.Rel] = f.Lang
	}

	// Coupling: fan-out and fan-in per file.
	for _, f := range pc.Files {
		z := f.Zone
		if zone.ExcludedFromScoring(z) {
			continue
		}
		e.checked(finding.DetectorCoupling, 1)
		e.checked(finding.DetectorOrphaned, 1)

		if out := pc.Graph.FanOut(f.Rel); out > fanOutLimit {
			fd := newFinding(finding.DetectorCoupling, f.Rel, "fan_out",
				finding.TierJudgment, finding.ConfidenceMedium,
				fileSummary("Excessive fan-out", out, "imports"))
			fd.Detail.Extra = map[string]string{"direction": "out"}
			fd.Lang = f.Lang
			e.emit(fd, z)
		}
		if in := pc.Graph.FanIn(f.Rel); in > fanInLimit {
			fd := newFinding(finding.DetectorCoupling, f.Rel, "fan_in",
				finding.TierJudgment, finding.ConfidenceMedium,
				fileSummary("Fragile dependency", in, "dependents"))
			fd.Detail.Extra = map[string]string{"direction": "in"}
			fd.Lang = f.Lang
			e.emit(fd, z)
		}
	}

	// Cycles: one finding per SCC, identity from the full member set so
	// partial refactors produce a new finding instead of a stale reopen.
	sccs := pc.Graph.SCCs()
	e.checked(finding.DetectorCycles, len(pc.Files))
	emitted := 0
	for _, scc := range sccs {
		if emitted >= MaxCycleFindings {
			break
		}
		symbol := finding.MemberSetSymbol(scc)
		anchor := scc[0]
		tier := finding.TierJudgment
		if len(scc) > SmallCycleSize {
			tier = finding.TierMajorRefactor
		}
		fd := newFinding(finding.DetectorCycles, anchor, symbol, tier,
			finding.ConfidenceHigh,
			fmt.Sprintf("Import cycle of %d files: %s", len(scc), preview(scc, 4)))
		fd.Detail.ClusterID = symbol
		fd.Detail.Extra = map[string]string{"members": strings.Join(scc, ",")}
		fd.Lang = langOf[anchor]
		e.emit(fd, zoneOf[anchor])
		emitted++
	}

	// Orphans: no importers and not an entry point.
	for _, rel := range pc.Graph.Orphans(pc.IsEntry) {
		z, known := zoneOf[rel]
		if !known || zone.ExcludedFromScoring(z) {
			continue
		}
		fd := newFinding(finding.DetectorOrphaned, rel, "file",
			finding.TierQuickFix, finding.ConfidenceMedium,
			"File has no importers and is not an entry point")
		fd.Lang = langOf[rel]
		e.emit(fd, z)
	}

	return e.result(), nil
}

func preview(members []string, n int) string {
	if len(members) <= n {
		return strings.Join(members, " -> ")
	}
	return strings.Join(members[:n], " -> ") + " -> ..."
}
