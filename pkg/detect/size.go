package detect

import (
	"context"
	"fmt"
	"strconv"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// SizePhase runs the large-file and structural decomposition detectors.
func SizePhase() phase.Phase {
	return phase.Phase{
		Name:      "size",
		Detectors: []string{finding.DetectorLarge, finding.DetectorStructural},
		Run:       runSize,
	}
}

func runSize(_ context.Context, pc *phase.Context) (phase.Result, error) {
	e := newEmitter()

	threshold := pc.Thresholds.LargeLOC
	if threshold <= 0 {
		threshold = DefaultLargeFileLOC
	}

	// Functions grouped by file feed the structural signals.
	funcsByFile := make(map[string][]phase.Function)
	for _, fn := range pc.Functions {
		funcsByFile[fn.File] = append(funcsByFile[fn.File], fn)
	}

	for _, f := range pc.Files {
		if zone.ExcludedFromScoring(f.Zone) {
			continue
		}
		e.checked(finding.DetectorLarge, 1)
		e.checked(finding.DetectorStructural, 1)

		if f.LOC > threshold {
			tier := finding.TierJudgment
			locWeight := 1.5
			if f.LOC > LargeFileCriticalFactor*threshold {
				tier = finding.TierMajorRefactor
				locWeight = 2.0
			}
			fd := newFinding(finding.DetectorLarge, f.Rel, "file", tier,
				finding.ConfidenceHigh,
				fileSummary("Large file", f.LOC, "lines"))
			fd.Detail.LOC = f.LOC
			fd.Detail.LOCWeight = locWeight
			fd.Lang = f.Lang
			e.emit(fd, f.Zone)
		}

		sig := structuralSignals(funcsByFile[f.Rel])
		if sig.maxParams >= StructuralParamLimit || sig.maxNesting >= StructuralNestingLimit {
			fd := newFinding(finding.DetectorStructural, f.Rel, "file",
				finding.TierMajorRefactor, finding.ConfidenceMedium,
				fmt.Sprintf("Structural signals: max %d params, nesting %d across %d functions",
					sig.maxParams, sig.maxNesting, len(funcsByFile[f.Rel])))
			fd.Detail.LOC = f.LOC
			fd.Detail.Extra = map[string]string{
				"max_params":     strconv.Itoa(sig.maxParams),
				"max_nesting":    strconv.Itoa(sig.maxNesting),
				"function_count": strconv.Itoa(len(funcsByFile[f.Rel])),
			}
			fd.Lang = f.Lang
			e.emit(fd, f.Zone)
		}
	}

	return e.result(), nil
}

type structSignals struct {
	maxParams  int
	maxNesting int
}

func structuralSignals(fns []phase.Function) structSignals {
	var s structSignals
	for _, fn := range fns {
		if fn.Params > s.maxParams {
			s.maxParams = fn.Params
		}
		if fn.Nesting > s.maxNesting {
			s.maxNesting = fn.Nesting
		}
	}
	return s
}
