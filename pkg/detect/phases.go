package detect

import (
	"time"

	"github.com/scourdev/scour/pkg/phase"
)

// BuildPhases returns the full built-in pipeline in execution order. The
// order is part of the contract: size and complexity feed the concern
// signals that later review stages consume, so they run first.
func BuildPhases(toolTimeout time.Duration, withRuff bool) []phase.Phase {
	phases := []phase.Phase{
		SizePhase(),
		ComplexityPhase(),
		UsagePhase(),
		GraphPhase(),
		DupesPhase(),
		TestCoveragePhase(),
		SecurityPhase(),
	}
	if withRuff {
		phases = append(phases, ExternalPhase(RuffAdapter(toolTimeout)))
	}
	return phases
}
