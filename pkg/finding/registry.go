package finding

// Detector names. The registry below is the single source of truth for
// detector metadata; lookups for known names never fail, and state never
// contains findings from detectors outside this set.
const (
	DetectorLarge       = "large"
	DetectorStructural  = "structural"
	DetectorComplexity  = "complexity"
	DetectorSmells      = "smells"
	DetectorLint        = "lint"
	DetectorUnused      = "unused"
	DetectorSingleUse   = "single_use"
	DetectorCoupling    = "coupling"
	DetectorCycles      = "cycles"
	DetectorOrphaned    = "orphaned"
	DetectorDupes       = "dupes"
	DetectorBoilerplate = "boilerplate_duplication"
	DetectorTestCov     = "test_coverage"
	DetectorSecurity    = "security"
	DetectorHolistic    = "holistic"
)

// Mechanical scoring dimensions and their configured weights.
const (
	DimFileHealth  = "file_health"
	DimCodeQuality = "code_quality"
	DimDuplication = "duplication"
	DimTestHealth  = "test_health"
	DimSecurity    = "security"
)

// Action types drive cluster ordering in the work queue.
const (
	ActionAutoFix    = "auto_fix"
	ActionReorganize = "reorganize"
	ActionRefactor   = "refactor"
	ActionManualFix  = "manual_fix"
	ActionDebtReview = "debt_review"
)

// ActionPriority ranks cluster actions for queue ordering.
func ActionPriority(action string) int {
	switch action {
	case ActionAutoFix:
		return 0
	case ActionReorganize:
		return 1
	case ActionRefactor:
		return 2
	case ActionManualFix:
		return 3
	case ActionDebtReview:
		return 4
	default:
		return 3
	}
}

// Meta is the static registry entry for one detector.
type Meta struct {
	Name      string
	Label     string
	Dimension string
	Action    string
	Fixers    []string
	Tool      string // external tool binding, empty for built-ins
	// Structural detectors feed the concern synthesizer's signal extraction.
	Structural bool
	// NeedsJudgment detectors participate in per-file concern bundling.
	NeedsJudgment bool
	// FileBased detectors are subject to the per-file weight cap.
	FileBased bool
	// Holistic findings bypass the per-file cap and get the display-only
	// priority multiplier.
	Holistic bool
}

// Registry holds compile-time metadata for every detector. Registered once,
// read-only afterwards.
var Registry = map[string]Meta{
	DetectorLarge: {
		Name: DetectorLarge, Label: "Large files", Dimension: DimFileHealth,
		Action: ActionRefactor, Structural: true, FileBased: true,
	},
	DetectorStructural: {
		Name: DetectorStructural, Label: "Structural decomposition", Dimension: DimFileHealth,
		Action: ActionRefactor, Structural: true, NeedsJudgment: true, FileBased: true,
	},
	DetectorComplexity: {
		Name: DetectorComplexity, Label: "Cyclomatic complexity", Dimension: DimCodeQuality,
		Action: ActionRefactor, NeedsJudgment: true, FileBased: true,
	},
	DetectorSmells: {
		Name: DetectorSmells, Label: "Code smells", Dimension: DimCodeQuality,
		Action: ActionManualFix, NeedsJudgment: true, FileBased: true,
	},
	// Lint diagnostics get their own detector so a missing linter skips
	// the phase without the built-in smells phase auto-resolving its
	// findings.
	DetectorLint: {
		Name: DetectorLint, Label: "Lint diagnostics", Dimension: DimCodeQuality,
		Action: ActionAutoFix, Fixers: []string{"ruff-fix"}, Tool: "ruff",
		FileBased: true,
	},
	DetectorUnused: {
		Name: DetectorUnused, Label: "Unused imports/exports", Dimension: DimCodeQuality,
		Action: ActionAutoFix, Fixers: []string{"strip-unused"}, FileBased: true,
	},
	DetectorSingleUse: {
		Name: DetectorSingleUse, Label: "Single-use abstraction", Dimension: DimCodeQuality,
		Action: ActionManualFix, NeedsJudgment: true,
	},
	DetectorCoupling: {
		Name: DetectorCoupling, Label: "Import coupling", Dimension: DimCodeQuality,
		Action: ActionReorganize, NeedsJudgment: true,
	},
	DetectorCycles: {
		Name: DetectorCycles, Label: "Import cycles", Dimension: DimCodeQuality,
		Action: ActionReorganize, NeedsJudgment: true,
	},
	DetectorOrphaned: {
		Name: DetectorOrphaned, Label: "Orphaned files", Dimension: DimCodeQuality,
		Action: ActionManualFix, NeedsJudgment: true,
	},
	DetectorDupes: {
		Name: DetectorDupes, Label: "Duplicate functions", Dimension: DimDuplication,
		Action: ActionRefactor, NeedsJudgment: true,
	},
	DetectorBoilerplate: {
		Name: DetectorBoilerplate, Label: "Boilerplate duplication", Dimension: DimDuplication,
		Action: ActionDebtReview, NeedsJudgment: true,
	},
	DetectorTestCov: {
		Name: DetectorTestCov, Label: "Test coverage", Dimension: DimTestHealth,
		Action: ActionManualFix, FileBased: true,
	},
	DetectorSecurity: {
		Name: DetectorSecurity, Label: "Security patterns", Dimension: DimSecurity,
		Action: ActionManualFix,
	},
	DetectorHolistic: {
		Name: DetectorHolistic, Label: "Holistic review", Dimension: DimCodeQuality,
		Action: ActionDebtReview, NeedsJudgment: true, Holistic: true,
	},
}

// Lookup returns the registry entry for a known detector name. The second
// return is false for unknown names; callers at trust boundaries must treat
// that as a dropped finding, and state code treats it as corruption.
func Lookup(name string) (Meta, bool) {
	m, ok := Registry[name]
	return m, ok
}

// JudgmentDetectors returns the set of detectors whose findings need human
// or LLM judgment, used by the concern synthesizer.
func JudgmentDetectors() map[string]bool {
	out := make(map[string]bool)
	for name, m := range Registry {
		if m.NeedsJudgment {
			out[name] = true
		}
	}
	return out
}
