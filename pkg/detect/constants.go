package detect

// Default thresholds for the built-in detectors. These are the single
// source of truth: each detector's defaults, the config fallbacks, and the
// CLI help text all reference them, so a value change is a one-line diff.
const (
	// -------------------------------------------------------------------------
	// Size and structure
	// -------------------------------------------------------------------------

	// DefaultLargeFileLOC flags files above this line count when the
	// language plugin supplies no threshold of its own.
	DefaultLargeFileLOC = 500

	// LargeFileCriticalFactor marks a file critical at factor x threshold;
	// critical large files carry a 2.0 LOC weight cap instead of 1.5.
	LargeFileCriticalFactor = 2

	// StructuralParamLimit is the parameter count above which a function
	// is a structural signal.
	StructuralParamLimit = 8

	// StructuralNestingLimit is the nesting depth above which a function
	// is a structural signal.
	StructuralNestingLimit = 6

	// -------------------------------------------------------------------------
	// Complexity and smells
	// -------------------------------------------------------------------------

	// DefaultComplexityThreshold is the minimum cyclomatic complexity to
	// report when the plugin supplies none.
	DefaultComplexityThreshold = 10

	// MonsterFunctionLOC is the body size at which a function is a
	// monster_function smell regardless of complexity.
	MonsterFunctionLOC = 100

	// -------------------------------------------------------------------------
	// Graph detectors
	// -------------------------------------------------------------------------

	// DefaultFanOutThreshold is the import count above which a file has
	// excessive fan-out.
	DefaultFanOutThreshold = 15

	// DefaultFanInThreshold is the dependent count above which a file is
	// flagged as a fragile dependency.
	DefaultFanInThreshold = 20

	// MaxCycleFindings caps import-cycle findings per scan. Beyond this
	// the signal-to-noise ratio drops.
	MaxCycleFindings = 50

	// SmallCycleSize separates tier-3 small cycles from tier-4 large ones.
	SmallCycleSize = 3

	// -------------------------------------------------------------------------
	// Duplication
	// -------------------------------------------------------------------------

	// MinDupFunctionLOC is the smallest function body considered for
	// exact-duplicate grouping; below it matches are coincidental.
	MinDupFunctionLOC = 5

	// BoilerplateGroupSize is the cluster size at which duplication is
	// reported as boilerplate rather than a pairwise dupe.
	BoilerplateGroupSize = 4

	// -------------------------------------------------------------------------
	// Security
	// -------------------------------------------------------------------------

	// SecretsMaxFileSize is the largest file the secrets detector scans.
	SecretsMaxFileSize int64 = 1 << 20 // 1 MiB
)
