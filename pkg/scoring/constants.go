package scoring

// Scoring constants. These are contract values: changing any of them
// changes every persisted score, so they are centralized here and covered
// by the parity tests.
const (
	// MinSample dampens dimensions with few checks so a three-check
	// dimension cannot outweigh a two-thousand-check one.
	MinSample = 200

	// HolisticMultiplier boosts the display/priority weight of holistic
	// findings. It never enters the score formulas.
	HolisticMultiplier = 10.0

	// SubjectiveChecks is the fixed denominator for subjective dimensions.
	SubjectiveChecks = 10

	// Pool blend fractions.
	MechanicalFraction = 0.40
	SubjectiveFraction = 0.60
)

// Per-file cap thresholds: a file with many findings from one detector
// contributes a bounded weight, so a single pathological file cannot sink a
// dimension.
func fileCap(groupSize int) float64 {
	switch {
	case groupSize < 3:
		return 1.0
	case groupSize <= 5:
		return 1.5
	default:
		return 2.0
	}
}

// Mode selects the failure-status set for a scoring pass.
type Mode int

const (
	// Lenient counts only open findings as failures.
	Lenient Mode = iota
	// Strict additionally counts wontfix.
	Strict
	// VerifiedStrict additionally counts fixed and false_positive,
	// treating unverified resolutions as unresolved.
	VerifiedStrict
)

// FailureSet returns the statuses the mode counts as failures.
func (m Mode) FailureSet() map[string]bool {
	switch m {
	case Strict:
		return map[string]bool{"open": true, "wontfix": true}
	case VerifiedStrict:
		return map[string]bool{
			"open": true, "wontfix": true, "fixed": true, "false_positive": true,
		}
	default:
		return map[string]bool{"open": true}
	}
}

// MechanicalWeights are the configured weights of the mechanical pool.
var MechanicalWeights = map[string]float64{
	"file_health":  2.0,
	"code_quality": 1.0,
	"duplication":  1.0,
	"test_health":  1.0,
	"security":     1.0,
}

// SubjectiveWeights are the twelve fixed subjective dimensions.
var SubjectiveWeights = map[string]float64{
	"high_elegance":     22,
	"mid_elegance":      22,
	"low_elegance":      12,
	"contracts":         12,
	"type_safety":       12,
	"design_coherence":  10,
	"abstraction":       8,
	"logic_clarity":     6,
	"structure_nav":     5,
	"error_consistency": 3,
	"naming_quality":    2,
	"ai_generated_debt": 1,
}

// SubjectiveDimensions lists the subjective dimension names in weight order
// (heaviest first, name tiebreak), for stable presentation.
var SubjectiveDimensions = []string{
	"high_elegance",
	"mid_elegance",
	"contracts",
	"low_elegance",
	"type_safety",
	"design_coherence",
	"abstraction",
	"logic_clarity",
	"structure_nav",
	"error_consistency",
	"naming_quality",
	"ai_generated_debt",
}
