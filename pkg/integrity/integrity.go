// Package integrity guards the subjective scoring pipeline against gaming:
// reviews anchored to the target score, placeholder review notes, and
// wontfix piles that silently widen the strict gap.
package integrity

import (
	"fmt"
	"math"
	"sort"

	"github.com/dlclark/regexp2"

	"github.com/scourdev/scour/pkg/scoring"
	"github.com/scourdev/scour/pkg/state"
)

// Status values for the guard.
const (
	StatusDisabled  = "disabled"
	StatusPass      = "pass"
	StatusWarn      = "warn"
	StatusPenalized = "penalized"
)

// TargetTolerance is the band around the target score that counts as a
// suspicious match.
const TargetTolerance = 0.05

// ResetThreshold is the number of matched scans after which matching
// dimensions are penalized to zero.
const ResetThreshold = 2

// minMatches is how many dimensions must sit in the band to flag a scan.
const minMatches = 2

// WontfixGapLimit is the maximum tolerated strict-vs-lenient gap caused by
// wontfix resolutions before the accountability warning fires.
const WontfixGapLimit = 1.0

// The repeated-character pattern needs backreferences, which the stdlib
// regexp engine does not support, so these compile under regexp2.
var placeholderPatterns = []*regexp2.Regexp{
	regexp2.MustCompile(`(?i)lorem ipsum`, 0),
	regexp2.MustCompile(`(?i)\btodo\b`, 0),
	regexp2.MustCompile(`(.)\1{9,}`, 0),
}

// Warning is one non-fatal integrity observation.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of one post-scoring integrity pass.
type Result struct {
	Status string `json:"status"`
	// MatchedDimensions lie within the tolerance band of the target.
	MatchedDimensions []string  `json:"matched_dimensions,omitempty"`
	PenalizedDims     []string  `json:"penalized_dimensions,omitempty"`
	Warnings          []Warning `json:"warnings,omitempty"`
}

// Check runs target-match detection and the auxiliary checks, updating
// s.Integrity provenance in place. On penalization the matching dimension
// scores are reset to zero for the current scan; the caller must rescore.
func Check(s *state.State, bundle *scoring.Bundle, target float64, scanID string) *Result {
	if target <= 0 {
		s.Integrity.Status = StatusDisabled
		return &Result{Status: StatusDisabled}
	}

	res := &Result{Status: StatusPass}

	var matched []string
	for dim, a := range s.Subjective {
		if math.Abs(a.Score-target) <= TargetTolerance {
			matched = append(matched, dim)
		}
	}
	sort.Strings(matched)

	if len(matched) >= minMatches {
		// Only count a new matched scan once per scan id; rescoring
		// within a scan must not double-penalize.
		if s.Integrity.LastMatchedScanID != scanID {
			s.Integrity.MatchedScans++
			s.Integrity.LastMatchedScanID = scanID
		}
		s.Integrity.MatchedDimensions = matched
		res.MatchedDimensions = matched

		if s.Integrity.MatchedScans >= ResetThreshold {
			res.Status = StatusPenalized
			for _, dim := range matched {
				s.Subjective[dim].Score = 0
			}
			res.PenalizedDims = matched
		} else {
			res.Status = StatusWarn
			res.Warnings = append(res.Warnings, Warning{
				Code: "W_TARGET_MATCH",
				Message: fmt.Sprintf(
					"%d subjective dimensions within %.2f of target %.1f: %v",
					len(matched), TargetTolerance, target, matched),
			})
		}
	} else {
		s.Integrity.MatchedDimensions = nil
		s.Integrity.MatchedScans = 0
		s.Integrity.LastMatchedScanID = ""
	}

	if w, gap := wontfixGap(bundle); w {
		res.Warnings = append(res.Warnings, Warning{
			Code: "W_WONTFIX_GAP",
			Message: fmt.Sprintf(
				"wontfix resolutions widen strict gap to %.2f points; review whether they are justified", gap),
		})
		if res.Status == StatusPass {
			res.Status = StatusWarn
		}
	}

	s.Integrity.Status = res.Status
	return res
}

// CheckNotes scans review note text for placeholder content.
func CheckNotes(notes map[string]string) []Warning {
	var out []Warning
	dims := make([]string, 0, len(notes))
	for dim := range notes {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	for _, dim := range dims {
		for _, re := range placeholderPatterns {
			if ok, _ := re.MatchString(notes[dim]); ok {
				out = append(out, Warning{
					Code:    "W_PLACEHOLDER_NOTE",
					Message: fmt.Sprintf("review note for %s looks like placeholder content", dim),
				})
				break
			}
		}
	}
	return out
}

// wontfixGap reports whether the lenient-vs-strict gap exceeds the limit.
// The gap is exactly the weight wontfix findings add in strict mode.
func wontfixGap(b *scoring.Bundle) (bool, float64) {
	gap := b.Overall - b.Strict
	return gap > WontfixGapLimit, gap
}
