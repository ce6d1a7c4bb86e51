// Package scoring computes the four score channels from the merged finding
// set, per-detector potentials, and imported subjective assessments. The
// computation is a pure function of its inputs: same inputs give the same
// bundle to within 0.001, regardless of map iteration order.
package scoring

import (
	"math"
	"sort"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/zone"
)

// Input is everything one scoring pass reads.
type Input struct {
	// Findings is the full merged set, any order.
	Findings []*finding.Finding
	// Potentials maps detector name to checks performed this scan.
	Potentials map[string]int
	// Subjective maps dimension name to its imported review score (0-100).
	Subjective map[string]float64
}

// DimensionScore is one dimension's computed contribution.
type DimensionScore struct {
	Score           float64 `json:"score"`
	Checks          int     `json:"checks"`
	WeightedFailure float64 `json:"weighted_failure"`
	EffectiveWeight float64 `json:"effective_weight"`
}

// Bundle is the complete scoring output for one scan.
type Bundle struct {
	Overall        float64 `json:"overall_score"`
	Objective      float64 `json:"objective_score"`
	Strict         float64 `json:"strict_score"`
	VerifiedStrict float64 `json:"verified_strict_score"`

	Mechanical map[string]DimensionScore `json:"mechanical"`
	Subjective map[string]DimensionScore `json:"subjective"`
}

// Compute runs all four channels.
func Compute(in Input) *Bundle {
	lenientMech := mechanicalDimensions(in, Lenient)
	strictMech := mechanicalDimensions(in, Strict)
	verifiedMech := mechanicalDimensions(in, VerifiedStrict)
	subj := subjectiveDimensions(in.Subjective)

	mechAvg, mechOK := poolAverage(lenientMech)
	strictAvg, strictOK := poolAverage(strictMech)
	verifiedAvg, verifiedOK := poolAverage(verifiedMech)
	subjAvg, subjOK := poolAverage(subj)

	b := &Bundle{
		Mechanical: lenientMech,
		Subjective: subj,
	}
	b.Overall = blend(mechAvg, mechOK, subjAvg, subjOK)
	b.Objective = orPerfect(mechAvg, mechOK)
	b.Strict = blend(strictAvg, strictOK, subjAvg, subjOK)
	b.VerifiedStrict = blend(verifiedAvg, verifiedOK, subjAvg, subjOK)
	return b
}

// DisplayWeight is the priority weight of one finding for queue and report
// purposes. Holistic findings get the multiplier here and only here.
func DisplayWeight(f *finding.Finding) float64 {
	w := finding.ConfidenceWeight(f.Confidence) * float64(f.Tier)
	if m, ok := finding.Lookup(f.Detector); ok && m.Holistic {
		w *= HolisticMultiplier
	}
	return w
}

// mechanicalDimensions produces per-dimension scores for one mode.
func mechanicalDimensions(in Input, mode Mode) map[string]DimensionScore {
	failures := failureSums(in.Findings, mode)

	checks := make(map[string]int)
	wf := make(map[string]float64)
	for det, n := range in.Potentials {
		m, ok := finding.Lookup(det)
		if !ok {
			continue
		}
		checks[m.Dimension] += n
	}
	for det, sum := range failures {
		m, ok := finding.Lookup(det)
		if !ok {
			continue
		}
		wf[m.Dimension] += sum
	}

	out := make(map[string]DimensionScore)
	for dim, weight := range MechanicalWeights {
		c := checks[dim]
		if c == 0 {
			// Zero checks: dimension absent from the blend entirely.
			continue
		}
		score := (float64(c) - wf[dim]) / float64(c) * 100
		score = clamp(score, 0, 100)
		out[dim] = DimensionScore{
			Score:           score,
			Checks:          c,
			WeightedFailure: wf[dim],
			EffectiveWeight: weight * math.Min(1.0, float64(c)/MinSample),
		}
	}
	return out
}

// failureSums returns the per-detector weighted failure sum for one mode,
// applying zone exclusion, suppression, and the per-file cap.
func failureSums(findings []*finding.Finding, mode Mode) map[string]float64 {
	failureSet := mode.FailureSet()

	// detector -> file -> findings, plus holistic pass-through.
	byDetector := make(map[string][]*finding.Finding)
	for _, f := range findings {
		if f.Suppressed {
			continue
		}
		if zone.ExcludedFromScoring(zone.Zone(f.Zone)) {
			continue
		}
		if !f.IsFailure(failureSet) {
			continue
		}
		byDetector[f.Detector] = append(byDetector[f.Detector], f)
	}

	out := make(map[string]float64)
	for det, fs := range byDetector {
		meta, ok := finding.Lookup(det)
		if !ok {
			continue
		}
		if !meta.FileBased {
			var sum float64
			for _, f := range fs {
				sum += weight(f)
			}
			out[det] = sum
			continue
		}

		// File-based: cap each file group's contribution. Sort for
		// deterministic "first finding" loc_weight selection.
		byFile := make(map[string][]*finding.Finding)
		for _, f := range fs {
			byFile[f.File] = append(byFile[f.File], f)
		}
		var sum float64
		for _, group := range byFile {
			sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
			var sf, holistic float64
			for _, f := range group {
				if meta.Holistic {
					holistic += weight(f)
					continue
				}
				sf += weight(f)
			}
			groupCap := fileCap(len(group))
			if lw := group[0].Detail.LOCWeight; lw > 0 {
				groupCap = lw
			}
			sum += math.Min(sf, groupCap) + holistic
		}
		out[det] = sum
	}
	return out
}

// weight is the score-formula weight of one finding: confidence x tier.
// The holistic multiplier deliberately does not appear here.
func weight(f *finding.Finding) float64 {
	return finding.ConfidenceWeight(f.Confidence) * float64(f.Tier)
}

// subjectiveDimensions maps imported assessments onto the fixed dimension
// table. Dimensions with no assessment are absent from the blend.
func subjectiveDimensions(assessments map[string]float64) map[string]DimensionScore {
	out := make(map[string]DimensionScore)
	for dim, w := range SubjectiveWeights {
		score, ok := assessments[dim]
		if !ok {
			continue
		}
		out[dim] = DimensionScore{
			Score:           clamp(score, 0, 100),
			Checks:          SubjectiveChecks,
			EffectiveWeight: w,
		}
	}
	return out
}

// poolAverage is the effective-weight-weighted mean of present dimensions.
// The second return is false when the pool is empty.
func poolAverage(dims map[string]DimensionScore) (float64, bool) {
	var num, den float64
	for _, d := range dims {
		num += d.Score * d.EffectiveWeight
		den += d.EffectiveWeight
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// blend combines the two pools 0.40/0.60, renormalizing when one pool is
// absent so a mechanical-only repo still scores out of 100. With both
// pools absent there was nothing to check and nothing found: a perfect
// score, not a zero.
func blend(mech float64, mechOK bool, subj float64, subjOK bool) float64 {
	switch {
	case mechOK && subjOK:
		return MechanicalFraction*mech + SubjectiveFraction*subj
	case mechOK:
		return mech
	case subjOK:
		return subj
	default:
		return 100
	}
}

func orPerfect(v float64, ok bool) float64 {
	if !ok {
		return 100
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
