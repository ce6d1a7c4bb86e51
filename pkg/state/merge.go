package state

import (
	"log"
	"os"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scourdev/scour/pkg/finding"
)

var mergeLog = log.New(os.Stderr, "[scour:state] ", log.Ltime)

// MergeOptions configure a scan's merge pass.
type MergeOptions struct {
	// Now is the merge timestamp; zero means time.Now().
	Now time.Time
	// RanDetectors is the set of detectors that actually executed.
	// Auto-resolve only fires for these; a detector skipped for a
	// missing tool must not resolve its prior findings.
	RanDetectors map[string]bool
	// IgnorePatterns are user glob patterns whose matches are suppressed.
	IgnorePatterns []string
	// NoiseBudget caps new open findings per detector per scan
	// (0 = unlimited).
	NoiseBudget int
	// GlobalNoiseBudget caps new open findings across all detectors
	// (0 = unlimited).
	GlobalNoiseBudget int
}

// Diff summarizes what a merge changed.
type Diff struct {
	New      []string `json:"new"`
	Resolved []string `json:"resolved"`
	Reopened []string `json:"reopened"`
	// ScoreDelta is filled by the caller after scoring.
	ScoreDelta float64 `json:"score_delta"`
}

// resolvedStatuses are the statuses an upsert reopens from.
var resolvedStatuses = map[string]bool{
	finding.StatusFixed:         true,
	finding.StatusAutoResolved:  true,
	finding.StatusWontfix:       true,
	finding.StatusFalsePositive: true,
}

// attestedStatuses require a resolution attestation.
var attestedStatuses = map[string]bool{
	finding.StatusWontfix:       true,
	finding.StatusFalsePositive: true,
}

// Merge upserts new scan findings into the state, auto-resolves findings
// their detector no longer reports, applies suppression and noise budgets,
// and appends nothing to history (the caller does that after scoring).
// Findings must be pre-sorted by id; merge output is deterministic.
//
// Merge mutates s in place and returns the diff. Re-merging the identical
// finding set is idempotent apart from last_seen.
func Merge(s *State, scanned []*finding.Finding, opts MergeOptions) *Diff {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	diff := &Diff{}

	seen := make(map[string]bool, len(scanned))
	var newOpen []*finding.Finding

	// Upsert pass.
	for _, f := range scanned {
		if seen[f.ID] {
			continue // duplicate emission within one scan; first wins
		}
		seen[f.ID] = true

		e, ok := s.Findings[f.ID]
		if !ok {
			nf := *f
			nf.Status = finding.StatusOpen
			nf.FirstSeen = now
			nf.LastSeen = now
			nf.ReopenCount = 0
			nf.ResolvedAt = nil
			s.Findings[nf.ID] = &nf
			diff.New = append(diff.New, nf.ID)
			newOpen = append(newOpen, &nf)
			continue
		}

		e.LastSeen = now
		e.Detail.MergeFrom(f.Detail)
		e.Zone = f.Zone
		e.Lang = f.Lang
		if f.Summary != "" {
			e.Summary = f.Summary
		}

		if resolvedStatuses[e.Status] {
			needsAttestation := attestedStatuses[e.Status]
			e.Status = finding.StatusOpen
			e.ReopenCount++
			e.ResolvedAt = nil
			if needsAttestation && e.Attestation != nil {
				e.Attestation.Kind = "manual_reopen"
			}
			diff.Reopened = append(diff.Reopened, e.ID)
		}
	}

	// Auto-resolve pass: only detectors that actually ran.
	for _, f := range s.Findings {
		if f.Status != finding.StatusOpen {
			continue
		}
		if !opts.RanDetectors[f.Detector] {
			continue
		}
		if seen[f.ID] {
			continue
		}
		f.Status = finding.StatusAutoResolved
		t := now
		f.ResolvedAt = &t
		diff.Resolved = append(diff.Resolved, f.ID)
	}

	applySuppression(s, opts.IgnorePatterns, now)
	applyNoiseBudget(newOpen, opts, now)
	markStaleDimensions(s, diff)
	s.RefreshStatusCounts()

	sort.Strings(diff.New)
	sort.Strings(diff.Resolved)
	sort.Strings(diff.Reopened)
	return diff
}

// applySuppression marks findings matching user ignore globs. Suppressed
// findings stay in state but are excluded from scoring.
func applySuppression(s *State, patterns []string, now time.Time) {
	if len(patterns) == 0 {
		return
	}
	for _, f := range s.Findings {
		if f.Suppressed {
			continue
		}
		for _, p := range patterns {
			ok, err := doublestar.Match(p, f.File)
			if err != nil {
				mergeLog.Printf("E_PATTERN_INVALID:%s ignored", p)
				continue
			}
			if ok {
				f.Suppressed = true
				f.SuppressionPattern = p
				t := now
				f.SuppressedAt = &t
				break
			}
		}
	}
}

// applyNoiseBudget caps the number of new open findings per detector (and
// optionally globally), keeping highest-confidence first. Excess findings
// are suppressed with a noise tag rather than dropped.
func applyNoiseBudget(newOpen []*finding.Finding, opts MergeOptions, now time.Time) {
	if opts.NoiseBudget <= 0 && opts.GlobalNoiseBudget <= 0 {
		return
	}

	rank := func(f *finding.Finding) (int, string) {
		return finding.ConfidenceRank(f.Confidence), f.ID
	}
	sorted := make([]*finding.Finding, len(newOpen))
	copy(sorted, newOpen)
	sort.Slice(sorted, func(i, j int) bool {
		ri, idi := rank(sorted[i])
		rj, idj := rank(sorted[j])
		if ri != rj {
			return ri < rj
		}
		return idi < idj
	})

	perDetector := make(map[string]int)
	total := 0
	for _, f := range sorted {
		if f.Suppressed {
			continue
		}
		perDetector[f.Detector]++
		total++
		over := opts.NoiseBudget > 0 && perDetector[f.Detector] > opts.NoiseBudget
		overGlobal := opts.GlobalNoiseBudget > 0 && total > opts.GlobalNoiseBudget
		if over || overGlobal {
			f.Suppressed = true
			f.SuppressionPattern = "noise_budget"
			t := now
			f.SuppressedAt = &t
			if f.Detail.Extra == nil {
				f.Detail.Extra = make(map[string]string)
			}
			f.Detail.Extra["noise_tag"] = "budget_exceeded"
		}
	}
}

// staleDimensionMap routes mechanical detector churn to the subjective
// dimension whose review it invalidates.
var staleDimensionMap = map[string]string{
	finding.DetectorStructural:  "design_coherence",
	finding.DetectorComplexity:  "logic_clarity",
	finding.DetectorSmells:      "low_elegance",
	finding.DetectorDupes:       "abstraction",
	finding.DetectorBoilerplate: "abstraction",
	finding.DetectorCoupling:    "structure_nav",
	finding.DetectorCycles:      "structure_nav",
}

// markStaleDimensions flags subjective assessments whose feeding mechanical
// findings changed materially. The score itself is never mutated here.
func markStaleDimensions(s *State, diff *Diff) {
	churned := make(map[string]bool)
	for _, ids := range [][]string{diff.New, diff.Resolved, diff.Reopened} {
		for _, id := range ids {
			if det, _, _, err := finding.ParseID(id); err == nil {
				if dim, ok := staleDimensionMap[det]; ok {
					churned[dim] = true
				}
			}
		}
	}
	for dim := range churned {
		if a, ok := s.Subjective[dim]; ok {
			a.NeedsReviewRefresh = true
		}
	}
}

// Resolve applies an explicit user resolution transition. Wontfix and
// false_positive require an attestation.
func Resolve(s *State, id, status string, att *finding.Attestation, now time.Time) error {
	f, ok := s.Findings[id]
	if !ok {
		return ErrNotFound
	}
	if !resolvedStatuses[status] {
		return ErrBadTransition
	}
	if attestedStatuses[status] && (att == nil || att.By == "" || att.Reason == "") {
		return ErrAttestationRequired
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	f.Status = status
	t := now
	f.ResolvedAt = &t
	f.Attestation = att
	s.RefreshStatusCounts()
	return nil
}
