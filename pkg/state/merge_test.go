package state

import (
	"testing"
	"time"

	"github.com/scourdev/scour/pkg/finding"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func scanned(detector, file, symbol string) *finding.Finding {
	return &finding.Finding{
		ID:         finding.NewID(detector, file, symbol),
		Detector:   detector,
		File:       file,
		Tier:       3,
		Confidence: finding.ConfidenceHigh,
	}
}

func allRan() map[string]bool {
	ran := make(map[string]bool)
	for name := range finding.Registry {
		ran[name] = true
	}
	return ran
}

func TestMergeNewFinding(t *testing.T) {
	s := New()
	diff := Merge(s, []*finding.Finding{scanned("smells", "a.py", "f#L1")},
		MergeOptions{Now: t0, RanDetectors: allRan()})

	if len(diff.New) != 1 {
		t.Fatalf("diff.New = %v", diff.New)
	}
	f := s.Findings[diff.New[0]]
	if f.Status != finding.StatusOpen {
		t.Errorf("status = %q", f.Status)
	}
	if !f.FirstSeen.Equal(t0) || !f.LastSeen.Equal(t0) {
		t.Errorf("timestamps not set: first=%v last=%v", f.FirstSeen, f.LastSeen)
	}
	if s.Stats.ByStatus["open"] != 1 {
		t.Errorf("by_status = %v", s.Stats.ByStatus)
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := New()
	in := []*finding.Finding{scanned("smells", "a.py", "f#L1")}
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan()})

	later := t0.Add(time.Hour)
	diff := Merge(s, in, MergeOptions{Now: later, RanDetectors: allRan()})
	if len(diff.New)+len(diff.Resolved)+len(diff.Reopened) != 0 {
		t.Fatalf("re-merge not idempotent: %+v", diff)
	}
	f := s.Findings[in[0].ID]
	if !f.FirstSeen.Equal(t0) {
		t.Error("first_seen moved")
	}
	if !f.LastSeen.Equal(later) {
		t.Error("last_seen not refreshed")
	}
}

func TestMergeReopensResolved(t *testing.T) {
	s := New()
	in := []*finding.Finding{scanned("smells", "a.py", "f#L1")}
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan()})
	id := in[0].ID

	att := &finding.Attestation{By: "dev", Reason: "acceptable here", At: t0}
	if err := Resolve(s, id, finding.StatusWontfix, att, t0); err != nil {
		t.Fatal(err)
	}

	// The detector reports it again: reopen, not a fresh finding.
	diff := Merge(s, in, MergeOptions{Now: t0.Add(time.Hour), RanDetectors: allRan()})
	if len(diff.Reopened) != 1 || diff.Reopened[0] != id {
		t.Fatalf("diff.Reopened = %v", diff.Reopened)
	}
	f := s.Findings[id]
	if f.Status != finding.StatusOpen {
		t.Errorf("status = %q", f.Status)
	}
	if f.ReopenCount != 1 {
		t.Errorf("reopen_count = %d", f.ReopenCount)
	}
	if f.ResolvedAt != nil {
		t.Error("resolved_at not cleared on reopen")
	}
	if f.Attestation == nil || f.Attestation.Kind != "manual_reopen" {
		t.Errorf("attestation not flagged: %+v", f.Attestation)
	}
}

func TestMergeAutoResolve(t *testing.T) {
	s := New()
	in := []*finding.Finding{scanned("smells", "a.py", "f#L1")}
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan()})
	id := in[0].ID

	diff := Merge(s, nil, MergeOptions{Now: t0.Add(time.Hour), RanDetectors: allRan()})
	if len(diff.Resolved) != 1 || diff.Resolved[0] != id {
		t.Fatalf("diff.Resolved = %v", diff.Resolved)
	}
	f := s.Findings[id]
	if f.Status != finding.StatusAutoResolved {
		t.Errorf("status = %q", f.Status)
	}
	if f.ResolvedAt == nil {
		t.Error("resolved_at not set")
	}
}

func TestMergeAutoResolveOnlyForRanDetectors(t *testing.T) {
	// A detector skipped this scan (missing tool, partial run) must not
	// resolve its earlier findings.
	s := New()
	in := []*finding.Finding{scanned("security", "a.py", "L3")}
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan()})

	ran := allRan()
	delete(ran, "security")
	diff := Merge(s, nil, MergeOptions{Now: t0.Add(time.Hour), RanDetectors: ran})
	if len(diff.Resolved) != 0 {
		t.Fatalf("skipped detector resolved findings: %v", diff.Resolved)
	}
	if s.Findings[in[0].ID].Status != finding.StatusOpen {
		t.Error("finding should stay open")
	}
}

func TestMergeLintSurvivesMissingLinter(t *testing.T) {
	// Lint findings belong to their own detector: a scan where ruff is
	// absent runs the built-in smells phase but not lint, and the prior
	// lint findings must stay open.
	s := New()
	in := []*finding.Finding{scanned("lint", "a.py", "E501#L10")}
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan()})

	ran := allRan()
	delete(ran, "lint")
	diff := Merge(s, []*finding.Finding{scanned("smells", "a.py", "g#L2")},
		MergeOptions{Now: t0.Add(time.Hour), RanDetectors: ran})
	if len(diff.Resolved) != 0 {
		t.Fatalf("lint findings resolved without the linter: %v", diff.Resolved)
	}
	if s.Findings[in[0].ID].Status != finding.StatusOpen {
		t.Errorf("status = %q", s.Findings[in[0].ID].Status)
	}
}

func TestMergeDuplicateEmission(t *testing.T) {
	s := New()
	a := scanned("smells", "a.py", "f#L1")
	b := scanned("smells", "a.py", "f#L1")
	b.Summary = "second emission"
	diff := Merge(s, []*finding.Finding{a, b}, MergeOptions{Now: t0, RanDetectors: allRan()})
	if len(diff.New) != 1 {
		t.Fatalf("duplicate ids produced %d new findings", len(diff.New))
	}
}

func TestSuppressionPatterns(t *testing.T) {
	s := New()
	in := []*finding.Finding{
		scanned("smells", "src/app/a.py", "f#L1"),
		scanned("smells", "lib/b.py", "g#L2"),
	}
	Merge(s, in, MergeOptions{
		Now: t0, RanDetectors: allRan(),
		IgnorePatterns: []string{"src/**"},
	})

	if f := s.Findings[in[0].ID]; !f.Suppressed || f.SuppressionPattern != "src/**" {
		t.Errorf("src finding not suppressed: %+v", f)
	}
	if f := s.Findings[in[1].ID]; f.Suppressed {
		t.Error("lib finding wrongly suppressed")
	}
}

func TestNoiseBudgetPerDetector(t *testing.T) {
	s := New()
	in := []*finding.Finding{
		scanned("smells", "a.py", "f#L1"),
		scanned("smells", "b.py", "f#L2"),
		scanned("smells", "c.py", "f#L3"),
	}
	in[2].Confidence = finding.ConfidenceLow
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan(), NoiseBudget: 2})

	suppressed := 0
	for _, f := range s.Findings {
		if f.Suppressed {
			suppressed++
			if f.Confidence != finding.ConfidenceLow {
				t.Errorf("budget suppressed a high-confidence finding over a low one")
			}
			if f.SuppressionPattern != "noise_budget" {
				t.Errorf("suppression pattern = %q", f.SuppressionPattern)
			}
		}
	}
	if suppressed != 1 {
		t.Fatalf("suppressed = %d, want 1", suppressed)
	}
}

func TestGlobalNoiseBudget(t *testing.T) {
	s := New()
	in := []*finding.Finding{
		scanned("smells", "a.py", "f#L1"),
		scanned("large", "b.py", "file"),
		scanned("unused", "c.py", "x#L9"),
	}
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan(), GlobalNoiseBudget: 2})

	suppressed := 0
	for _, f := range s.Findings {
		if f.Suppressed {
			suppressed++
		}
	}
	if suppressed != 1 {
		t.Fatalf("suppressed = %d, want 1", suppressed)
	}
}

func TestStaleDimensionMarking(t *testing.T) {
	s := New()
	s.Subjective["logic_clarity"] = &Assessment{Score: 80, Source: "trusted_internal", AssessedAt: t0}
	s.Subjective["naming_quality"] = &Assessment{Score: 90, Source: "trusted_internal", AssessedAt: t0}

	Merge(s, []*finding.Finding{scanned("complexity", "a.py", "f")},
		MergeOptions{Now: t0.Add(time.Hour), RanDetectors: allRan()})

	if !s.Subjective["logic_clarity"].NeedsReviewRefresh {
		t.Error("complexity churn should stale logic_clarity")
	}
	if s.Subjective["naming_quality"].NeedsReviewRefresh {
		t.Error("unrelated dimension marked stale")
	}
}

func TestResolveRequiresAttestation(t *testing.T) {
	s := New()
	in := []*finding.Finding{scanned("smells", "a.py", "f#L1")}
	Merge(s, in, MergeOptions{Now: t0, RanDetectors: allRan()})
	id := in[0].ID

	if err := Resolve(s, id, finding.StatusWontfix, nil, t0); err != ErrAttestationRequired {
		t.Errorf("wontfix without attestation: err = %v", err)
	}
	if err := Resolve(s, id, finding.StatusFalsePositive, &finding.Attestation{By: "dev"}, t0); err != ErrAttestationRequired {
		t.Errorf("attestation without reason: err = %v", err)
	}
	// fixed needs no attestation.
	if err := Resolve(s, id, finding.StatusFixed, nil, t0); err != nil {
		t.Errorf("fixed: %v", err)
	}
	if err := Resolve(s, "smells::nope::x", finding.StatusFixed, nil, t0); err != ErrNotFound {
		t.Errorf("unknown id: err = %v", err)
	}
	if err := Resolve(s, id, finding.StatusOpen, nil, t0); err != ErrBadTransition {
		t.Errorf("open is not a resolution: err = %v", err)
	}
}
