package review

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/scourdev/scour/pkg/concern"
	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func open(s *state.State, detector, file, symbol string) *finding.Finding {
	f := &finding.Finding{
		ID:         finding.NewID(detector, file, symbol),
		Detector:   detector,
		File:       file,
		Summary:    detector + " issue",
		Tier:       3,
		Confidence: finding.ConfidenceHigh,
		Status:     finding.StatusOpen,
	}
	s.Findings[f.ID] = f
	return f
}

func TestPrepareCarriesNoScores(t *testing.T) {
	s := state.New()
	s.Overall = 87.5
	s.Objective = 91.2
	open(s, "smells", "a.py", "f#L1")

	p := Prepare(s, nil, 0)
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, leak := range []string{"87.5", "91.2", "score", "target"} {
		if strings.Contains(strings.ToLower(string(raw)), leak) {
			t.Errorf("packet leaks %q: %s", leak, raw)
		}
	}
	if len(p.Dimensions) != 12 {
		t.Errorf("dimensions = %v", p.Dimensions)
	}
}

func TestPrepareDensestFilesFirst(t *testing.T) {
	s := state.New()
	open(s, "smells", "hot.py", "a#L1")
	open(s, "smells", "hot.py", "b#L2")
	open(s, "complexity", "hot.py", "c")
	open(s, "smells", "mild.py", "d#L1")
	resolved := open(s, "smells", "cold.py", "e#L1")
	resolved.Status = finding.StatusFixed

	p := Prepare(s, nil, 1)
	if len(p.Files) != 1 || p.Files[0].File != "hot.py" {
		t.Fatalf("files = %+v", p.Files)
	}
	if len(p.Files[0].Findings) != 3 {
		t.Errorf("findings = %v", p.Files[0].Findings)
	}
	if p.Stats.Open != 4 {
		t.Errorf("open = %d", p.Stats.Open)
	}
}

func TestImportTrustedInternal(t *testing.T) {
	s := state.New()
	r := &Result{
		Source: "claude-internal",
		Assessments: map[string]DimensionResult{
			"contracts":     {Score: 82, Notes: "clear error contracts"},
			"not_a_dim":     {Score: 50},
			"logic_clarity": {Score: 140}, // out of range
		},
	}
	sum, err := Import(s, r, TrustedInternal, nil, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Applied) != 1 || sum.Applied[0] != "contracts" {
		t.Fatalf("applied = %v", sum.Applied)
	}
	if len(sum.Discarded) != 2 {
		t.Errorf("discarded = %v", sum.Discarded)
	}
	a := s.Subjective["contracts"]
	if a == nil || a.Score != 82 || a.Source != "claude-internal" {
		t.Errorf("assessment = %+v", a)
	}
}

func TestImportAttestedExternalRequiresAttestation(t *testing.T) {
	s := state.New()
	r := &Result{Assessments: map[string]DimensionResult{"contracts": {Score: 70}}}

	if _, err := Import(s, r, AttestedExternal, nil, t0); err == nil {
		t.Fatal("missing attestation accepted")
	}
	r.Attestation = &finding.Attestation{By: "reviewer", Reason: "quarterly audit", At: t0}
	sum, err := Import(s, r, AttestedExternal, nil, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Applied) != 1 {
		t.Errorf("applied = %v", sum.Applied)
	}
}

func TestImportFindingsOnlyDiscardsAssessments(t *testing.T) {
	s := state.New()
	r := &Result{Assessments: map[string]DimensionResult{"contracts": {Score: 70}}}
	sum, err := Import(s, r, FindingsOnly, nil, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Applied) != 0 || len(sum.Discarded) != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(s.Subjective) != 0 {
		t.Error("findings_only wrote an assessment")
	}
}

func TestImportUnknownTrustRejected(t *testing.T) {
	if _, err := Import(state.New(), &Result{}, "wide_open", nil, t0); err == nil {
		t.Fatal("unknown trust level accepted")
	}
}

func TestImportConfirmedConcernBecomesHolistic(t *testing.T) {
	s := state.New()
	c := concern.Concern{
		Type:        concern.TypeMixedResponsibilities,
		File:        "src/app.py",
		Summary:     "Too many responsibilities",
		Fingerprint: "abcd1234abcd1234",
	}
	r := &Result{ConfirmedConcerns: []string{c.Fingerprint, "unknown-fp"}}

	sum, err := Import(s, r, FindingsOnly, []concern.Concern{c}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.NewHolistic) != 1 {
		t.Fatalf("new holistic = %v", sum.NewHolistic)
	}
	f := s.Findings[sum.NewHolistic[0]]
	if f.Detector != finding.DetectorHolistic || f.Status != finding.StatusOpen {
		t.Errorf("holistic finding = %+v", f)
	}
	if f.Detail.Extra["concern_type"] != concern.TypeMixedResponsibilities {
		t.Errorf("extra = %v", f.Detail.Extra)
	}

	// Re-import is idempotent.
	sum, err = Import(s, r, FindingsOnly, []concern.Concern{c}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.NewHolistic) != 0 {
		t.Errorf("duplicate holistic created: %v", sum.NewHolistic)
	}
}

func TestImportManualOverrideClearsIntegrity(t *testing.T) {
	s := state.New()
	s.Integrity = state.Integrity{Status: "penalized", MatchedScans: 3}
	r := &Result{Assessments: map[string]DimensionResult{"contracts": {Score: 75}}}

	if _, err := Import(s, r, ManualOverride, nil, t0); err != nil {
		t.Fatal(err)
	}
	if s.Integrity.Status != "pass" || s.Integrity.MatchedScans != 0 {
		t.Errorf("integrity = %+v", s.Integrity)
	}
}

func TestImportPlaceholderNotesWarn(t *testing.T) {
	s := state.New()
	r := &Result{Assessments: map[string]DimensionResult{
		"contracts": {Score: 75, Notes: "TODO fill in later"},
	}}
	sum, err := Import(s, r, TrustedInternal, nil, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Warnings) != 1 || sum.Warnings[0].Code != "W_PLACEHOLDER_NOTE" {
		t.Errorf("warnings = %v", sum.Warnings)
	}
}
