package concern

import (
	"testing"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

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

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint(TypeMixedResponsibilities, "src/app.py", []string{"smells", "dupes"})
	b := Fingerprint(TypeMixedResponsibilities, "src/app.py", []string{"dupes", "smells"})
	if a != b {
		t.Errorf("fingerprint depends on key order: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("fingerprint length = %d", len(a))
	}
	c := Fingerprint(TypeMixedResponsibilities, "src/other.py", []string{"smells", "dupes"})
	if a == c {
		t.Error("different files collided")
	}
}

func TestFileConcernMultiDetector(t *testing.T) {
	s := state.New()
	open(s, "smells", "src/app.py", "f#L10")
	open(s, "complexity", "src/app.py", "g#L40")

	concerns := Generate(s)
	if len(concerns) != 1 {
		t.Fatalf("concerns = %+v", concerns)
	}
	c := concerns[0]
	if c.File != "src/app.py" {
		t.Errorf("file = %q", c.File)
	}
	if len(c.SourceFindings) != 2 {
		t.Errorf("source findings = %v", c.SourceFindings)
	}
	if c.Question == "" || c.Summary == "" {
		t.Error("concern missing reviewer question or summary")
	}
}

func TestFileConcernClassification(t *testing.T) {
	// Three detectors: mixed responsibilities wins over everything.
	s := state.New()
	open(s, "smells", "a.py", "f#L1")
	open(s, "dupes", "a.py", "h1")
	open(s, "complexity", "a.py", "g#L5")
	cs := Generate(s)
	if len(cs) != 1 || cs[0].Type != TypeMixedResponsibilities {
		t.Fatalf("concerns = %+v", cs)
	}

	// Duplication detector pair classifies as duplication design.
	s2 := state.New()
	open(s2, "dupes", "b.py", "h1")
	open(s2, "boilerplate_duplication", "b.py", "h2")
	cs2 := Generate(s2)
	if len(cs2) != 1 || cs2[0].Type != TypeDuplicationDesign {
		t.Fatalf("concerns = %+v", cs2)
	}
}

func TestFileConcernElevatedSignals(t *testing.T) {
	// One detector only, but a monster function escalates on its own.
	s := state.New()
	f := open(s, "smells", "big.py", "process#L1")
	f.Detail.Symbol = "process"
	f.Detail.LOC = 400
	f.Detail.Extra = map[string]string{"smell_id": "monster_function"}

	cs := Generate(s)
	if len(cs) != 1 || cs[0].Type != TypeStructuralComplexity {
		t.Fatalf("concerns = %+v", cs)
	}
}

func TestFileConcernBelowTriggers(t *testing.T) {
	// A single plain judgment finding is not a concern.
	s := state.New()
	open(s, "smells", "a.py", "f#L1")
	if cs := Generate(s); len(cs) != 0 {
		t.Fatalf("concerns = %+v", cs)
	}

	// Non-judgment detectors never trigger file concerns.
	s2 := state.New()
	open(s2, "unused", "a.py", "x#L1")
	open(s2, "large", "a.py", "file")
	if cs := Generate(s2); len(cs) != 0 {
		t.Fatalf("concerns = %+v", cs)
	}
}

func TestCrossFilePattern(t *testing.T) {
	s := state.New()
	for _, file := range []string{"h/a.py", "h/b.py", "h/c.py"} {
		open(s, "smells", file, "f#L1")
		open(s, "complexity", file, "g#L2")
	}

	var systemic []Concern
	for _, c := range Generate(s) {
		if c.Type == TypeSystemicPattern {
			systemic = append(systemic, c)
		}
	}
	if len(systemic) != 1 {
		t.Fatalf("systemic = %+v", systemic)
	}
	if len(systemic[0].SourceFindings) != 6 {
		t.Errorf("source findings = %v", systemic[0].SourceFindings)
	}
}

func TestSystemicSmell(t *testing.T) {
	s := state.New()
	files := []string{"a.py", "b.py", "c.py", "d.py", "e.py"}
	for _, file := range files {
		f := open(s, "smells", file, "f#L1")
		f.Detail.Extra = map[string]string{"smell_id": "bare_except"}
	}

	var smellConcerns []Concern
	for _, c := range Generate(s) {
		if c.Type == TypeSystemicSmell {
			smellConcerns = append(smellConcerns, c)
		}
	}
	if len(smellConcerns) != 1 {
		t.Fatalf("systemic smells = %+v", smellConcerns)
	}
	if len(smellConcerns[0].SourceFindings) != 5 {
		t.Errorf("source findings = %v", smellConcerns[0].SourceFindings)
	}
}

func TestDismissalSuppressesUnchangedConcern(t *testing.T) {
	s := state.New()
	open(s, "smells", "src/app.py", "f#L10")
	open(s, "complexity", "src/app.py", "g#L40")

	cs := Generate(s)
	if len(cs) != 1 {
		t.Fatalf("concerns = %+v", cs)
	}
	Dismiss(s, cs[0], "intentional design")

	if cs := Generate(s); len(cs) != 0 {
		t.Fatalf("dismissed concern regenerated: %+v", cs)
	}

	// A new source finding voids the dismissal.
	open(s, "dupes", "src/app.py", "h1")
	cs = Generate(s)
	if len(cs) != 1 {
		t.Fatalf("changed concern still suppressed: %+v", cs)
	}
}

func TestCleanupStaleDismissals(t *testing.T) {
	s := state.New()
	f := open(s, "smells", "src/app.py", "f#L10")
	open(s, "complexity", "src/app.py", "g#L40")
	cs := Generate(s)
	Dismiss(s, cs[0], "")

	if n := CleanupStaleDismissals(s); n != 0 {
		t.Fatalf("live dismissal removed: %d", n)
	}

	delete(s.Findings, f.ID)
	delete(s.Findings, finding.NewID("complexity", "src/app.py", "g#L40"))
	if n := CleanupStaleDismissals(s); n != 1 {
		t.Fatalf("stale dismissal kept: %d", n)
	}
	if len(s.ConcernDismissals) != 0 {
		t.Error("dismissal map not cleaned")
	}
}
