package queue

import (
	"testing"
	"time"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/plan"
	"github.com/scourdev/scour/pkg/state"
)

func add(s *state.State, detector, file, symbol string, tier int, conf string) *finding.Finding {
	f := &finding.Finding{
		ID:         finding.NewID(detector, file, symbol),
		Detector:   detector,
		File:       file,
		Summary:    detector + " in " + file,
		Tier:       tier,
		Confidence: conf,
		Status:     finding.StatusOpen,
	}
	s.Findings[f.ID] = f
	return f
}

func ids(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestBuildOrdering(t *testing.T) {
	s := state.New()
	t1 := add(s, "unused", "a.py", "x#L1", 1, finding.ConfidenceHigh)
	t3high := add(s, "smells", "b.py", "f#L1", 3, finding.ConfidenceHigh)
	t3low := add(s, "smells", "c.py", "g#L1", 3, finding.ConfidenceLow)
	t4 := add(s, "structural", "d.py", "file", 4, finding.ConfidenceHigh)

	res, err := Build(s, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{t1.ID, t3high.ID, t3low.ID, t4.ID}
	got := ids(res.Items)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if res.Items[0].QueuePosition != 1 {
		t.Error("queue positions not assigned")
	}
}

func TestBuildDenseFileRanksEarlier(t *testing.T) {
	s := state.New()
	add(s, "smells", "dense.py", "a#L1", 3, finding.ConfidenceHigh)
	add(s, "smells", "dense.py", "b#L2", 3, finding.ConfidenceHigh)
	add(s, "smells", "sparse.py", "c#L1", 3, finding.ConfidenceHigh)

	res, err := Build(s, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Items[0].File != "dense.py" || res.Items[1].File != "dense.py" {
		t.Errorf("dense file did not rank first: %v", ids(res.Items))
	}
}

func TestBuildTierFilterAndFallback(t *testing.T) {
	s := state.New()
	add(s, "smells", "a.py", "f#L1", 3, finding.ConfidenceHigh)

	res, err := Build(s, nil, Options{Tier: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectedTier != 3 {
		t.Fatalf("selected tier = %d, want fallback to 3", res.SelectedTier)
	}
	if res.FallbackReason != "Requested T2 has 0 open -> showing T3 (nearest non-empty)." {
		t.Errorf("fallback reason = %q", res.FallbackReason)
	}
	if len(res.Items) != 1 {
		t.Errorf("items = %v", ids(res.Items))
	}

	// Lower tiers are preferred over higher when both exist.
	add(s, "unused", "b.py", "x#L1", 1, finding.ConfidenceHigh)
	res, err = Build(s, nil, Options{Tier: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectedTier != 1 {
		t.Errorf("selected tier = %d, want 1", res.SelectedTier)
	}

	// Explicit opt-out.
	res, err = Build(s, nil, Options{Tier: 2, NoTierFallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 0 || res.FallbackReason != "Requested T2 has 0 open." {
		t.Errorf("no-fallback: items=%v reason=%q", ids(res.Items), res.FallbackReason)
	}
}

func TestBuildCountLimit(t *testing.T) {
	s := state.New()
	for i := 0; i < 15; i++ {
		add(s, "smells", "a.py", finding.LineSymbol(i), 3, finding.ConfidenceHigh)
	}
	res, err := Build(s, nil, Options{Count: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 10 || res.Total != 15 {
		t.Errorf("len=%d total=%d", len(res.Items), res.Total)
	}
}

func TestBuildStatusAndScopeFilters(t *testing.T) {
	s := state.New()
	add(s, "smells", "src/a.py", "f#L1", 3, finding.ConfidenceHigh)
	fx := add(s, "smells", "lib/b.py", "g#L1", 3, finding.ConfidenceHigh)
	fx.Status = finding.StatusFixed

	res, err := Build(s, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 {
		t.Errorf("default open filter: %v", ids(res.Items))
	}

	res, err = Build(s, nil, Options{Status: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 {
		t.Errorf("status all: %v", ids(res.Items))
	}

	res, err = Build(s, nil, Options{Scope: "src/", Status: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || res.Items[0].File != "src/a.py" {
		t.Errorf("scope filter: %v", ids(res.Items))
	}

	if _, err := Build(s, nil, Options{Status: "bogus"}); err == nil {
		t.Error("bogus status accepted")
	}
}

func TestBuildChronicFilter(t *testing.T) {
	s := state.New()
	add(s, "smells", "a.py", "f#L1", 3, finding.ConfidenceHigh)
	chronic := add(s, "smells", "b.py", "g#L1", 3, finding.ConfidenceHigh)
	chronic.ReopenCount = 2

	res, err := Build(s, nil, Options{Chronic: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || res.Items[0].ID != chronic.ID {
		t.Errorf("chronic filter: %v", ids(res.Items))
	}
}

func TestBuildSubjectiveItems(t *testing.T) {
	s := state.New()
	add(s, "smells", "a.py", "f#L1", 3, finding.ConfidenceHigh)
	s.Subjective["logic_clarity"] = &state.Assessment{Score: 55}
	s.Subjective["contracts"] = &state.Assessment{Score: 90}

	res, err := Build(s, nil, Options{IncludeSubjective: true, SubjectiveThreshold: 70})
	if err != nil {
		t.Fatal(err)
	}
	var subj []*Item
	for _, it := range res.Items {
		if it.Kind == KindSubjective {
			subj = append(subj, it)
		}
	}
	if len(subj) != 1 || subj[0].Dimension != "logic_clarity" {
		t.Fatalf("subjective items: %v", ids(res.Items))
	}
	// Subjective ranks after mechanical items.
	if res.Items[len(res.Items)-1].Kind != KindSubjective {
		t.Errorf("subjective not last: %v", ids(res.Items))
	}
}

func TestBuildPlanPinAndSkip(t *testing.T) {
	s := state.New()
	a := add(s, "unused", "a.py", "x#L1", 1, finding.ConfidenceHigh)
	b := add(s, "smells", "b.py", "f#L1", 3, finding.ConfidenceHigh)
	c := add(s, "structural", "c.py", "file", 4, finding.ConfidenceHigh)

	p := plan.New()
	p.QueueOrder = []string{c.ID} // user pinned the tier-4 item to the front
	p.Skipped[a.ID] = &plan.Skip{Kind: plan.SkipTemporary, Reason: "later"}

	res, err := Build(s, p, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := ids(res.Items)
	if len(got) != 2 || got[0] != c.ID || got[1] != b.ID {
		t.Fatalf("plan order = %v", got)
	}

	res, err = Build(s, p, Options{IncludeSkipped: true})
	if err != nil {
		t.Fatal(err)
	}
	got = ids(res.Items)
	if len(got) != 3 || got[2] != a.ID {
		t.Fatalf("include-skipped order = %v", got)
	}
	if !res.Items[2].PlanSkipped || res.Items[2].PlanSkipKind != plan.SkipTemporary {
		t.Errorf("skip metadata missing: %+v", res.Items[2])
	}
}

func TestBuildCollapseClusters(t *testing.T) {
	s := state.New()
	a := add(s, "dupes", "pkg/utils.py", "h1", 3, finding.ConfidenceHigh)
	b := add(s, "dupes", "lib/utils.py", "h2", 3, finding.ConfidenceHigh)
	solo := add(s, "smells", "x.py", "f#L1", 3, finding.ConfidenceHigh)

	p := plan.New()
	p.Clusters["auto/dupes:utils"] = &plan.Cluster{
		FindingIDs: []string{a.ID, b.ID},
		Action:     finding.ActionRefactor,
		CreatedAt:  time.Now(),
	}

	res, err := Build(s, p, Options{CollapseClusters: true})
	if err != nil {
		t.Fatal(err)
	}
	got := ids(res.Items)
	if len(got) != 2 {
		t.Fatalf("collapsed queue = %v", got)
	}
	// Clusters sort before mechanical findings.
	if got[0] != "auto/dupes:utils" || got[1] != solo.ID {
		t.Errorf("order = %v", got)
	}
	if res.Items[0].Count != 2 || res.Items[0].Kind != KindCluster {
		t.Errorf("cluster item = %+v", res.Items[0])
	}
}

func TestBuildClusterFocus(t *testing.T) {
	s := state.New()
	a := add(s, "dupes", "pkg/utils.py", "h1", 3, finding.ConfidenceHigh)
	b := add(s, "dupes", "lib/utils.py", "h2", 3, finding.ConfidenceHigh)
	add(s, "smells", "x.py", "f#L1", 3, finding.ConfidenceHigh)

	p := plan.New()
	p.Clusters["auto/dupes:utils"] = &plan.Cluster{FindingIDs: []string{a.ID, b.ID}}
	p.ActiveCluster = "auto/dupes:utils"

	res, err := Build(s, p, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := ids(res.Items)
	if len(got) != 2 {
		t.Fatalf("focused queue = %v", got)
	}
	for _, id := range got {
		if id != a.ID && id != b.ID {
			t.Errorf("out-of-cluster item %s in focused view", id)
		}
	}
}

func TestBuildSuppressedExcluded(t *testing.T) {
	s := state.New()
	sup := add(s, "smells", "a.py", "f#L1", 3, finding.ConfidenceHigh)
	sup.Suppressed = true
	res, err := Build(s, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 0 {
		t.Errorf("suppressed finding queued: %v", ids(res.Items))
	}
}
