package plan

import (
	"testing"
	"time"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func live(s *state.State, detector, file, symbol, summary string) string {
	f := &finding.Finding{
		ID:         finding.NewID(detector, file, symbol),
		Detector:   detector,
		File:       file,
		Summary:    summary,
		Tier:       3,
		Confidence: finding.ConfidenceHigh,
		Status:     finding.StatusOpen,
	}
	s.Findings[f.ID] = f
	return f.ID
}

func TestReconcileSupersedesMissing(t *testing.T) {
	s := state.New()
	kept := live(s, "smells", "a.py", "f#L1", "long function")

	p := New()
	gone := finding.NewID("smells", "deleted.py", "g#L9")
	p.QueueOrder = []string{gone, kept}
	p.Skipped[gone] = &Skip{Kind: SkipPermanent}

	res := Reconcile(p, s, t0)
	if len(res.Superseded) != 1 || res.Superseded[0] != gone {
		t.Fatalf("superseded = %v", res.Superseded)
	}
	entry := p.Superseded[gone]
	if entry == nil || entry.Snapshot.Detector != "smells" || entry.Snapshot.File != "deleted.py" {
		t.Fatalf("snapshot = %+v", entry)
	}
	if len(p.QueueOrder) != 1 || p.QueueOrder[0] != kept {
		t.Errorf("queue order = %v", p.QueueOrder)
	}
	if _, still := p.Skipped[gone]; still {
		t.Error("superseded id left in skips")
	}
}

func TestReconcileProposesRemapBySummary(t *testing.T) {
	s := state.New()
	match := live(s, "smells", "a.py", "f#L20", "function too long to follow")
	live(s, "smells", "a.py", "g#L90", "magic number in branch")

	p := New()
	p.SnapshotFinding(finding.NewID("smells", "a.py", "f#L1"),
		"smells", "a.py", "function too long to follow easily", finding.StatusOpen, 3)

	Reconcile(p, s, t0)
	entry := p.Superseded[finding.NewID("smells", "a.py", "f#L1")]
	if len(entry.Candidates) != 1 || entry.Candidates[0] != match {
		t.Fatalf("candidates = %v, want only %s", entry.Candidates, match)
	}
	if entry.RemappedTo != "" {
		t.Error("reconciliation must never remap on its own")
	}
}

func TestReconcilePrunesExpired(t *testing.T) {
	p := New()
	old := finding.NewID("smells", "old.py", "x")
	p.Superseded[old] = &Superseded{SupersededAt: t0.Add(-SupersededTTL - time.Hour)}
	p.Overrides[old] = &Override{Note: "stale"}
	fresh := finding.NewID("smells", "fresh.py", "y")
	p.Superseded[fresh] = &Superseded{SupersededAt: t0.Add(-time.Hour)}

	res := Reconcile(p, state.New(), t0)
	if len(res.Pruned) != 1 || res.Pruned[0] != old {
		t.Fatalf("pruned = %v", res.Pruned)
	}
	if _, ok := p.Superseded[fresh]; !ok {
		t.Error("fresh entry pruned early")
	}
	if _, ok := p.Overrides[old]; ok {
		t.Error("override of pruned entry kept")
	}
}

func TestReconcileResurfacesSkips(t *testing.T) {
	s := state.New()
	id := live(s, "smells", "a.py", "f#L1", "")

	p := New()
	p.ScanCount = 4
	p.Skipped[id] = &Skip{Kind: SkipTemporary, SkippedAtScan: 2, ReviewAfter: 3}

	// Scan 5: horizon of 3 scans reached.
	res := Reconcile(p, s, t0)
	if len(res.Resurfaced) != 1 {
		t.Fatalf("resurfaced = %v", res.Resurfaced)
	}
	if !p.Skipped[id].Resurfaced {
		t.Error("skip not flagged")
	}
	if !p.IsSkipped(id) {
		t.Error("resurfacing must not unskip; that is the user's call")
	}

	// A permanent skip never resurfaces.
	p2 := New()
	p2.ScanCount = 100
	p2.Skipped[id] = &Skip{Kind: SkipPermanent, SkippedAtScan: 1}
	res2 := Reconcile(p2, s, t0)
	if len(res2.Resurfaced) != 0 {
		t.Errorf("permanent skip resurfaced: %v", res2.Resurfaced)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	s := state.New()
	live(s, "smells", "a.py", "f#L1", "")

	p := New()
	p.QueueOrder = []string{finding.NewID("smells", "gone.py", "x")}
	Reconcile(p, s, t0)
	before := len(p.Superseded)
	res := Reconcile(p, s, t0)
	if len(res.Superseded) != 0 || len(p.Superseded) != before {
		t.Fatalf("second reconcile changed supersessions: %+v", res)
	}
}

func TestCleanClustersDissolvesSmallAuto(t *testing.T) {
	s := state.New()
	a := live(s, "dupes", "pkg/utils.py", "h1", "")

	p := New()
	goneID := finding.NewID("dupes", "pkg/old.py", "h2")
	p.Clusters["auto/dupes:utils"] = &Cluster{FindingIDs: []string{a, goneID}, CreatedAt: t0}
	p.Clusters["user-picked"] = &Cluster{FindingIDs: []string{goneID}, UserModified: true, CreatedAt: t0}

	res := Reconcile(p, s, t0)
	if len(res.EmptyDropped) != 1 || res.EmptyDropped[0] != "auto/dupes:utils" {
		t.Fatalf("dropped = %v", res.EmptyDropped)
	}
	if _, ok := p.Clusters["user-picked"]; !ok {
		t.Error("user-modified cluster deleted")
	}
	if len(p.Clusters["user-picked"].FindingIDs) != 0 {
		t.Error("dangling reference kept in user cluster")
	}
}

func TestAutoClusterStability(t *testing.T) {
	s := state.New()
	live(s, "dupes", "pkg/utils.py", "h1", "")
	live(s, "dupes", "lib/utils.py", "h2", "")

	p := New()
	AutoCluster(p, s, t0)
	c, ok := p.Clusters["auto/dupes:utils"]
	if !ok {
		t.Fatalf("expected auto/dupes:utils, got %v", clusterNames(p))
	}
	if len(c.FindingIDs) != 2 {
		t.Fatalf("members = %v", c.FindingIDs)
	}
	if c.Action != finding.ActionRefactor {
		t.Errorf("action = %q", c.Action)
	}

	// Re-running yields the identical name and membership.
	first := append([]string(nil), c.FindingIDs...)
	AutoCluster(p, s, t0.Add(time.Hour))
	again := p.Clusters["auto/dupes:utils"]
	if again.FindingIDs[0] != first[0] || again.FindingIDs[1] != first[1] {
		t.Errorf("membership changed: %v vs %v", again.FindingIDs, first)
	}
	if !again.CreatedAt.Equal(t0) {
		t.Error("existing cluster recreated instead of refreshed")
	}
}

func TestAutoClusterByClusterID(t *testing.T) {
	s := state.New()
	a := live(s, "cycles", "pkg/a.py", "abc123", "")
	b := live(s, "cycles", "pkg/b.py", "abc123", "")
	s.Findings[a].Detail.ClusterID = "abc123"
	s.Findings[b].Detail.ClusterID = "abc123"

	p := New()
	AutoCluster(p, s, t0)
	if _, ok := p.Clusters["auto/cycles:abc123"]; !ok {
		t.Fatalf("expected auto/cycles:abc123, got %v", clusterNames(p))
	}
}

func TestAutoClusterSkipsSingletonsAndUserClusters(t *testing.T) {
	s := state.New()
	a := live(s, "smells", "solo.py", "f#L1", "")
	live(s, "smells", "pair.py", "f#L1", "")
	live(s, "smells", "other/pair.py", "f#L2", "")

	p := New()
	AutoCluster(p, s, t0)
	if _, ok := p.Clusters["auto/smells:solo"]; ok {
		t.Error("singleton group clustered")
	}

	// User edits survive refresh.
	c := p.Clusters["auto/smells:pair"]
	c.UserModified = true
	c.FindingIDs = []string{a}
	AutoCluster(p, s, t0.Add(time.Hour))
	if got := p.Clusters["auto/smells:pair"].FindingIDs; len(got) != 1 || got[0] != a {
		t.Errorf("user-modified cluster rewritten: %v", got)
	}
}

func clusterNames(p *Plan) []string {
	var out []string
	for name := range p.Clusters {
		out = append(out, name)
	}
	return out
}
