package plan

import (
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

var planLog = log.New(os.Stderr, "[scour:plan] ", log.Ltime)

// SupersededTTL is how long superseded entries are kept before pruning.
const SupersededTTL = 90 * 24 * time.Hour

// remapJaccard is the minimum word-set similarity for a remap candidate.
const remapJaccard = 0.7

// MinClusterSize is the smallest viable auto-cluster.
const MinClusterSize = 2

// ReconcileResult summarizes what a reconciliation changed.
type ReconcileResult struct {
	Superseded   []string `json:"superseded,omitempty"`
	Pruned       []string `json:"pruned,omitempty"`
	Resurfaced   []string `json:"resurfaced,omitempty"`
	EmptyDropped []string `json:"empty_clusters_dropped,omitempty"`
}

// Reconcile brings the plan back in sync with the post-merge state. It
// runs after every scan's merge:
//
//  1. Plan references to ids no longer in state move to superseded with a
//     snapshot of their identifying fields.
//  2. Each superseded entry gets fuzzy remap candidates; remapping itself
//     stays a user action.
//  3. Superseded entries older than the TTL are pruned.
//  4. Temporary skips past their review horizon are flagged, not unskipped.
//  5. Clusters lose dangling references; empty auto-clusters are deleted,
//     user-modified ones never are.
func Reconcile(p *Plan, s *state.State, now time.Time) *ReconcileResult {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	res := &ReconcileResult{}

	p.ScanCount++

	supersedeMissing(p, s, now, res)
	proposeRemaps(p, s)
	pruneExpired(p, now, res)
	resurfaceSkips(p, res)
	cleanClusters(p, res)

	if len(res.Superseded) > 0 || len(res.Pruned) > 0 {
		planLog.Printf("reconciled: %d superseded, %d pruned, %d resurfaced",
			len(res.Superseded), len(res.Pruned), len(res.Resurfaced))
	}
	return res
}

// referencedIDs returns every finding id the plan mentions outside the
// superseded set.
func (p *Plan) referencedIDs() []string {
	seen := make(map[string]bool)
	for _, id := range p.QueueOrder {
		seen[id] = true
	}
	for id := range p.Skipped {
		seen[id] = true
	}
	for _, c := range p.Clusters {
		for _, id := range c.FindingIDs {
			seen[id] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func supersedeMissing(p *Plan, s *state.State, now time.Time, res *ReconcileResult) {
	for _, id := range p.referencedIDs() {
		if _, live := s.Findings[id]; live {
			continue
		}
		if _, already := p.Superseded[id]; already {
			continue
		}
		snap := Snapshot{}
		// The finding is gone from state; reconstruct what we can from
		// the id itself. A richer snapshot exists only when supersession
		// races a deletion within one session, so parse defensively.
		if det, file, _, err := finding.ParseID(id); err == nil {
			snap.Detector = det
			snap.File = file
		}
		p.Superseded[id] = &Superseded{
			Snapshot:     snap,
			SupersededAt: now,
		}
		res.Superseded = append(res.Superseded, id)
	}

	// Drop superseded ids from the live ordering and skips.
	p.QueueOrder = without(p.QueueOrder, p.Superseded)
	for id := range p.Skipped {
		if _, gone := p.Superseded[id]; gone {
			delete(p.Skipped, id)
		}
	}
}

// SnapshotFinding records identifying fields before a finding id leaves
// state, so later supersession has a full snapshot. Called by the resolve
// and purge paths.
func (p *Plan) SnapshotFinding(id, detector, file, summary, status string, tier int) {
	if _, ok := p.Superseded[id]; ok {
		return
	}
	p.Superseded[id] = &Superseded{
		Snapshot: Snapshot{
			Detector: detector, File: file, Summary: summary,
			Tier: tier, Status: status,
		},
		SupersededAt: time.Now().UTC(),
	}
}

func proposeRemaps(p *Plan, s *state.State) {
	for _, entry := range p.Superseded {
		if entry.RemappedTo != "" {
			continue
		}
		var candidates []string
		for id, f := range s.Findings {
			if f.Detector != entry.Snapshot.Detector || f.File != entry.Snapshot.File {
				continue
			}
			if entry.Snapshot.Summary == "" ||
				jaccard(wordSet(entry.Snapshot.Summary), wordSet(f.Summary)) >= remapJaccard {
				candidates = append(candidates, id)
			}
		}
		sort.Strings(candidates)
		entry.Candidates = candidates
	}
}

func pruneExpired(p *Plan, now time.Time, res *ReconcileResult) {
	for id, entry := range p.Superseded {
		if now.Sub(entry.SupersededAt) > SupersededTTL {
			delete(p.Superseded, id)
			delete(p.Overrides, id)
			res.Pruned = append(res.Pruned, id)
		}
	}
	sort.Strings(res.Pruned)
}

func resurfaceSkips(p *Plan, res *ReconcileResult) {
	for id, sk := range p.Skipped {
		if sk.Kind != SkipTemporary || sk.ReviewAfter <= 0 || sk.Resurfaced {
			continue
		}
		if p.ScanCount-sk.SkippedAtScan >= sk.ReviewAfter {
			sk.Resurfaced = true
			res.Resurfaced = append(res.Resurfaced, id)
		}
	}
	sort.Strings(res.Resurfaced)
}

func cleanClusters(p *Plan, res *ReconcileResult) {
	for name, c := range p.Clusters {
		var kept []string
		for _, id := range c.FindingIDs {
			entry, superseded := p.Superseded[id]
			if superseded && entry.RemappedTo == "" {
				continue
			}
			if superseded {
				id = entry.RemappedTo
			}
			kept = append(kept, id)
		}
		c.FindingIDs = kept
		// Auto-clusters dissolve once membership falls below two;
		// user-modified clusters survive even empty.
		if len(kept) < MinClusterSize && !c.UserModified && strings.HasPrefix(name, "auto/") {
			delete(p.Clusters, name)
			res.EmptyDropped = append(res.EmptyDropped, name)
		}
	}
	sort.Strings(res.EmptyDropped)
}

func without(ids []string, gone map[string]*Superseded) []string {
	out := ids[:0]
	for _, id := range ids {
		if _, ok := gone[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// wordSet lowercases and splits a summary into its word set.
func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,:;()[]{}'\"")
		if w != "" {
			out[w] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
