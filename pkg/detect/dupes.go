package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/scourdev/scour/pkg/detect/clone"
	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// DupesPhase runs exact and near-duplicate function detection. Exact
// duplicates come from body-hash grouping; near-duplicates from the
// rolling-hash clone engine. Both feed one union-find so overlapping
// pairs collapse into a single cluster per logical duplication.
func DupesPhase() phase.Phase {
	return phase.Phase{
		Name:      "dupes",
		Detectors: []string{finding.DetectorDupes, finding.DetectorBoilerplate},
		Run:       runDupes,
	}
}

func runDupes(ctx context.Context, pc *phase.Context) (phase.Result, error) {
	e := newEmitter()

	zoneOf := make(map[string]zone.Zone, len(pc.Files))
	for _, f := range pc.Files {
		zoneOf[f.Rel] = f.Zone
	}

	// Candidate functions, deterministic order.
	var fns []phase.Function
	for _, fn := range pc.Functions {
		if fn.LOC < MinDupFunctionLOC {
			continue
		}
		if zone.ExcludedFromScoring(zoneOf[fn.File]) {
			continue
		}
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].File != fns[j].File {
			return fns[i].File < fns[j].File
		}
		return fns[i].Line < fns[j].Line
	})
	e.checked(finding.DetectorDupes, len(fns))
	e.checked(finding.DetectorBoilerplate, len(fns))

	uf := newUnionFind(len(fns))
	keyOf := func(i int) string { return fns[i].File + ":" + fns[i].Name }
	indexOf := make(map[string]int, len(fns))
	for i := range fns {
		indexOf[keyOf(i)] = i
	}

	// Exact duplicates: identical normalized body hash.
	byHash := make(map[string][]int)
	for i, fn := range fns {
		byHash[fn.BodyHash] = append(byHash[fn.BodyHash], i)
	}
	exact := make(map[int]bool)
	for _, members := range byHash {
		if len(members) < 2 {
			continue
		}
		for _, m := range members[1:] {
			uf.union(members[0], m)
		}
		for _, m := range members {
			exact[m] = true
		}
	}

	// Near duplicates above the similarity threshold.
	minSim := pc.Thresholds.DupSimilarity
	engine := clone.New(clone.Options{MinSimilarity: minSim})
	for _, fn := range fns {
		if err := ctx.Err(); err != nil {
			return phase.Result{}, err
		}
		engine.Add(clone.Location{File: fn.File, Name: fn.Name, Line: fn.Line}, fn.Normalized)
	}
	for _, pair := range engine.Pairs() {
		a, okA := indexOf[pair.A.File+":"+pair.A.Name]
		b, okB := indexOf[pair.B.File+":"+pair.B.Name]
		if okA && okB {
			uf.union(a, b)
		}
	}

	// One finding per cluster; the whole membership is the identity.
	clusters := make(map[int][]int)
	for i := range fns {
		clusters[uf.find(i)] = append(clusters[uf.find(i)], i)
	}
	roots := make([]int, 0, len(clusters))
	for root, members := range clusters {
		if len(members) >= 2 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	for _, root := range roots {
		members := clusters[root]
		keys := make([]string, 0, len(members))
		allExact := true
		for _, m := range members {
			keys = append(keys, keyOf(m))
			if !exact[m] {
				allExact = false
			}
		}
		sort.Strings(keys)
		symbol := finding.MemberSetSymbol(keys)

		anchorIdx := indexOf[keys[0]]
		anchor := fns[anchorIdx]

		detector := finding.DetectorDupes
		tier := finding.TierJudgment
		conf := finding.ConfidenceMedium
		kind := "near-duplicate"
		if allExact {
			tier = finding.TierQuickFix
			conf = finding.ConfidenceHigh
			kind = "duplicate"
		}
		if len(members) >= BoilerplateGroupSize {
			detector = finding.DetectorBoilerplate
			tier = finding.TierMajorRefactor
			kind = "boilerplate"
		}

		fd := newFinding(detector, anchor.File, symbol, tier, conf,
			fmt.Sprintf("%d %s functions: %s", len(members), kind, previewKeys(keys, 3)))
		fd.Detail.ClusterID = symbol
		fd.Detail.Symbol = anchor.Name
		fd.Detail.Line = anchor.Line
		fd.Detail.Extra = map[string]string{"members": strings.Join(keys, ",")}
		e.emit(fd, zoneOf[anchor.File])
	}

	return e.result(), nil
}

func previewKeys(keys []string, n int) string {
	if len(keys) <= n {
		return strings.Join(keys, ", ")
	}
	return strings.Join(keys[:n], ", ") + ", ..."
}

// unionFind with path halving and union by size.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	// Tie-break on the smaller root index so clustering is deterministic.
	if uf.size[ra] == uf.size[rb] && rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}
