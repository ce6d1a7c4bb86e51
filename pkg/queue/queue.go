// Package queue builds the ranked work queue served by `scour next` and
// the plan views. Items are heterogeneous: clusters, mechanical findings,
// and subjective dimensions, merged under one composite sort key.
package queue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/plan"
	"github.com/scourdev/scour/pkg/scoring"
	"github.com/scourdev/scour/pkg/state"
)

// Item kinds.
const (
	KindCluster    = "cluster"
	KindFinding    = "finding"
	KindSubjective = "subjective"
)

// Item is one queue entry. Exactly one of Finding or the cluster/subjective
// fields is meaningful per kind.
type Item struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// EffectiveTier is the ranking tier: the finding's own tier for
	// mechanical items, always 4 for subjective items, 0 for clusters
	// (clusters rank by action instead).
	EffectiveTier int `json:"effective_tier"`

	Summary string `json:"summary,omitempty"`
	File    string `json:"file,omitempty"`

	Finding *finding.Finding `json:"finding,omitempty"`

	// Cluster fields.
	MemberIDs []string `json:"member_ids,omitempty"`
	Action    string   `json:"action,omitempty"`

	// Subjective fields.
	Dimension string  `json:"dimension,omitempty"`
	Score     float64 `json:"score,omitempty"`

	// Count is how many open findings share this item's (detector, file)
	// slot; denser files rank earlier within a tier.
	Count int `json:"count,omitempty"`

	ReviewWeight float64 `json:"review_weight,omitempty"`

	QueuePosition int    `json:"queue_position,omitempty"`
	PlanSkipped   bool   `json:"plan_skipped,omitempty"`
	PlanSkipKind  string `json:"plan_skip_kind,omitempty"`
	PlanNote      string `json:"plan_note,omitempty"`
	PlanCluster   string `json:"plan_cluster,omitempty"`
}

// Options configure queue construction.
type Options struct {
	Tier   int // 0 = all tiers
	Count  int // 0 = unlimited
	Scope  string
	Status string // "", "open", "all", or a concrete status
	// IncludeSubjective adds dimension items for assessments below
	// SubjectiveThreshold.
	IncludeSubjective   bool
	SubjectiveThreshold float64
	Chronic             bool
	NoTierFallback      bool
	CollapseClusters    bool
	IncludeSkipped      bool
	Cluster             string
}

// Result is the built queue plus tier metadata.
type Result struct {
	Items          []*Item     `json:"items"`
	Total          int         `json:"total"`
	TierCounts     map[int]int `json:"tier_counts"`
	RequestedTier  int         `json:"requested_tier,omitempty"`
	SelectedTier   int         `json:"selected_tier,omitempty"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
	AvailableTiers []int       `json:"available_tiers"`
}

// Build constructs the ranked queue from state and the living plan.
// p may be nil when no plan exists.
func Build(s *state.State, p *plan.Plan, opts Options) (*Result, error) {
	status := opts.Status
	if status == "" {
		status = finding.StatusOpen
	}
	if status != "all" && !finding.ValidStatuses[status] {
		return nil, fmt.Errorf("unsupported status filter %q", status)
	}
	threshold := opts.SubjectiveThreshold
	if threshold <= 0 || threshold > 100 {
		threshold = 100
	}

	items := findingItems(s, status, opts)

	if opts.IncludeSubjective && (status == finding.StatusOpen || status == "all") && !opts.Chronic {
		for _, it := range subjectiveItems(s, threshold) {
			if scopeMatches(it, opts.Scope) {
				items = append(items, it)
			}
		}
	}

	if p != nil && opts.CollapseClusters {
		items = collapseClusters(items, p)
	}

	sort.Slice(items, func(i, j int) bool { return less(items[i], items[j]) })

	if p != nil {
		items = applyPlanOrder(items, p, opts)
	}

	counts := tierCounts(items)
	res := &Result{
		TierCounts:    counts,
		RequestedTier: opts.Tier,
		SelectedTier:  opts.Tier,
	}
	for t := 1; t <= 4; t++ {
		if counts[t] > 0 {
			res.AvailableTiers = append(res.AvailableTiers, t)
		}
	}

	filtered := items
	if opts.Tier > 0 {
		filtered = byTier(items, opts.Tier)
		if len(filtered) == 0 && !opts.NoTierFallback {
			if chosen, ok := fallbackTier(opts.Tier, counts); ok {
				res.SelectedTier = chosen
				filtered = byTier(items, chosen)
				res.FallbackReason = fmt.Sprintf(
					"Requested T%d has 0 open -> showing T%d (nearest non-empty).",
					opts.Tier, chosen)
			}
		} else if len(filtered) == 0 {
			res.FallbackReason = fmt.Sprintf("Requested T%d has 0 open.", opts.Tier)
		}
	}

	res.Total = len(filtered)
	if opts.Count > 0 && len(filtered) > opts.Count {
		filtered = filtered[:opts.Count]
	}
	for i, it := range filtered {
		it.QueuePosition = i + 1
	}
	res.Items = filtered
	return res, nil
}

func findingItems(s *state.State, status string, opts Options) []*Item {
	// Count open findings per (detector, file) slot first; the count is a
	// ranking input for every member of the slot.
	slotCount := make(map[string]int)
	for _, f := range s.Findings {
		if f.Status == finding.StatusOpen && !f.Suppressed {
			slotCount[f.Detector+"\x00"+f.File]++
		}
	}

	var out []*Item
	for _, f := range s.Findings {
		if status != "all" && f.Status != status {
			continue
		}
		if f.Suppressed {
			continue
		}
		if opts.Chronic && f.ReopenCount < 2 {
			continue
		}
		if opts.Scope != "" && !strings.HasPrefix(f.File, opts.Scope) {
			continue
		}
		rw := f.Detail.ReviewWeight
		if rw == 0 {
			rw = scoring.DisplayWeight(f)
		}
		out = append(out, &Item{
			ID:            f.ID,
			Kind:          KindFinding,
			EffectiveTier: f.Tier,
			Summary:       f.Summary,
			File:          f.File,
			Finding:       f,
			Count:         slotCount[f.Detector+"\x00"+f.File],
			ReviewWeight:  rw,
		})
	}
	return out
}

// subjectiveItems emits one item per assessed dimension below threshold.
// Subjective items always rank at tier 4, after mechanical tier-4 items.
func subjectiveItems(s *state.State, threshold float64) []*Item {
	var out []*Item
	for dim, a := range s.Subjective {
		if a.Score >= threshold {
			continue
		}
		out = append(out, &Item{
			ID:            "subjective::" + dim,
			Kind:          KindSubjective,
			EffectiveTier: finding.TierMajorRefactor,
			Summary:       fmt.Sprintf("Subjective dimension %s at %.1f", dim, a.Score),
			Dimension:     dim,
			Score:         a.Score,
		})
	}
	return out
}

// collapseClusters replaces cluster members with one item per cluster.
func collapseClusters(items []*Item, p *plan.Plan) []*Item {
	inCluster := make(map[string]string)
	for name, c := range p.Clusters {
		for _, id := range c.FindingIDs {
			inCluster[id] = name
		}
	}

	emitted := make(map[string]bool)
	var out []*Item
	for _, it := range items {
		name, ok := inCluster[it.ID]
		if !ok {
			out = append(out, it)
			continue
		}
		if emitted[name] {
			continue
		}
		emitted[name] = true
		c := p.Clusters[name]
		summary := c.Description
		if summary == "" {
			summary = fmt.Sprintf("%d related findings", len(c.FindingIDs))
		}
		out = append(out, &Item{
			ID:        name,
			Kind:      KindCluster,
			Summary:   summary,
			MemberIDs: append([]string(nil), c.FindingIDs...),
			Action:    c.Action,
			Count:     len(c.FindingIDs),
		})
	}
	return out
}

// less implements the composite sort key ordering:
//
//	cluster:    (0, action_priority, -members, id)
//	mechanical: (tier, 0, confidence_rank, -review_weight, -count, id)
//	subjective: (4, 1, score, id)
func less(a, b *Item) bool {
	ka, kb := sortKey(a), sortKey(b)
	for i := range ka {
		if ka[i] != kb[i] {
			return ka[i] < kb[i]
		}
	}
	return a.ID < b.ID
}

func sortKey(it *Item) [5]float64 {
	switch it.Kind {
	case KindCluster:
		return [5]float64{0, float64(finding.ActionPriority(it.Action)), -float64(it.Count), 0, 0}
	case KindSubjective:
		return [5]float64{float64(it.EffectiveTier), 1, it.Score, 0, 0}
	default:
		rank := 1
		if it.Finding != nil {
			rank = finding.ConfidenceRank(it.Finding.Confidence)
		}
		return [5]float64{
			float64(it.EffectiveTier), 0, float64(rank),
			-it.ReviewWeight, -float64(it.Count),
		}
	}
}

// applyPlanOrder reorders items per the living plan: pinned first, then the
// mechanical order, skipped last or excluded.
func applyPlanOrder(items []*Item, p *plan.Plan, opts Options) []*Item {
	byID := make(map[string]*Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	for id, it := range byID {
		if o, ok := p.Overrides[id]; ok {
			if o.Description != "" {
				it.Summary = o.Description
			}
			it.PlanNote = o.Note
		}
		it.PlanCluster = p.ClusterOf(id)
	}

	var ordered []*Item
	orderedIDs := make(map[string]bool)
	for _, id := range p.QueueOrder {
		if it, ok := byID[id]; ok && !p.IsSkipped(id) {
			ordered = append(ordered, it)
			orderedIDs[id] = true
		}
	}

	var remaining, skipped []*Item
	for _, it := range items {
		if orderedIDs[it.ID] {
			continue
		}
		if p.IsSkipped(it.ID) {
			it.PlanSkipped = true
			if sk := p.Skipped[it.ID]; sk != nil {
				it.PlanSkipKind = sk.Kind
			}
			skipped = append(skipped, it)
			continue
		}
		remaining = append(remaining, it)
	}

	result := append(ordered, remaining...)
	if opts.IncludeSkipped {
		result = append(result, skipped...)
	}

	focus := opts.Cluster
	if focus == "" {
		focus = p.ActiveCluster
	}
	if focus != "" {
		if c, ok := p.Clusters[focus]; ok {
			members := make(map[string]bool, len(c.FindingIDs))
			for _, id := range c.FindingIDs {
				members[id] = true
			}
			var scoped []*Item
			for _, it := range result {
				if members[it.ID] || it.ID == focus {
					scoped = append(scoped, it)
				}
			}
			result = scoped
		}
	}
	return result
}

func scopeMatches(it *Item, scope string) bool {
	if scope == "" {
		return true
	}
	return strings.HasPrefix(it.File, scope)
}

func byTier(items []*Item, tier int) []*Item {
	var out []*Item
	for _, it := range items {
		t := it.EffectiveTier
		if it.Kind == KindCluster {
			// Clusters always sort first and survive any tier filter.
			out = append(out, it)
			continue
		}
		if t == tier {
			out = append(out, it)
		}
	}
	return out
}

func tierCounts(items []*Item) map[int]int {
	counts := map[int]int{1: 0, 2: 0, 3: 0, 4: 0}
	for _, it := range items {
		if it.Kind == KindCluster {
			continue
		}
		counts[it.EffectiveTier]++
	}
	return counts
}

// fallbackTier picks the nearest non-empty tier, preferring lower tiers
// (cheaper work) before higher ones.
func fallbackTier(requested int, counts map[int]int) (int, bool) {
	for t := requested - 1; t >= 1; t-- {
		if counts[t] > 0 {
			return t, true
		}
	}
	for t := requested + 1; t <= 4; t++ {
		if counts[t] > 0 {
			return t, true
		}
	}
	return 0, false
}
