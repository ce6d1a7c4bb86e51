package plan

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

// AutoCluster groups open findings into stable auto-clusters after
// reconciliation. Two grouping axes:
//
//   - (detector, file stem): several findings from one detector against
//     the same file become "auto/{detector}:{stem}".
//   - shared cluster_id: duplicate groups and import cycles already carry
//     a membership hash; those become "auto/{detector}:{cluster_id}".
//
// Only groups of size >= 2 are emitted. Re-running on identical input
// produces identical names and memberships; existing clusters with the
// same name are refreshed in place unless user_modified.
func AutoCluster(p *Plan, s *state.State, now time.Time) {
	groups := make(map[string][]string)

	for id, f := range s.Findings {
		if f.Status != finding.StatusOpen {
			continue
		}
		if cid := f.Detail.ClusterID; cid != "" {
			key := "auto/" + f.Detector + ":" + cid
			groups[key] = append(groups[key], id)
			continue
		}
		stem := fileStem(f.File)
		if stem == "" {
			continue
		}
		key := "auto/" + f.Detector + ":" + stem
		groups[key] = append(groups[key], id)
	}

	// Stable name order so map iteration cannot affect the outcome.
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		members := groups[name]
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)

		if existing, ok := p.Clusters[name]; ok {
			if existing.UserModified {
				continue
			}
			existing.FindingIDs = members
			continue
		}

		action := finding.ActionManualFix
		if det, _, _, err := finding.ParseID(members[0]); err == nil {
			if m, ok := finding.Lookup(det); ok {
				action = m.Action
			}
		}
		p.Clusters[name] = &Cluster{
			FindingIDs: members,
			Action:     action,
			CreatedAt:  now,
		}
	}
}

// fileStem returns the basename without extension, the per-file grouping
// key for auto-clusters.
func fileStem(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}
