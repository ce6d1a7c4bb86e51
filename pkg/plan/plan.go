// Package plan maintains the living plan: user-curated queue ordering,
// skips, clusters, and per-item overrides layered over the finding state.
// The plan survives rescans through reconciliation rather than rebuilds.
package plan

import (
	"errors"
	"os"
	"time"

	"github.com/scourdev/scour/pkg/state"
)

// Version is the plan schema version.
const Version = 1

// File is the plan filename inside the tool directory.
const File = "plan.json"

// Skip kinds. Temporary skips carry a review_after horizon; permanent
// skips stay until explicitly unskipped.
const (
	SkipTemporary = "temporary"
	SkipPermanent = "permanent"
)

// Skip is one skipped queue item.
type Skip struct {
	Kind          string `json:"kind"`
	Reason        string `json:"reason,omitempty"`
	SkippedAtScan int    `json:"skipped_at_scan"`
	// ReviewAfter is the number of scans after which the skip is
	// resurfaced for review. Zero means never.
	ReviewAfter int `json:"review_after,omitempty"`
	// Resurfaced is set by reconciliation when the horizon passes; the
	// skip stays in force until the user acts.
	Resurfaced bool `json:"resurfaced,omitempty"`
}

// Cluster groups related findings into one queue item.
type Cluster struct {
	Description string   `json:"description,omitempty"`
	FindingIDs  []string `json:"finding_ids"`
	Action      string   `json:"action,omitempty"`
	// UserModified clusters are never auto-deleted, even when empty.
	UserModified bool      `json:"user_modified,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Override carries user annotations on a single item.
type Override struct {
	Description string `json:"description,omitempty"`
	Note        string `json:"note,omitempty"`
	Cluster     string `json:"cluster,omitempty"`
}

// Snapshot preserves the identifying fields of a finding at the moment it
// left the state, for fuzzy remapping.
type Snapshot struct {
	Detector string `json:"detector"`
	File     string `json:"file"`
	Summary  string `json:"summary,omitempty"`
	Tier     int    `json:"tier"`
	Status   string `json:"status"`
}

// Superseded is a plan reference whose finding no longer exists.
type Superseded struct {
	Snapshot     Snapshot  `json:"snapshot"`
	SupersededAt time.Time `json:"superseded_at"`
	// Candidates are fuzzy-matched current finding ids. Remapping is
	// always an explicit user action; reconciliation only proposes.
	Candidates []string `json:"candidates,omitempty"`
	RemappedTo string   `json:"remapped_to,omitempty"`
}

// Plan is the persisted living plan.
type Plan struct {
	Version    int                    `json:"version"`
	QueueOrder []string               `json:"queue_order,omitempty"`
	Skipped    map[string]*Skip       `json:"skipped,omitempty"`
	Clusters   map[string]*Cluster    `json:"clusters,omitempty"`
	Overrides  map[string]*Override   `json:"overrides,omitempty"`
	Superseded map[string]*Superseded `json:"superseded,omitempty"`
	// ActiveCluster focuses queue views on one cluster until cleared.
	ActiveCluster string `json:"active_cluster,omitempty"`
	// ScanCount increments on every completed scan; skip horizons are
	// measured against it.
	ScanCount int `json:"scan_count"`
}

// New returns an empty plan.
func New() *Plan {
	return &Plan{
		Version:    Version,
		Skipped:    make(map[string]*Skip),
		Clusters:   make(map[string]*Cluster),
		Overrides:  make(map[string]*Override),
		Superseded: make(map[string]*Superseded),
	}
}

// Load reads the plan from the store, returning an empty plan when none
// exists yet.
func Load(st *state.Store) (*Plan, error) {
	p := New()
	err := st.ReadJSON(File, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, err
	}
	ensureDefaults(p)
	return p, nil
}

// Save persists the plan atomically next to the state file.
func Save(st *state.Store, p *Plan) error {
	p.Version = Version
	return st.WriteJSON(File, p)
}

// IsSkipped reports whether an item id is currently skipped.
func (p *Plan) IsSkipped(id string) bool {
	_, ok := p.Skipped[id]
	return ok
}

// ClusterOf returns the name of the cluster containing id, or "".
func (p *Plan) ClusterOf(id string) string {
	if o, ok := p.Overrides[id]; ok && o.Cluster != "" {
		return o.Cluster
	}
	for name, c := range p.Clusters {
		for _, fid := range c.FindingIDs {
			if fid == id {
				return name
			}
		}
	}
	return ""
}

func ensureDefaults(p *Plan) {
	if p.Skipped == nil {
		p.Skipped = make(map[string]*Skip)
	}
	if p.Clusters == nil {
		p.Clusters = make(map[string]*Cluster)
	}
	if p.Overrides == nil {
		p.Overrides = make(map[string]*Override)
	}
	if p.Superseded == nil {
		p.Superseded = make(map[string]*Superseded)
	}
}
