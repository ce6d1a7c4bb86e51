package plan

import (
	"fmt"
	"sort"
	"time"
)

// User-facing plan mutations. Each returns an error only for invalid
// references; all mutations leave the plan internally consistent.

// SkipItems marks ids as skipped. reviewAfter is in scans; 0 means no
// automatic resurfacing.
func (p *Plan) SkipItems(ids []string, kind, reason string, reviewAfter int) error {
	if kind != SkipTemporary && kind != SkipPermanent {
		return fmt.Errorf("unknown skip kind %q", kind)
	}
	for _, id := range ids {
		p.Skipped[id] = &Skip{
			Kind:          kind,
			Reason:        reason,
			SkippedAtScan: p.ScanCount,
			ReviewAfter:   reviewAfter,
		}
	}
	return nil
}

// UnskipItems removes skips; unknown ids are ignored.
func (p *Plan) UnskipItems(ids []string) {
	for _, id := range ids {
		delete(p.Skipped, id)
	}
}

// MoveToFront places ids at the head of queue_order, preserving their
// given order and deduplicating against the existing order.
func (p *Plan) MoveToFront(ids []string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	order := make([]string, 0, len(ids)+len(p.QueueOrder))
	order = append(order, ids...)
	for _, id := range p.QueueOrder {
		if !seen[id] {
			order = append(order, id)
		}
	}
	p.QueueOrder = order
}

// CreateCluster makes a user cluster. The name must not collide with an
// existing cluster or the auto/ namespace.
func (p *Plan) CreateCluster(name, description string, ids []string) error {
	if name == "" || len(name) > 128 {
		return fmt.Errorf("invalid cluster name %q", name)
	}
	if _, exists := p.Clusters[name]; exists {
		return fmt.Errorf("cluster %q already exists", name)
	}
	members := append([]string(nil), ids...)
	sort.Strings(members)
	p.Clusters[name] = &Cluster{
		Description:  description,
		FindingIDs:   members,
		UserModified: true,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

// AddToCluster appends ids to an existing cluster and marks it
// user-modified so auto-clustering leaves it alone.
func (p *Plan) AddToCluster(name string, ids []string) error {
	c, ok := p.Clusters[name]
	if !ok {
		return fmt.Errorf("no cluster %q", name)
	}
	have := make(map[string]bool, len(c.FindingIDs))
	for _, id := range c.FindingIDs {
		have[id] = true
	}
	for _, id := range ids {
		if !have[id] {
			c.FindingIDs = append(c.FindingIDs, id)
		}
	}
	sort.Strings(c.FindingIDs)
	c.UserModified = true
	return nil
}

// RemoveFromCluster drops ids from a cluster.
func (p *Plan) RemoveFromCluster(name string, ids []string) error {
	c, ok := p.Clusters[name]
	if !ok {
		return fmt.Errorf("no cluster %q", name)
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := c.FindingIDs[:0]
	for _, id := range c.FindingIDs {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	c.FindingIDs = kept
	c.UserModified = true
	return nil
}

// DeleteCluster removes a cluster entirely, including auto-clusters.
func (p *Plan) DeleteCluster(name string) error {
	if _, ok := p.Clusters[name]; !ok {
		return fmt.Errorf("no cluster %q", name)
	}
	delete(p.Clusters, name)
	if p.ActiveCluster == name {
		p.ActiveCluster = ""
	}
	for _, o := range p.Overrides {
		if o.Cluster == name {
			o.Cluster = ""
		}
	}
	return nil
}

// SetFocus restricts queue views to one cluster.
func (p *Plan) SetFocus(name string) error {
	if name != "" {
		if _, ok := p.Clusters[name]; !ok {
			return fmt.Errorf("no cluster %q", name)
		}
	}
	p.ActiveCluster = name
	return nil
}

// Annotate attaches a description or note to an item.
func (p *Plan) Annotate(id, description, note string) {
	o, ok := p.Overrides[id]
	if !ok {
		o = &Override{}
		p.Overrides[id] = o
	}
	if description != "" {
		o.Description = description
	}
	if note != "" {
		o.Note = note
	}
}

// ApplyRemap executes a user-chosen remap of a superseded id onto a
// current finding, rewriting plan references.
func (p *Plan) ApplyRemap(oldID, newID string) error {
	entry, ok := p.Superseded[oldID]
	if !ok {
		return fmt.Errorf("%q is not superseded", oldID)
	}
	valid := false
	for _, c := range entry.Candidates {
		if c == newID {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%q is not a remap candidate for %q", newID, oldID)
	}
	entry.RemappedTo = newID

	for i, id := range p.QueueOrder {
		if id == oldID {
			p.QueueOrder[i] = newID
		}
	}
	for _, c := range p.Clusters {
		for i, id := range c.FindingIDs {
			if id == oldID {
				c.FindingIDs[i] = newID
			}
		}
		sort.Strings(c.FindingIDs)
	}
	if o, ok := p.Overrides[oldID]; ok {
		p.Overrides[newID] = o
		delete(p.Overrides, oldID)
	}
	return nil
}
