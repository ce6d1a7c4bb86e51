// Package finding defines the finding data model shared by every detector,
// the state merge, scoring, and the work queue.
package finding

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status values for a finding's lifecycle. A finding is in exactly one
// status at any time and is never deleted, only superseded.
const (
	StatusOpen          = "open"
	StatusFixed         = "fixed"
	StatusAutoResolved  = "auto_resolved"
	StatusWontfix       = "wontfix"
	StatusFalsePositive = "false_positive"
)

// ValidStatuses is the closed set of lifecycle statuses.
var ValidStatuses = map[string]bool{
	StatusOpen:          true,
	StatusFixed:         true,
	StatusAutoResolved:  true,
	StatusWontfix:       true,
	StatusFalsePositive: true,
}

// Confidence levels and their scoring weights.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ConfidenceWeight returns the scoring weight for a confidence level.
// Unknown values weigh as medium.
func ConfidenceWeight(c string) float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceLow:
		return 0.3
	default:
		return 0.7
	}
}

// ConfidenceRank returns the queue ordering rank: high=0, medium=1, low=2.
func ConfidenceRank(c string) int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceLow:
		return 2
	default:
		return 1
	}
}

// Tier ordinals. The tier weight equals the ordinal value.
const (
	TierAutoFix       = 1
	TierQuickFix      = 2
	TierJudgment      = 3
	TierMajorRefactor = 4
)

// TierLabels maps tier ordinals to human-readable descriptions.
var TierLabels = map[int]string{
	1: "Auto-fixable (imports, logs, dead deprecated)",
	2: "Quick fixes (unused vars, dead exports, exact dupes, orphaned files)",
	3: "Needs judgment (smells, near-dupes, single-use, small cycles)",
	4: "Major refactors (structural decomposition, large import cycles)",
}

// Attestation records who resolved a finding and why. Required for
// wontfix and false_positive resolutions.
type Attestation struct {
	By     string    `json:"by"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
	Kind   string    `json:"kind,omitempty"` // e.g. "manual_reopen"
}

// Detail holds the typed well-known detector payload plus a freeform bag
// for detector-private data. Scoring and queue code read only the typed
// fields.
type Detail struct {
	LOC          int               `json:"loc,omitempty"`
	LOCWeight    float64           `json:"loc_weight,omitempty"`
	Complexity   int               `json:"complexity,omitempty"`
	Symbol       string            `json:"symbol,omitempty"`
	Line         int               `json:"line,omitempty"`
	ClusterID    string            `json:"cluster_id,omitempty"`
	ReviewWeight float64           `json:"review_weight,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// MergeFrom overlays non-zero typed fields and all Extra keys from other,
// last-wins per key.
func (d *Detail) MergeFrom(other Detail) {
	if other.LOC != 0 {
		d.LOC = other.LOC
	}
	if other.LOCWeight != 0 {
		d.LOCWeight = other.LOCWeight
	}
	if other.Complexity != 0 {
		d.Complexity = other.Complexity
	}
	if other.Symbol != "" {
		d.Symbol = other.Symbol
	}
	if other.Line != 0 {
		d.Line = other.Line
	}
	if other.ClusterID != "" {
		d.ClusterID = other.ClusterID
	}
	if other.ReviewWeight != 0 {
		d.ReviewWeight = other.ReviewWeight
	}
	if len(other.Extra) > 0 {
		if d.Extra == nil {
			d.Extra = make(map[string]string, len(other.Extra))
		}
		for k, v := range other.Extra {
			d.Extra[k] = v
		}
	}
}

// Finding is the atomic unit of analysis, keyed by a stable composite id.
type Finding struct {
	ID         string `json:"id"`
	Detector   string `json:"detector"`
	File       string `json:"file"`
	Summary    string `json:"summary,omitempty"`
	Tier       int    `json:"tier"`
	Confidence string `json:"confidence"`
	Status     string `json:"status"`

	FirstSeen  time.Time  `json:"first_seen"`
	LastSeen   time.Time  `json:"last_seen"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	ReopenCount int `json:"reopen_count"`

	Suppressed         bool       `json:"suppressed,omitempty"`
	SuppressionPattern string     `json:"suppression_pattern,omitempty"`
	SuppressedAt       *time.Time `json:"suppressed_at,omitempty"`

	Attestation *Attestation `json:"resolution_attestation,omitempty"`

	Zone string `json:"zone,omitempty"`
	Lang string `json:"lang,omitempty"`

	Detail Detail `json:"detail,omitempty"`
}

// IsFailure reports whether the finding's status is in the failure set for
// the given scoring mode.
func (f *Finding) IsFailure(failureSet map[string]bool) bool {
	return failureSet[f.Status]
}

// ID construction. The id is the primary identity contract: the same
// logical defect must yield the same id across scans.

// NewID builds the canonical "{detector}::{file}::{symbol}" id. The file
// must already be repository-relative with forward slashes.
func NewID(detector, file, symbol string) string {
	return detector + "::" + file + "::" + symbol
}

// LineSymbol returns the symbol slot for a line-scoped finding.
func LineSymbol(line int) string {
	return fmt.Sprintf("L%d", line)
}

// MemberSetSymbol returns a short stable hash of a member set, used as the
// symbol slot for cross-file findings (cycles, duplicate clusters). The
// whole membership is part of identity so partial refactors produce a new
// finding rather than a misleading reopen.
func MemberSetSymbol(members []string) string {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return fmt.Sprintf("%x", h[:6])
}

// ParseID splits an id into its detector, file, and symbol components.
func ParseID(id string) (detector, file, symbol string, err error) {
	parts := strings.SplitN(id, "::", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("malformed finding id %q", id)
	}
	return parts[0], parts[1], parts[2], nil
}

// Validate checks the required fields and id shape of a detector-emitted
// finding. Invalid findings are dropped at the phase boundary, never merged.
func (f *Finding) Validate() error {
	det, file, symbol, err := ParseID(f.ID)
	if err != nil {
		return err
	}
	if det != f.Detector {
		return fmt.Errorf("id detector %q does not match finding detector %q", det, f.Detector)
	}
	if file != f.File {
		return fmt.Errorf("id file %q does not match finding file %q", file, f.File)
	}
	_ = symbol
	if _, ok := Registry[f.Detector]; !ok {
		return fmt.Errorf("unknown detector %q", f.Detector)
	}
	if f.Tier < TierAutoFix || f.Tier > TierMajorRefactor {
		return fmt.Errorf("tier %d out of range", f.Tier)
	}
	switch f.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return fmt.Errorf("unknown confidence %q", f.Confidence)
	}
	return nil
}
