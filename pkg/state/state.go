// Package state holds the persistent finding database: the versioned state
// model, the scan merge, and the on-disk store with atomic replace and
// advisory locking.
package state

import (
	"time"

	"github.com/scourdev/scour/pkg/finding"
)

// CurrentVersion is the state schema version written by this binary.
// Loading a newer version is refused; older versions are migrated.
const CurrentVersion = 2

// HistoryLimit bounds the scan_history FIFO.
const HistoryLimit = 20

// Stats are aggregate counts refreshed on every scan.
type Stats struct {
	Files    int            `json:"files"`
	LOC      int            `json:"loc"`
	Dirs     int            `json:"dirs"`
	ByStatus map[string]int `json:"by_status"`
}

// Assessment is one subjective dimension's imported review score.
type Assessment struct {
	Score              float64   `json:"score"`
	Source             string    `json:"source"`
	AssessedAt         time.Time `json:"assessed_at"`
	NeedsReviewRefresh bool      `json:"needs_review_refresh,omitempty"`
}

// Integrity carries the anti-gaming metadata maintained by the integrity
// guard.
type Integrity struct {
	Status            string   `json:"status,omitempty"` // disabled, pass, warn, penalized
	MatchedDimensions []string `json:"matched_dimensions,omitempty"`
	MatchedScans      int      `json:"matched_scans,omitempty"`
	LastMatchedScanID string   `json:"last_matched_scan_id,omitempty"`
}

// Dismissal records a user-dismissed concern. The dismissal is void when
// the concern's source finding set changes.
type Dismissal struct {
	SourceFindingIDs []string  `json:"source_finding_ids"`
	DismissedAt      time.Time `json:"dismissed_at"`
	Reason           string    `json:"reason,omitempty"`
}

// HistoryEntry is one scan record in the bounded history FIFO.
type HistoryEntry struct {
	ScanID         string    `json:"scan_id"`
	Timestamp      time.Time `json:"timestamp"`
	Commit         string    `json:"commit,omitempty"`
	Overall        float64   `json:"overall_score"`
	Objective      float64   `json:"objective_score"`
	Strict         float64   `json:"strict_score"`
	VerifiedStrict float64   `json:"verified_strict_score"`
	Open           int       `json:"open"`
	New            int       `json:"new"`
	Resolved       int       `json:"resolved"`
	Reopened       int       `json:"reopened"`
}

// State is the top-level persistent container.
type State struct {
	Version  int                         `json:"version"`
	Findings map[string]*finding.Finding `json:"findings"`
	Stats    Stats                       `json:"stats"`

	Overall        float64 `json:"overall_score"`
	Objective      float64 `json:"objective_score"`
	Strict         float64 `json:"strict_score"`
	VerifiedStrict float64 `json:"verified_strict_score"`

	ScanHistory []HistoryEntry `json:"scan_history"`

	Subjective        map[string]*Assessment `json:"subjective_assessments"`
	Integrity         Integrity              `json:"subjective_integrity"`
	ConcernDismissals map[string]*Dismissal  `json:"concern_dismissals"`
}

// New returns an empty state at the current schema version.
func New() *State {
	return &State{
		Version:           CurrentVersion,
		Findings:          make(map[string]*finding.Finding),
		Stats:             Stats{ByStatus: make(map[string]int)},
		Subjective:        make(map[string]*Assessment),
		ConcernDismissals: make(map[string]*Dismissal),
	}
}

// RefreshStatusCounts recomputes the per-status counters from findings.
func (s *State) RefreshStatusCounts() {
	counts := make(map[string]int)
	for _, f := range s.Findings {
		counts[f.Status]++
	}
	s.Stats.ByStatus = counts
}

// OpenFindings returns all open findings, unordered.
func (s *State) OpenFindings() []*finding.Finding {
	var out []*finding.Finding
	for _, f := range s.Findings {
		if f.Status == finding.StatusOpen {
			out = append(out, f)
		}
	}
	return out
}

// AppendHistory appends an entry and trims the FIFO to HistoryLimit.
func (s *State) AppendHistory(e HistoryEntry) {
	s.ScanHistory = append(s.ScanHistory, e)
	if len(s.ScanHistory) > HistoryLimit {
		s.ScanHistory = s.ScanHistory[len(s.ScanHistory)-HistoryLimit:]
	}
}
