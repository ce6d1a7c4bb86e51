// Package review bridges the mechanical pipeline to external reviewers.
// Packets go out without any score information (anti-anchoring); results
// come back through trust-level gates before touching state.
package review

import (
	"fmt"
	"sort"
	"time"

	"github.com/scourdev/scour/pkg/concern"
	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/integrity"
	"github.com/scourdev/scour/pkg/scoring"
	"github.com/scourdev/scour/pkg/state"
)

// Trust levels for imported review results.
const (
	// TrustedInternal results apply assessments directly.
	TrustedInternal = "trusted_internal"
	// AttestedExternal results apply only with a complete attestation.
	AttestedExternal = "attested_external"
	// ManualOverride applies assessments and clears integrity provenance;
	// reserved for explicit human intervention.
	ManualOverride = "manual_override"
	// FindingsOnly discards assessments and keeps confirmed findings.
	FindingsOnly = "findings_only"
)

var validTrust = map[string]bool{
	TrustedInternal:  true,
	AttestedExternal: true,
	ManualOverride:   true,
	FindingsOnly:     true,
}

// FileRequest is one file the reviewer should look at, with the open
// finding summaries for context.
type FileRequest struct {
	File     string   `json:"file"`
	Zone     string   `json:"zone,omitempty"`
	Findings []string `json:"findings,omitempty"`
}

// Packet is the outbound review request. It deliberately carries no
// scores, no targets, and no prior assessments.
type Packet struct {
	Command    string            `json:"command"`
	Dimensions []string          `json:"dimensions"`
	Files      []FileRequest     `json:"files"`
	Concerns   []concern.Concern `json:"concerns,omitempty"`
	Stats      struct {
		Files int `json:"files"`
		Open  int `json:"open"`
	} `json:"stats"`
}

// DimensionResult is one dimension's assessment from a reviewer.
type DimensionResult struct {
	Score float64 `json:"score"`
	Notes string  `json:"notes,omitempty"`
}

// Result is the inbound review payload.
type Result struct {
	Source      string                     `json:"source"`
	Assessments map[string]DimensionResult `json:"assessments"`
	// ConfirmedConcerns lists concern fingerprints the reviewer upheld;
	// they become holistic findings.
	ConfirmedConcerns []string             `json:"confirmed_concerns,omitempty"`
	Attestation       *finding.Attestation `json:"attestation,omitempty"`
}

// ImportSummary reports what an import changed.
type ImportSummary struct {
	Applied     []string            `json:"applied_dimensions,omitempty"`
	Discarded   []string            `json:"discarded_dimensions,omitempty"`
	NewHolistic []string            `json:"new_holistic_findings,omitempty"`
	Warnings    []integrity.Warning `json:"warnings,omitempty"`
}

// Prepare builds the outbound packet from current state. Scores never
// enter the packet.
func Prepare(s *state.State, concerns []concern.Concern, maxFiles int) *Packet {
	p := &Packet{Command: "review", Dimensions: scoring.SubjectiveDimensions}
	p.Concerns = concerns

	byFile := make(map[string][]*finding.Finding)
	for _, f := range s.Findings {
		if f.Status == finding.StatusOpen && f.File != "" && f.File != "." {
			byFile[f.File] = append(byFile[f.File], f)
			p.Stats.Open++
		}
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	// Densest files first so a bounded review still sees the hot spots.
	sort.Slice(files, func(i, j int) bool {
		if len(byFile[files[i]]) != len(byFile[files[j]]) {
			return len(byFile[files[i]]) > len(byFile[files[j]])
		}
		return files[i] < files[j]
	})
	if maxFiles > 0 && len(files) > maxFiles {
		files = files[:maxFiles]
	}

	for _, file := range files {
		fs := byFile[file]
		sort.Slice(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })
		req := FileRequest{File: file, Zone: fs[0].Zone}
		for _, f := range fs {
			req.Findings = append(req.Findings, "["+f.Detector+"] "+f.Summary)
		}
		p.Files = append(p.Files, req)
	}
	p.Stats.Files = len(p.Files)
	return p
}

// Import applies a review result to state under the given trust level.
func Import(s *state.State, r *Result, trust string, concerns []concern.Concern, now time.Time) (*ImportSummary, error) {
	if !validTrust[trust] {
		return nil, fmt.Errorf("unknown trust level %q", trust)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	summary := &ImportSummary{}

	applyAssessments := false
	switch trust {
	case TrustedInternal, ManualOverride:
		applyAssessments = true
	case AttestedExternal:
		if r.Attestation == nil || r.Attestation.By == "" || r.Attestation.Reason == "" {
			return nil, fmt.Errorf("attested_external import requires an attestation")
		}
		applyAssessments = true
	case FindingsOnly:
	}

	dims := make([]string, 0, len(r.Assessments))
	for dim := range r.Assessments {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	notes := make(map[string]string)
	for _, dim := range dims {
		res := r.Assessments[dim]
		if _, known := scoring.SubjectiveWeights[dim]; !known {
			summary.Discarded = append(summary.Discarded, dim)
			continue
		}
		if !applyAssessments {
			summary.Discarded = append(summary.Discarded, dim)
			continue
		}
		if res.Score < 0 || res.Score > 100 {
			summary.Discarded = append(summary.Discarded, dim)
			continue
		}
		s.Subjective[dim] = &state.Assessment{
			Score:      res.Score,
			Source:     r.Source,
			AssessedAt: now,
		}
		notes[dim] = res.Notes
		summary.Applied = append(summary.Applied, dim)
	}
	summary.Warnings = integrity.CheckNotes(notes)

	if trust == ManualOverride {
		// Human override resets target-match provenance.
		s.Integrity = state.Integrity{Status: integrity.StatusPass}
	}

	// Confirmed concerns become persistent holistic findings.
	byFingerprint := make(map[string]concern.Concern, len(concerns))
	for _, c := range concerns {
		byFingerprint[c.Fingerprint] = c
	}
	for _, fp := range r.ConfirmedConcerns {
		c, ok := byFingerprint[fp]
		if !ok {
			continue
		}
		id := finding.NewID(finding.DetectorHolistic, c.File, c.Fingerprint)
		if _, exists := s.Findings[id]; exists {
			continue
		}
		f := &finding.Finding{
			ID:         id,
			Detector:   finding.DetectorHolistic,
			File:       c.File,
			Summary:    c.Summary,
			Tier:       finding.TierMajorRefactor,
			Confidence: finding.ConfidenceMedium,
			Status:     finding.StatusOpen,
			FirstSeen:  now,
			LastSeen:   now,
			Detail: finding.Detail{
				Extra: map[string]string{"concern_type": c.Type},
			},
		}
		s.Findings[id] = f
		summary.NewHolistic = append(summary.NewHolistic, id)
	}
	s.RefreshStatusCounts()
	return summary, nil
}
