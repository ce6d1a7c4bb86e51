// Package concern synthesizes higher-level design concerns from the open
// finding population. Concerns are ephemeral: computed on demand, never
// persisted, dismissible by fingerprint. Only the review import path turns
// a confirmed concern into a persistent finding.
package concern

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/state"
)

// Concern types.
const (
	TypeMixedResponsibilities = "mixed_responsibilities"
	TypeDuplicationDesign     = "duplication_design"
	TypeStructuralComplexity  = "structural_complexity"
	TypeCouplingDesign        = "coupling_design"
	TypeInterfaceDesign       = "interface_design"
	TypeDesignConcern         = "design_concern"
	TypeSystemicPattern       = "systemic_pattern"
	TypeSystemicSmell         = "systemic_smell"
)

// Signal thresholds for per-file escalation.
const (
	paramThreshold   = 8
	nestingThreshold = 6
	locThreshold     = 300
)

// Concern is a potential design problem surfaced by mechanical signals.
type Concern struct {
	Type    string `json:"type"`
	File    string `json:"file"`
	Summary string `json:"summary"`
	// Evidence lists the supporting data points.
	Evidence []string `json:"evidence"`
	// Question is the targeted question handed to the reviewer.
	Question string `json:"question"`
	// Fingerprint keys dismissal tracking.
	Fingerprint string `json:"fingerprint"`
	// SourceFindings are the triggering finding ids, sorted.
	SourceFindings []string `json:"source_findings"`
}

// Fingerprint computes the stable dismissal key:
// sha256("{type}::{file}::{sorted keys}") truncated to 16 hex chars.
func Fingerprint(concernType, file string, keySignals []string) string {
	keys := make([]string, len(keySignals))
	copy(keys, keySignals)
	sort.Strings(keys)
	raw := concernType + "::" + file + "::" + strings.Join(keys, ",")
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)[:16]
}

// Generate runs all concern generators against the current state, filtering
// out concerns whose fingerprint was dismissed with an unchanged source set.
func Generate(s *state.State) []Concern {
	var out []Concern
	out = append(out, fileConcerns(s)...)
	out = append(out, crossFilePatterns(s)...)
	out = append(out, systemicSmells(s)...)

	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}

// Dismiss records a dismissal keyed by fingerprint. The dismissal is void
// as soon as the concern's source finding set changes.
func Dismiss(s *state.State, c Concern, reason string) {
	s.ConcernDismissals[c.Fingerprint] = &state.Dismissal{
		SourceFindingIDs: append([]string(nil), c.SourceFindings...),
		DismissedAt:      time.Now().UTC(),
		Reason:           reason,
	}
}

// CleanupStaleDismissals drops dismissals whose source findings have all
// left the state; those concerns can no longer regenerate.
func CleanupStaleDismissals(s *state.State) int {
	removed := 0
	for fp, d := range s.ConcernDismissals {
		alive := false
		for _, id := range d.SourceFindingIDs {
			if _, ok := s.Findings[id]; ok {
				alive = true
				break
			}
		}
		if !alive {
			delete(s.ConcernDismissals, fp)
			removed++
		}
	}
	return removed
}

func dismissed(s *state.State, fp string, sourceIDs []string) bool {
	d, ok := s.ConcernDismissals[fp]
	if !ok {
		return false
	}
	if len(d.SourceFindingIDs) != len(sourceIDs) {
		return false
	}
	prev := make(map[string]bool, len(d.SourceFindingIDs))
	for _, id := range d.SourceFindingIDs {
		prev[id] = true
	}
	for _, id := range sourceIDs {
		if !prev[id] {
			return false
		}
	}
	return true
}

// signals are the quantitative maxima extracted from a file's findings.
type signals struct {
	maxParams    int
	maxNesting   int
	loc          int
	monsterLOC   int
	monsterFuncs []string
}

func extractSignals(fs []*finding.Finding) signals {
	var sig signals
	for _, f := range fs {
		switch f.Detector {
		case finding.DetectorStructural:
			sig.maxParams = maxInt(sig.maxParams, extraInt(f, "max_params"))
			sig.maxNesting = maxInt(sig.maxNesting, extraInt(f, "max_nesting"))
			sig.loc = maxInt(sig.loc, f.Detail.LOC)
		case finding.DetectorSmells:
			if f.Detail.Extra["smell_id"] == "monster_function" {
				sig.monsterLOC = maxInt(sig.monsterLOC, f.Detail.LOC)
				if fn := f.Detail.Symbol; fn != "" {
					sig.monsterFuncs = append(sig.monsterFuncs, fn)
				}
			}
		}
	}
	sort.Strings(sig.monsterFuncs)
	return sig
}

func hasElevatedSignals(fs []*finding.Finding) bool {
	for _, f := range fs {
		switch f.Detector {
		case finding.DetectorStructural:
			if extraInt(f, "max_params") >= paramThreshold ||
				extraInt(f, "max_nesting") >= nestingThreshold ||
				f.Detail.LOC >= locThreshold {
				return true
			}
		case finding.DetectorSmells:
			if f.Detail.Extra["smell_id"] == "monster_function" {
				return true
			}
		case finding.DetectorDupes, finding.DetectorBoilerplate, finding.DetectorCoupling:
			return true
		}
	}
	return false
}

func classify(detectors map[string]bool, sig signals) string {
	switch {
	case len(detectors) >= 3:
		return TypeMixedResponsibilities
	case detectors[finding.DetectorDupes] || detectors[finding.DetectorBoilerplate]:
		return TypeDuplicationDesign
	case sig.monsterLOC > 0:
		return TypeStructuralComplexity
	case detectors[finding.DetectorCoupling]:
		return TypeCouplingDesign
	case sig.maxParams >= paramThreshold:
		return TypeInterfaceDesign
	case sig.maxNesting >= nestingThreshold:
		return TypeStructuralComplexity
	default:
		return TypeDesignConcern
	}
}

// fileConcerns flags files with 2+ judgment detectors, one detector with
// elevated signals, or one judgment detector plus 3+ total findings, and
// bundles every finding so the reviewer sees the full picture.
func fileConcerns(s *state.State) []Concern {
	byFile := groupByFile(s)
	judgmentSet := finding.JudgmentDetectors()

	var out []Concern
	for file, all := range byFile {
		var judgment []*finding.Finding
		dets := make(map[string]bool)
		for _, f := range all {
			if judgmentSet[f.Detector] {
				judgment = append(judgment, f)
				dets[f.Detector] = true
			}
		}
		if len(judgment) == 0 {
			continue
		}
		elevated := hasElevatedSignals(judgment)
		if len(dets) < 2 && !elevated && len(all) < 3 {
			continue
		}

		sig := extractSignals(judgment)
		ctype := classify(dets, sig)
		ids := sortedIDs(judgment)
		fp := Fingerprint(ctype, file, keys(dets))
		if dismissed(s, fp, ids) {
			continue
		}

		out = append(out, Concern{
			Type:           ctype,
			File:           file,
			Summary:        fileSummary(ctype, dets, sig),
			Evidence:       fileEvidence(judgment, sig),
			Question:       fileQuestion(dets, sig),
			Fingerprint:    fp,
			SourceFindings: ids,
		})
	}
	return out
}

// crossFilePatterns surfaces 3+ files sharing the same judgment detector
// combination as one systemic concern.
func crossFilePatterns(s *state.State) []Concern {
	byFile := groupByFile(s)
	judgmentSet := finding.JudgmentDetectors()

	profiles := make(map[string][]string) // profile key -> files
	profileDets := make(map[string][]string)
	for file, fs := range byFile {
		dets := make(map[string]bool)
		for _, f := range fs {
			if judgmentSet[f.Detector] {
				dets[f.Detector] = true
			}
		}
		if len(dets) < 2 {
			continue
		}
		names := keys(dets)
		key := strings.Join(names, ",")
		profiles[key] = append(profiles[key], file)
		profileDets[key] = names
	}

	var out []Concern
	for key, files := range profiles {
		if len(files) < 3 {
			continue
		}
		sort.Strings(files)
		names := profileDets[key]

		inCombo := make(map[string]bool, len(names))
		for _, n := range names {
			inCombo[n] = true
		}
		var ids []string
		for _, file := range files {
			for _, f := range byFile[file] {
				if inCombo[f.Detector] {
					ids = append(ids, f.ID)
				}
			}
		}
		sort.Strings(ids)

		// First few files key the fingerprint: stable but bounded.
		fp := Fingerprint(TypeSystemicPattern, strings.Join(head(files, 5), ","), names)
		if dismissed(s, fp, ids) {
			continue
		}

		out = append(out, Concern{
			Type: TypeSystemicPattern,
			File: files[0],
			Summary: fmt.Sprintf("%d files share the same problem pattern (%s)",
				len(files), strings.Join(names, ", ")),
			Evidence: []string{
				"Affected files: " + strings.Join(head(files, 10), ", "),
				"Shared detectors: " + strings.Join(names, ", "),
				fmt.Sprintf("Total files: %d", len(files)),
			},
			Question: fmt.Sprintf(
				"These %d files all have the same combination of issues (%s). "+
					"Is this a systemic pattern that should be addressed at the "+
					"architecture level, or independent issues that happen to look similar?",
				len(files), strings.Join(names, ", ")),
			Fingerprint:    fp,
			SourceFindings: ids,
		})
	}
	return out
}

// systemicSmells surfaces a single smell id appearing in 5+ files.
func systemicSmells(s *state.State) []Concern {
	smellFiles := make(map[string]map[string]bool)
	smellIDs := make(map[string][]string)
	for _, f := range s.Findings {
		if f.Status != finding.StatusOpen || f.Detector != finding.DetectorSmells {
			continue
		}
		smell := f.Detail.Extra["smell_id"]
		if smell == "" || f.File == "" || f.File == "." {
			continue
		}
		if smellFiles[smell] == nil {
			smellFiles[smell] = make(map[string]bool)
		}
		smellFiles[smell][f.File] = true
		smellIDs[smell] = append(smellIDs[smell], f.ID)
	}

	var out []Concern
	for smell, fileSet := range smellFiles {
		if len(fileSet) < 5 {
			continue
		}
		files := keys(fileSet)
		ids := smellIDs[smell]
		sort.Strings(ids)

		fp := Fingerprint(TypeSystemicSmell, smell, []string{smell})
		if dismissed(s, fp, ids) {
			continue
		}

		out = append(out, Concern{
			Type: TypeSystemicSmell,
			File: files[0],
			Summary: fmt.Sprintf("'%s' appears in %d files, likely a systemic pattern",
				smell, len(files)),
			Evidence: []string{
				"Smell: " + smell,
				fmt.Sprintf("Affected files (%d): %s", len(files), strings.Join(head(files, 10), ", ")),
			},
			Question: fmt.Sprintf(
				"The smell '%s' appears across %d files. Should it be addressed "+
					"systemically (lint rule, shared utility, architecture change), "+
					"or fixed file by file?", smell, len(files)),
			Fingerprint:    fp,
			SourceFindings: ids,
		})
	}
	return out
}

func fileSummary(ctype string, dets map[string]bool, sig signals) string {
	switch ctype {
	case TypeMixedResponsibilities:
		return fmt.Sprintf("Issues from %d detectors, may have too many responsibilities", len(dets))
	case TypeStructuralComplexity:
		var parts []string
		if sig.monsterLOC > 0 {
			label := ""
			if len(sig.monsterFuncs) > 0 {
				label = " (" + strings.Join(head(sig.monsterFuncs, 3), ", ") + ")"
			}
			parts = append(parts, fmt.Sprintf("monster function%s: %d lines", label, sig.monsterLOC))
		}
		if sig.maxNesting >= nestingThreshold {
			parts = append(parts, fmt.Sprintf("nesting depth %d", sig.maxNesting))
		}
		if sig.maxParams >= paramThreshold {
			parts = append(parts, fmt.Sprintf("%d parameters", sig.maxParams))
		}
		if len(parts) == 0 {
			parts = append(parts, "elevated signals")
		}
		return "Structural complexity: " + strings.Join(parts, ", ")
	case TypeDuplicationDesign:
		return "Duplication pattern, assess if extraction is warranted"
	case TypeCouplingDesign:
		return "Coupling pattern, assess if boundaries need adjustment"
	case TypeInterfaceDesign:
		return fmt.Sprintf("Interface complexity: %d parameters", sig.maxParams)
	default:
		return "Design signals from " + strings.Join(keys(dets), ", ")
	}
}

func fileEvidence(fs []*finding.Finding, sig signals) []string {
	dets := make(map[string]bool)
	for _, f := range fs {
		dets[f.Detector] = true
	}
	evidence := []string{"Flagged by: " + strings.Join(keys(dets), ", ")}
	if sig.loc > 0 {
		evidence = append(evidence, fmt.Sprintf("File size: %d lines", sig.loc))
	}
	if sig.maxParams >= paramThreshold {
		evidence = append(evidence, fmt.Sprintf("Max parameters: %d", sig.maxParams))
	}
	if sig.maxNesting >= nestingThreshold {
		evidence = append(evidence, fmt.Sprintf("Max nesting depth: %d", sig.maxNesting))
	}
	if sig.monsterLOC > 0 {
		label := ""
		if len(sig.monsterFuncs) > 0 {
			label = " (" + strings.Join(head(sig.monsterFuncs, 3), ", ") + ")"
		}
		evidence = append(evidence, fmt.Sprintf("Monster function%s: %d lines", label, sig.monsterLOC))
	}
	sorted := make([]*finding.Finding, len(fs))
	copy(sorted, fs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, f := range head(sorted, 10) {
		if f.Summary != "" {
			evidence = append(evidence, "["+f.Detector+"] "+f.Summary)
		}
	}
	return evidence
}

func fileQuestion(dets map[string]bool, sig signals) string {
	var parts []string
	if len(dets) >= 3 {
		parts = append(parts, fmt.Sprintf(
			"This file has issues across %d dimensions (%s). Is it trying to do "+
				"too many things, or is this complexity inherent to its domain?",
			len(dets), strings.Join(keys(dets), ", ")))
	}
	if len(sig.monsterFuncs) > 0 {
		parts = append(parts, fmt.Sprintf(
			"What are the distinct responsibilities in %s()? Should it be "+
				"decomposed into focused functions?", sig.monsterFuncs[0]))
	}
	if sig.maxParams >= paramThreshold {
		parts = append(parts,
			"Should the parameters be grouped into a config/context object? "+
				"Which ones belong together?")
	}
	if sig.maxNesting >= nestingThreshold {
		parts = append(parts,
			"Can the nesting be reduced with early returns, guard clauses, "+
				"or extraction into helper functions?")
	}
	if dets[finding.DetectorDupes] || dets[finding.DetectorBoilerplate] {
		parts = append(parts,
			"Is the duplication worth extracting into a shared utility, "+
				"or is it intentional variation?")
	}
	if dets[finding.DetectorCoupling] {
		parts = append(parts,
			"Is the coupling intentional or does it indicate a missing "+
				"abstraction boundary?")
	}
	if dets[finding.DetectorOrphaned] {
		parts = append(parts,
			"Is this file truly dead, or is it used via a non-import mechanism "+
				"(dynamic import, CLI entry point, plugin)?")
	}
	if len(parts) == 0 {
		parts = append(parts,
			"Review the flagged patterns: are they design problems that need "+
				"addressing, or acceptable given the file's role?")
	}
	return strings.Join(parts, " ")
}

func groupByFile(s *state.State) map[string][]*finding.Finding {
	out := make(map[string][]*finding.Finding)
	for _, f := range s.Findings {
		if f.Status != finding.StatusOpen || f.File == "" || f.File == "." {
			continue
		}
		out[f.File] = append(out[f.File], f)
	}
	return out
}

func sortedIDs(fs []*finding.Finding) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.ID)
	}
	sort.Strings(out)
	return out
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func extraInt(f *finding.Finding, key string) int {
	v, err := strconv.Atoi(f.Detail.Extra[key])
	if err != nil {
		return 0
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
