// Package detect implements the built-in detectors, organized into the
// ordered phases the scan pipeline runs. Each detector emits findings
// through the zone policy filter and reports its check count as the
// scoring denominator.
package detect

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// emitter collects one phase's findings and potentials, applying the
// per-zone detector policy at the single emission point.
type emitter struct {
	findings   []*finding.Finding
	potentials phase.Potentials
}

func newEmitter() *emitter {
	return &emitter{potentials: make(phase.Potentials)}
}

// checked records n checks performed by a detector, feeding scoring's
// denominator even when nothing is found.
func (e *emitter) checked(detector string, n int) {
	e.potentials[detector] += n
}

// emit applies the zone policy (skip or tier downgrade) and appends the
// finding. The finding's File and Zone must already be set.
func (e *emitter) emit(f *finding.Finding, z zone.Zone) {
	switch zone.PolicyFor(f.Detector, z) {
	case zone.Skip:
		return
	case zone.Downgrade:
		if f.Tier > finding.TierAutoFix {
			f.Tier--
		}
	}
	f.Zone = string(z)
	e.findings = append(e.findings, f)
}

func (e *emitter) result() phase.Result {
	return phase.Result{Findings: e.findings, Potentials: e.potentials}
}

// newFinding builds a finding with the registry defaults filled in.
func newFinding(detector, file, symbol string, tier int, confidence, summary string) *finding.Finding {
	return &finding.Finding{
		ID:         finding.NewID(detector, file, symbol),
		Detector:   detector,
		File:       file,
		Summary:    summary,
		Tier:       tier,
		Confidence: confidence,
	}
}

// fileSummary is a tiny helper for "<what> (<n> <unit>)" summaries.
func fileSummary(what string, n int, unit string) string {
	return fmt.Sprintf("%s (%d %s)", what, n, unit)
}

// relPath normalizes a tool-reported path to repo-relative forward-slash
// form.
func relPath(scanPath, reported string) string {
	if rel, err := filepath.Rel(scanPath, reported); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(reported)
}
