package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// Adapter turns an external tool's stdout into findings. Adapters are pure
// functions of the output bytes and must tolerate unknown fields.
type Adapter struct {
	// Name is the phase name; Binary is probed on PATH.
	Name     string
	Detector string
	Binary   string
	// Args builds the command line for a scan root.
	Args func(scanPath string) []string
	// Parse converts stdout to findings plus the number of checks the
	// tool performed.
	Parse func(stdout []byte, pc *phase.Context) ([]*finding.Finding, int, error)
	// Timeout bounds the subprocess wall clock.
	Timeout time.Duration
}

// ExternalPhase wraps an adapter as a pipeline phase. A missing binary
// skips the phase without marking the detector as ran; a subprocess error
// or timeout is a phase failure with zero potentials.
func ExternalPhase(a Adapter) phase.Phase {
	return phase.Phase{
		Name:      a.Name,
		Detectors: []string{a.Detector},
		Missing: func() (bool, string) {
			if _, err := exec.LookPath(a.Binary); err != nil {
				return true, a.Binary
			}
			return false, ""
		},
		Run: func(ctx context.Context, pc *phase.Context) (phase.Result, error) {
			if a.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.Timeout)
				defer cancel()
			}
			cmd := exec.CommandContext(ctx, a.Binary, a.Args(pc.ScanPath)...)
			cmd.Dir = pc.ScanPath
			var stdout bytes.Buffer
			cmd.Stdout = &stdout
			// Many linters exit non-zero when they find issues; only a
			// missing/killed process is a failure.
			if err := cmd.Run(); err != nil {
				if _, isExit := err.(*exec.ExitError); !isExit {
					return phase.Result{}, fmt.Errorf("run %s: %w", a.Binary, err)
				}
			}
			if ctx.Err() != nil {
				return phase.Result{}, ctx.Err()
			}
			findings, checks, err := a.Parse(stdout.Bytes(), pc)
			if err != nil {
				return phase.Result{}, fmt.Errorf("parse %s output: %w", a.Binary, err)
			}
			e := newEmitter()
			e.checked(a.Detector, checks)
			zoneOf := make(map[string]zone.Zone, len(pc.Files))
			for _, f := range pc.Files {
				zoneOf[f.Rel] = f.Zone
			}
			for _, fd := range findings {
				e.emit(fd, zoneOf[fd.File])
			}
			return e.result(), nil
		},
	}
}

// ruffDiagnostic is the subset of ruff's JSON output the adapter reads.
// Unknown fields are ignored by construction.
type ruffDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row int `json:"row"`
	} `json:"location"`
}

// RuffAdapter maps ruff diagnostics onto the lint detector for Python
// repositories. The symbol keeps the rule code alongside the line token:
// one line can carry several distinct diagnostics, and each is its own
// defect with its own id.
func RuffAdapter(timeout time.Duration) Adapter {
	return Adapter{
		Name:     "ruff",
		Detector: finding.DetectorLint,
		Binary:   "ruff",
		Timeout:  timeout,
		Args: func(scanPath string) []string {
			return []string{"check", "--output-format", "json", "--exit-zero", "."}
		},
		Parse: func(stdout []byte, pc *phase.Context) ([]*finding.Finding, int, error) {
			var diags []ruffDiagnostic
			if len(bytes.TrimSpace(stdout)) > 0 {
				if err := json.Unmarshal(stdout, &diags); err != nil {
					return nil, 0, err
				}
			}
			var out []*finding.Finding
			for _, d := range diags {
				rel := relPath(pc.ScanPath, d.Filename)
				fd := newFinding(finding.DetectorLint, rel,
					d.Code+"#"+finding.LineSymbol(d.Location.Row),
					finding.TierJudgment, finding.ConfidenceMedium,
					d.Code+": "+d.Message)
				fd.Detail.Line = d.Location.Row
				fd.Detail.Extra = map[string]string{"rule_id": d.Code}
				out = append(out, fd)
			}
			return out, len(pc.Files), nil
		},
	}
}
