// Package phase drives the per-language detector pipeline. Phases run in a
// fixed order, each producing findings plus the potentials (check counts)
// that scoring uses as denominators. A phase failure is contained: it logs
// a stable code, contributes zero potentials, and the scan proceeds.
package phase

import (
	"context"
	"log"
	"os"
	"sort"
	"time"

	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/graph"
	"github.com/scourdev/scour/pkg/zone"
)

var phaseLog = log.New(os.Stderr, "[scour:phase] ", log.Ltime)

// Potentials maps detector name to the number of checks it performed this
// scan. Per-scan only; never persisted.
type Potentials map[string]int

// Merge adds counts from other into p.
func (p Potentials) Merge(other Potentials) {
	for k, v := range other {
		p[k] += v
	}
}

// File is one discovered source file with its classification snapshot.
type File struct {
	Rel  string // repository-relative, forward slashes
	Abs  string
	Zone zone.Zone
	Lang string
	LOC  int
}

// Function is a source function extracted by the language plugin's
// lightweight extractor. Duplicate detection and structural analysis
// consume these.
type Function struct {
	File       string
	Name       string
	Line       int
	LOC        int
	Params     int
	Nesting    int
	Complexity int
	Normalized string // whitespace/identifier-normalized body
	BodyHash   string
}

// Thresholds carries plugin- and config-derived limits into phases.
type Thresholds struct {
	LargeLOC      int
	Complexity    int
	FanOut        int
	FanIn         int
	DupSimilarity float64
}

// Context is the read-only scan context threaded through every phase.
// Registries and thresholds live here; there is no process-wide mutable
// state.
type Context struct {
	ScanPath   string
	Files      []File
	Graph      *graph.Graph
	Functions  []Function
	Thresholds Thresholds
	IsEntry    func(rel string) bool
	ReadFile   func(rel string) ([]byte, error)
}

// ProductionFiles returns files whose zone permits the given detector,
// with the zone downgrade policy left to the caller.
func (c *Context) ProductionFiles(detector string) []File {
	var out []File
	for _, f := range c.Files {
		if zone.PolicyFor(detector, f.Zone) != zone.Skip {
			out = append(out, f)
		}
	}
	return out
}

// Result is one phase's output.
type Result struct {
	Findings   []*finding.Finding
	Potentials Potentials
}

// Phase is a single pipeline step. Detectors lists every detector the phase
// feeds; a successful run marks them all as having executed, which gates
// auto-resolve in the state merge.
type Phase struct {
	Name      string
	Detectors []string
	// Optional reports whether the phase depends on an external tool.
	// When Missing returns true the phase is skipped entirely: its
	// detectors are NOT marked as ran, so their prior findings survive.
	Missing func() (bool, string)
	Run     func(ctx context.Context, pc *Context) (Result, error)
}

// Outcome is the collected output of a full pipeline run.
type Outcome struct {
	Findings   []*finding.Finding
	Potentials Potentials
	// RanDetectors is the set D of detectors that actually executed,
	// used to gate auto-resolve.
	RanDetectors map[string]bool
	// Failures maps phase name to its stable error code.
	Failures map[string]string
}

// RunAll executes phases in order. Individual phase failures and timeouts
// are contained; cancellation of ctx aborts between phases and returns
// ctx.Err so the caller can discard the partial scan.
func RunAll(ctx context.Context, pc *Context, phases []Phase, perPhaseTimeout time.Duration) (*Outcome, error) {
	out := &Outcome{
		Potentials:   make(Potentials),
		RanDetectors: make(map[string]bool),
		Failures:     make(map[string]string),
	}

	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if ph.Missing != nil {
			if missing, tool := ph.Missing(); missing {
				phaseLog.Printf("E_TOOL_MISSING:%s phase %s skipped", tool, ph.Name)
				out.Failures[ph.Name] = "E_TOOL_MISSING:" + tool
				continue
			}
		}

		phaseCtx := ctx
		var cancel context.CancelFunc
		if perPhaseTimeout > 0 {
			phaseCtx, cancel = context.WithTimeout(ctx, perPhaseTimeout)
		}

		start := time.Now()
		res, err := ph.Run(phaseCtx, pc)
		if cancel != nil {
			cancel()
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			// Phase failure: zero potentials, detectors not marked as
			// ran, scan continues.
			phaseLog.Printf("E_PHASE_FAILED:%s %v (keeping prior findings)", ph.Name, err)
			out.Failures[ph.Name] = "E_PHASE_FAILED:" + ph.Name
			continue
		}

		kept := res.Findings[:0]
		for _, f := range res.Findings {
			if verr := f.Validate(); verr != nil {
				phaseLog.Printf("E_FINDING_INVALID:%s dropped: %v", ph.Name, verr)
				continue
			}
			kept = append(kept, f)
		}

		out.Findings = append(out.Findings, kept...)
		out.Potentials.Merge(res.Potentials)
		for _, d := range ph.Detectors {
			out.RanDetectors[d] = true
		}
		phaseLog.Printf("%s: %d findings in %v", ph.Name, len(kept), time.Since(start))
	}

	// Phase parallelism does not preserve ordering; sort by id at the
	// merge boundary so the merge is deterministic.
	sort.Slice(out.Findings, func(i, j int) bool { return out.Findings[i].ID < out.Findings[j].ID })
	return out, nil
}
