// Package scan orchestrates one full analysis pass: discovery, zone
// classification, graph construction, the detector pipeline, the state
// merge, scoring, the integrity guard, and plan reconciliation. All
// persistence happens at the end; a cancelled scan writes nothing.
package scan

import (
	"context"
	"log"
	"os"
	"sort"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/oklog/ulid/v2"

	"github.com/scourdev/scour/pkg/config"
	"github.com/scourdev/scour/pkg/detect"
	"github.com/scourdev/scour/pkg/finding"
	"github.com/scourdev/scour/pkg/ignore"
	"github.com/scourdev/scour/pkg/integrity"
	"github.com/scourdev/scour/pkg/lang"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/plan"
	"github.com/scourdev/scour/pkg/scoring"
	"github.com/scourdev/scour/pkg/state"
	"github.com/scourdev/scour/pkg/zone"
)

var scanLog = log.New(os.Stderr, "[scour:scan] ", log.Ltime)

// ConfigFile is the repository configuration filename inside the tool dir.
const ConfigFile = "config.toml"

// QueryFile is the machine-readable scan snapshot written next to state.
const QueryFile = "query.json"

// Options configure one scan run.
type Options struct {
	RepoRoot string
	// Now and ScanID are injectable for tests; zero values mean real time
	// and a fresh ULID.
	Now    time.Time
	ScanID string
	// NoCache disables the extraction cache for this run.
	NoCache bool
}

// Report is what one completed scan produced.
type Report struct {
	ScanID    string            `json:"scan_id"`
	Commit    string            `json:"commit,omitempty"`
	Languages []string          `json:"languages"`
	Diff      *state.Diff       `json:"diff"`
	Scores    *scoring.Bundle   `json:"scores"`
	Integrity *integrity.Result `json:"integrity"`
	Stats     state.Stats       `json:"stats"`
	Failures  map[string]string `json:"phase_failures,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// querySnapshot is the query.json document: everything an external caller
// needs without parsing state.json.
type querySnapshot struct {
	ScanID    string            `json:"scan_id"`
	Timestamp time.Time         `json:"timestamp"`
	Commit    string            `json:"commit,omitempty"`
	Scores    *scoring.Bundle   `json:"scores"`
	Stats     state.Stats       `json:"stats"`
	Integrity string            `json:"integrity_status"`
	Failures  map[string]string `json:"phase_failures,omitempty"`
}

// Run executes a full scan. The advisory lock is held for the duration;
// cancellation at any point before the final persist leaves every file on
// disk untouched.
func Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	scanID := opts.ScanID
	if scanID == "" {
		scanID = ulid.Make().String()
	}

	st, err := state.NewStore(opts.RepoRoot)
	if err != nil {
		return nil, err
	}
	if err := st.Lock(); err != nil {
		return nil, err
	}
	defer st.Unlock()

	cfg, err := config.Load(st.Path(ConfigFile))
	if err != nil {
		return nil, err
	}
	if cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ScanTimeout)
		defer cancel()
	}

	s, err := st.Load()
	if err != nil {
		return nil, err
	}

	// Discovery.
	ign, err := ignore.Load(opts.RepoRoot)
	if err != nil {
		return nil, err
	}
	files, dirs, err := discover(opts.RepoRoot, cfg.Exclude, ign)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Language detection from markers and extensions.
	rels := make([]string, len(files))
	byRel := make(map[string]discovered, len(files))
	for i, f := range files {
		rels[i] = f.Rel
		byRel[f.Rel] = f
	}
	plugins := lang.Detect(rels, func(marker string) bool {
		_, ok := byRel[marker]
		return ok
	})
	langNames := make([]string, 0, len(plugins))
	active := plugins[:0]
	for _, p := range plugins {
		if lc, ok := cfg.Languages[p.Name()]; ok && lc.Disabled {
			continue
		}
		active = append(active, p)
		langNames = append(langNames, p.Name())
	}
	plugins = active

	// Zone classification: user overrides, then plugin rules, then defaults.
	var pluginRules []zone.Rule
	for _, p := range plugins {
		pluginRules = append(pluginRules, p.ZoneRules()...)
	}
	classifier := zone.NewClassifier(zoneOverrideRules(cfg.ZoneOverrides), pluginRules)

	pcFiles := make([]phase.File, 0, len(files))
	totalLOC := 0
	for _, f := range files {
		pf := phase.File{Rel: f.Rel, Abs: f.Abs, Zone: classifier.Classify(f.Rel), LOC: f.LOC}
		if p, ok := lang.ForFile(f.Rel); ok {
			pf.Lang = p.Name()
		}
		pcFiles = append(pcFiles, pf)
		totalLOC += f.LOC
	}

	// Extraction, cached by content hash.
	var cache *Cache
	if !opts.NoCache {
		cache, err = OpenCache(st.Path(CacheFile))
		if err != nil {
			scanLog.Printf("%v; scanning without cache", err)
		}
		defer cache.Close()
	}
	functions, err := extractFunctions(ctx, files, cache)
	if err != nil {
		return nil, err
	}

	pc := &phase.Context{
		ScanPath:   opts.RepoRoot,
		Files:      pcFiles,
		Graph:      buildGraph(files),
		Functions:  functions,
		Thresholds: resolveThresholds(cfg, plugins),
		IsEntry: func(rel string) bool {
			f, ok := byRel[rel]
			if !ok {
				return false
			}
			p, ok := lang.ForFile(rel)
			if !ok {
				return false
			}
			return p.IsEntry(rel, f.Content)
		},
		ReadFile: func(rel string) ([]byte, error) {
			f, ok := byRel[rel]
			if !ok {
				return nil, os.ErrNotExist
			}
			return f.Content, nil
		},
	}

	// Detector pipeline. Ruff joins only for Python repositories.
	withRuff := false
	for _, p := range plugins {
		if p.Name() == "python" {
			withRuff = true
		}
	}
	outcome, err := phase.RunAll(ctx, pc, detect.BuildPhases(cfg.ToolTimeout, withRuff), cfg.ToolTimeout)
	if err != nil {
		return nil, err // cancelled: nothing persisted
	}

	// Merge into state.
	diff := state.Merge(s, outcome.Findings, state.MergeOptions{
		Now:               now,
		RanDetectors:      outcome.RanDetectors,
		IgnorePatterns:    cfg.Ignore,
		NoiseBudget:       cfg.FindingNoiseBudget,
		GlobalNoiseBudget: cfg.FindingNoiseGlobalBudget,
	})
	s.Stats.Files = len(files)
	s.Stats.LOC = totalLOC
	s.Stats.Dirs = dirs

	// Score, then run the integrity guard; a penalization zeroes the
	// matched dimensions, so the channels are recomputed.
	bundle := computeScores(s, outcome.Potentials)
	integrityRes := integrity.Check(s, bundle, float64(cfg.TargetStrictScore), scanID)
	if integrityRes.Status == integrity.StatusPenalized {
		bundle = computeScores(s, outcome.Potentials)
	}

	prevOverall := s.Overall
	s.Overall = bundle.Overall
	s.Objective = bundle.Objective
	s.Strict = bundle.Strict
	s.VerifiedStrict = bundle.VerifiedStrict
	diff.ScoreDelta = bundle.Overall - prevOverall

	// Plan reconciliation against the merged state.
	p, err := plan.Load(st)
	if err != nil {
		return nil, err
	}
	plan.Reconcile(p, s, now)
	plan.AutoCluster(p, s, now)

	commit := headCommit(opts.RepoRoot)
	s.AppendHistory(state.HistoryEntry{
		ScanID:         scanID,
		Timestamp:      now,
		Commit:         commit,
		Overall:        bundle.Overall,
		Objective:      bundle.Objective,
		Strict:         bundle.Strict,
		VerifiedStrict: bundle.VerifiedStrict,
		Open:           s.Stats.ByStatus["open"],
		New:            len(diff.New),
		Resolved:       len(diff.Resolved),
		Reopened:       len(diff.Reopened),
	})

	// Persist: state first, then plan, then the query snapshot. A late
	// cancellation still discards everything.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := st.Save(s); err != nil {
		return nil, err
	}
	if err := plan.Save(st, p); err != nil {
		return nil, err
	}
	snap := querySnapshot{
		ScanID:    scanID,
		Timestamp: now,
		Commit:    commit,
		Scores:    bundle,
		Stats:     s.Stats,
		Integrity: s.Integrity.Status,
		Failures:  outcome.Failures,
	}
	if err := st.WriteJSON(QueryFile, snap); err != nil {
		return nil, err
	}

	return &Report{
		ScanID:    scanID,
		Commit:    commit,
		Languages: langNames,
		Diff:      diff,
		Scores:    bundle,
		Integrity: integrityRes,
		Stats:     s.Stats,
		Failures:  outcome.Failures,
		Duration:  time.Since(start),
	}, nil
}

// computeScores assembles the scoring input from merged state and the
// pipeline's potentials.
func computeScores(s *state.State, potentials phase.Potentials) *scoring.Bundle {
	subjective := make(map[string]float64, len(s.Subjective))
	for dim, a := range s.Subjective {
		subjective[dim] = a.Score
	}
	findings := make([]*finding.Finding, 0, len(s.Findings))
	for _, f := range s.Findings {
		findings = append(findings, f)
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].ID < findings[j].ID })
	return scoring.Compute(scoring.Input{
		Findings:   findings,
		Potentials: potentials,
		Subjective: subjective,
	})
}

// resolveThresholds merges the primary language's defaults with repo and
// per-language config overrides.
func resolveThresholds(cfg *config.Config, plugins []lang.Plugin) phase.Thresholds {
	base := phase.Thresholds{
		LargeLOC:      detect.DefaultLargeFileLOC,
		Complexity:    detect.DefaultComplexityThreshold,
		FanOut:        detect.DefaultFanOutThreshold,
		FanIn:         detect.DefaultFanInThreshold,
		DupSimilarity: 0.9,
	}
	if len(plugins) > 0 {
		base = plugins[0].Thresholds()
	}
	large := cfg.LargeFilesThreshold
	complexity := 0
	if len(plugins) > 0 {
		if lc, ok := cfg.Languages[plugins[0].Name()]; ok {
			if lc.LargeFilesThreshold > 0 {
				large = lc.LargeFilesThreshold
			}
			if lc.ComplexityThreshold > 0 {
				complexity = lc.ComplexityThreshold
			}
		}
	}
	return mergedThresholds(base, large, complexity)
}

// headCommit returns the short HEAD hash, or "" outside a git repository.
func headCommit(root string) string {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	h := head.Hash().String()
	if len(h) > 12 {
		h = h[:12]
	}
	return h
}
