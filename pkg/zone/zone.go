// Package zone classifies repository files into zones that control which
// detectors apply and whether their findings count toward scoring.
package zone

import (
	"path"
	"strings"
)

// Zone is a file classification. The set is closed.
type Zone string

const (
	Production Zone = "production"
	Test       Zone = "test"
	Config     Zone = "config"
	Generated  Zone = "generated"
	Script     Zone = "script"
	Vendor     Zone = "vendor"
)

// All is the closed set of zones.
var All = []Zone{Production, Test, Config, Generated, Script, Vendor}

// Policy describes how a detector treats findings in a zone.
type Policy int

const (
	// Normal keeps the finding untouched.
	Normal Policy = iota
	// Downgrade lowers the finding one tier (never below tier 1).
	Downgrade
	// Skip drops the finding entirely.
	Skip
)

// Rule binds a pattern to a zone. Patterns use the five literal forms
// documented on Matches, tried in that order. Not glob, not regex.
type Rule struct {
	Pattern string
	Zone    Zone
}

// DefaultRules are the built-in classification rules, checked after user
// overrides and language-plugin rules. First match wins.
var DefaultRules = []Rule{
	{"/vendor/", Vendor},
	{"/node_modules/", Vendor},
	{"/third_party/", Vendor},
	{"/generated/", Generated},
	{"/__generated__/", Generated},
	{".pb.go", Generated},
	{".gen.go", Generated},
	{".min.js", Generated},
	{"/test/", Test},
	{"/tests/", Test},
	{"/testdata/", Test},
	{"/__tests__/", Test},
	{"_test", Test},
	{"test_", Test},
	{".spec.ts", Test},
	{".test.ts", Test},
	{"/scripts/", Script},
	{"/tools/bin/", Script},
	{"conftest.py", Config},
	{".toml", Config},
	{".yaml", Config},
	{".yml", Config},
	{".ini", Config},
	{".cfg", Config},
	{"Makefile", Config},
	{"Dockerfile", Config},
}

// Matches reports whether a single pattern matches a repository-relative,
// forward-slash path. Five literal forms are tried in order:
//
//	"/dir/"      substring match on the full path
//	".ext"       suffix match on the filename
//	"prefix_"    prefix match on the basename
//	"_suffix"    basename ends-with, before the extension
//	"name.ext"   exact basename match
func Matches(pattern, relPath string) bool {
	if pattern == "" || relPath == "" {
		return false
	}
	base := path.Base(relPath)

	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		return strings.Contains("/"+relPath, pattern)
	}
	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(base, pattern)
	}
	if strings.HasSuffix(pattern, "_") {
		return strings.HasPrefix(base, pattern)
	}
	if strings.HasPrefix(pattern, "_") {
		ext := path.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		return strings.HasSuffix(stem, pattern)
	}
	return base == pattern
}

// Classifier resolves a path to exactly one zone. It is deterministic and
// total: unmatched paths are Production.
type Classifier struct {
	overrides []Rule // user zone_overrides, highest priority
	plugin    []Rule // language-plugin rules
}

// NewClassifier builds a classifier from user overrides and plugin rules.
func NewClassifier(overrides, plugin []Rule) *Classifier {
	return &Classifier{overrides: overrides, plugin: plugin}
}

// Classify maps a repository-relative path to its zone.
func (c *Classifier) Classify(relPath string) Zone {
	relPath = strings.TrimPrefix(strings.ReplaceAll(relPath, "\\", "/"), "./")
	for _, rs := range [][]Rule{c.overrides, c.plugin, DefaultRules} {
		for _, r := range rs {
			// Exact-path overrides are allowed alongside patterns.
			if r.Pattern == relPath || Matches(r.Pattern, relPath) {
				return r.Zone
			}
		}
	}
	return Production
}

// skip sets mirror the per-zone detector policies: detectors listed here
// emit no findings for files in that zone.
var testSkip = set("boilerplate_duplication", "dupes", "single_use", "orphaned",
	"coupling", "cycles", "test_coverage", "security")

var configSkip = set("boilerplate_duplication", "smells", "structural", "dupes",
	"single_use", "orphaned", "coupling", "cycles", "test_coverage", "security")

var scriptSkip = set("coupling", "single_use", "orphaned")

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// PolicyFor returns the policy for a (detector, zone) pair.
func PolicyFor(detector string, z Zone) Policy {
	switch z {
	case Generated, Vendor:
		return Skip
	case Test:
		if testSkip[detector] {
			return Skip
		}
		return Downgrade
	case Config:
		if configSkip[detector] {
			return Skip
		}
		return Downgrade
	case Script:
		if scriptSkip[detector] {
			return Skip
		}
		return Normal
	default:
		return Normal
	}
}

// ExcludedFromScoring reports whether all findings in the zone are excluded
// from score computation regardless of detector.
func ExcludedFromScoring(z Zone) bool {
	return z == Generated || z == Vendor
}
