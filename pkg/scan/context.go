package scan

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scourdev/scour/pkg/graph"
	"github.com/scourdev/scour/pkg/lang"
	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// extractFunctions runs the per-file extractors in parallel, consulting the
// cache first. Results come back in file order regardless of scheduling.
func extractFunctions(ctx context.Context, files []discovered, cache *Cache) ([]phase.Function, error) {
	results := make([][]phase.Function, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	var mu sync.Mutex // serializes cache writes
	for i, f := range files {
		plugin, ok := lang.ForFile(f.Rel)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hash := contentHash(f.Content)
			if fns, hit := cache.Get(f.Rel, hash); hit {
				results[i] = fns
				return nil
			}
			fns := plugin.ExtractFunctions(f.Rel, f.Content)
			results[i] = fns
			mu.Lock()
			err := cache.Put(f.Rel, hash, fns)
			mu.Unlock()
			if err != nil {
				scanLog.Printf("cache write for %s failed: %v", f.Rel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []phase.Function
	for _, fns := range results {
		out = append(out, fns...)
	}
	return out, nil
}

// buildGraph resolves every file's imports against the discovered file set.
// A candidate path ending in "/" matches every file directly inside that
// directory (a package import).
func buildGraph(files []discovered) *graph.Graph {
	g := graph.New()

	exists := make(map[string]bool, len(files))
	byDir := make(map[string][]string)
	for _, f := range files {
		if _, ok := lang.ForFile(f.Rel); !ok {
			continue
		}
		exists[f.Rel] = true
		dir := ""
		if i := strings.LastIndex(f.Rel, "/"); i >= 0 {
			dir = f.Rel[:i+1]
		}
		byDir[dir] = append(byDir[dir], f.Rel)
	}
	for _, members := range byDir {
		sort.Strings(members)
	}

	for _, f := range files {
		plugin, ok := lang.ForFile(f.Rel)
		if !ok {
			continue
		}
		g.AddNode(f.Rel)
		for _, imp := range plugin.Imports(f.Content) {
			for _, cand := range plugin.ResolveImport(f.Rel, imp.Raw) {
				if strings.HasSuffix(cand, "/") {
					members, found := byDir[cand]
					if !found {
						continue
					}
					for _, to := range members {
						if to != f.Rel {
							g.AddEdge(f.Rel, to, imp.Deferred)
						}
					}
					break
				}
				if exists[cand] {
					if cand != f.Rel {
						g.AddEdge(f.Rel, cand, imp.Deferred)
					}
					break
				}
			}
		}
	}
	return g
}

// mergedThresholds overlays config limits on the primary language's
// defaults. Zero config values leave the plugin default in place.
func mergedThresholds(base phase.Thresholds, largeLOC, complexity int) phase.Thresholds {
	out := base
	if largeLOC > 0 {
		out.LargeLOC = largeLOC
	}
	if complexity > 0 {
		out.Complexity = complexity
	}
	return out
}

// zoneOverrideRules converts the config's pattern->zone map into ordered
// classifier rules. Unknown zone names are dropped with a log line.
func zoneOverrideRules(overrides map[string]string) []zone.Rule {
	patterns := make([]string, 0, len(overrides))
	for p := range overrides {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	var rules []zone.Rule
	for _, p := range patterns {
		z := zone.Zone(overrides[p])
		valid := false
		for _, known := range zone.All {
			if z == known {
				valid = true
				break
			}
		}
		if !valid {
			scanLog.Printf("zone_overrides: unknown zone %q for %q ignored", overrides[p], p)
			continue
		}
		rules = append(rules, zone.Rule{Pattern: p, Zone: z})
	}
	return rules
}
