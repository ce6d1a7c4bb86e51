package clone

import "sort"

// pairUp indexes every entry's windows and scores entry pairs by the
// fraction of windows they share.
func pairUp(entries []entry, opts Options) []Pair {
	// hash -> entry indices holding it (deduplicated per entry).
	buckets := make(map[uint64][]int)
	windowSets := make([]map[uint64]bool, len(entries))
	for i, e := range entries {
		set := make(map[uint64]bool, len(e.hashes))
		for _, h := range e.hashes {
			set[h] = true
		}
		windowSets[i] = set
		for h := range set {
			buckets[h] = append(buckets[h], i)
		}
	}

	// Count shared windows per candidate pair. Oversized buckets are
	// boilerplate (common idiom windows) and do not vote.
	shared := make(map[[2]int]int)
	for _, members := range buckets {
		if len(members) < 2 || len(members) > opts.MaxBucketSize {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				key := [2]int{members[i], members[j]}
				shared[key]++
			}
		}
	}

	var out []Pair
	for key, n := range shared {
		a, b := key[0], key[1]
		denom := len(windowSets[a])
		if len(windowSets[b]) > denom {
			denom = len(windowSets[b])
		}
		if denom == 0 {
			continue
		}
		sim := float64(n) / float64(denom)
		if sim < opts.MinSimilarity {
			continue
		}
		if sim > 1 {
			sim = 1
		}
		pa, pb := entries[a].loc, entries[b].loc
		if locLess(pb, pa) {
			pa, pb = pb, pa
		}
		out = append(out, Pair{A: pa, B: pb, Similarity: sim})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return locLess(out[i].A, out[j].A)
		}
		return locLess(out[i].B, out[j].B)
	})
	return out
}

func locLess(a, b Location) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Name < b.Name
}
