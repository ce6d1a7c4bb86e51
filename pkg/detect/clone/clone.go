// Package clone detects near-duplicate functions using a Rabin-Karp
// rolling hash over normalized token sequences.
//
// The pipeline:
//  1. Tokenize each function's normalized body into token-kind sequences.
//  2. Compute rolling hashes over sliding token windows.
//  3. Index hash -> locations and pair up co-located windows.
//  4. Score pairs by shared-window ratio; pairs above the similarity
//     threshold are near-duplicates.
//
// Exact duplicates are cheaper to find by body hash and are handled by the
// caller before this engine runs.
package clone

// Default engine configuration. Single source of truth for the duplicate
// detector's defaults and the CLI display.
const (
	// DefaultWindowSize is the number of tokens in the sliding hash window.
	DefaultWindowSize = 25

	// DefaultMinTokens is the minimum token count for a function to
	// participate. Tiny functions produce accidental matches.
	DefaultMinTokens = 30

	// DefaultMaxBucketSize caps how many locations a single hash may
	// appear in before the window is considered boilerplate and excluded
	// from pairing.
	DefaultMaxBucketSize = 16

	// DefaultMinSimilarity is the shared-window ratio at which a pair is
	// reported as a near-duplicate.
	DefaultMinSimilarity = 0.9
)

// Location identifies one function in the corpus.
type Location struct {
	File string
	Name string
	Line int
}

// Pair is one near-duplicate function pair with its similarity ratio.
type Pair struct {
	A, B       Location
	Similarity float64
}

// Options configure an Engine.
type Options struct {
	WindowSize    int
	MinTokens     int
	MaxBucketSize int
	MinSimilarity float64
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.MinTokens <= 0 {
		o.MinTokens = DefaultMinTokens
	}
	if o.MaxBucketSize <= 0 {
		o.MaxBucketSize = DefaultMaxBucketSize
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	return o
}

// Engine accumulates functions and reports near-duplicate pairs.
type Engine struct {
	opts    Options
	rh      *rollingHash
	entries []entry
}

type entry struct {
	loc    Location
	hashes []uint64
}

// New returns an engine with the given options; zero values take defaults.
func New(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts: opts,
		rh:   newRollingHash(opts.WindowSize),
	}
}

// Add tokenizes one function's normalized body and registers it.
// Functions below the token minimum are ignored.
func (e *Engine) Add(loc Location, normalizedBody string) {
	tokens := tokenize(normalizedBody)
	if len(tokens) < e.opts.MinTokens {
		return
	}
	hashes := e.rh.hashes(tokens)
	if len(hashes) == 0 {
		return
	}
	e.entries = append(e.entries, entry{loc: loc, hashes: hashes})
}

// Pairs computes all near-duplicate pairs above the similarity threshold.
// Output order is deterministic: sorted by (A.File, A.Line, B.File, B.Line).
func (e *Engine) Pairs() []Pair {
	return pairUp(e.entries, e.opts)
}
