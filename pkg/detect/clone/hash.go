package clone

// Rabin-Karp rolling hash over token kind sequences:
//
//	h(s[0..k-1]) = s[0]*base^(k-1) + s[1]*base^(k-2) + ... + s[k-1]
//
// computed modulo a large prime.

const (
	hashBase uint64 = 257
	hashMod  uint64 = 1_000_000_007
)

type rollingHash struct {
	window  int
	basePow uint64 // base^(window-1) mod hashMod
}

func newRollingHash(window int) *rollingHash {
	pow := uint64(1)
	for i := 0; i < window-1; i++ {
		pow = (pow * hashBase) % hashMod
	}
	return &rollingHash{window: window, basePow: pow}
}

// hashToken maps a token kind string to a numeric value (DJB2 variant).
func hashToken(kind string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(kind); i++ {
		h = ((h << 5) + h + uint64(kind[i])) % hashMod
	}
	return h
}

// hashes returns the rolling hash of every window in the token sequence.
func (rh *rollingHash) hashes(tokens []string) []uint64 {
	n := len(tokens)
	if n < rh.window {
		return nil
	}
	out := make([]uint64, 0, n-rh.window+1)

	var h uint64
	for i := 0; i < rh.window; i++ {
		h = (h*hashBase + hashToken(tokens[i])) % hashMod
	}
	out = append(out, h)

	for i := rh.window; i < n; i++ {
		old := (hashToken(tokens[i-rh.window]) * rh.basePow) % hashMod
		h = (h + hashMod - old) % hashMod
		h = (h*hashBase + hashToken(tokens[i])) % hashMod
		out = append(out, h)
	}
	return out
}
