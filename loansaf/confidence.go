package loansaf

import (
	"hash/fnv"
	"math"
)

// hashUnit maps s to a deterministic value in [0, 1). Extraction scores must
// be stable across runs of the same document, so anywhere a score needs
// spread within a band it is derived from the content rather than drawn from
// a random source.
func hashUnit(s string) float64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return float64(h.Sum64()%10000) / 10000
}

// scoreBetween maps s deterministically into [lo, hi).
func scoreBetween(s string, lo, hi float64) float64 {
	return lo + hashUnit(s)*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
