// Package itemorder produces the per-candidate presentation order of a block's
// items. The order is derived, never persisted: hashing the candidate identity
// with the block index seeds a small generator, so every reload of the block
// yields the same permutation without any stored state.
package itemorder

// Seed derives a 32-bit seed from the candidate identity and block index using
// FNV-1a. The separator keeps (candidate "a", block 12) distinct from
// (candidate "a1", block 2).
func Seed(candidateID string, blockIndex int) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	mix := func(b byte) {
		h ^= uint32(b)
		h *= fnvPrime
	}
	for i := 0; i < len(candidateID); i++ {
		mix(candidateID[i])
	}
	mix(':')
	if blockIndex == 0 {
		mix('0')
	} else {
		var digits [20]byte
		n := 0
		v := blockIndex
		if v < 0 {
			mix('-')
			v = -v
		}
		for v > 0 {
			digits[n] = byte('0' + v%10)
			n++
			v /= 10
		}
		for i := n - 1; i >= 0; i-- {
			mix(digits[i])
		}
	}
	return h
}

// lcg is a linear congruential generator with the Numerical Recipes constants.
// Not suitable for anything security-sensitive; here it only has to be cheap
// and identical on every platform.
type lcg struct {
	state uint32
}

func (g *lcg) next() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state) / (1 << 32)
}

// Shuffle returns a new slice holding a permutation of items determined
// entirely by the seed (Fisher-Yates, drawing from the seeded generator).
// The input slice is not modified.
func Shuffle[T any](items []T, seed uint32) []T {
	out := make([]T, len(items))
	copy(out, items)
	g := lcg{state: seed}
	for i := len(out) - 1; i > 0; i-- {
		j := int(g.next() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ForCandidate is the composed convenience: the stable item order candidate
// candidateID sees for the given block.
func ForCandidate[T any](candidateID string, blockIndex int, items []T) []T {
	return Shuffle(items, Seed(candidateID, blockIndex))
}
