package utils

import (
	"strconv"
	"strings"
)

const (
	fnvOffset32 uint32 = 0x811c9dc5
	fnvPrime32  uint32 = 0x01000193
	goldenGamma uint32 = 0x9e3779b1
)

// Hash returns the 32-bit FNV-1a hash of input, folding one Unicode code
// point per step. The result is identical across runs and platforms.
func Hash(input string) uint32 {
	h := fnvOffset32
	for _, r := range input {
		h ^= uint32(r)
		h *= fnvPrime32
	}
	return h
}

// SeedToUnit maps (seed, salt) to a float in [0, 1) with an xorshift mix.
// Used for stable pseudo-random ordering, never for anything secret.
func SeedToUnit(seed, salt uint32) float64 {
	x := seed ^ (salt * goldenGamma)
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return float64(x) / (1 << 32)
}

// StableKey builds "<prefix>-<base36 hash>" for labels that cannot be slugged.
// The prefix keeps only [A-Za-z0-9], lower-cased; an empty result becomes "key".
func StableKey(input, prefix string) string {
	return sanitizePrefix(prefix) + "-" + strconv.FormatUint(uint64(Hash(input)), 36)
}

func sanitizePrefix(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix))
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + 32)
		}
	}
	if b.Len() == 0 {
		return "key"
	}
	return b.String()
}
