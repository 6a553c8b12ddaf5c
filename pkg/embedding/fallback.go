package embedding

import (
	"crypto/md5"
	"encoding/binary"
	"math"
	"strings"
)

// DefaultScale spreads fallback positions over the same range the
// embedding service uses.
const DefaultScale = 8.0

// functionWords cluster away from content words in the fallback space.
var functionWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true,
}

// hashSeed maps a string to a stable value in [-1, 1).
func hashSeed(s string) float64 {
	sum := md5.Sum([]byte(s))
	v := binary.BigEndian.Uint32(sum[:4])
	return float64(v%10000)/5000.0 - 1.0
}

// FallbackPoint derives a deterministic position for a word without
// the embedding service. Positions are hash-seeded, nudged by rough
// part-of-speech cues, damped for short words, then scaled and rounded
// to two decimals like service responses.
func FallbackPoint(word string, scale float64) Point {
	if scale <= 0 {
		scale = DefaultScale
	}

	x := hashSeed(word)
	y := hashSeed(word + "_x")
	z := hashSeed(word + "_y")

	lower := strings.ToLower(word)
	switch {
	case strings.HasSuffix(lower, "ing"):
		x += 0.3
	case strings.HasSuffix(lower, "ed"):
		x += 0.2
	case strings.HasSuffix(lower, "ly"):
		y += 0.3
	case strings.HasSuffix(lower, "tion"), strings.HasSuffix(lower, "sion"):
		z += 0.3
	case functionWords[lower]:
		x -= 0.4
		y -= 0.4
	}

	length := len(word)
	if length > 10 {
		length = 10
	}
	factor := 0.5 + float64(length)/10.0*0.5
	x *= factor
	y *= factor
	z *= factor

	return Point{
		Label: word,
		X:     round2(x * scale),
		Y:     round2(y * scale),
		Z:     round2(z * scale),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
