package embedding

import (
	"math"
	"testing"
)

func TestFallbackPointDeterministic(t *testing.T) {
	a := FallbackPoint("ocean", DefaultScale)
	b := FallbackPoint("ocean", DefaultScale)
	if a != b {
		t.Fatalf("fallback not deterministic: %+v vs %+v", a, b)
	}
	if a.Label != "ocean" {
		t.Fatalf("label = %q", a.Label)
	}
}

func TestFallbackPointSpreadsWords(t *testing.T) {
	a := FallbackPoint("ocean", DefaultScale)
	b := FallbackPoint("mountain", DefaultScale)
	if a.X == b.X && a.Y == b.Y && a.Z == b.Z {
		t.Fatalf("distinct words collided: %+v", a)
	}
}

func TestFallbackPointRoundedToTwoDecimals(t *testing.T) {
	for _, word := range []string{"a", "running", "communication", "xylophone"} {
		p := FallbackPoint(word, DefaultScale)
		for _, v := range []float64{p.X, p.Y, p.Z} {
			if math.Abs(v*100-math.Round(v*100)) > 1e-9 {
				t.Errorf("FallbackPoint(%q) coordinate %v not rounded", word, v)
			}
		}
	}
}

func TestFallbackPointBounded(t *testing.T) {
	// Hash seeds are in [-1,1), suffix nudges add at most 0.4, and the
	// length factor tops out at 1, so scaled coordinates stay inside
	// 1.4 * scale.
	limit := 1.4 * DefaultScale
	for _, word := range []string{"the", "running", "communication", "quickly", "tension"} {
		p := FallbackPoint(word, DefaultScale)
		for _, v := range []float64{p.X, p.Y, p.Z} {
			if math.Abs(v) > limit {
				t.Errorf("FallbackPoint(%q) coordinate %v out of range", word, v)
			}
		}
	}
}

func TestFallbackPointDefaultScale(t *testing.T) {
	if FallbackPoint("ocean", 0) != FallbackPoint("ocean", DefaultScale) {
		t.Fatalf("zero scale did not default")
	}
}
