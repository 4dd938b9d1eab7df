package builtins

import (
	"math"

	"github.com/aristath/arduino-trader/internal/rulesengine/node"
)

// Bound is the declared finite bound B_e an encoder guarantees (spec.md
// P7): |encoder(x)| <= Bound for every defined input.
const Bound = 1.0

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// identityEncoder clamps a numeric field into [-Bound, Bound] around a
// reference scale; absent/non-numeric fields yield neutral.
func identityEncoder(scale float64, neutral float64) node.Encoder {
	return func(raw any, present bool) float64 {
		if !present {
			return neutral
		}
		f, ok := asFloat(raw)
		if !ok {
			return neutral
		}
		if scale == 0 {
			scale = 1
		}
		return clamp(f/scale, -Bound, Bound)
	}
}

// categoryMapEncoder maps a finite set of string categories to a
// deterministic numeric value declared at registration; anything else
// (including absence) yields neutral.
func categoryMapEncoder(mapping map[string]float64, neutral float64) node.Encoder {
	return func(raw any, present bool) float64 {
		if !present {
			return neutral
		}
		s, ok := raw.(string)
		if !ok {
			return neutral
		}
		if v, ok := mapping[s]; ok {
			return clamp(v, -Bound, Bound)
		}
		return neutral
	}
}

// bucketizedEncoder maps a numeric field into evenly spaced buckets over
// [-Bound, Bound] given ordered thresholds.
func bucketizedEncoder(thresholds []float64, neutral float64) node.Encoder {
	return func(raw any, present bool) float64 {
		if !present {
			return neutral
		}
		f, ok := asFloat(raw)
		if !ok {
			return neutral
		}
		n := len(thresholds)
		if n == 0 {
			return neutral
		}
		bucket := 0
		for bucket < n && f >= thresholds[bucket] {
			bucket++
		}
		if n == 1 {
			return clamp(float64(bucket)*2-1, -Bound, Bound)
		}
		frac := float64(bucket) / float64(n)
		return clamp(frac*2-1, -Bound, Bound)
	}
}

// signEncoder reports the sign of a numeric field as -1.0/+1.0/0.0.
func signEncoder(neutral float64) node.Encoder {
	return func(raw any, present bool) float64 {
		if !present {
			return neutral
		}
		f, ok := asFloat(raw)
		if !ok {
			return neutral
		}
		switch {
		case f > 0:
			return 1.0
		case f < 0:
			return -1.0
		default:
			return 0.0
		}
	}
}

// signedLogEncoder applies sign(x)*log1p(|x|), then clamps into bound; a
// bounded, monotone compression for heavy-tailed fields (volume, etc.).
func signedLogEncoder(scale float64, neutral float64) node.Encoder {
	return func(raw any, present bool) float64 {
		if !present {
			return neutral
		}
		f, ok := asFloat(raw)
		if !ok {
			return neutral
		}
		if scale == 0 {
			scale = 1
		}
		s := 1.0
		if f < 0 {
			s = -1.0
		}
		out := s * math.Log1p(math.Abs(f)) / scale
		return clamp(out, -Bound, Bound)
	}
}

// booleanEncoder maps a bool field to +1.0/-1.0 per Q2: BOOLEAN is fixed
// to the {-1,+1} encoding internally.
func booleanEncoder(neutral float64) node.Encoder {
	return func(raw any, present bool) float64 {
		if !present {
			return neutral
		}
		b, ok := raw.(bool)
		if !ok {
			return neutral
		}
		if b {
			return 1.0
		}
		return -1.0
	}
}
