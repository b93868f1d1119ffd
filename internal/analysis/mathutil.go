package analysis

import (
	"math"
	"strconv"
	"strings"
)

const (
	expTerms = 40
	expClamp = 60.0
	// arguments are scaled by 2^-expHalvings before the series and squared back
	expHalvings = 7
)

// ParseNumber interprets a trimmed token as a finite float64.
// The second return is false for empty, malformed or non-finite tokens.
func ParseNumber(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ApproxExp approximates e^x with a 40-term Taylor series.
// x is clamped to [-60, 60]. The series is evaluated on x/2^7 and the result
// squared seven times, which keeps every term small and the sum monotonic.
func ApproxExp(x float64) float64 {
	x = clip(x, -expClamp, expClamp)
	r := math.Ldexp(x, -expHalvings)

	sum, term := 1.0, 1.0
	for k := 1; k <= expTerms; k++ {
		term *= r / float64(k)
		sum += term
	}

	for i := 0; i < expHalvings; i++ {
		sum *= sum
	}
	return sum
}

// Sigmoid returns 1/(1+e^-z), kept inside the open interval (0, 1).
func Sigmoid(z float64) float64 {
	s := 1 / (1 + ApproxExp(-z))
	return clip(s, math.SmallestNonzeroFloat64, math.Nextafter(1, 0))
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
