package utils

import (
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// Clamp limits v to the closed range [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given rand.Rand.
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	if max < min {
		min, max = max, min
	}
	return r.Intn(max-min+1) + min
}
