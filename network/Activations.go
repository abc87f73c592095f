package network

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// rectify applies max(0, x) elementwise in place.
func rectify(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 {
		return math.Max(0, v)
	}, x)
}

// saturate applies tanh elementwise in place, bounding every element
// of x to [-1, 1].
func saturate(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 {
		return math.Tanh(v)
	}, x)
}
