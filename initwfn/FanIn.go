package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FanInConfig implements a configuration of a weight initializer that
// draws weights uniformly from (-1/√fan_in, +1/√fan_in), where fan_in
// is the input width of the layer being initialized. Scaling the range
// by the inverse square root of the fan-in keeps the initial
// pre-activation variance roughly constant across layers of differing
// width.
type FanInConfig struct{}

// NewFanIn returns a new fan-in scaled uniform weight initializer
func NewFanIn() (*InitWFn, error) {
	return newInitWFn(FanInConfig{})
}

// FanInBounds returns the symmetric uniform range
// (lo, hi) = (-1/√fanIn, +1/√fanIn) for a linear layer with declared
// input width fanIn.
func FanInBounds(fanIn int) (lo, hi float64) {
	lim := 1.0 / math.Sqrt(float64(fanIn))
	return -lim, lim
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (f FanInConfig) Type() Type {
	return FanIn
}

// Create returns the weight initialization algorithm as an Initializer.
// The fan-in is taken from the row dimension of the weight matrix,
// which holds one row per input feature.
func (f FanInConfig) Create() Initializer {
	return func(weights *mat.Dense, src rand.Source) {
		fanIn, _ := weights.Dims()
		lo, hi := FanInBounds(fanIn)
		fill(weights, distuv.Uniform{Min: lo, Max: hi, Src: src})
	}
}
