package initwfn

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// UniformConfig implements a configuration of a weight initializer
// that draws weights from a fixed uniform distribution
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	if low > high {
		return nil, fmt.Errorf("newuniform: lower bound exceeds upper "+
			"bound \n\tlow(%v) \n\thigh(%v)", low, high)
	}

	config := UniformConfig{
		Low:  low,
		High: high,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns the weight initialization algorithm as an Initializer
func (u UniformConfig) Create() Initializer {
	return func(weights *mat.Dense, src rand.Source) {
		fill(weights, distuv.Uniform{Min: u.Low, Max: u.High, Src: src})
	}
}
