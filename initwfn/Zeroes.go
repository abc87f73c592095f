package initwfn

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// ZeroesConfig implements a configuration of a weight initializer that
// fills weights with zeroes
type ZeroesConfig struct{}

// NewZeroes returns a new zero weight initializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (z ZeroesConfig) Type() Type {
	return Zeroes
}

// Create returns the weight initialization algorithm as an Initializer
func (z ZeroesConfig) Create() Initializer {
	return func(weights *mat.Dense, _ rand.Source) {
		weights.Zero()
	}
}
