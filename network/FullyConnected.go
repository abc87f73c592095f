package network

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/seetd/udacity-drlnd-collaboration-competition-project/initwfn"
)

// fcLayer implements a fully connected linear stage. Weights are
// stored (in x out) so that a (batch x in) input left-multiplies them,
// and the bias is a single (1 x out) row broadcast across the batch.
type fcLayer struct {
	weights *mat.Dense
	bias    *mat.Dense
}

// newFCLayer returns a fully connected layer with weights filled by
// init. Biases keep the fan-in uniform default of the linear stage
// regardless of the weight initializer; the narrow output-range rule
// applies to weights only.
func newFCLayer(in, out int, init *initwfn.InitWFn,
	src rand.Source) (*fcLayer, error) {
	weights := mat.NewDense(in, out, nil)
	bias := mat.NewDense(1, out, nil)

	init.Initialize(weights, src)

	biasInit, err := initwfn.NewUniform(initwfn.FanInBounds(in))
	if err != nil {
		return nil, err
	}
	biasInit.Initialize(bias, src)

	return &fcLayer{weights: weights, bias: bias}, nil
}

// inFeatures returns the declared input width of the layer.
func (f *fcLayer) inFeatures() int {
	r, _ := f.weights.Dims()
	return r
}

// outFeatures returns the output width of the layer.
func (f *fcLayer) outFeatures() int {
	_, c := f.weights.Dims()
	return c
}

// fwd computes the affine output of the fcLayer for a (batch x in)
// input.
func (f *fcLayer) fwd(x *mat.Dense) (*mat.Dense, error) {
	batch, features := x.Dims()
	if features != f.inFeatures() {
		return nil, &DimensionError{Op: "fwd", Want: f.inFeatures(),
			Have: features}
	}

	out := mat.NewDense(batch, f.outFeatures(), nil)
	out.Mul(x, f.weights)

	// Broadcast the bias weights to all samples along the batch
	// dimension
	for i := 0; i < batch; i++ {
		floats.Add(out.RawRowView(i), f.bias.RawRowView(0))
	}

	return out, nil
}
