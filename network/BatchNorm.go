package network

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	batchNormMomentum = 0.1
	batchNormEpsilon  = 1e-5
)

// batchNorm implements batch normalization over the feature dimension
// of a (batch x features) matrix. Each feature is rescaled to zero
// mean and unit variance, then scaled by gamma and shifted by beta.
//
// Training-mode forward passes normalize by the current batch
// statistics and fold them into the running estimates; evaluation-mode
// passes use the running estimates unchanged. A training-mode pass
// mutates the running statistics, so concurrent training-mode passes
// on the same instance are a data race.
type batchNorm struct {
	gamma *mat.Dense // scale, (1 x features)
	beta  *mat.Dense // shift, (1 x features)

	runningMean []float64
	runningVar  []float64

	features int
}

// newBatchNorm returns a batchNorm over the given feature width, with
// unit scale, zero shift, zero running mean, and unit running
// variance.
func newBatchNorm(features int) *batchNorm {
	gamma := mat.NewDense(1, features, nil)
	beta := mat.NewDense(1, features, nil)
	runningMean := make([]float64, features)
	runningVar := make([]float64, features)

	for j := 0; j < features; j++ {
		gamma.Set(0, j, 1)
		runningVar[j] = 1
	}

	return &batchNorm{
		gamma:       gamma,
		beta:        beta,
		runningMean: runningMean,
		runningVar:  runningVar,
		features:    features,
	}
}

// fwd normalizes x feature-wise. The batch is normalized by the biased
// batch variance while the running estimate tracks the unbiased one,
// which requires at least two samples per training-mode batch.
func (b *batchNorm) fwd(x *mat.Dense, training bool) (*mat.Dense, error) {
	batch, features := x.Dims()
	if features != b.features {
		return nil, &DimensionError{Op: "batchnorm fwd", Want: b.features,
			Have: features}
	}
	if training && batch < 2 {
		return nil, ErrSmallBatch
	}

	out := mat.NewDense(batch, features, nil)
	col := make([]float64, batch)
	for j := 0; j < features; j++ {
		mat.Col(col, j, x)

		var mean, variance float64
		if training {
			var unbiased float64
			mean, unbiased = stat.MeanVariance(col, nil)

			n := float64(batch)
			variance = unbiased * (n - 1) / n

			b.runningMean[j] = (1-batchNormMomentum)*b.runningMean[j] +
				batchNormMomentum*mean
			b.runningVar[j] = (1-batchNormMomentum)*b.runningVar[j] +
				batchNormMomentum*unbiased
		} else {
			mean = b.runningMean[j]
			variance = b.runningVar[j]
		}

		scale := b.gamma.At(0, j) / math.Sqrt(variance+batchNormEpsilon)
		shift := b.beta.At(0, j)
		for i := 0; i < batch; i++ {
			out.Set(i, j, (col[i]-mean)*scale+shift)
		}
	}

	return out, nil
}
