// Package network implements the function approximators of a DDPG
// agent: an Actor mapping state observations to bounded continuous
// actions, and a Critic mapping (state, action) pairs to scalar
// action-value estimates.
//
// Both networks are synchronous feed-forward pipelines with no
// internal concurrency. Training-mode forward passes mutate the
// normalization running statistics, so concurrent training-mode
// forward passes on the same instance are a data race; the networks
// assume a single writer during a training step.
package network

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// outputLayerBound bounds the uniform initialization of each network's
// final linear stage. The hidden stages use fan-in scaled bounds
// instead; a narrow fixed range on the output stage keeps the initial
// policy and value estimates near zero.
const outputLayerBound = 3e-3

// NeuralNet is the surface shared by the Actor and Critic: mode
// control, parameter enumeration for optimizer registration, and
// checkpointing.
type NeuralNet interface {
	Train()
	Eval()
	Training() bool
	Learnables() []*mat.Dense
	RunningStats() [][]float64
	gob.GobEncoder
	gob.GobDecoder
}

// setLearnables copies the values of src into dst, failing if any
// pair of parameters disagrees in shape.
func setLearnables(dst, src []*mat.Dense) error {
	if len(dst) != len(src) {
		return &DimensionError{Op: "set", Want: len(dst), Have: len(src)}
	}

	for i := range dst {
		dr, dc := dst[i].Dims()
		sr, sc := src[i].Dims()
		if dr != sr || dc != sc {
			return &DimensionError{Op: fmt.Sprintf("set: parameter %v", i),
				Want: dr * dc, Have: sr * sc}
		}
		dst[i].Copy(src[i])
	}
	return nil
}

// polyakLearnables moves dst towards src by the averaging constant
// tau: dst <- (1-tau)*dst + tau*src, elementwise.
func polyakLearnables(dst, src []*mat.Dense, tau float64) error {
	if len(dst) != len(src) {
		return &DimensionError{Op: "polyak", Want: len(dst), Have: len(src)}
	}

	for i := range dst {
		dr, dc := dst[i].Dims()
		sr, sc := src[i].Dims()
		if dr != sr || dc != sc {
			return &DimensionError{Op: fmt.Sprintf("polyak: parameter %v", i),
				Want: dr * dc, Have: sr * sc}
		}

		weights := dst[i].RawMatrix().Data
		sourceWeights := src[i].RawMatrix().Data
		for j := range weights {
			weights[j] = (1-tau)*weights[j] + tau*sourceWeights[j]
		}
	}
	return nil
}

// copyStats copies normalization running statistics from src into dst.
func copyStats(dst, src [][]float64) {
	for i := range dst {
		copy(dst[i], src[i])
	}
}

// encodeLearnables gob-encodes each parameter matrix in order.
func encodeLearnables(enc *gob.Encoder, learnables []*mat.Dense) error {
	for i, l := range learnables {
		raw, err := l.MarshalBinary()
		if err != nil {
			return fmt.Errorf("could not marshal parameter %v: %w", i, err)
		}
		if err := enc.Encode(raw); err != nil {
			return fmt.Errorf("could not encode parameter %v: %w", i, err)
		}
	}
	return nil
}

// decodeLearnables decodes gob-encoded parameters into the matrices of
// learnables, which must already have the architecture's shapes.
func decodeLearnables(dec *gob.Decoder, learnables []*mat.Dense) error {
	for i, l := range learnables {
		var raw []byte
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("could not decode parameter %v: %w", i, err)
		}

		var decoded mat.Dense
		if err := decoded.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("could not unmarshal parameter %v: %w", i, err)
		}

		lr, lc := l.Dims()
		dr, dc := decoded.Dims()
		if lr != dr || lc != dc {
			return &DimensionError{Op: fmt.Sprintf("decode: parameter %v", i),
				Want: lr * lc, Have: dr * dc}
		}
		l.Copy(&decoded)
	}
	return nil
}
