package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/seetd/udacity-drlnd-collaboration-competition-project/initwfn"
)

// Critic implements the action-value network of a DDPG agent, mapping
// a batch of (state, action) pairs to a batch of scalar Q-estimates.
//
// The state batch passes through the first hidden stage alone; the
// raw action batch is injected by concatenation along the feature
// axis before the second hidden stage:
//
//	linear(state) -> batchnorm -> relu -> concat(action) -> linear ->
//	batchnorm -> relu -> linear
//
// There is no final nonlinearity: the Q-estimate is unbounded.
type Critic struct {
	fcs1 *fcLayer
	bn1  *batchNorm
	fc2  *fcLayer
	bn2  *batchNorm
	fc3  *fcLayer

	stateSize  int
	actionSize int
	training   bool
}

var _ NeuralNet = (*Critic)(nil)

// NewCritic constructs the action-value network described by config.
// The first two widths of config.Critic.FC size the hidden stages; the
// second hidden stage takes the first stage's output concatenated with
// the action vector. Initialization follows the same two-tier rule as
// the Actor. A new Critic starts in training mode.
func NewCritic(config Config) (*Critic, error) {
	if err := config.validateCommon(); err != nil {
		return nil, err
	}
	if err := config.Critic.validate("critic"); err != nil {
		return nil, err
	}

	fcs1Units := config.Critic.FC[0]
	fc2Units := config.Critic.FC[1]
	src := config.source()

	fanIn, err := initwfn.NewFanIn()
	if err != nil {
		return nil, fmt.Errorf("newcritic: %w", err)
	}
	narrow, err := initwfn.NewUniform(-outputLayerBound, outputLayerBound)
	if err != nil {
		return nil, fmt.Errorf("newcritic: %w", err)
	}

	fcs1, err := newFCLayer(config.StateSize, fcs1Units, fanIn, src)
	if err != nil {
		return nil, fmt.Errorf("newcritic: %w", err)
	}
	fc2, err := newFCLayer(fcs1Units+config.ActionSize, fc2Units, fanIn, src)
	if err != nil {
		return nil, fmt.Errorf("newcritic: %w", err)
	}
	fc3, err := newFCLayer(fc2Units, 1, narrow, src)
	if err != nil {
		return nil, fmt.Errorf("newcritic: %w", err)
	}

	return &Critic{
		fcs1:       fcs1,
		bn1:        newBatchNorm(fcs1Units),
		fc2:        fc2,
		bn2:        newBatchNorm(fc2Units),
		fc3:        fc3,
		stateSize:  config.StateSize,
		actionSize: config.ActionSize,
		training:   true,
	}, nil
}

// Forward estimates the action value of each (state, action) row pair,
// returning a (batch x 1) matrix of unbounded Q-estimates. The state
// and action batches must agree on batch size; mismatches fail rather
// than broadcast or truncate. Training mode carries the same
// minimum-batch requirement as the Actor.
func (c *Critic) Forward(states, actions *mat.Dense) (*mat.Dense, error) {
	stateBatch, stateFeatures := states.Dims()
	actionBatch, actionFeatures := actions.Dims()

	if stateFeatures != c.stateSize {
		return nil, &DimensionError{Op: "critic forward: state",
			Want: c.stateSize, Have: stateFeatures}
	}
	if actionFeatures != c.actionSize {
		return nil, &DimensionError{Op: "critic forward: action",
			Want: c.actionSize, Have: actionFeatures}
	}
	if stateBatch != actionBatch {
		return nil, &DimensionError{Op: "critic forward: batch",
			Want: stateBatch, Have: actionBatch}
	}

	xs, err := c.fcs1.fwd(states)
	if err != nil {
		return nil, fmt.Errorf("critic forward: %w", err)
	}
	if xs, err = c.bn1.fwd(xs, c.training); err != nil {
		return nil, fmt.Errorf("critic forward: %w", err)
	}
	rectify(xs)

	// Inject the raw action batch after the state branch
	var joined mat.Dense
	joined.Augment(xs, actions)

	x, err := c.fc2.fwd(&joined)
	if err != nil {
		return nil, fmt.Errorf("critic forward: %w", err)
	}
	if x, err = c.bn2.fwd(x, c.training); err != nil {
		return nil, fmt.Errorf("critic forward: %w", err)
	}
	rectify(x)

	if x, err = c.fc3.fwd(x); err != nil {
		return nil, fmt.Errorf("critic forward: %w", err)
	}

	return x, nil
}

// Train puts the Critic in training mode: forward passes update the
// normalization running statistics.
func (c *Critic) Train() { c.training = true }

// Eval puts the Critic in evaluation mode: the normalization running
// statistics are frozen.
func (c *Critic) Eval() { c.training = false }

// Training returns whether the Critic is in training mode.
func (c *Critic) Training() bool { return c.training }

// StateSize returns the number of features in a single state
// observation.
func (c *Critic) StateSize() int { return c.stateSize }

// ActionSize returns the number of dimensions of a single action.
func (c *Critic) ActionSize() int { return c.actionSize }

// Learnables returns the parameters of the Critic in a fixed order for
// optimizer registration. The returned matrices are the live
// parameters, not copies.
func (c *Critic) Learnables() []*mat.Dense {
	return []*mat.Dense{
		c.fcs1.weights, c.fcs1.bias, c.bn1.gamma, c.bn1.beta,
		c.fc2.weights, c.fc2.bias, c.bn2.gamma, c.bn2.beta,
		c.fc3.weights, c.fc3.bias,
	}
}

// RunningStats returns the normalization running statistics of the
// Critic as live slices, in the order (mean, variance) per stage.
func (c *Critic) RunningStats() [][]float64 {
	return [][]float64{
		c.bn1.runningMean, c.bn1.runningVar,
		c.bn2.runningMean, c.bn2.runningVar,
	}
}

// Set copies the parameters and normalization running statistics of
// source into the Critic. Both must share an architecture.
func (c *Critic) Set(source *Critic) error {
	if err := setLearnables(c.Learnables(), source.Learnables()); err != nil {
		return fmt.Errorf("critic set: %w", err)
	}
	copyStats(c.RunningStats(), source.RunningStats())
	return nil
}

// Polyak moves the parameters of the Critic towards those of source by
// the averaging constant tau. Running statistics are left untouched;
// use Set for a hard sync.
func (c *Critic) Polyak(source *Critic, tau float64) error {
	err := polyakLearnables(c.Learnables(), source.Learnables(), tau)
	if err != nil {
		return fmt.Errorf("critic polyak: %w", err)
	}
	return nil
}

// GobEncode implements the gob.GobEncoder interface, checkpointing the
// architecture, parameters, normalization statistics, and mode of the
// Critic.
func (c *Critic) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(c.stateSize); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode state size: %w",
			err)
	}
	if err := enc.Encode(c.actionSize); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode action size: %w",
			err)
	}

	hidden := []int{c.fcs1.outFeatures(), c.fc2.outFeatures()}
	if err := enc.Encode(hidden); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden sizes: %w",
			err)
	}
	if err := enc.Encode(c.training); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode mode: %w", err)
	}

	if err := encodeLearnables(enc, c.Learnables()); err != nil {
		return nil, fmt.Errorf("gobencode: %w", err)
	}
	if err := enc.Encode(c.RunningStats()); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode running "+
			"statistics: %w", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface, rebuilding the
// Critic from a checkpoint produced by GobEncode.
func (c *Critic) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var stateSize, actionSize int
	if err := dec.Decode(&stateSize); err != nil {
		return fmt.Errorf("gobdecode: could not decode state size: %w", err)
	}
	if err := dec.Decode(&actionSize); err != nil {
		return fmt.Errorf("gobdecode: could not decode action size: %w", err)
	}

	var hidden []int
	if err := dec.Decode(&hidden); err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden sizes: %w", err)
	}
	var training bool
	if err := dec.Decode(&training); err != nil {
		return fmt.Errorf("gobdecode: could not decode mode: %w", err)
	}

	seed := uint64(0)
	restored, err := NewCritic(Config{
		StateSize:  stateSize,
		ActionSize: actionSize,
		RandomSeed: &seed,
		Critic:     LayerConfig{FC: hidden},
	})
	if err != nil {
		return fmt.Errorf("gobdecode: could not rebuild critic: %w", err)
	}

	if err := decodeLearnables(dec, restored.Learnables()); err != nil {
		return fmt.Errorf("gobdecode: %w", err)
	}

	var stats [][]float64
	if err := dec.Decode(&stats); err != nil {
		return fmt.Errorf("gobdecode: could not decode running "+
			"statistics: %w", err)
	}
	if len(stats) != len(restored.RunningStats()) {
		return &DimensionError{Op: "gobdecode: running statistics",
			Want: len(restored.RunningStats()), Have: len(stats)}
	}
	copyStats(restored.RunningStats(), stats)
	restored.training = training

	*c = *restored
	return nil
}
