package network

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// criticConfig returns the reference Critic configuration: 4 state
// features, 2 action dimensions, two hidden layers of 8 units.
func criticConfig(seed uint64) Config {
	return Config{
		StateSize:  4,
		ActionSize: 2,
		RandomSeed: &seed,
		Critic:     LayerConfig{FC: []int{8, 8}},
	}
}

func TestNewCriticSeedDeterminism(t *testing.T) {
	first, err := NewCritic(criticConfig(7))
	require.NoError(t, err)
	second, err := NewCritic(criticConfig(7))
	require.NoError(t, err)

	firstParams := first.Learnables()
	secondParams := second.Learnables()
	require.Equal(t, len(firstParams), len(secondParams))
	for i := range firstParams {
		assert.True(t, mat.Equal(firstParams[i], secondParams[i]),
			"parameter %v differs between equal seeds", i)
	}

	third, err := NewCritic(criticConfig(8))
	require.NoError(t, err)
	assert.False(t, mat.Equal(first.fcs1.weights, third.fcs1.weights),
		"distinct seeds produced identical first-layer weights")
}

func TestNewCriticInitializationRanges(t *testing.T) {
	critic, err := NewCritic(criticConfig(7))
	require.NoError(t, err)

	lim1 := 1.0 / math.Sqrt(4)
	assert.True(t, inRange(t, critic.fcs1.weights, -lim1, lim1))

	// The second stage's fan-in includes the injected action vector.
	lim2 := 1.0 / math.Sqrt(8+2)
	assert.Equal(t, 10, critic.fc2.inFeatures())
	assert.True(t, inRange(t, critic.fc2.weights, -lim2, lim2))

	assert.True(t, inRange(t, critic.fc3.weights, -3e-3, 3e-3))
}

func TestNewCriticInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"non-positive state size", Config{StateSize: -3, ActionSize: 2,
			Critic: LayerConfig{FC: []int{8, 8}}}},
		{"too few hidden widths", Config{StateSize: 4, ActionSize: 2,
			Critic: LayerConfig{FC: []int{8}}}},
		{"non-positive hidden width", Config{StateSize: 4, ActionSize: 2,
			Critic: LayerConfig{FC: []int{-8, 8}}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewCritic(test.config)
			require.Error(t, err)

			var configErr *ConfigError
			assert.True(t, errors.As(err, &configErr))
		})
	}
}

// TestCriticForwardShape runs the reference scenario: batch-5 state
// and action inputs produce a (5 x 1) value estimate.
func TestCriticForwardShape(t *testing.T) {
	critic, err := NewCritic(criticConfig(7))
	require.NoError(t, err)

	states := mat.NewDense(5, 4, []float64{
		0.1, 0.2, 0.3, 0.4,
		-0.1, -0.2, -0.3, -0.4,
		1.0, 2.0, 3.0, 4.0,
		-1.0, 0.5, -0.5, 1.0,
		0.0, 0.0, 0.0, 0.0,
	})
	actions := mat.NewDense(5, 2, []float64{
		0.5, -0.5,
		1.0, -1.0,
		0.0, 0.0,
		-0.3, 0.3,
		0.9, 0.9,
	})

	values, err := critic.Forward(states, actions)
	require.NoError(t, err)

	rows, cols := values.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 1, cols)
}

func TestCriticForwardBatchMismatch(t *testing.T) {
	critic, err := NewCritic(criticConfig(7))
	require.NoError(t, err)

	states := mat.NewDense(5, 4, nil)
	actions := mat.NewDense(4, 2, nil)

	_, err = critic.Forward(states, actions)
	require.Error(t, err)

	var dimErr *DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 5, dimErr.Want)
	assert.Equal(t, 4, dimErr.Have)
}

// TestCriticForwardActionWidthMismatch feeds a Critic declared for
// 3-dimensional actions the output of an Actor producing 2-dimensional
// actions.
func TestCriticForwardActionWidthMismatch(t *testing.T) {
	actor, err := NewActor(actorConfig(7))
	require.NoError(t, err)

	config := criticConfig(7)
	config.ActionSize = 3
	critic, err := NewCritic(config)
	require.NoError(t, err)

	states := mat.NewDense(3, 4, []float64{
		0.1, 0.2, 0.3, 0.4,
		-0.1, -0.2, -0.3, -0.4,
		1.0, -1.0, 0.5, -0.5,
	})
	actions, err := actor.Forward(states)
	require.NoError(t, err)

	_, err = critic.Forward(states, actions)
	require.Error(t, err)

	var dimErr *DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Want)
	assert.Equal(t, 2, dimErr.Have)
}

func TestCriticForwardWrongStateWidth(t *testing.T) {
	critic, err := NewCritic(criticConfig(7))
	require.NoError(t, err)

	_, err = critic.Forward(mat.NewDense(5, 6, nil), mat.NewDense(5, 2, nil))
	require.Error(t, err)

	var dimErr *DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Want)
	assert.Equal(t, 6, dimErr.Have)
}

func TestCriticTrainingModeRejectsSingleSample(t *testing.T) {
	critic, err := NewCritic(criticConfig(7))
	require.NoError(t, err)
	require.True(t, critic.Training())

	_, err = critic.Forward(mat.NewDense(1, 4, nil), mat.NewDense(1, 2, nil))
	assert.True(t, errors.Is(err, ErrSmallBatch))

	critic.Eval()
	values, err := critic.Forward(mat.NewDense(1, 4, nil),
		mat.NewDense(1, 2, nil))
	require.NoError(t, err)

	rows, cols := values.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, cols)
}

func TestCriticEvalIdempotence(t *testing.T) {
	critic, err := NewCritic(criticConfig(7))
	require.NoError(t, err)

	states := mat.NewDense(2, 4, []float64{
		0.1, -0.2, 0.3, -0.4,
		-0.5, 0.6, -0.7, 0.8,
	})
	actions := mat.NewDense(2, 2, []float64{
		0.5, -0.5,
		-0.5, 0.5,
	})
	_, err = critic.Forward(states, actions)
	require.NoError(t, err)

	critic.Eval()
	first, err := critic.Forward(states, actions)
	require.NoError(t, err)
	second, err := critic.Forward(states, actions)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first, second),
		"evaluation-mode forward passes drifted")
}

func TestCriticSetCopiesParametersAndStats(t *testing.T) {
	dest, err := NewCritic(criticConfig(7))
	require.NoError(t, err)
	source, err := NewCritic(criticConfig(99))
	require.NoError(t, err)

	_, err = source.Forward(
		mat.NewDense(2, 4, []float64{1, 2, 3, 4, 4, 3, 2, 1}),
		mat.NewDense(2, 2, []float64{0.5, -0.5, -0.5, 0.5}),
	)
	require.NoError(t, err)

	require.NoError(t, dest.Set(source))

	destParams := dest.Learnables()
	sourceParams := source.Learnables()
	for i := range destParams {
		assert.True(t, mat.Equal(destParams[i], sourceParams[i]))
	}
	assert.Equal(t, source.RunningStats(), dest.RunningStats())
}

func TestCriticGobRoundTrip(t *testing.T) {
	critic, err := NewCritic(criticConfig(7))
	require.NoError(t, err)

	states := mat.NewDense(2, 4, []float64{
		0.1, -0.2, 0.3, -0.4,
		-0.5, 0.6, -0.7, 0.8,
	})
	actions := mat.NewDense(2, 2, []float64{
		0.5, -0.5,
		-0.5, 0.5,
	})
	_, err = critic.Forward(states, actions)
	require.NoError(t, err)
	critic.Eval()

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(critic))

	var restored Critic
	require.NoError(t, gob.NewDecoder(&buf).Decode(&restored))

	assert.False(t, restored.Training())

	want, err := critic.Forward(states, actions)
	require.NoError(t, err)
	have, err := restored.Forward(states, actions)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, have),
		"restored checkpoint changed the value estimate")
}
