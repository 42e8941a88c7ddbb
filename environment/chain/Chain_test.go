package chain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment/chain"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/utils/matutils"
)

func TestWalkRightToReward(t *testing.T) {
	env, first := chain.New(3, 10)
	require.True(t, first.First())
	require.Equal(t, []float64{1, 0, 0}, matutils.Flatten(first.Observation))

	// Two moves right reach the rightmost state with no reward
	step, err := env.Step(chain.Right)
	require.NoError(t, err)
	require.Equal(t, 0.0, step.Reward)
	require.Equal(t, []float64{0, 1, 0}, matutils.Flatten(step.Observation))

	step, err = env.Step(chain.Right)
	require.NoError(t, err)
	require.Equal(t, 0.0, step.Reward)
	require.Equal(t, []float64{0, 0, 1}, matutils.Flatten(step.Observation))

	// Moving right from the rightmost state rewards and wraps around
	step, err = env.Step(chain.Right)
	require.NoError(t, err)
	require.Equal(t, 1.0, step.Reward)
	require.Equal(t, []float64{1, 0, 0}, matutils.Flatten(step.Observation))
}

func TestLeftIsClampedAtLeftmostState(t *testing.T) {
	env, _ := chain.New(3, 10)

	step, err := env.Step(chain.Left)
	require.NoError(t, err)
	require.Equal(t, 0.0, step.Reward)
	require.Equal(t, []float64{1, 0, 0}, matutils.Flatten(step.Observation))
}

func TestEpisodeCutoff(t *testing.T) {
	env, _ := chain.New(2, 3)

	for i := 0; i < 2; i++ {
		step, err := env.Step(chain.Right)
		require.NoError(t, err)
		require.True(t, step.Mid())
	}

	step, err := env.Step(chain.Right)
	require.NoError(t, err)
	require.True(t, step.Last())
	require.Equal(t, 3, step.Number)

	// Reset starts a fresh episode at the leftmost state
	first := env.Reset()
	require.True(t, first.First())
	require.Equal(t, 0, first.Number)
}

func TestIllegalAction(t *testing.T) {
	env, _ := chain.New(2, 10)
	_, err := env.Step(2)
	require.Error(t, err)
}

func TestSpecs(t *testing.T) {
	env, _ := chain.New(4, 10)

	require.Equal(t, 2, env.ActionSpec().N())
	require.Equal(t, 4, env.ObservationSpec().Shape.Len())
}
