package cartpole_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment/classiccontrol/cartpole"
)

// fixedStarter always starts episodes from the same state
type fixedStarter struct {
	state []float64
}

func (f fixedStarter) Start() mat.Vector {
	return mat.NewVecDense(len(f.state), f.state)
}

func TestResetDrawsBoundedStartingStates(t *testing.T) {
	env, first := cartpole.NewDefault(42)
	require.True(t, first.First())

	for i := 0; i < 10; i++ {
		step := env.Reset()
		require.True(t, step.First())
		for j := 0; j < 4; j++ {
			require.LessOrEqual(t, math.Abs(step.Observation.AtVec(j)),
				cartpole.StartBounds)
		}
	}
}

func TestStepRewardsUntilPoleFalls(t *testing.T) {
	env, _ := cartpole.New(fixedStarter{state: []float64{0, 0, 0.01, 0}}, 0)

	// Pushing the cart in one direction topples the pole eventually
	steps := 0
	for {
		step, err := env.Step(1)
		require.NoError(t, err)
		require.Equal(t, 1.0, step.Reward)
		steps++

		if step.Last() {
			require.True(t,
				math.Abs(step.Observation.AtVec(0)) >
					cartpole.PositionThreshold ||
					math.Abs(step.Observation.AtVec(2)) >
						cartpole.AngleThreshold)
			break
		}
		require.Less(t, steps, 10_000, "episode should have terminated")
	}
}

func TestOppositeActionsMoveCartInOppositeDirections(t *testing.T) {
	left, _ := cartpole.New(fixedStarter{state: []float64{0, 0, 0, 0}}, 0)
	right, _ := cartpole.New(fixedStarter{state: []float64{0, 0, 0, 0}}, 0)

	l, err := left.Step(0)
	require.NoError(t, err)
	r, err := right.Step(1)
	require.NoError(t, err)

	require.Less(t, l.Observation.AtVec(1), 0.0)
	require.Greater(t, r.Observation.AtVec(1), 0.0)
	require.Equal(t, l.Observation.AtVec(1), -r.Observation.AtVec(1))
}

func TestEpisodeCutoffAtMaxSteps(t *testing.T) {
	env, _ := cartpole.New(fixedStarter{state: []float64{0, 0, 0, 0}}, 7)

	var last bool
	for i := 0; i < 7; i++ {
		step, err := env.Step(i % 2)
		require.NoError(t, err)
		last = step.Last()
	}
	require.True(t, last)
}

func TestIllegalAction(t *testing.T) {
	env, _ := cartpole.NewDefault(42)
	_, err := env.Step(2)
	require.Error(t, err)
}

func TestSpecs(t *testing.T) {
	env, _ := cartpole.NewDefault(42)

	require.Equal(t, 2, env.ActionSpec().N())
	require.Equal(t, 4, env.ObservationSpec().Shape.Len())
}
