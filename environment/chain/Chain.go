// Package chain implements a small deterministic chain-walk
// environment, useful as a fast diagnostic for learning algorithms
package chain

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// Discrete actions
const (
	Left  int = 0
	Right int = 1
)

// Chain implements a deterministic walk along a chain of states. The
// agent starts at the leftmost state and observes its position as a
// one-hot vector. Moving right from the rightmost state yields a
// reward of +1 and wraps back to the leftmost state; every other step
// yields no reward. The optimal policy therefore always moves right.
//
// The environment is continuing. Episodes are cut off after maxSteps
// steps so that a training loop can measure per-episode return.
type Chain struct {
	states   int
	position int
	maxSteps int
	lastStep ts.TimeStep
}

// New constructs a new Chain with the argument number of states.
// Episodes are cut off after maxSteps steps.
func New(states, maxSteps int) (*Chain, ts.TimeStep) {
	if states < 2 {
		panic(fmt.Sprintf("chain needs at least 2 states, got %v", states))
	}
	if maxSteps < 1 {
		panic(fmt.Sprintf("maxSteps must be positive, got %v", maxSteps))
	}

	chain := &Chain{states: states, maxSteps: maxSteps}
	firstStep := chain.Reset()

	return chain, firstStep
}

// Reset resets the environment, placing the agent at the leftmost
// state
func (c *Chain) Reset() ts.TimeStep {
	c.position = 0
	startStep := ts.New(ts.First, 0, c.observation(), 0)
	c.lastStep = startStep

	return startStep
}

// Step takes one environmental step given the argument action and
// returns the next timestep
func (c *Chain) Step(action int) (ts.TimeStep, error) {
	if action != Left && action != Right {
		return ts.TimeStep{}, fmt.Errorf("step: illegal action %v ∉ "+
			"{%v, %v}", action, Left, Right)
	}

	reward := 0.0
	switch {
	case action == Right && c.position == c.states-1:
		reward = 1.0
		c.position = 0
	case action == Right:
		c.position++
	case c.position > 0:
		c.position--
	}

	stepType := ts.Mid
	if c.lastStep.Number+1 >= c.maxSteps {
		stepType = ts.Last
	}

	nextStep := ts.New(stepType, reward, c.observation(), c.lastStep.Number+1)
	c.lastStep = nextStep

	return nextStep, nil
}

// ActionSpec returns the action specification of the environment
func (c *Chain) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{float64(Left)})
	upperBound := mat.NewVecDense(1, []float64{float64(Right)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Chain) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(c.states, nil)
	lowerBound := mat.NewVecDense(c.states, nil)

	upper := make([]float64, c.states)
	for i := range upper {
		upper[i] = 1.0
	}
	upperBound := mat.NewVecDense(c.states, upper)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Discrete)
}

// observation returns the one-hot observation of the current position
func (c *Chain) observation() mat.Vector {
	obs := mat.NewVecDense(c.states, nil)
	obs.SetVec(c.position, 1.0)

	return obs
}
