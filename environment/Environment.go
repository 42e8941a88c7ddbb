// Package environment outlines the interfaces needed to implement concrete
// environments with discrete action spaces
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() mat.Vector
}

// Environment implements a simulated environment that an agent can
// interact with through discrete actions. Reset starts a new episode,
// returning its first timestep. Step takes a single action in the
// environment, returning the next timestep; episode termination is
// signalled through the returned timestep's StepType.
type Environment interface {
	Reset() timestep.TimeStep
	Step(action int) (timestep.TimeStep, error)
	ObservationSpec() Spec
	ActionSpec() Spec
}
