// Package agent defines an agent interface
package agent

import (
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a
// Policy which chooses actions in each state. The Policy chooses which
// actions are taken, and the Learner uses these actions to update the
// Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep)

	// Observe records that an action lead to some timestep
	Observe(action int, nextStep timestep.TimeStep)

	// Step performs updates to the learner's weights using the
	// experience observed so far. A single call may perform zero or
	// more batch updates depending on how much unconsumed experience
	// is available.
	Step() error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// TdErrorer is a Learner that can return the TD error of some
// transition
type TdErrorer interface {
	Learner

	// TdError returns the TD error on a transition
	TdError(t timestep.Transition) float64
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. For a given agent, the
// Policy and Learner should have pointers to the same weights so that
// any changes the Learner makes to the weights are reflected in the
// actions the Policy chooses.
type Policy interface {
	SelectAction(t timestep.TimeStep) int
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Scheduled is an Agent whose exploration rate and optimizer step
// sizes are owned and adjusted externally by a training loop. The
// agent reads these values but never changes them on its own.
type Scheduled interface {
	Agent

	SetEpsilon(float64)
	Epsilon() float64

	// SetStepSizes changes the step sizes of the agent's optimizers
	// without resetting their accumulator state
	SetStepSizes(actor, critic float64)
	StepSizes() (actor, critic float64)

	// StepSizeDecays returns the per-episode multiplicative decay
	// rates that the training loop should apply to the step sizes
	StepSizeDecays() (actor, critic float64)
}

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the Config describes
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// ValidAgent returns whether the argument agent can be
	// constructed from the Config
	ValidAgent(Agent) bool

	// Validate returns an error describing why the Config is invalid,
	// or nil if it is valid
	Validate() error
}
