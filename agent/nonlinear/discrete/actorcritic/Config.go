package actorcritic

import (
	"fmt"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/agent"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/initwfn"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/network"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/solver"
)

// Config implements a configuration for an ActorCritic agent
type Config struct {
	// Actor network architecture. For index i, ActorLayers[i]
	// determines the number of hidden units in layer i, ActorBiases[i]
	// determines whether layer i has a bias unit, and
	// ActorActivations[i] is the activation of layer i. A final linear
	// layer mapping to one logit per action is always added.
	ActorLayers      []int
	ActorBiases      []bool
	ActorActivations []*network.Activation

	// Critic network architecture, laid out in the same way as the
	// actor's. The final linear layer maps to one action value per
	// action.
	CriticLayers      []int
	CriticBiases      []bool
	CriticActivations []*network.Activation

	// Weight initialization scheme shared by both networks
	InitWFn *initwfn.InitWFn

	ActorSolver  *solver.Solver
	CriticSolver *solver.Solver

	// Per-episode multiplicative decay rates for the solver step
	// sizes, applied by the training loop
	ActorLearningRateDecay  float64
	CriticLearningRateDecay float64

	// Initial probability of taking a random action. The training
	// loop anneals this towards its floor.
	Epsilon float64

	Discount  float64
	BatchSize int

	// Maximum number of transitions held in the replay buffer. A
	// value <= 0 means the buffer is unbounded.
	ReplayCapacity int
}

// DefaultConfig returns a Config with the default ActorCritic
// hyperparameters
func DefaultConfig() Config {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("defaultconfig: %v", err))
	}
	actorSolver, err := solver.NewDefaultAdam(0.01)
	if err != nil {
		panic(fmt.Sprintf("defaultconfig: %v", err))
	}
	criticSolver, err := solver.NewDefaultAdam(0.001)
	if err != nil {
		panic(fmt.Sprintf("defaultconfig: %v", err))
	}

	return Config{
		ActorLayers:      []int{64},
		ActorBiases:      []bool{true},
		ActorActivations: []*network.Activation{network.ReLU()},

		CriticLayers:      []int{64},
		CriticBiases:      []bool{true},
		CriticActivations: []*network.Activation{network.ReLU()},

		InitWFn: init,

		ActorSolver:             actorSolver,
		CriticSolver:            criticSolver,
		ActorLearningRateDecay:  0.999,
		CriticLearningRateDecay: 0.999,

		Epsilon:   0.5,
		Discount:  0.9,
		BatchSize: 32,
	}
}

// Validate returns an error describing why the Config is invalid, or
// nil if it is valid
func (c Config) Validate() error {
	if len(c.ActorLayers) != len(c.ActorBiases) {
		return fmt.Errorf("invalid number of actor biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.ActorLayers), len(c.ActorBiases))
	}
	if len(c.ActorLayers) != len(c.ActorActivations) {
		return fmt.Errorf("invalid number of actor activations\n\twant(%v)"+
			"\n\thave(%v)", len(c.ActorLayers), len(c.ActorActivations))
	}
	if len(c.CriticLayers) != len(c.CriticBiases) {
		return fmt.Errorf("invalid number of critic biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.CriticLayers), len(c.CriticBiases))
	}
	if len(c.CriticLayers) != len(c.CriticActivations) {
		return fmt.Errorf("invalid number of critic activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.CriticLayers),
			len(c.CriticActivations))
	}

	if c.InitWFn == nil {
		return fmt.Errorf("no weight initialization scheme set")
	}
	if c.ActorSolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("both actor and critic solvers must be set")
	}

	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1], got %v", c.Epsilon)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1], got %v", c.Discount)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be >= 1, got %v", c.BatchSize)
	}

	return nil
}

// CreateAgent creates the ActorCritic agent that the Config describes
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	ac, err := New(env, c, seed)
	if err != nil {
		return nil, err
	}
	return ac, nil
}

// ValidAgent returns whether the argument agent can be constructed
// from the Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*ActorCritic)
	return ok
}
