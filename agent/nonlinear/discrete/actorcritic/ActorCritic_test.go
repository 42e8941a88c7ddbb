package actorcritic_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/agent/nonlinear/discrete/actorcritic"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment/chain"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/initwfn"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/network"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/solver"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// linearConfig returns a Config describing linear actor and critic
// networks with all weights initialized to 1, which makes action
// values hand-computable: every action value is sum(state) + 1.
func linearConfig(t *testing.T, batchSize int) actorcritic.Config {
	t.Helper()

	init, err := initwfn.NewOnes()
	require.NoError(t, err)

	config := actorcritic.DefaultConfig()
	config.ActorLayers = []int{}
	config.ActorBiases = []bool{}
	config.ActorActivations = []*network.Activation{}
	config.CriticLayers = []int{}
	config.CriticBiases = []bool{}
	config.CriticActivations = []*network.Activation{}
	config.InitWFn = init
	config.BatchSize = batchSize

	return config
}

func newAgent(t *testing.T, config actorcritic.Config) (*actorcritic.ActorCritic,
	*chain.Chain) {
	t.Helper()

	env, _ := chain.New(2, 100)
	agent, err := actorcritic.New(env, config, 42)
	require.NoError(t, err)

	return agent, env
}

func TestTdErrorBootstrapsFromExpectedActionValue(t *testing.T) {
	agent, _ := newAgent(t, linearConfig(t, 4))

	// With all weights 1, Q(s, a) = sum(s) + 1 = 2 for every one-hot
	// state and action, so the expected next-state value is 2 and
	// td_error = r + 0.9*2 - 2 = r - 0.2
	transition := timestep.Transition{
		State:     mat.NewVecDense(2, []float64{1, 0}),
		Action:    1,
		Reward:    1.0,
		NextState: mat.NewVecDense(2, []float64{0, 1}),
	}
	require.InDelta(t, 0.8, agent.TdError(transition), 1e-12)

	transition.Reward = 0
	require.InDelta(t, -0.2, agent.TdError(transition), 1e-12)
}

// interact runs steps environment steps, always taking the argument
// action, observing each transition with the agent
func interact(t *testing.T, agent *actorcritic.ActorCritic, env *chain.Chain,
	action, steps int) {
	t.Helper()

	step := env.Reset()
	agent.ObserveFirst(step)
	for i := 0; i < steps; i++ {
		next, err := env.Step(action)
		require.NoError(t, err)
		agent.Observe(action, next)
		step = next
		if step.Last() {
			step = env.Reset()
			agent.ObserveFirst(step)
		}
	}
}

func TestStepConsumesWholeBatches(t *testing.T) {
	agent, env := newAgent(t, linearConfig(t, 4))

	interact(t, agent, env, chain.Right, 9)
	require.Equal(t, 9, agent.BufferSize())

	// 9 transitions hold two whole batches of 4; the remainder stays
	require.NoError(t, agent.Step())
	require.Equal(t, 1, agent.BufferSize())

	// No full batch available, so nothing is consumed
	require.NoError(t, agent.Step())
	require.Equal(t, 1, agent.BufferSize())
}

// The critic's gradient depends on the selected action values recorded
// during its forward pass, so the critic moving at all on the very
// first batch shows those values were read out of the training graph.
func TestFirstBatchReadsSelectedActionValues(t *testing.T) {
	agent, env := newAgent(t, linearConfig(t, 3))

	transition := timestep.Transition{
		State:     mat.NewVecDense(2, []float64{1, 0}),
		Action:    chain.Right,
		Reward:    0,
		NextState: mat.NewVecDense(2, []float64{0, 1}),
	}
	before := agent.TdError(transition)
	require.InDelta(t, -0.2, before, 1e-12)

	interact(t, agent, env, chain.Right, 7)
	require.NoError(t, agent.Step())
	require.Equal(t, 1, agent.BufferSize())

	require.NotEqual(t, before, agent.TdError(transition))
}

func TestUpdateRaisesProbabilityOfTakenActions(t *testing.T) {
	agent, env := newAgent(t, linearConfig(t, 4))

	before := probabilityOf(agent, env, chain.Right)
	interact(t, agent, env, chain.Right, 4)
	require.NoError(t, agent.Step())
	after := probabilityOf(agent, env, chain.Right)

	require.Greater(t, after, before)
}

func TestActorLossDoesNotUpdateCritic(t *testing.T) {
	// Freeze the critic by giving it a zero step size. If the actor's
	// loss backpropagated into the critic, these updates would still
	// move the critic's weights.
	config := linearConfig(t, 4)
	frozen, err := solver.NewVanilla(0, 0)
	require.NoError(t, err)
	config.CriticSolver = frozen

	agent, env := newAgent(t, config)

	transition := timestep.Transition{
		State:     mat.NewVecDense(2, []float64{1, 0}),
		Action:    1,
		Reward:    1.0,
		NextState: mat.NewVecDense(2, []float64{0, 1}),
	}
	before := agent.TdError(transition)

	interact(t, agent, env, chain.Right, 8)
	require.NoError(t, agent.Step())

	// The actor changed, so the bootstrapped next-state value may
	// shift with the policy's action distribution, but here both
	// action values are identical, so any critic movement must come
	// from the critic's own update
	require.InDelta(t, before, agent.TdError(transition), 1e-12)
	require.NotEqual(t,
		probabilityOf(agent, env, chain.Right), 0.5)
}

func TestEvalModeRecordsAndLearnsNothing(t *testing.T) {
	agent, env := newAgent(t, linearConfig(t, 4))

	agent.Eval()
	require.True(t, agent.IsEval())
	interact(t, agent, env, chain.Right, 8)
	require.Equal(t, 0, agent.BufferSize())
	require.NoError(t, agent.Step())

	agent.Train()
	require.False(t, agent.IsEval())
	interact(t, agent, env, chain.Right, 3)
	require.Equal(t, 3, agent.BufferSize())
}

func TestScheduledAccessors(t *testing.T) {
	config := linearConfig(t, 4)
	agent, _ := newAgent(t, config)

	agent.SetEpsilon(0.25)
	require.Equal(t, 0.25, agent.Epsilon())

	agent.SetStepSizes(0.005, 0.0005)
	actor, critic := agent.StepSizes()
	require.Equal(t, 0.005, actor)
	require.Equal(t, 0.0005, critic)

	actorDecay, criticDecay := agent.StepSizeDecays()
	require.Equal(t, config.ActorLearningRateDecay, actorDecay)
	require.Equal(t, config.CriticLearningRateDecay, criticDecay)
}

func TestSaveAndLoadRestoreWeights(t *testing.T) {
	agent, env := newAgent(t, linearConfig(t, 4))

	// Move the weights away from their initial values, then snapshot
	interact(t, agent, env, chain.Right, 8)
	require.NoError(t, agent.Step())

	transition := timestep.Transition{
		State:     mat.NewVecDense(2, []float64{1, 0}),
		Action:    1,
		Reward:    1.0,
		NextState: mat.NewVecDense(2, []float64{0, 1}),
	}
	savedTdError := agent.TdError(transition)
	savedProb := probabilityOf(agent, env, chain.Right)

	file := filepath.Join(t.TempDir(), "agent.bin")
	require.NoError(t, agent.Save(file))

	// Keep training so the weights drift from the snapshot
	interact(t, agent, env, chain.Left, 8)
	require.NoError(t, agent.Step())
	require.NotEqual(t, savedProb, probabilityOf(agent, env, chain.Right))

	require.NoError(t, agent.Load(file))
	require.InDelta(t, savedTdError, agent.TdError(transition), 1e-12)
	require.InDelta(t, savedProb, probabilityOf(agent, env, chain.Right),
		1e-12)
}

func TestConfigValidation(t *testing.T) {
	config := actorcritic.DefaultConfig()
	config.ActorBiases = nil
	require.Error(t, config.Validate())

	config = actorcritic.DefaultConfig()
	config.BatchSize = 0
	require.Error(t, config.Validate())

	config = actorcritic.DefaultConfig()
	config.Discount = 1.5
	require.Error(t, config.Validate())

	require.NoError(t, actorcritic.DefaultConfig().Validate())
}

// probabilityOf returns the probability the agent's policy assigns to
// the argument action in the chain's start state
func probabilityOf(agent *actorcritic.ActorCritic, env *chain.Chain,
	action int) float64 {
	probs := agent.Probabilities(env.Reset())
	if math.IsNaN(probs[action]) {
		panic("policy returned NaN probability")
	}
	return probs[action]
}
