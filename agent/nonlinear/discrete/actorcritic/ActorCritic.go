// Package actorcritic implements on-policy actor-critic agents with
// nonlinear function approximation for discrete action spaces
package actorcritic

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/agent/nonlinear/discrete/policy"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/expreplay"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/network"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/solver"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/utils/matutils"
)

// ActorCritic implements an online, on-policy actor-critic agent. The
// actor is a softmax policy over a discrete action set, and the critic
// predicts one action value per action.
//
// TD targets are computed with the critic weights in force at the time
// each transition is observed and are stored in the replay buffer
// alongside the transition. Because the buffer is consumed almost
// immediately, the staleness this introduces is bounded by a single
// batch; no target network is used. The bootstrap never masks terminal
// states, so the agent is only suited to continuing or effectively
// continuing tasks.
//
// The critic is updated to reduce the mean squared TD error of each
// batch. The actor follows a policy gradient in which the negative log
// likelihood of each taken action is weighted by the absolute TD error
// of its transition. The TD errors enter the actor's graph as constant
// inputs, so no gradient flows from the actor's loss into the critic.
type ActorCritic struct {
	// Action selection and TD-target networks, batch size 1. These
	// share no graph with the training networks and are synchronized
	// with them after every batch update.
	behaviour  *policy.SoftmaxMLP
	criticEval network.NeuralNet
	criticVM   G.VM

	// Training networks, batch size batchSize, each on its own graph
	// with its own solver
	trainPolicy *policy.SoftmaxMLP
	advantages  *G.Node
	actorVM     G.VM
	actorSolver *solver.Solver

	criticTrain   network.NeuralNet
	actionMask    *G.Node
	tdTargets     *G.Node
	qSelectedVal  G.Value
	criticTrainVM G.VM
	criticSolver  *solver.Solver

	replay     *expreplay.ReplayMemory
	batchSize  int
	discount   float64
	numActions int

	prevStep timestep.TimeStep
	eval     bool
	epsilon  float64 // Exploration rate restored when leaving eval mode

	actorDecay  float64
	criticDecay float64
}

// New creates and returns a new ActorCritic agent on the argument
// environment. See the Config type for the meaning of the
// hyperparameters.
func New(env environment.Environment, config Config,
	seed uint64) (*ActorCritic, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if env.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("new: actor critic does not support " +
			"continuous actions")
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := env.ActionSpec().N()
	batchSize := config.BatchSize

	// Behaviour policy, batch size 1, owns its own VM
	behaviour, err := policy.NewSoftmaxMLP(
		env,
		1,
		G.NewGraph(),
		config.ActorLayers,
		config.ActorBiases,
		config.ActorActivations,
		config.InitWFn.InitWFn(),
		int64(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour policy: %v",
			err)
	}
	behaviour.SetEpsilon(config.Epsilon)

	// Train policy, batch size batchSize, weighted log likelihood loss
	trainPolicy, err := policy.NewSoftmaxMLP(
		env,
		batchSize,
		G.NewGraph(),
		config.ActorLayers,
		config.ActorBiases,
		config.ActorActivations,
		config.InitWFn.InitWFn(),
		int64(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create train policy: %v", err)
	}
	if err := network.Set(trainPolicy.Network(), behaviour.Network()); err != nil {
		return nil, fmt.Errorf("new: could not sync actor networks: %v", err)
	}

	gActor := trainPolicy.Network().Graph()
	advantages := G.NewVector(
		gActor,
		tensor.Float64,
		G.WithShape(batchSize),
		G.WithInit(G.Zeroes()),
		G.WithName("advantages"),
	)
	actorLoss := G.Must(G.HadamardProd(advantages, trainPolicy.LogProbNode()))
	actorLoss = G.Must(G.Mean(actorLoss))
	actorLoss = G.Must(G.Neg(actorLoss))

	actorLearnables := trainPolicy.Network().Learnables()
	if len(actorLearnables) == 0 {
		return nil, fmt.Errorf("new: actor has no learnable parameters")
	}
	if _, err := G.Grad(actorLoss, actorLearnables...); err != nil {
		return nil, fmt.Errorf("new: could not compute actor gradient: %v",
			err)
	}
	actorVM := G.NewTapeMachine(gActor, G.BindDualValues(actorLearnables...))

	// Critic evaluation network, batch size 1, used for TD targets
	gEval := G.NewGraph()
	criticEval, err := network.NewMLP(
		features,
		1,
		numActions,
		gEval,
		config.CriticLayers,
		config.CriticBiases,
		config.InitWFn.InitWFn(),
		config.CriticActivations,
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic: %v", err)
	}
	criticVM := G.NewTapeMachine(gEval)

	// Critic training network, squared TD error loss
	gTrain := G.NewGraph()
	criticTrain, err := network.NewMLP(
		features,
		batchSize,
		numActions,
		gTrain,
		config.CriticLayers,
		config.CriticBiases,
		config.InitWFn.InitWFn(),
		config.CriticActivations,
	)
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic: %v", err)
	}
	if err := network.Set(criticEval, criticTrain); err != nil {
		return nil, fmt.Errorf("new: could not sync critic networks: %v", err)
	}

	// Select the value of each taken action with a one-hot mask
	actionMask := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithShape(batchSize, numActions),
		G.WithInit(G.Zeroes()),
		G.WithName("actionMask"),
	)
	qSelected := G.Must(G.HadamardProd(actionMask, criticTrain.Prediction()))
	qSelected = G.Must(G.Sum(qSelected, 1))

	tdTargets := G.NewVector(
		gTrain,
		tensor.Float64,
		G.WithShape(batchSize),
		G.WithInit(G.Zeroes()),
		G.WithName("tdTargets"),
	)
	criticLoss := G.Must(G.Sub(tdTargets, qSelected))
	criticLoss = G.Must(G.Square(criticLoss))
	criticLoss = G.Must(G.Mean(criticLoss))

	criticLearnables := criticTrain.Learnables()
	if len(criticLearnables) == 0 {
		return nil, fmt.Errorf("new: critic has no learnable parameters")
	}
	if _, err := G.Grad(criticLoss, criticLearnables...); err != nil {
		return nil, fmt.Errorf("new: could not compute critic gradient: %v",
			err)
	}
	replay, err := expreplay.New(features, config.ReplayCapacity)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %v", err)
	}

	ac := &ActorCritic{
		behaviour:  behaviour,
		criticEval: criticEval,
		criticVM:   criticVM,

		trainPolicy: trainPolicy,
		advantages:  advantages,
		actorVM:     actorVM,
		actorSolver: config.ActorSolver,

		criticTrain:  criticTrain,
		actionMask:   actionMask,
		tdTargets:    tdTargets,
		criticSolver: config.CriticSolver,

		replay:     replay,
		batchSize:  batchSize,
		discount:   config.Discount,
		numActions: numActions,

		epsilon:     config.Epsilon,
		actorDecay:  config.ActorLearningRateDecay,
		criticDecay: config.CriticLearningRateDecay,
	}
	// The read must be part of the graph before the tape machine
	// compiles it, or the selected action values are never recorded
	G.Read(qSelected, &ac.qSelectedVal)
	ac.criticTrainVM = G.NewTapeMachine(
		gTrain,
		G.BindDualValues(criticLearnables...),
	)

	return ac, nil
}

// SelectAction selects an action at the argument timestep using the
// behaviour policy
func (a *ActorCritic) SelectAction(t timestep.TimeStep) int {
	return a.behaviour.SelectAction(t)
}

// Probabilities returns the behaviour policy's softmax distribution
// over actions at the argument timestep
func (a *ActorCritic) Probabilities(t timestep.TimeStep) []float64 {
	return a.behaviour.Probabilities(t)
}

// ObserveFirst records the first timestep of an episode
func (a *ActorCritic) ObserveFirst(t timestep.TimeStep) {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (t = %d)", t.Number)
	}
	a.prevStep = t
}

// Observe records that the argument action was taken in the previously
// observed state and lead to nextStep. The TD target of the transition
// is computed with the current critic weights and stored with the
// transition, so the same experience observed under different weights
// produces different targets.
func (a *ActorCritic) Observe(action int, nextStep timestep.TimeStep) {
	if !a.eval {
		state := a.prevStep.Observation
		target := nextStep.Reward +
			a.discount*a.stateValue(nextStep.Observation)

		err := a.replay.Add(expreplay.Record{
			State:    state,
			Action:   action,
			Reward:   nextStep.Reward,
			TdTarget: target,
		})
		if err != nil {
			panic(fmt.Sprintf("observe: could not add to replay buffer: %v",
				err))
		}
	}
	a.prevStep = nextStep
}

// Step updates the weights of the agent. Updates happen in batches:
// each batch of batchSize transitions is consumed from the replay
// buffer in FIFO order and used for exactly one fused actor and critic
// update. Any remainder smaller than batchSize stays in the buffer for
// the next call.
func (a *ActorCritic) Step() error {
	if a.eval {
		return nil
	}

	for a.replay.Size() >= a.batchSize {
		batch, err := a.replay.Pop(a.batchSize)
		if err != nil {
			if expreplay.IsInsufficientData(err) {
				return nil
			}
			return fmt.Errorf("step: %v", err)
		}

		if err := a.update(batch); err != nil {
			return fmt.Errorf("step: %v", err)
		}
	}
	return nil
}

// update performs one fused actor and critic update on a batch. The
// critic's graph is run first so that the absolute TD errors it
// computes can be fed to the actor's graph as constants, then both
// solvers step and the evaluation networks are synchronized with the
// training networks.
func (a *ActorCritic) update(batch expreplay.Batch) error {
	n := batch.Len()
	if n != a.batchSize {
		return fmt.Errorf("update: invalid batch size \n\twant(%v)"+
			"\n\thave(%v)", a.batchSize, n)
	}

	// Critic forward and backward pass
	if err := a.criticTrain.SetInput(batch.States); err != nil {
		return fmt.Errorf("update: could not set critic input: %v", err)
	}

	mask := make([]float64, n*a.numActions)
	for i, action := range batch.Actions {
		mask[i*a.numActions+action] = 1.0
	}
	err := G.Let(a.actionMask, tensor.NewDense(
		tensor.Float64,
		[]int{n, a.numActions},
		tensor.WithBacking(mask),
	))
	if err != nil {
		return fmt.Errorf("update: could not set action mask: %v", err)
	}

	err = G.Let(a.tdTargets, tensor.NewDense(
		tensor.Float64,
		[]int{n},
		tensor.WithBacking(append([]float64{}, batch.TdTargets...)),
	))
	if err != nil {
		return fmt.Errorf("update: could not set TD targets: %v", err)
	}

	if err := a.criticTrainVM.RunAll(); err != nil {
		return fmt.Errorf("update: could not run critic graph: %v", err)
	}

	// Absolute TD errors weight the actor's log likelihoods. They are
	// computed outside any graph and entered into the actor's graph as
	// constants, so the actor's loss cannot backpropagate into the
	// critic.
	qSelected := a.qSelectedVal.Data().([]float64)
	advantages := make([]float64, n)
	for i := range advantages {
		advantages[i] = math.Abs(batch.TdTargets[i] - qSelected[i])
	}

	// Actor forward and backward pass
	if err := a.trainPolicy.LogProbOf(batch.States, batch.Actions); err != nil {
		return fmt.Errorf("update: %v", err)
	}
	err = G.Let(a.advantages, tensor.NewDense(
		tensor.Float64,
		[]int{n},
		tensor.WithBacking(advantages),
	))
	if err != nil {
		return fmt.Errorf("update: could not set advantages: %v", err)
	}
	if err := a.actorVM.RunAll(); err != nil {
		return fmt.Errorf("update: could not run actor graph: %v", err)
	}

	if err := a.criticSolver.Step(a.criticTrain.Model()); err != nil {
		return fmt.Errorf("update: could not step critic solver: %v", err)
	}
	if err := a.actorSolver.Step(a.trainPolicy.Network().Model()); err != nil {
		return fmt.Errorf("update: could not step actor solver: %v", err)
	}

	a.criticTrainVM.Reset()
	a.actorVM.Reset()

	if err := network.Set(a.criticEval, a.criticTrain); err != nil {
		return fmt.Errorf("update: could not sync critic networks: %v", err)
	}
	err = network.Set(a.behaviour.Network(), a.trainPolicy.Network())
	if err != nil {
		return fmt.Errorf("update: could not sync actor networks: %v", err)
	}
	return nil
}

// stateValue returns the critic's estimate of the value of a state,
// computed as the expectation of the action values under the behaviour
// policy's softmax distribution
func (a *ActorCritic) stateValue(obs mat.Vector) float64 {
	qValues := a.qValues(obs)
	probs := a.behaviour.Probabilities(timestep.TimeStep{Observation: obs})

	value := 0.0
	for action, prob := range probs {
		value += prob * qValues[action]
	}
	return value
}

// qValues returns the critic's action value estimates for a state
func (a *ActorCritic) qValues(obs mat.Vector) []float64 {
	if err := a.criticEval.SetInput(matutils.Flatten(obs)); err != nil {
		panic(fmt.Sprintf("qvalues: could not set critic input: %v", err))
	}
	if err := a.criticVM.RunAll(); err != nil {
		panic(fmt.Sprintf("qvalues: could not run critic graph: %v", err))
	}
	qValues := append([]float64{}, a.criticEval.Output().Data().([]float64)...)
	a.criticVM.Reset()

	return qValues
}

// TdError returns the TD error of the argument transition under the
// current weights
func (a *ActorCritic) TdError(t timestep.Transition) float64 {
	target := t.Reward + a.discount*a.stateValue(t.NextState)
	return target - a.qValues(t.State)[t.Action]
}

// EndEpisode performs cleanup at the end of an episode. Unconsumed
// experience is carried over to the next episode.
func (a *ActorCritic) EndEpisode() {}

// Eval sets the agent to evaluation mode: exploration is disabled and
// no experience is recorded or learned from
func (a *ActorCritic) Eval() {
	a.eval = true
	a.behaviour.SetEpsilon(0)
}

// Train sets the agent to training mode
func (a *ActorCritic) Train() {
	a.eval = false
	a.behaviour.SetEpsilon(a.epsilon)
}

// IsEval returns whether the agent is in evaluation mode
func (a *ActorCritic) IsEval() bool {
	return a.eval
}

// SetEpsilon sets the exploration rate of the behaviour policy
func (a *ActorCritic) SetEpsilon(epsilon float64) {
	a.epsilon = epsilon
	if !a.eval {
		a.behaviour.SetEpsilon(epsilon)
	}
}

// Epsilon returns the exploration rate of the behaviour policy
func (a *ActorCritic) Epsilon() float64 {
	return a.epsilon
}

// SetStepSizes changes the step sizes of the actor and critic solvers
// without resetting their accumulator state
func (a *ActorCritic) SetStepSizes(actor, critic float64) {
	a.actorSolver.SetStepSize(actor)
	a.criticSolver.SetStepSize(critic)
}

// StepSizes returns the current step sizes of the actor and critic
// solvers
func (a *ActorCritic) StepSizes() (float64, float64) {
	return a.actorSolver.StepSize(), a.criticSolver.StepSize()
}

// StepSizeDecays returns the per-episode multiplicative decay rates of
// the actor and critic step sizes
func (a *ActorCritic) StepSizeDecays() (float64, float64) {
	return a.actorDecay, a.criticDecay
}

// BufferSize returns the number of unconsumed transitions in the
// agent's replay buffer
func (a *ActorCritic) BufferSize() int {
	return a.replay.Size()
}

// GobEncode implements the gob.GobEncoder interface. The training
// network weights, solver accumulators, and exploration rate are
// encoded; unconsumed replay experience is not.
func (a *ActorCritic) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	fields := []interface{}{
		learnableValues(a.trainPolicy.Network()),
		learnableValues(a.criticTrain),
		a.actorSolver.Updater,
		a.criticSolver.Updater,
		a.epsilon,
	}
	for _, field := range fields {
		if err := enc.Encode(field); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode agent: %v",
				err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// weights, solver accumulators, and exploration rate are copied into
// the receiver, which must already be constructed with the same
// network architecture that was encoded.
func (a *ActorCritic) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var actorWeights, criticWeights []*tensor.Dense
	fields := []interface{}{
		&actorWeights,
		&criticWeights,
		a.actorSolver.Updater,
		a.criticSolver.Updater,
		&a.epsilon,
	}
	for _, field := range fields {
		if err := dec.Decode(field); err != nil {
			return fmt.Errorf("gobdecode: could not decode agent: %v", err)
		}
	}

	err := setLearnables(a.trainPolicy.Network(), actorWeights)
	if err != nil {
		return fmt.Errorf("gobdecode: could not restore actor: %v", err)
	}
	if err := setLearnables(a.criticTrain, criticWeights); err != nil {
		return fmt.Errorf("gobdecode: could not restore critic: %v", err)
	}
	err = network.Set(a.behaviour.Network(), a.trainPolicy.Network())
	if err != nil {
		return fmt.Errorf("gobdecode: could not restore actor: %v", err)
	}
	if err := network.Set(a.criticEval, a.criticTrain); err != nil {
		return fmt.Errorf("gobdecode: could not restore critic: %v", err)
	}

	a.behaviour.SetEpsilon(a.epsilon)
	return nil
}

// learnableValues returns copies of the learnable weight tensors of a
// network, in Learnables() order
func learnableValues(net network.NeuralNet) []*tensor.Dense {
	values := make([]*tensor.Dense, len(net.Learnables()))
	for i, learnable := range net.Learnables() {
		values[i] = learnable.Value().(*tensor.Dense).Clone().(*tensor.Dense)
	}
	return values
}

// setLearnables sets the learnable weight tensors of a network, in
// Learnables() order
func setLearnables(net network.NeuralNet, values []*tensor.Dense) error {
	learnables := net.Learnables()
	if len(values) != len(learnables) {
		return fmt.Errorf("setlearnables: invalid number of weight tensors"+
			"\n\twant(%v)\n\thave(%v)", len(learnables), len(values))
	}
	for i, learnable := range learnables {
		if err := G.Let(learnable, values[i]); err != nil {
			return fmt.Errorf("setlearnables: %v", err)
		}
	}
	return nil
}

// Save checkpoints the agent to the argument file
func (a *ActorCritic) Save(filename string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return fmt.Errorf("save: could not encode agent: %v", err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("save: could not write %v: %v", filename, err)
	}
	return nil
}

// Load restores a checkpointed agent from the argument file. The
// receiver must be constructed with the same configuration that was
// used to create the checkpointed agent.
func (a *ActorCritic) Load(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("load: could not read %v: %v", filename, err)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(a); err != nil {
		return fmt.Errorf("load: could not decode agent: %v", err)
	}
	return nil
}
