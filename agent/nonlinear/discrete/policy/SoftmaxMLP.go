// Package policy implements action-selection policies using nonlinear
// function approximation with Gorgonia
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/network"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/utils/floatutils"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/utils/matutils"
)

// SoftmaxMLP implements a stochastic categorical policy over a
// discrete action set using a feedforward neural network. The network
// predicts one logit per action, and actions are sampled from the
// softmax distribution over these logits - never chosen greedily.
//
// With probability epsilon, action selection short-circuits to a
// uniformly random action without running the network at all. Setting
// epsilon to 0 always samples from the softmax distribution.
//
// A SoftmaxMLP with batch size 1 owns a VM for its graph and can
// select actions directly. A SoftmaxMLP with a larger batch size is
// used for learning: it exposes the node holding the log probability
// of externally inputted actions in externally inputted states, from
// which a policy-gradient loss can be constructed. Gradients are
// never computed through the action-selection path.
type SoftmaxMLP struct {
	network.NeuralNet
	vm G.VM

	epsilon float64

	logits        *G.Node
	logitsVal     G.Value
	actionMask    *G.Node
	logProbInput  *G.Node
	logProbInVal  G.Value
	batchSize     int
	numActions    int

	source rand.Source
	rng    *rand.Rand
}

// NewSoftmaxMLP creates and returns a new SoftmaxMLP with the given
// hidden layer configuration, populating the graph g. The batch
// parameter determines the number of states over which action log
// probabilities are computed when learning; action selection requires
// batch == 1.
func NewSoftmaxMLP(env environment.Environment, batch int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, activations []*network.Activation,
	init G.InitWFn, seed int64) (*SoftmaxMLP, error) {
	if env.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("newsoftmaxmlp: softmax policy cannot be " +
			"used with continuous actions")
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := env.ActionSpec().N()

	net, err := network.NewMLP(features, batch, numActions, g, hiddenSizes,
		biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newsoftmaxmlp: could not create policy "+
			"network: %v", err)
	}

	logits := net.Prediction()

	// Log probability of actions inputted through LogProbOf. The
	// actions enter the graph only as a one-hot mask, so no gradient
	// flows through action selection.
	actionMask := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("actionMask"),
	)
	selectedLogits := G.Must(G.HadamardProd(actionMask, logits))
	selectedLogits = G.Must(G.Sum(selectedLogits, 1))
	logProbInput := G.Must(G.Sub(selectedLogits, LogSumExp(logits, 1)))

	source := rand.NewSource(uint64(seed))

	pol := &SoftmaxMLP{
		NeuralNet: net,
		logits:    logits,

		actionMask:   actionMask,
		logProbInput: logProbInput,

		batchSize:  batch,
		numActions: numActions,

		source: source,
		rng:    rand.New(source),
	}
	G.Read(pol.logits, &pol.logitsVal)
	G.Read(pol.logProbInput, &pol.logProbInVal)

	if batch == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// LogSumExp computes the log of the summed exponentials of a node
// along an axis, stabilized by the running maximum
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// SetEpsilon sets the probability of selecting a uniformly random
// action
func (s *SoftmaxMLP) SetEpsilon(epsilon float64) {
	s.epsilon = epsilon
}

// Epsilon returns the probability of selecting a uniformly random
// action
func (s *SoftmaxMLP) Epsilon() float64 {
	return s.epsilon
}

// NumActions returns the size of the action set
func (s *SoftmaxMLP) NumActions() int {
	return s.numActions
}

// Network returns the network of the policy
func (s *SoftmaxMLP) Network() network.NeuralNet {
	return s.NeuralNet
}

// SelectAction selects an action at the argument timestep. With
// probability epsilon, a uniformly random action is returned without
// evaluating the network. Otherwise, an action is sampled from the
// softmax distribution over the network's logits.
func (s *SoftmaxMLP) SelectAction(t timestep.TimeStep) int {
	if s.vm == nil {
		panic("selectaction: cannot select actions with batch size > 1")
	}

	if s.epsilon > 0 && s.rng.Float64() < s.epsilon {
		return s.rng.Intn(s.numActions)
	}

	dist := distuv.NewCategorical(s.Probabilities(t), s.source)
	return int(dist.Rand())
}

// Probabilities runs the policy network on the observation of the
// argument timestep and returns the softmax distribution over actions
func (s *SoftmaxMLP) Probabilities(t timestep.TimeStep) []float64 {
	if s.vm == nil {
		panic("probabilities: cannot run the policy with batch size > 1")
	}

	obs := matutils.Flatten(t.Observation)
	if err := s.Network().SetInput(obs); err != nil {
		panic(fmt.Sprintf("probabilities: %v", err))
	}
	if err := s.vm.RunAll(); err != nil {
		panic(fmt.Sprintf("probabilities: %v", err))
	}
	logits := append([]float64{}, s.logitsVal.Data().([]float64)...)
	s.vm.Reset()

	return floatutils.Softmax(logits)
}

// LogProbNode returns the node of the computational graph that holds
// the log probabilities of the actions most recently inputted through
// LogProbOf
func (s *SoftmaxMLP) LogProbNode() *G.Node {
	return s.logProbInput
}

// LogProbVal returns the value of the node returned by LogProbNode
// after the graph has been run
func (s *SoftmaxMLP) LogProbVal() G.Value {
	return s.logProbInVal
}

// LogProbOf sets the policy's inputs so that, once the graph is run,
// LogProbNode holds the log probability of taking each of the argument
// actions in the corresponding argument states. States should be
// constructed in row major order.
func (s *SoftmaxMLP) LogProbOf(states []float64, actions []int) error {
	if len(actions) != s.batchSize {
		return fmt.Errorf("logprobof: invalid number of actions"+
			"\n\twant(%v)\n\thave(%v)", s.batchSize, len(actions))
	}

	if err := s.Network().SetInput(states); err != nil {
		return fmt.Errorf("logprobof: %v", err)
	}

	mask := make([]float64, s.batchSize*s.numActions)
	for i, action := range actions {
		mask[i*s.numActions+action] = 1.0
	}
	maskTensor := tensor.NewDense(
		tensor.Float64,
		[]int{s.batchSize, s.numActions},
		tensor.WithBacking(mask),
	)

	return G.Let(s.actionMask, maskTensor)
}
