package policy_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/agent/nonlinear/discrete/policy"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment/chain"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/network"
)

// newPolicy returns a linear softmax policy on a 2-state chain walk,
// initialized with the argument weight initializer
func newPolicy(t *testing.T, batch int, init G.InitWFn) (*policy.SoftmaxMLP,
	*chain.Chain) {
	t.Helper()

	env, _ := chain.New(2, 100)
	pol, err := policy.NewSoftmaxMLP(env, batch, G.NewGraph(), []int{},
		[]bool{}, []*network.Activation{}, init, 42)
	require.NoError(t, err)

	return pol, env
}

func TestProbabilitiesMatchSoftmaxOfLogits(t *testing.T) {
	// RangedFrom fills each tensor with a fresh range, so the linear
	// layer has weights [[0, 1], [2, 3]] and bias [0, 1]. The one-hot
	// observation of the leftmost chain state selects the first weight
	// row, so the logits are [0, 2].
	pol, env := newPolicy(t, 1, G.RangedFrom(0))

	probs := pol.Probabilities(env.Reset())
	require.Len(t, probs, 2)

	z := math.Exp(0) + math.Exp(2)
	require.InDelta(t, math.Exp(0)/z, probs[0], 1e-12)
	require.InDelta(t, math.Exp(2)/z, probs[1], 1e-12)
}

func TestSelectActionSamplesFromSoftmax(t *testing.T) {
	// Equal weights give equal logits, so with no exploration both
	// actions should be sampled near-uniformly
	pol, env := newPolicy(t, 1, G.Ones())
	pol.SetEpsilon(0)
	step := env.Reset()

	samples := 2000
	counts := make([]int, 2)
	for i := 0; i < samples; i++ {
		action := pol.SelectAction(step)
		require.GreaterOrEqual(t, action, 0)
		require.Less(t, action, 2)
		counts[action]++
	}

	require.InDelta(t, 0.5, float64(counts[0])/float64(samples), 0.05)
}

func TestSelectActionExploresUniformly(t *testing.T) {
	// With epsilon 1, the softmax distribution is skewed but never
	// consulted
	pol, env := newPolicy(t, 1, G.RangedFrom(0))
	pol.SetEpsilon(1.0)
	step := env.Reset()

	samples := 2000
	counts := make([]int, 2)
	for i := 0; i < samples; i++ {
		counts[pol.SelectAction(step)]++
	}

	require.InDelta(t, 0.5, float64(counts[0])/float64(samples), 0.05)
}

func TestLogProbOfComputesLogSoftmax(t *testing.T) {
	pol, _ := newPolicy(t, 2, G.RangedFrom(0))

	// Row 0 is the leftmost chain state (logits [0, 2]), row 1 the
	// rightmost (logits [2, 4])
	states := []float64{
		1, 0,
		0, 1,
	}
	require.NoError(t, pol.LogProbOf(states, []int{0, 1}))

	vm := G.NewTapeMachine(pol.Network().Graph())
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	got := pol.LogProbVal().Data().([]float64)
	require.Len(t, got, 2)

	lse1 := math.Log(math.Exp(0) + math.Exp(2))
	lse2 := math.Log(math.Exp(2) + math.Exp(4))
	require.InDelta(t, 0-lse1, got[0], 1e-12)
	require.InDelta(t, 4-lse2, got[1], 1e-12)
}

func TestLogProbOfRejectsWrongBatchSize(t *testing.T) {
	pol, _ := newPolicy(t, 2, G.Ones())
	require.Error(t, pol.LogProbOf([]float64{1, 0}, []int{0}))
}

func TestSelectActionPanicsWithTrainingBatchSize(t *testing.T) {
	pol, env := newPolicy(t, 2, G.Ones())
	require.Panics(t, func() { pol.SelectAction(env.Reset()) })
}
