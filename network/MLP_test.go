package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/network"
)

// run runs the forward pass of a network on the argument input and
// returns the output values
func run(t *testing.T, net network.NeuralNet, input []float64) []float64 {
	t.Helper()

	require.NoError(t, net.SetInput(input))

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	return append([]float64{}, net.Output().Data().([]float64)...)
}

func TestLinearNetworkForwardPass(t *testing.T) {
	// With all weights and the output bias set to 1, a linear network
	// predicts sum(input) + 1 for every output
	net, err := network.NewMLP(3, 1, 2, G.NewGraph(), []int{}, []bool{},
		G.Ones(), []*network.Activation{})
	require.NoError(t, err)

	out := run(t, net, []float64{1, 2, 3})
	require.Equal(t, []float64{7, 7}, out)
}

func TestBatchForwardPass(t *testing.T) {
	net, err := network.NewMLP(2, 3, 1, G.NewGraph(), []int{}, []bool{},
		G.Ones(), []*network.Activation{})
	require.NoError(t, err)

	out := run(t, net, []float64{
		1, 1,
		2, -1,
		0, 0,
	})
	require.Equal(t, []float64{3, 2, 1}, out)
}

func TestReLUHiddenLayer(t *testing.T) {
	// One hidden unit with weights 1 and no bias: the hidden
	// activation is max(0, sum(input)), and the output adds a bias of
	// 1
	net, err := network.NewMLP(2, 1, 1, G.NewGraph(), []int{1}, []bool{false},
		G.Ones(), []*network.Activation{network.ReLU()})
	require.NoError(t, err)

	out := run(t, net, []float64{2, 3})
	require.Equal(t, []float64{6}, out)

	out = run(t, net, []float64{-2, -3})
	require.Equal(t, []float64{1}, out)
}

func TestSetInputRejectsWrongSize(t *testing.T) {
	net, err := network.NewMLP(3, 2, 1, G.NewGraph(), []int{}, []bool{},
		G.Ones(), []*network.Activation{})
	require.NoError(t, err)

	require.Error(t, net.SetInput([]float64{1, 2, 3}))
}

func TestSetCopiesWeights(t *testing.T) {
	source, err := network.NewMLP(2, 1, 2, G.NewGraph(), []int{}, []bool{},
		G.RangedFrom(0), []*network.Activation{})
	require.NoError(t, err)

	dest, err := network.NewMLP(2, 4, 2, G.NewGraph(), []int{}, []bool{},
		G.Zeroes(), []*network.Activation{})
	require.NoError(t, err)

	require.NoError(t, network.Set(dest, source))

	for i, learnable := range dest.Learnables() {
		want := source.Learnables()[i].Value().Data().([]float64)
		require.Equal(t, want, learnable.Value().Data().([]float64))
	}
}

func TestCloneWithBatchSharesNoParameters(t *testing.T) {
	net, err := network.NewMLP(2, 1, 2, G.NewGraph(), []int{3}, []bool{true},
		G.RangedFrom(0), []*network.Activation{network.TanH()})
	require.NoError(t, err)

	clone, err := net.CloneWithBatch(8)
	require.NoError(t, err)

	require.Equal(t, 8, clone.BatchSize())
	require.Equal(t, net.Features(), clone.Features())
	require.Equal(t, net.Outputs(), clone.Outputs())

	require.Equal(t, len(net.Learnables()), len(clone.Learnables()))
	for i, learnable := range clone.Learnables() {
		original := net.Learnables()[i]
		require.NotSame(t, original, learnable)
		require.Equal(t, original.Value().Data().([]float64),
			learnable.Value().Data().([]float64))
	}
}

func TestNewMLPValidatesArchitecture(t *testing.T) {
	_, err := network.NewMLP(2, 1, 1, G.NewGraph(), []int{3}, []bool{},
		G.Ones(), []*network.Activation{network.ReLU()})
	require.Error(t, err)

	_, err = network.NewMLP(2, 1, 1, G.NewGraph(), []int{3}, []bool{true},
		G.Ones(), []*network.Activation{})
	require.Error(t, err)
}
