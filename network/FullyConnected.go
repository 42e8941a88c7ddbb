package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the weights of a single fully connected layer to a
// computational graph. The bias is stored as a (1 x out) matrix so
// that it can be broadcast along the batch dimension.
func newFCLayer(g *G.ExprGraph, in, out int, bias bool, act *Activation,
	init G.InitWFn, name string) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithInit(init),
		G.WithName(name+"W"),
	)

	var biasNode *G.Node
	if bias {
		biasNode = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, out),
			G.WithInit(init),
			G.WithName(name+"B"),
		)
	}

	return &fcLayer{weights: weights, bias: biasNode, act: act}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	if f.Weights() != nil {
		x = G.Must(G.Mul(x, f.Weights()))
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.Bias(), nil, []byte{0}))
	}
	if f.Activation() == nil || f.Activation().IsIdentity() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) *fcLayer {
	var newWeights, newBias *G.Node

	if f.Weights() != nil {
		newWeights = f.Weights().CloneTo(g)
	}
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &fcLayer{
		weights: newWeights,
		bias:    newBias,
		act:     f.act,
	}
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

// addFCLayers creates the stack of fully connected layers for a
// feed-forward network with the given hidden layer sizes. A layer i
// maps sizes[i] inputs to sizes[i+1] outputs.
func addFCLayers(g *G.ExprGraph, sizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, prefix string) []*fcLayer {
	layers := make([]*fcLayer, len(sizes)-1)
	for i := range layers {
		name := fmt.Sprintf("%vL%d", prefix, i)
		layers[i] = newFCLayer(g, sizes[i], sizes[i+1], biases[i],
			activations[i], init, name)
	}
	return layers
}
