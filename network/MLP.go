package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a feed-forward multi-layered perceptron with one
// output node per value that should be predicted.
type mlp struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for gobbing
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new feed-forward multi-layered
// perceptron with outputs output nodes, populating the graph g.
//
// The MLP has a number of layers equal to len(hiddenSizes) + 1. A
// final linear layer (with a bias unit and no activation) is always
// added so that given any input, the network predicts outputs values.
// For index i, hiddenSizes[i] is the number of nodes in hidden layer
// i; biases[i] is true if hidden layer i contains a bias unit; and
// activations[i] is the activation function of hidden layer i. The
// init parameter determines the weight initialization scheme.
//
// A linear network is created by setting hiddenSizes to []int{},
// biases to []bool{}, and activations to []*Activation{}.
func NewMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	// Ensure one activation per hidden layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmlp: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per hidden layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmlp: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if features <= 0 || batch <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("newmlp: features, batch, and outputs must "+
			"be positive\n\thave(%d, %d, %d)", features, batch, outputs)
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Add a final linear layer so that the output heads are always
	// predicted by the network
	sizes := append([]int{features}, hiddenSizes...)
	sizes = append(sizes, outputs)
	layerBiases := append(append([]bool{}, biases...), true)
	layerActivations := append(append([]*Activation{}, activations...),
		Identity())

	layers := addFCLayers(g, sizes, layerBiases, layerActivations, init, "")

	network := mlp{
		g:           g,
		layers:      layers,
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
	}
	_, err := network.fwd(input)
	if err != nil {
		return &mlp{}, fmt.Errorf("newmlp: could not compute forward "+
			"pass: %v", err)
	}

	return &network, nil
}

// Graph returns the computational graph of the mlp
func (e *mlp) Graph() *G.ExprGraph {
	return e.g
}

// CloneWithBatch clones the mlp onto a fresh graph with a new input
// batch size
func (e *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("clonewithbatch: batch size must be "+
			"positive\n\thave(%d)", batchSize)
	}

	graph := G.NewGraph()
	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	// Copy fully connected layers
	layers := make([]*fcLayer, len(e.layers))
	for i := range e.layers {
		layers[i] = e.layers[i].CloneTo(graph)
	}

	network := mlp{
		g:           graph,
		layers:      layers,
		input:       input,
		numOutputs:  e.numOutputs,
		numInputs:   e.numInputs,
		batchSize:   batchSize,
		hiddenSizes: e.hiddenSizes,
		biases:      e.biases,
		activations: e.activations,
	}
	_, err := network.fwd(input)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not compute forward "+
			"pass: %v", err)
	}

	return &network, nil
}

// BatchSize returns the batch size of inputs to the network
func (e *mlp) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features in a single input vector
func (e *mlp) Features() int {
	return e.numInputs
}

// Outputs returns the number of outputs predicted by the network
func (e *mlp) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass
func (e *mlp) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.input.Shape()...),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of the mlp to be equal to the weights of
// another NeuralNet
func (dest *mlp) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("set: networks have different numbers of "+
			"learnables\n\twant(%v)\n\thave(%v)", len(nodes),
			len(sourceNodes))
	}
	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes in the mlp
func (e *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(e.layers))
		for i := range e.layers {
			learnables = append(learnables, e.layers[i].Weights())
			if bias := e.layers[i].Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		e.learnables = G.Nodes(learnables)
	}
	return e.learnables
}

// Model returns the learnable nodes with their gradients
func (e *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(e.layers))
		for _, node := range e.Learnables() {
			model = append(model, node)
		}
		e.model = model
	}
	return e.model
}

// fwd performs the forward pass of the mlp on the input node
func (e *mlp) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return pred, nil
}

// Output returns the output of the mlp after the graph has been run
func (e *mlp) Output() G.Value {
	return e.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the mlp
func (e *mlp) Prediction() *G.Node {
	return e.prediction
}

// GobEncode implements the gob.GobEncoder interface
func (e *mlp) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(e.numOutputs); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of " +
			"outputs")
	}
	if err := enc.Encode(e.numInputs); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of " +
			"inputs")
	}
	if err := enc.Encode(e.batchSize); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size")
	}
	if err := enc.Encode(e.hiddenSizes); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden sizes")
	}
	if err := enc.Encode(e.biases); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode biases")
	}
	if err := enc.Encode(e.activations); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activations")
	}

	for i, layer := range e.layers {
		weights, ok := layer.Weights().Value().(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("gobencode: layer %v weights are not a "+
				"dense tensor", i)
		}
		if err := enc.Encode(weights); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode layer %v "+
				"weights: %v", i, err)
		}

		hasBias := layer.Bias() != nil
		if err := enc.Encode(hasBias); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode layer %v "+
				"bias flag: %v", i, err)
		}
		if hasBias {
			bias, ok := layer.Bias().Value().(*tensor.Dense)
			if !ok {
				return nil, fmt.Errorf("gobencode: layer %v bias is not a "+
					"dense tensor", i)
			}
			if err := enc.Encode(bias); err != nil {
				return nil, fmt.Errorf("gobencode: could not encode layer "+
					"%v bias: %v", i, err)
			}
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (e *mlp) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numOutputs, numInputs, batchSize int
	if err := dec.Decode(&numOutputs); err != nil {
		return fmt.Errorf("gobdecode: could not decode number of outputs")
	}
	if err := dec.Decode(&numInputs); err != nil {
		return fmt.Errorf("gobdecode: could not decode number of inputs")
	}
	if err := dec.Decode(&batchSize); err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size")
	}

	var hiddenSizes []int
	if err := dec.Decode(&hiddenSizes); err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden sizes")
	}
	var biases []bool
	if err := dec.Decode(&biases); err != nil {
		return fmt.Errorf("gobdecode: could not decode biases")
	}
	var activations []*Activation
	if err := dec.Decode(&activations); err != nil {
		return fmt.Errorf("gobdecode: could not decode activations")
	}

	// Rebuild the network, then fill in the stored weights
	g := G.NewGraph()
	newNet, err := NewMLP(numInputs, batchSize, numOutputs, g, hiddenSizes,
		biases, G.Zeroes(), activations)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}
	newMLP := newNet.(*mlp)

	for i, layer := range newMLP.layers {
		var weights tensor.Dense
		if err := dec.Decode(&weights); err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %v "+
				"weights: %v", i, err)
		}
		if err := G.Let(layer.Weights(), &weights); err != nil {
			return fmt.Errorf("gobdecode: could not set layer %v "+
				"weights: %v", i, err)
		}

		var hasBias bool
		if err := dec.Decode(&hasBias); err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %v bias "+
				"flag: %v", i, err)
		}
		if hasBias {
			var bias tensor.Dense
			if err := dec.Decode(&bias); err != nil {
				return fmt.Errorf("gobdecode: could not decode layer %v "+
					"bias: %v", i, err)
			}
			if err := G.Let(layer.Bias(), &bias); err != nil {
				return fmt.Errorf("gobdecode: could not set layer %v "+
					"bias: %v", i, err)
			}
		}
	}

	*e = *newMLP
	return nil
}
