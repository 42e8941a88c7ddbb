// Package network implements feed-forward neural network function
// approximators on Gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a neural network function approximator. Each
// NeuralNet owns its own gorgonia.ExprGraph; there is no implicit
// shared graph state. The learnable parameters of a NeuralNet are
// returned directly by Learnables(), so separate networks always have
// disjoint parameter sets.
type NeuralNet interface {
	// Graph returns the computational graph that the network
	// populates
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network onto a fresh graph with a new
	// input batch size
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the network's input node before the
	// graph is run. The input should be constructed in row major
	// order: batch index varies slowest.
	SetInput([]float64) error

	// Set copies the weights of another NeuralNet into the receiver
	Set(NeuralNet) error

	// Learnables returns the learnable parameters of the network
	Learnables() G.Nodes

	// Model returns the learnable parameters with their gradients
	Model() []G.ValueGrad

	// Prediction returns the node of the computational graph that
	// stores the network output, and Output the value of that node
	// after the graph has been run
	Prediction() *G.Node
	Output() G.Value
}

// Set copies the weights of the source network into the destination
// network
func Set(dest, src NeuralNet) error {
	return dest.Set(src)
}
