package solver

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	StepSize float64
	Epsilon  float64 // Smoothing factor
	Beta1    float64
	Beta2    float64

	// ClipNorm is the maximum L2 norm allowed for each gradient
	// tensor. Gradients with a larger norm are scaled down to this
	// norm before the update is applied. A value <= 0 disables
	// clipping.
	ClipNorm float64
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
func NewDefaultAdam(stepSize float64) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, 0)
}

// NewAdam returns a new Adam Solver
func NewAdam(stepSize, epsilon, beta1, beta2,
	clipNorm float64) (*Solver, error) {
	adam := AdamConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Beta1:    beta1,
		Beta2:    beta2,
		ClipNorm: clipNorm,
	}

	return newSolver(Adam, adam)
}

// Create returns a new Adam Updater as described by the AdamConfig
func (a AdamConfig) Create() Updater {
	return &adam{
		stepSize: a.StepSize,
		eps:      a.Epsilon,
		beta1:    a.Beta1,
		beta2:    a.Beta2,
		clipNorm: a.ClipNorm,
	}
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}

// adam implements the Adam update rule. The first and second moment
// estimates are lazily allocated on the first Step call and persist
// for the lifetime of the adam value.
type adam struct {
	stepSize float64
	eps      float64
	beta1    float64
	beta2    float64
	clipNorm float64

	steps int
	m     [][]float64 // First moment estimate per parameter tensor
	v     [][]float64 // Second moment estimate per parameter tensor
}

// Step applies one Adam update to each parameter in the model
func (a *adam) Step(model []G.ValueGrad) error {
	if a.m == nil {
		a.m = make([][]float64, len(model))
		a.v = make([][]float64, len(model))
	}
	if len(model) != len(a.m) {
		return fmt.Errorf("step: model size changed\n\twant(%v)"+
			"\n\thave(%v)", len(a.m), len(model))
	}

	a.steps++
	correction1 := 1 - math.Pow(a.beta1, float64(a.steps))
	correction2 := 1 - math.Pow(a.beta2, float64(a.steps))

	for i, param := range model {
		weights, gradient, err := gradData(param)
		if err != nil {
			return fmt.Errorf("step: %v", err)
		}

		if a.m[i] == nil {
			a.m[i] = make([]float64, len(gradient))
			a.v[i] = make([]float64, len(gradient))
		}

		if a.clipNorm > 0 {
			if norm := floats.Norm(gradient, 2); norm > a.clipNorm {
				floats.Scale(a.clipNorm/norm, gradient)
			}
		}

		m, v := a.m[i], a.v[i]
		for j, g := range gradient {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g

			mHat := m[j] / correction1
			vHat := v[j] / correction2
			weights[j] -= a.stepSize * mHat / (math.Sqrt(vHat) + a.eps)
		}

		zero(gradient)
	}

	return nil
}

// SetStepSize changes the step size of subsequent updates. The moment
// estimates are left untouched.
func (a *adam) SetStepSize(stepSize float64) {
	a.stepSize = stepSize
}

// StepSize returns the current step size
func (a *adam) StepSize() float64 {
	return a.stepSize
}

// GobEncode implements the gob.GobEncoder interface so that the
// moment accumulators can be checkpointed with the model parameters
func (a *adam) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	for _, field := range []interface{}{
		a.stepSize, a.eps, a.beta1, a.beta2, a.clipNorm, a.steps, a.m, a.v,
	} {
		if err := enc.Encode(field); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode adam "+
				"state: %v", err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *adam) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	for _, field := range []interface{}{
		&a.stepSize, &a.eps, &a.beta1, &a.beta2, &a.clipNorm, &a.steps,
		&a.m, &a.v,
	} {
		if err := dec.Decode(field); err != nil {
			return fmt.Errorf("gobdecode: could not decode adam state: %v",
				err)
		}
	}

	return nil
}
