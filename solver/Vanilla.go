package solver

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

// VanillaConfig describes a configuration of a vanilla SGD solver
type VanillaConfig struct {
	StepSize float64

	// ClipNorm is the maximum L2 norm allowed for each gradient
	// tensor. A value <= 0 disables clipping.
	ClipNorm float64
}

// NewVanilla returns a new vanilla SGD Solver
func NewVanilla(stepSize, clipNorm float64) (*Solver, error) {
	vanilla := VanillaConfig{
		StepSize: stepSize,
		ClipNorm: clipNorm,
	}

	return newSolver(Vanilla, vanilla)
}

// Create returns a new vanilla SGD Updater as described by the
// VanillaConfig
func (v VanillaConfig) Create() Updater {
	return &vanilla{
		stepSize: v.StepSize,
		clipNorm: v.ClipNorm,
	}
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}

// vanilla implements the vanilla SGD update rule
type vanilla struct {
	stepSize float64
	clipNorm float64
}

// Step applies one SGD update to each parameter in the model
func (v *vanilla) Step(model []G.ValueGrad) error {
	for _, param := range model {
		weights, gradient, err := gradData(param)
		if err != nil {
			return fmt.Errorf("step: %v", err)
		}

		if v.clipNorm > 0 {
			if norm := floats.Norm(gradient, 2); norm > v.clipNorm {
				floats.Scale(v.clipNorm/norm, gradient)
			}
		}

		for j, g := range gradient {
			weights[j] -= v.stepSize * g
		}

		zero(gradient)
	}

	return nil
}

// SetStepSize changes the step size of subsequent updates
func (v *vanilla) SetStepSize(stepSize float64) {
	v.stepSize = stepSize
}

// StepSize returns the current step size
func (v *vanilla) StepSize() float64 {
	return v.stepSize
}

// GobEncode implements the gob.GobEncoder interface
func (v *vanilla) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	for _, field := range []interface{}{v.stepSize, v.clipNorm} {
		if err := enc.Encode(field); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode SGD "+
				"state: %v", err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (v *vanilla) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	for _, field := range []interface{}{&v.stepSize, &v.clipNorm} {
		if err := dec.Decode(field); err != nil {
			return fmt.Errorf("gobdecode: could not decode SGD state: %v",
				err)
		}
	}

	return nil
}
