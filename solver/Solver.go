// Package solver implements gradient-based optimizers for the
// learnable parameters of Gorgonia computational graphs. Solvers can
// be JSON serialized into configuration files, keep their moment
// accumulators across batches, and allow their step size to be changed
// between updates so that learning rates can be decayed by a training
// loop.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
)

// Updater applies gradient updates to the parameters of a model. The
// accumulator state of an Updater (e.g. Adam moment estimates)
// persists across calls to Step and is reset only when a new Updater
// is created.
type Updater interface {
	// Step applies one gradient update to each parameter in the model
	// and zeroes the gradients afterwards
	Step(model []G.ValueGrad) error

	// SetStepSize changes the step size used by subsequent updates
	// without resetting accumulator state
	SetStepSize(stepSize float64)

	// StepSize returns the current step size
	StepSize() float64
}

// Solver wraps Updaters so that they can be JSON marshalled and
// unmarshalled.
type Solver struct {
	Updater `json:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Updater = solver.Config.Create()

	return &solver, nil
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(Vanilla): reflect.TypeOf(VanillaConfig{}),
			string(Adam):    reflect.TypeOf(AdamConfig{}),
		})
	if err != nil {
		return err
	}

	s.Type = typeName
	s.Config = config
	s.Updater = s.Config.Create()

	return nil
}

// unmarshalConfig uses reflection to unmarshal a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName := m[typeJsonField].(string)
	var value Config
	if ty, found := customTypes[typeName]; found {
		value = reflect.New(ty).Interface().(Config)
	}

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, &value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config implements a solver configuration and can be used to create
// the Updaters it describes.
type Config interface {
	Create() Updater

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}

// gradData returns the float64 backing data of the value and gradient
// of a single model parameter
func gradData(param G.ValueGrad) ([]float64, []float64, error) {
	grad, err := param.Grad()
	if err != nil {
		return nil, nil, fmt.Errorf("could not get gradient: %v", err)
	}

	weights, ok := param.Value().Data().([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("parameter is not float64-backed")
	}
	gradient, ok := grad.Data().([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("gradient is not float64-backed")
	}
	if len(weights) != len(gradient) {
		return nil, nil, fmt.Errorf("gradient size mismatch "+
			"\n\twant(%v)\n\thave(%v)", len(weights), len(gradient))
	}

	return weights, gradient, nil
}

// zero zeroes a gradient slice in place after its update has been
// applied, so that gradients do not accumulate between batches
func zero(gradient []float64) {
	for i := range gradient {
		gradient[i] = 0
	}
}
