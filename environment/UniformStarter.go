package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter draws starting states uniformly from a per-feature
// interval.
type UniformStarter struct {
	features int
	rand     *distmv.Uniform
}

// NewUniformStarter returns a UniformStarter that samples each state
// feature from the corresponding interval in bounds.
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	source := rand.NewSource(seed)

	return UniformStarter{
		features: len(bounds),
		rand:     distmv.NewUniform(bounds, source),
	}
}

// Start samples and returns a starting state.
func (u UniformStarter) Start() mat.Vector {
	return mat.NewVecDense(u.features, u.rand.Rand(nil))
}
