package initwfn

import G "gorgonia.org/gorgonia"

// GlorotUConfig describes Glorot uniform initialization with a given
// gain.
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a serializable Glorot uniform weight initializer.
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the initializer in the form Gorgonia consumes.
func (g GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(g.Gain)
}

// GlorotNConfig describes Glorot normal initialization with a given
// gain.
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a serializable Glorot normal weight initializer.
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns the initializer in the form Gorgonia consumes.
func (g GlorotNConfig) Create() G.InitWFn {
	return G.GlorotN(g.Gain)
}
