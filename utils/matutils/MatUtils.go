// Package matutils provides utilities for working with gonum matrices
// and vectors
package matutils

import (
	"gonum.org/v1/gonum/mat"
)

// Flatten returns the data of a vector as a flat []float64. The
// backing data is returned directly when the vector is a *mat.VecDense
// with unit stride; otherwise the data is copied element by element.
func Flatten(v mat.Vector) []float64 {
	if vd, ok := v.(*mat.VecDense); ok && vd.RawVector().Inc == 1 {
		return vd.RawVector().Data
	}

	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}

// VecFromSlice returns a new vector backed by the argument slice
func VecFromSlice(data []float64) *mat.VecDense {
	return mat.NewVecDense(len(data), data)
}
