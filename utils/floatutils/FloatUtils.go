// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"golang.org/x/exp/rand"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max.
// If min exceeds the floating point, then the function returns the min.
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// Min calculates and returns the minimum float64 in a list
func Min(floats ...float64) float64 {
	min := floats[0]
	for _, val := range floats {
		if val < min {
			min = val
		}
	}
	return min
}

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}

// MaxSlice gets the maximum value and the indices of the maximum
// values in a slice of float64
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i, value := range values {
		if value > max {
			max = value
			indices = []int{i}
		} else if value == max && i != 0 {
			indices = append(indices, i)
		}
	}
	return
}

// Softmax computes the softmax distribution over a slice of logits.
// The computation is stabilized by subtracting the maximum logit
// before exponentiating.
func Softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	max := Max(logits...)

	var sum float64
	for i, logit := range logits {
		probs[i] = math.Exp(logit - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// SampleWithTemperature samples an index from a probability
// distribution reweighted by a temperature. Temperatures above 1
// flatten the distribution and temperatures below 1 sharpen it; a
// temperature of 1 samples from the distribution unchanged.
func SampleWithTemperature(probs []float64, temperature float64,
	rng *rand.Rand) int {
	logits := make([]float64, len(probs))
	for i, p := range probs {
		logits[i] = math.Log(p) / temperature
	}
	reweighted := Softmax(logits)

	sample := rng.Float64()
	var cumulative float64
	for i, p := range reweighted {
		cumulative += p
		if sample < cumulative {
			return i
		}
	}
	return len(reweighted) - 1
}
