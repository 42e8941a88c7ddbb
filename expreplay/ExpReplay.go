// Package expreplay implements a replay buffer of environment
// transitions with precomputed TD targets
package expreplay

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Record is a single unit of experience generated by taking one step
// in an environment. It holds the state the agent was in, the action
// it took, the reward it received, and the TD target computed with the
// critic parameters in force when the step occurred. Records are
// immutable once added and are consumed exactly once when popped.
type Record struct {
	State    mat.Vector
	Action   int
	Reward   float64
	TdTarget float64
}

// Batch holds a batch of Records reorganized into column-major form,
// one parallel slice per Record field. States is row major with
// FeatureSize features per row.
type Batch struct {
	States      []float64
	Actions     []int
	Rewards     []float64
	TdTargets   []float64
	FeatureSize int
}

// Len returns the number of records in the batch
func (b Batch) Len() int {
	return len(b.Actions)
}

// ReplayMemory is a FIFO buffer of Records. Production and consumption
// are expected to be interleaved in a single control flow, so no
// locking is performed. Add always succeeds: when a bounded buffer is
// full, the oldest record is dropped to make room.
type ReplayMemory struct {
	stateCache    []float64
	actionCache   []int
	rewardCache   []float64
	tdTargetCache []float64

	head        int // Index of the oldest record
	size        int
	maxCapacity int // <= 0 means unbounded
	featureSize int
}

// New creates and returns a new ReplayMemory holding records whose
// state vectors have featureSize features. If maxCapacity <= 0, the
// buffer grows without bound.
func New(featureSize, maxCapacity int) (*ReplayMemory, error) {
	if featureSize <= 0 {
		return nil, fmt.Errorf("new: featureSize must be > 0")
	}

	capacity := maxCapacity
	if capacity <= 0 {
		capacity = 64 // Initial allocation, grows as needed
	}

	return &ReplayMemory{
		stateCache:    make([]float64, capacity*featureSize),
		actionCache:   make([]int, capacity),
		rewardCache:   make([]float64, capacity),
		tdTargetCache: make([]float64, capacity),
		maxCapacity:   maxCapacity,
		featureSize:   featureSize,
	}, nil
}

// Size returns the current number of unconsumed records in the buffer
func (r *ReplayMemory) Size() int {
	return r.size
}

// FeatureSize returns the number of features in the state vector of
// each record
func (r *ReplayMemory) FeatureSize() int {
	return r.featureSize
}

// capacity returns the number of records the underlying caches can
// hold before growing or wrapping
func (r *ReplayMemory) capacity() int {
	return len(r.actionCache)
}

// Add appends a single record to the buffer. If a bounded buffer is
// full, the oldest record is discarded first.
func (r *ReplayMemory) Add(record Record) error {
	if record.State.Len() != r.featureSize {
		return &ExpReplayError{
			Op: "add",
			Err: fmt.Errorf("invalid feature size \n\twant(%v)\n\thave(%v)",
				r.featureSize, record.State.Len()),
		}
	}

	if r.size == r.capacity() {
		if r.maxCapacity > 0 {
			// Bounded and full, drop the oldest record
			r.head = (r.head + 1) % r.capacity()
			r.size--
		} else {
			r.grow()
		}
	}

	index := (r.head + r.size) % r.capacity()
	stateInd := index * r.featureSize
	for i := 0; i < r.featureSize; i++ {
		r.stateCache[stateInd+i] = record.State.AtVec(i)
	}
	r.actionCache[index] = record.Action
	r.rewardCache[index] = record.Reward
	r.tdTargetCache[index] = record.TdTarget

	r.size++
	return nil
}

// grow doubles the underlying caches of an unbounded buffer,
// straightening out the ring so that the oldest record sits at index 0
func (r *ReplayMemory) grow() {
	oldCapacity := r.capacity()
	newCapacity := 2 * oldCapacity

	stateCache := make([]float64, newCapacity*r.featureSize)
	actionCache := make([]int, newCapacity)
	rewardCache := make([]float64, newCapacity)
	tdTargetCache := make([]float64, newCapacity)

	for i := 0; i < r.size; i++ {
		index := (r.head + i) % oldCapacity
		copy(stateCache[i*r.featureSize:(i+1)*r.featureSize],
			r.stateCache[index*r.featureSize:(index+1)*r.featureSize])
		actionCache[i] = r.actionCache[index]
		rewardCache[i] = r.rewardCache[index]
		tdTargetCache[i] = r.tdTargetCache[index]
	}

	r.stateCache = stateCache
	r.actionCache = actionCache
	r.rewardCache = rewardCache
	r.tdTargetCache = tdTargetCache
	r.head = 0
}

// Pop removes the n earliest-inserted records from the buffer and
// returns them reorganized into column-major form. If fewer than n
// records are in the buffer, an insufficient data error is returned
// and the buffer is left unchanged; there are no partial pops.
func (r *ReplayMemory) Pop(n int) (Batch, error) {
	if n < 1 {
		return Batch{}, &ExpReplayError{
			Op:  "pop",
			Err: fmt.Errorf("cannot pop %v records", n),
		}
	}
	if n > r.size {
		return Batch{}, &ExpReplayError{
			Op:  "pop",
			Err: errInsufficientData,
		}
	}

	batch := Batch{
		States:      make([]float64, n*r.featureSize),
		Actions:     make([]int, n),
		Rewards:     make([]float64, n),
		TdTargets:   make([]float64, n),
		FeatureSize: r.featureSize,
	}

	for i := 0; i < n; i++ {
		index := (r.head + i) % r.capacity()
		copy(batch.States[i*r.featureSize:(i+1)*r.featureSize],
			r.stateCache[index*r.featureSize:(index+1)*r.featureSize])
		batch.Actions[i] = r.actionCache[index]
		batch.Rewards[i] = r.rewardCache[index]
		batch.TdTargets[i] = r.tdTargetCache[index]
	}

	r.head = (r.head + n) % r.capacity()
	r.size -= n

	return batch, nil
}
