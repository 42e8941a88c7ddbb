// Package checkpointer implements checkpointing of serializable
// objects at intervals while an agent trains
package checkpointer

import ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"

// Serializable is an object that can be saved to a file
type Serializable interface {
	Save(filename string) error
}

// Checkpointer checkpoints serializable objects based on
// timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}
