package tracker

import (
	"encoding/gob"
	"fmt"
	"log"
	"os"

	ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// Return tracks and saves the episodic return generated while training
// an agent. When an environment returns a TimeStep, this Tracker will
// extract the reward and accumulate the return for each episode.
//
// Note: An episode must finish for this Tracker to save its data.
// If the last episode does not finish, that episode's return will not
// be saved.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	var tracker Return
	tracker.lastTimeStep = -1
	tracker.filename = filename
	return &tracker
}

// Track tracks the rewards seen on a timestep. By calling this method
// on every timestep, the Tracker will store all rewards seen in the
// episode, and save the cumulative reward for that episode as the
// episodic return. When a new episode starts, this method will
// automatically detect this and start accumulating the rewards for
// this new episode separately from the rewards seen on previous
// episodes.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(step ts.TimeStep) {
	// Ensure that Track is called on sequential timesteps
	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("warning: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number)
		panic(msg)
	}

	r.currentReturn += step.Reward
	if !step.Last() {
		r.lastTimeStep = step.Number
	} else {
		// Episode has ended, save the return and begin tracking the
		// return for a new episode
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.currentReturn = 0.0
		r.lastTimeStep = -1
	}
}

// Returns returns the episodic returns tracked so far
func (r *Return) Returns() []float64 {
	return r.episodeReturns
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() {
	file, err := os.Create(r.filename)
	if err != nil {
		log.Fatalf("could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(r.episodeReturns); err != nil {
		log.Fatalf("could not encode return data: %v", err)
	}
}
