// Package experiment implements functionality for training an agent
// on an environment and recording what happens
package experiment

import (
	"fmt"
	"io"
	"os"

	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/agent"
	env "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/experiment/checkpointer"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/experiment/tracker"
	ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// Config describes how a Trainer runs and anneals an agent
type Config struct {
	// Episodes is the total number of episodes to train for
	Episodes int

	// AnnealingEpisodes is the number of episodes over which the
	// agent's exploration rate is linearly annealed from its initial
	// value to EpsilonFloor. After these episodes, the exploration
	// rate stays at EpsilonFloor.
	AnnealingEpisodes int
	EpsilonFloor      float64

	// ReportInterval is the number of episodes between progress
	// reports. A value <= 0 disables progress reports.
	ReportInterval int
}

// Validate returns an error describing why the Config is invalid, or
// nil if it is valid
func (c Config) Validate() error {
	if c.Episodes < 1 {
		return fmt.Errorf("episodes must be >= 1, got %v", c.Episodes)
	}
	if c.AnnealingEpisodes < 0 {
		return fmt.Errorf("annealing episodes must be >= 0, got %v",
			c.AnnealingEpisodes)
	}
	if c.EpsilonFloor < 0 || c.EpsilonFloor > 1 {
		return fmt.Errorf("epsilon floor must be in [0, 1], got %v",
			c.EpsilonFloor)
	}
	return nil
}

// Trainer trains an agent online on an environment for a fixed number
// of episodes. The Trainer owns the agent's schedules: after every
// episode it anneals the agent's exploration rate linearly towards its
// floor and decays the agent's optimizer step sizes multiplicatively
// by the rates the agent reports. Agents that do not implement
// agent.Scheduled are run without schedules.
//
// Every environment timestep is sent to each registered
// tracker.Tracker and checkpointer.Checkpointer.
type Trainer struct {
	env.Environment
	agent.Agent
	config Config

	epsilonInitial float64
	episodeReturns []float64
	currentSteps   int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer

	out io.Writer
}

// New creates and returns a new Trainer that trains the argument agent
// on the argument environment. The t and c parameters determine which
// data generated during training is tracked and which objects are
// checkpointed.
func New(e env.Environment, a agent.Agent, config Config,
	t []tracker.Tracker, c []checkpointer.Checkpointer) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	epsilonInitial := 0.0
	if scheduled, ok := a.(agent.Scheduled); ok {
		epsilonInitial = scheduled.Epsilon()
	}

	return &Trainer{
		Environment: e,
		Agent:       a,
		config:      config,

		epsilonInitial: epsilonInitial,

		trackers:      t,
		checkpointers: c,

		out: os.Stdout,
	}, nil
}

// Steps returns the total number of environment steps taken so far
func (t *Trainer) Steps() int {
	return t.currentSteps
}

// SetOutput changes where the Trainer writes its progress reports
func (t *Trainer) SetOutput(w io.Writer) {
	t.out = w
}

// Register registers a tracker.Tracker with the Trainer so that data
// generated during training can be tracked and saved
func (t *Trainer) Register(tr tracker.Tracker) {
	t.trackers = append(t.trackers, tr)
}

// Run trains the agent for the configured number of episodes and
// returns the return of each episode
func (t *Trainer) Run() ([]float64, error) {
	for episode := 1; episode <= t.config.Episodes; episode++ {
		if err := t.RunEpisode(); err != nil {
			return t.episodeReturns, fmt.Errorf("run: %v", err)
		}

		t.anneal(episode)

		interval := t.config.ReportInterval
		if interval > 0 && episode%interval == 0 {
			t.report(episode)
		}
	}

	t.finalReport()
	return t.episodeReturns, nil
}

// RunEpisode runs a single episode of agent-environment interaction,
// updating the agent's weights after every step
func (t *Trainer) RunEpisode() error {
	step := t.Environment.Reset()
	t.Agent.ObserveFirst(step)
	t.track(step)

	episodeReturn := 0.0
	for !step.Last() {
		t.currentSteps++

		action := t.Agent.SelectAction(step)
		next, err := t.Environment.Step(action)
		if err != nil {
			return fmt.Errorf("runepisode: %v", err)
		}
		step = next

		t.track(step)
		episodeReturn += step.Reward

		t.Agent.Observe(action, step)
		if err := t.Agent.Step(); err != nil {
			return fmt.Errorf("runepisode: %v", err)
		}

		if err := t.checkpoint(step); err != nil {
			return fmt.Errorf("runepisode: %v", err)
		}
	}

	t.Agent.EndEpisode()
	t.episodeReturns = append(t.episodeReturns, episodeReturn)
	return nil
}

// anneal applies the per-episode schedules to the agent after the
// argument episode has finished. The exploration rate is annealed
// linearly from its initial value to the configured floor, and the
// optimizer step sizes are decayed multiplicatively.
func (t *Trainer) anneal(episode int) {
	scheduled, ok := t.Agent.(agent.Scheduled)
	if !ok {
		return
	}

	if t.config.AnnealingEpisodes > 0 {
		decrement := (t.epsilonInitial - t.config.EpsilonFloor) /
			float64(t.config.AnnealingEpisodes)
		epsilon := t.epsilonInitial - float64(episode)*decrement
		if epsilon < t.config.EpsilonFloor {
			epsilon = t.config.EpsilonFloor
		}
		scheduled.SetEpsilon(epsilon)
	}

	actorDecay, criticDecay := scheduled.StepSizeDecays()
	actorStepSize, criticStepSize := scheduled.StepSizes()
	scheduled.SetStepSizes(actorStepSize*actorDecay,
		criticStepSize*criticDecay)
}

// report writes a progress report covering all episodes so far
func (t *Trainer) report(episode int) {
	best := floats.Max(t.episodeReturns)
	avg := stat.Mean(trailing(t.episodeReturns, tracker.SmoothingWindow), nil)

	line := fmt.Sprintf("%s best: %s, avg: %s, recent: %.2f",
		aurora.Cyan(fmt.Sprintf("[episodes: %v/step: %v]", episode,
			t.currentSteps)),
		aurora.Green(fmt.Sprintf("%.2f", best)),
		aurora.Yellow(fmt.Sprintf("%.2f", avg)),
		trailing(t.episodeReturns, 5),
	)

	if scheduled, ok := t.Agent.(agent.Scheduled); ok {
		actorStepSize, criticStepSize := scheduled.StepSizes()
		line += fmt.Sprintf(", lr: %s, eps: %s",
			aurora.Magenta(fmt.Sprintf("%.4f|%.4f", actorStepSize,
				criticStepSize)),
			aurora.Magenta(fmt.Sprintf("%.4f", scheduled.Epsilon())),
		)
	}

	fmt.Fprintln(t.out, line)
}

// finalReport writes a summary report after training has finished
func (t *Trainer) finalReport() {
	if len(t.episodeReturns) == 0 {
		return
	}

	fmt.Fprintf(t.out, "%s episodes: %v, max reward: %s, "+
		"average reward: %s\n",
		aurora.Bold(aurora.Cyan("[FINAL]")),
		len(t.episodeReturns),
		aurora.Green(fmt.Sprintf("%.2f", floats.Max(t.episodeReturns))),
		aurora.Yellow(fmt.Sprintf("%.2f", stat.Mean(t.episodeReturns, nil))),
	)
}

// Save saves all the data cached by the Trackers to disk
func (t *Trainer) Save() {
	for _, tr := range t.trackers {
		tr.Save()
	}
}

// track sends the current timestep to each Tracker
func (t *Trainer) track(step ts.TimeStep) {
	for _, tr := range t.trackers {
		tr.Track(step)
	}
}

// checkpoint sends the current timestep to each Checkpointer
func (t *Trainer) checkpoint(step ts.TimeStep) error {
	for _, c := range t.checkpointers {
		if err := c.Checkpoint(step); err != nil {
			return err
		}
	}
	return nil
}

// trailing returns the last n elements of data, or all of data if it
// has fewer than n elements
func trailing(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}
