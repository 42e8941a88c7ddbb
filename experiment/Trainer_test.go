package experiment_test

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/agent/nonlinear/discrete/actorcritic"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment/chain"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/experiment"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/experiment/tracker"
	ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// stubEnv runs fixed-length episodes with a reward of +1 per step
type stubEnv struct {
	episodeLength int
	lastStep      ts.TimeStep
}

func (s *stubEnv) Reset() ts.TimeStep {
	s.lastStep = ts.New(ts.First, 0, mat.NewVecDense(1, nil), 0)
	return s.lastStep
}

func (s *stubEnv) Step(action int) (ts.TimeStep, error) {
	stepType := ts.Mid
	if s.lastStep.Number+1 >= s.episodeLength {
		stepType = ts.Last
	}
	s.lastStep = ts.New(stepType, 1, mat.NewVecDense(1, nil),
		s.lastStep.Number+1)
	return s.lastStep, nil
}

func (s *stubEnv) ObservationSpec() environment.Spec {
	bound := mat.NewVecDense(1, nil)
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Observation, bound, bound, environment.Continuous)
}

func (s *stubEnv) ActionSpec() environment.Spec {
	return environment.NewSpec(mat.NewVecDense(1, nil), environment.Action,
		mat.NewVecDense(1, nil), mat.NewVecDense(1, []float64{1}),
		environment.Discrete)
}

// stubAgent is a Scheduled agent that learns nothing and records the
// schedule values pushed to it
type stubAgent struct {
	epsilon         float64
	epsilonHistory  []float64
	actorStepSize   float64
	criticStepSize  float64
	observedSteps   int
	endedEpisodes   int
}

func newStubAgent() *stubAgent {
	return &stubAgent{epsilon: 0.5, actorStepSize: 0.01,
		criticStepSize: 0.001}
}

func (s *stubAgent) ObserveFirst(ts.TimeStep)       {}
func (s *stubAgent) Observe(int, ts.TimeStep)       { s.observedSteps++ }
func (s *stubAgent) Step() error                    { return nil }
func (s *stubAgent) EndEpisode()                    { s.endedEpisodes++ }
func (s *stubAgent) SelectAction(ts.TimeStep) int   { return 0 }
func (s *stubAgent) Eval()                          {}
func (s *stubAgent) Train()                         {}
func (s *stubAgent) IsEval() bool                   { return false }
func (s *stubAgent) Epsilon() float64               { return s.epsilon }
func (s *stubAgent) StepSizeDecays() (float64, float64) {
	return 0.999, 0.99
}

func (s *stubAgent) SetEpsilon(epsilon float64) {
	s.epsilon = epsilon
	s.epsilonHistory = append(s.epsilonHistory, epsilon)
}

func (s *stubAgent) SetStepSizes(actor, critic float64) {
	s.actorStepSize = actor
	s.criticStepSize = critic
}

func (s *stubAgent) StepSizes() (float64, float64) {
	return s.actorStepSize, s.criticStepSize
}

func newTrainer(t *testing.T, agent *stubAgent, config experiment.Config,
	trackers []tracker.Tracker) *experiment.Trainer {
	t.Helper()

	trainer, err := experiment.New(&stubEnv{episodeLength: 5}, agent, config,
		trackers, nil)
	require.NoError(t, err)
	trainer.SetOutput(io.Discard)

	return trainer
}

func TestRunRunsExactlyConfiguredEpisodes(t *testing.T) {
	agent := newStubAgent()
	trainer := newTrainer(t, agent, experiment.Config{
		Episodes:          20,
		AnnealingEpisodes: 10,
		EpsilonFloor:      0.01,
	}, nil)

	returns, err := trainer.Run()
	require.NoError(t, err)

	require.Len(t, returns, 20)
	for _, ret := range returns {
		require.Equal(t, 5.0, ret)
	}
	require.Equal(t, 20, agent.endedEpisodes)
	require.Equal(t, 20*5, agent.observedSteps)
}

func TestEpsilonAnnealsLinearlyToFloor(t *testing.T) {
	agent := newStubAgent()
	trainer := newTrainer(t, agent, experiment.Config{
		Episodes:          20,
		AnnealingEpisodes: 10,
		EpsilonFloor:      0.01,
	}, nil)

	_, err := trainer.Run()
	require.NoError(t, err)
	require.Len(t, agent.epsilonHistory, 20)

	// Each episode lowers epsilon by (0.5 - 0.01) / 10 = 0.049 until
	// the floor is reached, after which it is clamped
	for i := 0; i < 10; i++ {
		want := 0.5 - float64(i+1)*0.049
		require.InDelta(t, want, agent.epsilonHistory[i], 1e-12)
	}
	for i := 10; i < 20; i++ {
		require.Equal(t, 0.01, agent.epsilonHistory[i])
	}
}

func TestStepSizesDecayMultiplicatively(t *testing.T) {
	agent := newStubAgent()
	trainer := newTrainer(t, agent, experiment.Config{
		Episodes:          30,
		AnnealingEpisodes: 10,
		EpsilonFloor:      0.01,
	}, nil)

	_, err := trainer.Run()
	require.NoError(t, err)

	actor, critic := agent.StepSizes()
	require.InDelta(t, 0.01*math.Pow(0.999, 30), actor, 1e-12)
	require.InDelta(t, 0.001*math.Pow(0.99, 30), critic, 1e-12)
}

func TestReportIncludesRecentReturnsAndSchedules(t *testing.T) {
	agent := newStubAgent()
	trainer := newTrainer(t, agent, experiment.Config{
		Episodes:       4,
		EpsilonFloor:   0.01,
		ReportInterval: 2,
	}, nil)

	var out bytes.Buffer
	trainer.SetOutput(&out)

	_, err := trainer.Run()
	require.NoError(t, err)

	report := out.String()
	require.Contains(t, report, "best: ")
	require.Contains(t, report, "avg: ")
	require.Contains(t, report, "recent: [5.00 5.00]")

	// The stub decays 0.01 and 0.001 by 0.999 and 0.99 per episode,
	// which still rounds to the initial step sizes at four decimals.
	// No annealing episodes are configured, so epsilon stays put.
	require.Contains(t, report, "lr: ")
	require.Contains(t, report, "0.0100|0.0010")
	require.Contains(t, report, "eps: ")
	require.Contains(t, report, "0.5000")
}

func TestTrackersReceiveEveryEpisode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "returns.bin")
	returns := tracker.NewReturn(file)

	agent := newStubAgent()
	trainer := newTrainer(t, agent, experiment.Config{
		Episodes: 3,
	}, []tracker.Tracker{returns})

	_, err := trainer.Run()
	require.NoError(t, err)
	trainer.Save()

	data := tracker.LoadData(file)
	require.Equal(t, []float64{5, 5, 5}, data)
}

func TestTrainActorCriticOnChain(t *testing.T) {
	env, _ := chain.New(2, 50)

	agentConf := actorcritic.DefaultConfig()
	agentConf.BatchSize = 8
	agent, err := actorcritic.New(env, agentConf, 42)
	require.NoError(t, err)

	trainer, err := experiment.New(env, agent, experiment.Config{
		Episodes:          10,
		AnnealingEpisodes: 5,
		EpsilonFloor:      0.01,
	}, nil, nil)
	require.NoError(t, err)
	trainer.SetOutput(io.Discard)

	returns, err := trainer.Run()
	require.NoError(t, err)

	require.Len(t, returns, 10)
	total := 0.0
	for _, ret := range returns {
		require.False(t, math.IsNaN(ret))
		require.GreaterOrEqual(t, ret, 0.0)
		total += ret
	}

	// Even a mostly random policy collects some reward on the chain
	require.Greater(t, total, 0.0)
	require.Equal(t, 10*50, trainer.Steps())
	require.Equal(t, 0.01, agent.Epsilon())

	actor, critic := agent.StepSizes()
	require.InDelta(t, 0.01*math.Pow(0.999, 10), actor, 1e-12)
	require.InDelta(t, 0.001*math.Pow(0.999, 10), critic, 1e-12)
}

func TestConfigValidation(t *testing.T) {
	agent := newStubAgent()

	_, err := experiment.New(&stubEnv{episodeLength: 5}, agent,
		experiment.Config{Episodes: 0}, nil, nil)
	require.Error(t, err)

	_, err = experiment.New(&stubEnv{episodeLength: 5}, agent,
		experiment.Config{Episodes: 1, EpsilonFloor: 2}, nil, nil)
	require.Error(t, err)
}
