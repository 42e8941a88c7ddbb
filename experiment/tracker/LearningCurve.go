package tracker

import (
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
)

// SmoothingWindow is the number of trailing episodes averaged into
// the smoothed series of a LearningCurve
const SmoothingWindow = 10

// LearningCurve tracks episodic returns and renders them as an HTML
// line chart with two series: the raw return of each episode and the
// trailing average over the last SmoothingWindow episodes
type LearningCurve struct {
	title          string
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewLearningCurve creates and returns a new *LearningCurve Tracker
// which renders its chart to the argument HTML file
func NewLearningCurve(title, filename string) *LearningCurve {
	return &LearningCurve{
		title:        title,
		lastTimeStep: -1,
		filename:     filename,
	}
}

// Track tracks the rewards seen on a timestep, accumulating them into
// per-episode returns.
//
// Track panics if it is called for non-sequential timesteps
func (l *LearningCurve) Track(step ts.TimeStep) {
	if l.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("warning: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			l.lastTimeStep, step.Number)
		panic(msg)
	}

	l.currentReturn += step.Reward
	if !step.Last() {
		l.lastTimeStep = step.Number
	} else {
		l.episodeReturns = append(l.episodeReturns, l.currentReturn)
		l.currentReturn = 0.0
		l.lastTimeStep = -1
	}
}

// Save renders the learning curve to the Tracker's HTML file
func (l *LearningCurve) Save() {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: l.title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	episodes := make([]string, len(l.episodeReturns))
	rewards := make([]opts.LineData, len(l.episodeReturns))
	smoothed := make([]opts.LineData, len(l.episodeReturns))
	for i, ret := range l.episodeReturns {
		episodes[i] = fmt.Sprintf("%d", i)
		rewards[i] = opts.LineData{Value: ret}
		smoothed[i] = opts.LineData{Value: l.trailingAverage(i)}
	}

	line.SetXAxis(episodes)
	line.AddSeries("reward", rewards)
	line.AddSeries(fmt.Sprintf("reward_smooth%d", SmoothingWindow), smoothed)

	page := components.NewPage()
	page.AddCharts(line)

	f, err := os.Create(l.filename)
	if err != nil {
		log.Fatalf("could not open chart file: %v", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		log.Fatalf("could not render learning curve: %v", err)
	}
}

// trailingAverage returns the average return over the SmoothingWindow
// episodes ending at episode i
func (l *LearningCurve) trailingAverage(i int) float64 {
	start := i - SmoothingWindow + 1
	if start < 0 {
		start = 0
	}

	total := 0.0
	for _, ret := range l.episodeReturns[start : i+1] {
		total += ret
	}
	return total / float64(i+1-start)
}
