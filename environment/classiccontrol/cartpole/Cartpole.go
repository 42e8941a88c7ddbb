// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/environment"
	ts "github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/timestep"
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/utils/floatutils"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Episode failure thresholds
	PositionThreshold float64 = 2.4
	AngleThreshold    float64 = 12.0 * 2.0 * math.Pi / 360.0

	// Bounds (+/-) on state variables
	PositionBounds        float64 = 4.8
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = math.Pi
	AngularVelocityBounds float64 = math.MaxFloat64

	// Interval (+/-) that each state feature is drawn from on reset
	StartBounds float64 = 0.05

	// Discrete actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 1
)

// Cartpole implements the classic control environment Cartpole. A pole
// is attached to a cart which moves on a frictionless horizontal
// track, and the agent must keep the pole balanced upright for as long
// as possible by accelerating the cart.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity.
//
// Actions are discrete and consist of the direction of the force
// applied to the cart:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Accelerate right
//
// The reward is +1 on every step. Episodes end when the cart leaves
// the track, the pole falls past the failure angle, or the episode
// reaches maxSteps steps.
type Cartpole struct {
	env.Starter
	lastStep ts.TimeStep
	maxSteps int

	gravity        float64
	forceMag       float64
	poleMass       float64
	halfPoleLength float64
	cartMass       float64
	dt             float64

	positionBounds        r1.Interval
	speedBounds           r1.Interval
	angleBounds           r1.Interval
	angularVelocityBounds r1.Interval
}

// New constructs a new Cartpole environment with starting states drawn
// from the argument Starter. Episodes are cut off after maxSteps
// steps; maxSteps <= 0 means episodes are never cut off.
func New(s env.Starter, maxSteps int) (*Cartpole, ts.TimeStep) {
	positionBounds := r1.Interval{Min: -PositionBounds, Max: PositionBounds}
	speedBounds := r1.Interval{Min: -SpeedBounds, Max: SpeedBounds}
	angleBounds := r1.Interval{Min: -AngleBounds, Max: AngleBounds}
	angularVelocityBounds := r1.Interval{Min: -AngularVelocityBounds,
		Max: AngularVelocityBounds}

	cartpole := &Cartpole{
		Starter:  s,
		maxSteps: maxSteps,

		gravity:        Gravity,
		forceMag:       ForceMag,
		poleMass:       PoleMass,
		halfPoleLength: HalfPoleLength,
		cartMass:       CartMass,
		dt:             Dt,

		positionBounds:        positionBounds,
		speedBounds:           speedBounds,
		angleBounds:           angleBounds,
		angularVelocityBounds: angularVelocityBounds,
	}

	firstStep := cartpole.Reset()
	return cartpole, firstStep
}

// NewDefault constructs a new Cartpole environment with the
// conventional uniform starting state distribution and episode cutoff
func NewDefault(seed uint64) (*Cartpole, ts.TimeStep) {
	bounds := make([]r1.Interval, 4)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: -StartBounds, Max: StartBounds}
	}
	starter := env.NewUniformStarter(bounds, seed)

	return New(starter, 500)
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() ts.TimeStep {
	state := c.Start()
	validateState(state, c.positionBounds, c.speedBounds, c.angleBounds,
		c.angularVelocityBounds)

	startStep := ts.New(ts.First, 0, state, 0)
	c.lastStep = startStep

	return startStep
}

// ActionSpec returns the action specification of the environment
func (c *Cartpole) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Cartpole) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(4, nil)

	lower := []float64{c.positionBounds.Min, c.speedBounds.Min,
		c.angleBounds.Min, c.angularVelocityBounds.Min}
	lowerBound := mat.NewVecDense(4, lower)

	upper := []float64{c.positionBounds.Max, c.speedBounds.Max,
		c.angleBounds.Max, c.angularVelocityBounds.Max}
	upperBound := mat.NewVecDense(4, upper)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

// Step takes one environmental step given the argument action and
// returns the next timestep
func (c *Cartpole) Step(action int) (ts.TimeStep, error) {
	if action < MinDiscreteAction || action > MaxDiscreteAction {
		return ts.TimeStep{}, fmt.Errorf("step: illegal action %v "+
			"∉ [%v, %v]", action, MinDiscreteAction, MaxDiscreteAction)
	}

	// Get state variables
	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	// Magnify the action force in the appropriate direction
	force := c.forceMag
	if action == 0 {
		force = -c.forceMag
	}

	// Calculate physical variables to determine the next state
	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := c.poleMass + c.cartMass
	poleMassLength := c.poleMass * c.halfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (c.gravity*sinTheta - cosTheta*temp) / (c.halfPoleLength *
		(4.0/3.0 - c.poleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	// Update state variables using Euler kinematic integration
	x += c.dt * xDot
	x = floatutils.Clip(x, c.positionBounds.Min, c.positionBounds.Max)

	xDot += c.dt * xAcc

	th += c.dt * thDot
	th = normalizeAngle(th, c.angleBounds)

	thDot += c.dt * thAcc

	newState := mat.NewVecDense(4, []float64{x, xDot, th, thDot})

	stepType := ts.Mid
	if c.terminal(newState) ||
		(c.maxSteps > 0 && c.lastStep.Number+1 >= c.maxSteps) {
		stepType = ts.Last
	}

	nextStep := ts.New(stepType, 1.0, newState, c.lastStep.Number+1)
	c.lastStep = nextStep

	return nextStep, nil
}

// terminal returns whether a state ends the episode in failure
func (c *Cartpole) terminal(state mat.Vector) bool {
	return math.Abs(state.AtVec(0)) > PositionThreshold ||
		math.Abs(state.AtVec(2)) > AngleThreshold
}

// normalizeAngle normalizes an angle (in radians) to the argument
// bounds
func normalizeAngle(th float64, angleBounds r1.Interval) float64 {
	if angleBounds.Max != math.Pi || angleBounds.Min != -math.Pi {
		panic(fmt.Sprintf("angles can only be normalized to [-π, π], "+
			"given %v", angleBounds))
	}

	th = math.Mod(th+math.Pi, 2*math.Pi)
	if th < 0 {
		th += 2 * math.Pi
	}
	return th - math.Pi
}

// validateState ensures that a state observation is within the
// physical bounds of the Cartpole environment
func validateState(obs mat.Vector, positionBounds, speedBounds, angleBounds,
	angularVelocityBounds r1.Interval) {
	bounds := []r1.Interval{positionBounds, speedBounds, angleBounds,
		angularVelocityBounds}
	names := []string{"position", "speed", "angle", "angular velocity"}

	for i, bound := range bounds {
		if obs.AtVec(i) < bound.Min || obs.AtVec(i) > bound.Max {
			panic(fmt.Sprintf("%v %v is not within bounds %v", names[i],
				obs.AtVec(i), bound))
		}
	}
}
