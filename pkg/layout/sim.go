package layout

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/forcelayout/declutter/pkg/errors"
)

// =============================================================================
// Outcome
// =============================================================================

// Outcome is the state of a simulation run. Running transitions into exactly
// one of the three terminal states, which differ only in the reason reported
// through the engine services.
type Outcome uint8

const (
	// Running means the step loop should continue.
	Running Outcome = iota
	// Settled means mean speed and RMS force fell under their thresholds
	// after the minimum step count.
	Settled
	// Canceled means cooperative cancellation was observed at a step start.
	Canceled
	// StepLimitReached means the hard step cap fired before settling.
	StepLimitReached
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Settled:
		return "settled"
	case Canceled:
		return "canceled"
	case StepLimitReached:
		return "step limit reached"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Stopped reports whether the outcome is terminal.
func (o Outcome) Stopped() bool { return o != Running }

// ProgressIndeterminate is the fraction passed to [Services.PostProgress]
// when completion cannot be estimated.
const ProgressIndeterminate = -1.0

// =============================================================================
// Simulation
// =============================================================================

// Simulation owns the per-step mutation of one graph's kinematic state. One
// goroutine drives Init and Step; Cancel may be called from anywhere. The
// simulation spawns no goroutines and never blocks: each step is fully
// synchronous and recomputes forces from scratch, so an abandoned loop
// leaves no stale partial state behind.
type Simulation struct {
	graph  *Graph
	params Params
	tables forceTables
	svc    Services
	queue  *SampleQueue

	step     int
	outcome  Outcome
	canceled atomic.Bool

	// Carried from the latest step for convergence and diagnostics.
	rmsForce      float64
	meanSpeed     float64
	clampFraction float64
}

// NewSimulation pairs a simulation with the graph whose state it will own.
// Zero-valued params fields are defaulted; out-of-range values fail with an
// INVALID_PARAM error. A nil svc runs headless via [NoopServices].
func NewSimulation(g *Graph, p Params, svc Services) (*Simulation, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph is required")
	}
	if err := p.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if svc == nil {
		svc = NoopServices{}
	}
	return &Simulation{
		graph:  g,
		params: p,
		tables: compileTables(p),
		svc:    svc,
		queue:  newSampleQueue(p.QueueCapacity),
	}, nil
}

// Graph returns the graph this simulation mutates.
func (s *Simulation) Graph() *Graph { return s.graph }

// Params returns the validated parameter set in effect.
func (s *Simulation) Params() Params { return s.params }

// Samples returns the diagnostics queue an observer drains.
func (s *Simulation) Samples() *SampleQueue { return s.queue }

// Outcome returns the current run state.
func (s *Simulation) Outcome() Outcome { return s.outcome }

// StepCount returns the number of steps run so far.
func (s *Simulation) StepCount() int { return s.step }

// MeanSpeed returns the mean node speed of the latest step.
func (s *Simulation) MeanSpeed() float64 { return s.meanSpeed }

// RMSForce returns the RMS force magnitude of the latest step.
func (s *Simulation) RMSForce() float64 { return s.rmsForce }

// Init prepares a fresh run: step counter, run state, cancellation flag,
// and carried statistics reset, buffered samples from a previous run
// discarded, and an indeterminate progress message posted.
func (s *Simulation) Init(ctx context.Context) {
	s.step = 0
	s.outcome = Running
	s.canceled.Store(false)
	s.rmsForce, s.meanSpeed, s.clampFraction = 0, 0, 0
	s.queue.reset()
	s.svc.PostProgress(ProgressIndeterminate, "decluttering layout")
}

// Step runs one physics update and reports whether to keep going.
//
// Cancellation (the cooperative flag or the context) is checked first,
// before any work; a step that starts always runs to completion. The update
// is force accumulation, then integration, then the convergence rule, then
// on every SampleEvery-th step a diagnostics sample and a progress post.
func (s *Simulation) Step(ctx context.Context) bool {
	if s.outcome != Running {
		return false
	}
	if s.canceled.Load() || ctx.Err() != nil {
		s.stop(Canceled)
		return false
	}

	s.step++
	s.rmsForce = s.accumulate()
	s.integrate()
	next := s.decide()

	if s.step%s.params.SampleEvery == 0 {
		s.queue.push(s.snapshot())
		s.svc.PostProgress(float64(s.step)/float64(s.params.MaxSteps),
			fmt.Sprintf("decluttering layout (step %d)", s.step))
		s.svc.RequestRefresh()
	}

	if next != Running {
		s.stop(next)
		return false
	}
	return true
}

// decide applies the convergence rule to the step just completed: settled
// once past MinSteps with mean speed and RMS force both under threshold,
// stopped at the MaxSteps cap, otherwise keep running. Settling wins when
// both fire on the same step.
func (s *Simulation) decide() Outcome {
	switch {
	case s.step >= s.params.MinSteps &&
		s.meanSpeed < s.params.SettleVelocity() &&
		s.rmsForce < s.params.SettleForce:
		return Settled
	case s.step >= s.params.MaxSteps:
		return StepLimitReached
	default:
		return Running
	}
}

// Cancel requests cooperative cancellation and posts a message. The flag is
// observed at the start of the next step; a step already under way runs to
// completion. Safe to call from any goroutine.
func (s *Simulation) Cancel(ctx context.Context) {
	s.canceled.Store(true)
	s.svc.PostMessage("cancellation requested")
}

// stop records the terminal outcome and reports its reason.
func (s *Simulation) stop(o Outcome) {
	s.outcome = o
	switch o {
	case Settled:
		s.svc.PostMessage(fmt.Sprintf("layout settled after %d steps", s.step))
	case Canceled:
		s.svc.PostMessage(fmt.Sprintf("layout canceled at step %d", s.step))
	case StepLimitReached:
		s.svc.PostMessage(fmt.Sprintf("layout stopped at step limit (%d)", s.params.MaxSteps))
	}
	s.svc.RequestRefresh()
}
