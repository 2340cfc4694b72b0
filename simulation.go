package eclipse

import (
	"context"
	"fmt"
	"time"

	"github.com/RendaLiu/Solar-Eclipse/integrator"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/RendaLiu/Solar-Eclipse"

// ErrDiverged is returned when the integration produced a non finite state.
var ErrDiverged = errors.New("integration diverged")

// StepError locates a failure of the integration.
type StepError struct {
	Step uint64  // Index of the step which failed.
	Time float64 // Elapsed time at the start of that step, in time units.
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%g): %s", e.Step, e.Time, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Simulation integrates the primaries of a System with RK4 and records their positions.
// It implements integrator.Integrable.
type Simulation struct {
	System    *System
	Constants Constants
	Epoch     time.Time // Wall clock time of the initial state.
	StepSize  float64   // Coarse step, in time units.
	steps     uint64    // Steps to perform per Run.
	committed uint64    // Steps committed since the initial state.
	first     uint64    // Value of committed when the current Run started.
	forces    ForceModel
	masses    []float64
	traj      *Trajectory
	ctx       context.Context
	err       error
	logger    kitlog.Logger
	metrics   *Metrics
	histChan  chan<- Snapshot
}

// NewSimulation returns a simulation performing `steps` steps of size `step` per Run.
// A nil logger disables logging and nil metrics disable instrumentation.
func NewSimulation(sys *System, c Constants, epoch time.Time, step float64, steps int, logger kitlog.Logger, m *Metrics) *Simulation {
	if step <= 0 {
		panic(fmt.Errorf("step must be positive, got %f", step))
	}
	if steps < 0 {
		steps = 0
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	masses := make([]float64, len(sys.primaries))
	for i, b := range sys.primaries {
		masses[i] = b.Mass
	}
	return &Simulation{System: sys, Constants: c, Epoch: epoch.UTC(), StepSize: step, steps: uint64(steps),
		forces: ForceModel{G: c.G}, masses: masses, ctx: context.Background(), logger: logger, metrics: m}
}

// StreamTo sends every recorded snapshot on ch during the next Run. The channel is
// closed when that Run returns.
func (s *Simulation) StreamTo(ch chan<- Snapshot) {
	s.histChan = ch
}

// Elapsed returns the integrated time, in time units.
func (s *Simulation) Elapsed() float64 {
	return float64(s.committed) * s.StepSize
}

// CurrentDT returns the wall clock time of the current state.
func (s *Simulation) CurrentDT() time.Time {
	return s.Epoch.Add(s.Constants.Units.Duration(s.Elapsed()))
}

// Run performs the configured number of steps from the current state, recording the
// positions of the primaries before each step. On cancellation or divergence, the partial
// trajectory is returned along with the error.
func (s *Simulation) Run(ctx context.Context) (*Trajectory, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Simulation.Run",
		trace.WithAttributes(attribute.Int64("steps", int64(s.steps)), attribute.Float64("step", s.StepSize)))
	defer span.End()
	if ch := s.histChan; ch != nil {
		defer func() {
			close(ch)
			s.histChan = nil
		}()
	}

	s.ctx = ctx
	s.err = nil
	s.first = s.committed
	s.traj = NewTrajectory(s.System.Names(), s.CurrentDT(), s.StepSize, s.Constants.Units, int(s.steps))
	level.Info(s.logger).Log("subsys", "integrator", "status", "starting", "epoch", s.traj.Epoch, "steps", s.steps, "step", s.StepSize)

	start := time.Now()
	iterNum, _, err := integrator.NewRK4(s.Elapsed(), s.StepSize, s).Solve()
	if err == nil {
		err = s.err
	}
	if s.metrics != nil {
		s.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		level.Error(s.logger).Log("subsys", "integrator", "status", "aborted", "iterations", iterNum, "err", err)
		return s.traj, err
	}
	level.Info(s.logger).Log("subsys", "integrator", "status", "finished", "recorded", s.traj.Len(), "duration", time.Since(start))
	return s.traj, nil
}

// Step performs a single RK4 step without recording it.
func (s *Simulation) Step() error {
	s.err = nil
	s.System.placeAuxiliaries(s.Elapsed())
	if _, _, err := integrator.NewRK4(s.Elapsed(), s.StepSize, singleStep{s}).Solve(); err != nil {
		return err
	}
	return s.err
}

// singleStep stops the integration after one step.
type singleStep struct {
	*Simulation
}

func (o singleStep) Stop(i uint64) bool {
	return i > 0 || o.err != nil
}

// Stop implements the stop call of the integrator. It performs the recording work which
// precedes each step: the auxiliary bodies are moved to their prescribed position and the
// positions of the primaries are appended to the trajectory.
func (s *Simulation) Stop(i uint64) bool {
	if s.err != nil {
		return true
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return true
	}
	k := s.committed - s.first
	if k >= s.steps {
		return true
	}
	t := s.Elapsed()
	s.System.placeAuxiliaries(t)
	R := make([][]float64, len(s.System.primaries))
	for j, b := range s.System.primaries {
		R[j] = b.R
	}
	if err := s.traj.Append(float64(k)*s.StepSize, R); err != nil {
		s.err = err
		return true
	}
	if s.histChan != nil {
		s.histChan <- Snapshot{DT: s.CurrentDT(), Names: s.traj.names, R: R}
	}
	if every := s.steps / 10; every > 0 && k%every == 0 {
		level.Debug(s.logger).Log("subsys", "integrator", "dt", s.CurrentDT(), "progress", fmt.Sprintf("%.0f%%", 100*float64(k)/float64(s.steps)))
	}
	return false
}

// GetState returns the position and velocity of every primary, packed as [r, v] pairs.
func (s *Simulation) GetState() []float64 {
	state := make([]float64, 6*len(s.System.primaries))
	for i, b := range s.System.primaries {
		copy(state[6*i:], b.R)
		copy(state[6*i+3:], b.V)
	}
	return state
}

// SetState commits the state of the primaries. A non finite state is not committed and
// aborts the integration.
func (s *Simulation) SetState(i uint64, state []float64) {
	if !finite(state) {
		s.err = &StepError{Step: s.committed, Time: s.Elapsed(), Err: ErrDiverged}
		return
	}
	for j := range s.System.primaries {
		b := &s.System.primaries[j]
		b.R = []float64{state[6*j], state[6*j+1], state[6*j+2]}
		b.V = []float64{state[6*j+3], state[6*j+4], state[6*j+5]}
	}
	s.committed++
	if s.metrics != nil {
		s.metrics.Steps.Inc()
	}
}

// Func returns the time derivative of the packed state: velocities and the accelerations
// from the force model. Auxiliary bodies stay where Stop placed them during a step.
func (s *Simulation) Func(t float64, state []float64) []float64 {
	n := len(s.masses)
	R := make([][]float64, n)
	for i := range R {
		R[i] = state[6*i : 6*i+3]
	}
	F := s.forces.Forces(R, s.masses, s.System.aux)
	fDot := make([]float64, len(state))
	for i := 0; i < n; i++ {
		copy(fDot[6*i:6*i+3], state[6*i+3:6*i+6])
		for k := 0; k < 3; k++ {
			fDot[6*i+3+k] = F[i][k] / s.masses[i]
		}
	}
	return fDot
}
