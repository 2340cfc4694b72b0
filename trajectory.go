package eclipse

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyTrajectory is returned when an operation needs at least one recorded step.
	ErrEmptyTrajectory = errors.New("empty trajectory")
	// ErrLengthMismatch is returned when parallel sequences differ in length.
	ErrLengthMismatch = errors.New("sequence lengths differ")
)

// Trajectory is the recorded position history of the primaries.
// Entry k of every body holds the state before the k-th integration step.
type Trajectory struct {
	Epoch     time.Time     // Wall clock time of entry 0.
	Step      float64       // Coarse step in time units.
	Units     Units         // Units of positions and times.
	Times     []float64     // Elapsed time of each entry, in time units.
	names     []string      // Body names in arena order.
	positions [][][]float64 // positions[body][step] = R
}

// NewTrajectory returns an empty trajectory for the named bodies.
func NewTrajectory(names []string, epoch time.Time, step float64, units Units, capacity int) *Trajectory {
	t := &Trajectory{Epoch: epoch, Step: step, Units: units, names: append([]string(nil), names...)}
	t.Times = make([]float64, 0, capacity)
	t.positions = make([][][]float64, len(names))
	for i := range t.positions {
		t.positions[i] = make([][]float64, 0, capacity)
	}
	return t
}

// Append records the positions (in the order of the trajectory names) at time tm.
func (t *Trajectory) Append(tm float64, R [][]float64) error {
	if len(R) != len(t.names) {
		return errors.Wrapf(ErrLengthMismatch, "%d positions for %d bodies", len(R), len(t.names))
	}
	t.Times = append(t.Times, tm)
	for i, r := range R {
		t.positions[i] = append(t.positions[i], append([]float64(nil), r...))
	}
	return nil
}

// Len returns the number of recorded entries.
func (t *Trajectory) Len() int {
	return len(t.Times)
}

// Names returns the recorded body names.
func (t *Trajectory) Names() []string {
	return append([]string(nil), t.names...)
}

// Body returns the ordered positions of the named body. The returned slice must not be modified.
func (t *Trajectory) Body(name string) ([][]float64, error) {
	for i, n := range t.names {
		if n == name {
			return t.positions[i], nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownBody, "%q not recorded", name)
}

// TimeAt converts a (fractional) coarse step index to wall clock time.
func (t *Trajectory) TimeAt(index float64) time.Time {
	return t.Epoch.Add(t.Units.Duration(index * t.Step))
}

// triple returns the Sun, Moon and Earth position sequences.
func (t *Trajectory) triple() (sun, moon, earth [][]float64, err error) {
	if sun, err = t.Body(Sun.Name); err != nil {
		return
	}
	if moon, err = t.Body(Moon.Name); err != nil {
		return
	}
	earth, err = t.Body(Earth.Name)
	return
}
