package integrator

import "fmt"

// RK4 defines a fixed step classical fourth order Runge-Kutta integrator.
type RK4 struct {
	X0         float64    // The initial x0.
	StepSize   float64    // The step size.
	Integrator Integrable // What is to be integrated.
}

// NewRK4 returns a new RK4 integrator instance.
func NewRK4(x0 float64, stepSize float64, inte Integrable) (r *RK4) {
	if stepSize <= 0 {
		panic("config StepSize must be positive")
	}
	if inte == nil {
		panic("config Integrator may not be nil")
	}
	r = &RK4{X0: x0, StepSize: stepSize, Integrator: inte}
	return
}

// Solve integrates until the integrable asks to stop.
// Returns the number of iterations performed and the last X_i, or an error if the ODE function
// returned a derivative which does not match the state.
func (r *RK4) Solve() (uint64, float64, error) {
	var (
		iterNum uint64
		xi      = r.X0
		h       = r.StepSize
		k       [4][]float64
		tState  []float64
	)
	// stage stores h*f(x, s) in dst.
	stage := func(dst []float64, x float64, s []float64) error {
		f := r.Integrator.Func(x, s)
		if len(f) != len(dst) {
			return fmt.Errorf("iteration %d: derivative of size %d for a state of size %d", iterNum, len(f), len(dst))
		}
		for i, y := range f {
			dst[i] = y * h
		}
		return nil
	}
	// shift stores s + c*d in tState.
	shift := func(s, d []float64, c float64) []float64 {
		for i := range s {
			tState[i] = s[i] + c*d[i]
		}
		return tState
	}

	for !r.Integrator.Stop(iterNum) {
		state := r.Integrator.GetState()
		if len(tState) != len(state) {
			for j := range k {
				k[j] = make([]float64, len(state))
			}
			tState = make([]float64, len(state))
		}
		if err := stage(k[0], xi, state); err != nil {
			return iterNum, xi, err
		}
		if err := stage(k[1], xi+h/2, shift(state, k[0], 0.5)); err != nil {
			return iterNum, xi, err
		}
		if err := stage(k[2], xi+h/2, shift(state, k[1], 0.5)); err != nil {
			return iterNum, xi, err
		}
		if err := stage(k[3], xi+h, shift(state, k[2], 1)); err != nil {
			return iterNum, xi, err
		}
		newState := make([]float64, len(state))
		for i := range newState {
			newState[i] = state[i] + (k[0][i]+k[3][i])/6 + (k[1][i]+k[2][i])/3
		}
		r.Integrator.SetState(iterNum, newState)

		xi += h
		iterNum++
	}
	return iterNum, xi, nil
}
