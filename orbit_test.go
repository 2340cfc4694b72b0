package eclipse

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestCircularOrbitEquatorial(t *testing.T) {
	o := NewCircularOrbit([]float64{1, 0, 0}, []float64{0, 1, 0}, 1)
	a, ω, i, _, _ := o.Elements()
	if !scalar.EqualWithinAbs(a, 1, 1e-12) || !scalar.EqualWithinAbs(ω, 1, 1e-12) || i != 0 {
		t.Fatalf("invalid elements: %s", o)
	}
	if !scalar.EqualWithinAbs(o.Period(), 2*math.Pi, 1e-12) {
		t.Fatalf("invalid period %f", o.Period())
	}
	for _, tc := range []struct {
		t   float64
		exp []float64
	}{
		{0, []float64{1, 0, 0}},
		{math.Pi / 2, []float64{0, 1, 0}},
		{math.Pi, []float64{-1, 0, 0}},
		{3 * math.Pi / 2, []float64{0, -1, 0}},
	} {
		if R := o.Position(tc.t); !vectorsEqual(R, tc.exp) {
			t.Fatalf("t=%f: %v != %v", tc.t, R, tc.exp)
		}
	}
}

func TestCircularOrbitInclined(t *testing.T) {
	μ := 2.0
	r0 := []float64{1, 2, 2} // |r0| = 3
	speed := math.Sqrt(μ / 3)
	v0 := scaled(speed/3, []float64{2, -2, 1})
	o := NewCircularOrbit(r0, v0, μ)
	a, _, _, _, _ := o.Elements()
	if !scalar.EqualWithinAbs(a, 3, 1e-12) {
		t.Fatalf("radius %f != 3", a)
	}
	if R := o.Position(0); !vectorsEqual(R, r0) {
		t.Fatalf("initial position %v != %v", R, r0)
	}
	// A quarter period later the body is along the initial velocity.
	if R := o.Position(o.Period() / 4); !floats.EqualApprox(R, scaled(3, unit(v0)), 1e-9) {
		t.Fatalf("quarter period position %v", R)
	}
	if R := o.Position(o.Period()); !floats.EqualApprox(R, r0, 1e-9) {
		t.Fatalf("orbit is not periodic: %v", R)
	}
	// The prescribed motion starts with the initial velocity.
	h := 1e-6
	V := scaled(1/(2*h), sub(o.Position(h), o.Position(-h)))
	if !floats.EqualApprox(V, v0, 1e-6) {
		t.Fatalf("initial velocity %v != %v", V, v0)
	}
	for k := 0.; k < 10; k++ {
		if R := o.Position(k * 1.7); !scalar.EqualWithinAbs(norm(R), 3, 1e-12) {
			t.Fatalf("orbit is not circular: |R|=%f", norm(R))
		}
	}
}

func TestCircularOrbitCenter(t *testing.T) {
	o := NewCircularOrbit([]float64{1, 0, 0}, []float64{0, 1, 0}, 1)
	o.Center = []float64{10, -5, 2}
	if R := o.Position(math.Pi / 2); !vectorsEqual(R, []float64{10, -4, 2}) {
		t.Fatalf("position about the center %v", R)
	}
}

func TestCircularOrbitRadial(t *testing.T) {
	o := NewCircularOrbit([]float64{1, 0, 0}, []float64{2, 0, 0}, 1)
	if R := o.Position(1); finite(R) {
		t.Fatalf("radial state should yield NaN positions, got %v", R)
	}
}
