package eclipse

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func TestMaxEigenModulus(t *testing.T) {
	λ, err := MaxEigenModulus(mat.NewDense(2, 2, []float64{0, 1, -4, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(λ, 2, 1e-12) {
		t.Fatalf("largest modulus %f != 2", λ)
	}
	λ, err = MaxEigenModulus(mat.NewDense(2, 2, []float64{-3, 0, 0, 1}))
	if err != nil || !scalar.EqualWithinAbs(λ, 3, 1e-12) {
		t.Fatalf("largest modulus %f != 3 (%v)", λ, err)
	}
}

func TestGravityGradient(t *testing.T) {
	A := gravityGradient([]float64{0.3, -1, 2}, []float64{1.5, 0.2, -0.7}, 2.5)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !scalar.EqualWithinAbs(A.At(i, j), A.At(j, i), 1e-15) {
				t.Fatalf("gradient is not symmetric at (%d, %d)", i, j)
			}
		}
	}
	if z := gravityGradient([]float64{1, 1, 1}, []float64{1, 1, 1}, 1); mat.Norm(z, 1) != 0 {
		t.Fatal("coincident bodies should have a zero gradient")
	}
}

func TestJacobian(t *testing.T) {
	a := NewBody("a", 1, 0, []float64{0, 0, 0}, []float64{0, 0, 0})
	b := NewBody("b", 2, 0, []float64{1, 0, 0}, []float64{0, 0, 0})
	sys, err := NewSystem([]Body{a, b}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	J := Jacobian(sys, 1)
	if r, c := J.Dims(); r != 12 || c != 12 {
		t.Fatalf("unexpected Jacobian dimensions %dx%d", r, c)
	}
	for i := 0; i < 2; i++ {
		for k := 0; k < 3; k++ {
			if J.At(6*i+k, 6*i+3+k) != 1 {
				t.Fatal("the position derivative is the velocity")
			}
		}
	}
	// Acceleration of a with respect to b, and to itself.
	if J.At(3, 6) != -4 || J.At(4, 7) != 2 || J.At(3, 0) != 4 || J.At(4, 1) != -2 {
		t.Fatalf("unexpected gradient blocks\n%v", mat.Formatted(J))
	}
	// A common translation does not change any acceleration.
	u := mat.NewVecDense(12, []float64{0.1, -0.4, 2, 0, 0, 0, 0.1, -0.4, 2, 0, 0, 0})
	var acc mat.VecDense
	acc.MulVec(J, u)
	for _, row := range []int{3, 4, 5, 9, 10, 11} {
		if !scalar.EqualWithinAbs(acc.AtVec(row), 0, 1e-14) {
			t.Fatalf("row %d = %e under translation", row, acc.AtVec(row))
		}
	}
}

func TestStableStep(t *testing.T) {
	u := DefaultUnits
	sun := NewBody(Sun.Name, u.GM(Sun.GM), u.Length(Sun.Radius), []float64{0, 0, 0}, []float64{0, 0, 0})
	earth := NewBody(Earth.Name, u.GM(Earth.GM), u.Length(Earth.Radius), []float64{1, 0, 0}, []float64{0, 0, 0})
	moon := NewBody(Moon.Name, u.GM(Moon.GM), u.Length(Moon.Radius), []float64{1 + u.Length(384400), 0, 0}, []float64{0, 0, 0})
	sys, err := NewSystem([]Body{sun, earth, moon}, nil, Sun.Name)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	sim := NewSimulation(sys, DefaultConstants(), testEpoch, 1, 10, nil, m)
	st, err := sim.StableStep()
	if err != nil {
		t.Fatal(err)
	}
	// The Earth-Moon pair dominates, around 0.0135 per hour.
	if !st.Stable() || st.Ratio <= 0 || st.Ratio > 0.05 {
		t.Fatalf("unexpected stability %+v", st)
	}
	if st.Ratio != st.MaxEigen || !st.DT.Equal(testEpoch) {
		t.Fatalf("a one hour step has a ratio equal to the eigenvalue: %+v", st)
	}
	if g := testutil.ToFloat64(m.StabilityBound); g != st.Ratio {
		t.Fatalf("gauge %f != %f", g, st.Ratio)
	}
	if (Stability{Ratio: 3}).Stable() {
		t.Fatal("3 is outside the RK4 stability region")
	}
}

func TestScanStability(t *testing.T) {
	sim := NewSimulation(sunEarth(t), DefaultConstants(), testEpoch, 1, 10, nil, nil)
	scan, err := ScanStability(context.Background(), sim, 3, 24)
	if err != nil {
		t.Fatal(err)
	}
	if len(scan) != 3 {
		t.Fatalf("%d samples", len(scan))
	}
	for i, st := range scan {
		if !st.DT.Equal(testEpoch.Add(time.Duration(24*i) * time.Hour)) {
			t.Fatalf("sample %d at %s", i, st.DT)
		}
		if !st.Stable() {
			t.Fatalf("sample %d is unstable: %+v", i, st)
		}
	}
	if sim.Elapsed() != 48 {
		t.Fatalf("the simulation advanced %f hours", sim.Elapsed())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scan, err = ScanStability(ctx, sim, 3, 1)
	if !errors.Is(err, context.Canceled) || len(scan) != 1 {
		t.Fatalf("expected one sample and the cancellation, got %d %v", len(scan), err)
	}
}
