package eclipse

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

var (
	sunAt   = []float64{0, 0, 0}
	earthAt = []float64{1, 0, 0}
)

// moonSunward returns the Moon at d km from Earth towards the Sun, offset by y km laterally.
func moonSunward(d, y float64) []float64 {
	return []float64{1 - DefaultUnits.Length(d), DefaultUnits.Length(y), 0}
}

// moonBeyond returns the Moon at d km from Earth away from the Sun, offset by y km laterally.
func moonBeyond(d, y float64) []float64 {
	return []float64{1 + DefaultUnits.Length(d), DefaultUnits.Length(y), 0}
}

func TestKind(t *testing.T) {
	for _, k := range []Kind{None, Partial, Total, Annular, Penumbral} {
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Fatalf("could not parse %q: %s", k, err)
		}
	}
	if k, err := ParseKind(" Total "); err != nil || k != Total {
		t.Fatal("parsing should be case insensitive")
	}
	if k, err := ParseKind("none"); err != nil || k != None {
		t.Fatal("none should parse")
	}
	if _, err := ParseKind("hybrid"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if !Total.Central() || !Annular.Central() || Partial.Central() || Penumbral.Central() || None.Central() {
		t.Fatal("incorrect central kinds")
	}
	assertPanic(t, func() { _ = Kind(42).String() })
}

func TestRank(t *testing.T) {
	solar := NewSolarClassifier(DefaultGeometry()).Phases()
	if rank(solar, None) != 0 || rank(solar, Partial) != 1 || rank(solar, Total) != 2 || rank(solar, Annular) != 2 {
		t.Fatal("incorrect solar ranks")
	}
	lunar := NewLunarClassifier(DefaultGeometry(), LunarPolicy{Penumbral: true}).Phases()
	if rank(lunar, Penumbral) != 1 || rank(lunar, Partial) != 2 || rank(lunar, Total) != 3 {
		t.Fatal("incorrect lunar ranks")
	}
}

func TestGeometry(t *testing.T) {
	g := NewGeometry(Units{LengthKm: 1}, Sun, Earth, Moon)
	if g.Rs != Sun.Radius || g.Re != Earth.Radius || g.Rm != Moon.Radius {
		t.Fatalf("km geometry %+v", g)
	}
	g = DefaultGeometry()
	if g.Re != Earth.Radius/AU {
		t.Fatalf("radii must be in AU, got %+v", g)
	}
}

func TestSolarClassifier(t *testing.T) {
	c := NewSolarClassifier(DefaultGeometry())
	for _, tc := range []struct {
		d, y float64
		exp  Kind
	}{
		// Moon near perigee: Earth is within the umbra.
		{360000, 0, Total},
		{360000, 6000, Total},
		{360000, 6500, Partial},
		{360000, 9500, Partial},
		{360000, 10000, None},
		{360000, 20000, None},
		// Moon near apogee: the umbra apex falls short of Earth.
		{400000, 0, Annular},
		{400000, 6000, Annular},
		{400000, 6500, Partial},
		{400000, 9500, Partial},
		{400000, 12000, None},
	} {
		if k := c.Classify(sunAt, moonSunward(tc.d, tc.y), earthAt); k != tc.exp {
			t.Fatalf("d=%.0f y=%.0f: %q != %q", tc.d, tc.y, k, tc.exp)
		}
	}
	// Full moon.
	if k := c.Classify(sunAt, moonBeyond(384400, 0), earthAt); k != None {
		t.Fatalf("no solar eclipse at full moon, got %q", k)
	}
	// The classification only depends on relative positions.
	offset := []float64{-3, 7, 0.5}
	moon := moonSunward(360000, 3000)
	shift := func(v []float64) []float64 { return []float64{v[0] + offset[0], v[1] + offset[1], v[2] + offset[2]} }
	if k := c.Classify(shift(sunAt), shift(moon), shift(earthAt)); k != Total {
		t.Fatalf("translated configuration classified %q", k)
	}
	if c.Eclipsed() != "Sun" {
		t.Fatal("solar eclipses eclipse the Sun")
	}
}

func TestSolarClassifierEarthInsideUmbra(t *testing.T) {
	// A huge Earth engulfing the umbra apex is always in totality.
	g := DefaultGeometry()
	g.Re = DefaultUnits.Length(50000)
	c := NewSolarClassifier(g)
	if k := c.Classify(sunAt, moonSunward(400000, 0), earthAt); k != Total {
		t.Fatalf("expected total, got %q", k)
	}
}

func TestSolarClassifierApogeeSweep(t *testing.T) {
	c := NewSolarClassifier(DefaultGeometry())
	var seq []Kind
	for y := -20000.0; y <= 20000; y += 100 {
		k := c.Classify(sunAt, moonSunward(400000, y), earthAt)
		if len(seq) == 0 || seq[len(seq)-1] != k {
			seq = append(seq, k)
		}
	}
	exp := []Kind{None, Partial, Annular, Partial, None}
	if len(seq) != len(exp) {
		t.Fatalf("annular sweep went through %v", seq)
	}
	for i := range exp {
		if seq[i] != exp[i] {
			t.Fatalf("annular sweep went through %v", seq)
		}
	}
}

func TestLunarClassifier(t *testing.T) {
	c := NewLunarClassifier(DefaultGeometry(), LunarPolicy{})
	pen := NewLunarClassifier(DefaultGeometry(), LunarPolicy{Penumbral: true})
	for _, tc := range []struct {
		y        float64
		exp, pen Kind
	}{
		{0, Total, Total},
		{2800, Total, Total},
		{2900, Partial, Partial},
		{6300, Partial, Partial},
		{6400, None, Penumbral},
		{9900, None, Penumbral},
		{10000, None, None},
	} {
		moon := moonBeyond(384400, tc.y)
		if k := c.Classify(sunAt, moon, earthAt); k != tc.exp {
			t.Fatalf("y=%.0f: %q != %q", tc.y, k, tc.exp)
		}
		if k := pen.Classify(sunAt, moon, earthAt); k != tc.pen {
			t.Fatalf("penumbral policy, y=%.0f: %q != %q", tc.y, k, tc.pen)
		}
	}
	if c.Eclipsed() != "Moon" {
		t.Fatal("lunar eclipses eclipse the Moon")
	}
	if len(c.Phases()) != 2 || len(pen.Phases()) != 3 || pen.Phases()[0] != Penumbral {
		t.Fatal("incorrect lunar phases")
	}
}

func TestLunarClassifierUmbraTangent(t *testing.T) {
	// Umbra apex at x=8 and a Moon of radius 0.5 at x=6 exactly filling the umbra cross section,
	// so the inner threshold is exactly zero.
	c := NewLunarClassifier(Geometry{Rs: 2, Re: 1, Rm: 0.5}, LunarPolicy{})
	if k := c.Classify([]float64{0, 0, 0}, []float64{6, 0, 0}, []float64{4, 0, 0}); k != Partial {
		t.Fatalf("a Moon touching the umbra boundary from inside is partial, got %q", k)
	}
}

func TestLunarSide(t *testing.T) {
	sunward := NewLunarClassifier(DefaultGeometry(), LunarPolicy{Side: MoonSunward})
	for _, y := range []float64{0, 2000, 5000} {
		if k := sunward.Classify(sunAt, moonBeyond(384400, y), earthAt); k != None {
			t.Fatalf("sunward side condition should reject a Moon beyond Earth, got %q", k)
		}
	}
	for _, s := range []LunarSide{MoonBeyondEarth, MoonSunward} {
		if parsed, err := ParseLunarSide(s.String()); err != nil || parsed != s {
			t.Fatalf("could not parse %s", s)
		}
	}
	if _, err := ParseLunarSide("behind"); err == nil {
		t.Fatal("unknown side should fail")
	}
}

func TestClassifyAll(t *testing.T) {
	c := NewSolarClassifier(DefaultGeometry())
	n := 1000
	sun, moon, earth := make([][]float64, n), make([][]float64, n), make([][]float64, n)
	for i := range sun {
		sun[i], earth[i] = sunAt, earthAt
		moon[i] = moonSunward(360000, -20000+40*float64(i))
	}
	kinds, err := ClassifyAll(context.Background(), c, sun, moon, earth)
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range kinds {
		if exp := c.Classify(sun[i], moon[i], earth[i]); k != exp {
			t.Fatalf("instant %d: %q != %q", i, k, exp)
		}
	}
	if kinds[0] != None || kinds[n/2] != Total {
		t.Fatalf("unexpected sweep %q %q", kinds[0], kinds[n/2])
	}
	if _, err := ClassifyAll(context.Background(), c, sun, moon[:10], earth); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ClassifyAll(ctx, c, sun, moon, earth); err == nil {
		t.Fatal("expected the cancellation error")
	}
	if kinds, err := ClassifyAll(context.Background(), c, nil, nil, nil); err != nil || len(kinds) != 0 {
		t.Fatal("empty sequences should classify to nothing")
	}
}
