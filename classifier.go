package eclipse

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Kind is the classification of one instant.
type Kind uint8

const (
	// None means no eclipse.
	None Kind = iota
	// Partial eclipse.
	Partial
	// Total eclipse.
	Total
	// Annular solar eclipse.
	Annular
	// Penumbral lunar eclipse.
	Penumbral
)

// ErrUnknownKind is returned when parsing an unknown eclipse kind.
var ErrUnknownKind = errors.New("unknown eclipse kind")

func (k Kind) String() string {
	switch k {
	case None:
		return ""
	case Partial:
		return "partial"
	case Total:
		return "total"
	case Annular:
		return "annular"
	case Penumbral:
		return "penumbral"
	default:
		panic(fmt.Errorf("cannot stringify unknown eclipse kind %d", k))
	}
}

// Central returns whether this is a total or annular kind.
func (k Kind) Central() bool {
	return k == Total || k == Annular
}

// ParseKind returns the kind from its name (case insensitive). Both "" and "none" map to None.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "partial":
		return Partial, nil
	case "total":
		return Total, nil
	case "annular":
		return Annular, nil
	case "penumbral":
		return Penumbral, nil
	}
	return None, errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Geometry holds the radii of the Sun, Earth and Moon in the length unit of the positions.
type Geometry struct {
	Rs, Re, Rm float64
}

// NewGeometry converts the radii of the provided objects to the run's length unit.
func NewGeometry(u Units, sun, earth, moon CelestialObject) Geometry {
	return Geometry{Rs: u.Length(sun.Radius), Re: u.Length(earth.Radius), Rm: u.Length(moon.Radius)}
}

// DefaultGeometry is the geometry of the Sun, Earth and Moon in astronomical units.
func DefaultGeometry() Geometry {
	return NewGeometry(DefaultUnits, Sun, Earth, Moon)
}

// Classifier classifies the instantaneous configuration of the Sun, Moon and Earth.
type Classifier interface {
	Classify(sun, moon, earth []float64) Kind
	// Phases lists the nested phases of an eclipse, outermost first. The last entry stands
	// for any central kind.
	Phases() []Kind
	// Eclipsed returns the name of the body which is eclipsed.
	Eclipsed() string
}

// rank returns the nesting depth of k within the phases: 0 for None and len(phases) for a central kind.
func rank(phases []Kind, k Kind) int {
	if k == None {
		return 0
	}
	if k.Central() {
		return len(phases)
	}
	for i, p := range phases {
		if p == k {
			return i + 1
		}
	}
	return 0
}

// coneThreshold compares a sphere of radius rb at vb with the cone of apex the origin tangent
// to a sphere of radius ro at vo; d is the dot product used for the cross term.
// With sign = +1, a negative value means the sphere touches the nappe containing vo;
// with sign = -1, it means the sphere lies entirely inside it.
func coneThreshold(vb, vo []float64, rb, ro, d, sign float64) float64 {
	c := cross(vb, vo)
	nb, no := norm(vb), norm(vo)
	return dot(c, c) - (rb*rb*no*no + nb*nb*ro*ro + sign*2*rb*ro*d)
}

// SolarClassifier detects solar eclipses from the shadow cones of the Moon.
type SolarClassifier struct {
	Geometry
}

// NewSolarClassifier returns a solar classifier with the provided geometry.
func NewSolarClassifier(g Geometry) SolarClassifier {
	return SolarClassifier{g}
}

// Classify implements the Classifier interface.
func (c SolarClassifier) Classify(sun, moon, earth []float64) Kind {
	moon = sub(moon, sun)
	earth = sub(earth, sun)
	// Earth must be beyond the Moon as seen from the Sun.
	dot0 := dot(sub(earth, moon), earth)

	umbra := scaled(c.Rs/(c.Rs-c.Rm), moon)
	penumbra := scaled(c.Rs/(c.Rs+c.Rm), moon)
	re1, rm1 := sub(earth, umbra), sub(moon, umbra)
	re2, rm2 := sub(earth, penumbra), sub(moon, penumbra)
	dot1, dot2 := dot(re1, rm1), dot(re2, rm2)
	re1Norm := norm(re1)

	// The umbra cone is double: beyond its apex it reopens as the antumbra.
	thr1 := coneThreshold(re1, rm1, c.Re, c.Rm, math.Abs(dot1), 1)
	thr2 := coneThreshold(re2, rm2, c.Re, c.Rm, dot2, 1)

	switch {
	case (thr1 < 0 && dot1 > 0 && dot0 > 0) || re1Norm < c.Re:
		return Total
	case thr1 < 0 && dot1 <= 0 && dot0 > 0 && re1Norm > c.Re:
		return Annular
	case thr2 < 0 && thr1 >= 0 && dot0 > 0:
		return Partial
	}
	return None
}

// Phases implements the Classifier interface.
func (c SolarClassifier) Phases() []Kind {
	return []Kind{Partial, Total}
}

// Eclipsed implements the Classifier interface.
func (c SolarClassifier) Eclipsed() string {
	return Sun.Name
}

// LunarSide is the side condition of the Moon with respect to Earth.
type LunarSide uint8

const (
	// MoonBeyondEarth requires (moon-earth)·earth > 0, i.e. the Moon on the night side of Earth.
	MoonBeyondEarth LunarSide = iota
	// MoonSunward requires (moon-earth)·earth < 0.
	MoonSunward
)

func (s LunarSide) String() string {
	if s == MoonSunward {
		return "sunward"
	}
	return "beyond"
}

// ParseLunarSide returns the side from its name.
func ParseLunarSide(s string) (LunarSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "beyond":
		return MoonBeyondEarth, nil
	case "sunward":
		return MoonSunward, nil
	}
	return MoonBeyondEarth, errors.Errorf("unknown lunar side %q", s)
}

// LunarPolicy selects the lunar side condition and whether penumbral eclipses are reported.
type LunarPolicy struct {
	Side      LunarSide
	Penumbral bool
}

// LunarClassifier detects lunar eclipses from the shadow cones of Earth.
type LunarClassifier struct {
	Geometry
	Policy LunarPolicy
}

// NewLunarClassifier returns a lunar classifier with the provided geometry and policy.
func NewLunarClassifier(g Geometry, p LunarPolicy) LunarClassifier {
	return LunarClassifier{g, p}
}

// Classify implements the Classifier interface.
func (c LunarClassifier) Classify(sun, moon, earth []float64) Kind {
	moon = sub(moon, sun)
	earth = sub(earth, sun)
	dot0 := dot(sub(moon, earth), earth)
	if c.Policy.Side == MoonSunward {
		dot0 = -dot0
	}

	umbra := scaled(c.Rs/(c.Rs-c.Re), earth)
	rm1, re1 := sub(moon, umbra), sub(earth, umbra)
	dot1 := dot(rm1, re1)
	outer := coneThreshold(rm1, re1, c.Rm, c.Re, dot1, 1)
	inner := coneThreshold(rm1, re1, c.Rm, c.Re, dot1, -1)

	switch {
	case (inner < 0 && dot1 > 0 && dot0 > 0) || norm(rm1) < c.Rm:
		return Total
	case outer < 0 && inner >= 0 && dot0 > 0:
		return Partial
	case !c.Policy.Penumbral || dot0 <= 0:
		return None
	}

	penumbra := scaled(c.Rs/(c.Rs+c.Re), earth)
	rm2, re2 := sub(moon, penumbra), sub(earth, penumbra)
	dot2 := dot(rm2, re2)
	if dot2 > 0 && coneThreshold(rm2, re2, c.Rm, c.Re, dot2, 1) < 0 {
		return Penumbral
	}
	return None
}

// Phases implements the Classifier interface.
func (c LunarClassifier) Phases() []Kind {
	if c.Policy.Penumbral {
		return []Kind{Penumbral, Partial, Total}
	}
	return []Kind{Partial, Total}
}

// Eclipsed implements the Classifier interface.
func (c LunarClassifier) Eclipsed() string {
	return Moon.Name
}

// ClassifyAll classifies every instant of the parallel position sequences. Instants are
// split in chunks classified concurrently; the output order is the input order.
func ClassifyAll(ctx context.Context, c Classifier, sun, moon, earth [][]float64) ([]Kind, error) {
	n := len(sun)
	if len(moon) != n || len(earth) != n {
		return nil, errors.Wrapf(ErrLengthMismatch, "sun=%d moon=%d earth=%d", len(sun), len(moon), len(earth))
	}
	_, span := otel.Tracer(tracerName).Start(ctx, "ClassifyAll")
	span.SetAttributes(attribute.String("eclipsed", c.Eclipsed()), attribute.Int("instants", n))
	defer span.End()

	kinds := make([]Kind, n)
	workers := runtime.GOMAXPROCS(0)
	chunk := (n + workers - 1) / workers
	if chunk < 64 {
		chunk = 64
	}
	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, lo+chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				kinds[i] = c.Classify(sun[i], moon[i], earth[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return kinds, nil
}

// ClassifyTrajectory classifies every entry of a trajectory which recorded the Sun, Moon and Earth.
func ClassifyTrajectory(ctx context.Context, c Classifier, traj *Trajectory) ([]Kind, error) {
	sun, moon, earth, err := traj.triple()
	if err != nil {
		return nil, err
	}
	return ClassifyAll(ctx, c, sun, moon, earth)
}
