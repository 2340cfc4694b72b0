package eclipse

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/deltat"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/kepler"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/planetelements"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/solar"
	munit "github.com/soniakeys/unit"
)

// DefaultWindow is the half width of the central difference used to derive velocities.
const DefaultWindow = time.Hour

// planetIndex maps the planets to the meeus planet constants.
var planetIndex = map[string]int{
	Mercury.Name: pp.Mercury,
	Venus.Name:   pp.Venus,
	Earth.Name:   pp.Earth,
	Mars.Name:    pp.Mars,
	Jupiter.Name: pp.Jupiter,
	Saturn.Name:  pp.Saturn,
	Uranus.Name:  pp.Uranus,
	Neptune.Name: pp.Neptune,
}

// Ephemeris provides the initial conditions of the bodies at an epoch, in heliocentric ecliptic
// coordinates of date. Positions use the low precision theories of Meeus unless a directory of
// VSOP87B files is provided.
type Ephemeris struct {
	Epoch     time.Time     // UTC epoch of the initial conditions.
	Constants Constants
	VSOP87Dir string        // Optional directory of the VSOP87B.* files.
	Window    time.Duration // Half width of the velocity central difference.
	vsop      map[int]*pp.V87Planet
}

// NewEphemeris returns a new ephemeris for the provided epoch.
func NewEphemeris(epoch time.Time, c Constants, vsop87Dir string) *Ephemeris {
	return &Ephemeris{Epoch: epoch.UTC(), Constants: c, VSOP87Dir: vsop87Dir, Window: DefaultWindow, vsop: make(map[int]*pp.V87Planet)}
}

// DeltaT returns TT - UT at the provided time.
func DeltaT(t time.Time) time.Duration {
	jd := julian.TimeToJD(t)
	y := 2000 + (jd-base.J2000)/base.JulianYear
	var ΔT munit.Time
	switch {
	case y < 948:
		ΔT = deltat.PolyBefore948(y)
	case y < 1620:
		ΔT = deltat.Poly948to1600(y)
	case y < 2009:
		ΔT = deltat.Interp10A(jd)
	case y < 2050:
		// Espenak and Meeus, 2005 to 2050.
		ΔT = munit.Time(base.Horner(y-2000, 62.92, 0.32217, 0.005589))
	default:
		ΔT = deltat.PolyAfter2000(y)
	}
	return time.Duration(ΔT.Sec() * float64(time.Second))
}

// JDE returns the Julian ephemeris day of a UTC time.
func JDE(t time.Time) float64 {
	return julian.TimeToJD(t.Add(DeltaT(t)))
}

// Initial returns the named body with its heliocentric position and velocity at the epoch,
// in the units of the ephemeris constants.
func (e *Ephemeris) Initial(name string) (Body, error) {
	obj, err := CelestialObjectFromString(name)
	if err != nil {
		return Body{}, err
	}
	jde := JDE(e.Epoch)
	R, err := e.heliocentric(obj.Name, jde)
	if err != nil {
		return Body{}, err
	}
	window := e.Window
	if window <= 0 {
		window = DefaultWindow
	}
	dt := window.Hours() / 24
	before, err := e.heliocentric(obj.Name, jde-dt)
	if err != nil {
		return Body{}, err
	}
	after, err := e.heliocentric(obj.Name, jde+dt)
	if err != nil {
		return Body{}, err
	}
	u := e.Constants.Units
	V := make([]float64, 3)
	for i := range V {
		// km/s
		V[i] = u.Velocity((after[i] - before[i]) / (2 * window.Seconds()))
		R[i] = u.Length(R[i])
	}
	return NewBody(obj.Name, u.GM(obj.GM), u.Length(obj.Radius), R, V), nil
}

// heliocentric returns the heliocentric position of the body in km.
func (e *Ephemeris) heliocentric(name string, jde float64) ([]float64, error) {
	switch name {
	case Sun.Name:
		return []float64{0, 0, 0}, nil
	case Earth.Name:
		if e.VSOP87Dir != "" {
			return e.vsop87(pp.Earth, jde)
		}
		s, _ := solar.True(base.J2000Century(jde))
		return Spherical2Cartesian(solar.Radius(base.J2000Century(jde))*AU, s.Rad()+math.Pi, 0), nil
	case Moon.Name:
		earth, err := e.heliocentric(Earth.Name, jde)
		if err != nil {
			return nil, err
		}
		λ, β, Δ := moonposition.Position(jde)
		geo := Spherical2Cartesian(Δ, λ.Rad(), β.Rad())
		for i := range geo {
			geo[i] += earth[i]
		}
		return geo, nil
	}
	p, ok := planetIndex[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBody, "no ephemeris for %q", name)
	}
	if e.VSOP87Dir != "" {
		return e.vsop87(p, jde)
	}
	return meanPlanet(p, jde), nil
}

// vsop87 returns the VSOP87 heliocentric position of the planet in km.
func (e *Ephemeris) vsop87(p int, jde float64) ([]float64, error) {
	v, ok := e.vsop[p]
	if !ok {
		var err error
		if v, err = pp.LoadPlanetPath(p, e.VSOP87Dir); err != nil {
			return nil, errors.Wrapf(err, "loading VSOP87 planet %d from %s", p, e.VSOP87Dir)
		}
		if e.vsop == nil {
			e.vsop = make(map[int]*pp.V87Planet)
		}
		e.vsop[p] = v
	}
	L, B, R := v.Position(jde)
	return Spherical2Cartesian(R*AU, L.Rad(), B.Rad()), nil
}

// meanPlanet returns the heliocentric position in km of a planet on its osculating mean orbit.
func meanPlanet(p int, jde float64) []float64 {
	var el planetelements.Elements
	planetelements.Mean(p, jde, &el)
	M := el.Lon - el.Peri
	E := kepler.Kepler3(el.Ecc, M)
	ν := kepler.True(E, el.Ecc)
	r := kepler.Radius(E, el.Ecc, el.Axis)
	// Argument of latitude.
	u := el.Peri.Rad() + ν.Rad() - el.Node.Rad()
	return Rot313Vec(el.Node.Rad(), el.Inc.Rad(), u, []float64{r * AU, 0, 0})
}

// LoadSystem returns the system of the named primaries and auxiliary bodies at the epoch.
// Auxiliary bodies orbit the Sun, which must then be a primary.
func (e *Ephemeris) LoadSystem(primaries, auxiliaries []string) (*System, error) {
	if len(primaries) == 0 {
		return nil, errors.New("no primary body")
	}
	load := func(names []string) ([]Body, error) {
		bodies := make([]Body, len(names))
		for i, name := range names {
			b, err := e.Initial(name)
			if err != nil {
				return nil, err
			}
			bodies[i] = b
		}
		return bodies, nil
	}
	prim, err := load(primaries)
	if err != nil {
		return nil, err
	}
	aux, err := load(auxiliaries)
	if err != nil {
		return nil, err
	}
	return NewSystem(prim, aux, Sun.Name)
}
