package eclipse

import (
	"fmt"

	"github.com/pkg/errors"
)

// Body is one simulated celestial object.
// Mass is the gravitational parameter in the run's units (see Constants).
// Radius must be in the same length unit as the position.
type Body struct {
	Name   string
	Mass   float64
	Radius float64
	R, V   []float64
}

// NewBody returns a new body, copying the provided vectors.
func NewBody(name string, mass, radius float64, R, V []float64) Body {
	return Body{Name: name, Mass: mass, Radius: radius, R: append([]float64(nil), R...), V: append([]float64(nil), V...)}
}

// String implements the Stringer interface.
func (b Body) String() string {
	return fmt.Sprintf("%s: R=%v V=%v", b.Name, b.R, b.V)
}

// AuxBody is a body whose position is prescribed by a circular orbit. It attracts the primaries
// but is never accelerated by them.
type AuxBody struct {
	Body
	Orbit CircularOrbit
}

// BodyView is a read-only view of a body in a System.
type BodyView struct {
	b *Body
}

// Name returns the name of the body.
func (v BodyView) Name() string { return v.b.Name }

// Mass returns the gravitational parameter of the body.
func (v BodyView) Mass() float64 { return v.b.Mass }

// Radius returns the radius of the body.
func (v BodyView) Radius() float64 { return v.b.Radius }

// R returns a copy of the current position.
func (v BodyView) R() []float64 { return append([]float64(nil), v.b.R...) }

// V returns a copy of the current velocity.
func (v BodyView) V() []float64 { return append([]float64(nil), v.b.V...) }

// System is the arena of all bodies of a run. Primaries are integrated, auxiliaries follow
// their prescribed orbit. Only the Simulation writes positions and velocities.
type System struct {
	primaries []Body
	aux       []AuxBody
	index     map[string]int // Negative indexes are auxiliary bodies: -(i+1).
}

// NewSystem builds the arena. The orbit of each auxiliary body is derived from its initial
// state about the central body named `central` (which must be a primary).
func NewSystem(primaries, auxiliaries []Body, central string) (*System, error) {
	s := &System{index: make(map[string]int)}
	for _, b := range primaries {
		if _, dup := s.index[b.Name]; dup {
			return nil, errors.Errorf("duplicate body %q", b.Name)
		}
		if b.Mass <= 0 {
			return nil, errors.Errorf("primary %q must have a positive mass, got %g", b.Name, b.Mass)
		}
		s.index[b.Name] = len(s.primaries)
		s.primaries = append(s.primaries, NewBody(b.Name, b.Mass, b.Radius, b.R, b.V))
	}
	if len(auxiliaries) == 0 {
		return s, nil
	}
	ci, ok := s.index[central]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBody, "central body %q is not a primary", central)
	}
	c := s.primaries[ci]
	for _, b := range auxiliaries {
		if _, dup := s.index[b.Name]; dup {
			return nil, errors.Errorf("duplicate body %q", b.Name)
		}
		s.index[b.Name] = -(len(s.aux) + 1)
		orbit := NewCircularOrbit(sub(b.R, c.R), sub(b.V, c.V), c.Mass)
		orbit.Center = append([]float64(nil), c.R...)
		s.aux = append(s.aux, AuxBody{NewBody(b.Name, b.Mass, b.Radius, b.R, b.V), orbit})
	}
	return s, nil
}

// Primaries returns read-only views of the integrated bodies, in arena order.
func (s *System) Primaries() []BodyView {
	views := make([]BodyView, len(s.primaries))
	for i := range s.primaries {
		views[i] = BodyView{&s.primaries[i]}
	}
	return views
}

// Auxiliaries returns read-only views of the auxiliary bodies.
func (s *System) Auxiliaries() []BodyView {
	views := make([]BodyView, len(s.aux))
	for i := range s.aux {
		views[i] = BodyView{&s.aux[i].Body}
	}
	return views
}

// Body returns a read-only view of the named body.
func (s *System) Body(name string) (BodyView, error) {
	idx, ok := s.index[name]
	if !ok {
		return BodyView{}, errors.Wrapf(ErrUnknownBody, "%q", name)
	}
	if idx < 0 {
		return BodyView{&s.aux[-idx-1].Body}, nil
	}
	return BodyView{&s.primaries[idx]}, nil
}

// Names returns the names of the primaries in arena order.
func (s *System) Names() []string {
	names := make([]string, len(s.primaries))
	for i, b := range s.primaries {
		names[i] = b.Name
	}
	return names
}

// placeAuxiliaries moves every auxiliary body to its prescribed position at time t.
func (s *System) placeAuxiliaries(t float64) {
	for i := range s.aux {
		s.aux[i].R = s.aux[i].Orbit.Position(t)
	}
}

// Energy returns the total mechanical energy of the primaries (kinetic plus mutual potential),
// per unit of G-scaled mass.
func (s *System) Energy(g float64) float64 {
	e := 0.
	for i, b := range s.primaries {
		e += 0.5 * b.Mass * dot(b.V, b.V)
		for _, o := range s.primaries[i+1:] {
			e -= g * b.Mass * o.Mass / norm(sub(o.R, b.R))
		}
	}
	return e
}

// AngularMomentum returns the total angular momentum vector of the primaries about the origin.
func (s *System) AngularMomentum() []float64 {
	h := []float64{0, 0, 0}
	for _, b := range s.primaries {
		bh := cross(b.R, b.V)
		for i := range h {
			h[i] += b.Mass * bh[i]
		}
	}
	return h
}
