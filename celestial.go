package eclipse

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// AU is one astronomical unit in kilometers.
	AU = 1.49597870700e8
	// YearHours is the length of the tropical year in hours.
	YearHours = 365.2422 * 24
)

// ErrUnknownBody is returned when a body name is not in the celestial table.
var ErrUnknownBody = errors.New("unknown celestial body")

// CelestialObject holds the physical constants of a body.
// GM is in km^3/s^2 and Radius in km; use Units to convert them to a run's units.
type CelestialObject struct {
	Name   string
	GM     float64
	Radius float64
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// CelestialObjectFromString returns the object from its name (case insensitive).
func CelestialObjectFromString(name string) (CelestialObject, error) {
	for _, obj := range celestialObjects {
		if strings.EqualFold(obj.Name, name) {
			return obj, nil
		}
	}
	return CelestialObject{}, errors.Wrapf(ErrUnknownBody, "%q", name)
}

/* Definitions */

// Sun is our closest star.
var Sun = CelestialObject{"Sun", 132712440041.279419, 6.957e5}

// Mercury is hot.
var Mercury = CelestialObject{"Mercury", 22031.868551, 2.439e3}

// Venus is poisonous.
var Venus = CelestialObject{"Venus", 324858.592000, 6.052e3}

// Earth is home.
var Earth = CelestialObject{"Earth", 398600.435507, 6.378e3}

// Mars is the vacation place.
var Mars = CelestialObject{"Mars", 42828.375816, 3.390e3}

// Jupiter is big.
var Jupiter = CelestialObject{"Jupiter", 126712764.100000, 7.149e4}

// Saturn floats and that's really cool.
var Saturn = CelestialObject{"Saturn", 37940584.841800, 6.027e4}

// Uranus is no joke.
var Uranus = CelestialObject{"Uranus", 5794556.400000, 2.556e4}

// Neptune is far.
var Neptune = CelestialObject{"Neptune", 6836527.100580, 2.476e4}

// Moon casts the shadows we are after.
var Moon = CelestialObject{"Moon", 4902.800118, 1.737e3}

var celestialObjects = []CelestialObject{Sun, Mercury, Venus, Earth, Mars, Jupiter, Saturn, Uranus, Neptune, Moon}

// Units defines the length and time units of a run.
type Units struct {
	LengthKm float64       // Kilometers per length unit.
	TimeUnit time.Duration // Duration of one time unit.
}

// DefaultUnits are astronomical units and hours.
var DefaultUnits = Units{LengthKm: AU, TimeUnit: time.Hour}

// Length converts kilometers to the run's length unit.
func (u Units) Length(km float64) float64 {
	return km / u.LengthKm
}

// Velocity converts km/s to the run's velocity unit.
func (u Units) Velocity(kms float64) float64 {
	return kms * u.TimeUnit.Seconds() / u.LengthKm
}

// GM converts a gravitational parameter in km^3/s^2 to the run's length^3/time^2.
func (u Units) GM(gm float64) float64 {
	s := u.TimeUnit.Seconds()
	return gm * s * s / (u.LengthKm * u.LengthKm * u.LengthKm)
}

// Hours returns the number of hours in t time units.
func (u Units) Hours(t float64) float64 {
	return t * u.TimeUnit.Hours()
}

// Duration returns t time units as a time.Duration.
func (u Units) Duration(t float64) time.Duration {
	return time.Duration(t * float64(u.TimeUnit))
}

// Constants are the process-wide immutable constants of one run.
type Constants struct {
	G         float64 // Gravitational scaling; 1 when masses are gravitational parameters.
	Units     Units
	YearHours float64
}

// DefaultConstants returns the constants used by default: G = 1 with GM masses, AU and hours.
func DefaultConstants() Constants {
	return Constants{G: 1, Units: DefaultUnits, YearHours: YearHours}
}

// StepsFor returns the number of coarse steps of size step (in time units) covering the provided years.
func (c Constants) StepsFor(years, step float64) int {
	if step <= 0 {
		panic(fmt.Errorf("step must be positive, got %f", step))
	}
	hours := years * c.YearHours
	return int(hours / c.Units.Hours(step))
}
