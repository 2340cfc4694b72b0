package eclipse

import (
	"io"
	"strconv"
	"strings"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when the configuration cannot describe a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes the environment variables overriding the configuration, e.g. ECLIPSE_SIMULATION_STEP.
const EnvPrefix = "ECLIPSE"

// Config describes one run.
type Config struct {
	Epoch       time.Time     // UTC start of the simulation.
	Step        time.Duration // Coarse step.
	Years       float64       // Simulated span.
	FineSteps   int           // Sub-intervals of a coarse step during refinement.
	Primaries   []string      // Integrated bodies; must include the Sun, Earth and Moon.
	Auxiliary   []string      // Bodies on prescribed circular heliocentric orbits.
	Lunar       LunarPolicy
	VSOP87Dir   string
	OutputDir   string
	Trajectory  bool          // Whether to export the trajectory.
	Catalog     string        // Reference catalog, empty to use the Meeus catalog.
	Window      time.Duration // Match window against the reference catalog.
	LogLevel    string
	MetricsFile string
	Tracing     bool
}

// NewViper returns a viper instance with the defaults of every key, reading ECLIPSE_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("simulation.epoch", "2025-01-01T00:00:00Z")
	v.SetDefault("simulation.step", "1h")
	v.SetDefault("simulation.years", 1.0)
	v.SetDefault("simulation.fine_steps", DefaultFineSteps)
	v.SetDefault("bodies.primary", []string{Sun.Name, Earth.Name, Moon.Name})
	v.SetDefault("bodies.auxiliary", []string{})
	v.SetDefault("lunar.side", MoonBeyondEarth.String())
	v.SetDefault("lunar.penumbral", false)
	v.SetDefault("ephemeris.vsop87_dir", "")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.trajectory", false)
	v.SetDefault("evaluation.catalog", "")
	v.SetDefault("evaluation.window", DefaultMatchWindow.String())
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.file", "")
	v.SetDefault("tracing.enabled", false)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfigFile merges the provided configuration file (TOML, YAML or JSON) into v.
func ReadConfigFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	return nil
}

// LoadConfig reads and validates the configuration held by v.
func LoadConfig(v *viper.Viper) (Config, error) {
	epoch, err := readJDEorTime(v, "simulation.epoch")
	if err != nil {
		return Config{}, err
	}
	side, err := ParseLunarSide(v.GetString("lunar.side"))
	if err != nil {
		return Config{}, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	c := Config{
		Epoch:       epoch,
		Step:        v.GetDuration("simulation.step"),
		Years:       v.GetFloat64("simulation.years"),
		FineSteps:   v.GetInt("simulation.fine_steps"),
		Primaries:   v.GetStringSlice("bodies.primary"),
		Auxiliary:   v.GetStringSlice("bodies.auxiliary"),
		Lunar:       LunarPolicy{Side: side, Penumbral: v.GetBool("lunar.penumbral")},
		VSOP87Dir:   v.GetString("ephemeris.vsop87_dir"),
		OutputDir:   v.GetString("output.dir"),
		Trajectory:  v.GetBool("output.trajectory"),
		Catalog:     v.GetString("evaluation.catalog"),
		Window:      v.GetDuration("evaluation.window"),
		LogLevel:    v.GetString("log.level"),
		MetricsFile: v.GetString("metrics.file"),
		Tracing:     v.GetBool("tracing.enabled"),
	}
	return c, c.Validate()
}

// readJDEorTime reads a time either as a time string or as a Julian date. A bare four digit
// number is a year.
func readJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	raw := strings.TrimSpace(v.GetString(key))
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "2006"} {
		if dt, err := time.Parse(layout, raw); err == nil {
			return dt.UTC(), nil
		}
	}
	if jde, err := strconv.ParseFloat(raw, 64); err == nil {
		return julian.JDToTime(jde), nil
	}
	return time.Time{}, errors.Wrapf(ErrInvalidConfig, "%s: cannot parse %q as a date", key, raw)
}

// Validate returns ErrInvalidConfig when the configuration cannot describe a run.
func (c Config) Validate() error {
	switch {
	case c.Step <= 0:
		return errors.Wrapf(ErrInvalidConfig, "simulation.step must be positive, got %s", c.Step)
	case c.Years <= 0:
		return errors.Wrapf(ErrInvalidConfig, "simulation.years must be positive, got %f", c.Years)
	case c.FineSteps <= 0:
		return errors.Wrapf(ErrInvalidConfig, "simulation.fine_steps must be positive, got %d", c.FineSteps)
	case c.Window < 0:
		return errors.Wrapf(ErrInvalidConfig, "evaluation.window must not be negative, got %s", c.Window)
	}
	seen := make(map[string]bool)
	for _, name := range append(append([]string(nil), c.Primaries...), c.Auxiliary...) {
		obj, err := CelestialObjectFromString(name)
		if err != nil {
			return errors.Wrap(ErrInvalidConfig, err.Error())
		}
		if seen[obj.Name] {
			return errors.Wrapf(ErrInvalidConfig, "body %s listed twice", obj.Name)
		}
		seen[obj.Name] = true
	}
	for _, required := range []CelestialObject{Sun, Earth, Moon} {
		found := false
		for _, name := range c.Primaries {
			found = found || strings.EqualFold(name, required.Name)
		}
		if !found {
			return errors.Wrapf(ErrInvalidConfig, "%s must be a primary body", required.Name)
		}
	}
	if _, err := level.Parse(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log.level: %s", err)
	}
	return nil
}

// StepUnits returns the coarse step in the time unit of the constants.
func (c Config) StepUnits(consts Constants) float64 {
	return float64(c.Step) / float64(consts.Units.TimeUnit)
}

// End returns the end of the simulated span.
func (c Config) End(consts Constants) time.Time {
	return c.Epoch.Add(time.Duration(c.Years * consts.YearHours * float64(time.Hour)))
}

// NewLogger returns a logfmt logger writing to w, filtered at the provided level.
func NewLogger(w io.Writer, lvl string) (kitlog.Logger, error) {
	l, err := level.Parse(lvl)
	if err != nil {
		return nil, err
	}
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	return level.NewFilter(logger, level.Allow(l)), nil
}
