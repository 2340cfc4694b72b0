package eclipse

import (
	"context"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Prediction holds the outcome of a run.
type Prediction struct {
	Epoch        time.Time
	Trajectory   *Trajectory
	SolarEvents  []Event
	LunarEvents  []Event
	Solar, Lunar []Occurrence
}

// Predict loads the initial conditions of the configured bodies, integrates them and detects
// the solar and lunar eclipses. The trajectory is streamed to disk when the configuration asks for it.
func Predict(ctx context.Context, cfg Config, consts Constants, logger kitlog.Logger, m *Metrics) (*Prediction, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Predict")
	defer span.End()
	span.SetAttributes(attribute.String("epoch", cfg.Epoch.Format(time.RFC3339)), attribute.Float64("years", cfg.Years))

	eph := NewEphemeris(cfg.Epoch, consts, cfg.VSOP87Dir)
	sys, err := eph.LoadSystem(cfg.Primaries, cfg.Auxiliary)
	if err != nil {
		return nil, err
	}
	for _, a := range sys.aux {
		level.Debug(logger).Log("subsys", "ephemeris", "auxiliary", a.Name, "orbit", a.Orbit)
	}

	step := cfg.StepUnits(consts)
	sim := NewSimulation(sys, consts, cfg.Epoch, step, consts.StepsFor(cfg.Years, step), logger, m)
	var stream *Stream
	if cfg.Trajectory {
		stream = NewStream(ExportConfig{OutputDir: cfg.OutputDir, Filename: cfg.Epoch.Format("2006-01-02"), Trajectory: true, Units: consts.Units})
		sim.StreamTo(stream.C)
	}
	traj, err := sim.Run(ctx)
	if stream != nil {
		if serr := stream.Wait(); err == nil && serr != nil {
			err = serr
		}
	}
	if err != nil {
		return nil, err
	}

	geom := NewGeometry(consts.Units, Sun, Earth, Moon)
	p := &Prediction{Epoch: cfg.Epoch, Trajectory: traj}
	solar := NewDetector(NewSolarClassifier(geom), cfg.FineSteps, logger, m)
	if p.SolarEvents, p.Solar, err = solar.Detect(ctx, traj); err != nil {
		return nil, err
	}
	lunar := NewDetector(NewLunarClassifier(geom, cfg.Lunar), cfg.FineSteps, logger, m)
	if p.LunarEvents, p.Lunar, err = lunar.Detect(ctx, traj); err != nil {
		return nil, err
	}
	level.Info(logger).Log("subsys", "predict", "solar", len(p.Solar), "lunar", len(p.Lunar))
	return p, nil
}

// Evaluate compares the predicted maxima, without the envelopes of central eclipses, to the reference.
func (p *Prediction) Evaluate(ref *Catalog, window time.Duration) (solar, lunar Comparison) {
	solar = Compare(SuppressEnvelopes(RecordsFromOccurrences(p.Solar), DefaultSuppressWindow), ref.Solar, window)
	lunar = Compare(SuppressEnvelopes(RecordsFromOccurrences(p.Lunar), DefaultSuppressWindow), ref.Lunar, window)
	return
}
