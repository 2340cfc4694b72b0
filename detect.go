package eclipse

import (
	"context"
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Occurrence is an eclipse phase in wall clock time. The boundaries of an incomplete occurrence
// which could not be located are the zero time.
type Occurrence struct {
	Body             string // Eclipsed body
	Kind             Kind
	Start, Peak, End time.Time
	Complete         bool
}

// Duration returns the duration of the occurrence, or zero if it is incomplete.
func (o Occurrence) Duration() time.Duration {
	if !o.Complete {
		return 0
	}
	return o.End.Sub(o.Start)
}

func (o Occurrence) String() string {
	return fmt.Sprintf("%s %s eclipse: %s / %s / %s", o.Kind, o.Body, o.Start.Format(time.RFC3339), o.Peak.Format(time.RFC3339), o.End.Format(time.RFC3339))
}

// Detector classifies and refines the eclipses of one kind of a trajectory.
type Detector struct {
	Classifier Classifier
	Refiner    Refiner
	logger     kitlog.Logger
	metrics    *Metrics
}

// NewDetector returns a new detector. A nil logger disables logging.
func NewDetector(c Classifier, fineSteps int, logger kitlog.Logger, m *Metrics) *Detector {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Detector{Classifier: c, Refiner: NewRefiner(fineSteps, logger, m), logger: logger, metrics: m}
}

// Detect returns the refined events of the trajectory, and their wall clock occurrences.
func (d *Detector) Detect(ctx context.Context, traj *Trajectory) ([]Event, []Occurrence, error) {
	kinds, err := ClassifyTrajectory(ctx, d.Classifier, traj)
	if err != nil {
		return nil, nil, err
	}
	events, err := d.Refiner.Refine(ctx, d.Classifier, traj, kinds)
	if err != nil {
		return nil, nil, err
	}
	occurrences := make([]Occurrence, len(events))
	for i, e := range events {
		occurrences[i] = d.occurrence(traj, e)
		if d.metrics != nil {
			d.metrics.Events.WithLabelValues(d.Classifier.Eclipsed(), e.Kind.String()).Inc()
		}
		level.Info(d.logger).Log("subsys", "detect", "eclipsed", d.Classifier.Eclipsed(), "kind", e.Kind, "start", occurrences[i].Start, "peak", occurrences[i].Peak, "end", occurrences[i].End)
	}
	return events, occurrences, nil
}

func (d *Detector) occurrence(traj *Trajectory, e Event) Occurrence {
	at := func(index float64) time.Time {
		if math.IsNaN(index) {
			return time.Time{}
		}
		return traj.TimeAt(index)
	}
	return Occurrence{Body: d.Classifier.Eclipsed(), Kind: e.Kind, Start: at(e.Start), Peak: at(e.Peak()), End: at(e.End), Complete: e.Complete()}
}
