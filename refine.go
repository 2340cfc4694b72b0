package eclipse

import (
	"context"
	"fmt"
	"math"
	"sort"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultFineSteps is the default number of sub-intervals of a coarse step during refinement.
const DefaultFineSteps = 100

// Event is one phase of an eclipse. Start and End are in fractional coarse steps since the
// first trajectory entry; a boundary which could not be located is NaN.
type Event struct {
	Kind       Kind
	Start, End float64
}

// Peak returns the midpoint of the event, or NaN if it is incomplete.
func (e Event) Peak() float64 {
	return (e.Start + e.End) / 2
}

// Complete returns whether both boundaries were located.
func (e Event) Complete() bool {
	return !math.IsNaN(e.Start) && !math.IsNaN(e.End)
}

// Duration returns the length of the event in coarse steps.
func (e Event) Duration() float64 {
	return e.End - e.Start
}

func (e Event) String() string {
	return fmt.Sprintf("%s [%.4f, %.4f]", e.Kind, e.Start, e.End)
}

// Boundaries returns the parallel start, kind and end lists of the events.
func Boundaries(events []Event) (starts []float64, kinds []Kind, ends []float64) {
	starts = make([]float64, len(events))
	kinds = make([]Kind, len(events))
	ends = make([]float64, len(events))
	for i, e := range events {
		starts[i], kinds[i], ends[i] = e.Start, e.Kind, e.End
	}
	return
}

// Refiner locates eclipse boundaries between coarse steps by classifying linearly interpolated
// positions on a fine subdivision.
type Refiner struct {
	FineSteps int
	Logger    kitlog.Logger
	Metrics   *Metrics
}

// NewRefiner returns a new refiner. A nil logger disables logging.
func NewRefiner(fineSteps int, logger kitlog.Logger, m *Metrics) Refiner {
	if fineSteps <= 0 {
		panic(fmt.Errorf("fine steps must be positive, got %d", fineSteps))
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return Refiner{FineSteps: fineSteps, Logger: logger, Metrics: m}
}

// phaseEvent is an event under construction with its nesting level.
type phaseEvent struct {
	Event
	level int
}

// Refine returns the eclipse events of a trajectory given its coarse classification by c.
// Events are grouped per eclipse, chronologically; within an eclipse the inner phases precede
// the envelope phase.
func (r Refiner) Refine(ctx context.Context, c Classifier, traj *Trajectory, kinds []Kind) ([]Event, error) {
	sun, moon, earth, err := traj.triple()
	if err != nil {
		return nil, err
	}
	if len(kinds) != len(sun) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d kinds for %d entries", len(kinds), len(sun))
	}
	_, span := otel.Tracer(tracerName).Start(ctx, "Refiner.Refine")
	defer span.End()

	logger := r.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	phases := c.Phases()
	depth := len(phases)
	open := make([]*phaseEvent, depth+1)
	var group []phaseEvent
	var events []Event
	misses, samples := 0, 0

	flush := func() {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].level != group[j].level {
				return group[i].level > group[j].level
			}
			return group[i].Start < group[j].Start
		})
		for _, e := range group {
			events = append(events, e.Event)
		}
		group = group[:0]
	}
	closeLevel := func(l int, end float64) {
		e := open[l]
		e.End = end
		group = append(group, *e)
		open[l] = nil
		if l == 1 {
			flush()
		}
	}
	// Eclipse already in progress at the first entry.
	if len(kinds) > 0 {
		for l := 1; l <= rank(phases, kinds[0]); l++ {
			open[l] = &phaseEvent{Event{r.phaseKind(phases, l, kinds[0]), math.NaN(), math.NaN()}, l}
		}
	}

	for t := 1; t < len(kinds); t++ {
		ka, kb := kinds[t-1], kinds[t]
		if ka == kb {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ra, rb := rank(phases, ka), rank(phases, kb)
		fine := r.classifyFine(c, sun[t-1:t+1], moon[t-1:t+1], earth[t-1:t+1])
		samples += len(fine)

		// Phases exited, innermost first. A switch between central kinds exits the central phase.
		lo := rb + 1
		if ra == depth && rb == depth {
			lo = depth
		}
		for l := ra; l >= lo; l-- {
			if open[l] == nil {
				continue
			}
			end := math.NaN()
			for j := len(fine) - 1; j >= 0; j-- {
				if within(phases, fine[j], l, open[l].Kind) {
					end = float64(t-1) + float64(j)/float64(r.FineSteps)
					break
				}
			}
			if math.IsNaN(end) {
				misses++
				level.Warn(logger).Log("subsys", "refine", "status", "missed exit", "kind", open[l].Kind, "step", t)
			}
			closeLevel(l, end)
		}
		// Phases entered, outermost first.
		lo = ra + 1
		if ra == depth && rb == depth {
			lo = depth
		}
		for l := lo; l <= rb; l++ {
			kind := r.phaseKind(phases, l, kb)
			start := math.NaN()
			for j, k := range fine {
				if within(phases, k, l, kind) {
					start = float64(t-1) + float64(j)/float64(r.FineSteps)
					break
				}
			}
			if math.IsNaN(start) {
				misses++
				level.Warn(logger).Log("subsys", "refine", "status", "missed entry", "kind", kind, "step", t)
			}
			open[l] = &phaseEvent{Event{kind, start, math.NaN()}, l}
		}
	}
	// Eclipse still in progress at the last entry.
	for l := depth; l >= 1; l-- {
		if open[l] != nil {
			closeLevel(l, math.NaN())
		}
	}
	flush()

	if r.Metrics != nil {
		r.Metrics.Misses.Add(float64(misses))
		r.Metrics.FineSamples.Add(float64(samples))
	}
	span.SetAttributes(attribute.Int("events", len(events)), attribute.Int("misses", misses))
	level.Debug(logger).Log("subsys", "refine", "eclipsed", c.Eclipsed(), "events", len(events), "misses", misses, "samples", samples)
	return events, nil
}

// phaseKind returns the kind of the phase at level l, given a kind of that phase or an inner one.
func (r Refiner) phaseKind(phases []Kind, l int, k Kind) Kind {
	if l == len(phases) && k.Central() {
		return k
	}
	return phases[l-1]
}

// within returns whether k belongs to the phase at level l of kind phase.
func within(phases []Kind, k Kind, l int, phase Kind) bool {
	if l == len(phases) {
		return k == phase
	}
	return rank(phases, k) >= l
}

// classifyFine classifies the FineSteps+1 secant points between two consecutive entries.
func (r Refiner) classifyFine(c Classifier, sun, moon, earth [][]float64) []Kind {
	fine := make([]Kind, r.FineSteps+1)
	for j := range fine {
		f := float64(j) / float64(r.FineSteps)
		fine[j] = c.Classify(lerp(sun[0], sun[1], f), lerp(moon[0], moon[1], f), lerp(earth[0], earth[1], f))
	}
	return fine
}
