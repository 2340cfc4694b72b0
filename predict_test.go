package eclipse

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func predictConfig(t *testing.T, epoch string, days float64) Config {
	v := NewViper()
	v.Set("simulation.epoch", epoch)
	v.Set("simulation.years", days/365.2422)
	v.Set("output.dir", t.TempDir())
	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestPredictSolar(t *testing.T) {
	if testing.Short() {
		t.Skip("integrates the Sun, Earth and Moon")
	}
	cfg := predictConfig(t, "2017-08-20", 3.5)
	cfg.Trajectory = true
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	consts := DefaultConstants()
	p, err := Predict(context.Background(), cfg, consts, nil, m)
	if err != nil {
		t.Fatal(err)
	}
	var total *Occurrence
	for i, o := range p.Solar {
		if o.Kind == Total {
			total = &p.Solar[i]
		}
	}
	if total == nil {
		t.Fatalf("the total solar eclipse of 2017-08-21 was not found: %v", p.Solar)
	}
	if exp := time.Date(2017, 8, 21, 18, 25, 0, 0, time.UTC); total.Peak.Sub(exp).Abs() > time.Hour {
		t.Fatalf("total solar eclipse peaks at %s", total.Peak)
	}
	if len(p.Lunar) != 0 {
		t.Fatalf("no lunar eclipse at new moon, got %v", p.Lunar)
	}
	if n := testutil.ToFloat64(m.Events.WithLabelValues(Sun.Name, Total.String())); n != 1 {
		t.Fatalf("%f total solar events counted", n)
	}

	solar, lunar := p.Evaluate(MeeusCatalog(cfg.Epoch, cfg.End(consts)), DefaultMatchWindow)
	if solar.Accuracy() != 1 || len(solar.Extra) != 0 {
		t.Fatalf("unexpected solar comparison %+v", solar)
	}
	if len(lunar.Matches)+len(lunar.Missed)+len(lunar.Extra) != 0 {
		t.Fatalf("unexpected lunar comparison %+v", lunar)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "trajectory-2017-08-20.csv")); err != nil {
		t.Fatalf("the trajectory was not exported: %s", err)
	}
}

func TestPredictLunar(t *testing.T) {
	if testing.Short() {
		t.Skip("integrates the Sun, Earth and Moon")
	}
	cfg := predictConfig(t, "2018-07-26", 2.5)
	p, err := Predict(context.Background(), cfg, DefaultConstants(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var total *Occurrence
	for i, o := range p.Lunar {
		if o.Kind == Total {
			total = &p.Lunar[i]
		}
	}
	if total == nil {
		t.Fatalf("the total lunar eclipse of 2018-07-27 was not found: %v", p.Lunar)
	}
	if exp := time.Date(2018, 7, 27, 20, 21, 0, 0, time.UTC); total.Peak.Sub(exp).Abs() > time.Hour {
		t.Fatalf("total lunar eclipse peaks at %s", total.Peak)
	}
	if len(p.Solar) != 0 {
		t.Fatalf("no solar eclipse at full moon, got %v", p.Solar)
	}

	cfg.Lunar.Side = MoonSunward
	p, err = Predict(context.Background(), cfg, DefaultConstants(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Lunar) != 0 {
		t.Fatalf("the sunward side condition rejects a full moon, got %v", p.Lunar)
	}
}

func TestPredictErrors(t *testing.T) {
	cfg := predictConfig(t, "2018-07-26", 1)
	cfg.Step = 0
	if _, err := Predict(context.Background(), cfg, DefaultConstants(), nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	cfg = predictConfig(t, "2018-07-26", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Predict(ctx, cfg, DefaultConstants(), nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
