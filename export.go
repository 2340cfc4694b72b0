package eclipse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	dateFormat         = "2006-01-02 15:04:05.000"
	dateFormatFilename = "2006-01-02T15.04.05"
)

// Snapshot is the recorded position of the primaries at one instant.
type Snapshot struct {
	DT    time.Time
	Names []string
	R     [][]float64
}

// ExportConfig configures the exporting of a run.
type ExportConfig struct {
	OutputDir  string
	Filename   string
	Trajectory bool // Export the trajectory as CSV.
	Timestamp  bool // Append the creation time to the file names.
	Units      Units
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.Trajectory
}

// path returns the path of an output file with the given prefix and extension.
func (c ExportConfig) path(prefix, ext string) string {
	name := prefix + "-" + c.Filename
	if c.Timestamp {
		name += "-" + time.Now().UTC().Format(dateFormatFilename)
	}
	return filepath.Join(c.OutputDir, name+"."+ext)
}

// Stream writes the snapshots sent on its channel in the background.
type Stream struct {
	C    chan Snapshot
	done chan error
}

// NewStream starts streaming the trajectory as CSV per the export configuration.
func NewStream(conf ExportConfig) *Stream {
	s := &Stream{C: make(chan Snapshot, 1000), done: make(chan error, 1)}
	go func() {
		s.done <- StreamSnapshots(conf, s.C)
	}()
	return s
}

// Wait blocks until the channel was closed and every snapshot written.
func (s *Stream) Wait() error {
	return <-s.done
}

// StreamSnapshots writes the snapshots read from the channel to the trajectory CSV file,
// until the channel is closed. The channel is always drained.
func StreamSnapshots(conf ExportConfig, snapChan <-chan Snapshot) (err error) {
	var f *os.File
	var w *csv.Writer
	var first time.Time
	defer func() {
		// Drain so that the producer never blocks.
		for range snapChan {
		}
		if f == nil {
			return
		}
		w.Flush()
		if werr := w.Error(); err == nil {
			err = werr
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	for snap := range snapChan {
		if f == nil {
			if f, err = os.Create(conf.path("trajectory", "csv")); err != nil {
				return err
			}
			first = snap.DT
			fmt.Fprintf(f, "# Creation date (UTC): %s\n# Positions in units of %.6f km, heliocentric ecliptic of date\n#   Simulation time start (UTC): %s\n",
				time.Now().UTC(), conf.Units.LengthKm, snap.DT.UTC())
			w = csv.NewWriter(f)
			hdr := []string{"time", "timeInHours"}
			for _, name := range snap.Names {
				hdr = append(hdr, name+"_x", name+"_y", name+"_z")
			}
			if err = w.Write(hdr); err != nil {
				return err
			}
		}
		record := make([]string, 0, 2+3*len(snap.R))
		record = append(record, snap.DT.UTC().Format(dateFormat), strconv.FormatFloat(snap.DT.Sub(first).Hours(), 'f', 3, 64))
		for _, r := range snap.R {
			for _, x := range r {
				record = append(record, strconv.FormatFloat(x, 'e', 12, 64))
			}
		}
		if err = w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteEventsCSV writes the occurrences as CSV.
func WriteEventsCSV(w io.Writer, occurrences []Occurrence) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"body", "type", "start", "max", "end", "complete"}); err != nil {
		return err
	}
	format := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(dateFormat)
	}
	for _, o := range occurrences {
		if err := cw.Write([]string{o.Body, o.Kind.String(), format(o.Start), format(o.Peak), format(o.End), strconv.FormatBool(o.Complete)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReport writes a human readable report of the solar and lunar occurrences.
func WriteReport(w io.Writer, epoch time.Time, solar, lunar []Occurrence) error {
	rule, dashes := strings.Repeat("=", 60), strings.Repeat("-", 60)
	format := func(t time.Time) string {
		if t.IsZero() {
			return "unknown"
		}
		return t.UTC().Format(dateFormat)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Initial time: %s\n", epoch.UTC().Format(dateFormat))
	for _, section := range []struct {
		title       string
		occurrences []Occurrence
	}{{"solar", solar}, {"lunar", lunar}} {
		fmt.Fprintf(&b, "%s\nTimes of %s eclipses:\n", rule, section.title)
		for _, o := range section.occurrences {
			fmt.Fprintf(&b, "%s\nStart time: %s\nType: %s\nMax time: %s\nEnd time %s\n",
				dashes, format(o.Start), o.Kind, format(o.Peak), format(o.End))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteComparison writes the outcome of a comparison against a reference catalog.
func WriteComparison(w io.Writer, title string, c Comparison) error {
	mean, std, worst := c.OffsetStats()
	var b strings.Builder
	fmt.Fprintf(&b, "%s: accuracy %.2f%% (%d matched, %d missed, %d extra)\n", title, 100*c.Accuracy(), len(c.Matches), len(c.Missed), len(c.Extra))
	fmt.Fprintf(&b, "  offset (min): mean %.2f, std %.2f, worst %.2f\n", mean, std, worst)
	for _, m := range c.Matches {
		fmt.Fprintf(&b, "  match  %s (%+.1f min)\n", m.Reference, m.Offset.Minutes())
	}
	for _, r := range c.Missed {
		fmt.Fprintf(&b, "  missed %s\n", r)
	}
	for _, r := range c.Extra {
		fmt.Fprintf(&b, "  extra  %s\n", r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile creates the file of the given prefix and extension in the output directory, and
// writes it with fn.
func (c ExportConfig) WriteFile(prefix, ext string, fn func(io.Writer) error) (string, error) {
	path := c.path(prefix, ext)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, f.Close()
}
