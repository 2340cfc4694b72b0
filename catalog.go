package eclipse

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	mecl "github.com/soniakeys/meeus/v3/eclipse"
	"gonum.org/v1/gonum/stat"
)

const (
	catalogDate = "2006-01-02"
	catalogTime = "15:04:05"
	// lunationsPerYear is the number of synodic months in a year.
	lunationsPerYear = 12.3685
)

// DefaultMatchWindow is the largest offset between a predicted and a reference maximum for them to match.
const DefaultMatchWindow = time.Hour

// DefaultSuppressWindow is the window within which a partial record next to a central one is dropped.
const DefaultSuppressWindow = 2 * time.Hour

// Record is an eclipse maximum.
type Record struct {
	Body string // Eclipsed body
	Kind Kind
	Max  time.Time
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s", r.Max.Format(catalogDate+" "+catalogTime), r.Body, r.Kind)
}

// Catalog lists solar and lunar eclipse maxima in chronological order.
type Catalog struct {
	Solar, Lunar []Record
}

type catalogEntry struct {
	Date    string `json:"date"`
	Type    string `json:"type"`
	MaxTime string `json:"max_time"`
}

type catalogFile struct {
	Solar map[string][]catalogEntry `json:"solar_eclipses"`
	Lunar map[string][]catalogEntry `json:"lunar_eclipses"`
}

// parseCatalogKind maps the catalog types to kinds. Hybrid eclipses are total on part of their path.
func parseCatalogKind(s string) (Kind, error) {
	if s == "hybrid" {
		return Total, nil
	}
	return ParseKind(s)
}

func decodeEntries(body string, years map[string][]catalogEntry) ([]Record, error) {
	var records []Record
	for year, entries := range years {
		for i, e := range entries {
			kind, err := parseCatalogKind(e.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "%s eclipse %d of %s", body, i, year)
			}
			at, err := time.Parse(catalogDate+" "+catalogTime, e.Date+" "+e.MaxTime)
			if err != nil {
				return nil, errors.Wrapf(err, "%s eclipse %d of %s", body, i, year)
			}
			records = append(records, Record{Body: body, Kind: kind, Max: at})
		}
	}
	sortRecords(records)
	return records, nil
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Max.Before(records[j].Max) })
}

// LoadCatalog decodes a JSON catalog keyed by year:
// {"solar_eclipses": {"2025": [{"date": "2025-03-29", "type": "partial", "max_time": "10:47:27"}]}, "lunar_eclipses": {...}}
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decoding catalog")
	}
	solar, err := decodeEntries(Sun.Name, f.Solar)
	if err != nil {
		return nil, err
	}
	lunar, err := decodeEntries(Moon.Name, f.Lunar)
	if err != nil {
		return nil, err
	}
	return &Catalog{Solar: solar, Lunar: lunar}, nil
}

// LoadCatalogFile decodes the JSON catalog at path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

func encodeEntries(records []Record) map[string][]catalogEntry {
	years := make(map[string][]catalogEntry)
	for _, r := range records {
		at := r.Max.UTC()
		year := strconv.Itoa(at.Year())
		years[year] = append(years[year], catalogEntry{Date: at.Format(catalogDate), Type: r.Kind.String(), MaxTime: at.Format(catalogTime)})
	}
	return years
}

// WriteJSON encodes the catalog in the format read by LoadCatalog.
func (c *Catalog) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(catalogFile{Solar: encodeEntries(c.Solar), Lunar: encodeEntries(c.Lunar)})
}

// Between returns the records whose maximum is in [from, to).
func (c *Catalog) Between(from, to time.Time) *Catalog {
	filter := func(records []Record) []Record {
		var out []Record
		for _, r := range records {
			if !r.Max.Before(from) && r.Max.Before(to) {
				out = append(out, r)
			}
		}
		return out
	}
	return &Catalog{Solar: filter(c.Solar), Lunar: filter(c.Lunar)}
}

// jdeToUTC converts a Julian ephemeris day to UTC.
func jdeToUTC(jde float64) time.Time {
	tt := julian.JDToTime(jde)
	return tt.Add(-DeltaT(tt)).Round(time.Second)
}

// MeeusCatalog computes the eclipse maxima between from and to with the algorithms of
// chapter 54 of Astronomical Algorithms.
func MeeusCatalog(from, to time.Time) *Catalog {
	c := &Catalog{}
	lunation := func(t time.Time) float64 {
		return (julian.TimeToJD(t) - base.J2000) / base.JulianYear * lunationsPerYear
	}
	// One lunation past the bounds so that no eclipse near them is skipped.
	for k := math.Floor(lunation(from)) - 1; k <= math.Ceil(lunation(to))+1; k++ {
		// Years of new moon k and of the following full moon.
		if kind, _, jmax, _, _, _, _ := mecl.Solar(2000 + k/lunationsPerYear); kind != mecl.None {
			if t := jdeToUTC(jmax); !t.Before(from) && t.Before(to) {
				c.Solar = append(c.Solar, Record{Body: Sun.Name, Kind: meeusSolarKind(kind), Max: t})
			}
		}
		if kind, jmax, _, _, _, _, _, _, _ := mecl.Lunar(2000 + (k+0.5)/lunationsPerYear); kind != mecl.None {
			if t := jdeToUTC(jmax); !t.Before(from) && t.Before(to) {
				c.Lunar = append(c.Lunar, Record{Body: Moon.Name, Kind: meeusLunarKind(kind), Max: t})
			}
		}
	}
	sortRecords(c.Solar)
	sortRecords(c.Lunar)
	return c
}

func meeusSolarKind(k int) Kind {
	switch k {
	case mecl.Partial:
		return Partial
	case mecl.Annular:
		return Annular
	case mecl.AnnularTotal, mecl.Total:
		return Total
	}
	return None
}

func meeusLunarKind(k int) Kind {
	switch k {
	case mecl.Penumbral:
		return Penumbral
	case mecl.Umbral:
		return Partial
	case mecl.Total:
		return Total
	}
	return None
}

// RecordsFromOccurrences returns the maxima of the complete occurrences.
func RecordsFromOccurrences(occurrences []Occurrence) []Record {
	var records []Record
	for _, o := range occurrences {
		if !o.Complete {
			continue
		}
		records = append(records, Record{Body: o.Body, Kind: o.Kind, Max: o.Peak})
	}
	sortRecords(records)
	return records
}

// SuppressEnvelopes drops the records which lie within `within` of a record of an inner phase:
// a partial record next to a total or annular one, or a penumbral record next to a partial or
// total one, is the envelope of that eclipse.
func SuppressEnvelopes(records []Record, within time.Duration) []Record {
	depth := func(k Kind) int {
		switch {
		case k.Central():
			return 3
		case k == Partial:
			return 2
		case k == Penumbral:
			return 1
		}
		return 0
	}
	var out []Record
	for i, r := range records {
		keep := true
		for j, o := range records {
			if i != j && o.Body == r.Body && depth(o.Kind) > depth(r.Kind) && o.Max.Sub(r.Max).Abs() <= within {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// Match pairs a reference record with its nearest prediction.
type Match struct {
	Reference, Predicted Record
	Offset               time.Duration // Predicted minus reference maximum.
}

// Comparison is the outcome of comparing predictions to a reference.
type Comparison struct {
	Matches []Match
	Missed  []Record // Reference records without a prediction.
	Extra   []Record // Predictions without a reference record.
}

// Compare matches every reference record to the nearest unmatched prediction of the same kind
// within window.
func Compare(predicted, reference []Record, window time.Duration) Comparison {
	var c Comparison
	used := make([]bool, len(predicted))
	for _, ref := range reference {
		best := -1
		var bestOffset time.Duration
		for i, p := range predicted {
			if used[i] || p.Kind != ref.Kind || p.Body != ref.Body {
				continue
			}
			offset := p.Max.Sub(ref.Max)
			if best < 0 || offset.Abs() < bestOffset.Abs() {
				best, bestOffset = i, offset
			}
		}
		if best >= 0 && bestOffset.Abs() <= window {
			used[best] = true
			c.Matches = append(c.Matches, Match{Reference: ref, Predicted: predicted[best], Offset: bestOffset})
			continue
		}
		c.Missed = append(c.Missed, ref)
	}
	for i, p := range predicted {
		if !used[i] {
			c.Extra = append(c.Extra, p)
		}
	}
	return c
}

// Merge returns the union of two comparisons.
func (c Comparison) Merge(o Comparison) Comparison {
	return Comparison{
		Matches: append(append([]Match(nil), c.Matches...), o.Matches...),
		Missed:  append(append([]Record(nil), c.Missed...), o.Missed...),
		Extra:   append(append([]Record(nil), c.Extra...), o.Extra...),
	}
}

// Accuracy returns the fraction of reference records which were matched, or 0 without reference.
func (c Comparison) Accuracy() float64 {
	n := len(c.Matches) + len(c.Missed)
	if n == 0 {
		return 0
	}
	return float64(len(c.Matches)) / float64(n)
}

// OffsetStats returns the mean and standard deviation of the match offsets, and the largest
// absolute offset, in minutes.
func (c Comparison) OffsetStats() (mean, std, worst float64) {
	if len(c.Matches) == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	offsets := make([]float64, len(c.Matches))
	for i, m := range c.Matches {
		offsets[i] = m.Offset.Minutes()
		worst = math.Max(worst, math.Abs(offsets[i]))
	}
	mean, std = stat.MeanStdDev(offsets, nil)
	return mean, std, worst
}
