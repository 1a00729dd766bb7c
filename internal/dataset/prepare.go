package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	// CrossSectional is the only study type kept by Prepare.
	CrossSectional = "cross-sectional"
	// YearUnknown replaces malformed citation years when StrictYear is set.
	YearUnknown = "unknown"

	// Derived column names added by Prepare.
	ColBatGenus = "Bat genus"
	ColYear     = "Year"
)

// Columns maps logical fields to header names in the raw table.
// Field order matches config.Columns so the two convert directly.
type Columns struct {
	Study        string
	StudyType    string
	BatSpecies   string
	Country      string
	SampleTissue string
	VirusGenus   string
	Positive     string
	Sampled      string
	Link         string
}

// DefaultColumns returns the header names of the published surveillance table.
func DefaultColumns() Columns {
	return Columns{
		Study:        "Study",
		StudyType:    "Study type",
		BatSpecies:   "Bat species",
		Country:      "Country",
		SampleTissue: "Sample type",
		VirusGenus:   "Virus genus",
		Positive:     "+",
		Sampled:      "#",
		Link:         "🔗",
	}
}

func (c Columns) required() []string {
	return []string{c.Study, c.StudyType, c.BatSpecies, c.Country, c.SampleTissue, c.VirusGenus, c.Positive, c.Sampled}
}

// PrepareOptions tunes dataset preparation.
type PrepareOptions struct {
	// Source names the input (usually the file name) for reports.
	Source string
	// StrictYear maps citation tails that are not four digits to YearUnknown.
	StrictYear bool
}

// Observation is one prepared row with the fields the aggregator reads.
type Observation struct {
	Study        string
	BatGenus     string
	BatSpecies   string
	Country      string
	SampleTissue string
	VirusGenus   string
	Year         string
	Positive     int
	Sampled      int
}

// Stats counts tolerated irregularities seen while preparing.
type Stats struct {
	MissingSpecies int
	UnknownYears   int
	Dropped        int
}

// Dataset is the prepared, read-only analysis table.
type Dataset struct {
	source  string
	cols    Columns
	frame   dataframe.DataFrame
	obs     []Observation
	coerced map[string]bool
	rawRows int
	stats   Stats
}

// Prepare turns the raw table into a Dataset: splits bat species, derives
// the year, drops the hyperlink column, keeps cross-sectional studies and
// coerces integer-like columns. Only a missing required column is an error.
func Prepare(raw dataframe.DataFrame, cols Columns, opt PrepareOptions) (*Dataset, error) {
	if raw.Err != nil {
		return nil, fmt.Errorf("prepare: %w", raw.Err)
	}
	present := map[string]bool{}
	for _, n := range raw.Names() {
		present[n] = true
	}
	var missing []string
	for _, n := range cols.required() {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("prepare: missing required column(s): %s", strings.Join(missing, ", "))
	}

	ds := &Dataset{source: opt.Source, cols: cols, rawRows: raw.Nrow(), coerced: map[string]bool{}}
	df := raw.Copy()

	// 1. species split
	speciesText := df.Col(cols.BatSpecies).Records()
	genera := make([]string, len(speciesText))
	species := make([]string, len(speciesText))
	for i, s := range speciesText {
		genera[i], species[i] = SplitSpecies(s)
	}
	df = df.Mutate(series.New(genera, series.String, ColBatGenus)).
		Mutate(series.New(species, series.String, cols.BatSpecies))

	// 2. year
	citations := df.Col(cols.Study).Records()
	years := make([]string, len(citations))
	for i, c := range citations {
		if opt.StrictYear {
			years[i] = ParseYear(c)
		} else {
			years[i] = ExtractYear(c)
		}
	}
	df = df.Mutate(series.New(years, series.String, ColYear))

	// 3. hyperlink
	if cols.Link != "" && present[cols.Link] {
		df = df.Drop(cols.Link)
	}

	// 4. study type
	df = filterCrossSectional(df, cols.StudyType)
	if df.Err != nil {
		return nil, fmt.Errorf("prepare: %w", df.Err)
	}
	ds.stats.Dropped = ds.rawRows - df.Nrow()

	// 5. best-effort integer coercion, whole columns only
	for _, name := range df.Names() {
		ints, ok := coerceInts(df.Col(name).Records())
		if !ok {
			continue
		}
		df = df.Mutate(series.New(ints, series.Int, name))
		ds.coerced[name] = true
	}
	if df.Err != nil {
		return nil, fmt.Errorf("prepare: %w", df.Err)
	}
	ds.frame = df
	ds.obs = observations(df, cols, ds.coerced)
	for _, o := range ds.obs {
		if o.BatSpecies == "" {
			ds.stats.MissingSpecies++
		}
		if o.Year == YearUnknown {
			ds.stats.UnknownYears++
		}
	}
	return ds, nil
}

// filterCrossSectional keeps rows whose study type is exactly CrossSectional.
func filterCrossSectional(df dataframe.DataFrame, col string) dataframe.DataFrame {
	kept := 0
	for _, v := range df.Col(col).Records() {
		if v == CrossSectional {
			kept++
		}
	}
	if kept == 0 {
		return emptyLike(df)
	}
	return df.Filter(dataframe.F{Colname: col, Comparator: series.Eq, Comparando: CrossSectional})
}

func emptyLike(df dataframe.DataFrame) dataframe.DataFrame {
	cols := make([]series.Series, 0, df.Ncol())
	for _, n := range df.Names() {
		cols = append(cols, series.New([]string{}, series.String, n))
	}
	return dataframe.New(cols...)
}

// coerceInts converts every value or none of them.
func coerceInts(vals []string) ([]int, bool) {
	out := make([]int, len(vals))
	for i, v := range vals {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func observations(df dataframe.DataFrame, cols Columns, coerced map[string]bool) []Observation {
	n := df.Nrow()
	text := func(name string) []string { return df.Col(name).Records() }
	study, country, tissue := text(cols.Study), text(cols.Country), text(cols.SampleTissue)
	genus, sp, virus, year := text(ColBatGenus), text(cols.BatSpecies), text(cols.VirusGenus), text(ColYear)

	var pos, tot []int
	if coerced[cols.Positive] && coerced[cols.Sampled] {
		pos, _ = df.Col(cols.Positive).Int()
		tot, _ = df.Col(cols.Sampled).Int()
	}
	out := make([]Observation, n)
	for i := 0; i < n; i++ {
		o := Observation{
			Study:        study[i],
			BatGenus:     genus[i],
			BatSpecies:   sp[i],
			Country:      country[i],
			SampleTissue: tissue[i],
			VirusGenus:   virus[i],
			Year:         year[i],
		}
		if pos != nil {
			o.Positive, o.Sampled = pos[i], tot[i]
		}
		out[i] = o
	}
	return out
}

// Source returns the name the dataset was loaded from.
func (d *Dataset) Source() string { return d.source }

// Columns returns the header mapping used to prepare the dataset.
func (d *Dataset) Columns() Columns { return d.cols }

// RawRows is the row count before the study type filter.
func (d *Dataset) RawRows() int { return d.rawRows }

// Rows is the prepared row count.
func (d *Dataset) Rows() int { return len(d.obs) }

// Stats reports tolerated irregularities.
func (d *Dataset) Stats() Stats { return d.stats }

// Frame returns a copy of the prepared table.
func (d *Dataset) Frame() dataframe.DataFrame { return d.frame.Copy() }

// Observations returns a copy of the prepared rows.
func (d *Dataset) Observations() []Observation {
	out := make([]Observation, len(d.obs))
	copy(out, d.obs)
	return out
}

// IsCoerced reports whether the named column was converted to integers.
func (d *Dataset) IsCoerced(name string) bool { return d.coerced[name] }

// Coerced lists integer-typed columns in sorted order.
func (d *Dataset) Coerced() []string {
	out := make([]string, 0, len(d.coerced))
	for k := range d.coerced {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CountsTyped reports whether both count columns hold integers.
func (d *Dataset) CountsTyped() bool {
	return d.coerced[d.cols.Positive] && d.coerced[d.cols.Sampled]
}
