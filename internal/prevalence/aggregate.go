package prevalence

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/batcov/internal/dataset"
)

// ErrUntypedCounts means the positive/sampled columns were not integer-coerced.
var ErrUntypedCounts = errors.New("count columns are not integer typed")

// DefaultMinSampled is the group size a row must exceed to be reported.
const DefaultMinSampled = 10

// comparedGenera is how many genera a value needs in Compare mode.
const comparedGenera = 2

// Query is one user selection.
type Query struct {
	Genus   GenusSelector `json:"genus"`
	GroupBy GroupField    `json:"group_by"`
}

// ParseQuery validates both selections at once.
func ParseQuery(genus, groupBy string) (Query, error) {
	g, err := ParseGenusSelector(genus)
	if err != nil {
		return Query{}, err
	}
	f, err := ParseGroupField(groupBy)
	if err != nil {
		return Query{}, err
	}
	return Query{Genus: g, GroupBy: f}, nil
}

func (q Query) String() string { return fmt.Sprintf("%s by %s", q.Genus, q.GroupBy) }

// Options controls post-aggregation filtering.
type Options struct {
	// MinSampled drops rows whose sampled total is not strictly greater.
	MinSampled int
}

// DefaultOptions returns the dashboard defaults.
func DefaultOptions() Options {
	return Options{MinSampled: DefaultMinSampled}
}

// Row is one group (and genus, in Compare mode) of the statistics table.
type Row struct {
	Group      string  `json:"group"`
	VirusGenus string  `json:"virus_genus,omitempty"`
	Positive   int     `json:"positive"`
	Sampled    int     `json:"sampled"`
	Proportion float64 `json:"proportion"`
	PropError  float64 `json:"prop_error"`
}

// Table is the aggregated statistics for one query.
type Table struct {
	Source     string `json:"source,omitempty"`
	Query      Query  `json:"query"`
	MinSampled int    `json:"min_sampled"`
	Rows       []Row  `json:"rows"`
}

// Compare reports whether rows carry a virus genus column.
func (t *Table) Compare() bool { return t.Query.Genus == Compare }

type groupKey struct {
	group string
	genus string
}

type counts struct {
	positive int
	sampled  int
}

// Aggregate groups prepared observations for q and computes proportions.
// Observations with a blank or NA group value are left out.
// It reads ds without modifying it and keeps no state between calls.
func Aggregate(ds *dataset.Dataset, q Query, opt Options) (*Table, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", ErrInvalidArgument)
	}
	if !q.Genus.valid() {
		return nil, fmt.Errorf("%w: genus selector %d", ErrInvalidArgument, int(q.Genus))
	}
	if !q.GroupBy.valid() {
		return nil, fmt.Errorf("%w: group field %d", ErrInvalidArgument, int(q.GroupBy))
	}
	if opt.MinSampled < 0 {
		return nil, fmt.Errorf("%w: min sampled %d", ErrInvalidArgument, opt.MinSampled)
	}
	if !ds.CountsTyped() {
		cols := ds.Columns()
		return nil, fmt.Errorf("%w: %q/%q", ErrUntypedCounts, cols.Positive, cols.Sampled)
	}

	obs := selectObservations(ds.Observations(), q)
	acc := map[groupKey]*counts{}
	for _, o := range obs {
		k := groupKey{group: q.GroupBy.value(o)}
		if missingKey(k.group) {
			continue
		}
		if q.Genus == Compare {
			k.genus = strings.ToLower(o.VirusGenus)
		}
		c := acc[k]
		if c == nil {
			c = &counts{}
			acc[k] = c
		}
		c.positive += o.Positive
		c.sampled += o.Sampled
	}

	keys := make([]groupKey, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].group != keys[j].group {
			return keys[i].group < keys[j].group
		}
		return keys[i].genus < keys[j].genus
	})

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		c := acc[k]
		p := proportion(c.positive, c.sampled)
		rows = append(rows, Row{
			Group:      k.group,
			VirusGenus: k.genus,
			Positive:   c.positive,
			Sampled:    c.sampled,
			Proportion: p,
			PropError:  standardError(p, c.sampled),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return byProportionDesc(rows[i].Proportion, rows[j].Proportion)
	})

	out := rows[:0]
	for _, r := range rows {
		if r.Sampled > opt.MinSampled {
			out = append(out, r)
		}
	}
	return &Table{Source: ds.Source(), Query: q, MinSampled: opt.MinSampled, Rows: out}, nil
}

// selectObservations applies the genus filter for q.
func selectObservations(obs []dataset.Observation, q Query) []dataset.Observation {
	switch q.Genus {
	case Any:
		return obs
	case Alphacoronavirus, Betacoronavirus:
		want := q.Genus.virusGenus()
		out := obs[:0]
		for _, o := range obs {
			if strings.ToLower(o.VirusGenus) == want {
				out = append(out, o)
			}
		}
		return out
	}

	out := obs[:0]
	genera := map[string]map[string]struct{}{}
	for _, o := range obs {
		g := strings.ToLower(o.VirusGenus)
		if g != genusAlpha && g != genusBeta {
			continue
		}
		out = append(out, o)
		v := q.GroupBy.value(o)
		if missingKey(v) {
			continue
		}
		if genera[v] == nil {
			genera[v] = map[string]struct{}{}
		}
		genera[v][g] = struct{}{}
	}
	if !q.GroupBy.pruneSingleGenus() {
		return out
	}
	both := out[:0]
	for _, o := range out {
		if len(genera[q.GroupBy.value(o)]) == comparedGenera {
			both = append(both, o)
		}
	}
	return both
}

// proportion is positive/sampled; a zero denominator yields NaN.
func proportion(positive, sampled int) float64 {
	if sampled == 0 {
		return math.NaN()
	}
	return float64(positive) / float64(sampled)
}

// standardError is the normal-approximation standard error of p.
func standardError(p float64, n int) float64 {
	if n == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	return math.Sqrt(p * (1 - p) / float64(n))
}

// byProportionDesc orders larger proportions first and NaN last.
func byProportionDesc(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	}
	return a > b
}
