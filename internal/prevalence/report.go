package prevalence

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary describes a statistics table as a whole.
type Summary struct {
	Groups           int     `json:"groups"`
	Positive         int     `json:"positive"`
	Sampled          int     `json:"sampled"`
	Pooled           float64 `json:"pooled_proportion"`
	MeanProportion   float64 `json:"mean_proportion"`
	MedianProportion float64 `json:"median_proportion"`
}

// Summary pools the reported rows. An empty table yields zeros.
func (t *Table) Summary() Summary {
	s := Summary{Groups: len(t.Rows)}
	props := make(stats.Float64Data, 0, len(t.Rows))
	for _, r := range t.Rows {
		s.Positive += r.Positive
		s.Sampled += r.Sampled
		props = append(props, r.Proportion)
	}
	if s.Sampled > 0 {
		s.Pooled = float64(s.Positive) / float64(s.Sampled)
	}
	if mean, err := stats.Mean(props); err == nil {
		s.MeanProportion = mean
	}
	if median, err := stats.Median(props); err == nil {
		s.MedianProportion = median
	}
	return s
}

// ConfidenceInterval is the normal-approximation interval at level
// (0.95 when level is outside (0,1)), clamped to [0,1].
func (r Row) ConfidenceInterval(level float64) (lo, hi float64) {
	if !(level > 0 && level < 1) {
		level = 0.95
	}
	z := distuv.UnitNormal.Quantile(1 - (1-level)/2)
	lo = math.Max(0, r.Proportion-z*r.PropError)
	hi = math.Min(1, r.Proportion+z*r.PropError)
	return lo, hi
}

// Columns returns the output header: group, [Virus genus], +, #, proportion, prop_error.
func (t *Table) Columns() []string {
	cols := []string{t.Query.GroupBy.String()}
	if t.Compare() {
		cols = append(cols, "Virus genus")
	}
	return append(cols, "+", "#", "proportion", "prop_error")
}

// Records renders rows as text in Columns order.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := []string{r.Group}
		if t.Compare() {
			rec = append(rec, r.VirusGenus)
		}
		rec = append(rec,
			strconv.Itoa(r.Positive),
			strconv.Itoa(r.Sampled),
			strconv.FormatFloat(r.Proportion, 'f', 4, 64),
			strconv.FormatFloat(r.PropError, 'f', 4, 64),
		)
		out = append(out, rec)
	}
	return out
}

// Markdown renders a compact report suitable for terminals and notes.
func (t *Table) Markdown() string {
	var b strings.Builder
	b.WriteString("[PREVALENCE SUMMARY]\n")
	if t.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", t.Source))
	}
	b.WriteString(fmt.Sprintf("Genus: %s\n", t.Query.Genus.Label()))
	b.WriteString(fmt.Sprintf("Grouped by: %s\n", t.Query.GroupBy))
	b.WriteString(fmt.Sprintf("Minimum sampled: > %d\n", t.MinSampled))
	s := t.Summary()
	b.WriteString(fmt.Sprintf("Groups: %d\n", s.Groups))
	if s.Groups == 0 {
		b.WriteString("\nNo group has enough sampled individuals.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Pooled proportion: %.4f (%d/%d)\n", s.Pooled, s.Positive, s.Sampled))
	b.WriteString(fmt.Sprintf("Group proportion: mean %.4f, median %.4f\n", s.MeanProportion, s.MedianProportion))

	b.WriteString("\n[GROUPS]\n")
	for _, r := range t.Rows {
		name := r.Group
		if r.VirusGenus != "" {
			name = fmt.Sprintf("%s / %s", name, r.VirusGenus)
		}
		lo, hi := r.ConfidenceInterval(0.95)
		b.WriteString(fmt.Sprintf("- %s: %d/%d = %.3f ± %.3f (95%% CI %.3f–%.3f)\n",
			name, r.Positive, r.Sampled, r.Proportion, r.PropError, lo, hi))
	}
	return b.String()
}
