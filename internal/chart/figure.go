package chart

import (
	"fmt"

	"github.com/KaramelBytes/batcov/internal/prevalence"
)

// HoverTemplate is the plotly hover text shown for each bar.
const HoverTemplate = "Category: %{x}<br>Proportion: %{y:.2f} ± %{error_y.array:.2f}<br>n: %{text}<br><extra></extra>"

const (
	alphaColor  = "skyblue"
	betaColor   = "salmon"
	singleColor = alphaColor
)

// ColorFor returns the bar color for a lower-cased virus genus in Compare
// charts, or the single-series color for anything else.
func ColorFor(genus string) string {
	switch genus {
	case "alphacoronavirus":
		return alphaColor
	case "betacoronavirus":
		return betaColor
	}
	return singleColor
}

// Series is one set of bars drawn in a single color.
type Series struct {
	Name  string    `json:"name"`
	X     []string  `json:"x"`
	Y     []float64 `json:"y"`
	Err   []float64 `json:"error_y"`
	N     []int     `json:"n"`
	Color string    `json:"color"`
	Hover string    `json:"hovertemplate"`
}

// Figure is the renderer-neutral chart description for a statistics table.
type Figure struct {
	Title      string   `json:"title"`
	XTitle     string   `json:"x_title"`
	YTitle     string   `json:"y_title"`
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
}

// Build maps group keys to x, proportion to y, prop_error to the error bars
// and the sampled count to hover text. Compare tables yield one series per
// genus on a shared category axis ordered by first appearance.
func Build(t *prevalence.Table) Figure {
	fig := Figure{
		Title:  fmt.Sprintf("Coronavirus prevalence in bats: %s by %s", t.Query.Genus.Label(), t.Query.GroupBy),
		XTitle: t.Query.GroupBy.String(),
		YTitle: "Proportion positive",
	}
	seen := map[string]bool{}
	for _, r := range t.Rows {
		if !seen[r.Group] {
			seen[r.Group] = true
			fig.Categories = append(fig.Categories, r.Group)
		}
	}
	if fig.Categories == nil {
		fig.Categories = []string{}
	}

	if !t.Compare() {
		s := newSeries(t.Query.Genus.Label(), singleColor)
		for _, r := range t.Rows {
			s.add(r)
		}
		fig.Series = []Series{s}
		return fig
	}

	for _, genus := range []string{"alphacoronavirus", "betacoronavirus"} {
		s := newSeries(genus, ColorFor(genus))
		for _, r := range t.Rows {
			if r.VirusGenus == genus {
				s.add(r)
			}
		}
		fig.Series = append(fig.Series, s)
	}
	return fig
}

func newSeries(name, color string) Series {
	return Series{
		Name:  name,
		X:     []string{},
		Y:     []float64{},
		Err:   []float64{},
		N:     []int{},
		Color: color,
		Hover: HoverTemplate,
	}
}

func (s *Series) add(r prevalence.Row) {
	s.X = append(s.X, r.Group)
	s.Y = append(s.Y, r.Proportion)
	s.Err = append(s.Err, r.PropError)
	s.N = append(s.N, r.Sampled)
}
