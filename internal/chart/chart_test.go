package chart_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/batcov/internal/chart"
	"github.com/KaramelBytes/batcov/internal/prevalence"
)

func compareTable() *prevalence.Table {
	return &prevalence.Table{
		Query:      prevalence.Query{Genus: prevalence.Compare, GroupBy: prevalence.Year},
		MinSampled: 10,
		Rows: []prevalence.Row{
			{Group: "2016", VirusGenus: "betacoronavirus", Positive: 8, Sampled: 20, Proportion: 0.4, PropError: 0.1095},
			{Group: "2015", VirusGenus: "alphacoronavirus", Positive: 12, Sampled: 40, Proportion: 0.3, PropError: 0.0725},
			{Group: "2016", VirusGenus: "alphacoronavirus", Positive: 5, Sampled: 60, Proportion: 0.0833, PropError: 0.0357},
		},
	}
}

func TestBuild_SingleSeries(t *testing.T) {
	tbl := &prevalence.Table{
		Query: prevalence.Query{Genus: prevalence.Betacoronavirus, GroupBy: prevalence.Country},
		Rows: []prevalence.Row{
			{Group: "USA", Positive: 15, Sampled: 50, Proportion: 0.3, PropError: 0.0648},
			{Group: "Peru", Positive: 2, Sampled: 40, Proportion: 0.05, PropError: 0.0345},
		},
	}
	fig := chart.Build(tbl)
	require.Len(t, fig.Series, 1)
	s := fig.Series[0]
	assert.Equal(t, []string{"USA", "Peru"}, s.X)
	assert.Equal(t, []float64{0.3, 0.05}, s.Y)
	assert.Equal(t, []float64{0.0648, 0.0345}, s.Err)
	assert.Equal(t, []int{50, 40}, s.N)
	assert.Equal(t, "skyblue", s.Color)
	assert.Equal(t, chart.HoverTemplate, s.Hover)
	assert.Equal(t, "Country", fig.XTitle)
	assert.Equal(t, []string{"USA", "Peru"}, fig.Categories)
}

func TestBuild_CompareSharesCategories(t *testing.T) {
	fig := chart.Build(compareTable())
	assert.Equal(t, []string{"2016", "2015"}, fig.Categories)
	require.Len(t, fig.Series, 2)

	alpha, beta := fig.Series[0], fig.Series[1]
	assert.Equal(t, "alphacoronavirus", alpha.Name)
	assert.Equal(t, "skyblue", alpha.Color)
	assert.Equal(t, []string{"2015", "2016"}, alpha.X)
	assert.Equal(t, "betacoronavirus", beta.Name)
	assert.Equal(t, "salmon", beta.Color)
	assert.Equal(t, []string{"2016"}, beta.X)
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, "skyblue", chart.ColorFor("alphacoronavirus"))
	assert.Equal(t, "salmon", chart.ColorFor("betacoronavirus"))
	assert.Equal(t, "skyblue", chart.ColorFor("not specified"))
}

func TestBuild_EmptyTable(t *testing.T) {
	fig := chart.Build(&prevalence.Table{Query: prevalence.Query{Genus: prevalence.Any, GroupBy: prevalence.Year}})
	assert.Empty(t, fig.Categories)
	require.Len(t, fig.Series, 1)
	assert.Empty(t, fig.Series[0].X)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, chart.RenderPNG(chart.Build(compareTable()), &buf, 600, 400))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	buf.Reset()
	empty := chart.Build(&prevalence.Table{Query: prevalence.Query{Genus: prevalence.Any, GroupBy: prevalence.Year}})
	require.NoError(t, chart.RenderPNG(empty, &buf, 300, 200))
	assert.NotZero(t, buf.Len())

	assert.Error(t, chart.RenderPNG(empty, &buf, 0, 200))
}
