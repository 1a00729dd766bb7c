package chart

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var namedColors = map[string]color.RGBA{
	"skyblue": {R: 135, G: 206, B: 235, A: 255},
	"salmon":  {R: 250, G: 128, B: 114, A: 255},
}

// errPoints feeds bar centers and symmetric errors to YErrorBars.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// RenderPNG draws fig as a PNG of width x height pixels-equivalent points.
func RenderPNG(fig Figure, w io.Writer, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render png: invalid size %dx%d", width, height)
	}
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XTitle
	p.Y.Label.Text = fig.YTitle
	p.Y.Min = 0
	p.Legend.Top = true

	index := make(map[string]int, len(fig.Categories))
	for i, c := range fig.Categories {
		index[c] = i
	}
	n := len(fig.Series)
	groupWidth := 0.8
	barWidth := vg.Points(float64(width) * 0.6 / float64(max(1, len(fig.Categories)*max(1, n))))
	if barWidth < 1 {
		barWidth = 1
	}

	for si, s := range fig.Series {
		vals := make(plotter.Values, len(fig.Categories))
		pts := errPoints{
			XYs:     make(plotter.XYs, 0, len(s.X)),
			YErrors: make(plotter.YErrors, 0, len(s.X)),
		}
		// shift series within each category slot
		shift := 0.0
		if n > 1 {
			shift = -groupWidth/2 + groupWidth*(float64(si)+0.5)/float64(n)
		}
		for i, x := range s.X {
			ci, ok := index[x]
			if !ok {
				continue
			}
			vals[ci] = s.Y[i]
			pts.XYs = append(pts.XYs, plotter.XY{X: float64(ci) + shift, Y: s.Y[i]})
			pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{s.Err[i], s.Err[i]})
		}
		if len(vals) == 0 {
			continue
		}
		bars, err := plotter.NewBarChart(vals, barWidth)
		if err != nil {
			return fmt.Errorf("render png: %w", err)
		}
		bars.XMin = shift
		bars.LineStyle.Width = vg.Length(0)
		if c, ok := namedColors[s.Color]; ok {
			bars.Color = c
		}
		p.Add(bars)
		if n > 1 {
			p.Legend.Add(s.Name, bars)
		}
		if len(pts.XYs) > 0 {
			eb, err := plotter.NewYErrorBars(pts)
			if err != nil {
				return fmt.Errorf("render png: %w", err)
			}
			p.Add(eb)
		}
	}
	if len(fig.Categories) > 0 {
		p.NominalX(fig.Categories...)
	}

	wt, err := p.WriterTo(vg.Points(float64(width)), vg.Points(float64(height)), "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}
