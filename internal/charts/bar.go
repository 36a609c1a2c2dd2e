package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

const (
	defaultWidth  = 640
	defaultHeight = 360

	emptyMessage = "no data for this selection"
)

var barColor = color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff}

// Bar is one labelled bar. Text is drawn above the bar as its value label.
type Bar struct {
	Label string
	Value float64
	Text  string
}

// BarChart is a vertical bar chart rendered as SVG. Bars keep their input
// order.
type BarChart struct {
	Name   string
	Title  string
	Bars   []Bar
	Width  int
	Height int
}

// Render writes the chart as an <svg> element, without an XML prolog, so the
// output can be served standalone or inlined into HTML.
func (c BarChart) Render(w io.Writer) error {
	p, err := c.plot()
	if err != nil {
		return err
	}

	width, height := c.Width, c.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	canvas := vgsvg.New(vg.Points(float64(width)), vg.Points(float64(height)))
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := canvas.WriteTo(&buf); err != nil {
		return fmt.Errorf("render chart %s: %w", c.Name, err)
	}
	out := buf.Bytes()
	if i := bytes.Index(out, []byte("<svg")); i > 0 {
		out = out[i:]
	}
	_, err = w.Write(out)
	return err
}

func (c BarChart) plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title

	if len(c.Bars) == 0 {
		p.HideAxes()
		msg, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: 0, Y: 0}},
			Labels: []string{emptyMessage},
		})
		if err != nil {
			return nil, err
		}
		msg.TextStyle[0].XAlign = text.XCenter
		p.Add(msg)
		return p, nil
	}

	values := make(plotter.Values, len(c.Bars))
	names := make([]string, len(c.Bars))
	for i, b := range c.Bars {
		values[i] = b.Value
		names[i] = b.Label
	}

	bars, err := plotter.NewBarChart(values, vg.Points(math.Min(48, 360/float64(len(c.Bars)))))
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", c.Name, err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0

	labels, err := valueLabels(c.Bars)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", c.Name, err)
	}

	p.Add(bars, labels, plotter.NewGrid())
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	return p, nil
}

// valueLabels places each bar's text at its tip: above positive bars and
// below negative ones.
func valueLabels(bars []Bar) (*plotter.Labels, error) {
	xys := make(plotter.XYs, len(bars))
	texts := make([]string, len(bars))
	for i, b := range bars {
		xys[i] = plotter.XY{X: float64(i), Y: b.Value}
		texts[i] = b.Text
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	for i, b := range bars {
		labels.TextStyle[i].XAlign = text.XCenter
		if b.Value < 0 {
			labels.TextStyle[i].YAlign = text.YTop
		} else {
			labels.TextStyle[i].YAlign = text.YBottom
		}
	}
	return labels, nil
}
