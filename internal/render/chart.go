package render

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"expenses/internal/core"
)

// Slice is one category of the pie.
type Slice struct {
	Label  string
	Amount core.Money
	Color  Color
}

// ChartView is an immutable copy of the chart state.
type ChartView struct {
	Slices   []Slice
	Revision int
}

// Empty reports whether there is nothing to draw.
func (v ChartView) Empty() bool {
	for _, s := range v.Slices {
		if s.Amount.Cents > 0 {
			return false
		}
	}
	return true
}

// Chart is the long-lived pie chart handle. It is created once per Renderer
// and updated in place; every update bumps Revision.
type Chart struct {
	mu       sync.RWMutex
	slices   []Slice
	revision int

	Width  int
	Height int
}

func newChart() *Chart {
	return &Chart{Width: 480, Height: 480}
}

func (c *Chart) update(slices []Slice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slices = slices
	c.revision++
}

// View returns a copy of the current labels, values, colors and revision.
func (c *Chart) View() ChartView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ChartView{Slices: append([]Slice(nil), c.slices...), Revision: c.revision}
}

// Revision returns the number of updates applied so far.
func (c *Chart) Revision() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// SVG writes the pie as SVG. The legend is rendered by the page below the
// image. With nothing to draw it writes an empty SVG of the same size.
func (c *Chart) SVG(w io.Writer) error {
	view := c.View()
	if view.Empty() {
		_, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"></svg>`, c.Width, c.Height)
		return err
	}

	values := make([]chart.Value, 0, len(view.Slices))
	palette := slicePalette{ColorPalette: chart.AlternateColorPalette}
	for _, s := range view.Slices {
		if s.Amount.Cents <= 0 {
			continue
		}
		palette.colors = append(palette.colors, s.Color.Drawing())
		values = append(values, chart.Value{
			Label: s.Label,
			Value: s.Amount.Float(),
			Style: chart.Style{
				FillColor:   s.Color.Drawing(),
				StrokeColor: chart.ColorWhite,
				StrokeWidth: 2,
				FontColor:   chart.ColorBlack,
			},
		})
	}

	pie := chart.PieChart{
		Width:  c.Width,
		Height: c.Height,
		Values: values,
		// a lone value is drawn as a circle styled from the palette only
		ColorPalette: palette,
		Background: chart.Style{
			Padding:   chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorTransparent,
		},
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.SVG, &buf); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// slicePalette hands out the slice colors in value order.
type slicePalette struct {
	chart.ColorPalette
	colors []drawing.Color
}

func (p slicePalette) GetSeriesColor(index int) drawing.Color {
	if index >= 0 && index < len(p.colors) {
		return p.colors[index]
	}
	return p.ColorPalette.GetSeriesColor(index)
}
