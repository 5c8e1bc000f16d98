package view

import (
	"fmt"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"linkview/internal/brush"
	"linkview/internal/scale"
)

const (
	axisStyle    = "stroke:#333;stroke-width:1"
	gridStyle    = "stroke:#ddd;stroke-width:0.5"
	tickStyle    = "font-size:10px;fill:#333"
	labelStyle   = "font-size:14px;text-anchor:middle"
	previewStyle = "fill:#ff8c00;fill-opacity:0.1;stroke:#ff8c00;stroke-width:2;stroke-dasharray:4,2"
)

// canvas draws into a view's plot area. Coordinates handed to its methods
// are plot-area pixels; it translates by the frame margins once.
type canvas struct {
	*svg.SVG
	frame Frame
}

func newCanvas(w io.Writer, f Frame) *canvas {
	c := &canvas{SVG: svg.New(w), frame: f}
	c.Start(px(f.Width), px(f.Height), fmt.Sprintf(`viewBox="0 0 %d %d"`, px(f.Width), px(f.Height)))
	c.Translate(px(f.Margin.Left), px(f.Margin.Top))
	return c
}

func (c *canvas) end() {
	c.Gend()
	c.End()
}

func px(v float64) int { return int(math.Round(v)) }

func tickLabel(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

// axisBottom draws the x axis along the bottom of the plot area. grid adds
// vertical grid lines at each continuous tick.
func (c *canvas) axisBottom(s any, grid bool) {
	h := c.frame.PlotHeight()
	w := c.frame.PlotWidth()
	c.Gid("x-axis")
	c.Line(0, px(h), px(w), px(h), axisStyle)
	switch s := s.(type) {
	case *scale.Linear:
		for _, t := range s.Ticks() {
			x := px(s.Map(t))
			if grid {
				c.Line(x, 0, x, px(h), gridStyle)
			}
			c.Line(x, px(h), x, px(h)+6, axisStyle)
			c.Text(x, px(h)+18, tickLabel(t), tickStyle+";text-anchor:middle")
		}
	case *scale.Band:
		for _, cat := range s.Domain() {
			x, _ := s.Center(cat)
			c.Line(px(x), px(h), px(x), px(h)+6, axisStyle)
			c.Text(px(x), px(h)+18, cat, tickStyle+";text-anchor:middle")
		}
	}
	c.Gend()
}

// axisLeft draws the y axis along the left edge of the plot area.
func (c *canvas) axisLeft(s any, grid bool) {
	h := c.frame.PlotHeight()
	w := c.frame.PlotWidth()
	c.Gid("y-axis")
	c.Line(0, 0, 0, px(h), axisStyle)
	switch s := s.(type) {
	case *scale.Linear:
		for _, t := range s.Ticks() {
			y := px(s.Map(t))
			if grid {
				c.Line(0, y, px(w), y, gridStyle)
			}
			c.Line(-6, y, 0, y, axisStyle)
			c.Text(-9, y+3, tickLabel(t), tickStyle+";text-anchor:end")
		}
	case *scale.Band:
		for _, cat := range s.Domain() {
			y, _ := s.Center(cat)
			c.Line(-6, px(y), 0, px(y), axisStyle)
			c.Text(-9, px(y)+3, cat, tickStyle+";text-anchor:end")
		}
	}
	c.Gend()
}

// labels names both axes below and left of the plot area.
func (c *canvas) labels(x, y string) {
	h := c.frame.PlotHeight()
	w := c.frame.PlotWidth()
	c.Text(px(w/2), px(h+c.frame.Margin.Bottom-12), x, labelStyle, `class="x-axis-label"`)
	c.Text(px(-h/2), px(-c.frame.Margin.Left+16), y, labelStyle, `class="y-axis-label"`, `transform="rotate(-90)"`)
}

func (c *canvas) point(p Point) {
	c.Circle(px(p.X), px(p.Y), 4,
		fmt.Sprintf("fill:%s;fill-opacity:%g;stroke:#333;stroke-width:0.5", p.Style.Fill, p.Style.Opacity),
		fmt.Sprintf(`data-id="%d"`, p.ID),
		fmt.Sprintf(`data-selected="%t"`, p.Style.Selected))
}

func (c *canvas) bar(b Bar) {
	c.Rect(px(b.X), px(b.Y), px(b.W), px(b.H),
		fmt.Sprintf("fill:%s", b.Style.Fill),
		`class="bar"`,
		fmt.Sprintf(`data-count="%d"`, b.Count()),
		fmt.Sprintf(`data-selected="%t"`, b.Style.Selected))
}

// preview outlines an in-progress brush. spanOnly stretches it over the
// full plot height for one-dimensional brushes.
func (c *canvas) preview(r *brush.Region, spanOnly bool) {
	if r == nil {
		return
	}
	x0, x1 := math.Min(r.X0, r.X1), math.Max(r.X0, r.X1)
	y0, y1 := math.Min(r.Y0, r.Y1), math.Max(r.Y0, r.Y1)
	if spanOnly {
		y0, y1 = 0, c.frame.PlotHeight()
	}
	c.Rect(px(x0), px(y0), px(x1-x0), px(y1-y0), previewStyle, `class="brush-preview"`)
}

// legend explains the two mark styles in the top right of the plot area.
// noun names the marks, e.g. "points".
func (c *canvas) legend(noun string) {
	x := px(c.frame.PlotWidth()) - 170
	c.Gid("legend")
	for i, it := range []struct {
		style Style
		label string
	}{
		{Neutral, "Unselected " + noun},
		{Selected, "Brushed " + noun + " (selected)"},
	} {
		y := 4 + 18*i
		c.Rect(x, y, 12, 12, fmt.Sprintf("fill:%s;fill-opacity:%g", it.style.Fill, it.style.Opacity), `class="legend-swatch"`)
		c.Text(x+18, y+10, it.label, tickStyle)
	}
	c.Gend()
}
