package view

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"linkview/internal/brush"
	"linkview/internal/dataset"
	"linkview/internal/scale"
	"linkview/internal/selection"
)

// ScatterFrame is the default scatterplot frame.
var ScatterFrame = Frame{Width: 600, Height: 500, Margin: Margin{Top: 20, Right: 30, Bottom: 60, Left: 60}}

// Point is one drawn record, in plot-area pixels.
type Point struct {
	ID    int
	X, Y  float64
	Style Style
}

// Scatterplot draws one circle per record over two attributes and supports
// rectangular brushing.
type Scatterplot struct {
	frame Frame

	n          int
	current    *dataset.Dataset // last dataset handed to Update
	drawn      *dataset.Dataset // dataset the marks were drawn from
	enc        selection.Encoding
	xCol, yCol *dataset.Column
	xScale     any
	yScale     any
	points     []Point
	preview    *brush.Region
	disposed   bool
}

// NewScatterplot creates an empty scatterplot inside frame.
func NewScatterplot(frame Frame) *Scatterplot {
	return &Scatterplot{frame: frame}
}

func (s *Scatterplot) Name() string { return ScatterplotName }

// Update rebuilds scales and marks. If an encoded attribute is unknown the
// view redraws with its last valid encoding (or keeps its drawing if that
// fails too) and returns the error.
// Marks drawn from a previous dataset are not brushable.
func (s *Scatterplot) Update(ds *dataset.Dataset, enc selection.Encoding, sel selection.Set) error {
	if s.disposed {
		return ErrDisposed
	}
	s.current = ds
	if ds.Len() == 0 {
		return nil
	}
	err := s.draw(ds, enc, sel)
	if err != nil && s.xCol != nil && s.enc != enc {
		_ = s.draw(ds, s.enc, sel)
	}
	return err
}

func (s *Scatterplot) draw(ds *dataset.Dataset, enc selection.Encoding, sel selection.Set) error {
	xCol, ok := ds.Column(enc.X)
	if !ok {
		return errors.Wrapf(selection.ErrUnknownAttribute, "scatterplot x %q", enc.X)
	}
	yCol, ok := ds.Column(enc.Y)
	if !ok {
		return errors.Wrapf(selection.ErrUnknownAttribute, "scatterplot y %q", enc.Y)
	}

	w, h := s.frame.PlotWidth(), s.frame.PlotHeight()
	xScale := scaleFor(xCol, 0, w, true)
	yScale := scaleFor(yCol, h, 0, true)

	points := make([]Point, 0, ds.Len())
	for id := 0; id < ds.Len(); id++ {
		x, okx := position(xCol, xScale, id)
		y, oky := position(yCol, yScale, id)
		if !okx || !oky {
			continue
		}
		points = append(points, Point{ID: id, X: x, Y: y, Style: Encode(id, sel)})
	}

	s.n = ds.Len()
	s.drawn = ds
	s.enc = enc
	s.xCol, s.yCol = xCol, yCol
	s.xScale, s.yScale = xScale, yScale
	s.points = points
	return nil
}

// Brush maps a rectangle over the plot area to the records inside it.
func (s *Scatterplot) Brush(g brush.Gesture) (selection.Set, bool) {
	switch g.Phase {
	case brush.Move:
		s.preview = g.Region
		return selection.Set{}, false
	case brush.Cancel:
		s.preview = nil
		return selection.Set{}, true
	}
	s.preview = nil
	// Marks left over from a replaced dataset map to the wrong records.
	if s.xCol == nil || s.yCol == nil || s.drawn != s.current {
		return selection.Set{}, false
	}
	x := brush.AxisFor(s.xCol, s.xScale)
	y := brush.AxisFor(s.yCol, s.yScale)
	return brush.SelectRect(s.n, x, y, g.Region), true
}

// Points returns the drawn marks.
func (s *Scatterplot) Points() []Point { return s.points }

// Scales returns the current x and y scales, each a *scale.Linear or a
// *scale.Band.
func (s *Scatterplot) Scales() (x, y any) { return s.xScale, s.yScale }

func (s *Scatterplot) Render(w io.Writer) error {
	if s.disposed {
		return ErrDisposed
	}
	c := newCanvas(w, s.frame)
	defer c.end()
	if s.xCol == nil {
		return nil
	}

	c.axisBottom(s.xScale, true)
	c.axisLeft(s.yScale, true)
	c.labels(s.enc.X, s.enc.Y)
	for _, p := range s.points {
		c.point(p)
	}
	c.preview(s.preview, false)
	c.legend("points")
	return nil
}

// Dispose drops every mark and scale. The view cannot be used afterwards.
func (s *Scatterplot) Dispose() {
	s.disposed = true
	s.points = nil
	s.xCol, s.yCol = nil, nil
	s.current, s.drawn = nil, nil
	s.xScale, s.yScale = nil, nil
	s.preview = nil
}

// scaleFor builds the scale an axis uses for col: a band scale for
// categories in first-appearance order, a linear scale otherwise.
func scaleFor(col *dataset.Column, r0, r1 float64, nice bool) any {
	if col.Kind == dataset.Categorical {
		return scale.NewBand(col.Dict, r0, r1, scale.DefaultPadding)
	}
	min, max, ok := col.Extent()
	if !ok {
		min, max = 0, 1
	}
	return scale.NewLinear(min, max, r0, r1, nice)
}

// position projects record id of col through s.
func position(col *dataset.Column, s any, id int) (float64, bool) {
	switch s := s.(type) {
	case *scale.Linear:
		v := col.Float(id)
		if math.IsNaN(v) {
			return 0, false
		}
		return s.Map(v), true
	case *scale.Band:
		return s.Center(col.Label(id))
	}
	return 0, false
}
