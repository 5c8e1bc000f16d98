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

// DefaultBins is the number of equal-width bins drawn for a numerical
// attribute.
const DefaultBins = 20

// HistogramFrame is the default histogram frame.
var HistogramFrame = Frame{Width: 600, Height: 500, Margin: Margin{Top: 20, Right: 20, Bottom: 50, Left: 50}}

// Bar is one drawn bin or category. Lo and Hi bound a numerical bin; Label
// names a category. IDs are the records counted in the bar.
type Bar struct {
	Label  string
	Lo, Hi float64
	IDs    []int

	X, Y, W, H float64
	Style      Style
}

// Count is the bar's height in records.
func (b Bar) Count() int { return len(b.IDs) }

// Histogram counts one attribute: a bar per category for categorical
// attributes, equal-width bins for numerical ones. It brushes along x only.
type Histogram struct {
	frame Frame
	bins  int

	n        int
	current  *dataset.Dataset // last dataset handed to Update
	drawn    *dataset.Dataset // dataset the bars were drawn from
	attr     string
	col      *dataset.Column
	xScale   any
	yScale   *scale.Linear
	bars     []Bar
	preview  *brush.Region
	disposed bool
}

// NewHistogram creates an empty histogram inside frame. bins <= 0 selects
// DefaultBins.
func NewHistogram(frame Frame, bins int) *Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}
	return &Histogram{frame: frame, bins: bins}
}

func (h *Histogram) Name() string { return HistogramName }

// Update rebuilds bins, scales and bar styles from enc.X. An unknown
// attribute falls back to the last valid one and returns the error.
// If no drawing of ds succeeds, the old bars stay visible but Brush
// selects nothing.
func (h *Histogram) Update(ds *dataset.Dataset, enc selection.Encoding, sel selection.Set) error {
	if h.disposed {
		return ErrDisposed
	}
	h.current = ds
	if ds.Len() == 0 {
		return nil
	}
	err := h.draw(ds, enc.X, sel)
	if err != nil && h.col != nil && h.attr != enc.X {
		_ = h.draw(ds, h.attr, sel)
	}
	return err
}

func (h *Histogram) draw(ds *dataset.Dataset, attr string, sel selection.Set) error {
	col, ok := ds.Column(attr)
	if !ok {
		return errors.Wrapf(selection.ErrUnknownAttribute, "histogram %q", attr)
	}
	w, ht := h.frame.PlotWidth(), h.frame.PlotHeight()

	var (
		bars   []Bar
		xScale any
	)
	if col.Kind == dataset.Categorical {
		bars = categoryBars(col)
		band := scale.NewBand(col.Dict, 0, w, scale.DefaultPadding)
		for i := range bars {
			bars[i].X, _ = band.Start(bars[i].Label)
			bars[i].W = band.Bandwidth()
		}
		xScale = band
	} else {
		var lin *scale.Linear
		bars, lin = valueBins(col, h.bins, w)
		for i := range bars {
			x0, x1 := lin.Map(bars[i].Lo), lin.Map(bars[i].Hi)
			bars[i].X = x0
			bars[i].W = math.Max(0, x1-x0-1)
		}
		xScale = lin
	}

	maxCount := 0
	for _, b := range bars {
		if b.Count() > maxCount {
			maxCount = b.Count()
		}
	}
	yScale := scale.NewLinear(0, float64(maxCount), ht, 0, false)
	if maxCount == 0 {
		yScale = scale.NewLinear(0, 1, ht, 0, false)
	}
	for i := range bars {
		bars[i].Y = yScale.Map(float64(bars[i].Count()))
		bars[i].H = ht - bars[i].Y
		bars[i].Style = EncodeGroup(bars[i].IDs, sel)
	}

	h.n = ds.Len()
	h.drawn = ds
	h.attr = attr
	h.col = col
	h.xScale, h.yScale = xScale, yScale
	h.bars = bars
	return nil
}

// categoryBars groups record ids by category, in dictionary order.
func categoryBars(col *dataset.Column) []Bar {
	bars := make([]Bar, len(col.Dict))
	for code, label := range col.Dict {
		bars[code].Label = label
	}
	for id, code := range col.Codes {
		bars[code].IDs = append(bars[code].IDs, id)
	}
	return bars
}

// valueBins splits the observed range of col into nbins equal-width bins
// and returns them with the x scale spanning that range. Binning is for
// drawing only; brushing compares original values.
func valueBins(col *dataset.Column, nbins int, width float64) ([]Bar, *scale.Linear) {
	min, max, ok := col.Extent()
	if !ok {
		return nil, scale.NewLinear(0, 1, 0, width, false)
	}
	if min == max {
		nbins = 1
	}
	step := (max - min) / float64(nbins)
	bars := make([]Bar, nbins)
	for i := range bars {
		bars[i].Lo = min + step*float64(i)
		bars[i].Hi = min + step*float64(i+1)
	}
	bars[nbins-1].Hi = max

	for id, v := range col.Nums {
		if math.IsNaN(v) {
			continue
		}
		i := nbins - 1
		if step > 0 {
			i = int((v - min) / step)
		}
		if i >= nbins {
			i = nbins - 1
		}
		bars[i].IDs = append(bars[i].IDs, id)
	}
	return bars, scale.NewLinear(min, max, 0, width, false)
}

// Brush maps a horizontal interval to the records it covers.
func (h *Histogram) Brush(g brush.Gesture) (selection.Set, bool) {
	switch g.Phase {
	case brush.Move:
		h.preview = g.Region
		return selection.Set{}, false
	case brush.Cancel:
		h.preview = nil
		return selection.Set{}, true
	}
	h.preview = nil
	// Bars left over from a replaced dataset map to the wrong records.
	if h.col == nil || h.drawn != h.current {
		return selection.Set{}, false
	}
	return brush.SelectSpan(h.n, brush.AxisFor(h.col, h.xScale), g.Region), true
}

// Bars returns the drawn bars.
func (h *Histogram) Bars() []Bar { return h.bars }

// Scale returns the x scale, a *scale.Linear or a *scale.Band.
func (h *Histogram) Scale() any { return h.xScale }

func (h *Histogram) Render(w io.Writer) error {
	if h.disposed {
		return ErrDisposed
	}
	c := newCanvas(w, h.frame)
	defer c.end()
	if h.col == nil {
		return nil
	}

	c.axisBottom(h.xScale, false)
	c.axisLeft(h.yScale, false)
	c.labels(h.attr, "Frequency")
	for _, b := range h.bars {
		c.bar(b)
	}
	c.preview(h.preview, true)
	c.legend("bars")
	return nil
}

// Dispose drops every bar and scale. The view cannot be used afterwards.
func (h *Histogram) Dispose() {
	h.disposed = true
	h.bars = nil
	h.col = nil
	h.current, h.drawn = nil, nil
	h.xScale, h.yScale = nil, nil
	h.preview = nil
}
