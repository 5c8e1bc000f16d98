// Package view implements the dashboard's view adapters. Each adapter owns
// its scales and marks, rebuilds them on every Update, turns brush gestures
// into candidate selections, and renders itself as SVG.
package view

import (
	"io"

	"github.com/pkg/errors"

	"linkview/internal/brush"
	"linkview/internal/dataset"
	"linkview/internal/selection"
)

const (
	ScatterplotName = "scatterplot"
	HistogramName   = "histogram"
)

var ErrDisposed = errors.New("view disposed")

// View is the contract every adapter honors. Update is the only entry
// point that changes what is drawn; Dispose releases everything it drew.
type View interface {
	Name() string
	Update(ds *dataset.Dataset, enc selection.Encoding, sel selection.Set) error
	// Brush handles one gesture event. commit is false for previews and for
	// gestures the view cannot map yet.
	Brush(g brush.Gesture) (candidate selection.Set, commit bool)
	Render(w io.Writer) error
	Dispose()
}

// Margin is the space around the plot area, in pixels.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Frame is the outer size of a view plus its margins.
type Frame struct {
	Width, Height float64
	Margin        Margin
}

// PlotWidth is the width of the area inside the margins.
func (f Frame) PlotWidth() float64 { return f.Width - f.Margin.Left - f.Margin.Right }

// PlotHeight is the height of the area inside the margins.
func (f Frame) PlotHeight() float64 { return f.Height - f.Margin.Top - f.Margin.Bottom }

// Style is the visual encoding of one mark.
type Style struct {
	Selected bool
	Fill     string
	Opacity  float64
}

var (
	Neutral  = Style{Fill: "#4682B4", Opacity: 0.6}
	Selected = Style{Selected: true, Fill: "#FF6347", Opacity: 1}
)

// Encode styles a single record. An empty selection renders everything
// neutral.
func Encode(id int, sel selection.Set) Style {
	if !sel.IsEmpty() && sel.Has(id) {
		return Selected
	}
	return Neutral
}

// EncodeGroup styles an aggregate mark: it is selected if any member is.
func EncodeGroup(ids []int, sel selection.Set) Style {
	if sel.IsEmpty() {
		return Neutral
	}
	for _, id := range ids {
		if sel.Has(id) {
			return Selected
		}
	}
	return Neutral
}
