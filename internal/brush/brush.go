// Package brush turns a brush gesture in a view's pixel space into the set
// of record identifiers it covers.
//
// Every view axis is described by an Axis built from the encoded column and
// the view's current scale. Continuous axes invert the gesture's pixel
// bounds and compare each record's original value; band axes compare band
// centers in pixel space. A view with two brushable axes combines them with
// a logical AND.
package brush

import (
	"math"

	"linkview/internal/dataset"
	"linkview/internal/scale"
	"linkview/internal/selection"
)

// Phase is the stage of a gesture.
type Phase string

const (
	// Move is an intermediate drag event. It may be previewed but is never
	// committed.
	Move Phase = "move"
	// End is the release of the gesture.
	End Phase = "end"
	// Cancel abandons the gesture and clears the selection.
	Cancel Phase = "cancel"
)

func (p Phase) Valid() bool {
	return p == Move || p == End || p == Cancel
}

// Region is a brushed rectangle in pixel coordinates relative to the plot
// area. One-dimensional brushes ignore Y0 and Y1.
type Region struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Gesture is one event of a brush interaction. A nil Region means the user
// cleared the brush.
type Gesture struct {
	Phase  Phase   `json:"phase"`
	Region *Region `json:"region"`
}

// Axis answers, for a pixel interval on one axis, which records fall in it.
type Axis interface {
	// Covering returns a predicate over record ids for the pixel interval
	// between p0 and p1, given in either order.
	Covering(p0, p1 float64) func(id int) bool
}

// Continuous is an axis over a numerical column.
type Continuous struct {
	Values []float64
	Scale  *scale.Linear
}

func (a Continuous) Covering(p0, p1 float64) func(int) bool {
	lo, hi := a.Scale.InvertRange(p0, p1)
	return func(id int) bool {
		if id < 0 || id >= len(a.Values) {
			return false
		}
		v := a.Values[id]
		return !math.IsNaN(v) && lo <= v && v <= hi
	}
}

// Discrete is an axis over a categorical column laid out by a band scale.
type Discrete struct {
	Codes []int32
	Dict  []string
	Scale *scale.Band
}

func (a Discrete) Covering(p0, p1 float64) func(int) bool {
	lo, hi := math.Min(p0, p1), math.Max(p0, p1)
	covered := make([]bool, len(a.Dict))
	for code, label := range a.Dict {
		if c, ok := a.Scale.Center(label); ok && lo <= c && c <= hi {
			covered[code] = true
		}
	}
	return func(id int) bool {
		if id < 0 || id >= len(a.Codes) {
			return false
		}
		return covered[a.Codes[id]]
	}
}

// AxisFor builds the brushing axis for col from the scale the view drew it
// with. s must be a *scale.Linear for numerical columns and a *scale.Band
// for categorical ones; otherwise AxisFor returns nil.
func AxisFor(col *dataset.Column, s any) Axis {
	switch col.Kind {
	case dataset.Numerical:
		if lin, ok := s.(*scale.Linear); ok {
			return Continuous{Values: col.Nums, Scale: lin}
		}
	case dataset.Categorical:
		if band, ok := s.(*scale.Band); ok {
			return Discrete{Codes: col.Codes, Dict: col.Dict, Scale: band}
		}
	}
	return nil
}

// SelectRect returns the records inside r on both axes. A nil or zero-area
// region selects nothing.
func SelectRect(n int, x, y Axis, r *Region) selection.Set {
	if r == nil || r.X0 == r.X1 || r.Y0 == r.Y1 || x == nil || y == nil {
		return selection.Set{}
	}
	return collect(n, x.Covering(r.X0, r.X1), y.Covering(r.Y0, r.Y1))
}

// SelectSpan returns the records inside the horizontal extent of r. A nil
// or zero-width region selects nothing.
func SelectSpan(n int, x Axis, r *Region) selection.Set {
	if r == nil || r.X0 == r.X1 || x == nil {
		return selection.Set{}
	}
	return collect(n, x.Covering(r.X0, r.X1))
}

func collect(n int, preds ...func(int) bool) selection.Set {
	var b selection.Builder
next:
	for id := 0; id < n; id++ {
		for _, p := range preds {
			if !p(id) {
				continue next
			}
		}
		b.Add(id)
	}
	return b.Set()
}
