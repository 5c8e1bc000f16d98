// Package scale maps attribute values to pixel positions.
//
// A Linear scale is continuous and invertible. A Band scale reserves an
// equal-width pixel band for each category and is not invertible; callers
// compare against band centers in pixel space instead.
package scale

import (
	"math"

	"github.com/aclements/go-moremath/scale"
)

// DefaultTicks is the maximum number of major ticks requested for an axis.
const DefaultTicks = 10

// Linear maps the value domain [Min, Max] onto the pixel range [R0, R1].
// R0 may be greater than R1 (vertical axes grow upward).
type Linear struct {
	lin    scale.Linear
	R0, R1 float64
}

// NewLinear builds a linear scale over [min, max]. A zero-width domain is
// widened by one unit on each side so that the scale stays invertible. If
// nice is set the domain is extended to round tick values.
func NewLinear(min, max, r0, r1 float64, nice bool) *Linear {
	if min > max {
		min, max = max, min
	}
	if min == max {
		min, max = min-1, max+1
	}
	s := &Linear{lin: scale.Linear{Min: min, Max: max}, R0: r0, R1: r1}
	if nice {
		s.lin.Nice(scale.TickOptions{Max: DefaultTicks})
	}
	return s
}

// Domain returns the (possibly niced) value domain.
func (s *Linear) Domain() (min, max float64) { return s.lin.Min, s.lin.Max }

// Map projects a value to a pixel coordinate.
func (s *Linear) Map(v float64) float64 {
	return s.R0 + s.lin.Map(v)*(s.R1-s.R0)
}

// Invert projects a pixel coordinate back to a value.
func (s *Linear) Invert(px float64) float64 {
	if s.R1 == s.R0 {
		return s.lin.Min
	}
	return s.lin.Unmap((px - s.R0) / (s.R1 - s.R0))
}

// InvertRange inverts two pixel bounds and returns them as an ordered
// value interval, widened by a relative epsilon so that values that were
// projected exactly onto a bound survive the round trip.
func (s *Linear) InvertRange(p0, p1 float64) (lo, hi float64) {
	lo, hi = s.Invert(p0), s.Invert(p1)
	if lo > hi {
		lo, hi = hi, lo
	}
	eps := 1e-9 * math.Abs(s.lin.Max-s.lin.Min)
	return lo - eps, hi + eps
}

// Ticks returns the major tick values inside the domain.
func (s *Linear) Ticks() []float64 {
	major, _ := s.lin.Ticks(scale.TickOptions{Max: DefaultTicks})
	return major
}
