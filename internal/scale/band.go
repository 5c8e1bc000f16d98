package scale

import "math"

// DefaultPadding is the inner and outer band padding, as a fraction of the
// step between bands.
const DefaultPadding = 0.1

// Band maps each category in Domain to a band of equal width within the
// pixel range [R0, R1]. The first category sits nearest R0.
type Band struct {
	domain []string
	index  map[string]int

	R0, R1  float64
	padding float64

	start, step, bandwidth float64
}

// NewBand lays categories out in the given order.
func NewBand(domain []string, r0, r1, padding float64) *Band {
	b := &Band{
		domain:  domain,
		index:   make(map[string]int, len(domain)),
		R0:      r0,
		R1:      r1,
		padding: padding,
	}
	for i, d := range domain {
		if _, dup := b.index[d]; !dup {
			b.index[d] = i
		}
	}

	n := float64(len(domain))
	span := math.Abs(r1 - r0)
	b.step = span / math.Max(1, n-padding+2*padding)
	b.bandwidth = b.step * (1 - padding)
	// Center the bands within the range.
	b.start = (span - b.step*(n-padding)) / 2
	return b
}

// Domain returns the categories in layout order.
func (b *Band) Domain() []string { return b.domain }

// Bandwidth is the pixel width of every band.
func (b *Band) Bandwidth() float64 { return b.bandwidth }

// Start returns the pixel coordinate of the edge of category's band nearest
// R0 along the pixel axis (its left edge for a horizontal axis running left
// to right).
func (b *Band) Start(category string) (float64, bool) {
	i, ok := b.index[category]
	if !ok {
		return 0, false
	}
	off := b.start + b.step*float64(i)
	if b.R1 >= b.R0 {
		return b.R0 + off, true
	}
	return b.R0 - off - b.bandwidth, true
}

// Center returns the pixel coordinate of the middle of category's band.
func (b *Band) Center(category string) (float64, bool) {
	s, ok := b.Start(category)
	if !ok {
		return 0, false
	}
	return s + b.bandwidth/2, true
}
