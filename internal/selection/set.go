// Package selection holds the single shared selection state of the
// dashboard: which records are brushed and which attributes every view
// encodes.
package selection

import "sort"

// Set is an immutable set of record identifiers. The zero value is the
// empty selection.
type Set struct {
	ids map[int]struct{}
}

// NewSet builds a set from ids; duplicates collapse.
func NewSet(ids ...int) Set {
	if len(ids) == 0 {
		return Set{}
	}
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{ids: m}
}

// Has reports whether id is selected.
func (s Set) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Set) Len() int { return len(s.ids) }

func (s Set) IsEmpty() bool { return len(s.ids) == 0 }

// IDs returns the members in ascending order.
func (s Set) IDs() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Equal reports whether both sets hold the same ids.
func (s Set) Equal(o Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Builder accumulates ids for a Set without copying.
type Builder struct {
	ids map[int]struct{}
}

func (b *Builder) Add(id int) {
	if b.ids == nil {
		b.ids = make(map[int]struct{})
	}
	b.ids[id] = struct{}{}
}

// Set returns the accumulated set. The builder must not be used afterwards.
func (b *Builder) Set() Set {
	s := Set{ids: b.ids}
	b.ids = nil
	return s
}
