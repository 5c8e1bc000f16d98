package selection

import (
	"github.com/pkg/errors"
)

var (
	ErrUnknownView      = errors.New("unknown view")
	ErrUnknownAxis      = errors.New("unknown axis")
	ErrUnknownAttribute = errors.New("unknown attribute")
)

// Axis names a visual channel of a view.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Encoding is the attribute choice of one view. One-dimensional views use X
// only.
type Encoding struct {
	X string `json:"x" mapstructure:"x" yaml:"x"`
	Y string `json:"y,omitempty" mapstructure:"y" yaml:"y,omitempty"`
}

// Get returns the attribute on axis a.
func (e Encoding) Get(a Axis) string {
	if a == AxisY {
		return e.Y
	}
	return e.X
}

// State is a settled snapshot of the store.
type State struct {
	// Version increases on every change the views must react to.
	Version   uint64
	Selection Set
	Encodings map[string]Encoding
}

// Encoding returns the encoding of view, if the view is known.
func (st State) Encoding(view string) (Encoding, bool) {
	e, ok := st.Encodings[view]
	return e, ok
}

// Listener is called synchronously after every change.
type Listener func(State)

type subscription struct {
	id int
	fn Listener
}

// Store is the process-wide selection state. It is not safe for concurrent
// use: the owner serializes every call (the engine runs it on a single
// event loop).
type Store struct {
	version   uint64
	selection Set
	encodings map[string]Encoding

	known func(name string) bool

	subs   []subscription
	nextID int
}

// NewStore starts with an empty selection and the given view encodings.
// The set of views is fixed by this call.
func NewStore(encodings map[string]Encoding) *Store {
	enc := make(map[string]Encoding, len(encodings))
	for v, e := range encodings {
		enc[v] = e
	}
	return &Store{encodings: enc}
}

// State returns a snapshot that later mutations do not affect.
func (s *Store) State() State {
	enc := make(map[string]Encoding, len(s.encodings))
	for v, e := range s.encodings {
		enc[v] = e
	}
	return State{Version: s.version, Selection: s.selection, Encodings: enc}
}

// SetSelection replaces the selection with candidate. It never merges.
func (s *Store) SetSelection(candidate Set) {
	s.selection = candidate
	s.changed()
}

// Clear empties the selection.
func (s *Store) Clear() { s.SetSelection(Set{}) }

// SetKnown installs the predicate SetEncoding validates names with,
// typically membership in the loaded dataset's attributes.
func (s *Store) SetKnown(known func(name string) bool) { s.known = known }

// SetEncoding points axis of view at the named attribute.
func (s *Store) SetEncoding(view string, axis Axis, name string) error {
	e, ok := s.encodings[view]
	if !ok {
		return errors.Wrapf(ErrUnknownView, "%q", view)
	}
	if axis != AxisX && axis != AxisY {
		return errors.Wrapf(ErrUnknownAxis, "%q", axis)
	}
	if s.known == nil || !s.known(name) {
		return errors.Wrapf(ErrUnknownAttribute, "%q", name)
	}
	if e.Get(axis) == name {
		return nil
	}
	if axis == AxisY {
		e.Y = name
	} else {
		e.X = name
	}
	s.encodings[view] = e
	s.changed()
	return nil
}

// Touch notifies listeners without changing selection or encodings, e.g.
// after the dataset underneath has been replaced.
func (s *Store) Touch() { s.changed() }

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) changed() {
	s.version++
	st := s.State()
	for _, sub := range s.subs {
		sub.fn(st)
	}
}
