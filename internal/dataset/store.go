package dataset

import (
	"math"

	"github.com/aclements/go-moremath/stats"
)

// Kind classifies an attribute for scaling and brushing.
type Kind int

const (
	Numerical Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numerical:
		return "numerical"
	case Categorical:
		return "categorical"
	}
	return "unknown"
}

// Column holds one attribute in flat form. Numerical columns fill Nums
// (NaN marks a missing value); categorical columns are dictionary encoded
// into Codes with Dict mapping code -> label.
type Column struct {
	Name string
	Kind Kind

	Nums []float64

	Codes []int32
	Dict  []string
}

// Len is the number of rows in the column.
func (c *Column) Len() int {
	if c.Kind == Numerical {
		return len(c.Nums)
	}
	return len(c.Codes)
}

// Float returns the numeric value of row id, or NaN.
func (c *Column) Float(id int) float64 {
	if c.Kind != Numerical || id < 0 || id >= len(c.Nums) {
		return math.NaN()
	}
	return c.Nums[id]
}

// Label returns the category of row id.
func (c *Column) Label(id int) string {
	if c.Kind != Categorical || id < 0 || id >= len(c.Codes) {
		return ""
	}
	return c.Dict[c.Codes[id]]
}

// Extent returns the observed min and max of a numerical column, ignoring
// missing values. ok is false if there is nothing to measure.
func (c *Column) Extent() (min, max float64, ok bool) {
	if c.Kind != Numerical {
		return 0, 0, false
	}
	present := make([]float64, 0, len(c.Nums))
	for _, v := range c.Nums {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0, 0, false
	}
	min, max = stats.Bounds(present)
	return min, max, true
}

// Record is one row as seen by callers outside the store.
type Record struct {
	ID     int            `json:"id"`
	Values map[string]any `json:"values"`
}

// Dataset is a loaded, immutable column store. A reload replaces the whole
// Dataset; nothing mutates one in place.
type Dataset struct {
	rows    int
	columns []*Column
	byName  map[string]*Column
}

// New assembles a Dataset from columns of equal length.
func New(rows int, columns []*Column) *Dataset {
	ds := &Dataset{rows: rows, columns: columns, byName: make(map[string]*Column, len(columns))}
	for _, c := range columns {
		ds.byName[c.Name] = c
	}
	return ds
}

// Len is the number of records. Record ids are 0..Len()-1.
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return ds.rows
}

// Column looks an attribute up by name.
func (ds *Dataset) Column(name string) (*Column, bool) {
	if ds == nil {
		return nil, false
	}
	c, ok := ds.byName[name]
	return c, ok
}

// Kind reports the kind of the named attribute.
func (ds *Dataset) Kind(name string) (Kind, bool) {
	c, ok := ds.Column(name)
	if !ok {
		return 0, false
	}
	return c.Kind, true
}

// Numerical lists numerical attribute names in header order.
func (ds *Dataset) Numerical() []string { return ds.names(Numerical) }

// Categorical lists categorical attribute names in header order.
func (ds *Dataset) Categorical() []string { return ds.names(Categorical) }

func (ds *Dataset) names(k Kind) []string {
	out := []string{}
	if ds == nil {
		return out
	}
	for _, c := range ds.columns {
		if c.Kind == k {
			out = append(out, c.Name)
		}
	}
	return out
}

// Record materializes row id. Missing numbers come back as nil.
func (ds *Dataset) Record(id int) (Record, bool) {
	if id < 0 || id >= ds.Len() {
		return Record{}, false
	}
	r := Record{ID: id, Values: make(map[string]any, len(ds.columns))}
	for _, c := range ds.columns {
		switch c.Kind {
		case Numerical:
			if v := c.Nums[id]; !math.IsNaN(v) {
				r.Values[c.Name] = v
			} else {
				r.Values[c.Name] = nil
			}
		case Categorical:
			r.Values[c.Name] = c.Dict[c.Codes[id]]
		}
	}
	return r, true
}
