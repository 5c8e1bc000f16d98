package dataset

import (
	"math"
	"runtime"
	"sort"
	"sync"
)

// CategoryCount is how often one category occurs.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary describes one attribute over a set of rows. Min, Max and Mean
// are set for numerical attributes with at least one present value;
// Categories is set for categorical ones, most frequent first.
type Summary struct {
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Count      int             `json:"count"`
	Missing    int             `json:"missing"`
	Min        *float64        `json:"min,omitempty"`
	Max        *float64        `json:"max,omitempty"`
	Mean       *float64        `json:"mean,omitempty"`
	Categories []CategoryCount `json:"categories,omitempty"`
}

type numPartial struct {
	n, missing int
	sum        float64
	min, max   float64
}

type partial struct {
	nums  []numPartial // by column index, numerical columns only
	codes [][]int      // by column index, category counts
}

// Summarize aggregates every attribute over ids, or over all rows when ids
// is nil. Ids outside the dataset are ignored. Rows are split into chunks
// aggregated in parallel and merged afterwards.
func (ds *Dataset) Summarize(ids []int) []Summary {
	if ds == nil {
		return []Summary{}
	}
	rows := ids
	if rows == nil {
		rows = make([]int, ds.rows)
		for i := range rows {
			rows[i] = i
		}
	}

	workers := runtime.NumCPU()
	if workers > len(rows) {
		workers = len(rows)
	}
	if workers < 1 {
		workers = 1
	}
	chunk := len(rows) / workers

	results := make(chan *partial, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if w == workers-1 {
			end = len(rows)
		}
		wg.Add(1)
		go func(part []int) {
			defer wg.Done()
			results <- ds.aggregate(part)
		}(rows[start:end])
	}
	go func() { wg.Wait(); close(results) }()

	total := ds.newPartial()
	for p := range results {
		for i, c := range ds.columns {
			if c.Kind == Numerical {
				total.nums[i] = mergeNum(total.nums[i], p.nums[i])
				continue
			}
			for code, n := range p.codes[i] {
				total.codes[i][code] += n
			}
		}
	}
	return ds.build(total)
}

func (ds *Dataset) newPartial() *partial {
	p := &partial{nums: make([]numPartial, len(ds.columns)), codes: make([][]int, len(ds.columns))}
	for i, c := range ds.columns {
		if c.Kind == Numerical {
			p.nums[i] = numPartial{min: math.Inf(1), max: math.Inf(-1)}
		} else {
			p.codes[i] = make([]int, len(c.Dict))
		}
	}
	return p
}

func (ds *Dataset) aggregate(rows []int) *partial {
	p := ds.newPartial()
	for i, c := range ds.columns {
		switch c.Kind {
		case Numerical:
			acc := &p.nums[i]
			for _, id := range rows {
				if id < 0 || id >= ds.rows {
					continue
				}
				v := c.Nums[id]
				if math.IsNaN(v) {
					acc.missing++
					continue
				}
				acc.n++
				acc.sum += v
				acc.min = math.Min(acc.min, v)
				acc.max = math.Max(acc.max, v)
			}
		case Categorical:
			counts := p.codes[i]
			for _, id := range rows {
				if id < 0 || id >= ds.rows {
					continue
				}
				counts[c.Codes[id]]++
			}
		}
	}
	return p
}

func mergeNum(a, b numPartial) numPartial {
	return numPartial{
		n:       a.n + b.n,
		missing: a.missing + b.missing,
		sum:     a.sum + b.sum,
		min:     math.Min(a.min, b.min),
		max:     math.Max(a.max, b.max),
	}
}

func (ds *Dataset) build(p *partial) []Summary {
	out := make([]Summary, 0, len(ds.columns))
	for i, c := range ds.columns {
		s := Summary{Name: c.Name, Kind: c.Kind.String()}
		if c.Kind == Numerical {
			acc := p.nums[i]
			s.Count, s.Missing = acc.n, acc.missing
			if acc.n > 0 {
				min, max, mean := acc.min, acc.max, acc.sum/float64(acc.n)
				s.Min, s.Max, s.Mean = &min, &max, &mean
			}
			out = append(out, s)
			continue
		}
		s.Categories = make([]CategoryCount, 0, len(c.Dict))
		for code, n := range p.codes[i] {
			if n > 0 {
				s.Categories = append(s.Categories, CategoryCount{Label: c.Dict[code], Count: n})
				s.Count += n
			}
		}
		// Stable keeps dictionary order among ties.
		sort.SliceStable(s.Categories, func(a, b int) bool { return s.Categories[a].Count > s.Categories[b].Count })
		out = append(out, s)
	}
	return out
}
