package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmpty           = errors.New("dataset has no header row")
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Options controls how a delimited file is read.
type Options struct {
	// Delimiter between fields. If 0, it is chosen from the file name
	// (tab for .tsv, comma otherwise).
	Delimiter rune
	// MaxRows limits the number of records read; 0 means unlimited.
	MaxRows int
}

// Load reads a delimited file with a header row into a Dataset.
func Load(ctx context.Context, path string, opt Options, log *logrus.Logger) (*Dataset, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open dataset")
	}
	defer f.Close()

	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	ds, err := Parse(ctx, f, opt, log)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}

	log.WithFields(logrus.Fields{
		"path":        path,
		"rows":        ds.Len(),
		"numerical":   len(ds.Numerical()),
		"categorical": len(ds.Categorical()),
		"took":        time.Since(start),
	}).Info("dataset loaded")
	return ds, nil
}

// Parse reads delimited text from r. Columns are classified and decoded in
// parallel once every row is in memory.
func Parse(ctx context.Context, r io.Reader, opt Options, log *logrus.Logger) (*Dataset, error) {
	// A. Read rows
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, errors.Wrap(err, "read header")
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if seen[h] {
			return nil, errors.Wrapf(ErrDuplicateColumn, "%q", h)
		}
		seen[h] = true
		header[i] = h
	}

	var rows [][]string
	for opt.MaxRows <= 0 || len(rows) < opt.MaxRows {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", len(rows)+1)
		}
		rows = append(rows, rec)
	}

	// B. Decode columns (parallel, one task per column)
	columns := make([]*Column, len(header))
	warnings := make([]string, len(header))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, name := range header {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			columns[i], warnings[i] = decodeColumn(name, rows, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, w := range warnings {
		if w != "" {
			log.WithField("attribute", header[i]).Warn(w)
		}
	}
	return New(len(rows), columns), nil
}

// decodeColumn classifies column idx by scanning every row, then decodes it.
// The returned warning is non-empty when the first row alone would have
// produced a different kind.
func decodeColumn(name string, rows [][]string, idx int) (*Column, string) {
	present, numeric := 0, true
	for _, row := range rows {
		s := field(row, idx)
		if isMissing(s) {
			continue
		}
		present++
		if _, ok := parseNumber(s); !ok {
			numeric = false
			break
		}
	}
	kind := Categorical
	if numeric && present > 0 {
		kind = Numerical
	}

	var warn string
	if len(rows) > 0 {
		firstKind := Categorical
		if _, ok := parseNumber(field(rows[0], idx)); ok {
			firstKind = Numerical
		}
		if firstKind != kind {
			warn = "first-row sample suggests " + firstKind.String() + ", full scan classifies it " + kind.String()
		}
	}

	col := &Column{Name: name, Kind: kind}
	if kind == Numerical {
		col.Nums = make([]float64, len(rows))
		for i, row := range rows {
			v, ok := parseNumber(field(row, idx))
			if !ok {
				v = math.NaN()
			}
			col.Nums[i] = v
		}
		return col, warn
	}

	// Dictionary encode: label -> dense code in first-appearance order.
	dict := make(map[string]int32)
	col.Codes = make([]int32, len(rows))
	for i, row := range rows {
		s := strings.TrimSpace(field(row, idx))
		id, ok := dict[s]
		if !ok {
			id = int32(len(col.Dict))
			col.Dict = append(col.Dict, s)
			dict[s] = id
		}
		col.Codes[i] = id
	}
	return col, warn
}

func field(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func isMissing(s string) bool {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "n/a", "null", "nan":
		return true
	}
	return false
}

func parseNumber(s string) (float64, bool) {
	if isMissing(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
