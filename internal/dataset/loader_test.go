package dataset

import (
	"context"
	"io"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

const bikeCSV = `Date,RentedBikeCount,Hour,Temperature,Humidity,Seasons,Holiday
01/12/2017,254,0,-5.2,37,Winter,No Holiday
01/12/2017,204,1,-5.5,38,Winter,No Holiday
15/06/2018,1800,18,24.1,55,Summer,No Holiday
20/09/2018,900,9,,60,Autumn,Holiday
`

func TestParse(t *testing.T) {
	ds, err := Parse(context.Background(), strings.NewReader(bikeCSV), Options{}, quietLogger())
	assert.NilError(t, err)

	assert.Equal(t, ds.Len(), 4)
	assert.DeepEqual(t, ds.Numerical(), []string{"RentedBikeCount", "Hour", "Temperature", "Humidity"})
	assert.DeepEqual(t, ds.Categorical(), []string{"Date", "Seasons", "Holiday"})

	temp, ok := ds.Column("Temperature")
	assert.Assert(t, ok)
	assert.Equal(t, temp.Float(0), -5.2)
	assert.Assert(t, math.IsNaN(temp.Float(3)), "missing value should decode as NaN")

	seasons, _ := ds.Column("Seasons")
	assert.DeepEqual(t, seasons.Dict, []string{"Winter", "Summer", "Autumn"})
	assert.Equal(t, seasons.Label(2), "Summer")

	min, max, ok := temp.Extent()
	assert.Assert(t, ok)
	assert.Equal(t, min, -5.5)
	assert.Equal(t, max, 24.1)
}

func TestClassifyScansWholeColumn(t *testing.T) {
	t.Run("missing first value", func(t *testing.T) {
		src := "a,b\n,x\n2,y\n3,z\n"
		ds, err := Parse(context.Background(), strings.NewReader(src), Options{}, quietLogger())
		assert.NilError(t, err)

		kind, ok := ds.Kind("a")
		assert.Assert(t, ok)
		assert.Equal(t, kind, Numerical)
	})

	t.Run("atypical later value", func(t *testing.T) {
		src := "a\n1\n2\nthree\n"
		ds, err := Parse(context.Background(), strings.NewReader(src), Options{}, quietLogger())
		assert.NilError(t, err)

		kind, _ := ds.Kind("a")
		assert.Equal(t, kind, Categorical)
		col, _ := ds.Column("a")
		assert.Equal(t, col.Label(2), "three")
	})

	t.Run("all missing", func(t *testing.T) {
		src := "a\n\nNA\n"
		ds, err := Parse(context.Background(), strings.NewReader(src), Options{}, quietLogger())
		assert.NilError(t, err)

		kind, _ := ds.Kind("a")
		assert.Equal(t, kind, Categorical)
	})
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader(""), Options{}, quietLogger())
	assert.Assert(t, errors.Is(err, ErrEmpty))

	_, err = Parse(context.Background(), strings.NewReader("a,a\n1,2\n"), Options{}, quietLogger())
	assert.Assert(t, errors.Is(err, ErrDuplicateColumn))
}

func TestLoad(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "bikes_*.tsv")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString("x\tlabel\n1.5\tfoo\n2.5\tbar\n"); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}

	ds, err := Load(context.Background(), tmpFile.Name(), Options{}, quietLogger())
	assert.NilError(t, err)
	assert.Equal(t, ds.Len(), 2)

	rec, ok := ds.Record(1)
	assert.Assert(t, ok)
	assert.Equal(t, rec.ID, 1)
	assert.Equal(t, rec.Values["x"], 2.5)
	assert.Equal(t, rec.Values["label"], "bar")

	_, ok = ds.Record(2)
	assert.Assert(t, !ok)
}

func TestMaxRows(t *testing.T) {
	ds, err := Parse(context.Background(), strings.NewReader(bikeCSV), Options{MaxRows: 2}, quietLogger())
	assert.NilError(t, err)
	assert.Equal(t, ds.Len(), 2)
}
