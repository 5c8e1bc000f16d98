package dataset

import (
	"context"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func summaryByName(sums []Summary) map[string]Summary {
	out := make(map[string]Summary, len(sums))
	for _, s := range sums {
		out[s.Name] = s
	}
	return out
}

func TestSummarizeAll(t *testing.T) {
	ds, err := Parse(context.Background(), strings.NewReader(bikeCSV), Options{}, quietLogger())
	assert.NilError(t, err)

	sums := ds.Summarize(nil)
	assert.Equal(t, len(sums), 7)
	assert.Equal(t, sums[0].Name, "Date")

	by := summaryByName(sums)
	temp := by["Temperature"]
	assert.Equal(t, temp.Kind, "numerical")
	assert.Equal(t, temp.Count, 3)
	assert.Equal(t, temp.Missing, 1)
	assert.Equal(t, *temp.Min, -5.5)
	assert.Equal(t, *temp.Max, 24.1)

	count := by["RentedBikeCount"]
	assert.Equal(t, *count.Mean, (254.0+204+1800+900)/4)

	seasons := by["Seasons"]
	assert.Equal(t, seasons.Count, 4)
	assert.DeepEqual(t, seasons.Categories, []CategoryCount{
		{Label: "Winter", Count: 2},
		{Label: "Summer", Count: 1},
		{Label: "Autumn", Count: 1},
	})
}

func TestSummarizeSubset(t *testing.T) {
	ds, err := Parse(context.Background(), strings.NewReader(bikeCSV), Options{}, quietLogger())
	assert.NilError(t, err)

	by := summaryByName(ds.Summarize([]int{2, 3, 99}))

	temp := by["Temperature"]
	assert.Equal(t, temp.Count, 1)
	assert.Equal(t, temp.Missing, 1)
	assert.Equal(t, *temp.Mean, 24.1)

	holiday := by["Holiday"]
	assert.Equal(t, holiday.Count, 2)
	assert.Equal(t, len(holiday.Categories), 2)
}

func TestSummarizeEmptySelection(t *testing.T) {
	ds, err := Parse(context.Background(), strings.NewReader(bikeCSV), Options{}, quietLogger())
	assert.NilError(t, err)

	by := summaryByName(ds.Summarize([]int{}))
	temp := by["Temperature"]
	assert.Equal(t, temp.Count, 0)
	assert.Assert(t, temp.Min == nil && temp.Mean == nil)
	assert.Equal(t, len(by["Seasons"].Categories), 0)

	var missing *Dataset
	assert.Equal(t, len(missing.Summarize(nil)), 0)
}
