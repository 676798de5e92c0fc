package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yearsOf(records []LandingRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Year
	}
	return out
}

func idsOf(records []LandingRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestBuildIndex_SortsAndMapsFirstIndex(t *testing.T) {
	records := []LandingRecord{
		{ID: "a", Year: 2000},
		{ID: "b", Year: 1900},
		{ID: "c", Year: 1905},
		{ID: "d", Year: 1900},
	}

	idx := BuildIndex(records)

	assert.Equal(t, []int{1900, 1900, 1905, 2000}, yearsOf(idx.Records()))
	assert.Equal(t, []string{"b", "d", "c", "a"}, idsOf(idx.Records()), "ties keep original order")

	for year, want := range map[int]int{1900: 0, 1905: 2, 2000: 3} {
		got, ok := idx.FirstIndex(year)
		require.True(t, ok, "year %d", year)
		assert.Equal(t, want, got, "year %d", year)
	}
	_, ok := idx.FirstIndex(1901)
	assert.False(t, ok, "absent years have no entry")
	assert.Equal(t, []int{1900, 1905, 2000}, idx.Years())
}

func TestBuildIndex_DefensiveCopy(t *testing.T) {
	records := []LandingRecord{{ID: "a", Year: 2000}, {ID: "b", Year: 1900}}

	idx := BuildIndex(records)
	records[0].ID = "mutated"

	assert.Equal(t, []string{"b", "a"}, idsOf(idx.Records()))
}

func TestBuildIndex_Empty(t *testing.T) {
	idx := BuildIndex(nil)

	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Years())
	_, _, ok := idx.YearRange()
	assert.False(t, ok)
	assert.Empty(t, idx.Restrict(Span{Min: 1900, Max: 2013}))
}

func TestDatasetIndex_Restrict(t *testing.T) {
	idx := BuildIndex([]LandingRecord{
		{ID: "a", Year: 1850},
		{ID: "b", Year: 1900},
		{ID: "c", Year: 1900},
		{ID: "d", Year: 1950},
		{ID: "e", Year: 2013},
		{ID: "f", Year: 2101},
	})

	cases := []struct {
		name string
		span Span
		want []string
	}{
		{name: "occurring bounds", span: Span{Min: 1900, Max: 2013}, want: []string{"b", "c", "d", "e"}},
		{name: "max not occurring", span: Span{Min: 1900, Max: 1960}, want: []string{"b", "c", "d"}},
		{name: "min not occurring", span: Span{Min: 1901, Max: 2013}, want: []string{"d", "e"}},
		{name: "nothing follows max", span: Span{Min: 1950, Max: 3000}, want: []string{"d", "e", "f"}},
		{name: "single year", span: Span{Min: 1900, Max: 1900}, want: []string{"b", "c"}},
		{name: "gap", span: Span{Min: 1901, Max: 1949}, want: nil},
		{name: "before all", span: Span{Min: 1000, Max: 1100}, want: nil},
		{name: "inverted", span: Span{Min: 2000, Max: 1900}, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := idx.Restrict(tc.span)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, idsOf(got))
		})
	}
}

func TestDatasetIndex_RestrictDoesNotLeakCapacity(t *testing.T) {
	idx := BuildIndex([]LandingRecord{{ID: "a", Year: 1900}, {ID: "b", Year: 2000}})

	window := idx.Restrict(Span{Min: 1900, Max: 1950})
	require.Len(t, window, 1)
	_ = append(window, LandingRecord{ID: "x", Year: 1901})

	assert.Equal(t, "b", idx.Records()[1].ID)
}

func TestDatasetIndex_YearRange(t *testing.T) {
	idx := BuildIndex([]LandingRecord{{Year: 1999}, {Year: 1861}, {Year: 2010}})

	lo, hi, ok := idx.YearRange()
	require.True(t, ok)
	assert.Equal(t, 1861, lo)
	assert.Equal(t, 2010, hi)
}

func TestSpan_Clamp(t *testing.T) {
	span := Span{Min: 1900, Max: 2013}

	assert.Equal(t, 1900, span.Clamp(1899))
	assert.Equal(t, 1950, span.Clamp(1950))
	assert.Equal(t, 2013, span.Clamp(2500))
	assert.True(t, span.Contains(1900))
	assert.False(t, span.Contains(2014))
	require.NoError(t, span.Validate())
	require.Error(t, Span{Min: 2013, Max: 1900}.Validate())
}
