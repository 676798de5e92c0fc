package domain

import (
	"slices"
	"sort"
)

// DatasetIndex is a year-ordered, read-only view of a loaded dataset. It is
// rebuilt whenever the source dataset changes and is safe for concurrent reads.
type DatasetIndex struct {
	records     []LandingRecord
	firstByYear map[int]int
	years       []int
}

// BuildIndex sorts a defensive copy of records by year (stable, so ties keep
// their original order) and records the first index at which each year occurs.
// Years with no landings have no entry; that is not an error.
func BuildIndex(records []LandingRecord) *DatasetIndex {
	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	// Scanning backwards leaves each year pointing at its smallest index.
	firstByYear := make(map[int]int)
	for i := len(sorted) - 1; i >= 0; i-- {
		firstByYear[sorted[i].Year] = i
	}

	years := make([]int, 0, len(firstByYear))
	for y := range firstByYear {
		years = append(years, y)
	}
	sort.Ints(years)

	return &DatasetIndex{
		records:     sorted,
		firstByYear: firstByYear,
		years:       years,
	}
}

// Records returns the year-sorted records. Callers must not modify the slice.
func (idx *DatasetIndex) Records() []LandingRecord { return idx.records }

// Len returns the number of indexed records.
func (idx *DatasetIndex) Len() int { return len(idx.records) }

// Years returns the distinct years present, ascending.
func (idx *DatasetIndex) Years() []int { return slices.Clone(idx.years) }

// FirstIndex returns the index of the first record with the given year.
func (idx *DatasetIndex) FirstIndex(year int) (int, bool) {
	i, ok := idx.firstByYear[year]
	return i, ok
}

// YearRange returns the earliest and latest years present. ok is false for an
// empty index.
func (idx *DatasetIndex) YearRange() (minYear, maxYear int, ok bool) {
	if len(idx.years) == 0 {
		return 0, 0, false
	}
	return idx.years[0], idx.years[len(idx.years)-1], true
}

// Restrict returns the records whose years fall within span. Bounds come from
// the year lookup: the slice starts at the first occurring year >= span.Min and
// ends just before the first occurring year > span.Max (or at the end of the
// data when none follows). The returned slice shares storage with the index
// but has its capacity clipped, so appending to it never overwrites the index.
func (idx *DatasetIndex) Restrict(span Span) []LandingRecord {
	if span.Min > span.Max {
		return nil
	}
	lo := idx.boundAtOrAfter(span.Min)
	hi := len(idx.records)
	if span.Max < maxInt {
		hi = idx.boundAtOrAfter(span.Max + 1)
	}
	if lo >= hi {
		return nil
	}
	return idx.records[lo:hi:hi]
}

// boundAtOrAfter returns the first index of the earliest occurring year that
// is >= year, or len(records) when no such year exists.
func (idx *DatasetIndex) boundAtOrAfter(year int) int {
	pos := sort.SearchInts(idx.years, year)
	if pos == len(idx.years) {
		return len(idx.records)
	}
	return idx.firstByYear[idx.years[pos]]
}

const maxInt = int(^uint(0) >> 1)
