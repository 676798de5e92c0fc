package domain

import "sort"

// RegionSummary aggregates visible records by region tag.
type RegionSummary struct {
	Counts        map[string]int `json:"counts"`
	InRegionTotal int            `json:"in_region_total"` // tagged records other than NonUSRegion
	Leader        string         `json:"leader,omitempty"`
	LeaderCount   int            `json:"leader_count,omitempty"`
}

// RegionFocus is the count of visible records inside one highlighted region.
type RegionFocus struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// RegionCount pairs a region with its count, for ordered output.
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// SummarizeRegions counts visible records per region. Untagged records are
// ignored. The leader is the region that first reached the highest count
// while scanning in order; NonUSRegion never leads.
func SummarizeRegions(visible []LandingRecord) RegionSummary {
	summary := RegionSummary{Counts: make(map[string]int)}
	for i := range visible {
		region := visible[i].Region
		if region == "" {
			continue
		}
		summary.Counts[region]++
		if region == NonUSRegion {
			continue
		}
		summary.InRegionTotal++
		if c := summary.Counts[region]; c > summary.LeaderCount {
			summary.LeaderCount = c
			summary.Leader = region
		}
	}
	return summary
}

// Ranked returns the counts ordered by count descending, then region name.
func (s RegionSummary) Ranked() []RegionCount {
	out := make([]RegionCount, 0, len(s.Counts))
	for region, count := range s.Counts {
		out = append(out, RegionCount{Region: region, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// FocusOn counts the visible records tagged with region.
func FocusOn(visible []LandingRecord, region string) RegionFocus {
	focus := RegionFocus{Region: region}
	for i := range visible {
		if visible[i].Region == region {
			focus.Count++
		}
	}
	return focus
}
