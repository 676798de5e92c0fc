package domain

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// ClassMappings maps a fine-grained classification ("recclass", e.g. "L6") to
// the coarse superclasses it belongs to.
type ClassMappings map[string][]string

// SuperclassShare is one slice of the classification breakdown.
type SuperclassShare struct {
	Superclass string  `json:"superclass"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"` // 0-100, two decimals
}

// ParseClassMappings reads a mapping file keyed by superclass, e.g.
//
//	Chondrite: [L6, H5, LL5]
//	Iron: [Iron, IIIAB]
//
// and inverts it into a ClassMappings. YAML and JSON inputs are both accepted.
func ParseClassMappings(data []byte) (ClassMappings, error) {
	var byCategory map[string][]string
	if err := yaml.Unmarshal(data, &byCategory); err != nil {
		return nil, fmt.Errorf("parse class mappings: %w", err)
	}
	return InvertClassMappings(byCategory), nil
}

// InvertClassMappings flips a superclass -> classifications table into a
// classification -> superclasses table. Categories are visited in name order
// so the result is deterministic.
func InvertClassMappings(byCategory map[string][]string) ClassMappings {
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make(ClassMappings)
	for _, category := range categories {
		for _, class := range byCategory[category] {
			out[class] = append(out[class], category)
		}
	}
	return out
}

// Superclass returns the first superclass mapped to class, or UnknownSuperclass.
func (m ClassMappings) Superclass(class string) string {
	if cats := m[class]; len(cats) > 0 {
		return cats[0]
	}
	return UnknownSuperclass
}

// AssignSuperclasses returns a copy of records in which every record lacking a
// superclass is given one from m. Records that already carry one are kept.
func AssignSuperclasses(records []LandingRecord, m ClassMappings) []LandingRecord {
	out := make([]LandingRecord, len(records))
	for i, r := range records {
		if r.Superclass == "" {
			r.Superclass = m.Superclass(r.Classification)
		}
		out[i] = r
	}
	return out
}

// Breakdown counts records by superclass, restricted to region when it is
// non-empty. Shares are sorted by count descending, then name. An empty input
// yields an empty, non-nil slice.
func Breakdown(records []LandingRecord, region string) []SuperclassShare {
	counts := make(map[string]int)
	total := 0
	for i := range records {
		if region != "" && records[i].Region != region {
			continue
		}
		sc := records[i].Superclass
		if sc == "" {
			sc = UnknownSuperclass
		}
		counts[sc]++
		total++
	}

	shares := make([]SuperclassShare, 0, len(counts))
	for sc, n := range counts {
		shares = append(shares, SuperclassShare{
			Superclass: sc,
			Count:      n,
			Percent:    math.Round(float64(n)/float64(total)*10000) / 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Superclass < shares[j].Superclass
	})
	return shares
}
