// Command validate performs integrity checks on a landing dataset before it
// is served: record sanity, playback span coverage, superclass coverage and
// agreement between the dataset's own region tags and the state polygons.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset data/classified-meteorite-landings.csv \
//	  -mappings data/class-mappings.yaml \
//	  -regions data/us-states.geojson
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/couchcryptid/meteorite-playback/internal/adapter/loader"
	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/region"
)

// maxReported caps the errors listed per phase; the count is always exact.
const maxReported = 25

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	dropped int
}

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) >= maxReported {
		p.dropped++
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func (p *phase) count() int { return len(p.errors) + p.dropped }

func main() {
	source := flag.String("source", loader.SourceCSV, "dataset source: csv, geojson, postgres or sqlite3")
	dataset := flag.String("dataset", "", "dataset file path, or DSN for SQL sources")
	table := flag.String("table", "meteorite_landings", "table name for SQL sources")
	mappingsPath := flag.String("mappings", "", "superclass mapping file (YAML or JSON)")
	regionsPath := flag.String("regions", "", "GeoJSON state polygons")
	minYear := flag.Int("min-year", 1900, "first playback year")
	maxYear := flag.Int("max-year", 2013, "last playback year")
	flag.Parse()

	if *dataset == "" {
		flag.Usage()
		os.Exit(1)
	}

	opts := loader.Options{Source: *source, Path: *dataset, Table: *table, BatchSize: 1000}
	span := domain.Span{Min: *minYear, Max: *maxYear}
	os.Exit(run(opts, *mappingsPath, *regionsPath, span))
}

func run(opts loader.Options, mappingsPath, regionsPath string, span domain.Span) int {
	// Skipped rows are reported by the loader at warn level; keep stdout for the report.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	fmt.Println("=== Meteorite Landing Dataset Validation ===")
	fmt.Println()

	l, err := loader.New(ctx, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open dataset: %v\n", err)
		return 1
	}
	if c, ok := l.(io.Closer); ok {
		defer c.Close()
	}
	records, err := l.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	var mappings domain.ClassMappings
	if mappingsPath != "" {
		if mappings, err = loader.LoadClassMappings(mappingsPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load class mappings: %v\n", err)
			return 1
		}
	}
	var locator region.Locator
	if regionsPath != "" {
		states, err := region.LoadStates(regionsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load state polygons: %v\n", err)
			return 1
		}
		locator = states
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateRecords(records),
		validateSpanCoverage(records, span),
	}
	if mappings != nil {
		phases = append(phases, validateSuperclasses(records, mappings))
	}
	if locator != nil {
		phases = append(phases, validateRegionTags(records, locator))
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", p.count())
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d loaded, %d in playback span %d-%d\n",
		len(records), len(domain.BuildIndex(records).Restrict(span)), span.Min, span.Max)

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		if p.dropped > 0 {
			fmt.Printf("  ... and %d more\n", p.dropped)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

// validateRecords checks identity and value ranges of every record.
func validateRecords(records []domain.LandingRecord) *phase {
	p := &phase{name: "Record integrity"}
	seen := make(map[string]int, len(records))
	for i, r := range records {
		if prev, dup := seen[r.ID]; dup {
			p.errorf("record %d (%s): duplicate id %q (first at %d)", i, r.Name, r.ID, prev)
		} else {
			seen[r.ID] = i
		}
		if r.Lat < -90 || r.Lat > 90 {
			p.errorf("record %s (%s): latitude %g out of range", r.ID, r.Name, r.Lat)
		}
		if r.Lon < -180 || r.Lon > 180 {
			p.errorf("record %s (%s): longitude %g out of range", r.ID, r.Name, r.Lon)
		}
		if r.Mass < 0 {
			p.errorf("record %s (%s): negative mass %g", r.ID, r.Name, r.Mass)
		}
	}
	return p
}

// validateSpanCoverage checks that the playback span has data to show.
func validateSpanCoverage(records []domain.LandingRecord, span domain.Span) *phase {
	p := &phase{name: "Playback span coverage"}
	if err := span.Validate(); err != nil {
		p.errorf("%v", err)
		return p
	}
	idx := domain.BuildIndex(records)
	lo, hi, ok := idx.YearRange()
	if !ok {
		p.errorf("dataset has no records")
		return p
	}
	if len(idx.Restrict(span)) == 0 {
		p.errorf("no records between %d and %d (data covers %d-%d)", span.Min, span.Max, lo, hi)
	}
	return p
}

// validateSuperclasses lists classifications the mappings do not cover.
func validateSuperclasses(records []domain.LandingRecord, mappings domain.ClassMappings) *phase {
	p := &phase{name: "Superclass coverage"}
	unmapped := make(map[string]int)
	for _, r := range records {
		if r.Superclass != "" {
			continue
		}
		if mappings.Superclass(r.Classification) == domain.UnknownSuperclass {
			unmapped[r.Classification]++
		}
	}
	classes := make([]string, 0, len(unmapped))
	for c := range unmapped {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		p.errorf("classification %q (%d records) has no superclass", c, unmapped[c])
	}
	return p
}

// validateRegionTags compares region tags carried by the dataset with what
// the state polygons say.
func validateRegionTags(records []domain.LandingRecord, locator region.Locator) *phase {
	p := &phase{name: "Region tag agreement"}
	for _, r := range records {
		if r.Region == "" {
			continue
		}
		if got := locator.Locate(r.Lat, r.Lon); got != r.Region {
			p.errorf("record %s (%s) at %g,%g: tagged %q, polygons say %q", r.ID, r.Name, r.Lat, r.Lon, r.Region, got)
		}
	}
	return p
}
