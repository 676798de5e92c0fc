// Command breakdown exports the classification breakdown of a landing dataset
// to an .xlsx workbook, optionally restricted to one region.
//
// Usage:
//
//	go run ./cmd/breakdown \
//	  -dataset data/classified-meteorite-landings.csv \
//	  -mappings data/class-mappings.yaml \
//	  -regions data/us-states.geojson \
//	  -region texas \
//	  -out breakdown.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/couchcryptid/meteorite-playback/internal/adapter/excel"
	"github.com/couchcryptid/meteorite-playback/internal/adapter/loader"
	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/observability"
	"github.com/couchcryptid/meteorite-playback/internal/pipeline"
	"github.com/couchcryptid/meteorite-playback/internal/region"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	source := flag.String("source", loader.SourceCSV, "dataset source: csv, geojson, postgres or sqlite3")
	dataset := flag.String("dataset", "", "dataset file path, or DSN for SQL sources")
	table := flag.String("table", "meteorite_landings", "table name for SQL sources")
	mappingsPath := flag.String("mappings", "", "superclass mapping file (YAML or JSON)")
	regionsPath := flag.String("regions", "", "GeoJSON state polygons for region tagging")
	regionName := flag.String("region", "", "restrict the breakdown to one region")
	minYear := flag.Int("min-year", 1900, "first year included")
	maxYear := flag.Int("max-year", 2013, "last year included")
	out := flag.String("out", "breakdown.xlsx", "output workbook path")
	flag.Parse()

	if *dataset == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -dataset")
	}

	logger := sharedobs.NewLogger(os.Getenv("LOG_LEVEL"), "text")
	ctx := context.Background()

	l, err := loader.New(ctx, loader.Options{Source: *source, Path: *dataset, Table: *table, BatchSize: 1000}, logger)
	if err != nil {
		return err
	}
	if c, ok := l.(io.Closer); ok {
		defer c.Close()
	}

	var mappings domain.ClassMappings
	if *mappingsPath != "" {
		if mappings, err = loader.LoadClassMappings(*mappingsPath); err != nil {
			return err
		}
	}
	var locator region.Locator
	if *regionsPath != "" {
		states, err := region.LoadStates(*regionsPath)
		if err != nil {
			return err
		}
		locator = states
	}

	p := pipeline.New(l, pipeline.NewTransformer(mappings, locator, logger),
		domain.Span{Min: *minYear, Max: *maxYear}, 1, logger, observability.NewMetrics())
	ds, err := p.Run(ctx)
	if err != nil {
		return err
	}

	reg := region.Canonical(*regionName)
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := excel.WriteReport(f, ds.Records, reg); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *out, err)
	}

	slog.Info("breakdown written", "path", *out, "records", len(ds.Records), "region", reg)
	return nil
}
