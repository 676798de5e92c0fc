// Package loader reads meteorite landing datasets from files and databases.
//
// Every loader reports an unreadable dataset as an error wrapping
// domain.ErrDataUnavailable. Individual rows that cannot take part in playback
// (no year, no coordinates) are skipped and counted, never fatal.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
)

// Loader reads the full landing dataset.
type Loader interface {
	Load(ctx context.Context) ([]domain.LandingRecord, error)
}

// Supported dataset sources.
const (
	SourceCSV      = "csv"
	SourceGeoJSON  = "geojson"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite3"
)

// Options selects and configures a dataset source.
type Options struct {
	Source    string
	Path      string // file path, or DSN for SQL sources
	Table     string
	BatchSize int
}

// New returns the loader for opts.Source. SQL loaders hold a connection pool;
// callers should Close them when done.
func New(ctx context.Context, opts Options, logger *slog.Logger) (Loader, error) {
	switch strings.ToLower(opts.Source) {
	case SourceCSV:
		return NewCSVLoader(opts.Path, logger), nil
	case SourceGeoJSON:
		return NewGeoJSONLoader(opts.Path, logger), nil
	case SourcePostgres, SourceSQLite:
		return OpenSQL(ctx, opts.Source, opts.Path, opts.Table, opts.BatchSize, logger)
	default:
		return nil, fmt.Errorf("unknown dataset source %q", opts.Source)
	}
}

func unavailable(action, target string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", action, target, domain.ErrDataUnavailable, err)
}

// parseRows converts raw rows, dropping the ones ParseLanding rejects.
func parseRows(rows []domain.RawLandingRow, source string, logger *slog.Logger) []domain.LandingRecord {
	records := make([]domain.LandingRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		rec, err := domain.ParseLanding(row)
		if err != nil {
			skipped++
			logger.Debug("skipping landing row", "source", source, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		logger.Warn("skipped unusable landing rows", "source", source, "skipped", skipped, "loaded", len(records))
	}
	logger.Info("dataset loaded", "source", source, "records", len(records))
	return records
}
