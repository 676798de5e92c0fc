package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
)

// CSVLoader reads the landings CSV export. Columns are matched by header name,
// case-insensitively; unknown columns are ignored.
type CSVLoader struct {
	path   string
	logger *slog.Logger
}

// NewCSVLoader creates a loader for the CSV file at path.
func NewCSVLoader(path string, logger *slog.Logger) *CSVLoader {
	return &CSVLoader{path: path, logger: logger}
}

func (l *CSVLoader) Load(ctx context.Context) ([]domain.LandingRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, unavailable("open", l.path, err)
	}
	defer f.Close()

	rows, err := readCSV(ctx, f)
	if err != nil {
		return nil, unavailable("read", l.path, err)
	}
	return parseRows(rows, l.path, l.logger), nil
}

func readCSV(ctx context.Context, r io.Reader) ([]domain.RawLandingRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIdx := map[string]int{}
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"year", "reclat", "reclong"} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var rows []domain.RawLandingRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, domain.RawLandingRow{
			Name:       get(row, colIdx, "name"),
			ID:         get(row, colIdx, "id"),
			NameType:   get(row, colIdx, "nametype"),
			RecClass:   get(row, colIdx, "recclass"),
			Mass:       get(row, colIdx, "mass (g)", "mass"),
			Fall:       get(row, colIdx, "fall"),
			Year:       get(row, colIdx, "year"),
			RecLat:     get(row, colIdx, "reclat"),
			RecLong:    get(row, colIdx, "reclong"),
			Superclass: get(row, colIdx, "superclass"),
			State:      get(row, colIdx, "state"),
		})
	}
}

// get returns the first present column among names, or "".
func get(row []string, colIdx map[string]int, names ...string) string {
	for _, name := range names {
		if i, ok := colIdx[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}
