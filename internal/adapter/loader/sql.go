package loader

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLLoader pages landing rows out of a Postgres or SQLite table. Every column
// is cast to text so the rows go through the same parsing as file sources.
type SQLLoader struct {
	db        *sqlx.DB
	table     string
	batchSize int
	logger    *slog.Logger
}

// OpenSQL connects to driver/dsn and returns a loader over table.
func OpenSQL(ctx context.Context, driver, dsn, table string, batchSize int, logger *slog.Logger) (*SQLLoader, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, unavailable("connect", driver, err)
	}
	l, err := NewSQLLoader(db, table, batchSize, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// NewSQLLoader creates a loader over an open database handle.
func NewSQLLoader(db *sqlx.DB, table string, batchSize int, logger *slog.Logger) (*SQLLoader, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid dataset table name %q", table)
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &SQLLoader{db: db, table: table, batchSize: batchSize, logger: logger}, nil
}

func (l *SQLLoader) query() string {
	return l.db.Rebind(`
		SELECT
			COALESCE(CAST(id AS TEXT), '')         AS id,
			COALESCE(CAST(name AS TEXT), '')       AS name,
			COALESCE(CAST(nametype AS TEXT), '')   AS nametype,
			COALESCE(CAST(recclass AS TEXT), '')   AS recclass,
			COALESCE(CAST(mass AS TEXT), '')       AS mass,
			COALESCE(CAST(fall AS TEXT), '')       AS fall,
			COALESCE(CAST(year AS TEXT), '')       AS year,
			COALESCE(CAST(reclat AS TEXT), '')     AS reclat,
			COALESCE(CAST(reclong AS TEXT), '')    AS reclong,
			COALESCE(CAST(superclass AS TEXT), '') AS superclass,
			COALESCE(CAST(state AS TEXT), '')      AS state
		FROM ` + l.table + `
		ORDER BY id
		LIMIT ? OFFSET ?`)
}

func (l *SQLLoader) Load(ctx context.Context) ([]domain.LandingRecord, error) {
	query := l.query()

	var rows []domain.RawLandingRow
	for offset := 0; ; offset += l.batchSize {
		var page []domain.RawLandingRow
		if err := l.db.SelectContext(ctx, &page, query, l.batchSize, offset); err != nil {
			return nil, unavailable("query", l.table, err)
		}
		rows = append(rows, page...)
		if len(page) < l.batchSize {
			break
		}
	}
	return parseRows(rows, l.table, l.logger), nil
}

// Close releases the connection pool.
func (l *SQLLoader) Close() error {
	return l.db.Close()
}
