// Package pipeline prepares the landing dataset for playback: it extracts
// records from a loader, enriches them with superclasses and region tags, and
// indexes the result restricted to the playback span.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/observability"
	"github.com/couchcryptid/meteorite-playback/internal/region"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Extractor reads the full landing dataset.
type Extractor interface {
	Load(ctx context.Context) ([]domain.LandingRecord, error)
}

// Transformer enriches loaded records.
type Transformer interface {
	Transform(ctx context.Context, records []domain.LandingRecord) []domain.LandingRecord
}

// LandingTransformer assigns superclasses and region tags to records that
// lack them.
type LandingTransformer struct {
	mappings domain.ClassMappings
	locator  region.Locator
	logger   *slog.Logger
}

// NewTransformer creates a LandingTransformer. A nil mappings or locator
// skips that enrichment.
func NewTransformer(mappings domain.ClassMappings, locator region.Locator, logger *slog.Logger) *LandingTransformer {
	return &LandingTransformer{mappings: mappings, locator: locator, logger: logger}
}

func (t *LandingTransformer) Transform(ctx context.Context, records []domain.LandingRecord) []domain.LandingRecord {
	if t.mappings != nil {
		records = domain.AssignSuperclasses(records, t.mappings)
	}
	if t.locator != nil && ctx.Err() == nil {
		records = region.Annotate(records, t.locator)
	}

	untagged := 0
	for i := range records {
		if records[i].Region == "" {
			untagged++
		}
	}
	if untagged > 0 {
		t.logger.Debug("records without a region tag", "count", untagged)
	}
	return records
}

// Dataset is the prepared, year-sorted record set.
type Dataset struct {
	Index   *domain.DatasetIndex
	Span    domain.Span
	Records []domain.LandingRecord // Index restricted to Span
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBackoff sets the initial and maximum delay between load attempts.
func WithBackoff(initial, maxBackoff time.Duration) Option {
	return func(p *Pipeline) {
		p.initialBackoff = initial
		p.maxBackoff = maxBackoff
	}
}

// Pipeline runs the extract-transform-index sequence once at startup.
type Pipeline struct {
	extractor      Extractor
	transformer    Transformer
	span           domain.Span
	attempts       int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// New creates a Pipeline. A nil transformer leaves records as loaded.
// attempts below one is treated as one.
func New(e Extractor, t Transformer, span domain.Span, attempts int, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	if attempts < 1 {
		attempts = 1
	}
	p := &Pipeline{
		extractor:      e,
		transformer:    t,
		span:           span,
		attempts:       attempts,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
		logger:         logger,
		metrics:        metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loads, enriches and indexes the dataset. Loads failing with
// domain.ErrDataUnavailable are retried with exponential backoff; any other
// error, or running out of attempts, is returned.
func (p *Pipeline) Run(ctx context.Context) (*Dataset, error) {
	if err := p.span.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	records, err := p.extract(ctx)
	if err != nil {
		return nil, err
	}
	if p.transformer != nil {
		records = p.transformer.Transform(ctx, records)
	}

	idx := domain.BuildIndex(records)
	ds := &Dataset{Index: idx, Span: p.span, Records: idx.Restrict(p.span)}

	if lo, hi, ok := idx.YearRange(); ok {
		p.logger.Info("dataset prepared",
			"records", idx.Len(), "in_span", len(ds.Records),
			"data_min_year", lo, "data_max_year", hi,
			"span_min", p.span.Min, "span_max", p.span.Max)
	} else {
		p.logger.Warn("dataset is empty", "span_min", p.span.Min, "span_max", p.span.Max)
	}
	p.metrics.DatasetRecords.Set(float64(len(ds.Records)))
	p.metrics.DatasetPrepareDuration.Observe(time.Since(start).Seconds())
	return ds, nil
}

func (p *Pipeline) extract(ctx context.Context) ([]domain.LandingRecord, error) {
	backoff := p.initialBackoff
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		var records []domain.LandingRecord
		records, err = p.extractor.Load(ctx)
		if err == nil {
			return records, nil
		}
		p.metrics.DatasetLoadErrors.Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, domain.ErrDataUnavailable) {
			return nil, err
		}
		if attempt == p.attempts {
			break
		}

		p.logger.Warn("dataset load failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
	return nil, fmt.Errorf("load dataset after %d attempts: %w", p.attempts, err)
}
