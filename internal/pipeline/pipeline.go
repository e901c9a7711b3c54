package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wind-turbine-etl/internal/domain"
	"github.com/couchcryptid/wind-turbine-etl/internal/observability"
)

// Source lists and fetches records from the registry.
type Source interface {
	ListObjectIDs(ctx context.Context) ([]domain.ObjectID, error)
	FetchBatch(ctx context.Context, ids []domain.ObjectID) ([]domain.Turbine, error)
}

// TableWriter persists the corrected table.
type TableWriter interface {
	Write(ctx context.Context, t domain.Table) error
}

// Settings are the per-run parameters of the pipeline.
type Settings struct {
	// BatchSize is the number of ids per feature query.
	BatchSize int
	// Location renders DATA_ATUALIZACAO_FORMATADA.
	Location *time.Location
}

// Summary describes a completed run.
type Summary struct {
	ObjectIDs   int
	Batches     int
	Fetched     int
	Written     int
	Corrections map[string]int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Pipeline orchestrates the list-fetch-correct-write run.
type Pipeline struct {
	source   Source
	writer   TableWriter
	rules    []domain.Rule
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
	listed   atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(src Source, w TableWriter, rules []domain.Rule, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Pipeline{
		source:   src,
		writer:   w,
		rules:    rules,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the object id list has been retrieved.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.listed.Load() {
		return errors.New("object ids not listed yet")
	}
	return nil
}

// Run performs one full acquisition. Any failure aborts the run before the
// output is written.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if p.settings.BatchSize <= 0 {
		return Summary{}, fmt.Errorf("invalid batch size %d", p.settings.BatchSize)
	}

	sum := Summary{StartedAt: clock.Now(), Corrections: make(map[string]int, len(p.rules))}
	p.metrics.RunInProgress.Set(1)
	defer p.metrics.RunInProgress.Set(0)

	ids, err := p.source.ListObjectIDs(ctx)
	if err != nil {
		return sum, err
	}
	p.listed.Store(true)
	sum.ObjectIDs = len(ids)
	p.metrics.ObjectIDs.Add(float64(len(ids)))
	p.logger.Info("object ids listed", "count", len(ids))

	batches, err := p.fetchAll(ctx, ids)
	if err != nil {
		return sum, err
	}
	sum.Batches = len(batches)

	table := domain.Derive(domain.Concat(batches...), p.settings.Location)
	sum.Fetched = table.Len()
	p.logger.Info("batches concatenated", "batches", len(batches), "records", table.Len())
	if n := outsideBrazil(table); n > 0 {
		p.logger.Warn("positions outside Brazil", "records", n)
	}

	table = domain.Correct(table, p.rules, func(r domain.Rule, affected int) {
		sum.Corrections[r.Name] = affected
		p.metrics.Corrections.WithLabelValues(r.Name).Add(float64(affected))
		p.logger.Info("correction applied", "rule", r.Name, "affected", affected, "reason", r.Reason)
	})

	if err := p.writer.Write(ctx, table); err != nil {
		return sum, fmt.Errorf("write output: %w", err)
	}
	sum.Written = table.Len()
	p.metrics.RecordsWritten.Add(float64(table.Len()))

	sum.FinishedAt = clock.Now()
	p.metrics.RunDuration.Set(sum.FinishedAt.Sub(sum.StartedAt).Seconds())
	p.metrics.LastSuccessTime.Set(float64(sum.FinishedAt.Unix()))
	p.logger.Info("run complete", "records", sum.Written, "duration", sum.FinishedAt.Sub(sum.StartedAt))
	return sum, nil
}

// fetchAll fetches every chunk of ids sequentially, in order.
func (p *Pipeline) fetchAll(ctx context.Context, ids []domain.ObjectID) ([][]domain.Turbine, error) {
	chunks := Chunk(ids, p.settings.BatchSize)
	batches := make([][]domain.Turbine, 0, len(chunks))

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := clock.Now()
		batch, err := p.source.FetchBatch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("batch %d of %d: %w", i+1, len(chunks), err)
		}

		p.metrics.BatchesFetched.Inc()
		p.metrics.RecordsFetched.Add(float64(len(batch)))
		p.metrics.BatchSize.Observe(float64(len(batch)))
		p.metrics.BatchFetchDuration.Observe(clock.Since(start).Seconds())
		p.logger.Info("batch fetched", "batch", i+1, "of", len(chunks), "records", len(batch))

		batches = append(batches, batch)
	}
	return batches, nil
}

// outsideBrazil counts rows whose point geometry falls outside the country.
// Rows without geometry are not counted.
func outsideBrazil(t domain.Table) int {
	n := 0
	for _, r := range t.Rows {
		if r.Position != nil && !r.InBrazil() {
			n++
		}
	}
	return n
}

// Chunk splits ids into contiguous chunks of at most size elements, the last
// one possibly shorter. Returns nil when size is not positive.
func Chunk[T any](ids []T, size int) [][]T {
	if size <= 0 || len(ids) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}
