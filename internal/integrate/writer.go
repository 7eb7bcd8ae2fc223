package integrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/kotoba-app/kotoba/internal/defra"
)

// SinkWriterConfig configures a SinkWriter.
type SinkWriterConfig struct {
	Client *defra.Client
	// BatchSize is the concurrent writes per batch (default 10).
	BatchSize int
	// BatchDelay is the pause between write batches.
	BatchDelay time.Duration
	// PageSize for the paginated clear (default 100).
	PageSize int
	// MaxExamples caps the example array per document (default 5).
	MaxExamples int
	Logger      *slog.Logger
}

// SinkWriter materializes an aggregation result into a sink collection:
// clear everything, then insert every aggregate in rate-limited batches.
type SinkWriter struct {
	bulk        *defra.BulkWriter
	pageSize    int
	maxExamples int
	logger      *slog.Logger
}

// RebuildReport is the outcome of one clear+insert run. Per-document
// insert failures are collected, not fatal.
type RebuildReport struct {
	Cleared  int
	Inserted int
	Failures []defra.BulkFailure
}

// NewSinkWriter creates a SinkWriter with defaults applied.
func NewSinkWriter(cfg SinkWriterConfig) *SinkWriter {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defra.DefaultPageSize
	}
	if cfg.MaxExamples <= 0 {
		cfg.MaxExamples = DefaultMaxExamples
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SinkWriter{
		bulk: defra.NewBulkWriter(defra.BulkWriterConfig{
			Client:     cfg.Client,
			BatchSize:  cfg.BatchSize,
			BatchDelay: cfg.BatchDelay,
			Logger:     cfg.Logger,
		}),
		pageSize:    cfg.PageSize,
		maxExamples: cfg.MaxExamples,
		logger:      cfg.Logger,
	}
}

// MaxExamples returns the configured per-document example cap.
func (w *SinkWriter) MaxExamples() int {
	return w.maxExamples
}

// Rebuild clears the sink collection for kind and inserts every aggregate.
// Aggregates that cannot be encoded are reported as failures alongside
// insert failures; neither aborts the run.
func (w *SinkWriter) Rebuild(ctx context.Context, kind Kind, aggs []*Aggregate) RebuildReport {
	collection := kind.Collection()
	now := time.Now().UTC()

	cleared, clearResult := w.bulk.Clear(ctx, collection, w.pageSize)
	report := RebuildReport{Cleared: cleared, Failures: clearResult.Failures}

	w.logger.Info("sink cleared", "collection", collection, "deleted", cleared, "failed", len(clearResult.Failures))

	var docs []map[string]any
	var keys []string
	for _, agg := range aggs {
		doc, err := agg.ToDoc(kind, w.maxExamples, now)
		if err != nil {
			report.Failures = append(report.Failures, defra.BulkFailure{Key: agg.Key, Err: err.Error()})
			continue
		}
		docs = append(docs, doc)
		keys = append(keys, agg.Key)
	}

	insertResult := w.bulk.CreateAll(ctx, collection, docs, func(i int) string { return keys[i] })
	report.Inserted = insertResult.Succeeded
	report.Failures = append(report.Failures, insertResult.Failures...)

	w.logger.Info("sink rebuilt",
		"collection", collection,
		"inserted", report.Inserted,
		"failed", len(report.Failures))
	return report
}
