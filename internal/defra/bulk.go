package defra

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

// BulkFailure records a single failed document write.
type BulkFailure struct {
	Key string `json:"key"` // Identity key or docID of the failed document
	Err string `json:"error"`
}

// BulkResult accumulates the outcome of a bulk operation. Individual
// failures are collected rather than aborting the remaining writes; the
// caller decides whether the failure rate is acceptable.
type BulkResult struct {
	Succeeded int           `json:"succeeded"`
	Failures  []BulkFailure `json:"failures,omitempty"`
}

// Merge folds another result into this one.
func (r *BulkResult) Merge(other BulkResult) {
	r.Succeeded += other.Succeeded
	r.Failures = append(r.Failures, other.Failures...)
}

// BulkWriterConfig configures a BulkWriter.
type BulkWriterConfig struct {
	Client *Client
	// BatchSize is the number of concurrent writes per batch (default: 10).
	BatchSize int
	// BatchDelay is the pause between batches. This is backpressure against
	// the store's per-second write ceiling, not a correctness requirement.
	BatchDelay time.Duration
	// Attempts bounds per-document retries for transient errors (default: 3).
	Attempts uint
	Logger   *slog.Logger
}

// BulkWriter performs rate-limited batched writes against DefraDB.
type BulkWriter struct {
	client     *Client
	batchSize  int
	batchDelay time.Duration
	attempts   uint
	logger     *slog.Logger
}

// NewBulkWriter creates a BulkWriter with defaults applied.
func NewBulkWriter(cfg BulkWriterConfig) *BulkWriter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BulkWriter{
		client:     cfg.Client,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		attempts:   cfg.Attempts,
		logger:     cfg.Logger,
	}
}

// CreateAll inserts every document into the collection in concurrent batches
// of the configured size, pausing between batches. keyOf labels a document in
// the failure report (e.g. its identity key).
func (w *BulkWriter) CreateAll(ctx context.Context, collection string, docs []map[string]any, keyOf func(i int) string) BulkResult {
	var result BulkResult

	for start := 0; start < len(docs); start += w.batchSize {
		end := start + w.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		batch := w.runBatch(ctx, end-start, func(i int) error {
			_, err := w.client.Create(ctx, collection, docs[start+i])
			return err
		}, func(i int) string {
			return keyOf(start + i)
		})
		result.Merge(batch)

		w.logger.Debug("bulk create batch done",
			"collection", collection,
			"written", result.Succeeded,
			"failed", len(result.Failures),
			"total", len(docs))

		if end < len(docs) {
			w.pause(ctx)
		}
	}

	return result
}

// DeleteAll deletes the given document IDs in concurrent batches.
func (w *BulkWriter) DeleteAll(ctx context.Context, collection string, docIDs []string) BulkResult {
	var result BulkResult

	for start := 0; start < len(docIDs); start += w.batchSize {
		end := start + w.batchSize
		if end > len(docIDs) {
			end = len(docIDs)
		}

		batch := w.runBatch(ctx, end-start, func(i int) error {
			return w.client.Delete(ctx, collection, docIDs[start+i])
		}, func(i int) string {
			return docIDs[start+i]
		})
		result.Merge(batch)

		if end < len(docIDs) {
			w.pause(ctx)
		}
	}

	return result
}

// Clear deletes every document in the collection, page by page, and returns
// the number of documents removed alongside any per-document failures.
// The store limits both query response sizes and per-call mutations, so this
// is a scan-then-delete loop rather than a single truncate.
func (w *BulkWriter) Clear(ctx context.Context, collection string, pageSize int) (int, BulkResult) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	deleted := 0
	var result BulkResult

	for {
		resp, err := NewQuery(collection).Fields("_docID").Limit(pageSize).Execute(ctx, w.client)
		if err != nil {
			result.Failures = append(result.Failures, BulkFailure{Key: collection, Err: err.Error()})
			return deleted, result
		}
		if errMsg := resp.Error(); errMsg != "" {
			result.Failures = append(result.Failures, BulkFailure{Key: collection, Err: errMsg})
			return deleted, result
		}

		var ids []string
		for _, doc := range resp.Docs(collection) {
			if id, ok := doc["_docID"].(string); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return deleted, result
		}

		batch := w.DeleteAll(ctx, collection, ids)
		deleted += batch.Succeeded
		result.Merge(batch)

		// If nothing in the page could be deleted, stop rather than loop
		// on the same documents forever.
		if batch.Succeeded == 0 {
			return deleted, result
		}
	}
}

// runBatch executes n operations concurrently and collects failures.
// Each operation is retried a few times for transient store errors.
func (w *BulkWriter) runBatch(ctx context.Context, n int, op func(i int) error, keyOf func(i int) string) BulkResult {
	var (
		mu     sync.Mutex
		result BulkResult
		wg     sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			err := retry.Do(
				func() error { return op(i) },
				retry.Context(ctx),
				retry.Attempts(w.attempts),
				retry.Delay(200*time.Millisecond),
				retry.LastErrorOnly(true),
			)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, BulkFailure{Key: keyOf(i), Err: err.Error()})
				w.logger.Error("bulk write failed", "key", keyOf(i), "error", err)
				return
			}
			result.Succeeded++
		}(i)
	}

	wg.Wait()
	return result
}

// pause sleeps for the inter-batch delay, returning early on cancellation.
func (w *BulkWriter) pause(ctx context.Context) {
	if w.batchDelay <= 0 {
		return
	}
	select {
	case <-time.After(w.batchDelay):
	case <-ctx.Done():
	}
}
