// Package ingest turns submitted text, images, and PDF scans into stored
// parse-history records via the analyzer.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kotoba-app/kotoba/internal/analyze"
	"github.com/kotoba-app/kotoba/internal/history"
)

// Ingestor runs analysis on submitted input and persists the outcome.
type Ingestor struct {
	analyzer analyze.Analyzer
	store    *history.Store
	logger   *slog.Logger
}

// New creates an Ingestor.
func New(analyzer analyze.Analyzer, store *history.Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{analyzer: analyzer, store: store, logger: logger}
}

// Result describes one stored parse record.
type Result struct {
	RecordID  string `json:"recordId"`
	Status    string `json:"status"`
	Sentences int    `json:"sentences"`
	Error     string `json:"error,omitempty"`
}

// Text analyzes raw text and stores a parse record. Analysis failures are
// recorded too, with a failed status, so the history shows every attempt.
func (in *Ingestor) Text(ctx context.Context, owner, source, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("no text provided")
	}
	return in.run(ctx, owner, source, text, &analyze.Request{Text: text})
}

// Image analyzes a page image and stores a parse record.
func (in *Ingestor) Image(ctx context.Context, owner, source, label string, data []byte, mime string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}
	return in.run(ctx, owner, source, label, &analyze.Request{Image: data, ImageMIME: mime})
}

func (in *Ingestor) run(ctx context.Context, owner, source, userInput string, req *analyze.Request) (*Result, error) {
	req.RequestID = uuid.NewString()
	rec := history.ParseRecord{
		Owner:     owner,
		UserInput: userInput,
		Source:    source,
		Status:    history.StatusCompleted,
		CreatedAt: time.Now().UTC(),
	}

	result, err := in.analyzer.Analyze(ctx, req)
	if err != nil {
		in.logger.Warn("analysis failed", "request_id", req.RequestID, "source", source, "error", err)
		rec.Status = history.StatusFailed
	} else {
		rec.Sentences = result.Sentences
	}

	docID, createErr := in.store.Create(ctx, rec)
	if createErr != nil {
		return nil, fmt.Errorf("store parse record: %w", createErr)
	}

	out := &Result{
		RecordID:  docID,
		Status:    rec.Status,
		Sentences: len(rec.Sentences),
	}
	if err != nil {
		out.Error = err.Error()
	}
	in.logger.Info("ingested input",
		"record_id", docID,
		"status", rec.Status,
		"sentences", len(rec.Sentences))
	return out, nil
}
