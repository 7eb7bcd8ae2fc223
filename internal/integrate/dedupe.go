package integrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kotoba-app/kotoba/internal/defra"
)

// Deduper repairs a sink collection in place: documents sharing an identity
// key (left behind by racing or interrupted rebuilds) are merged into one
// canonical document and the extras are deleted. Idempotent - a second run
// over a clean collection finds zero groups.
type Deduper struct {
	client      *defra.Client
	pager       *defra.Pager
	maxExamples int
	logger      *slog.Logger
}

// DeduperConfig configures a Deduper.
type DeduperConfig struct {
	Client      *defra.Client
	PageSize    int
	MaxExamples int
	Logger      *slog.Logger
}

// DedupeReport is the outcome of one repair pass.
type DedupeReport struct {
	Scanned  int                 `json:"scanned"`
	Groups   int                 `json:"groups"`  // duplicate groups found
	Merged   int                 `json:"merged"`  // groups successfully merged
	Deleted  int                 `json:"deleted"` // non-canonical documents removed
	Failures []defra.BulkFailure `json:"failures,omitempty"`
}

// NewDeduper creates a Deduper with defaults applied.
func NewDeduper(cfg DeduperConfig) *Deduper {
	if cfg.MaxExamples <= 0 {
		cfg.MaxExamples = DefaultMaxExamples
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Deduper{
		client:      cfg.Client,
		pager:       defra.NewPager(cfg.Client, cfg.PageSize),
		maxExamples: cfg.MaxExamples,
		logger:      cfg.Logger,
	}
}

// Run performs one full repair pass over the sink collection for kind.
// A failure merging one group is recorded and the pass continues.
func (d *Deduper) Run(ctx context.Context, kind Kind) (DedupeReport, error) {
	var report DedupeReport
	collection := kind.Collection()

	groups := make(map[string][]*Aggregate)
	var order []string

	_, err := d.pager.Scan(ctx, collection, FieldsFor(kind), func(docs []map[string]any) error {
		for _, doc := range docs {
			report.Scanned++
			agg, err := AggregateFromDoc(kind, doc)
			if err != nil {
				report.Failures = append(report.Failures, defra.BulkFailure{
					Key: str(doc, "_docID"), Err: err.Error(),
				})
				continue
			}
			key := strings.TrimSpace(agg.Key)
			if key == "" {
				continue
			}
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], agg)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("scan %s: %w", collection, err)
	}

	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		report.Groups++

		canonical, extras := pickCanonical(group)
		merged := mergeGroup(canonical, extras)

		if err := d.applyMerge(ctx, kind, canonical.DocID, merged, extras); err != nil {
			report.Failures = append(report.Failures, defra.BulkFailure{Key: key, Err: err.Error()})
			d.logger.Error("dedupe group failed", "collection", collection, "key", key, "error", err)
			continue
		}

		report.Merged++
		report.Deleted += len(extras)
		d.logger.Info("merged duplicate group",
			"collection", collection,
			"key", key,
			"docs", len(group),
			"examples", len(merged.Examples))
	}

	d.logger.Info("dedupe pass complete",
		"collection", collection,
		"scanned", report.Scanned,
		"groups", report.Groups,
		"merged", report.Merged,
		"deleted", report.Deleted,
		"failed", len(report.Failures))
	return report, nil
}

// pickCanonical selects the survivor: most examples, then earliest
// first_seen, then lowest docID so the choice is deterministic.
func pickCanonical(group []*Aggregate) (*Aggregate, []*Aggregate) {
	sorted := make([]*Aggregate, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if len(a.Examples) != len(b.Examples) {
			return len(a.Examples) > len(b.Examples)
		}
		if !a.FirstSeen.Equal(b.FirstSeen) {
			return a.FirstSeen.Before(b.FirstSeen)
		}
		return a.DocID < b.DocID
	})
	return sorted[0], sorted[1:]
}

// mergeGroup unions a duplicate group into the canonical aggregate's shape:
// examples deduplicated by content pair (canonical's first), sources kept
// parallel, timestamps widened.
func mergeGroup(canonical *Aggregate, extras []*Aggregate) *Aggregate {
	merged := *canonical
	merged.Examples = nil
	merged.Sources = nil

	seen := make(map[string]bool)
	appendExamples := func(agg *Aggregate) {
		for i, ex := range agg.Examples {
			ck := ex.ContentKey()
			if seen[ck] {
				continue
			}
			seen[ck] = true
			merged.Examples = append(merged.Examples, ex)
			if i < len(agg.Sources) {
				merged.Sources = append(merged.Sources, agg.Sources[i])
			} else {
				merged.Sources = append(merged.Sources, ex.RecordID)
			}
		}
	}

	appendExamples(canonical)
	for _, extra := range extras {
		appendExamples(extra)

		if !extra.FirstSeen.IsZero() && (merged.FirstSeen.IsZero() || extra.FirstSeen.Before(merged.FirstSeen)) {
			merged.FirstSeen = extra.FirstSeen
		}
		if extra.LastSeen.After(merged.LastSeen) {
			merged.LastSeen = extra.LastSeen
		}
		if merged.Romaji == "" {
			merged.Romaji = extra.Romaji
		}
		if merged.Meaning == "" {
			merged.Meaning = extra.Meaning
		}
	}

	merged.Occurrences = len(merged.Examples)
	return &merged
}

// applyMerge writes the merged aggregate over the canonical document and
// deletes the extras. Not transactional; a failure part-way leaves the
// group for the next repair run.
func (d *Deduper) applyMerge(ctx context.Context, kind Kind, docID string, merged *Aggregate, extras []*Aggregate) error {
	doc, err := merged.ToDoc(kind, d.maxExamples, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := d.client.Update(ctx, kind.Collection(), docID, doc); err != nil {
		return fmt.Errorf("update canonical %s: %w", docID, err)
	}

	for _, extra := range extras {
		if err := d.client.Delete(ctx, kind.Collection(), extra.DocID); err != nil {
			return fmt.Errorf("delete duplicate %s: %w", extra.DocID, err)
		}
	}
	return nil
}
