package integrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kotoba-app/kotoba/internal/defra"
	"github.com/kotoba-app/kotoba/internal/history"
	"github.com/kotoba-app/kotoba/internal/reading"
)

// Actions accepted by Service.Run.
const (
	ActionRebuildAll       = "rebuild_all"
	ActionGetStats         = "get_stats"
	ActionSearch           = "search"
	ActionRepair           = "repair"
	ActionFixExampleRomaji = "fix_example_romaji"
)

// Config wires a Service.
type Config struct {
	Kind        Kind
	Store       *history.Store
	Client      *defra.Client
	Reading     *reading.Analyzer // optional; romaji fallback for fix_example_romaji
	PageSize    int
	BatchSize   int
	BatchDelay  time.Duration
	MaxExamples int
	Logger      *slog.Logger
}

// Service is the integration pipeline's entry point for one aggregate kind.
// Every action returns a structured result with a success flag; errors are
// folded into the result rather than returned, since callers are typically
// UIs or debug consoles with no error-handling context.
type Service struct {
	kind     Kind
	store    *history.Store
	client   *defra.Client
	pager    *defra.Pager
	writer   *SinkWriter
	deduper  *Deduper
	reading  *reading.Analyzer
	pageSize int
	logger   *slog.Logger
}

// NewService creates a Service with defaults applied.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defra.DefaultPageSize
	}
	return &Service{
		kind:   cfg.Kind,
		store:  cfg.Store,
		client: cfg.Client,
		pager:  defra.NewPager(cfg.Client, cfg.PageSize),
		writer: NewSinkWriter(SinkWriterConfig{
			Client:      cfg.Client,
			BatchSize:   cfg.BatchSize,
			BatchDelay:  cfg.BatchDelay,
			PageSize:    cfg.PageSize,
			MaxExamples: cfg.MaxExamples,
			Logger:      cfg.Logger,
		}),
		deduper: NewDeduper(DeduperConfig{
			Client:      cfg.Client,
			PageSize:    cfg.PageSize,
			MaxExamples: cfg.MaxExamples,
			Logger:      cfg.Logger,
		}),
		reading:  cfg.Reading,
		pageSize: cfg.PageSize,
		logger:   cfg.Logger,
	}
}

// Kind returns the aggregate kind this service operates on.
func (s *Service) Kind() Kind {
	return s.kind
}

// Request is the action envelope accepted by Run.
type Request struct {
	Action   string `json:"action"`
	Keyword  string `json:"keyword,omitempty"`
	Category string `json:"category,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
	OrderBy  string `json:"orderBy,omitempty"`
	Order    string `json:"order,omitempty"`
}

// ErrorResult is the failure envelope for any action.
type ErrorResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RebuildResult reports a full rebuild.
type RebuildResult struct {
	Success            bool                `json:"success"`
	TotalWords         int                 `json:"totalWords,omitempty"`
	TotalStructures    int                 `json:"totalStructures,omitempty"`
	ProcessedRecords   int                 `json:"processedRecords"`
	ProcessedSentences int                 `json:"processedSentences"`
	SkippedRecords     int                 `json:"skippedRecords,omitempty"`
	Failures           []defra.BulkFailure `json:"failures,omitempty"`
	Message            string              `json:"message"`
}

// Stats is the aggregate breakdown returned by get_stats.
type Stats struct {
	Total      int            `json:"total"`
	Mastered   int            `json:"mastered"`
	Unmastered int            `json:"unmastered"`
	Categories map[string]int `json:"categories"`
}

// StatsResult wraps Stats with the success flag.
type StatsResult struct {
	Success bool  `json:"success"`
	Stats   Stats `json:"stats"`
}

// SearchResult is one page of sink documents.
type SearchResult struct {
	Success    bool             `json:"success"`
	Data       []map[string]any `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// RepairResult reports an in-place deduplication pass.
type RepairResult struct {
	Success bool `json:"success"`
	DedupeReport
	Message string `json:"message"`
}

// FixResult reports a fix_example_romaji pass.
type FixResult struct {
	Success        bool                `json:"success"`
	TotalProcessed int                 `json:"totalProcessed"`
	ExamplesFixed  int                 `json:"examplesFixed"`
	RecordsUpdated int                 `json:"recordsUpdated"`
	Failures       []defra.BulkFailure `json:"failures,omitempty"`
}

// Run dispatches one action and returns its structured result. The concrete
// type depends on the action; every result carries a success flag.
func (s *Service) Run(ctx context.Context, req Request) any {
	switch req.Action {
	case ActionRebuildAll:
		return s.RebuildAll(ctx)
	case ActionGetStats:
		return s.GetStats(ctx)
	case ActionSearch:
		return s.Search(ctx, req)
	case ActionRepair:
		return s.Repair(ctx)
	case ActionFixExampleRomaji:
		if s.kind != KindVocabulary {
			return ErrorResult{Error: fmt.Sprintf("action %s only applies to vocabulary", req.Action)}
		}
		return s.FixExampleRomaji(ctx)
	default:
		return ErrorResult{Error: fmt.Sprintf("unknown action: %q", req.Action)}
	}
}

// RebuildAll runs extraction, aggregation, and a clear+insert of the sink.
// Not safe to run concurrently with itself or Repair on the same sink.
func (s *Service) RebuildAll(ctx context.Context) any {
	aggregator := NewAggregator(s.kind)
	extractor := NewExtractor(s.store, s.logger)

	stats, err := extractor.Extract(ctx, func(t Tuple) error {
		aggregator.Add(t)
		return nil
	})
	if err != nil {
		return ErrorResult{Error: fmt.Sprintf("extraction failed: %v", err)}
	}

	report := s.writer.Rebuild(ctx, s.kind, aggregator.Aggregates())

	result := RebuildResult{
		Success:            true,
		ProcessedRecords:   stats.Records,
		ProcessedSentences: stats.Sentences,
		SkippedRecords:     stats.Skipped,
		Failures:           report.Failures,
		Message: fmt.Sprintf("rebuilt %s: %d aggregates from %d records",
			s.kind.Collection(), report.Inserted, stats.Records),
	}
	if s.kind == KindStructure {
		result.TotalStructures = report.Inserted
	} else {
		result.TotalWords = report.Inserted
	}
	return result
}

// GetStats computes total/mastered/unmastered counts and the per-category
// breakdown with a single scan over the sink.
func (s *Service) GetStats(ctx context.Context) any {
	stats := Stats{Categories: make(map[string]int)}

	_, err := s.pager.Scan(ctx, s.kind.Collection(), []string{"_docID", "category", "occurrences"}, func(docs []map[string]any) error {
		for _, doc := range docs {
			stats.Total++
			if intField(doc, "occurrences") >= MasteredThreshold {
				stats.Mastered++
			}
			if category := str(doc, "category"); category != "" {
				stats.Categories[category]++
			}
		}
		return nil
	})
	if err != nil {
		return ErrorResult{Error: fmt.Sprintf("stats scan failed: %v", err)}
	}

	stats.Unmastered = stats.Total - stats.Mastered
	return StatsResult{Success: true, Stats: stats}
}

// searchOrderFields are the fields callers may sort by.
var searchOrderFields = map[string]bool{
	"occurrences": true,
	"first_seen":  true,
	"last_seen":   true,
	"updated_at":  true,
	"difficulty":  true,
	"word":        true,
	"structure":   true,
}

// Search returns one page of sink documents matching the keyword/category
// filters, with embedded JSON fields decoded for the caller.
func (s *Service) Search(ctx context.Context, req Request) any {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	orderBy := req.OrderBy
	if !searchOrderFields[orderBy] {
		orderBy = "last_seen"
	}
	order := strings.ToUpper(req.Order)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	filtered := func() *defra.QueryBuilder {
		q := defra.NewQuery(s.kind.Collection())
		if req.Keyword != "" {
			q.FilterLike(s.kind.KeyField(), "%"+req.Keyword+"%")
		}
		if req.Category != "" {
			q.Filter("category", req.Category)
		}
		return q
	}

	total, err := s.countMatching(ctx, filtered)
	if err != nil {
		return ErrorResult{Error: fmt.Sprintf("search count failed: %v", err)}
	}

	q := filtered().
		Fields(FieldsFor(s.kind)...).
		OrderBy(orderBy, order).
		Limit(pageSize).
		Offset((page - 1) * pageSize)

	resp, err := q.Execute(ctx, s.client)
	if err != nil {
		return ErrorResult{Error: fmt.Sprintf("search failed: %v", err)}
	}
	if errMsg := resp.Error(); errMsg != "" {
		return ErrorResult{Error: fmt.Sprintf("search failed: %s", errMsg)}
	}

	data := make([]map[string]any, 0, pageSize)
	for _, doc := range resp.Docs(s.kind.Collection()) {
		data = append(data, decodeSearchRow(doc))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return SearchResult{
		Success:    true,
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// countMatching counts documents matching a filtered query by paging
// through _docIDs, since the store offers no aggregate count here.
func (s *Service) countMatching(ctx context.Context, build func() *defra.QueryBuilder) (int, error) {
	total := 0
	offset := 0
	for {
		q := build().Fields("_docID").Limit(s.pageSize)
		if offset > 0 {
			q.Offset(offset)
		}
		resp, err := q.Execute(ctx, s.client)
		if err != nil {
			return total, err
		}
		if errMsg := resp.Error(); errMsg != "" {
			return total, fmt.Errorf("%s", errMsg)
		}
		n := len(resp.Docs(s.kind.Collection()))
		total += n
		if n < s.pageSize {
			return total, nil
		}
		offset += s.pageSize
	}
}

// decodeSearchRow replaces the embedded JSON-string fields with their
// decoded values so API consumers get real arrays.
func decodeSearchRow(doc map[string]any) map[string]any {
	row := make(map[string]any, len(doc))
	for k, v := range doc {
		row[k] = v
	}

	if raw := str(row, "examples_json"); raw != "" {
		var examples []Example
		if err := jsonUnmarshal(raw, &examples); err == nil {
			row["examples"] = examples
			delete(row, "examples_json")
		}
	}
	if raw := str(row, "sources_json"); raw != "" {
		var sources []string
		if err := jsonUnmarshal(raw, &sources); err == nil {
			row["sources"] = sources
			delete(row, "sources_json")
		}
	}
	return row
}

// Repair runs the in-place deduplication pass against the sink.
func (s *Service) Repair(ctx context.Context) any {
	report, err := s.deduper.Run(ctx, s.kind)
	if err != nil {
		return ErrorResult{Error: fmt.Sprintf("repair failed: %v", err)}
	}
	return RepairResult{
		Success:      true,
		DedupeReport: report,
		Message: fmt.Sprintf("repaired %s: %d groups merged, %d documents deleted",
			s.kind.Collection(), report.Merged, report.Deleted),
	}
}

// FixExampleRomaji backfills missing example transliterations. Each
// missing romaji is looked up by exact original-text match against the
// parse-history sentences; when no record matches and a reading analyzer
// is available, the romaji is derived morphologically instead. Safe to
// re-run.
func (s *Service) FixExampleRomaji(ctx context.Context) any {
	index, err := s.buildRomajiIndex(ctx)
	if err != nil {
		return ErrorResult{Error: fmt.Sprintf("index build failed: %v", err)}
	}

	result := FixResult{Success: true}
	var updates []romajiUpdate

	_, err = s.pager.Scan(ctx, VocabularyCollection, vocabularyFields, func(docs []map[string]any) error {
		for _, doc := range docs {
			result.TotalProcessed++
			agg, err := AggregateFromDoc(KindVocabulary, doc)
			if err != nil {
				result.Failures = append(result.Failures, defra.BulkFailure{
					Key: str(doc, "_docID"), Err: err.Error(),
				})
				continue
			}

			fixed := 0
			for i := range agg.Examples {
				if agg.Examples[i].Romaji != "" {
					continue
				}
				romaji := index[agg.Examples[i].Sentence]
				if romaji == "" && s.reading != nil {
					romaji = s.reading.Romaji(agg.Examples[i].Sentence)
				}
				if romaji != "" {
					agg.Examples[i].Romaji = romaji
					fixed++
				}
			}
			if fixed > 0 {
				updates = append(updates, romajiUpdate{agg: agg, fixed: fixed})
			}
		}
		return nil
	})
	if err != nil {
		return ErrorResult{Error: fmt.Sprintf("vocabulary scan failed: %v", err)}
	}

	// Writes happen after the scan so the pagination window is stable.
	now := time.Now().UTC()
	for _, u := range updates {
		doc, err := u.agg.ToDoc(KindVocabulary, 0, now)
		if err != nil {
			result.Failures = append(result.Failures, defra.BulkFailure{Key: u.agg.Key, Err: err.Error()})
			continue
		}
		if err := s.client.Update(ctx, VocabularyCollection, u.agg.DocID, doc); err != nil {
			result.Failures = append(result.Failures, defra.BulkFailure{Key: u.agg.Key, Err: err.Error()})
			continue
		}
		result.ExamplesFixed += u.fixed
		result.RecordsUpdated++
	}

	s.logger.Info("example romaji fix complete",
		"processed", result.TotalProcessed,
		"fixed", result.ExamplesFixed,
		"updated", result.RecordsUpdated,
		"failed", len(result.Failures))
	return result
}

type romajiUpdate struct {
	agg   *Aggregate
	fixed int
}

// buildRomajiIndex maps sentence original text to the first non-empty
// romaji seen for it across all parse records.
func (s *Service) buildRomajiIndex(ctx context.Context) (map[string]string, error) {
	index := make(map[string]string)
	_, _, err := s.store.Scan(ctx, func(rec history.ParseRecord) error {
		for _, sentence := range rec.Sentences {
			if sentence.Original == "" || sentence.Romaji == "" {
				continue
			}
			if _, ok := index[sentence.Original]; !ok {
				index[sentence.Original] = sentence.Romaji
			}
		}
		return nil
	})
	return index, err
}
