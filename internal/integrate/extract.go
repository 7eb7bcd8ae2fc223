package integrate

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kotoba-app/kotoba/internal/history"
)

// Fragment length bounds for grammar/analysis splitting, in runes.
const (
	minFragmentLen = 2
	maxFragmentLen = 150
)

// failureSentinels are placeholder strings the analyzer emits when it could
// not parse a sentence. Structures matching one are never aggregated.
var failureSentinels = []string{"解析失败", "processing failed"}

// Tuple is one extracted (kind, key, example) triple with its provenance.
type Tuple struct {
	Kind          Kind
	Key           string
	StructureType string // structure tuples only
	Romaji        string // vocabulary tuples only
	Meaning       string // vocabulary tuples only
	Example       Example
	RecordID      string
	RecordTime    time.Time
}

// ExtractStats reports what one full extraction pass covered.
type ExtractStats struct {
	Records   int // decodable records visited
	Skipped   int // malformed records skipped
	Sentences int // sentences walked
}

// Extractor walks the parse-history collection and emits tuples for every
// usable vocabulary mention and structure annotation. Read-only; pagination
// and malformed-record skipping are inherited from the history store.
type Extractor struct {
	store  *history.Store
	logger *slog.Logger
}

// NewExtractor creates an Extractor over the given history store.
func NewExtractor(store *history.Store, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{store: store, logger: logger}
}

// Extract runs a full pass, invoking fn for each tuple. A non-nil error
// from fn aborts the pass.
func (e *Extractor) Extract(ctx context.Context, fn func(Tuple) error) (ExtractStats, error) {
	var stats ExtractStats

	visited, skipped, err := e.store.Scan(ctx, func(rec history.ParseRecord) error {
		for i, sentence := range rec.Sentences {
			stats.Sentences++
			if err := e.emitSentence(rec, i, sentence, fn); err != nil {
				return err
			}
		}
		return nil
	})
	stats.Records = visited
	stats.Skipped = skipped

	if err != nil {
		return stats, err
	}

	e.logger.Info("extraction pass complete",
		"records", stats.Records,
		"skipped", stats.Skipped,
		"sentences", stats.Sentences)
	return stats, nil
}

func (e *Extractor) emitSentence(rec history.ParseRecord, index int, s history.Sentence, fn func(Tuple) error) error {
	example := Example{
		Sentence:      s.Original,
		Romaji:        s.Romaji,
		Translation:   s.Translation,
		Source:        sourceLabel(rec),
		RecordID:      rec.DocID,
		SentenceIndex: index,
	}

	for _, mention := range s.Vocabulary {
		if !mention.Complete() {
			continue
		}
		if err := fn(Tuple{
			Kind:       KindVocabulary,
			Key:        strings.TrimSpace(mention.Word),
			Romaji:     strings.TrimSpace(mention.Romaji),
			Meaning:    strings.TrimSpace(mention.Meaning),
			Example:    example,
			RecordID:   rec.DocID,
			RecordTime: rec.CreatedAt,
		}); err != nil {
			return err
		}
	}

	if structure := strings.TrimSpace(s.Structure); usableStructure(structure) {
		if err := fn(Tuple{
			Kind:          KindStructure,
			Key:           structure,
			StructureType: TypeSentenceStructure,
			Example:       example,
			RecordID:      rec.DocID,
			RecordTime:    rec.CreatedAt,
		}); err != nil {
			return err
		}
	}

	for _, fragment := range SplitFragments(s.Grammar) {
		if err := fn(Tuple{
			Kind:          KindStructure,
			Key:           fragment,
			StructureType: TypeGrammarPoint,
			Example:       example,
			RecordID:      rec.DocID,
			RecordTime:    rec.CreatedAt,
		}); err != nil {
			return err
		}
	}
	for _, fragment := range SplitFragments(s.Analysis) {
		if err := fn(Tuple{
			Kind:          KindStructure,
			Key:           fragment,
			StructureType: TypeAnalysisPoint,
			Example:       example,
			RecordID:      rec.DocID,
			RecordTime:    rec.CreatedAt,
		}); err != nil {
			return err
		}
	}

	return nil
}

// usableStructure reports whether a trimmed structure label should be
// aggregated: longer than 2 runes and not a failure placeholder.
func usableStructure(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	return !isFailureSentinel(s)
}

func isFailureSentinel(s string) bool {
	lowered := strings.ToLower(s)
	for _, sentinel := range failureSentinels {
		if strings.Contains(lowered, sentinel) {
			return true
		}
	}
	return false
}

// fragmentDelimiters end a grammar/analysis fragment: sentence-ending
// punctuation, list bullets, and line breaks.
const fragmentDelimiters = "。．！？!?;；\n・•"

// SplitFragments splits free grammar/analysis text into short fragments,
// keeping those between 2 and 150 runes after trimming. Failure sentinels
// and leading bullet dashes are dropped.
func SplitFragments(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(fragmentDelimiters, r)
	})

	var fragments []string
	for _, part := range parts {
		fragment := strings.TrimSpace(part)
		fragment = strings.TrimLeft(fragment, "-*– ")
		n := utf8.RuneCountInString(fragment)
		if n < minFragmentLen || n > maxFragmentLen {
			continue
		}
		if isFailureSentinel(fragment) {
			continue
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}

// sourceLabel derives the human-readable source tag stored on examples.
func sourceLabel(rec history.ParseRecord) string {
	if rec.Source != "" {
		return rec.Source
	}
	return "history"
}
