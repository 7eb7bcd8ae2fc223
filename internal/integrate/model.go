// Package integrate implements the vocabulary and sentence-structure
// integration pipeline: extraction from parse-history records, key-based
// aggregation, batched sink writes, and in-place deduplication repair of
// the aggregate collections.
package integrate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sink collections.
const (
	VocabularyCollection = "VocabularyIntegrated"
	StructureCollection  = "StructureIntegrated"
)

// Structure tuple types. Explicit structure labels are tagged differently
// from fragments split out of grammar and analysis free text.
const (
	TypeSentenceStructure = "sentence_structure"
	TypeGrammarPoint      = "grammar_point"
	TypeAnalysisPoint     = "analysis_point"
)

const (
	// DefaultMaxExamples bounds the example array written per document.
	// Lossy on purpose: document size is traded for history completeness.
	DefaultMaxExamples = 5

	// MasteredThreshold is the occurrence count at which an aggregate
	// counts as mastered in stats.
	MasteredThreshold = 3
)

// Kind selects which aggregate family a pipeline instance operates on.
type Kind string

const (
	KindVocabulary Kind = "vocabulary"
	KindStructure  Kind = "structure"
)

// Collection returns the sink collection for this kind.
func (k Kind) Collection() string {
	if k == KindStructure {
		return StructureCollection
	}
	return VocabularyCollection
}

// KeyField returns the identity-key field name in the sink collection.
func (k Kind) KeyField() string {
	if k == KindStructure {
		return "structure"
	}
	return "word"
}

// Example is one deduplicated example sentence carried by an aggregate.
type Example struct {
	Sentence      string `json:"sentence"`
	Romaji        string `json:"romaji,omitempty"`
	Translation   string `json:"translation"`
	Source        string `json:"source,omitempty"`
	RecordID      string `json:"record_id,omitempty"`
	SentenceIndex int    `json:"sentence_index"`
}

// ContentKey is the dedup key for examples: the original-text/translation
// pair. Two examples with the same pair are the same example regardless of
// which record they came from.
func (e Example) ContentKey() string {
	return e.Sentence + "\x1f" + e.Translation
}

// Aggregate is one cross-record summary of a vocabulary word or grammar
// structure. Key is the surface form (vocabulary) or trimmed structure
// text (structure). Sources runs parallel to Examples: entry i is the
// record that contributed example i.
type Aggregate struct {
	DocID string
	Key   string

	// Vocabulary fields.
	Romaji  string
	Meaning string

	// Structure fields.
	StructureType string
	Difficulty    int

	Category    string
	Examples    []Example
	Sources     []string
	Occurrences int
	FirstSeen   time.Time
	LastSeen    time.Time
}

// vocabularyFields and structureFields are the sink fields fetched per kind.
var (
	vocabularyFields = []string{"_docID", "word", "romaji", "meaning", "category",
		"occurrences", "examples_json", "sources_json", "first_seen", "last_seen", "updated_at"}
	structureFields = []string{"_docID", "structure", "structure_type", "category", "difficulty",
		"occurrences", "examples_json", "sources_json", "first_seen", "last_seen", "updated_at"}
)

// FieldsFor returns the sink collection fields for a kind.
func FieldsFor(kind Kind) []string {
	if kind == KindStructure {
		return structureFields
	}
	return vocabularyFields
}

// ToDoc converts an aggregate to its stored document shape, capping the
// example and source arrays at maxExamples. Occurrences is recomputed from
// the capped array so the count/length invariant holds for what is stored.
func (a *Aggregate) ToDoc(kind Kind, maxExamples int, now time.Time) (map[string]any, error) {
	examples := a.Examples
	sources := a.Sources
	if maxExamples > 0 && len(examples) > maxExamples {
		examples = examples[:maxExamples]
		if len(sources) > maxExamples {
			sources = sources[:maxExamples]
		}
	}
	if examples == nil {
		examples = []Example{}
	}
	if sources == nil {
		sources = []string{}
	}

	examplesBlob, err := json.Marshal(examples)
	if err != nil {
		return nil, fmt.Errorf("marshal examples: %w", err)
	}
	sourcesBlob, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}

	doc := map[string]any{
		"category":      a.Category,
		"occurrences":   len(examples),
		"examples_json": string(examplesBlob),
		"sources_json":  string(sourcesBlob),
		"first_seen":    a.FirstSeen.Format(time.RFC3339),
		"last_seen":     a.LastSeen.Format(time.RFC3339),
		"updated_at":    now.Format(time.RFC3339),
	}

	if kind == KindStructure {
		doc["structure"] = a.Key
		doc["structure_type"] = a.StructureType
		doc["difficulty"] = a.Difficulty
	} else {
		doc["word"] = a.Key
		doc["romaji"] = a.Romaji
		doc["meaning"] = a.Meaning
	}
	return doc, nil
}

// AggregateFromDoc decodes a stored sink document. Undecodable embedded
// JSON is an error; the caller decides whether to skip the document.
func AggregateFromDoc(kind Kind, doc map[string]any) (*Aggregate, error) {
	agg := &Aggregate{
		DocID:    str(doc, "_docID"),
		Category: str(doc, "category"),
	}

	if kind == KindStructure {
		agg.Key = str(doc, "structure")
		agg.StructureType = str(doc, "structure_type")
		agg.Difficulty = intField(doc, "difficulty")
	} else {
		agg.Key = str(doc, "word")
		agg.Romaji = str(doc, "romaji")
		agg.Meaning = str(doc, "meaning")
	}

	agg.Occurrences = intField(doc, "occurrences")

	if raw := str(doc, "examples_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &agg.Examples); err != nil {
			return nil, fmt.Errorf("document %s: bad examples_json: %w", agg.DocID, err)
		}
	}
	if raw := str(doc, "sources_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &agg.Sources); err != nil {
			return nil, fmt.Errorf("document %s: bad sources_json: %w", agg.DocID, err)
		}
	}

	if raw := str(doc, "first_seen"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			agg.FirstSeen = t
		}
	}
	if raw := str(doc, "last_seen"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			agg.LastSeen = t
		}
	}

	return agg, nil
}

func jsonUnmarshal(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}

func str(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func intField(doc map[string]any, key string) int {
	switch n := doc[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
