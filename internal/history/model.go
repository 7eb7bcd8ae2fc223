// Package history models parse-history records: one user-submitted text or
// image analysis, broken into sentences with embedded vocabulary and grammar
// annotations. Records are produced by the analyzer and read by the
// integration pipeline.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collection is the DefraDB collection holding parse records.
const Collection = "ParseRecord"

// Record status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrMalformed marks a record whose stored shape cannot be decoded.
// Callers treat it as a per-record skip, not a fatal scan error.
var ErrMalformed = errors.New("malformed record")

// VocabularyMention is one word called out inside a sentence.
// It is not independently addressable - it exists only inside a Sentence.
type VocabularyMention struct {
	Word    string `json:"word"`
	Romaji  string `json:"romaji"`
	Meaning string `json:"meaning"`
}

// Complete reports whether all three fields are present and non-empty.
// Incomplete mentions are ignored by the integration pipeline.
func (m VocabularyMention) Complete() bool {
	return strings.TrimSpace(m.Word) != "" &&
		strings.TrimSpace(m.Romaji) != "" &&
		strings.TrimSpace(m.Meaning) != ""
}

// Sentence is one analyzed sentence within a record.
type Sentence struct {
	Original    string              `json:"original"`
	Romaji      string              `json:"romaji"`
	Translation string              `json:"translation"`
	Structure   string              `json:"structure,omitempty"`
	Grammar     string              `json:"grammar,omitempty"`
	Analysis    string              `json:"analysis,omitempty"`
	Vocabulary  []VocabularyMention `json:"vocabulary,omitempty"`
}

// ParseRecord is one analysis result with its ordered sentences.
type ParseRecord struct {
	DocID     string
	Owner     string
	UserInput string
	Status    string
	Source    string
	Sentences []Sentence
	CreatedAt time.Time
}

// Fields are the collection fields fetched for a full record.
var Fields = []string{"_docID", "owner", "user_input", "status", "source", "sentences_json", "created_at"}

// ToDoc converts a record to the document shape stored in DefraDB.
// Sentences are serialized into a JSON string field since the pipeline
// always reads them as a unit and never filters on sentence internals.
func (r ParseRecord) ToDoc() (map[string]any, error) {
	sentences := r.Sentences
	if sentences == nil {
		sentences = []Sentence{}
	}
	blob, err := json.Marshal(sentences)
	if err != nil {
		return nil, fmt.Errorf("marshal sentences: %w", err)
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return map[string]any{
		"owner":          r.Owner,
		"user_input":     r.UserInput,
		"status":         r.Status,
		"source":         r.Source,
		"sentences_json": string(blob),
		"created_at":     createdAt.Format(time.RFC3339),
	}, nil
}

// FromDoc decodes a stored document into a ParseRecord.
// A document whose sentences_json is present but not a valid sentence array
// returns an error wrapping ErrMalformed.
func FromDoc(doc map[string]any) (ParseRecord, error) {
	rec := ParseRecord{
		DocID:     stringField(doc, "_docID"),
		Owner:     stringField(doc, "owner"),
		UserInput: stringField(doc, "user_input"),
		Status:    stringField(doc, "status"),
		Source:    stringField(doc, "source"),
	}

	if raw := stringField(doc, "created_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return rec, fmt.Errorf("%w: bad created_at %q", ErrMalformed, raw)
		}
		rec.CreatedAt = t
	}

	if raw := stringField(doc, "sentences_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Sentences); err != nil {
			return rec, fmt.Errorf("%w: bad sentences_json: %v", ErrMalformed, err)
		}
	}

	return rec, nil
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}
