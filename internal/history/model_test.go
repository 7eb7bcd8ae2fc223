package history

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestVocabularyMentionComplete(t *testing.T) {
	tests := []struct {
		name    string
		mention VocabularyMention
		want    bool
	}{
		{"all fields", VocabularyMention{Word: "学校", Romaji: "gakkou", Meaning: "school"}, true},
		{"missing word", VocabularyMention{Romaji: "gakkou", Meaning: "school"}, false},
		{"missing romaji", VocabularyMention{Word: "学校", Meaning: "school"}, false},
		{"missing meaning", VocabularyMention{Word: "学校", Romaji: "gakkou"}, false},
		{"whitespace only", VocabularyMention{Word: "  ", Romaji: "gakkou", Meaning: "school"}, false},
		{"empty", VocabularyMention{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mention.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordRoundTrip(t *testing.T) {
	created := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	rec := ParseRecord{
		Owner:     "user-1",
		UserInput: "私は学校に行きます",
		Status:    StatusCompleted,
		Source:    "text",
		CreatedAt: created,
		Sentences: []Sentence{
			{
				Original:    "私は学校に行きます",
				Romaji:      "watashi wa gakkou ni ikimasu",
				Translation: "I go to school",
				Structure:   "AはBに行きます",
				Vocabulary: []VocabularyMention{
					{Word: "学校", Romaji: "gakkou", Meaning: "school"},
				},
			},
		},
	}

	doc, err := rec.ToDoc()
	if err != nil {
		t.Fatalf("ToDoc failed: %v", err)
	}
	if doc["created_at"] != "2025-11-03T10:30:00Z" {
		t.Errorf("created_at = %v", doc["created_at"])
	}
	if !strings.Contains(doc["sentences_json"].(string), "学校") {
		t.Errorf("sentences_json missing content: %v", doc["sentences_json"])
	}

	doc["_docID"] = "doc-001"
	got, err := FromDoc(doc)
	if err != nil {
		t.Fatalf("FromDoc failed: %v", err)
	}
	if got.DocID != "doc-001" {
		t.Errorf("DocID = %q", got.DocID)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if len(got.Sentences) != 1 {
		t.Fatalf("got %d sentences, want 1", len(got.Sentences))
	}
	if got.Sentences[0].Vocabulary[0].Word != "学校" {
		t.Errorf("vocabulary word = %q", got.Sentences[0].Vocabulary[0].Word)
	}
}

func TestToDocDefaults(t *testing.T) {
	doc, err := ParseRecord{UserInput: "x", Status: StatusFailed}.ToDoc()
	if err != nil {
		t.Fatalf("ToDoc failed: %v", err)
	}
	if doc["sentences_json"] != "[]" {
		t.Errorf("sentences_json = %v, want empty array", doc["sentences_json"])
	}
	if doc["created_at"] == "" {
		t.Error("created_at should default to now")
	}
}

func TestFromDocMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
	}{
		{"bad sentences json", map[string]any{"_docID": "d1", "sentences_json": "{not json"}},
		{"sentences not an array", map[string]any{"_docID": "d1", "sentences_json": `{"original":"x"}`}},
		{"bad created_at", map[string]any{"_docID": "d1", "created_at": "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDoc(tt.doc)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestFromDocMissingOptionalFields(t *testing.T) {
	rec, err := FromDoc(map[string]any{"_docID": "d1", "user_input": "text"})
	if err != nil {
		t.Fatalf("FromDoc failed: %v", err)
	}
	if len(rec.Sentences) != 0 {
		t.Errorf("expected no sentences, got %d", len(rec.Sentences))
	}
	if !rec.CreatedAt.IsZero() {
		t.Errorf("expected zero CreatedAt, got %v", rec.CreatedAt)
	}
}
