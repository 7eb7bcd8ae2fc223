package integrate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kotoba-app/kotoba/internal/defra"
	"github.com/kotoba-app/kotoba/internal/testutil"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(b)
}

func seedVocabDoc(t *testing.T, fake *testutil.FakeDefra, docID, word, firstSeen string, examples []Example, sources []string) {
	t.Helper()
	fake.Seed(VocabularyCollection, map[string]any{
		"_docID":        docID,
		"word":          word,
		"romaji":        "tomodachi",
		"meaning":       "friend",
		"category":      "kanji",
		"occurrences":   len(examples),
		"examples_json": mustJSON(t, examples),
		"sources_json":  mustJSON(t, sources),
		"first_seen":    firstSeen,
		"last_seen":     firstSeen,
	})
}

func newTestDeduper(t *testing.T, fake *testutil.FakeDefra) *Deduper {
	t.Helper()
	srv := fake.Server()
	t.Cleanup(srv.Close)
	return NewDeduper(DeduperConfig{
		Client:   defra.NewClient(srv.URL),
		PageSize: 10,
		Logger:   discardLogger(),
	})
}

func TestDedupeMergesDuplicateGroup(t *testing.T) {
	fake := testutil.NewFakeDefra()
	deduper := newTestDeduper(t, fake)
	ctx := context.Background()

	// Two 友達 documents left by a racing rebuild: 3 examples and 1 example,
	// overlapping on one content pair.
	big := []Example{
		{Sentence: "友達と遊ぶ", Translation: "I play with friends", RecordID: "rec-1"},
		{Sentence: "友達に会う", Translation: "I meet a friend", RecordID: "rec-2"},
		{Sentence: "友達が来る", Translation: "A friend comes", RecordID: "rec-3"},
	}
	small := []Example{
		{Sentence: "友達と遊ぶ", Translation: "I play with friends", RecordID: "rec-4"},
	}
	seedVocabDoc(t, fake, "doc-big", "友達", "2025-11-01T00:00:00Z", big, []string{"rec-1", "rec-2", "rec-3"})
	seedVocabDoc(t, fake, "doc-small", "友達", "2025-11-02T00:00:00Z", small, []string{"rec-4"})

	report, err := deduper.Run(ctx, KindVocabulary)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Groups != 1 || report.Merged != 1 || report.Deleted != 1 {
		t.Errorf("report = %+v, want 1 group merged, 1 deleted", report)
	}

	docs := fake.Docs(VocabularyCollection)
	if len(docs) != 1 {
		t.Fatalf("sink holds %d docs, want 1", len(docs))
	}
	survivor := docs[0]
	if survivor["_docID"] != "doc-big" {
		t.Errorf("canonical = %v, want doc-big (most examples)", survivor["_docID"])
	}

	var examples []Example
	if err := json.Unmarshal([]byte(survivor["examples_json"].(string)), &examples); err != nil {
		t.Fatalf("bad examples_json: %v", err)
	}
	// Overlapping content pair deduplicated away: 3 distinct pairs survive.
	if len(examples) != 3 {
		t.Errorf("merged examples = %d, want 3", len(examples))
	}
	if occ := intField(survivor, "occurrences"); occ != len(examples) {
		t.Errorf("occurrences = %d, want %d (count/length invariant)", occ, len(examples))
	}

	var sources []string
	if err := json.Unmarshal([]byte(survivor["sources_json"].(string)), &sources); err != nil {
		t.Fatalf("bad sources_json: %v", err)
	}
	if len(sources) != len(examples) {
		t.Errorf("sources (%d) and examples (%d) must stay 1:1", len(sources), len(examples))
	}
}

func TestDedupeIdempotent(t *testing.T) {
	fake := testutil.NewFakeDefra()
	deduper := newTestDeduper(t, fake)
	ctx := context.Background()

	seedVocabDoc(t, fake, "doc-1", "友達", "2025-11-01T00:00:00Z",
		[]Example{{Sentence: "友達と遊ぶ", Translation: "play", RecordID: "rec-1"}}, []string{"rec-1"})
	seedVocabDoc(t, fake, "doc-2", "友達", "2025-11-02T00:00:00Z",
		[]Example{{Sentence: "友達に会う", Translation: "meet", RecordID: "rec-2"}}, []string{"rec-2"})
	seedVocabDoc(t, fake, "doc-3", "学校", "2025-11-01T00:00:00Z",
		[]Example{{Sentence: "学校に行く", Translation: "go", RecordID: "rec-3"}}, []string{"rec-3"})

	first, err := deduper.Run(ctx, KindVocabulary)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Groups != 1 || first.Deleted != 1 {
		t.Errorf("first run = %+v, want 1 group, 1 deleted", first)
	}

	second, err := deduper.Run(ctx, KindVocabulary)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Groups != 0 || second.Merged != 0 || second.Deleted != 0 {
		t.Errorf("second run = %+v, want no-op", second)
	}
	if fake.Count(VocabularyCollection) != 2 {
		t.Errorf("sink holds %d docs, want 2", fake.Count(VocabularyCollection))
	}
}

func TestDedupeKeyNormalization(t *testing.T) {
	fake := testutil.NewFakeDefra()
	deduper := newTestDeduper(t, fake)

	// Keys differing only in surrounding whitespace are the same group.
	fake.Seed(StructureCollection, map[string]any{
		"_docID": "doc-1", "structure": "AはBです", "structure_type": TypeSentenceStructure,
		"occurrences": 1, "first_seen": "2025-11-01T00:00:00Z",
		"examples_json": mustJSON(t, []Example{{Sentence: "これは本です", Translation: "book"}}),
		"sources_json":  mustJSON(t, []string{"rec-1"}),
	})
	fake.Seed(StructureCollection, map[string]any{
		"_docID": "doc-2", "structure": " AはBです ", "structure_type": TypeSentenceStructure,
		"occurrences": 1, "first_seen": "2025-11-02T00:00:00Z",
		"examples_json": mustJSON(t, []Example{{Sentence: "それは犬です", Translation: "dog"}}),
		"sources_json":  mustJSON(t, []string{"rec-2"}),
	})

	report, err := deduper.Run(context.Background(), KindStructure)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Groups != 1 || report.Deleted != 1 {
		t.Errorf("report = %+v, want whitespace variants merged", report)
	}
}

func TestDedupeTimestampWidening(t *testing.T) {
	fake := testutil.NewFakeDefra()
	deduper := newTestDeduper(t, fake)

	seedVocabDoc(t, fake, "doc-1", "本", "2025-11-05T00:00:00Z",
		[]Example{
			{Sentence: "本を読む", Translation: "read", RecordID: "rec-1"},
			{Sentence: "本を買う", Translation: "buy", RecordID: "rec-2"},
		}, []string{"rec-1", "rec-2"})
	seedVocabDoc(t, fake, "doc-2", "本", "2025-11-01T00:00:00Z",
		[]Example{{Sentence: "本が好き", Translation: "like", RecordID: "rec-3"}}, []string{"rec-3"})

	if _, err := deduper.Run(context.Background(), KindVocabulary); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	docs := fake.Docs(VocabularyCollection)
	if len(docs) != 1 {
		t.Fatalf("sink holds %d docs, want 1", len(docs))
	}
	first, _ := time.Parse(time.RFC3339, docs[0]["first_seen"].(string))
	want := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	if !first.Equal(want) {
		t.Errorf("first_seen = %v, want widened to %v", first, want)
	}
}
