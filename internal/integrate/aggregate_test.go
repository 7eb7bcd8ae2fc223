package integrate

import (
	"testing"
	"time"
)

func vocabTuple(word, romaji, meaning, recordID, sentence, translation string, at time.Time) Tuple {
	return Tuple{
		Kind:    KindVocabulary,
		Key:     word,
		Romaji:  romaji,
		Meaning: meaning,
		Example: Example{
			Sentence:    sentence,
			Translation: translation,
			RecordID:    recordID,
		},
		RecordID:   recordID,
		RecordTime: at,
	}
}

func TestAggregatorMergesAcrossRecords(t *testing.T) {
	// Two records both mention 学校: one aggregate, two examples, two sources.
	a := NewAggregator(KindVocabulary)
	t1 := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)

	a.Add(vocabTuple("学校", "gakkou", "school", "rec-A", "学校に行きます", "I go to school", t1))
	a.Add(vocabTuple("学校", "gakkou", "school", "rec-B", "学校は大きいです", "The school is big", t2))

	if a.Len() != 1 {
		t.Fatalf("Len = %d, want 1", a.Len())
	}
	agg := a.Get("学校")
	if agg.Occurrences != 2 {
		t.Errorf("Occurrences = %d, want 2", agg.Occurrences)
	}
	if len(agg.Examples) != 2 {
		t.Errorf("examples = %d, want 2", len(agg.Examples))
	}
	if len(agg.Sources) != 2 || agg.Sources[0] != "rec-A" || agg.Sources[1] != "rec-B" {
		t.Errorf("sources = %v, want [rec-A rec-B]", agg.Sources)
	}
	if !agg.FirstSeen.Equal(t1) || !agg.LastSeen.Equal(t2) {
		t.Errorf("seen window = [%v, %v], want [%v, %v]", agg.FirstSeen, agg.LastSeen, t1, t2)
	}
}

func TestAggregatorDedupesByContentPair(t *testing.T) {
	a := NewAggregator(KindVocabulary)
	now := time.Now().UTC()

	// Same sentence from two different records: one example.
	a.Add(vocabTuple("猫", "neko", "cat", "rec-A", "猫が好きです", "I like cats", now))
	a.Add(vocabTuple("猫", "neko", "cat", "rec-B", "猫が好きです", "I like cats", now))
	// Different sentence from a record that already contributed: appended.
	a.Add(vocabTuple("猫", "neko", "cat", "rec-A", "黒い猫を見た", "I saw a black cat", now))

	agg := a.Get("猫")
	if len(agg.Examples) != 2 {
		t.Fatalf("examples = %d, want 2", len(agg.Examples))
	}
	if agg.Occurrences != 2 {
		t.Errorf("Occurrences = %d, want 2", agg.Occurrences)
	}
	if len(agg.Sources) != len(agg.Examples) {
		t.Errorf("sources (%d) and examples (%d) must stay 1:1", len(agg.Sources), len(agg.Examples))
	}
}

func TestAggregatorFirstSeenWinsWithBackfill(t *testing.T) {
	a := NewAggregator(KindVocabulary)
	now := time.Now().UTC()

	a.Add(vocabTuple("犬", "inu", "", "rec-A", "犬がいる", "There is a dog", now))
	a.Add(vocabTuple("犬", "doggu", "dog", "rec-B", "犬が走る", "The dog runs", now))

	agg := a.Get("犬")
	// First-seen romaji kept, empty meaning backfilled from the later tuple.
	if agg.Romaji != "inu" {
		t.Errorf("Romaji = %q, want first-seen inu", agg.Romaji)
	}
	if agg.Meaning != "dog" {
		t.Errorf("Meaning = %q, want backfilled dog", agg.Meaning)
	}
}

func TestAggregatorStructureSeeding(t *testing.T) {
	a := NewAggregator(KindStructure)
	now := time.Now().UTC()

	a.Add(Tuple{
		Kind:          KindStructure,
		Key:           "AはBです",
		StructureType: TypeSentenceStructure,
		Example:       Example{Sentence: "これは本です", Translation: "This is a book"},
		RecordID:      "rec-A",
		RecordTime:    now,
	})

	agg := a.Get("AはBです")
	if agg == nil {
		t.Fatal("aggregate not created")
	}
	if agg.StructureType != TypeSentenceStructure {
		t.Errorf("StructureType = %q", agg.StructureType)
	}
	if agg.Category == "" {
		t.Error("category not derived")
	}
	if agg.Difficulty < 1 || agg.Difficulty > 5 {
		t.Errorf("Difficulty = %d, want 1..5", agg.Difficulty)
	}
}

func TestAggregatorIgnoresWrongKind(t *testing.T) {
	a := NewAggregator(KindStructure)
	a.Add(vocabTuple("学校", "gakkou", "school", "rec-A", "s", "t", time.Now()))
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestAggregatorDeterministicOrder(t *testing.T) {
	a := NewAggregator(KindVocabulary)
	now := time.Now().UTC()
	words := []string{"三", "一", "二"}
	for _, w := range words {
		a.Add(vocabTuple(w, "r", "m", "rec", w+"の文", w+" sentence", now))
	}

	aggs := a.Aggregates()
	for i, w := range words {
		if aggs[i].Key != w {
			t.Errorf("aggregate %d = %q, want insertion order %q", i, aggs[i].Key, w)
		}
	}
}
