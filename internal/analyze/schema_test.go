package analyze

import (
	"strings"
	"testing"
)

const validAnalysisJSON = `{
  "sentences": [
    {
      "original": "学校に行きます",
      "romaji": "gakkou ni ikimasu",
      "translation": "I go to school",
      "structure": "NにVます",
      "grammar": "に indicates destination",
      "analysis": "Polite present tense.",
      "vocabulary": [
        {"word": "学校", "romaji": "gakkou", "meaning": "school"}
      ]
    }
  ]
}`

func TestParseSentences(t *testing.T) {
	sentences, err := ParseSentences(validAnalysisJSON)
	if err != nil {
		t.Fatalf("ParseSentences() error = %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("got %d sentences, want 1", len(sentences))
	}
	s := sentences[0]
	if s.Original != "学校に行きます" || s.Romaji != "gakkou ni ikimasu" {
		t.Errorf("sentence = %+v", s)
	}
	if len(s.Vocabulary) != 1 || s.Vocabulary[0].Word != "学校" {
		t.Errorf("vocabulary = %+v", s.Vocabulary)
	}
}

func TestParseSentencesCodeFence(t *testing.T) {
	fenced := "```json\n" + validAnalysisJSON + "\n```"
	sentences, err := ParseSentences(fenced)
	if err != nil {
		t.Fatalf("ParseSentences() error = %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("got %d sentences, want 1", len(sentences))
	}
}

func TestParseSentencesSurroundingProse(t *testing.T) {
	wrapped := "Here is the analysis you asked for:\n" + validAnalysisJSON + "\nLet me know if you need more."
	sentences, err := ParseSentences(wrapped)
	if err != nil {
		t.Fatalf("ParseSentences() error = %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("got %d sentences, want 1", len(sentences))
	}
}

func TestParseSentencesDropsEmptyRows(t *testing.T) {
	content := `{"sentences": [
		{"original": "  ", "romaji": "", "translation": "", "structure": "", "grammar": "", "analysis": "", "vocabulary": []},
		{"original": " 猫が好き ", "romaji": "neko ga suki", "translation": "I like cats", "structure": "", "grammar": "", "analysis": "", "vocabulary": []}
	]}`
	sentences, err := ParseSentences(content)
	if err != nil {
		t.Fatalf("ParseSentences() error = %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("got %d sentences, want 1 (blank row dropped)", len(sentences))
	}
	if sentences[0].Original != "猫が好き" {
		t.Errorf("original = %q, want trimmed", sentences[0].Original)
	}
}

func TestParseSentencesRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"prose only", "I could not analyze that text."},
		{"missing sentences key", `{"results": []}`},
		{"sentences not array", `{"sentences": "none"}`},
		{"missing required field", `{"sentences": [{"original": "x"}]}`},
		{"wrong vocabulary shape", `{"sentences": [{"original": "x", "romaji": "", "translation": "", "structure": "", "grammar": "", "analysis": "", "vocabulary": [{"word": "x"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSentences(tt.content); err == nil {
				t.Errorf("ParseSentences(%q) succeeded, want error", tt.content)
			}
		})
	}
}

func TestResponseSchema(t *testing.T) {
	schema := ResponseSchema()
	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("properties missing")
	}
	if _, ok := props["sentences"]; !ok {
		t.Error("sentences property missing")
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := stripCodeFences("no fences here"); got != "" {
		t.Errorf("stripCodeFences = %q, want empty for unfenced input", got)
	}
	got := stripCodeFences("```json\n{\"a\": 1}\n```")
	if !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
		t.Errorf("stripCodeFences = %q", got)
	}
}
