package analyze

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kotoba-app/kotoba/internal/history"
)

// sentencesSchema is the structured-output contract for analysis calls.
// All properties are required and additionalProperties is false so the
// schema is accepted by strict structured-output modes.
const sentencesSchema = `{
  "type": "object",
  "properties": {
    "sentences": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "original":    {"type": "string"},
          "romaji":      {"type": "string"},
          "translation": {"type": "string"},
          "structure":   {"type": "string"},
          "grammar":     {"type": "string"},
          "analysis":    {"type": "string"},
          "vocabulary": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "word":    {"type": "string"},
                "romaji":  {"type": "string"},
                "meaning": {"type": "string"}
              },
              "required": ["word", "romaji", "meaning"],
              "additionalProperties": false
            }
          }
        },
        "required": ["original", "romaji", "translation", "structure", "grammar", "analysis", "vocabulary"],
        "additionalProperties": false
      }
    }
  },
  "required": ["sentences"],
  "additionalProperties": false
}`

var compiledSchema = jsonschema.MustCompileString("sentences.json", sentencesSchema)

// ResponseSchema returns the structured-output schema as a generic value,
// the shape SDK response-format parameters expect.
func ResponseSchema() map[string]any {
	var schema map[string]any
	if err := json.Unmarshal([]byte(sentencesSchema), &schema); err != nil {
		panic(err)
	}
	return schema
}

type sentencesEnvelope struct {
	Sentences []struct {
		Original    string `json:"original"`
		Romaji      string `json:"romaji"`
		Translation string `json:"translation"`
		Structure   string `json:"structure"`
		Grammar     string `json:"grammar"`
		Analysis    string `json:"analysis"`
		Vocabulary  []struct {
			Word    string `json:"word"`
			Romaji  string `json:"romaji"`
			Meaning string `json:"meaning"`
		} `json:"vocabulary"`
	} `json:"sentences"`
}

// ParseSentences validates model output against the sentence schema and
// decodes it. Markdown code fences and surrounding prose are stripped
// before parsing, since models wrap JSON despite instructions.
func ParseSentences(content string) ([]history.Sentence, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("analysis output failed schema validation: %w", err)
	}

	var envelope sentencesEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode analysis JSON: %w", err)
	}

	sentences := make([]history.Sentence, 0, len(envelope.Sentences))
	for _, s := range envelope.Sentences {
		sentence := history.Sentence{
			Original:    s.Original,
			Romaji:      s.Romaji,
			Translation: s.Translation,
			Structure:   s.Structure,
			Grammar:     s.Grammar,
			Analysis:    s.Analysis,
		}
		for _, v := range s.Vocabulary {
			sentence.Vocabulary = append(sentence.Vocabulary, history.VocabularyMention{
				Word:    v.Word,
				Romaji:  v.Romaji,
				Meaning: v.Meaning,
			})
		}
		sentences = append(sentences, sentence)
	}
	return normalizeSentences(sentences), nil
}

// extractJSON pulls a JSON document out of model output, trying the raw
// content first, then with code fences stripped, then the outermost
// brace-delimited span.
func extractJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty analysis output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if span := braceSpan(content); span != "" && span != content {
		candidates = append(candidates, span)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return json.RawMessage(candidate), nil
		}
	}
	return nil, fmt.Errorf("no JSON document in analysis output")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func braceSpan(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}
