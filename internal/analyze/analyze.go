// Package analyze turns raw Japanese text or page images into structured
// sentence analyses ready to be stored as parse-history records.
package analyze

import (
	"context"
	"strings"

	"github.com/kotoba-app/kotoba/internal/history"
)

// Analyzer produces sentence analyses from text or image input.
type Analyzer interface {
	// Name returns the analyzer identifier (e.g. "openai", "mock").
	Name() string

	// Analyze runs one analysis request. Exactly one of req.Text or
	// req.Image should be set.
	Analyze(ctx context.Context, req *Request) (*Result, error)
}

// Request is one unit of input for analysis.
type Request struct {
	// Text is the raw Japanese text to analyze.
	Text string

	// Image holds a page image for vision analysis. ImageMIME is its
	// content type ("image/png", "image/jpeg").
	Image     []byte
	ImageMIME string

	// RequestID is carried through for log correlation.
	RequestID string
}

// Result is the outcome of one analysis call.
type Result struct {
	Sentences []history.Sentence

	// Call metadata.
	Model            string
	PromptTokens     int
	CompletionTokens int
	Attempts         int
}

// normalizeSentences trims whitespace and drops sentences with no original
// text; the model occasionally emits empty rows for blank lines.
func normalizeSentences(sentences []history.Sentence) []history.Sentence {
	out := make([]history.Sentence, 0, len(sentences))
	for _, s := range sentences {
		s.Original = strings.TrimSpace(s.Original)
		if s.Original == "" {
			continue
		}
		s.Romaji = strings.TrimSpace(s.Romaji)
		s.Translation = strings.TrimSpace(s.Translation)
		s.Structure = strings.TrimSpace(s.Structure)
		for i := range s.Vocabulary {
			s.Vocabulary[i].Word = strings.TrimSpace(s.Vocabulary[i].Word)
			s.Vocabulary[i].Romaji = strings.TrimSpace(s.Vocabulary[i].Romaji)
			s.Vocabulary[i].Meaning = strings.TrimSpace(s.Vocabulary[i].Meaning)
		}
		out = append(out, s)
	}
	return out
}
