// Package reading derives phonetic transliterations (Hepburn romaji) for
// Japanese text using morphological analysis. It backs the transliteration
// repair path when the original analyzer output lacks a romaji field.
package reading

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Analyzer segments Japanese text and renders each token's reading as romaji.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates an Analyzer backed by the bundled IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Romaji returns a space-separated Hepburn transliteration of text.
// Tokens without a dictionary reading (rare kanji, latin fragments) fall
// back to their surface form. Punctuation tokens are dropped.
func (a *Analyzer) Romaji(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var parts []string
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		if pos := tok.POS(); len(pos) > 0 && pos[0] == "記号" {
			continue
		}

		kana, ok := tok.Reading()
		if !ok || kana == "" || kana == "*" {
			kana = tok.Surface
		}
		if romaji := KanaToRomaji(kana); romaji != "" {
			parts = append(parts, romaji)
		}
	}
	return strings.Join(parts, " ")
}
