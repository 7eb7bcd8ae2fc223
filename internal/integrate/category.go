package integrate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StructureCategory derives a coarse category from structure text.
// Purely heuristic keyword matching; unmatched text is "general".
func StructureCategory(text string) string {
	switch {
	case strings.Contains(text, "疑問") || strings.HasSuffix(text, "か") || strings.ContainsAny(text, "?？"):
		return "question"
	case strings.Contains(text, "否定") || strings.Contains(text, "ない") || strings.Contains(text, "ません"):
		return "negation"
	case strings.Contains(text, "過去") || strings.Contains(text, "ました") || strings.Contains(text, "た形"):
		return "past"
	case strings.Contains(text, "条件") || strings.Contains(text, "たら") || strings.Contains(text, "れば"):
		return "conditional"
	case strings.Contains(text, "敬語") || strings.Contains(text, "です") || strings.Contains(text, "ます"):
		return "polite"
	case strings.Contains(text, "〜") || strings.Contains(text, "…"):
		return "pattern"
	default:
		return "general"
	}
}

// StructureDifficulty grades a structure by text length in runes.
// Longer patterns are treated as harder to master.
func StructureDifficulty(text string) int {
	n := utf8.RuneCountInString(text)
	switch {
	case n <= 5:
		return 1
	case n <= 10:
		return 2
	case n <= 20:
		return 3
	case n <= 40:
		return 4
	default:
		return 5
	}
}

// WordCategory classifies a vocabulary surface form by script.
func WordCategory(word string) string {
	hasKanji := false
	allKatakana := word != ""
	for _, r := range word {
		if unicode.In(r, unicode.Han) {
			hasKanji = true
		}
		if !unicode.In(r, unicode.Katakana) && r != 'ー' {
			allKatakana = false
		}
	}
	switch {
	case allKatakana:
		return "katakana"
	case hasKanji:
		return "kanji"
	default:
		return "kana"
	}
}
