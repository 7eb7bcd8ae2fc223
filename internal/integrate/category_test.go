package integrate

import "testing"

func TestStructureCategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"〜ですか", "question"},
		{"動詞+ない", "negation"},
		{"〜ました", "past"},
		{"〜たら", "conditional"},
		{"AはBです", "polite"},
		{"〜ながら", "pattern"},
		{"AとB", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := StructureCategory(tt.text); got != tt.want {
				t.Errorf("StructureCategory(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestStructureDifficulty(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"AはB", 1},
		{"AはBに行きます", 2},
		{"AはBに行ってCをDしてから帰る", 3},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := StructureDifficulty(tt.text); got != tt.want {
				t.Errorf("StructureDifficulty(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestWordCategory(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"学校", "kanji"},
		{"コーヒー", "katakana"},
		{"これ", "kana"},
		{"食べる", "kanji"},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			if got := WordCategory(tt.word); got != tt.want {
				t.Errorf("WordCategory(%q) = %q, want %q", tt.word, got, tt.want)
			}
		})
	}
}
