package reading

import (
	"strings"
	"testing"
)

func TestKanaToRomaji(t *testing.T) {
	tests := []struct {
		kana string
		want string
	}{
		{"ガッコウ", "gakkou"},
		{"がっこう", "gakkou"},
		{"キョウ", "kyou"},
		{"ちょっと", "chotto"},
		{"ラーメン", "raamen"},
		{"シンブン", "shinbun"},
		{"ジャ", "ja"},
		{"トモダチ", "tomodachi"},
		{"マッチャ", "matcha"},
		{"ワタシ", "watashi"},
		{"", ""},
		{"ABC", "ABC"},
	}

	for _, tt := range tests {
		t.Run(tt.kana, func(t *testing.T) {
			if got := KanaToRomaji(tt.kana); got != tt.want {
				t.Errorf("KanaToRomaji(%q) = %q, want %q", tt.kana, got, tt.want)
			}
		})
	}
}

func TestAnalyzerRomaji(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	t.Run("simple sentence", func(t *testing.T) {
		got := a.Romaji("私は学校に行きます")
		for _, want := range []string{"watashi", "gakkou"} {
			if !strings.Contains(got, want) {
				t.Errorf("Romaji = %q, missing %q", got, want)
			}
		}
	})

	t.Run("punctuation dropped", func(t *testing.T) {
		got := a.Romaji("こんにちは。")
		if strings.Contains(got, "。") {
			t.Errorf("Romaji = %q, should drop punctuation", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := a.Romaji("   "); got != "" {
			t.Errorf("Romaji = %q, want empty", got)
		}
	})
}
