package reading

import "strings"

// monographs maps single katakana to Hepburn romaji.
var monographs = map[rune]string{
	'ア': "a", 'イ': "i", 'ウ': "u", 'エ': "e", 'オ': "o",
	'カ': "ka", 'キ': "ki", 'ク': "ku", 'ケ': "ke", 'コ': "ko",
	'サ': "sa", 'シ': "shi", 'ス': "su", 'セ': "se", 'ソ': "so",
	'タ': "ta", 'チ': "chi", 'ツ': "tsu", 'テ': "te", 'ト': "to",
	'ナ': "na", 'ニ': "ni", 'ヌ': "nu", 'ネ': "ne", 'ノ': "no",
	'ハ': "ha", 'ヒ': "hi", 'フ': "fu", 'ヘ': "he", 'ホ': "ho",
	'マ': "ma", 'ミ': "mi", 'ム': "mu", 'メ': "me", 'モ': "mo",
	'ヤ': "ya", 'ユ': "yu", 'ヨ': "yo",
	'ラ': "ra", 'リ': "ri", 'ル': "ru", 'レ': "re", 'ロ': "ro",
	'ワ': "wa", 'ヲ': "o", 'ン': "n",
	'ガ': "ga", 'ギ': "gi", 'グ': "gu", 'ゲ': "ge", 'ゴ': "go",
	'ザ': "za", 'ジ': "ji", 'ズ': "zu", 'ゼ': "ze", 'ゾ': "zo",
	'ダ': "da", 'ヂ': "ji", 'ヅ': "zu", 'デ': "de", 'ド': "do",
	'バ': "ba", 'ビ': "bi", 'ブ': "bu", 'ベ': "be", 'ボ': "bo",
	'パ': "pa", 'ピ': "pi", 'プ': "pu", 'ペ': "pe", 'ポ': "po",
	'ヴ': "vu",
	'ァ': "a", 'ィ': "i", 'ゥ': "u", 'ェ': "e", 'ォ': "o",
}

// digraphs maps two-kana sequences (consonant + small y/vowel kana).
var digraphs = map[string]string{
	"キャ": "kya", "キュ": "kyu", "キョ": "kyo",
	"シャ": "sha", "シュ": "shu", "ショ": "sho", "シェ": "she",
	"チャ": "cha", "チュ": "chu", "チョ": "cho", "チェ": "che",
	"ニャ": "nya", "ニュ": "nyu", "ニョ": "nyo",
	"ヒャ": "hya", "ヒュ": "hyu", "ヒョ": "hyo",
	"ミャ": "mya", "ミュ": "myu", "ミョ": "myo",
	"リャ": "rya", "リュ": "ryu", "リョ": "ryo",
	"ギャ": "gya", "ギュ": "gyu", "ギョ": "gyo",
	"ジャ": "ja", "ジュ": "ju", "ジョ": "jo", "ジェ": "je",
	"ビャ": "bya", "ビュ": "byu", "ビョ": "byo",
	"ピャ": "pya", "ピュ": "pyu", "ピョ": "pyo",
	"ティ": "ti", "ディ": "di", "デュ": "dyu",
	"ファ": "fa", "フィ": "fi", "フェ": "fe", "フォ": "fo",
	"ウィ": "wi", "ウェ": "we", "ウォ": "wo",
	"ツァ": "tsa", "ツェ": "tse", "ツォ": "tso",
}

// KanaToRomaji converts a kana string (hiragana or katakana) to Hepburn
// romaji. Characters with no kana mapping pass through unchanged.
func KanaToRomaji(kana string) string {
	runes := []rune(kana)
	var b strings.Builder
	sokuon := false

	for i := 0; i < len(runes); i++ {
		r := toKatakana(runes[i])

		if r == 'ッ' {
			sokuon = true
			continue
		}
		if r == 'ー' {
			// Long-vowel mark: repeat the previous vowel.
			if s := b.String(); len(s) > 0 && isVowel(s[len(s)-1]) {
				b.WriteByte(s[len(s)-1])
			}
			continue
		}

		var syllable string
		if i+1 < len(runes) {
			pair := string([]rune{r, toKatakana(runes[i+1])})
			if v, ok := digraphs[pair]; ok {
				syllable = v
				i++
			}
		}
		if syllable == "" {
			if v, ok := monographs[r]; ok {
				syllable = v
			} else {
				syllable = string(runes[i])
			}
		}

		if sokuon {
			// Geminate: double the consonant, with Hepburn's t before ch.
			if strings.HasPrefix(syllable, "ch") {
				b.WriteByte('t')
			} else if len(syllable) > 0 && !isVowel(syllable[0]) {
				b.WriteByte(syllable[0])
			}
			sokuon = false
		}
		b.WriteString(syllable)
	}

	return b.String()
}

// toKatakana shifts hiragana into the katakana block; other runes pass through.
func toKatakana(r rune) rune {
	if r >= 0x3041 && r <= 0x3096 {
		return r + 0x60
	}
	return r
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'i', 'u', 'e', 'o':
		return true
	}
	return false
}
