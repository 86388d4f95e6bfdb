// Package langdetect guesses the language of a transcript when the
// transcription provider does not report one.
//
// Detection is two-stage: non-Latin scripts map directly to a language
// (Cyrillic, CJK, Arabic, Devanagari, Hangul, Greek, Hebrew), while Latin
// text is disambiguated by counting stop words of the major Latin-script
// languages. The result is a best effort; callers must tolerate Unknown.
package langdetect

import (
	"strings"
	"unicode"
)

// Unknown is returned when no language can be determined.
const Unknown = ""

// script identifies a writing system detected in the input.
type script int

const (
	scriptNone script = iota
	scriptLatin
	scriptCyrillic
	scriptHan
	scriptHiragana
	scriptKatakana
	scriptHangul
	scriptArabic
	scriptDevanagari
	scriptGreek
	scriptHebrew
	scriptThai
)

// stopWords maps a language code to high-frequency function words. Only
// Latin-script languages need disambiguation; scripts unique to one language
// are classified without word lists.
var stopWords = map[string][]string{
	"en": {"the", "and", "is", "of", "to", "in", "that", "you", "it", "for", "was", "with", "are", "this", "have", "not", "what", "but"},
	"es": {"el", "la", "los", "las", "de", "que", "y", "en", "un", "una", "es", "no", "por", "con", "para", "su", "se", "como"},
	"fr": {"le", "la", "les", "de", "et", "un", "une", "est", "que", "pas", "pour", "dans", "vous", "je", "ce", "qui", "sur", "avec"},
	"de": {"der", "die", "das", "und", "ist", "nicht", "ein", "eine", "ich", "sie", "mit", "auf", "für", "den", "von", "zu", "dem", "wir"},
	"pt": {"o", "a", "os", "as", "de", "que", "e", "do", "da", "em", "um", "uma", "não", "com", "para", "por", "mais", "como"},
	"it": {"il", "la", "di", "che", "e", "un", "una", "per", "non", "sono", "con", "del", "della", "questo", "anche", "come", "ma", "gli"},
	"nl": {"de", "het", "een", "en", "van", "is", "dat", "ik", "niet", "met", "op", "voor", "zijn", "maar", "je", "aan"},
	"tr": {"bir", "ve", "bu", "için", "ne", "da", "de", "çok", "ben", "mi", "ama", "var", "gibi", "daha", "sen", "o"},
}

// scriptOf classifies a single rune.
func scriptOf(r rune) script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return scriptLatin
	case unicode.Is(unicode.Cyrillic, r):
		return scriptCyrillic
	case unicode.Is(unicode.Han, r):
		return scriptHan
	case unicode.Is(unicode.Hiragana, r):
		return scriptHiragana
	case unicode.Is(unicode.Katakana, r):
		return scriptKatakana
	case unicode.Is(unicode.Hangul, r):
		return scriptHangul
	case unicode.Is(unicode.Arabic, r):
		return scriptArabic
	case unicode.Is(unicode.Devanagari, r):
		return scriptDevanagari
	case unicode.Is(unicode.Greek, r):
		return scriptGreek
	case unicode.Is(unicode.Hebrew, r):
		return scriptHebrew
	case unicode.Is(unicode.Thai, r):
		return scriptThai
	}
	return scriptNone
}

// Detect returns the BCP-47 primary language subtag of text, or Unknown.
func Detect(text string) string {
	counts := map[script]int{}
	total := 0
	for _, r := range text {
		if s := scriptOf(r); s != scriptNone {
			counts[s]++
			total++
		}
	}
	if total == 0 {
		return Unknown
	}

	dominant, max := scriptNone, 0
	for s, n := range counts {
		if n > max {
			dominant, max = s, n
		}
	}

	switch dominant {
	case scriptCyrillic:
		return "ru"
	case scriptHangul:
		return "ko"
	case scriptArabic:
		return "ar"
	case scriptDevanagari:
		return "hi"
	case scriptGreek:
		return "el"
	case scriptHebrew:
		return "he"
	case scriptThai:
		return "th"
	case scriptHiragana, scriptKatakana:
		return "ja"
	case scriptHan:
		// Any kana at all means Japanese text with kanji.
		if counts[scriptHiragana] > 0 || counts[scriptKatakana] > 0 {
			return "ja"
		}
		return "zh"
	case scriptLatin:
		return detectLatin(text)
	}
	return Unknown
}

// detectLatin disambiguates Latin-script text by stop-word frequency. Ties
// and texts with no recognised stop words return Unknown rather than a guess.
func detectLatin(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return Unknown
	}

	// Strip leading/trailing punctuation so "that," still counts.
	for i, w := range words {
		words[i] = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
	}

	scores := map[string]int{}
	for lang, sw := range stopWords {
		set := make(map[string]struct{}, len(sw))
		for _, w := range sw {
			set[w] = struct{}{}
		}
		for _, w := range words {
			if _, ok := set[w]; ok {
				scores[lang]++
			}
		}
	}

	best, bestScore, tied := Unknown, 0, false
	for lang, score := range scores {
		switch {
		case score > bestScore:
			best, bestScore, tied = lang, score, false
		case score == bestScore && score > 0 && lang != best:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return Unknown
	}
	return best
}
