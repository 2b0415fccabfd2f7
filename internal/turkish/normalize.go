// Package turkish implements deterministic Turkish text normalization.
//
// Turkish case folding is locale-sensitive: the uppercase dotted İ lowers
// to i, and the uppercase dotless I lowers to ı. Generic Unicode lowering
// gets both wrong, so the explicit mapping runs first.
package turkish

import (
	"strings"
	"unicode"
)

var caseFolder = strings.NewReplacer("İ", "i", "I", "ı")

// Lower lowercases text with Turkish-aware handling of the two capital I forms.
func Lower(s string) string {
	return strings.ToLower(caseFolder.Replace(s))
}

// Normalize lowercases with Turkish case folding, replaces punctuation and
// symbols with spaces, collapses whitespace runs and trims. Idempotent.
func Normalize(s string) string {
	lowered := Lower(s)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var asciiFolder = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"Ç", "c", "Ğ", "g", "İ", "i", "Ö", "o", "Ş", "s", "Ü", "u",
)

// FoldASCII maps Turkish diacritics to their ASCII base letters after
// lowercasing. Used for diacritic-insensitive rule matching.
func FoldASCII(s string) string {
	return strings.ToLower(asciiFolder.Replace(s))
}

// NormalizeToken folds a rule token into snake_case ASCII so that
// "Göğüs Ağrısı", "gogus-agrisi" and "gogus_agrisi" all compare equal.
func NormalizeToken(s string) string {
	t := FoldASCII(strings.TrimSpace(s))
	t = strings.NewReplacer("-", "_", "/", "_", " ", "_").Replace(t)
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	return strings.Trim(t, "_")
}

// ContainsWord reports whether phrase occurs in text on word boundaries.
// Both inputs must already be normalized. A boundary is the text edge or
// a space, which is all Normalize leaves between words.
func ContainsWord(text, phrase string) bool {
	return IndexWord(text, phrase) >= 0
}

// IndexWord returns the byte offset of the first whole-word occurrence of
// phrase in text, or -1.
func IndexWord(text, phrase string) int {
	return IndexWordFrom(text, phrase, 0)
}

// IndexWordFrom is IndexWord starting the scan at byte offset from.
func IndexWordFrom(text, phrase string, from int) int {
	if phrase == "" || from < 0 || from > len(text) {
		return -1
	}
	for {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(phrase)
		leftOK := start == 0 || text[start-1] == ' '
		rightOK := end == len(text) || text[end] == ' '
		if leftOK && rightOK {
			return start
		}
		from = start + 1
		if from >= len(text) {
			return -1
		}
	}
}
