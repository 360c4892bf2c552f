// Package textnorm canonicalizes free-text tokens before they are compared.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// letterFolds collapses visually equivalent letters to one form.
var letterFolds = map[rune]rune{
	'ى': 'ي', // alef maksura
	'ة': 'ه', // teh marbuta
	'ی': 'ي', // farsi yeh
}

// Normalize lower-cases text, strips combining marks, maps Arabic-Indic digits
// to ASCII, folds equivalent letters and collapses whitespace.
// It is pure and idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	text = strings.ToLower(text)

	// transform.Chain keeps internal buffers, so a fresh chain is built per call.
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == tatweel })),
		runes.Map(foldRune),
		norm.NFC,
	)

	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}

	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

func foldRune(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}

	if folded, ok := letterFolds[r]; ok {
		return folded
	}

	return r
}

// HasNonLatinLetters reports whether text contains a letter outside the Latin script.
func HasNonLatinLetters(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
