package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var whitespaceRunRegex = regexp.MustCompile(`\s+`)

// StripBracketed removes every (...), [...] and {...} span from text, collapses
// whitespace and capitalizes the first word. Nested and unbalanced brackets are
// tolerated: characters are kept only while the nesting depth is exactly zero.
//
//	StripBracketed("Sugar (E100, acid)")             // "Sugar"
//	StripBracketed("Flavoring [natural (citrus)]")   // "Flavoring"
func StripBracketed(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	depth := 0
	for _, r := range norm.NFC.String(text) {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}

	cleaned := strings.TrimSpace(whitespaceRunRegex.ReplaceAllString(b.String(), " "))
	if cleaned == "" {
		return ""
	}

	first, rest, _ := strings.Cut(cleaned, " ")
	first = capitalizeWord(first)
	if rest == "" {
		return first
	}
	return first + " " + rest
}

// capitalizeWord upper-cases the first letter of word and lower-cases the remainder.
func capitalizeWord(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToTitle(r)) + strings.ToLower(word[size:])
}
