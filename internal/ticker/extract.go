package ticker

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// candidatePattern matches a ticker-shaped token: an optional "$"
// prefix, 1-5 Latin letters, and an optional one- or two-letter share
// class joined by "." or "-" (BRK.B, BF-B). Boundary legality is
// checked separately because the same pattern must work against both
// Unicode-aware and ASCII-only boundary rules.
var candidatePattern = regexp.MustCompile(`\$?[A-Za-z]{1,5}(?:[.-][A-Za-z]{1,2})?`)

// Extract returns the set of known symbols mentioned in text, sorted
// and deduplicated. It is a pure function: the lexicon is supplied by
// the caller and no I/O happens here.
//
// A candidate counts only when it sits on legal token boundaries. The
// primary rules treat any non-ASCII rune as a boundary, so a ticker
// butted directly against Hebrew or other non-Latin text still
// matches. If the primary pass finds nothing, a stricter ASCII-only
// pass is tried to guard against text-encoding classification quirks.
func Extract(text string, lex *Lexicon) []string {
	found := scan(text, lex, leftBoundary, rightBoundary)
	if len(found) == 0 {
		found = scan(text, lex, asciiLeftBoundary, asciiRightBoundary)
	}

	symbols := make([]string, 0, len(found))
	for s := range found {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func scan(text string, lex *Lexicon, left, right func(rune) bool) map[string]struct{} {
	found := make(map[string]struct{})

	for _, loc := range candidatePattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]

		if start > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			if !left(r) {
				continue
			}
		}
		if end < len(text) {
			r, _ := utf8.DecodeRuneInString(text[end:])
			if !right(r) {
				continue
			}
		}

		symbol := Normalize(text[start:end])
		if lex.Accepts(symbol) {
			found[symbol] = struct{}{}
		}
	}
	return found
}

// leftBoundary reports whether r may legally precede a candidate:
// whitespace, a quote or bracket character, or any non-ASCII rune.
func leftBoundary(r rune) bool {
	if r > unicode.MaxASCII {
		return true
	}
	return unicode.IsSpace(r) || strings.ContainsRune("\"'`([{<", r)
}

// rightBoundary mirrors leftBoundary with trailing sentence punctuation
// allowed. "/" is deliberately not a boundary so path and URL fragments
// (tradingview.com/chart/...) never read as tickers.
func rightBoundary(r rune) bool {
	if r > unicode.MaxASCII {
		return true
	}
	return unicode.IsSpace(r) || strings.ContainsRune("\"'`)]}>.,!?:;", r)
}

// asciiLeftBoundary is leftBoundary with the non-ASCII clause removed:
// the same whitespace/quote/bracket set, nothing looser, so the
// fallback pass can never accept a candidate the primary rules reject.
func asciiLeftBoundary(r rune) bool {
	return r <= unicode.MaxASCII && (unicode.IsSpace(r) || strings.ContainsRune("\"'`([{<", r))
}

// asciiRightBoundary mirrors rightBoundary the same way. "/" stays
// illegal so URL paths never read as tickers in either pass.
func asciiRightBoundary(r rune) bool {
	return r <= unicode.MaxASCII && (unicode.IsSpace(r) || strings.ContainsRune("\"'`)]}>.,!?:;", r))
}
