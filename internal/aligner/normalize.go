package aligner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	apostropheRegex  = regexp.MustCompile(`['’‘]`)
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// stopwords never count toward similarity on their own
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "he": {}, "her": {}, "his": {},
	"i": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
	"our": {}, "she": {}, "so": {}, "that": {}, "the": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "to": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "which": {}, "will": {}, "with": {}, "you": {}, "your": {}, "um": {}, "uh": {},
}

// normalize lower-cases text, drops apostrophes, turns other punctuation into
// spaces and collapses whitespace
func normalize(text string) string {
	text = strings.ToLower(text)
	text = apostropheRegex.ReplaceAllString(text, "")
	text = punctuationRegex.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// contentTokens returns the normalised tokens of text without stopwords. If
// every token is a stopword the full token list is returned instead.
func contentTokens(text string) []string {
	all := strings.Fields(normalize(text))
	content := make([]string, 0, len(all))
	for _, tok := range all {
		if _, stop := stopwords[tok]; !stop {
			content = append(content, tok)
		}
	}
	if len(content) == 0 {
		return all
	}
	return content
}

// containsAtBoundary reports whether needle occurs in haystack starting and
// ending on word boundaries
func containsAtBoundary(haystack, needle string) bool {
	if needle == "" {
		return false
	}

	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if isBoundary(haystack, start, true, needle) && isBoundary(haystack, end, false, needle) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
}

// isBoundary checks the rune just outside the match. A match edge that is
// itself punctuation or space needs no boundary.
func isBoundary(haystack string, pos int, before bool, needle string) bool {
	if before {
		first, _ := utf8.DecodeRuneInString(needle)
		if !isWordRune(first) || pos == 0 {
			return true
		}
		r, _ := utf8.DecodeLastRuneInString(haystack[:pos])
		return !isWordRune(r)
	}

	last, _ := utf8.DecodeLastRuneInString(needle)
	if !isWordRune(last) || pos >= len(haystack) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(haystack[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
