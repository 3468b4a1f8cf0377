package query

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
)

// stopWords carry no signal for relevance scoring and are dropped
// during tokenization.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "has": {}, "have": {}, "how": {}, "i": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "our": {}, "should": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "this": {}, "to": {}, "want": {},
	"we": {}, "what": {}, "when": {}, "where": {}, "which": {}, "will": {},
	"with": {}, "would": {}, "you": {}, "your": {},
}

// Token is a single query keyword together with its porter2 stem.
// Exact matching (tags, exports) uses Raw; substring matching uses
// Stem so that e.g. "activation" also hits "activates".
type Token struct {
	Raw  string
	Stem string
}

// Tokenize lowercases the task, splits it on non-alphanumeric runes,
// drops stop words and single characters, and deduplicates by stem
// while preserving first-seen order.
func Tokenize(task string) []Token {
	words := strings.FieldsFunc(strings.ToLower(task), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(words))
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		stem := porter2.Stem(w)
		if _, dup := seen[stem]; dup {
			continue
		}
		seen[stem] = struct{}{}
		tokens = append(tokens, Token{Raw: w, Stem: stem})
	}
	return tokens
}
