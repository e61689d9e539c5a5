package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stop words to filter out of queries
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeQuery splits a query into words, lowercases, trims punctuation, and removes stop words
func tokenizeQuery(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenizeText splits document text into lowercase words.
func tokenizeText(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

// matchesAllTokens checks that every query token prefixes some word of text.
// An empty token list matches everything.
func matchesAllTokens(words []string, tokens []string) bool {
	for _, tok := range tokens {
		found := false
		for _, w := range words {
			if strings.HasPrefix(w, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// highlight wraps the part of each word of value that matches a query token
// with pre and post. The longest matching token wins.
func highlight(value string, tokens []string, pre, post string) string {
	if len(tokens) == 0 {
		return value
	}

	var b strings.Builder
	b.Grow(len(value))

	i := 0
	for i < len(value) {
		r, size := utf8.DecodeRuneInString(value[i:])
		if !isWordRune(r) {
			b.WriteString(value[i : i+size])
			i += size
			continue
		}

		// Find the end of the current word
		j := i
		for j < len(value) {
			r, size := utf8.DecodeRuneInString(value[j:])
			if !isWordRune(r) {
				break
			}
			j += size
		}
		word := value[i:j]

		matched := 0
		for _, tok := range tokens {
			if len(tok) > len(word) || len(tok) <= matched {
				continue
			}
			if (len(tok) == len(word) || utf8.RuneStart(word[len(tok)])) && strings.EqualFold(word[:len(tok)], tok) {
				matched = len(tok)
			}
		}

		if matched > 0 {
			b.WriteString(pre)
			b.WriteString(word[:matched])
			b.WriteString(post)
			b.WriteString(word[matched:])
		} else {
			b.WriteString(word)
		}
		i = j
	}

	return b.String()
}
