package search

import "strings"

const trimChars = ".,!?;:'\"-()[]{}<>`*_#"

// tokenize lower-cases text, splits on whitespace, and trims surrounding
// punctuation. Empty tokens are dropped.
func tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, trimChars))
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}

	return tokens
}

// normalizeQuery folds case and collapses whitespace. Used as the cache key.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// normalizeEntity produces the graph node name for an entity mention.
func normalizeEntity(text string) string {
	return strings.Trim(normalizeQuery(text), trimChars)
}
