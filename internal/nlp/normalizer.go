// Package nlp turns raw text into the stemmed tokens the classifier is trained on.
// It reuses Bleve's analysis chain: Unicode (UAX #29) word segmentation, lower-casing
// and the Porter stemmer.
package nlp

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// IgnoredTokens are punctuation tokens dropped before stemming.
var IgnoredTokens = map[string]struct{}{
	"?": {},
	".": {},
	"!": {},
	",": {},
}

var (
	tokenizer = unicode.NewUnicodeTokenizer()
	lower     = lowercase.NewLowerCaseFilter()
	stemmer   = porter.NewPorterStemmer()
)

// Tokenize splits text into word tokens in order of appearance.
// The empty string yields an empty slice.
func Tokenize(text string) []string {
	stream := tokenizer.Tokenize([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}

// Stem lower-cases token and reduces it to its Porter root.
func Stem(token string) string {
	stream := analysis.TokenStream{&analysis.Token{Term: []byte(token)}}
	stream = stemmer.Filter(lower.Filter(stream))
	return string(stream[0].Term)
}

// Ignored reports whether token is in the punctuation ignore set.
func Ignored(token string) bool {
	_, ok := IgnoredTokens[token]
	return ok
}

// Normalize tokenizes text and stems every non-ignored token.
func Normalize(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if Ignored(tok) {
			continue
		}
		out = append(out, Stem(tok))
	}
	return out
}
