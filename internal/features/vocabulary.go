// Package features builds the vocabulary and tag list from a corpus and encodes
// token sequences as bag-of-words vectors over that vocabulary.
package features

import (
	"sort"

	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/nlp"
	"github.com/samber/lo"
)

// Vocabulary is the sorted list of unique stemmed tokens. A token's position is
// its coordinate in every feature vector.
type Vocabulary []string

// TagList is the sorted list of unique intent tags. A tag's position is its
// output class index.
type TagList []string

// Example is one training pair derived from a pattern.
type Example struct {
	Tokens []string
	Tag    string
}

// BuildVocabulary derives the vocabulary and tag list from c. Output order is
// lexicographic so the same corpus always yields the same mapping.
func BuildVocabulary(c *corpus.Corpus) (Vocabulary, TagList) {
	var words []string
	tags := make([]string, 0, len(c.Intents))
	for _, in := range c.Intents {
		tags = append(tags, in.Tag)
		for _, p := range in.Patterns {
			for _, tok := range nlp.Tokenize(p) {
				if nlp.Ignored(tok) {
					continue
				}
				words = append(words, nlp.Stem(tok))
			}
		}
	}
	words = lo.Uniq(words)
	sort.Strings(words)
	tags = lo.Uniq(tags)
	sort.Strings(tags)
	return Vocabulary(words), TagList(tags)
}

// Examples returns one (stemmed tokens, tag) pair per pattern, in corpus order.
func Examples(c *corpus.Corpus) []Example {
	out := make([]Example, 0, c.PatternCount())
	for _, in := range c.Intents {
		for _, p := range in.Patterns {
			out = append(out, Example{Tokens: nlp.Normalize(p), Tag: in.Tag})
		}
	}
	return out
}

// Index returns the coordinate of token.
func (v Vocabulary) Index(token string) (int, bool) {
	i := sort.SearchStrings(v, token)
	if i < len(v) && v[i] == token {
		return i, true
	}
	return -1, false
}

// Index returns the class index of tag.
func (t TagList) Index(tag string) (int, bool) {
	i := sort.SearchStrings(t, tag)
	if i < len(t) && t[i] == tag {
		return i, true
	}
	return -1, false
}
