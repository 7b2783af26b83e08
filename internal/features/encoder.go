package features

import "github.com/hyperjump/intentbot/internal/nlp"

// Encode returns the bag-of-words vector of tokens over v: coordinate i is 1
// when v[i] occurs in tokens, else 0. Tokens must already be stemmed; tokens
// outside the vocabulary are dropped.
func Encode(tokens []string, v Vocabulary) []float64 {
	vec := make([]float64, len(v))
	for _, tok := range tokens {
		if i, ok := v.Index(tok); ok {
			vec[i] = 1
		}
	}
	return vec
}

// EncodeText normalizes text and encodes it over v.
func EncodeText(text string, v Vocabulary) []float64 {
	return Encode(nlp.Normalize(text), v)
}

// IsZero reports whether vec has no non-zero coordinate.
func IsZero(vec []float64) bool {
	for _, x := range vec {
		if x != 0 {
			return false
		}
	}
	return true
}
