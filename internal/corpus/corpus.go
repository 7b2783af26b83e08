// Package corpus loads and validates the hand-authored intents file used to
// train the classifier and to pick replies at inference time.
package corpus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var (
	// ErrEmptyCorpus is returned when the corpus yields no training patterns.
	ErrEmptyCorpus = errors.New("corpus has no training patterns")
	// ErrDuplicateTag is returned when two intents share a tag.
	ErrDuplicateTag = errors.New("duplicate intent tag")
)

var validate = validator.New()

// Intent is a named category of user request with example phrasings and candidate replies.
type Intent struct {
	Tag       string   `json:"tag" yaml:"tag" validate:"required"`
	Patterns  []string `json:"patterns" yaml:"patterns" validate:"dive,required"`
	Responses []string `json:"responses" yaml:"responses" validate:"min=1,dive,required"`
}

// Corpus is the full set of intents.
type Corpus struct {
	Intents []Intent `json:"intents" yaml:"intents" validate:"required,min=1,dive"`
}

// Validate checks structural constraints: every intent has a tag and at least
// one response, no pattern or response is blank, and tags are unique.
// Intents without patterns are allowed; see EmptyIntents.
func (c *Corpus) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid corpus: %w", err)
	}
	dups := lo.FindDuplicatesBy(c.Intents, func(i Intent) string { return i.Tag })
	if len(dups) > 0 {
		tags := lo.Map(dups, func(i Intent, _ int) string { return i.Tag })
		return fmt.Errorf("%w: %s", ErrDuplicateTag, strings.Join(tags, ", "))
	}
	return nil
}

// PatternCount returns the total number of patterns across all intents.
func (c *Corpus) PatternCount() int {
	return lo.SumBy(c.Intents, func(i Intent) int { return len(i.Patterns) })
}

// EmptyIntents returns the tags of intents that have no patterns. Such intents
// occupy a class slot but can never be predicted.
func (c *Corpus) EmptyIntents() []string {
	empty := lo.Filter(c.Intents, func(i Intent, _ int) bool { return len(i.Patterns) == 0 })
	return lo.Map(empty, func(i Intent, _ int) string { return i.Tag })
}

// Responses returns the candidate replies for tag keyed by tag.
func (c *Corpus) Responses() map[string][]string {
	out := make(map[string][]string, len(c.Intents))
	for _, in := range c.Intents {
		out[in.Tag] = append([]string(nil), in.Responses...)
	}
	return out
}

// Find returns the intent with the given tag.
func (c *Corpus) Find(tag string) (Intent, bool) {
	return lo.Find(c.Intents, func(i Intent) bool { return i.Tag == tag })
}
