// Package chatbot answers messages from a trained snapshot: normalize, encode,
// classify and pick a canned response when the prediction is confident enough.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/features"
	"github.com/hyperjump/intentbot/internal/model"
	"github.com/hyperjump/intentbot/internal/snapshot"
	"github.com/hyperjump/intentbot/pkg/utils"
	"go.uber.org/zap"
)

const (
	// ConfidenceThreshold is the probability a prediction must strictly exceed.
	ConfidenceThreshold = 0.75
	// DefaultFallback is returned when no intent is confident enough.
	DefaultFallback = "I do not understand..."
)

// ErrUnknownTag is returned when a snapshot tag has no intent with responses.
var ErrUnknownTag = errors.New("snapshot tag has no responses")

// Reply is the outcome of answering one message.
type Reply struct {
	Text       string  `json:"response"`
	Tag        string  `json:"tag,omitempty"`
	Confidence float64 `json:"confidence"`
	Matched    bool    `json:"matched"`
}

// Responder answers a message. Implementations always return a non-empty Text.
type Responder interface {
	Respond(ctx context.Context, message string) Reply
}

// Service is a loaded classifier plus the responses of each tag. It is
// immutable after construction and safe for concurrent use.
type Service struct {
	snap      *snapshot.Snapshot
	clf       *model.Classifier
	vocab     features.Vocabulary
	tags      features.TagList
	responses map[string][]string
	fallback  string
	pick      func(n int) int
	backend   model.Backend
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPicker sets the function choosing a response index in [0, n). Defaults
// to rand.IntN from math/rand/v2.
func WithPicker(pick func(n int) int) Option {
	return func(s *Service) {
		if pick != nil {
			s.pick = pick
		}
	}
}

// WithFallback overrides the low-confidence reply.
func WithFallback(text string) Option {
	return func(s *Service) {
		if text != "" {
			s.fallback = text
		}
	}
}

// WithBackend sets the compute backend of the classifier.
func WithBackend(b model.Backend) Option {
	return func(s *Service) { s.backend = b }
}

// WithLogger sets a logger for debug output (predictions).
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New builds a service from a snapshot and the corpus holding the responses.
// Every snapshot tag must map to an intent with at least one response.
func New(snap *snapshot.Snapshot, c *corpus.Corpus, opts ...Option) (*Service, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	if c == nil {
		return nil, fmt.Errorf("nil corpus")
	}
	s := &Service{
		snap:     snap,
		vocab:    snap.Vocabulary(),
		tags:     snap.TagList(),
		fallback: DefaultFallback,
		pick:     rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)

	var clfOpts []model.Option
	if s.backend != nil {
		clfOpts = append(clfOpts, model.WithBackend(s.backend))
	}
	clf, err := snap.Classifier(clfOpts...)
	if err != nil {
		return nil, err
	}
	s.clf = clf

	all := c.Responses()
	s.responses = make(map[string][]string, len(s.tags))
	for _, tag := range s.tags {
		rs := all[tag]
		if len(rs) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
		}
		s.responses[tag] = rs
	}
	return s, nil
}

// Load reads the snapshot at path and builds a service over c.
func Load(path string, c *corpus.Corpus, opts ...Option) (*Service, error) {
	snap, err := snapshot.Load(path)
	if err != nil {
		return nil, err
	}
	return New(snap, c, opts...)
}

// Snapshot returns the snapshot the service was built from.
func (s *Service) Snapshot() *snapshot.Snapshot {
	return s.snap
}

// Backend returns the name of the classifier's compute backend.
func (s *Service) Backend() string {
	return s.clf.Backend()
}

// Decide applies the confidence threshold to a probability distribution. It
// returns the argmax index (first wins ties) and whether it strictly exceeds
// ConfidenceThreshold.
func Decide(probs []float64) (int, bool) {
	idx, p := utils.Argmax(probs)
	return idx, idx >= 0 && p > ConfidenceThreshold
}

// Predict returns the tag probabilities for message. A message with no known
// word yields nil.
func (s *Service) Predict(message string) []float64 {
	x := features.EncodeText(message, s.vocab)
	if features.IsZero(x) {
		return nil
	}
	return utils.Softmax(s.clf.Forward(x))
}

// Respond answers message. Messages without any vocabulary word always get
// the fallback, whatever the classifier would say about an all-zero input.
func (s *Service) Respond(_ context.Context, message string) Reply {
	probs := s.Predict(message)
	if probs == nil {
		return Reply{Text: s.fallback}
	}
	idx, ok := Decide(probs)
	tag := s.tags[idx]
	s.logger.Debug("prediction", zap.String("tag", tag), zap.Float64("confidence", probs[idx]), zap.Bool("matched", ok))
	if !ok {
		return Reply{Text: s.fallback, Tag: tag, Confidence: probs[idx]}
	}
	rs := s.responses[tag]
	return Reply{Text: rs[s.pick(len(rs))], Tag: tag, Confidence: probs[idx], Matched: true}
}

// Reply answers message with text only.
func (s *Service) Reply(ctx context.Context, message string) string {
	return s.Respond(ctx, message).Text
}
