// Package trainer fits the intent classifier to a corpus with mini-batch Adam
// on a cross-entropy objective.
package trainer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/features"
	"github.com/hyperjump/intentbot/internal/model"
	"github.com/hyperjump/intentbot/pkg/utils"
	"go.uber.org/zap"
)

// Config holds training hyperparameters. Non-positive values fall back to the defaults.
type Config struct {
	HiddenSize   int
	Epochs       int
	BatchSize    int
	LearningRate float64
	// LogEvery logs the epoch loss every N epochs; 0 disables progress logs.
	LogEvery int
}

// DefaultConfig returns the stock hyperparameters.
func DefaultConfig() Config {
	return Config{
		HiddenSize:   model.DefaultHiddenSize,
		Epochs:       1000,
		BatchSize:    8,
		LearningRate: 0.001,
		LogEvery:     100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HiddenSize <= 0 {
		c.HiddenSize = d.HiddenSize
	}
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.LogEvery < 0 {
		c.LogEvery = 0
	}
	return c
}

// Result is a fitted classifier with the mappings it was trained against.
type Result struct {
	Classifier *model.Classifier
	Vocabulary features.Vocabulary
	Tags       features.TagList
	// Loss is the mean cross-entropy of the last epoch.
	Loss float64
	// Accuracy is the training-set accuracy after the last epoch.
	Accuracy float64
	Epochs   int
	Examples int
	Duration time.Duration
}

// Trainer fits classifiers. It is not safe for concurrent use when a shared
// random source is injected.
type Trainer struct {
	cfg     Config
	rng     *rand.Rand
	backend model.Backend
	logger  *zap.Logger
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithRand sets the source for weight init and shuffling. Without it every
// run starts from fresh random weights.
func WithRand(r *rand.Rand) Option {
	return func(t *Trainer) { t.rng = r }
}

// WithBackend sets the compute backend of the trained classifier.
func WithBackend(b model.Backend) Option {
	return func(t *Trainer) { t.backend = b }
}

// New creates a trainer.
func New(cfg Config, opts ...Option) *Trainer {
	t := &Trainer{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	t.logger = utils.OrNop(t.logger)
	return t
}

// Config returns the effective hyperparameters.
func (t *Trainer) Config() Config {
	return t.cfg
}

type sample struct {
	x     []float64
	label int
}

// Fit trains a new classifier on c for the full epoch budget. It returns
// corpus.ErrEmptyCorpus when c yields no training pairs. ctx is checked
// between epochs.
func (t *Trainer) Fit(ctx context.Context, c *corpus.Corpus) (*Result, error) {
	if c == nil || c.PatternCount() == 0 {
		return nil, fmt.Errorf("%w: no training patterns", corpus.ErrEmptyCorpus)
	}
	for _, tag := range c.EmptyIntents() {
		t.logger.Warn("intent has no patterns and can never be predicted", zap.String("tag", tag))
	}

	vocab, tags := features.BuildVocabulary(c)
	if len(vocab) == 0 {
		return nil, fmt.Errorf("%w: patterns produce an empty vocabulary", corpus.ErrEmptyCorpus)
	}
	samples := make([]sample, 0, c.PatternCount())
	for _, ex := range features.Examples(c) {
		label, ok := tags.Index(ex.Tag)
		if !ok {
			return nil, fmt.Errorf("example tag %q missing from tag list", ex.Tag)
		}
		samples = append(samples, sample{x: features.Encode(ex.Tokens, vocab), label: label})
	}

	var opts []model.Option
	if t.backend != nil {
		opts = append(opts, model.WithBackend(t.backend))
	}
	clf, err := model.NewClassifier(len(vocab), t.cfg.HiddenSize, len(tags), t.rng, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	t.logger.Info("training started",
		zap.Int("examples", len(samples)),
		zap.Int("vocabulary", len(vocab)),
		zap.Int("tags", len(tags)),
		zap.Int("hidden", t.cfg.HiddenSize),
		zap.Int("epochs", t.cfg.Epochs),
		zap.String("backend", clf.Backend()),
	)

	start := time.Now()
	opt := newAdam(t.cfg.LearningRate, clf.Params)
	g := zerosLike(clf.Params)
	var loss float64
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training interrupted at epoch %d: %w", epoch, err)
		}
		t.rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })
		var total float64
		for lo := 0; lo < len(samples); lo += t.cfg.BatchSize {
			hi := min(lo+t.cfg.BatchSize, len(samples))
			total += backward(clf, samples[lo:hi], g)
			opt.Step(&clf.Params, g)
		}
		loss = total / float64(len(samples))
		if t.cfg.LogEvery > 0 && epoch%t.cfg.LogEvery == 0 {
			t.logger.Info("epoch", zap.Int("epoch", epoch), zap.Int("of", t.cfg.Epochs), zap.Float64("loss", loss))
		}
	}

	res := &Result{
		Classifier: clf,
		Vocabulary: vocab,
		Tags:       tags,
		Loss:       loss,
		Accuracy:   accuracy(clf, samples),
		Epochs:     t.cfg.Epochs,
		Examples:   len(samples),
		Duration:   time.Since(start),
	}
	t.logger.Info("training finished",
		zap.Float64("loss", res.Loss),
		zap.Float64("accuracy", res.Accuracy),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}

// backward fills g with the mean cross-entropy gradient over batch and
// returns the summed loss.
func backward(clf *model.Classifier, batch []sample, g model.Params) float64 {
	resetGrads(g)
	n := float64(len(batch))
	dh := make([]float64, clf.HiddenSize)
	var loss float64
	for _, s := range batch {
		h, logits := clf.Activations(s.x)
		probs := utils.Softmax(logits)
		loss -= math.Log(math.Max(probs[s.label], math.SmallestNonzeroFloat64))

		clear(dh)
		for o, p := range probs {
			dz := p
			if o == s.label {
				dz -= 1
			}
			dz /= n
			g.B2[o] += dz
			for j, hj := range h {
				g.W2[o][j] += dz * hj
				dh[j] += clf.Params.W2[o][j] * dz
			}
		}
		for j, d := range dh {
			// ReLU gate: inactive units pass no gradient.
			if h[j] <= 0 || d == 0 {
				continue
			}
			g.B1[j] += d
			row := g.W1[j]
			for i, xi := range s.x {
				if xi != 0 {
					row[i] += d * xi
				}
			}
		}
	}
	return loss
}

func resetGrads(g model.Params) {
	clear(g.B1)
	clear(g.B2)
	for _, row := range g.W1 {
		clear(row)
	}
	for _, row := range g.W2 {
		clear(row)
	}
}

// accuracy returns the fraction of samples whose argmax class matches the label.
func accuracy(clf *model.Classifier, samples []sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for _, s := range samples {
		if idx, _ := clf.Predict(s.x); idx == s.label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}
