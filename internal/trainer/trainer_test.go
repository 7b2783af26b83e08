package trainer

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/features"
	"github.com/hyperjump/intentbot/internal/model"
	"github.com/hyperjump/intentbot/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func toyCorpus() *corpus.Corpus {
	return &corpus.Corpus{Intents: []corpus.Intent{
		{
			Tag:       "greeting",
			Patterns:  []string{"hello", "hi there", "good morning", "hey", "greetings friend"},
			Responses: []string{"Hello!"},
		},
		{
			Tag:       "membership",
			Patterns:  []string{"how much is membership", "monthly fee", "price of a plan", "what does it cost", "subscription pricing"},
			Responses: []string{"Plans start at $20/month."},
		},
	}}
}

func seeded() Option {
	return WithRand(rand.New(rand.NewPCG(42, 1337)))
}

func TestFit_ToyCorpusReachesFullAccuracy(t *testing.T) {
	res, err := New(DefaultConfig(), seeded()).Fit(context.Background(), toyCorpus())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if res.Accuracy != 1 {
		t.Errorf("accuracy = %v, want 1", res.Accuracy)
	}
	if res.Epochs != 1000 || res.Examples != 10 {
		t.Errorf("epochs=%d examples=%d", res.Epochs, res.Examples)
	}
	if res.Classifier.InputSize != len(res.Vocabulary) || res.Classifier.OutputSize != len(res.Tags) {
		t.Errorf("classifier %dx%d vs vocab %d tags %d",
			res.Classifier.InputSize, res.Classifier.OutputSize, len(res.Vocabulary), len(res.Tags))
	}
	if math.IsNaN(res.Loss) || res.Loss <= 0 || res.Loss > math.Log(2) {
		t.Errorf("final loss %v out of range", res.Loss)
	}
	for _, ex := range features.Examples(toyCorpus()) {
		idx, _ := res.Classifier.Predict(features.Encode(ex.Tokens, res.Vocabulary))
		if res.Tags[idx] != ex.Tag {
			t.Errorf("%v predicted %s, want %s", ex.Tokens, res.Tags[idx], ex.Tag)
		}
	}
}

func TestFit_LossDecreases(t *testing.T) {
	short, err := New(Config{Epochs: 5}, seeded()).Fit(context.Background(), toyCorpus())
	if err != nil {
		t.Fatal(err)
	}
	long, err := New(Config{Epochs: 500}, seeded()).Fit(context.Background(), toyCorpus())
	if err != nil {
		t.Fatal(err)
	}
	if long.Loss >= short.Loss {
		t.Errorf("loss after 500 epochs (%v) not below loss after 5 (%v)", long.Loss, short.Loss)
	}
}

func TestFit_EmptyCorpus(t *testing.T) {
	tests := []struct {
		name string
		c    *corpus.Corpus
	}{
		{"nil", nil},
		{"no intents", &corpus.Corpus{}},
		{"no patterns", &corpus.Corpus{Intents: []corpus.Intent{{Tag: "a", Responses: []string{"x"}}}}},
		{"punctuation only", &corpus.Corpus{Intents: []corpus.Intent{{Tag: "a", Patterns: []string{"?!"}, Responses: []string{"x"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(DefaultConfig()).Fit(context.Background(), tt.c)
			if !errors.Is(err, corpus.ErrEmptyCorpus) {
				t.Errorf("got %v, want ErrEmptyCorpus", err)
			}
		})
	}
}

func TestFit_Unseeded(t *testing.T) {
	cfg := Config{Epochs: 1}
	a, err := New(cfg).Fit(context.Background(), toyCorpus())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(cfg).Fit(context.Background(), toyCorpus())
	if err != nil {
		t.Fatal(err)
	}
	if a.Classifier.Params.W1[0][0] == b.Classifier.Params.W1[0][0] {
		t.Error("two unseeded runs started from identical weights")
	}
}

func TestFit_SeededReproducible(t *testing.T) {
	cfg := Config{Epochs: 20}
	a, _ := New(cfg, seeded()).Fit(context.Background(), toyCorpus())
	b, _ := New(cfg, seeded()).Fit(context.Background(), toyCorpus())
	if a.Loss != b.Loss {
		t.Errorf("same seed, different loss: %v vs %v", a.Loss, b.Loss)
	}
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(DefaultConfig()).Fit(ctx, toyCorpus()); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestFit_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := toyCorpus()
	c.Intents = append(c.Intents, corpus.Intent{Tag: "silent", Responses: []string{"..."}})
	_, err := New(Config{Epochs: 30, LogEvery: 10}, seeded(), WithLogger(zap.New(core))).Fit(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	if n := logs.FilterMessage("epoch").Len(); n != 3 {
		t.Errorf("epoch logs = %d, want 3", n)
	}
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warn) != 1 || warn[0].ContextMap()["tag"] != "silent" {
		t.Errorf("warnings = %+v", warn)
	}
}

func TestFit_Backends(t *testing.T) {
	for _, name := range []string{"cpu", "sparse"} {
		b, err := model.ResolveBackend(name)
		if err != nil {
			t.Fatal(err)
		}
		res, err := New(Config{Epochs: 10}, seeded(), WithBackend(b)).Fit(context.Background(), toyCorpus())
		if err != nil {
			t.Fatal(err)
		}
		if res.Classifier.Backend() != name {
			t.Errorf("backend = %s, want %s", res.Classifier.Backend(), name)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	got := New(Config{LearningRate: -1, LogEvery: -5}).Config()
	want := DefaultConfig()
	want.LogEvery = 0
	if got != want {
		t.Errorf("Config() = %+v, want %+v", got, want)
	}
}

// Numerical gradient check on a tiny network.
func TestBackward_MatchesFiniteDifference(t *testing.T) {
	clf, err := model.NewClassifier(3, 4, 2, rand.New(rand.NewPCG(9, 9)))
	if err != nil {
		t.Fatal(err)
	}
	batch := []sample{{x: []float64{1, 0, 1}, label: 1}, {x: []float64{0, 1, 0}, label: 0}}
	g := zerosLike(clf.Params)
	backward(clf, batch, g)

	meanLoss := func() float64 {
		var l float64
		for _, s := range batch {
			l -= math.Log(utils.Softmax(clf.Forward(s.x))[s.label])
		}
		return l / float64(len(batch))
	}
	const eps = 1e-6
	check := func(name string, w *float64, analytic float64) {
		orig := *w
		*w = orig + eps
		up := meanLoss()
		*w = orig - eps
		down := meanLoss()
		*w = orig
		numeric := (up - down) / (2 * eps)
		if math.Abs(numeric-analytic) > 1e-5 {
			t.Errorf("%s: analytic %v numeric %v", name, analytic, numeric)
		}
	}
	check("W2[1][2]", &clf.Params.W2[1][2], g.W2[1][2])
	check("B2[0]", &clf.Params.B2[0], g.B2[0])
	check("W1[0][0]", &clf.Params.W1[0][0], g.W1[0][0])
	check("B1[3]", &clf.Params.B1[3], g.B1[3])
}
