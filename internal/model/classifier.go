// Package model defines the feed-forward intent classifier: one ReLU hidden layer
// between a bag-of-words input and raw per-tag scores (logits).
package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/hyperjump/intentbot/pkg/utils"
)

// DefaultHiddenSize is the hidden layer width used when none is configured.
const DefaultHiddenSize = 8

// Params holds the classifier weights. W1 is hidden×input, W2 is output×hidden.
type Params struct {
	W1 [][]float64
	B1 []float64
	W2 [][]float64
	B2 []float64
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	return Params{
		W1: cloneMatrix(p.W1),
		B1: append([]float64(nil), p.B1...),
		W2: cloneMatrix(p.W2),
		B2: append([]float64(nil), p.B2...),
	}
}

// Classifier maps a feature vector to logits over the tag list.
// Forward does not mutate the classifier, so a trained instance may be shared
// across goroutines.
type Classifier struct {
	InputSize  int
	HiddenSize int
	OutputSize int
	Params     Params
	backend    Backend
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBackend selects the compute backend. Defaults to ResolveBackend("auto").
func WithBackend(b Backend) Option {
	return func(c *Classifier) {
		if b != nil {
			c.backend = b
		}
	}
}

// NewClassifier creates a classifier with uniform random weights in
// [-1/sqrt(fan_in), 1/sqrt(fan_in)]. When rng is nil an unseeded source is used,
// so two calls never share initial weights.
func NewClassifier(input, hidden, output int, rng *rand.Rand, opts ...Option) (*Classifier, error) {
	if input <= 0 || hidden <= 0 || output <= 0 {
		return nil, fmt.Errorf("classifier sizes must be positive: input=%d hidden=%d output=%d", input, hidden, output)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	p := Params{
		W1: randomMatrix(rng, hidden, input),
		B1: randomVector(rng, hidden, input),
		W2: randomMatrix(rng, output, hidden),
		B2: randomVector(rng, output, hidden),
	}
	return newClassifier(input, hidden, output, p, opts), nil
}

// FromParams builds a classifier around existing weights after checking their shapes.
func FromParams(p Params, opts ...Option) (*Classifier, error) {
	hidden := len(p.W1)
	if hidden == 0 || len(p.W1[0]) == 0 {
		return nil, fmt.Errorf("empty first layer")
	}
	input := len(p.W1[0])
	output := len(p.W2)
	if output == 0 {
		return nil, fmt.Errorf("empty output layer")
	}
	if err := checkMatrix("l1 weight", p.W1, hidden, input); err != nil {
		return nil, err
	}
	if err := checkMatrix("l2 weight", p.W2, output, hidden); err != nil {
		return nil, err
	}
	if len(p.B1) != hidden {
		return nil, fmt.Errorf("l1 bias: got %d values, want %d", len(p.B1), hidden)
	}
	if len(p.B2) != output {
		return nil, fmt.Errorf("l2 bias: got %d values, want %d", len(p.B2), output)
	}
	return newClassifier(input, hidden, output, p, opts), nil
}

func newClassifier(input, hidden, output int, p Params, opts []Option) *Classifier {
	c := &Classifier{
		InputSize:  input,
		HiddenSize: hidden,
		OutputSize: output,
		Params:     p,
		backend:    sparseBackend{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the name of the compute backend in use.
func (c *Classifier) Backend() string {
	return c.backend.Name()
}

// Forward returns the logits for x. len(x) must equal InputSize.
func (c *Classifier) Forward(x []float64) []float64 {
	_, logits := c.Activations(x)
	return logits
}

// Activations returns the post-ReLU hidden layer and the logits for x.
func (c *Classifier) Activations(x []float64) (hidden, logits []float64) {
	hidden = make([]float64, c.HiddenSize)
	c.backend.Affine(c.Params.W1, x, c.Params.B1, hidden)
	for i, v := range hidden {
		if v < 0 {
			hidden[i] = 0
		}
	}
	logits = make([]float64, c.OutputSize)
	c.backend.Affine(c.Params.W2, hidden, c.Params.B2, logits)
	return hidden, logits
}

// Predict returns the most probable class and its softmax probability.
func (c *Classifier) Predict(x []float64) (int, float64) {
	return utils.Argmax(utils.Softmax(c.Forward(x)))
}

func randomMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = randomVector(rng, cols, cols)
	}
	return m
}

func randomVector(rng *rand.Rand, n, fanIn int) []float64 {
	bound := 1 / math.Sqrt(float64(fanIn))
	v := make([]float64, n)
	for i := range v {
		v[i] = (rng.Float64()*2 - 1) * bound
	}
	return v
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%s: got %d rows, want %d", name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%s: row %d has %d columns, want %d", name, i, len(row), cols)
		}
	}
	return nil
}
