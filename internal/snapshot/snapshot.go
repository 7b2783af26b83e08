// Package snapshot persists a trained classifier together with the vocabulary
// and tag list it depends on.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/intentbot/internal/features"
	"github.com/hyperjump/intentbot/internal/model"
	"github.com/hyperjump/intentbot/internal/trainer"
)

// ErrMismatch is returned when a snapshot's sizes disagree with its contents.
var ErrMismatch = errors.New("snapshot mismatch")

// ModelState holds the classifier parameters.
type ModelState struct {
	L1Weight [][]float64 `json:"l1_weight"`
	L1Bias   []float64   `json:"l1_bias"`
	L2Weight [][]float64 `json:"l2_weight"`
	L2Bias   []float64   `json:"l2_bias"`
}

// Snapshot is the artifact written by training and read by inference.
type Snapshot struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	ModelState ModelState `json:"model_state"`
	InputSize  int        `json:"input_size"`
	HiddenSize int        `json:"hidden_size"`
	OutputSize int        `json:"output_size"`
	AllWords   []string   `json:"all_words"`
	Tags       []string   `json:"tags"`
}

// FromTraining bundles a training result into a new snapshot.
func FromTraining(res *trainer.Result) *Snapshot {
	p := res.Classifier.Params.Clone()
	return &Snapshot{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		ModelState: ModelState{
			L1Weight: p.W1,
			L1Bias:   p.B1,
			L2Weight: p.W2,
			L2Bias:   p.B2,
		},
		InputSize:  res.Classifier.InputSize,
		HiddenSize: res.Classifier.HiddenSize,
		OutputSize: res.Classifier.OutputSize,
		AllWords:   append([]string(nil), res.Vocabulary...),
		Tags:       append([]string(nil), res.Tags...),
	}
}

// Vocabulary returns the snapshot's vocabulary.
func (s *Snapshot) Vocabulary() features.Vocabulary {
	return features.Vocabulary(s.AllWords)
}

// TagList returns the snapshot's tag list.
func (s *Snapshot) TagList() features.TagList {
	return features.TagList(s.Tags)
}

// Validate checks the declared sizes against the vocabulary, tag list and
// parameter shapes. Failures wrap ErrMismatch.
func (s *Snapshot) Validate() error {
	if s.InputSize <= 0 || s.HiddenSize <= 0 || s.OutputSize <= 0 {
		return fmt.Errorf("%w: sizes must be positive (input=%d hidden=%d output=%d)",
			ErrMismatch, s.InputSize, s.HiddenSize, s.OutputSize)
	}
	if len(s.AllWords) != s.InputSize {
		return fmt.Errorf("%w: input_size %d but %d words", ErrMismatch, s.InputSize, len(s.AllWords))
	}
	if len(s.Tags) != s.OutputSize {
		return fmt.Errorf("%w: output_size %d but %d tags", ErrMismatch, s.OutputSize, len(s.Tags))
	}
	clf, err := model.FromParams(s.params())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	if clf.InputSize != s.InputSize || clf.HiddenSize != s.HiddenSize || clf.OutputSize != s.OutputSize {
		return fmt.Errorf("%w: parameters are %dx%dx%d, declared %dx%dx%d", ErrMismatch,
			clf.InputSize, clf.HiddenSize, clf.OutputSize, s.InputSize, s.HiddenSize, s.OutputSize)
	}
	return nil
}

// Classifier rebuilds the classifier from the stored parameters.
func (s *Snapshot) Classifier(opts ...model.Option) (*model.Classifier, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return model.FromParams(s.params().Clone(), opts...)
}

func (s *Snapshot) params() model.Params {
	return model.Params{
		W1: s.ModelState.L1Weight,
		B1: s.ModelState.L1Bias,
		W2: s.ModelState.L2Weight,
		B2: s.ModelState.L2Bias,
	}
}

// Save writes s to path as JSON. The file is written next to the target and
// renamed over it, so readers never see a partial snapshot.
func Save(path string, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads and validates the snapshot at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	return &s, nil
}
