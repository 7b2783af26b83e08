package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned by ResolveBackend for unsupported names.
var ErrUnknownBackend = errors.New("unknown compute backend")

// Backend computes the affine maps of the forward pass. Every backend must
// produce the same result; they differ only in how they get there.
type Backend interface {
	Name() string
	// Affine writes w·x + b into out. len(out) == len(w) == len(b).
	Affine(w [][]float64, x, b, out []float64)
}

// ResolveBackend maps a configured backend name to an implementation.
// "auto" and "" resolve to the sparse backend.
func ResolveBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto", "sparse":
		return sparseBackend{}, nil
	case "cpu", "dense":
		return denseBackend{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// denseBackend computes full matrix-vector products.
type denseBackend struct{}

func (denseBackend) Name() string { return "cpu" }

func (denseBackend) Affine(w [][]float64, x, b, out []float64) {
	for r, row := range w {
		sum := b[r]
		for j, v := range row {
			sum += v * x[j]
		}
		out[r] = sum
	}
}

// sparseBackend skips zero inputs. Bag-of-words vectors set only a handful of
// coordinates, so the first layer touches a few columns instead of the whole vocabulary.
type sparseBackend struct{}

func (sparseBackend) Name() string { return "sparse" }

func (sparseBackend) Affine(w [][]float64, x, b, out []float64) {
	nz := make([]int, 0, 16)
	for j, v := range x {
		if v != 0 {
			nz = append(nz, j)
		}
	}
	for r, row := range w {
		sum := b[r]
		for _, j := range nz {
			sum += row[j] * x[j]
		}
		out[r] = sum
	}
}
