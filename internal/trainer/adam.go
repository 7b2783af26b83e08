package trainer

import (
	"math"

	"github.com/hyperjump/intentbot/internal/model"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// adam keeps first and second moment estimates shaped like the parameters.
type adam struct {
	lr   float64
	step int
	m    model.Params
	v    model.Params
}

func newAdam(lr float64, like model.Params) *adam {
	return &adam{lr: lr, m: zerosLike(like), v: zerosLike(like)}
}

// Step applies one bias-corrected update of g to p.
func (a *adam) Step(p *model.Params, g model.Params) {
	a.step++
	c1 := 1 - math.Pow(adamBeta1, float64(a.step))
	c2 := 1 - math.Pow(adamBeta2, float64(a.step))
	update := func(w, grad, m, v []float64) {
		for i := range w {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*grad[i]
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*grad[i]*grad[i]
			w[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEpsilon)
		}
	}
	for r := range p.W1 {
		update(p.W1[r], g.W1[r], a.m.W1[r], a.v.W1[r])
	}
	update(p.B1, g.B1, a.m.B1, a.v.B1)
	for r := range p.W2 {
		update(p.W2[r], g.W2[r], a.m.W2[r], a.v.W2[r])
	}
	update(p.B2, g.B2, a.m.B2, a.v.B2)
}

func zerosLike(p model.Params) model.Params {
	z := model.Params{
		W1: make([][]float64, len(p.W1)),
		B1: make([]float64, len(p.B1)),
		W2: make([][]float64, len(p.W2)),
		B2: make([]float64, len(p.B2)),
	}
	for i, row := range p.W1 {
		z.W1[i] = make([]float64, len(row))
	}
	for i, row := range p.W2 {
		z.W2[i] = make([]float64, len(row))
	}
	return z
}
