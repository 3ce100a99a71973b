// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learner

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/task"
)

// encoder turns mixed-type feature rows into dense float vectors:
// numeric features are standardized (train mean/sd), factor features
// are one-hot encoded over the training levels. Unseen levels and
// missing values encode to all-zero positions.
type encoder struct {
	features []string
	ftypes   []dataset.FeatureType
	means    []float64
	sds      []float64
	levels   [][]string
	width    int
}

func fitEncoder(ds *dataset.Dataset, features []string) (*encoder, error) {
	e := &encoder{
		features: features,
		ftypes:   make([]dataset.FeatureType, len(features)),
		means:    make([]float64, len(features)),
		sds:      make([]float64, len(features)),
		levels:   make([][]string, len(features)),
	}
	for i, name := range features {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		e.ftypes[i] = col.Type
		if col.Type == dataset.Numeric {
			mean, sd := meanSD(col.Numeric)
			e.means[i] = mean
			if sd == 0 {
				sd = 1
			}
			e.sds[i] = sd
			e.width++
		} else {
			e.levels[i] = col.Levels()
			e.width += len(e.levels[i])
		}
	}
	return e, nil
}

func (e *encoder) encode(ds *dataset.Dataset, row int) []float64 {
	vec := make([]float64, e.width)
	pos := 0
	for i, name := range e.features {
		col, _ := ds.Column(name)
		if e.ftypes[i] == dataset.Numeric {
			v := col.Numeric[row]
			if !math.IsNaN(v) {
				vec[pos] = (v - e.means[i]) / e.sds[i]
			}
			pos++
			continue
		}
		v := col.Factor[row]
		for _, lvl := range e.levels[i] {
			if lvl == v {
				vec[pos] = 1
			}
			pos++
		}
	}
	return vec
}

func (e *encoder) check(ds *dataset.Dataset) error {
	for _, name := range e.features {
		if !ds.Has(name) {
			return fmt.Errorf("predict task is missing feature %q", name)
		}
	}
	return nil
}

func meanSD(xs []float64) (float64, float64) {
	n := 0
	sum := 0.0
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	mean := sum / float64(n)
	ss := 0.0
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(n))
}

func sgdParamSet() *params.Set {
	return params.MustNewSet(
		params.NumericLog("lr", 1e-4, 1),
		params.Integer("epochs", 1, 500),
		params.NumericLog("l2", 1e-8, 1),
	)
}

func sgdDefaults() params.Assignment {
	return params.Assignment{"lr": 0.01, "epochs": 100, "l2": 1e-4}
}

// LinearSGD is linear regression fit by stochastic gradient descent
// on squared error with L2 regularization.
type LinearSGD struct {
	base
}

// NewLinearSGD creates the learner. Parameters: "lr" (log scale),
// "epochs", "l2" (log scale).
func NewLinearSGD() *LinearSGD {
	return &LinearSGD{base: newBase("regr.linear", sgdParamSet(), sgdDefaults())}
}

// Supports reports true only for regression.
func (l *LinearSGD) Supports(t task.Type) bool { return t == task.Regr }

// Clone returns an independent copy.
func (l *LinearSGD) Clone() Learner { return &LinearSGD{base: l.cloneBase()} }

// Train runs SGD over shuffled epochs. The shuffle rng is seeded from
// the dataset size so retraining on the same task is deterministic.
func (l *LinearSGD) Train(ctx context.Context, tk *task.Task) (Model, error) {
	if err := checkTrainable(l, tk); err != nil {
		return nil, err
	}
	enc, err := fitEncoder(tk.Dataset(), tk.FeatureNames())
	if err != nil {
		return nil, err
	}
	y, err := tk.TargetNumeric()
	if err != nil {
		return nil, err
	}

	n := tk.NRows()
	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = enc.encode(tk.Dataset(), i)
	}

	w := make([]float64, enc.width)
	b := 0.0
	lr, l2 := l.float("lr"), l.float("l2")
	rng := rand.New(rand.NewSource(int64(n)*31 + int64(enc.width)))
	order := rng.Perm(n)

	for epoch := 0; epoch < l.int("epochs"); epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
		for _, i := range order {
			pred := b + dot(w, x[i])
			grad := pred - y[i]
			for j := range w {
				w[j] -= lr * (grad*x[i][j] + l2*w[j])
			}
			b -= lr * grad
		}
	}
	return &sgdModel{id: l.id, typ: task.Regr, enc: enc, w: w, b: b}, nil
}

// LogisticSGD is binary logistic regression fit by SGD.
type LogisticSGD struct {
	base
}

// NewLogisticSGD creates the learner. Same parameters as LinearSGD.
func NewLogisticSGD() *LogisticSGD {
	return &LogisticSGD{base: newBase("classif.logistic", sgdParamSet(), sgdDefaults())}
}

// Supports reports true only for classification.
func (l *LogisticSGD) Supports(t task.Type) bool { return t == task.Classif }

// Clone returns an independent copy.
func (l *LogisticSGD) Clone() Learner { return &LogisticSGD{base: l.cloneBase()} }

// Train fits the model. Only binary targets are supported; the second
// class level is the positive class.
func (l *LogisticSGD) Train(ctx context.Context, tk *task.Task) (Model, error) {
	if err := checkTrainable(l, tk); err != nil {
		return nil, err
	}
	levels := tk.ClassLevels()
	if len(levels) != 2 {
		return nil, fmt.Errorf("learner %s: needs a binary target, got %d levels", l.id, len(levels))
	}
	enc, err := fitEncoder(tk.Dataset(), tk.FeatureNames())
	if err != nil {
		return nil, err
	}
	yc, err := tk.TargetFactor()
	if err != nil {
		return nil, err
	}

	n := tk.NRows()
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = enc.encode(tk.Dataset(), i)
		if yc[i] == levels[1] {
			y[i] = 1
		}
	}

	w := make([]float64, enc.width)
	b := 0.0
	lr, l2 := l.float("lr"), l.float("l2")
	rng := rand.New(rand.NewSource(int64(n)*31 + int64(enc.width)))
	order := rng.Perm(n)

	for epoch := 0; epoch < l.int("epochs"); epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
		for _, i := range order {
			p := sigmoid(b + dot(w, x[i]))
			grad := p - y[i]
			for j := range w {
				w[j] -= lr * (grad*x[i][j] + l2*w[j])
			}
			b -= lr * grad
		}
	}
	return &sgdModel{id: l.id, typ: task.Classif, enc: enc, w: w, b: b, levels: levels}, nil
}

type sgdModel struct {
	id     string
	typ    task.Type
	enc    *encoder
	w      []float64
	b      float64
	levels []string
}

func (m *sgdModel) LearnerID() string { return m.id }

func (m *sgdModel) Predict(ctx context.Context, tk *task.Task) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.enc.check(tk.Dataset()); err != nil {
		return nil, fmt.Errorf("learner %s: %w", m.id, err)
	}

	n := tk.NRows()
	pred := &Prediction{Type: m.typ, Rows: seq(n)}

	if m.typ == task.Regr {
		truth, err := tk.TargetNumeric()
		if err != nil {
			return nil, err
		}
		pred.TruthF = truth
		pred.RespF = make([]float64, n)
		for i := 0; i < n; i++ {
			pred.RespF[i] = m.b + dot(m.w, m.enc.encode(tk.Dataset(), i))
		}
		return pred, nil
	}

	truth, err := tk.TargetFactor()
	if err != nil {
		return nil, err
	}
	pred.TruthC = truth
	pred.RespC = make([]string, n)
	pred.Levels = m.levels
	pred.Prob = make([][]float64, n)
	for i := 0; i < n; i++ {
		p := sigmoid(m.b + dot(m.w, m.enc.encode(tk.Dataset(), i)))
		pred.Prob[i] = []float64{1 - p, p}
		if p >= 0.5 {
			pred.RespC[i] = m.levels[1]
		} else {
			pred.RespC[i] = m.levels[0]
		}
	}
	return pred, nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
