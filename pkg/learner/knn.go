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
	"sort"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/task"
)

// KNN is a k-nearest-neighbor learner for classification and
// regression. Numeric features use squared Euclidean distance after
// per-feature min-max scaling learned on the training data; factor
// features contribute 0/1 mismatch distance. Unseen factor levels at
// predict time count as a mismatch.
type KNN struct {
	base
}

// NewKNN creates a KNN learner. Parameters: "k" (1..50, default 7)
// and "weighted" (inverse-distance vote weighting, default false).
func NewKNN() *KNN {
	set := params.MustNewSet(
		params.Integer("k", 1, 50),
		params.Logical("weighted"),
	)
	return &KNN{base: newBase("knn", set, params.Assignment{"k": 7, "weighted": false})}
}

// Supports reports true for both problem types.
func (l *KNN) Supports(t task.Type) bool { return true }

// Clone returns an independent copy.
func (l *KNN) Clone() Learner { return &KNN{base: l.cloneBase()} }

type knnModel struct {
	id       string
	typ      task.Type
	k        int
	weighted bool

	features []string
	ftypes   []dataset.FeatureType
	mins     []float64
	spans    []float64

	train  *dataset.Dataset
	yF     []float64
	yC     []string
	levels []string
}

// Train memorizes the (scaled) training data.
func (l *KNN) Train(ctx context.Context, tk *task.Task) (Model, error) {
	if err := checkTrainable(l, tk); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &knnModel{
		id:       l.id,
		typ:      tk.Type(),
		k:        l.int("k"),
		weighted: l.bool("weighted"),
		features: tk.FeatureNames(),
		train:    tk.Dataset(),
	}

	m.ftypes = make([]dataset.FeatureType, len(m.features))
	m.mins = make([]float64, len(m.features))
	m.spans = make([]float64, len(m.features))
	for i, name := range m.features {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		m.ftypes[i] = col.Type
		if col.Type == dataset.Numeric {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range col.Numeric {
				if math.IsNaN(v) {
					continue
				}
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			m.mins[i] = lo
			if span := hi - lo; span > 0 {
				m.spans[i] = span
			} else {
				m.spans[i] = 1
			}
		}
	}

	var err error
	if tk.Type() == task.Classif {
		m.yC, err = tk.TargetFactor()
		m.levels = tk.ClassLevels()
	} else {
		m.yF, err = tk.TargetNumeric()
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *knnModel) LearnerID() string { return m.id }

// distance computes the scaled distance between query row qi of qds
// and train row ti. Missing numeric values contribute the maximum
// per-feature distance of 1.
func (m *knnModel) distance(qds *dataset.Dataset, qi, ti int) float64 {
	d := 0.0
	for f, name := range m.features {
		qc, _ := qds.Column(name)
		tc, _ := m.train.Column(name)
		if m.ftypes[f] == dataset.Numeric {
			qv, tv := qc.Numeric[qi], tc.Numeric[ti]
			if math.IsNaN(qv) || math.IsNaN(tv) {
				d += 1
				continue
			}
			diff := (qv - m.mins[f]) / m.spans[f]
			diff -= (tv - m.mins[f]) / m.spans[f]
			d += diff * diff
		} else {
			if qc.Factor[qi] != tc.Factor[ti] {
				d += 1
			}
		}
	}
	return d
}

func (m *knnModel) Predict(ctx context.Context, tk *task.Task) (*Prediction, error) {
	qds := tk.Dataset()
	for _, name := range m.features {
		if !qds.Has(name) {
			return nil, fmt.Errorf("learner %s: predict task is missing feature %q", m.id, name)
		}
	}
	n := qds.NRows()
	trainN := m.train.NRows()
	k := m.k
	if k > trainN {
		k = trainN
	}

	pred := &Prediction{Type: m.typ, Rows: seq(n)}
	if m.typ == task.Classif {
		truth, err := tk.TargetFactor()
		if err != nil {
			return nil, err
		}
		pred.TruthC = truth
		pred.RespC = make([]string, n)
		pred.Levels = m.levels
		pred.Prob = make([][]float64, n)
	} else {
		truth, err := tk.TargetNumeric()
		if err != nil {
			return nil, err
		}
		pred.TruthF = truth
		pred.RespF = make([]float64, n)
	}

	type neighbor struct {
		dist float64
		idx  int
	}
	for qi := 0; qi < n; qi++ {
		if qi%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		neighbors := make([]neighbor, trainN)
		for ti := 0; ti < trainN; ti++ {
			neighbors[ti] = neighbor{dist: m.distance(qds, qi, ti), idx: ti}
		}
		sort.Slice(neighbors, func(a, b int) bool { return neighbors[a].dist < neighbors[b].dist })
		nearest := neighbors[:k]

		if m.typ == task.Classif {
			votes := make(map[string]float64, len(m.levels))
			for _, nb := range nearest {
				votes[m.yC[nb.idx]] += m.voteWeight(nb.dist)
			}
			total := 0.0
			for _, w := range votes {
				total += w
			}
			best := m.levels[0]
			probs := make([]float64, len(m.levels))
			for i, lvl := range m.levels {
				probs[i] = votes[lvl] / total
				if votes[lvl] > votes[best] {
					best = lvl
				}
			}
			pred.RespC[qi] = best
			pred.Prob[qi] = probs
		} else {
			sum, wsum := 0.0, 0.0
			for _, nb := range nearest {
				w := m.voteWeight(nb.dist)
				sum += w * m.yF[nb.idx]
				wsum += w
			}
			pred.RespF[qi] = sum / wsum
		}
	}
	return pred, nil
}

func (m *knnModel) voteWeight(dist float64) float64 {
	if !m.weighted {
		return 1
	}
	return 1 / (dist + 1e-9)
}
