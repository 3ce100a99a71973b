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
	"sort"

	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/task"
)

// Featureless is the baseline learner: it ignores all features and
// predicts the majority class (classification) or the mean/median of
// the target (regression). Every benchmark should include it; a model
// that cannot beat the baseline has learned nothing.
type Featureless struct {
	base
}

// NewFeatureless creates the baseline learner. Parameter "method"
// ("mean" or "median") selects the regression aggregate.
func NewFeatureless() *Featureless {
	set := params.MustNewSet(params.Discrete("method", "mean", "median"))
	return &Featureless{base: newBase("featureless", set, params.Assignment{"method": "mean"})}
}

// Supports reports true for both problem types.
func (l *Featureless) Supports(t task.Type) bool { return true }

// Clone returns an independent copy.
func (l *Featureless) Clone() Learner {
	return &Featureless{base: l.cloneBase()}
}

// Train computes the constant prediction from the training targets.
func (l *Featureless) Train(ctx context.Context, tk *task.Task) (Model, error) {
	if err := checkTrainable(l, tk); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if tk.Type() == task.Classif {
		y, err := tk.TargetFactor()
		if err != nil {
			return nil, err
		}
		levels := tk.ClassLevels()
		counts := make(map[string]int)
		for _, v := range y {
			counts[v]++
		}
		best := levels[0]
		for _, lvl := range levels {
			if counts[lvl] > counts[best] {
				best = lvl
			}
		}
		freq := make([]float64, len(levels))
		for i, lvl := range levels {
			freq[i] = float64(counts[lvl]) / float64(len(y))
		}
		return &featurelessModel{id: l.id, typ: task.Classif, class: best, levels: levels, freq: freq}, nil
	}

	y, err := tk.TargetNumeric()
	if err != nil {
		return nil, err
	}
	var value float64
	if l.str("method") == "median" {
		sorted := append([]float64(nil), y...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			value = (sorted[mid-1] + sorted[mid]) / 2
		} else {
			value = sorted[mid]
		}
	} else {
		for _, v := range y {
			value += v
		}
		value /= float64(len(y))
	}
	return &featurelessModel{id: l.id, typ: task.Regr, value: value}, nil
}

type featurelessModel struct {
	id     string
	typ    task.Type
	value  float64
	class  string
	levels []string
	freq   []float64
}

func (m *featurelessModel) LearnerID() string { return m.id }

func (m *featurelessModel) Predict(ctx context.Context, tk *task.Task) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := tk.NRows()
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
		for i := 0; i < n; i++ {
			pred.RespC[i] = m.class
			pred.Prob[i] = m.freq
		}
		return pred, nil
	}

	truth, err := tk.TargetNumeric()
	if err != nil {
		return nil, err
	}
	pred.TruthF = truth
	pred.RespF = make([]float64, n)
	for i := 0; i < n; i++ {
		pred.RespF[i] = m.value
	}
	return pred, nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
