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
	"math"
	"sort"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/task"
)

// Stump is a single-split decision stump. It scans every feature for
// the best binary split (Gini impurity for classification, sum of
// squared errors for regression) and predicts a constant per side.
//
// Numeric splits test value < threshold over candidate midpoints;
// factor splits test value == level for each training level. Rows
// with missing values, and unseen levels at predict time, are routed
// to the side that held more training rows.
type Stump struct {
	base
}

// NewStump creates the learner. Parameter "minsplit" is the minimum
// number of rows required on each side of a split.
func NewStump() *Stump {
	set := params.MustNewSet(params.Integer("minsplit", 1, 100))
	return &Stump{base: newBase("stump", set, params.Assignment{"minsplit": 1})}
}

// Supports reports true for both problem types.
func (l *Stump) Supports(t task.Type) bool { return true }

// Clone returns an independent copy.
func (l *Stump) Clone() Learner { return &Stump{base: l.cloneBase()} }

type stumpModel struct {
	id  string
	typ task.Type

	feature   string
	ftype     dataset.FeatureType
	threshold float64
	level     string
	// majorityLeft routes missing/unseen values.
	majorityLeft bool
	// constant split found nothing useful; always predict left leaf.
	constant bool

	leftClass, rightClass string
	leftProb, rightProb   []float64
	levels                []string
	leftValue, rightValue float64
}

// Train exhaustively scans features for the best split.
func (l *Stump) Train(ctx context.Context, tk *task.Task) (Model, error) {
	if err := checkTrainable(l, tk); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := tk.NRows()
	minsplit := l.int("minsplit")
	m := &stumpModel{id: l.id, typ: tk.Type(), levels: tk.ClassLevels()}

	var yC []string
	var yF []float64
	var err error
	if tk.Type() == task.Classif {
		yC, err = tk.TargetFactor()
	} else {
		yF, err = tk.TargetNumeric()
	}
	if err != nil {
		return nil, err
	}

	impurity := func(rows []int) float64 {
		if tk.Type() == task.Classif {
			return gini(rows, yC)
		}
		return sse(rows, yF)
	}

	bestScore := math.Inf(1)
	found := false
	all := seq(n)

	trySplit := func(name string, ftype dataset.FeatureType, threshold float64, level string, left, right []int) {
		if len(left) < minsplit || len(right) < minsplit {
			return
		}
		score := impurity(left) + impurity(right)
		if score < bestScore {
			bestScore = score
			found = true
			m.feature = name
			m.ftype = ftype
			m.threshold = threshold
			m.level = level
			m.majorityLeft = len(left) >= len(right)
			l.fillLeaves(m, left, right, yC, yF, tk.ClassLevels())
		}
	}

	for _, name := range tk.FeatureNames() {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		if col.Type == dataset.Numeric {
			for _, thr := range numericThresholds(col.Numeric) {
				var left, right []int
				for i := 0; i < n; i++ {
					v := col.Numeric[i]
					if math.IsNaN(v) {
						continue
					}
					if v < thr {
						left = append(left, i)
					} else {
						right = append(right, i)
					}
				}
				trySplit(name, col.Type, thr, "", left, right)
			}
		} else {
			for _, lvl := range col.Levels() {
				var left, right []int
				for i := 0; i < n; i++ {
					if col.Factor[i] == "" {
						continue
					}
					if col.Factor[i] == lvl {
						left = append(left, i)
					} else {
						right = append(right, i)
					}
				}
				trySplit(name, col.Type, 0, lvl, left, right)
			}
		}
	}

	if !found {
		// Constant features: degenerate to the featureless prediction.
		m.constant = true
		l.fillLeaves(m, all, all, yC, yF, tk.ClassLevels())
	}
	return m, nil
}

func (l *Stump) fillLeaves(m *stumpModel, left, right []int, yC []string, yF []float64, levels []string) {
	if m.typ == task.Classif {
		m.leftClass, m.leftProb = majority(left, yC, levels)
		m.rightClass, m.rightProb = majority(right, yC, levels)
	} else {
		m.leftValue = meanOf(left, yF)
		m.rightValue = meanOf(right, yF)
	}
}

func (m *stumpModel) LearnerID() string { return m.id }

// goesLeft routes one row. Missing values and unseen levels follow
// the majority side.
func (m *stumpModel) goesLeft(col *dataset.Column, i int) bool {
	if m.constant {
		return true
	}
	if col.Missing(i) {
		return m.majorityLeft
	}
	if m.ftype == dataset.Numeric {
		return col.Numeric[i] < m.threshold
	}
	return col.Factor[i] == m.level
}

func (m *stumpModel) Predict(ctx context.Context, tk *task.Task) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := tk.NRows()
	pred := &Prediction{Type: m.typ, Rows: seq(n)}

	var col *dataset.Column
	if !m.constant {
		var err error
		col, err = tk.Dataset().Column(m.feature)
		if err != nil {
			return nil, err
		}
	}

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
			if m.constant || m.goesLeft(col, i) {
				pred.RespC[i] = m.leftClass
				pred.Prob[i] = m.leftProb
			} else {
				pred.RespC[i] = m.rightClass
				pred.Prob[i] = m.rightProb
			}
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
		if m.constant || m.goesLeft(col, i) {
			pred.RespF[i] = m.leftValue
		} else {
			pred.RespF[i] = m.rightValue
		}
	}
	return pred, nil
}

// numericThresholds returns midpoints between consecutive distinct
// sorted values, capped at 32 candidates for wide columns.
func numericThresholds(xs []float64) []float64 {
	vals := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	sort.Float64s(vals)
	var thrs []float64
	for i := 1; i < len(vals); i++ {
		if vals[i] != vals[i-1] {
			thrs = append(thrs, (vals[i]+vals[i-1])/2)
		}
	}
	if len(thrs) > 32 {
		sampled := make([]float64, 0, 32)
		stride := float64(len(thrs)) / 32
		for i := 0; i < 32; i++ {
			sampled = append(sampled, thrs[int(float64(i)*stride)])
		}
		thrs = sampled
	}
	return thrs
}

func gini(rows []int, y []string) float64 {
	if len(rows) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for _, i := range rows {
		counts[y[i]]++
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(len(rows))
		g -= p * p
	}
	return g * float64(len(rows))
}

func sse(rows []int, y []float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	mean := meanOf(rows, y)
	s := 0.0
	for _, i := range rows {
		s += (y[i] - mean) * (y[i] - mean)
	}
	return s
}

func meanOf(rows []int, y []float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	s := 0.0
	for _, i := range rows {
		s += y[i]
	}
	return s / float64(len(rows))
}

func majority(rows []int, y []string, levels []string) (string, []float64) {
	counts := make(map[string]int)
	for _, i := range rows {
		counts[y[i]]++
	}
	best := levels[0]
	probs := make([]float64, len(levels))
	for i, lvl := range levels {
		if len(rows) > 0 {
			probs[i] = float64(counts[lvl]) / float64(len(rows))
		}
		if counts[lvl] > counts[best] {
			best = lvl
		}
	}
	return best, probs
}
