// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package measure implements performance measures for predictions and
// their aggregation across resampling iterations.
//
// Every measure declares a Worst value. When a learner crashes during
// an iteration and the error policy allows continuing, the iteration
// scores Worst for every requested measure so aggregated results stay
// comparable instead of silently shrinking.
package measure

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/task"
)

// ErrWrongType is returned when a measure scores a prediction of the
// wrong problem type.
var ErrWrongType = errors.New("measure: prediction type mismatch")

// Measure scores one prediction.
type Measure struct {
	// ID is the measure name, e.g. "mmce".
	ID string

	// Type is the problem type the measure applies to.
	Type task.Type

	// Minimize reports whether smaller scores are better.
	Minimize bool

	// Worst is the score imputed for crashed iterations.
	Worst float64

	// Best is the optimum, used for normalizing reports.
	Best float64

	// Fn computes the score.
	Fn func(p *learner.Prediction) float64
}

// Score applies the measure after checking the prediction type.
func (m Measure) Score(p *learner.Prediction) (float64, error) {
	if p.Type != m.Type {
		return 0, fmt.Errorf("%w: %s expects %s predictions", ErrWrongType, m.ID, m.Type)
	}
	if p.Len() == 0 {
		return m.Worst, nil
	}
	return m.Fn(p), nil
}

// IsBetter compares two scores under the measure's direction.
func (m Measure) IsBetter(a, b float64) bool {
	if m.Minimize {
		return a < b
	}
	return a > b
}

// Lookup returns a built-in measure by id.
func Lookup(id string) (Measure, error) {
	m, ok := builtins[id]
	if !ok {
		return Measure{}, fmt.Errorf("measure: unknown measure %q", id)
	}
	return m, nil
}

// LookupAll resolves a list of ids, preserving order.
func LookupAll(ids []string) ([]Measure, error) {
	out := make([]Measure, len(ids))
	for i, id := range ids {
		m, err := Lookup(id)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Default returns the conventional default measure for a problem
// type: mmce for classification, mse for regression.
func Default(t task.Type) Measure {
	if t == task.Classif {
		return builtins["mmce"]
	}
	return builtins["mse"]
}

// List returns all built-in measure ids, sorted.
func List() []string {
	ids := make([]string, 0, len(builtins))
	for id := range builtins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var builtins = map[string]Measure{
	"mmce": {
		ID: "mmce", Type: task.Classif, Minimize: true, Worst: 1, Best: 0,
		Fn: func(p *learner.Prediction) float64 {
			wrong := 0
			for i := range p.RespC {
				if p.RespC[i] != p.TruthC[i] {
					wrong++
				}
			}
			return float64(wrong) / float64(len(p.RespC))
		},
	},
	"acc": {
		ID: "acc", Type: task.Classif, Minimize: false, Worst: 0, Best: 1,
		Fn: func(p *learner.Prediction) float64 {
			right := 0
			for i := range p.RespC {
				if p.RespC[i] == p.TruthC[i] {
					right++
				}
			}
			return float64(right) / float64(len(p.RespC))
		},
	},
	"ber": {
		ID: "ber", Type: task.Classif, Minimize: true, Worst: 1, Best: 0,
		Fn: balancedErrorRate,
	},
	"logloss": {
		ID: "logloss", Type: task.Classif, Minimize: true, Worst: 35, Best: 0,
		Fn: logLoss,
	},
	"auc": {
		ID: "auc", Type: task.Classif, Minimize: false, Worst: 0, Best: 1,
		Fn: binaryAUC,
	},
	"mse": {
		ID: "mse", Type: task.Regr, Minimize: true, Worst: math.Inf(1), Best: 0,
		Fn: func(p *learner.Prediction) float64 {
			s := 0.0
			for i := range p.RespF {
				d := p.RespF[i] - p.TruthF[i]
				s += d * d
			}
			return s / float64(len(p.RespF))
		},
	},
	"rmse": {
		ID: "rmse", Type: task.Regr, Minimize: true, Worst: math.Inf(1), Best: 0,
		Fn: func(p *learner.Prediction) float64 {
			s := 0.0
			for i := range p.RespF {
				d := p.RespF[i] - p.TruthF[i]
				s += d * d
			}
			return math.Sqrt(s / float64(len(p.RespF)))
		},
	},
	"mae": {
		ID: "mae", Type: task.Regr, Minimize: true, Worst: math.Inf(1), Best: 0,
		Fn: func(p *learner.Prediction) float64 {
			s := 0.0
			for i := range p.RespF {
				s += math.Abs(p.RespF[i] - p.TruthF[i])
			}
			return s / float64(len(p.RespF))
		},
	},
	"medae": {
		ID: "medae", Type: task.Regr, Minimize: true, Worst: math.Inf(1), Best: 0,
		Fn: func(p *learner.Prediction) float64 {
			abs := make([]float64, len(p.RespF))
			for i := range p.RespF {
				abs[i] = math.Abs(p.RespF[i] - p.TruthF[i])
			}
			sort.Float64s(abs)
			mid := len(abs) / 2
			if len(abs)%2 == 0 {
				return (abs[mid-1] + abs[mid]) / 2
			}
			return abs[mid]
		},
	},
	"rsq": {
		ID: "rsq", Type: task.Regr, Minimize: false, Worst: math.Inf(-1), Best: 1,
		Fn: rSquared,
	},
}

func balancedErrorRate(p *learner.Prediction) float64 {
	wrong := make(map[string]int)
	total := make(map[string]int)
	for i := range p.RespC {
		total[p.TruthC[i]]++
		if p.RespC[i] != p.TruthC[i] {
			wrong[p.TruthC[i]]++
		}
	}
	s := 0.0
	for cls, n := range total {
		s += float64(wrong[cls]) / float64(n)
	}
	return s / float64(len(total))
}

// logLoss clamps probabilities to avoid infinite penalties; a missing
// probability matrix scores as if the model predicted uniformly.
func logLoss(p *learner.Prediction) float64 {
	const eps = 1e-15
	s := 0.0
	for i := range p.TruthC {
		var prob float64
		if p.Prob == nil {
			prob = 1 / float64(len(p.Levels))
		} else {
			prob = p.ProbOf(i, p.TruthC[i])
		}
		if prob < eps {
			prob = eps
		}
		s += -math.Log(prob)
	}
	return s / float64(len(p.TruthC))
}

// binaryAUC ranks by the probability of the positive class (second
// level). Ties contribute half. Degenerate predictions (one class in
// truth, or no probabilities) score 0.5.
func binaryAUC(p *learner.Prediction) float64 {
	if len(p.Levels) != 2 || p.Prob == nil {
		return 0.5
	}
	pos := p.Levels[1]
	var posScores, negScores []float64
	for i := range p.TruthC {
		score := p.ProbOf(i, pos)
		if p.TruthC[i] == pos {
			posScores = append(posScores, score)
		} else {
			negScores = append(negScores, score)
		}
	}
	if len(posScores) == 0 || len(negScores) == 0 {
		return 0.5
	}
	s := 0.0
	for _, ps := range posScores {
		for _, ns := range negScores {
			switch {
			case ps > ns:
				s += 1
			case ps == ns:
				s += 0.5
			}
		}
	}
	return s / float64(len(posScores)*len(negScores))
}

func rSquared(p *learner.Prediction) float64 {
	mean := 0.0
	for _, v := range p.TruthF {
		mean += v
	}
	mean /= float64(len(p.TruthF))

	ssRes, ssTot := 0.0, 0.0
	for i := range p.TruthF {
		ssRes += (p.TruthF[i] - p.RespF[i]) * (p.TruthF[i] - p.RespF[i])
		ssTot += (p.TruthF[i] - mean) * (p.TruthF[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// Mean aggregates iteration scores, skipping NaN entries.
func Mean(scores []float64) float64 {
	n := 0
	s := 0.0
	for _, v := range scores {
		if math.IsNaN(v) {
			continue
		}
		s += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return s / float64(n)
}

// SD is the sample standard deviation of iteration scores, skipping
// NaN entries.
func SD(scores []float64) float64 {
	mean := Mean(scores)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	n := 0
	ss := 0.0
	for _, v := range scores {
		if math.IsNaN(v) {
			continue
		}
		ss += (v - mean) * (v - mean)
		n++
	}
	if n < 2 {
		return 0
	}
	return math.Sqrt(ss / float64(n-1))
}
