// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wrapper

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/task"
)

// BaggingConfig controls bootstrap aggregation.
type BaggingConfig struct {
	// Iters is the ensemble size.
	Iters int `yaml:"iters" json:"iters" validate:"omitempty,min=1"`

	// Ratio is the bootstrap sample size as a fraction of the training
	// rows.
	Ratio float64 `yaml:"ratio" json:"ratio" validate:"omitempty,gt=0,lte=1"`

	// Seed drives the bootstrap draws.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultBaggingConfig returns ten iterations over full-size samples.
func DefaultBaggingConfig() BaggingConfig {
	return BaggingConfig{Iters: 10, Ratio: 1.0, Seed: 1}
}

// BaggingWrapper trains the inner learner on bootstrap samples of the
// training task and aggregates the ensemble's predictions: majority
// vote with vote-fraction probabilities for classification, the mean
// response for regression.
type BaggingWrapper struct {
	base
	config BaggingConfig
}

// NewBagging wraps a learner with bootstrap aggregation.
func NewBagging(inner learner.Learner, config BaggingConfig) (*BaggingWrapper, error) {
	if inner == nil {
		return nil, ErrNilInner
	}
	if config.Iters < 1 {
		config.Iters = 10
	}
	if config.Ratio <= 0 || config.Ratio > 1 {
		config.Ratio = 1.0
	}
	if config.Seed == 0 {
		config.Seed = 1
	}
	return &BaggingWrapper{base: newBase("bagged", inner), config: config}, nil
}

// Clone returns an independent copy wrapping a clone of the inner
// learner.
func (w *BaggingWrapper) Clone() learner.Learner {
	return &BaggingWrapper{base: newBase(w.prefix, w.inner.Clone()), config: w.config}
}

// Train fits the ensemble.
func (w *BaggingWrapper) Train(ctx context.Context, tk *task.Task) (learner.Model, error) {
	rng := rand.New(rand.NewSource(w.config.Seed))
	size := int(w.config.Ratio * float64(tk.NRows()))
	if size < 1 {
		size = 1
	}

	models := make([]learner.Model, 0, w.config.Iters)
	for i := 0; i < w.config.Iters; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := make([]int, size)
		for j := range rows {
			rows[j] = rng.Intn(tk.NRows())
		}
		sample, err := tk.Subset(rows)
		if err != nil {
			return nil, err
		}
		m, err := w.inner.Clone().Train(ctx, sample)
		if err != nil {
			return nil, fmt.Errorf("wrapper: bagging iteration %d: %w", i, err)
		}
		models = append(models, m)
	}
	return &baggedModel{id: w.ID(), models: models}, nil
}

type baggedModel struct {
	id     string
	models []learner.Model
}

func (m *baggedModel) LearnerID() string { return m.id }

// Predict aggregates the member predictions.
func (m *baggedModel) Predict(ctx context.Context, tk *task.Task) (*learner.Prediction, error) {
	preds := make([]*learner.Prediction, len(m.models))
	for i, member := range m.models {
		p, err := member.Predict(ctx, tk)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	if tk.Type() == task.Classif {
		return aggregateVotes(preds), nil
	}
	return aggregateMeans(preds), nil
}

func aggregateVotes(preds []*learner.Prediction) *learner.Prediction {
	first := preds[0]
	n := first.Len()

	levelSet := make(map[string]bool)
	for _, p := range preds {
		for _, l := range p.Levels {
			levelSet[l] = true
		}
		for _, r := range p.RespC {
			levelSet[r] = true
		}
	}
	levels := make([]string, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	index := make(map[string]int, len(levels))
	for i, l := range levels {
		index[l] = i
	}

	out := &learner.Prediction{
		Type:   first.Type,
		Rows:   first.Rows,
		TruthC: first.TruthC,
		RespC:  make([]string, n),
		Levels: levels,
		Prob:   make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		votes := make([]float64, len(levels))
		for _, p := range preds {
			votes[index[p.RespC[i]]]++
		}
		bestIdx := 0
		for j := range votes {
			votes[j] /= float64(len(preds))
			if votes[j] > votes[bestIdx] {
				bestIdx = j
			}
		}
		out.Prob[i] = votes
		out.RespC[i] = levels[bestIdx]
	}
	return out
}

func aggregateMeans(preds []*learner.Prediction) *learner.Prediction {
	first := preds[0]
	n := first.Len()
	out := &learner.Prediction{
		Type:   first.Type,
		Rows:   first.Rows,
		TruthF: first.TruthF,
		RespF:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, p := range preds {
			sum += p.RespF[i]
		}
		out.RespF[i] = sum / float64(len(preds))
	}
	return out
}
