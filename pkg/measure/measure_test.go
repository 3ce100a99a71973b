// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package measure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/task"
)

func classifPred() *learner.Prediction {
	return &learner.Prediction{
		Type:   task.Classif,
		TruthC: []string{"a", "a", "b", "b"},
		RespC:  []string{"a", "b", "b", "b"},
		Levels: []string{"a", "b"},
		Prob: [][]float64{
			{0.9, 0.1},
			{0.4, 0.6},
			{0.2, 0.8},
			{0.3, 0.7},
		},
	}
}

func regrPred() *learner.Prediction {
	return &learner.Prediction{
		Type:   task.Regr,
		TruthF: []float64{1, 2, 3, 4},
		RespF:  []float64{1, 2, 3, 8},
	}
}

func score(t *testing.T, id string, p *learner.Prediction) float64 {
	t.Helper()
	m, err := Lookup(id)
	require.NoError(t, err)
	v, err := m.Score(p)
	require.NoError(t, err)
	return v
}

func TestClassifMeasures(t *testing.T) {
	p := classifPred()

	assert.InDelta(t, 0.25, score(t, "mmce", p), 1e-9)
	assert.InDelta(t, 0.75, score(t, "acc", p), 1e-9)
	// class a: 1/2 wrong, class b: 0/2 wrong -> ber = 0.25
	assert.InDelta(t, 0.25, score(t, "ber", p), 1e-9)
}

func TestAUC(t *testing.T) {
	p := classifPred()
	// positive scores: 0.8, 0.7; negative: 0.1, 0.6 -> all 4 pairs ranked correctly
	assert.InDelta(t, 1.0, score(t, "auc", p), 1e-9)

	t.Run("degenerate truth scores half", func(t *testing.T) {
		p := &learner.Prediction{
			Type:   task.Classif,
			TruthC: []string{"a", "a"},
			RespC:  []string{"a", "a"},
			Levels: []string{"a", "b"},
			Prob:   [][]float64{{1, 0}, {1, 0}},
		}
		assert.InDelta(t, 0.5, score(t, "auc", p), 1e-9)
	})
}

func TestLogLoss(t *testing.T) {
	p := classifPred()
	want := -(math.Log(0.9) + math.Log(0.4) + math.Log(0.8) + math.Log(0.7)) / 4
	assert.InDelta(t, want, score(t, "logloss", p), 1e-9)

	t.Run("clamps zero probability", func(t *testing.T) {
		p := &learner.Prediction{
			Type:   task.Classif,
			TruthC: []string{"a"},
			RespC:  []string{"b"},
			Levels: []string{"a", "b"},
			Prob:   [][]float64{{0, 1}},
		}
		v := score(t, "logloss", p)
		assert.False(t, math.IsInf(v, 1), "logloss must stay finite")
	})
}

func TestRegrMeasures(t *testing.T) {
	p := regrPred()

	assert.InDelta(t, 4.0, score(t, "mse", p), 1e-9)
	assert.InDelta(t, 2.0, score(t, "rmse", p), 1e-9)
	assert.InDelta(t, 1.0, score(t, "mae", p), 1e-9)
	assert.InDelta(t, 0.0, score(t, "medae", p), 1e-9)
	// ssTot = 5, ssRes = 16 -> rsq = 1 - 3.2
	assert.InDelta(t, -2.2, score(t, "rsq", p), 1e-9)
}

func TestScoreTypeMismatch(t *testing.T) {
	m, err := Lookup("mmce")
	require.NoError(t, err)
	_, err = m.Score(regrPred())
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestIsBetter(t *testing.T) {
	mmce, _ := Lookup("mmce")
	acc, _ := Lookup("acc")
	assert.True(t, mmce.IsBetter(0.1, 0.2))
	assert.True(t, acc.IsBetter(0.9, 0.8))
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "mmce", Default(task.Classif).ID)
	assert.Equal(t, "mse", Default(task.Regr).ID)
}

func TestLookupAll(t *testing.T) {
	ms, err := LookupAll([]string{"mmce", "acc"})
	require.NoError(t, err)
	assert.Len(t, ms, 2)
	assert.Equal(t, "mmce", ms[0].ID)

	_, err = LookupAll([]string{"mmce", "f1000"})
	assert.Error(t, err)
}

func TestAggregation(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.3, math.NaN()}
	assert.InDelta(t, 0.2, Mean(scores), 1e-9)
	assert.InDelta(t, 0.1, SD(scores), 1e-9)
	assert.True(t, math.IsNaN(Mean([]float64{math.NaN()})))
}
