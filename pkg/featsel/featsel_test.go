// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package featsel

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/task"
)

// filterTask has one feature tied to the target, one constant, and one
// noise feature.
func filterTask(t *testing.T) *task.Task {
	t.Helper()
	n := 60
	rng := rand.New(rand.NewSource(11))
	signal := make([]float64, n)
	constant := make([]float64, n)
	noise := make([]float64, n)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		signal[i] = float64(i)
		constant[i] = 1.5
		noise[i] = rng.NormFloat64()
		if i < n/2 {
			y[i] = "lo"
		} else {
			y[i] = "hi"
		}
	}
	ds := dataset.MustNew(
		dataset.Column{Name: "signal", Type: dataset.Numeric, Numeric: signal},
		dataset.Column{Name: "constant", Type: dataset.Numeric, Numeric: constant},
		dataset.Column{Name: "noise", Type: dataset.Numeric, Numeric: noise},
		dataset.Column{Name: "y", Type: dataset.Factor, Factor: y},
	)
	tk, err := task.NewClassif("filter", ds, "y")
	require.NoError(t, err)
	return tk
}

func regrFilterTask(t *testing.T) *task.Task {
	t.Helper()
	n := 60
	rng := rand.New(rand.NewSource(12))
	signal := make([]float64, n)
	noise := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		signal[i] = float64(i)
		noise[i] = rng.NormFloat64()
		y[i] = 2*signal[i] + rng.NormFloat64()
	}
	ds := dataset.MustNew(
		dataset.Column{Name: "signal", Type: dataset.Numeric, Numeric: signal},
		dataset.Column{Name: "noise", Type: dataset.Numeric, Numeric: noise},
		dataset.Column{Name: "y", Type: dataset.Numeric, Numeric: y},
	)
	tk, err := task.NewRegr("rfilter", ds, "y")
	require.NoError(t, err)
	return tk
}

func TestVarianceFilter(t *testing.T) {
	v, err := Compute("variance", filterTask(t))
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Scores["constant"])
	assert.Greater(t, v.Scores["signal"], v.Scores["noise"])
}

func TestPearsonFilter(t *testing.T) {
	v, err := Compute("pearson", regrFilterTask(t))
	require.NoError(t, err)
	assert.Greater(t, v.Scores["signal"], 0.95)
	assert.Less(t, v.Scores["noise"], 0.5)
}

func TestPearsonNeedsNumericTarget(t *testing.T) {
	_, err := Compute("pearson", filterTask(t))
	assert.Error(t, err)
}

func TestInfoGainFilter(t *testing.T) {
	v, err := Compute("infogain", filterTask(t))
	require.NoError(t, err)
	assert.Greater(t, v.Scores["signal"], v.Scores["noise"])
	assert.InDelta(t, 0, v.Scores["constant"], 1e-9)
}

func TestChiSqFilter(t *testing.T) {
	v, err := Compute("chisq", filterTask(t))
	require.NoError(t, err)
	assert.Greater(t, v.Scores["signal"], v.Scores["noise"])
}

func TestFilterOnFactorFeature(t *testing.T) {
	n := 40
	f := make([]string, n)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			f[i] = "even"
			y[i] = "a"
		} else {
			f[i] = "odd"
			y[i] = "b"
		}
	}
	ds := dataset.MustNew(
		dataset.Column{Name: "parity", Type: dataset.Factor, Factor: f},
		dataset.Column{Name: "y", Type: dataset.Factor, Factor: y},
	)
	tk, err := task.NewClassif("parity", ds, "y")
	require.NoError(t, err)

	v, err := Compute("infogain", tk)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v.Scores["parity"], 1e-9, "a perfectly predictive binary feature carries one bit")

	v, err = Compute("variance", tk)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.Scores["parity"]), "variance cannot score factor features")
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("mrmr")
	assert.ErrorIs(t, err, ErrUnknownFilter)
	assert.Contains(t, List(), "variance")
}

func TestSelectionRules(t *testing.T) {
	v := Values{FilterID: "variance", Scores: map[string]float64{
		"a": 3.0, "b": 2.0, "c": 1.0, "d": math.NaN(),
	}}

	assert.Equal(t, []string{"a", "b"}, v.SelectAbs(2))
	assert.Equal(t, []string{"a", "b", "c", "d"}, v.SelectAbs(10))
	assert.Equal(t, []string{"a", "b"}, v.SelectPerc(0.5))
	assert.Equal(t, []string{"a"}, v.SelectPerc(0.1), "a positive fraction keeps at least one feature")
	assert.Equal(t, []string{"a", "b"}, v.SelectThreshold(2.0))
	assert.Empty(t, v.SelectThreshold(99))
}

// subsetObjective rewards subsets that contain "good" and penalizes
// every extra feature.
func subsetObjective(calls *int) SubsetEvaluator {
	return func(ctx context.Context, features []string) (float64, error) {
		*calls++
		score := 1.0
		for _, f := range features {
			if f == "good" {
				score -= 0.9
			} else {
				score += 0.1
			}
		}
		return score, nil
	}
}

func TestExhaustiveFindsOptimum(t *testing.T) {
	calls := 0
	bestScore := math.Inf(1)
	var bestSubset []string
	eval := func(ctx context.Context, features []string) (float64, error) {
		s, _ := subsetObjective(&calls)(ctx, features)
		if s < bestScore {
			bestScore = s
			bestSubset = append([]string(nil), features...)
		}
		return s, nil
	}
	e := NewExhaustive(nil)
	require.NoError(t, e.Search(context.Background(), []string{"good", "bad1", "bad2"}, eval))
	assert.Equal(t, 8, calls, "three features give eight subsets including the empty one")
	assert.Equal(t, []string{"good"}, bestSubset)
}

func TestExhaustiveRefusesWideTasks(t *testing.T) {
	features := make([]string, maxExhaustiveFeatures+1)
	for i := range features {
		features[i] = string(rune('a' + i))
	}
	err := NewExhaustive(nil).Search(context.Background(), features,
		func(ctx context.Context, f []string) (float64, error) { return 0, nil })
	assert.Error(t, err)
}

func TestSFSStopsAtOptimum(t *testing.T) {
	calls := 0
	s := NewSFS(nil)
	require.NoError(t, s.Search(context.Background(), []string{"bad1", "good", "bad2"}, subsetObjective(&calls)))
	// baseline + first round (3 candidates) + second round (2) that
	// finds no improvement
	assert.Equal(t, 6, calls)
}

func TestSBSShrinksToOptimum(t *testing.T) {
	calls := 0
	s := NewSBS(nil)
	require.NoError(t, s.Search(context.Background(), []string{"bad1", "good", "bad2"}, subsetObjective(&calls)))
	assert.Greater(t, calls, 3)
}

func TestRandomSubsetsBudget(t *testing.T) {
	calls := 0
	r := NewRandomSubsets(&RandomSubsetsConfig{Budget: 30, Seed: 9})
	require.NoError(t, r.Search(context.Background(), []string{"good", "bad1"}, subsetObjective(&calls)))
	assert.Equal(t, 30, calls)
}

func TestGeneticSubsetsConverges(t *testing.T) {
	best := math.Inf(1)
	eval := func(ctx context.Context, features []string) (float64, error) {
		calls := 0
		s, _ := subsetObjective(&calls)(ctx, features)
		if s < best {
			best = s
		}
		return s, nil
	}
	g := NewGeneticSubsets(&GeneticSubsetsConfig{Generations: 8, PopSize: 12, MutationRate: 0.1, Elites: 2, Seed: 13})
	require.NoError(t, g.Search(context.Background(), []string{"good", "bad1", "bad2", "bad3"}, eval))
	assert.Less(t, best, 0.45, "the best subset must contain the informative feature")
}

func TestSelectorRun(t *testing.T) {
	tk := filterTask(t)
	ex := resample.NewExecutor(resample.Options{Workers: 2, Seed: 31})

	res, err := NewSelector(ex, nil).Run(context.Background(),
		learner.NewStump(), tk, resample.CV{Folds: 4}, nil, NewSFS(nil))
	require.NoError(t, err)

	assert.Equal(t, "sfs", res.StrategyName)
	assert.Contains(t, res.Features, "signal", "forward search must pick the informative feature")
	assert.Equal(t, 0, res.Errors)
	assert.Greater(t, res.Evals, 1)
	assert.LessOrEqual(t, res.Y["mmce"], 0.2)
}

func TestSelectorCachesRepeatedSubsets(t *testing.T) {
	tk := filterTask(t)
	ex := resample.NewExecutor(resample.Options{Workers: 1, Seed: 32})

	// Random search with a tiny feature space repeats subsets; the
	// archive only grows for fresh ones.
	res, err := NewSelector(ex, nil).Run(context.Background(),
		learner.NewStump(), tk, resample.Holdout{Split: 0.7}, nil,
		NewRandomSubsets(&RandomSubsetsConfig{Budget: 40, Seed: 3}))
	require.NoError(t, err)
	assert.Less(t, res.Evals, 40, "repeated subsets are served from the cache")
}

func TestSelectorNoFeatures(t *testing.T) {
	y := []string{"a", "b", "a", "b"}
	ds := dataset.MustNew(dataset.Column{Name: "y", Type: dataset.Factor, Factor: y})
	tk, err := task.NewClassif("bare", ds, "y")
	require.NoError(t, err)

	_, err = NewSelector(nil, nil).Run(context.Background(),
		learner.NewFeatureless(), tk, resample.Holdout{}, nil, NewSFS(nil))
	assert.Error(t, err)
}

func TestFromStrategyConfig(t *testing.T) {
	cases := []struct {
		cfg  StrategyConfig
		want string
	}{
		{StrategyConfig{Method: "exhaustive"}, "exhaustive"},
		{StrategyConfig{Method: "sfs", Alpha: 0.01}, "sfs"},
		{StrategyConfig{Method: "sbs"}, "sbs"},
		{StrategyConfig{Method: "random", Budget: 5}, "random"},
		{StrategyConfig{Method: "genetic", Budget: 64}, "genetic"},
	}
	for _, tc := range cases {
		s, err := FromStrategyConfig(tc.cfg)
		require.NoError(t, err, tc.cfg.Method)
		assert.Equal(t, tc.want, s.Name())
	}
	_, err := FromStrategyConfig(StrategyConfig{Method: "beam"})
	assert.Error(t, err)
}
