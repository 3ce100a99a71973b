// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resample

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/task"
)

func classifTask(t *testing.T, n int) *task.Task {
	t.Helper()
	x := make([]float64, n)
	y := make([]string, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		// 1/3 class "b", 2/3 class "a".
		if i%3 == 0 {
			y[i] = "b"
		} else {
			y[i] = "a"
		}
	}
	ds := dataset.MustNew(
		dataset.Column{Name: "x", Type: dataset.Numeric, Numeric: x},
		dataset.Column{Name: "y", Type: dataset.Factor, Factor: y},
	)
	tk, err := task.NewClassif("t", ds, "y")
	require.NoError(t, err)
	return tk
}

func TestCVPartitions(t *testing.T) {
	tk := classifTask(t, 30)
	rng := rand.New(rand.NewSource(1))

	inst, err := CV{Folds: 5}.Instance(tk, rng)
	require.NoError(t, err)
	require.Len(t, inst.Splits, 5)

	seen := make(map[int]int)
	for _, s := range inst.Splits {
		assert.Len(t, s.Train, 24)
		assert.Len(t, s.Test, 6)
		for _, r := range s.Test {
			seen[r]++
		}
		// No row appears in both sides of one split.
		inTrain := make(map[int]bool)
		for _, r := range s.Train {
			inTrain[r] = true
		}
		for _, r := range s.Test {
			assert.False(t, inTrain[r], "row %d in both train and test", r)
		}
	}
	// Test sets partition all rows exactly once.
	require.Len(t, seen, 30)
	for r, c := range seen {
		assert.Equal(t, 1, c, "row %d tested %d times", r, c)
	}
}

func TestCVStratifyKeepsProportions(t *testing.T) {
	tk := classifTask(t, 30)
	rng := rand.New(rand.NewSource(2))

	inst, err := CV{Folds: 5, Stratify: true}.Instance(tk, rng)
	require.NoError(t, err)

	y, _ := tk.TargetFactor()
	for i, s := range inst.Splits {
		b := 0
		for _, r := range s.Test {
			if y[r] == "b" {
				b++
			}
		}
		assert.Equal(t, 2, b, "fold %d should hold 2 of the 10 b-rows", i)
	}
}

func TestCVValidation(t *testing.T) {
	tk := classifTask(t, 6)
	rng := rand.New(rand.NewSource(3))

	_, err := CV{Folds: 1}.Instance(tk, rng)
	assert.Error(t, err)

	_, err = CV{Folds: 7}.Instance(tk, rng)
	assert.ErrorIs(t, err, ErrTooFewRows)
}

func TestRepCV(t *testing.T) {
	tk := classifTask(t, 12)
	rng := rand.New(rand.NewSource(4))

	inst, err := RepCV{Reps: 3, Folds: 4}.Instance(tk, rng)
	require.NoError(t, err)
	assert.Len(t, inst.Splits, 12)
	assert.Equal(t, "repcv3x4", inst.DescID)
}

func TestHoldout(t *testing.T) {
	tk := classifTask(t, 30)
	rng := rand.New(rand.NewSource(5))

	inst, err := Holdout{Split: 2.0 / 3.0}.Instance(tk, rng)
	require.NoError(t, err)
	require.Len(t, inst.Splits, 1)
	assert.Len(t, inst.Splits[0].Train, 20)
	assert.Len(t, inst.Splits[0].Test, 10)

	_, err = Holdout{Split: 1.5}.Instance(tk, rng)
	assert.Error(t, err)
}

func TestBootstrapOutOfBag(t *testing.T) {
	tk := classifTask(t, 25)
	rng := rand.New(rand.NewSource(6))

	inst, err := Bootstrap{Iters: 10}.Instance(tk, rng)
	require.NoError(t, err)
	require.Len(t, inst.Splits, 10)

	for _, s := range inst.Splits {
		assert.Len(t, s.Train, 25, "bootstrap trains on n sampled rows")
		require.NotEmpty(t, s.Test)
		inBag := make(map[int]bool)
		for _, r := range s.Train {
			inBag[r] = true
		}
		for _, r := range s.Test {
			assert.False(t, inBag[r], "test row %d is in the bag", r)
		}
	}
}

func TestLOO(t *testing.T) {
	tk := classifTask(t, 8)
	inst, err := LOO{}.Instance(tk, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, inst.Splits, 8)
	for i, s := range inst.Splits {
		assert.Equal(t, []int{i}, s.Test)
		assert.Len(t, s.Train, 7)
	}
}

func TestFromConfig(t *testing.T) {
	cases := []struct {
		cfg  DescConfig
		want string
	}{
		{DescConfig{Method: "cv", Folds: 5}, "cv5"},
		{DescConfig{Method: "cv"}, "cv10"},
		{DescConfig{Method: "repcv", Reps: 2, Folds: 3}, "repcv2x3"},
		{DescConfig{Method: "holdout"}, "holdout"},
		{DescConfig{Method: "subsample", Iters: 4}, "subsample4"},
		{DescConfig{Method: "bootstrap", Iters: 7}, "bootstrap7"},
		{DescConfig{Method: "loo"}, "loo"},
	}
	for _, tc := range cases {
		d, err := FromConfig(tc.cfg)
		require.NoError(t, err, tc.cfg.Method)
		assert.Equal(t, tc.want, d.ID())
	}

	_, err := FromConfig(DescConfig{Method: "timeseries"})
	assert.Error(t, err)
}
