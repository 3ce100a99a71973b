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
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/task"
)

// crashLearner fails to train on every nth call.
type crashLearner struct {
	inner learner.Learner
	nth   int
	calls *atomic.Int64
}

func newCrashLearner(nth int) *crashLearner {
	return &crashLearner{inner: learner.NewFeatureless(), nth: nth, calls: &atomic.Int64{}}
}

func (c *crashLearner) ID() string                            { return "crash" }
func (c *crashLearner) Supports(t task.Type) bool             { return true }
func (c *crashLearner) ParamSet() *params.Set                 { return c.inner.ParamSet() }
func (c *crashLearner) Params() params.Assignment             { return c.inner.Params() }
func (c *crashLearner) SetParams(a params.Assignment) error   { return c.inner.SetParams(a) }
func (c *crashLearner) Clone() learner.Learner                { return c }
func (c *crashLearner) Train(ctx context.Context, tk *task.Task) (learner.Model, error) {
	if n := c.calls.Add(1); int(n)%c.nth == 0 {
		return nil, errors.New("synthetic optimizer divergence")
	}
	return c.inner.Train(ctx, tk)
}

func testExecutor(policy Policy) *Executor {
	return NewExecutor(Options{Workers: 2, OnError: policy, Seed: 42})
}

func TestRunAggregatesScores(t *testing.T) {
	tk := classifTask(t, 30)
	mmce, _ := measure.Lookup("mmce")
	acc, _ := measure.Lookup("acc")

	res, err := testExecutor(PolicyStop).Run(context.Background(),
		learner.NewFeatureless(), tk, CV{Folds: 5}, []measure.Measure{mmce, acc})
	require.NoError(t, err)

	assert.Len(t, res.Iterations, 5)
	assert.Equal(t, "cv5", res.DescID)
	assert.Equal(t, []string{"mmce", "acc"}, res.MeasureIDs)
	assert.Equal(t, 0, res.ErrorCount())

	// Majority class is "a" with 2/3 of rows, so mmce hovers near 1/3.
	assert.InDelta(t, 1.0/3.0, res.Aggr["mmce"], 0.1)
	assert.InDelta(t, res.Aggr["mmce"], 1-res.Aggr["acc"], 1e-9)

	for _, it := range res.Iterations {
		assert.Nil(t, it.Model, "models must not be retained by default")
		assert.Empty(t, it.Error)
	}
}

func TestRunDefaultMeasure(t *testing.T) {
	tk := classifTask(t, 20)
	res, err := testExecutor(PolicyStop).Run(context.Background(),
		learner.NewFeatureless(), tk, Holdout{Split: 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mmce"}, res.MeasureIDs)
}

func TestRunRejectsMismatchedMeasure(t *testing.T) {
	tk := classifTask(t, 20)
	rmse, _ := measure.Lookup("rmse")
	_, err := testExecutor(PolicyStop).Run(context.Background(),
		learner.NewFeatureless(), tk, CV{Folds: 2}, []measure.Measure{rmse})
	require.Error(t, err)
}

func TestRunPolicyStop(t *testing.T) {
	tk := classifTask(t, 30)
	_, err := testExecutor(PolicyStop).Run(context.Background(),
		newCrashLearner(1), tk, CV{Folds: 5}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthetic optimizer divergence")
}

func TestRunPolicyWarnImputesWorst(t *testing.T) {
	tk := classifTask(t, 30)
	mmce, _ := measure.Lookup("mmce")

	res, err := testExecutor(PolicyWarn).Run(context.Background(),
		newCrashLearner(2), tk, CV{Folds: 6}, []measure.Measure{mmce})
	require.NoError(t, err)

	require.Equal(t, 3, res.ErrorCount(), "every 2nd train call crashes")
	for _, it := range res.Iterations {
		if it.Error != "" {
			assert.Equal(t, mmce.Worst, it.Scores["mmce"], "crashed iteration must score worst")
			assert.Contains(t, it.Error, "synthetic optimizer divergence")
		} else {
			assert.Less(t, it.Scores["mmce"], 1.0)
		}
	}
	msgs := res.Errors()
	assert.Len(t, msgs, 3)
}

func TestRunKeepModels(t *testing.T) {
	tk := classifTask(t, 20)
	ex := NewExecutor(Options{Workers: 1, KeepModels: true, Seed: 9})
	res, err := ex.Run(context.Background(), learner.NewFeatureless(), tk, CV{Folds: 4}, nil)
	require.NoError(t, err)
	for _, it := range res.Iterations {
		assert.NotNil(t, it.Model)
	}
}

func TestRunCancelledContext(t *testing.T) {
	tk := classifTask(t, 30)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testExecutor(PolicyWarn).Run(ctx, learner.NewFeatureless(), tk, CV{Folds: 5}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDeterministicWithSeed(t *testing.T) {
	tk := classifTask(t, 30)

	run := func() *Result {
		res, err := NewExecutor(Options{Workers: 1, Seed: 1234}).Run(context.Background(),
			learner.NewKNN(), tk, CV{Folds: 5}, nil)
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Aggr, b.Aggr, "same seed must give identical splits and scores")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("warn")
	require.NoError(t, err)
	assert.Equal(t, PolicyWarn, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStop, p)

	_, err = ParsePolicy("retry")
	assert.Error(t, err)
}
