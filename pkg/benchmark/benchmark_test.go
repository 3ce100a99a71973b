// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/store"
	"github.com/AleutianAI/boreal/pkg/task"
)

// writeStepCSV writes a linearly separable two-class dataset.
func writeStepCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 0; i < 40; i++ {
		label := "lo"
		if i >= 20 {
			label = "hi"
		}
		fmt.Fprintf(&b, "%d,%s\n", i, label)
	}
	path := filepath.Join(t.TempDir(), "step.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func scenarioYAML(csv string) string {
	return fmt.Sprintf(`
name: baseline
tasks:
  - id: step
    type: classif
    target: y
    csv: %s
learners:
  - id: knn
    params: {k: 3}
  - id: featureless
resample:
  method: cv
  folds: 4
measures: [mmce, acc]
workers: 2
seed: 17
on_error: warn
`, csv)
}

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML("some.csv")))
	require.NoError(t, err)
	assert.Equal(t, "baseline", sc.Name)
	require.Len(t, sc.Learners, 2)
	assert.Equal(t, 3, sc.Learners[0].Params["k"])
	assert.Equal(t, "cv", sc.Resample.Method)
}

func TestParseScenarioRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing name":  "tasks: []\nlearners: []\n",
		"no tasks":      "name: x\nlearners: [{id: knn}]\nresample: {method: cv}\n",
		"bad task type": "name: x\ntasks: [{id: a, type: cluster, target: y, csv: f}]\nlearners: [{id: knn}]\nresample: {method: cv}\n",
		"not yaml":      "::::",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML("data.csv")), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "baseline", sc.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestBuildLearnerCoercesParams(t *testing.T) {
	lrn, err := LearnerConfig{ID: "knn", Params: map[string]any{"k": 5, "weighted": true}}.BuildLearner()
	require.NoError(t, err)
	assert.Equal(t, 5, lrn.Params()["k"])
	assert.Equal(t, true, lrn.Params()["weighted"])

	_, err = LearnerConfig{ID: "knn", Params: map[string]any{"depth": 2}}.BuildLearner()
	assert.Error(t, err)

	_, err = LearnerConfig{ID: "knn", Params: map[string]any{"k": 2.5}}.BuildLearner()
	assert.Error(t, err, "a fractional value cannot fill an integer parameter")

	lrn, err = LearnerConfig{ID: "classif.logistic", Params: map[string]any{"lr": 1}}.BuildLearner()
	require.NoError(t, err)
	assert.Equal(t, 1.0, lrn.Params()["lr"], "whole numbers coerce to float for numeric parameters")
}

func TestRunnerRun(t *testing.T) {
	csv := writeStepCSV(t)
	sc, err := ParseScenario([]byte(scenarioYAML(csv)))
	require.NoError(t, err)

	archive, err := store.OpenInMemory()
	require.NoError(t, err)
	defer archive.Close()

	res, err := NewRunner(archive, nil).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, "baseline", res.Scenario)
	assert.Equal(t, []string{"mmce", "acc"}, res.MeasureIDs)
	require.Len(t, res.Pairs, 2)
	require.Len(t, res.Ranks, 2)

	// knn separates the step; featureless cannot beat the class prior.
	assert.Equal(t, "knn", res.Ranks[0].LearnerID)
	assert.Equal(t, 1, res.Ranks[0].PerTask["step"])

	records, err := archive.List(context.Background(), store.KindBenchmark, 0)
	require.NoError(t, err)
	require.Len(t, records, 1, "the result is persisted")

	var stored Result
	require.NoError(t, records[0].Decode(&stored))
	assert.Equal(t, res.ID, stored.ID)
}

func TestRunnerWithoutArchive(t *testing.T) {
	csv := writeStepCSV(t)
	sc, err := ParseScenario([]byte(scenarioYAML(csv)))
	require.NoError(t, err)

	res, err := NewRunner(nil, nil).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
}

func TestRunnerUnknownLearner(t *testing.T) {
	csv := writeStepCSV(t)
	doc := strings.Replace(scenarioYAML(csv), "id: knn", "id: xgboost", 1)
	sc, err := ParseScenario([]byte(doc))
	require.NoError(t, err)

	_, err = NewRunner(nil, nil).Run(context.Background(), sc)
	assert.Error(t, err)
}

func TestRankLearners(t *testing.T) {
	mmce, err := measure.Lookup("mmce")
	require.NoError(t, err)

	pairs := []Pair{
		{TaskID: "t1", LearnerID: "a", Aggr: map[string]float64{"mmce": 0.1}},
		{TaskID: "t1", LearnerID: "b", Aggr: map[string]float64{"mmce": 0.3}},
		{TaskID: "t1", LearnerID: "c", Error: "boom"},
		{TaskID: "t2", LearnerID: "a", Aggr: map[string]float64{"mmce": 0.4}},
		{TaskID: "t2", LearnerID: "b", Aggr: map[string]float64{"mmce": 0.2}},
		{TaskID: "t2", LearnerID: "c", Aggr: map[string]float64{"mmce": 0.5}},
	}
	types := map[string]task.Type{"t1": task.Classif, "t2": task.Classif}
	ranks := rankLearners(pairs, []measure.Measure{mmce}, types)
	require.Len(t, ranks, 3)

	assert.Equal(t, "a", ranks[0].LearnerID)
	assert.InDelta(t, 1.5, ranks[0].Mean, 1e-9)
	assert.Equal(t, "b", ranks[1].LearnerID)
	assert.Equal(t, "c", ranks[2].LearnerID)
	assert.Equal(t, 3, ranks[2].PerTask["t1"], "failed cells rank last")
}

func TestRankLearnersMixedTaskDefaults(t *testing.T) {
	// Without explicit measures, classification cells carry mmce and
	// regression cells carry mse; each task must rank by its own
	// default rather than the first task's.
	pairs := []Pair{
		{TaskID: "c1", LearnerID: "a", Aggr: map[string]float64{"mmce": 0.4}},
		{TaskID: "c1", LearnerID: "b", Aggr: map[string]float64{"mmce": 0.1}},
		{TaskID: "r1", LearnerID: "a", Aggr: map[string]float64{"mse": 9.0}},
		{TaskID: "r1", LearnerID: "b", Aggr: map[string]float64{"mse": 1.0}},
	}
	types := map[string]task.Type{"c1": task.Classif, "r1": task.Regr}
	ranks := rankLearners(pairs, nil, types)
	require.Len(t, ranks, 2)

	assert.Equal(t, "b", ranks[0].LearnerID)
	assert.Equal(t, 1, ranks[0].PerTask["c1"])
	assert.Equal(t, 1, ranks[0].PerTask["r1"], "regression ranks follow mse, not learner id order")
	assert.Equal(t, 2, ranks[1].PerTask["r1"])
}

// writeLineCSV writes a noiseless linear regression dataset.
func writeLineCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, 2*i)
	}
	path := filepath.Join(t.TempDir(), "line.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunnerMixedTaskTypes(t *testing.T) {
	doc := fmt.Sprintf(`
name: mixed
tasks:
  - id: step
    type: classif
    target: y
    csv: %s
  - id: line
    type: regr
    target: y
    csv: %s
learners:
  - id: knn
    params: {k: 3}
  - id: featureless
resample:
  method: cv
  folds: 4
seed: 11
`, writeStepCSV(t), writeLineCSV(t))
	sc, err := ParseScenario([]byte(doc))
	require.NoError(t, err)

	res, err := NewRunner(nil, nil).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []string{"mmce", "mse"}, res.MeasureIDs,
		"every default measure that scored a cell is reported")
	for _, p := range res.Pairs {
		require.Empty(t, p.Error)
		if p.TaskID == "line" {
			assert.Contains(t, p.Aggr, "mse")
			assert.NotContains(t, p.Aggr, "mmce")
		}
	}

	// knn interpolates the line far better than the mean baseline, so
	// it must rank first on the regression task too.
	assert.Equal(t, "knn", res.Ranks[0].LearnerID)
	assert.Equal(t, 1, res.Ranks[0].PerTask["line"])
	assert.Equal(t, 1, res.Ranks[0].PerTask["step"])
}
