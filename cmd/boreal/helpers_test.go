// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/task"
)

func TestParseParams(t *testing.T) {
	lrn := learner.NewKNN()

	a, err := parseParams(lrn.ParamSet(), []string{"k=3", "weighted=true"})
	require.NoError(t, err)
	assert.Equal(t, 3, a["k"])
	assert.Equal(t, true, a["weighted"])

	_, err = parseParams(lrn.ParamSet(), []string{"k"})
	assert.Error(t, err, "pairs need an equals sign")

	_, err = parseParams(lrn.ParamSet(), []string{"depth=2"})
	assert.Error(t, err, "unknown parameters are rejected")

	_, err = parseParams(lrn.ParamSet(), []string{"k=three"})
	assert.Error(t, err)
}

func TestBuildLearner(t *testing.T) {
	lrn, err := buildLearner("knn", []string{"k=5"})
	require.NoError(t, err)
	assert.Equal(t, 5, lrn.Params()["k"])

	_, err = buildLearner("", nil)
	assert.Error(t, err)

	_, err = buildLearner("xgboost", nil)
	assert.Error(t, err)
}

func TestLoadTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n1,a\n2,b\n3,a\n4,b\n"), 0o644))

	tk, err := loadTask(path, "classif", "y", "")
	require.NoError(t, err)
	assert.Equal(t, "tiny", tk.ID(), "the task id defaults to the CSV base name")
	assert.Equal(t, task.Classif, tk.Type())

	_, err = loadTask("", "classif", "y", "")
	assert.Error(t, err)
	_, err = loadTask(path, "classif", "", "")
	assert.Error(t, err)
	_, err = loadTask(path, "cluster", "y", "")
	assert.Error(t, err)
}
