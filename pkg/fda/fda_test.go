// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fda

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/dataset"
)

// curveDataset builds rows of an 8 point curve plus a label column.
func curveDataset(t *testing.T, rows [][]float64) *dataset.Dataset {
	t.Helper()
	w := len(rows[0])
	cols := make([]dataset.Column, 0, w+1)
	for j := 0; j < w; j++ {
		vals := make([]float64, len(rows))
		for i, row := range rows {
			vals[i] = row[j]
		}
		cols = append(cols, dataset.Column{
			Name:    GridColumns("c", w).Columns[j],
			Type:    dataset.Numeric,
			Numeric: vals,
		})
	}
	labels := make([]string, len(rows))
	for i := range labels {
		labels[i] = "x"
	}
	cols = append(cols, dataset.Column{Name: "label", Type: dataset.Factor, Factor: labels})
	return dataset.MustNew(cols...)
}

func TestMeanMethod(t *testing.T) {
	ds := curveDataset(t, [][]float64{
		{1, 2, 3, 4},
		{10, 10, 10, 10},
	})
	ex, err := Fit(ds, []Feature{GridColumns("c", 4)}, Mean())
	require.NoError(t, err)

	out, err := ex.Apply(ds)
	require.NoError(t, err)

	col, err := out.Column("c.mean")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, col.Numeric[0], 1e-9)
	assert.InDelta(t, 10.0, col.Numeric[1], 1e-9)

	assert.False(t, out.Has("c.1"), "curve columns are replaced")
	assert.True(t, out.Has("label"), "other columns pass through")
}

func TestRangeMethod(t *testing.T) {
	ds := curveDataset(t, [][]float64{
		{1, 5, 3, 2},
		{7, 7, 7, 7},
	})
	ex, err := Fit(ds, []Feature{GridColumns("c", 4)}, Range())
	require.NoError(t, err)

	out, err := ex.Apply(ds)
	require.NoError(t, err)
	col, err := out.Column("c.range")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, col.Numeric[0], 1e-9)
	assert.InDelta(t, 0.0, col.Numeric[1], 1e-9)
}

func TestMethodsSkipMissing(t *testing.T) {
	nan := math.NaN()
	ds := curveDataset(t, [][]float64{
		{1, nan, 3, nan},
		{nan, nan, nan, nan},
	})

	ex, err := Fit(ds, []Feature{GridColumns("c", 4)}, Mean())
	require.NoError(t, err)
	out, err := ex.Apply(ds)
	require.NoError(t, err)
	col, err := out.Column("c.mean")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, col.Numeric[0], 1e-9)
	assert.True(t, math.IsNaN(col.Numeric[1]), "an all-missing curve stays missing")
}

func TestFourierAmplitudes(t *testing.T) {
	// A pure cosine at frequency 1 concentrates its energy in amp1.
	w := 16
	curve := make([]float64, w)
	for tpt := range curve {
		curve[tpt] = math.Cos(2 * math.Pi * float64(tpt) / float64(w))
	}
	flat := make([]float64, w)
	for i := range flat {
		flat[i] = 3.0
	}
	ds := curveDataset(t, [][]float64{curve, flat})

	ex, err := Fit(ds, []Feature{GridColumns("c", w)}, Fourier(3))
	require.NoError(t, err)
	out, err := ex.Apply(ds)
	require.NoError(t, err)

	amp1, err := out.Column("c.amp1")
	require.NoError(t, err)
	amp2, err := out.Column("c.amp2")
	require.NoError(t, err)

	assert.InDelta(t, 0.5, amp1.Numeric[0], 1e-9)
	assert.InDelta(t, 0.0, amp2.Numeric[0], 1e-9)
	assert.InDelta(t, 0.0, amp1.Numeric[1], 1e-9, "a constant curve has no oscillating component")
}

func TestFourierClampsToAvailableFrequencies(t *testing.T) {
	ds := curveDataset(t, [][]float64{{1, 2, 3, 4}})
	ex, err := Fit(ds, []Feature{GridColumns("c", 4)}, Fourier(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"c.amp1", "c.amp2"}, ex.FeatureNames())
}

func TestReextractSchemaIsStable(t *testing.T) {
	train := curveDataset(t, [][]float64{{1, 2, 3, 4}, {4, 3, 2, 1}})
	ex, err := Fit(train, []Feature{GridColumns("c", 4)}, Fourier(2))
	require.NoError(t, err)

	fresh := curveDataset(t, [][]float64{{9, 9, 9, 9}})
	out, err := ex.Apply(fresh)
	require.NoError(t, err)

	for _, name := range ex.FeatureNames() {
		assert.True(t, out.Has(name), name)
	}
}

func TestApplyMissingColumn(t *testing.T) {
	train := curveDataset(t, [][]float64{{1, 2, 3, 4}})
	ex, err := Fit(train, []Feature{GridColumns("c", 4)}, Mean())
	require.NoError(t, err)

	short := curveDataset(t, [][]float64{{1, 2, 3}})
	_, err = ex.Apply(short)
	assert.Error(t, err, "a dataset without the full grid cannot be extracted")
}

func TestMultipleFunctionalFeatures(t *testing.T) {
	a := GridColumns("a", 3)
	b := GridColumns("b", 3)
	cols := []dataset.Column{
		{Name: "a.1", Type: dataset.Numeric, Numeric: []float64{1}},
		{Name: "a.2", Type: dataset.Numeric, Numeric: []float64{2}},
		{Name: "a.3", Type: dataset.Numeric, Numeric: []float64{3}},
		{Name: "b.1", Type: dataset.Numeric, Numeric: []float64{10}},
		{Name: "b.2", Type: dataset.Numeric, Numeric: []float64{20}},
		{Name: "b.3", Type: dataset.Numeric, Numeric: []float64{30}},
	}
	ds := dataset.MustNew(cols...)

	ex, err := Fit(ds, []Feature{a, b}, Mean())
	require.NoError(t, err)
	out, err := ex.Apply(ds)
	require.NoError(t, err)

	am, err := out.Column("a.mean")
	require.NoError(t, err)
	bm, err := out.Column("b.mean")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, am.Numeric[0], 1e-9)
	assert.InDelta(t, 20.0, bm.Numeric[0], 1e-9)
}

func TestNewMethodValidation(t *testing.T) {
	_, err := NewMethod("", nil, nil, nil, nil)
	assert.Error(t, err)

	names := func(int, any, map[string]any) []string { return []string{"v"} }
	re := func(c []float64, _ any, _ map[string]any) ([]float64, error) { return []float64{0}, nil }
	m, err := NewMethod("custom", nil, names, re, nil)
	require.NoError(t, err)
	state, err := m.Learn(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestMethodArgsDriveExtraction(t *testing.T) {
	ds := curveDataset(t, [][]float64{{1, 2, 3, 4, 5, 6, 7, 8}})
	feat := GridColumns("c", 8)

	narrow := Fourier(1)
	wide := narrow
	wide.Args = map[string]any{"n": 3}

	ex1, err := Fit(ds, []Feature{feat}, narrow)
	require.NoError(t, err)
	ex3, err := Fit(ds, []Feature{feat}, wide)
	require.NoError(t, err)

	assert.Equal(t, []string{"c.amp1"}, ex1.FeatureNames())
	assert.Equal(t, []string{"c.amp1", "c.amp2", "c.amp3"}, ex3.FeatureNames(),
		"the args bag alone widens the extraction")

	out, err := ex3.Apply(ds)
	require.NoError(t, err)
	assert.True(t, out.Has("c.amp3"))
}

func TestCustomLearnedMethod(t *testing.T) {
	// A method that centers curves by the grand mean learned at fit
	// time, then reports the centered first point.
	learn := func(curves [][]float64, _ map[string]any) (any, error) {
		sum, n := 0.0, 0
		for _, c := range curves {
			for _, v := range c {
				sum += v
				n++
			}
		}
		return sum / float64(n), nil
	}
	names := func(int, any, map[string]any) []string { return []string{"first_centered"} }
	re := func(c []float64, state any, _ map[string]any) ([]float64, error) {
		return []float64{c[0] - state.(float64)}, nil
	}
	m, err := NewMethod("center", learn, names, re, nil)
	require.NoError(t, err)

	train := curveDataset(t, [][]float64{{1, 2}, {3, 4}})
	ex, err := Fit(train, []Feature{GridColumns("c", 2)}, m)
	require.NoError(t, err)

	fresh := curveDataset(t, [][]float64{{10, 0}})
	out, err := ex.Apply(fresh)
	require.NoError(t, err)
	col, err := out.Column("c.first_centered")
	require.NoError(t, err)
	assert.InDelta(t, 7.5, col.Numeric[0], 1e-9, "the grand mean 2.5 comes from the fit data")
}
