// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fda extracts scalar features from functional features.
//
// A functional feature is a curve sampled on a fixed grid and stored
// as a group of numeric columns, one column per grid point. Extraction
// replaces the group with a handful of scalar columns (mean, range,
// Fourier amplitudes) so ordinary learners can consume the data. A
// method is fitted once on training data and re-applied to new data,
// which is guaranteed to produce the same output schema.
package fda

import (
	"errors"
	"fmt"
	"math"

	"github.com/AleutianAI/boreal/pkg/dataset"
)

// Feature names one functional feature: the logical curve name and
// the numeric columns holding its grid points, in grid order.
type Feature struct {
	Name    string   `json:"name" yaml:"name" validate:"required"`
	Columns []string `json:"columns" yaml:"columns" validate:"required,min=1"`
}

// Method turns one curve into scalar features.
//
// Learn fits any state the method needs on the training curves (it
// may be nil for stateless methods). Names lists the produced feature
// suffixes, which must not depend on the data passed to Reextract.
// Reextract maps a single curve to its scalar features and must
// return exactly len(Names) values. Args parameterizes the method and
// is forwarded unchanged to Learn, Names, and Reextract, so the same
// method can be reused with different settings.
type Method struct {
	ID        string
	Args      map[string]any
	Learn     func(curves [][]float64, args map[string]any) (any, error)
	Names     func(width int, state any, args map[string]any) []string
	Reextract func(curve []float64, state any, args map[string]any) ([]float64, error)
}

// NewMethod builds a Method from its parts, filling a nil Learn with
// a no-op.
func NewMethod(
	id string,
	learn func(curves [][]float64, args map[string]any) (any, error),
	names func(width int, state any, args map[string]any) []string,
	reextract func(curve []float64, state any, args map[string]any) ([]float64, error),
	args map[string]any,
) (Method, error) {
	if id == "" {
		return Method{}, errors.New("fda: method needs an id")
	}
	if names == nil || reextract == nil {
		return Method{}, errors.New("fda: method needs Names and Reextract")
	}
	if learn == nil {
		learn = func([][]float64, map[string]any) (any, error) { return nil, nil }
	}
	return Method{ID: id, Args: args, Learn: learn, Names: names, Reextract: reextract}, nil
}

// -----------------------------------------------------------------------------
// Built-in methods
// -----------------------------------------------------------------------------

// Mean reduces a curve to its mean value, skipping missing points.
func Mean() Method {
	m, _ := NewMethod("mean", nil,
		func(width int, _ any, _ map[string]any) []string { return []string{"mean"} },
		func(curve []float64, _ any, _ map[string]any) ([]float64, error) {
			sum, n := 0.0, 0
			for _, v := range curve {
				if !math.IsNaN(v) {
					sum += v
					n++
				}
			}
			if n == 0 {
				return []float64{math.NaN()}, nil
			}
			return []float64{sum / float64(n)}, nil
		}, nil)
	return m
}

// Range reduces a curve to max minus min, skipping missing points.
func Range() Method {
	m, _ := NewMethod("range", nil,
		func(width int, _ any, _ map[string]any) []string { return []string{"range"} },
		func(curve []float64, _ any, _ map[string]any) ([]float64, error) {
			lo, hi := math.Inf(1), math.Inf(-1)
			seen := false
			for _, v := range curve {
				if math.IsNaN(v) {
					continue
				}
				seen = true
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			if !seen {
				return []float64{math.NaN()}, nil
			}
			return []float64{hi - lo}, nil
		}, nil)
	return m
}

// Fourier extracts the amplitudes of the first n non-constant discrete
// Fourier frequencies of the curve. Missing points are replaced by the
// curve mean before the transform. n lives in the method's Args under
// "n" and is clamped to the number of available frequencies at
// extraction time.
func Fourier(n int) Method {
	if n < 1 {
		n = 1
	}
	m, _ := NewMethod("fourier", nil,
		func(width int, _ any, args map[string]any) []string {
			k := fourierCount(width, fourierN(args))
			names := make([]string, k)
			for i := range names {
				names[i] = fmt.Sprintf("amp%d", i+1)
			}
			return names
		},
		func(curve []float64, _ any, args map[string]any) ([]float64, error) {
			k := fourierCount(len(curve), fourierN(args))
			filled := fillMissing(curve)
			out := make([]float64, k)
			nn := float64(len(filled))
			for f := 1; f <= k; f++ {
				var re, im float64
				for t, v := range filled {
					angle := -2 * math.Pi * float64(f) * float64(t) / nn
					re += v * math.Cos(angle)
					im += v * math.Sin(angle)
				}
				out[f-1] = math.Hypot(re, im) / nn
			}
			return out, nil
		}, map[string]any{"n": n})
	return m
}

func fourierN(args map[string]any) int {
	n, ok := args["n"].(int)
	if !ok || n < 1 {
		return 1
	}
	return n
}

func fourierCount(width, n int) int {
	max := width / 2
	if max < 1 {
		max = 1
	}
	if n < max {
		return n
	}
	return max
}

func fillMissing(curve []float64) []float64 {
	sum, n := 0.0, 0
	for _, v := range curve {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	out := make([]float64, len(curve))
	for i, v := range curve {
		if math.IsNaN(v) {
			out[i] = mean
		} else {
			out[i] = v
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Fitting and application
// -----------------------------------------------------------------------------

// fittedFeature holds the learned state for one functional feature.
type fittedFeature struct {
	feature Feature
	state   any
	names   []string
}

// Extractor is a fitted extraction: the same methods, states, and
// output schema are applied to every dataset it sees.
type Extractor struct {
	method Method
	fitted []fittedFeature
}

// Fit learns the method on the given functional features of ds.
// Non-curve columns are untouched; every curve column must be numeric
// and present.
func Fit(ds *dataset.Dataset, features []Feature, m Method) (*Extractor, error) {
	if len(features) == 0 {
		return nil, errors.New("fda: no functional features given")
	}
	if m.Reextract == nil {
		return nil, errors.New("fda: method is not initialized")
	}
	ex := &Extractor{method: m}
	for _, f := range features {
		curves, err := curveRows(ds, f)
		if err != nil {
			return nil, err
		}
		state, err := m.Learn(curves, m.Args)
		if err != nil {
			return nil, fmt.Errorf("fda: learn %s on %s: %w", m.ID, f.Name, err)
		}
		ex.fitted = append(ex.fitted, fittedFeature{
			feature: f,
			state:   state,
			names:   m.Names(len(f.Columns), state, m.Args),
		})
	}
	return ex, nil
}

// FeatureNames returns the scalar column names the extractor produces,
// in output order. The names are fixed at Fit time.
func (e *Extractor) FeatureNames() []string {
	var names []string
	for _, ff := range e.fitted {
		for _, n := range ff.names {
			names = append(names, ff.feature.Name+"."+n)
		}
	}
	return names
}

// Apply replaces each functional feature's columns with the extracted
// scalar columns. Other columns pass through unchanged. The output
// schema is identical for every input dataset; a dataset missing a
// curve column is an error.
func (e *Extractor) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	curveCols := make(map[string]bool)
	for _, ff := range e.fitted {
		for _, c := range ff.feature.Columns {
			curveCols[c] = true
		}
	}

	var cols []dataset.Column
	for _, name := range ds.Names() {
		if curveCols[name] {
			continue
		}
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, *col)
	}

	for _, ff := range e.fitted {
		curves, err := curveRows(ds, ff.feature)
		if err != nil {
			return nil, err
		}
		width := len(ff.names)
		out := make([][]float64, width)
		for i := range out {
			out[i] = make([]float64, len(curves))
		}
		for r, curve := range curves {
			vals, err := e.method.Reextract(curve, ff.state, e.method.Args)
			if err != nil {
				return nil, fmt.Errorf("fda: reextract %s on %s row %d: %w", e.method.ID, ff.feature.Name, r, err)
			}
			if len(vals) != width {
				return nil, fmt.Errorf("fda: method %s produced %d values for %s, expected %d",
					e.method.ID, len(vals), ff.feature.Name, width)
			}
			for i, v := range vals {
				out[i][r] = v
			}
		}
		for i, n := range ff.names {
			cols = append(cols, dataset.Column{
				Name:    ff.feature.Name + "." + n,
				Type:    dataset.Numeric,
				Numeric: out[i],
			})
		}
	}
	return dataset.New(cols...)
}

// curveRows gathers the per-row curves of one functional feature.
func curveRows(ds *dataset.Dataset, f Feature) ([][]float64, error) {
	cols := make([]*dataset.Column, len(f.Columns))
	for i, name := range f.Columns {
		col, err := ds.Column(name)
		if err != nil {
			return nil, fmt.Errorf("fda: feature %s: column %q not in dataset", f.Name, name)
		}
		if col.Type != dataset.Numeric {
			return nil, fmt.Errorf("fda: feature %s: column %q is not numeric", f.Name, name)
		}
		cols[i] = col
	}
	curves := make([][]float64, ds.NRows())
	for r := range curves {
		curve := make([]float64, len(cols))
		for i, col := range cols {
			curve[i] = col.Numeric[r]
		}
		curves[r] = curve
	}
	return curves, nil
}

// GridColumns names the w columns of a curve sampled on a regular
// grid, "name.1" through "name.w". It is a convenience for building
// Feature values over generated datasets.
func GridColumns(name string, w int) Feature {
	cols := make([]string, w)
	for i := range cols {
		cols[i] = fmt.Sprintf("%s.%d", name, i+1)
	}
	return Feature{Name: name, Columns: cols}
}
