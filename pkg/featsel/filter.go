// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package featsel provides feature filtering and feature subset
// selection for tasks.
//
// Filters score every feature independently of any learner and are
// cheap; subset selection searches the space of feature subsets and
// scores each candidate by a full resampling run of a learner.
package featsel

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/task"
)

// -----------------------------------------------------------------------------
// Filters
// -----------------------------------------------------------------------------

// Filter scores each feature of a task. Higher scores mean more
// relevant; features a filter cannot score get NaN and rank last.
type Filter struct {
	// ID is the registry key.
	ID string

	// Fn computes a score per feature name.
	Fn func(tk *task.Task) (map[string]float64, error)
}

// ErrUnknownFilter is returned by Lookup for unregistered ids.
var ErrUnknownFilter = errors.New("featsel: unknown filter")

var filters = map[string]Filter{}

func register(f Filter) {
	filters[f.ID] = f
}

func init() {
	register(Filter{ID: "variance", Fn: varianceFilter})
	register(Filter{ID: "pearson", Fn: pearsonFilter})
	register(Filter{ID: "infogain", Fn: infoGainFilter})
	register(Filter{ID: "chisq", Fn: chiSqFilter})
}

// Lookup returns the filter registered under id.
func Lookup(id string) (Filter, error) {
	f, ok := filters[id]
	if !ok {
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownFilter, id)
	}
	return f, nil
}

// List returns the registered filter ids, sorted.
func List() []string {
	ids := make([]string, 0, len(filters))
	for id := range filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Values holds per-feature scores produced by a filter.
type Values struct {
	FilterID string             `json:"filter"`
	Scores   map[string]float64 `json:"scores"`
}

// Compute runs the filter with the given id on the task.
func Compute(id string, tk *task.Task) (Values, error) {
	f, err := Lookup(id)
	if err != nil {
		return Values{}, err
	}
	scores, err := f.Fn(tk)
	if err != nil {
		return Values{}, fmt.Errorf("featsel: filter %s: %w", id, err)
	}
	return Values{FilterID: id, Scores: scores}, nil
}

// Ranked returns feature names ordered best-first. NaN scores rank
// last; ties break alphabetically so ranking is deterministic.
func (v Values) Ranked() []string {
	names := make([]string, 0, len(v.Scores))
	for n := range v.Scores {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := v.Scores[names[i]], v.Scores[names[j]]
		ni, nj := math.IsNaN(si), math.IsNaN(sj)
		switch {
		case ni && nj:
			return names[i] < names[j]
		case ni:
			return false
		case nj:
			return true
		case si != sj:
			return si > sj
		default:
			return names[i] < names[j]
		}
	})
	return names
}

// SelectAbs returns the n best-ranked features. n is clamped to the
// number of scored features.
func (v Values) SelectAbs(n int) []string {
	ranked := v.Ranked()
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// SelectPerc returns the best-ranked fraction p in (0, 1] of the
// features, keeping at least one when p > 0.
func (v Values) SelectPerc(p float64) []string {
	ranked := v.Ranked()
	if p <= 0 {
		return nil
	}
	if p > 1 {
		p = 1
	}
	n := int(math.Round(p * float64(len(ranked))))
	if n < 1 {
		n = 1
	}
	return ranked[:n]
}

// SelectThreshold returns the features scoring >= t, best-first. NaN
// scores never pass.
func (v Values) SelectThreshold(t float64) []string {
	var keep []string
	for _, n := range v.Ranked() {
		s := v.Scores[n]
		if !math.IsNaN(s) && s >= t {
			keep = append(keep, n)
		}
	}
	return keep
}

// -----------------------------------------------------------------------------
// Filter implementations
// -----------------------------------------------------------------------------

// varianceFilter scores numeric features by sample variance. Factor
// features get NaN.
func varianceFilter(tk *task.Task) (map[string]float64, error) {
	scores := make(map[string]float64)
	for _, name := range tk.FeatureNames() {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		if col.Type != dataset.Numeric {
			scores[name] = math.NaN()
			continue
		}
		scores[name] = variance(col.Numeric)
	}
	return scores, nil
}

// pearsonFilter scores numeric features by the absolute Pearson
// correlation with a numeric target. Factor features get NaN.
func pearsonFilter(tk *task.Task) (map[string]float64, error) {
	y, err := tk.TargetNumeric()
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64)
	for _, name := range tk.FeatureNames() {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		if col.Type != dataset.Numeric {
			scores[name] = math.NaN()
			continue
		}
		scores[name] = math.Abs(pearson(col.Numeric, y))
	}
	return scores, nil
}

// infoGainFilter scores features by the information gain H(Y) - H(Y|X)
// against the target. Numeric columns are discretized into
// equal-frequency bins first; for regression tasks the target is
// discretized the same way.
func infoGainFilter(tk *task.Task) (map[string]float64, error) {
	y, err := targetLabels(tk)
	if err != nil {
		return nil, err
	}
	hy := entropy(y)
	scores := make(map[string]float64)
	for _, name := range tk.FeatureNames() {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		scores[name] = hy - conditionalEntropy(y, discretize(col, defaultBins))
	}
	return scores, nil
}

// chiSqFilter scores features by the chi-squared statistic of the
// feature/target contingency table, discretizing numeric columns.
func chiSqFilter(tk *task.Task) (map[string]float64, error) {
	y, err := targetLabels(tk)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64)
	for _, name := range tk.FeatureNames() {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		scores[name] = chiSquared(discretize(col, defaultBins), y)
	}
	return scores, nil
}

const defaultBins = 4

// targetLabels returns the target as discrete labels, discretizing a
// numeric target for regression tasks.
func targetLabels(tk *task.Task) ([]string, error) {
	if tk.Type() == task.Classif {
		return tk.TargetFactor()
	}
	y, err := tk.TargetNumeric()
	if err != nil {
		return nil, err
	}
	col := dataset.Column{Name: tk.Target(), Type: dataset.Numeric, Numeric: y}
	return discretize(&col, defaultBins), nil
}

// discretize maps a column to string labels: factor values pass
// through, numeric values become equal-frequency bin labels, and
// missing values get their own label.
func discretize(col *dataset.Column, bins int) []string {
	if col.Type == dataset.Factor {
		out := make([]string, len(col.Factor))
		for i, v := range col.Factor {
			if v == "" {
				out[i] = "<missing>"
			} else {
				out[i] = v
			}
		}
		return out
	}

	sorted := make([]float64, 0, len(col.Numeric))
	for _, v := range col.Numeric {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)

	out := make([]string, len(col.Numeric))
	for i, v := range col.Numeric {
		if math.IsNaN(v) {
			out[i] = "<missing>"
			continue
		}
		if len(sorted) == 0 {
			out[i] = "bin0"
			continue
		}
		rank := sort.SearchFloat64s(sorted, v)
		b := rank * bins / len(sorted)
		if b >= bins {
			b = bins - 1
		}
		out[i] = fmt.Sprintf("bin%d", b)
	}
	return out
}

func entropy(labels []string) float64 {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	n := float64(len(labels))
	h := 0.0
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

func conditionalEntropy(y, x []string) float64 {
	groups := make(map[string][]string)
	for i, xv := range x {
		groups[xv] = append(groups[xv], y[i])
	}
	n := float64(len(y))
	h := 0.0
	for _, g := range groups {
		h += float64(len(g)) / n * entropy(g)
	}
	return h
}

func chiSquared(x, y []string) float64 {
	table := make(map[string]map[string]int)
	rowTotals := make(map[string]int)
	colTotals := make(map[string]int)
	for i := range x {
		if table[x[i]] == nil {
			table[x[i]] = make(map[string]int)
		}
		table[x[i]][y[i]]++
		rowTotals[x[i]]++
		colTotals[y[i]]++
	}
	n := float64(len(x))
	stat := 0.0
	for xv, row := range table {
		for yv := range colTotals {
			expected := float64(rowTotals[xv]) * float64(colTotals[yv]) / n
			if expected == 0 {
				continue
			}
			observed := float64(row[yv])
			stat += (observed - expected) * (observed - expected) / expected
		}
	}
	return stat
}

func variance(xs []float64) float64 {
	n := 0
	mean := 0.0
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		n++
		mean += v
	}
	if n < 2 {
		return math.NaN()
	}
	mean /= float64(n)
	ss := 0.0
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		ss += (v - mean) * (v - mean)
	}
	return ss / float64(n-1)
}

func pearson(x, y []float64) float64 {
	n := 0
	mx, my := 0.0, 0.0
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		n++
		mx += x[i]
		my += y[i]
	}
	if n < 2 {
		return math.NaN()
	}
	mx /= float64(n)
	my /= float64(n)
	var sxy, sxx, syy float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		sxy += (x[i] - mx) * (y[i] - my)
		sxx += (x[i] - mx) * (x[i] - mx)
		syy += (y[i] - my) * (y[i] - my)
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}
