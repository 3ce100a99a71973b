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
	"math"
	"sort"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/task"
)

// ImputeConfig controls how missing feature values are filled.
type ImputeConfig struct {
	// Numeric picks the statistic for numeric columns: "mean" or
	// "median".
	Numeric string `yaml:"numeric" json:"numeric" validate:"omitempty,oneof=mean median"`

	// Factor picks the strategy for factor columns: "mode" fills with
	// the most frequent level, "level" with the constant NewLevel.
	Factor string `yaml:"factor" json:"factor" validate:"omitempty,oneof=mode level"`

	// NewLevel is the constant used when Factor is "level".
	NewLevel string `yaml:"new_level" json:"new_level"`
}

// DefaultImputeConfig fills numerics with the mean and factors with
// the mode.
func DefaultImputeConfig() ImputeConfig {
	return ImputeConfig{Numeric: "mean", Factor: "mode"}
}

// ImputeWrapper learns fill values for missing features on the
// training data and applies them to both the training task and every
// task the model later predicts.
type ImputeWrapper struct {
	base
	config ImputeConfig
}

// NewImpute wraps a learner with missing value imputation.
func NewImpute(inner learner.Learner, config ImputeConfig) (*ImputeWrapper, error) {
	if inner == nil {
		return nil, ErrNilInner
	}
	if config.Numeric == "" {
		config.Numeric = "mean"
	}
	if config.Factor == "" {
		config.Factor = "mode"
	}
	if config.Factor == "level" && config.NewLevel == "" {
		config.NewLevel = "missing"
	}
	return &ImputeWrapper{base: newBase("imputed", inner), config: config}, nil
}

// Clone returns an independent copy wrapping a clone of the inner
// learner.
func (w *ImputeWrapper) Clone() learner.Learner {
	return &ImputeWrapper{base: newBase(w.prefix, w.inner.Clone()), config: w.config}
}

// Train learns fill values per feature column and trains the inner
// learner on the completed task.
func (w *ImputeWrapper) Train(ctx context.Context, tk *task.Task) (learner.Model, error) {
	numFill := make(map[string]float64)
	facFill := make(map[string]string)
	for _, name := range tk.FeatureNames() {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		switch col.Type {
		case dataset.Numeric:
			numFill[name] = w.numericFill(col.Numeric)
		case dataset.Factor:
			facFill[name] = w.factorFill(col.Factor)
		}
	}

	transform := func(tk *task.Task) (*task.Task, error) {
		return imputeTask(tk, numFill, facFill)
	}
	completed, err := transform(tk)
	if err != nil {
		return nil, err
	}
	inner, err := w.inner.Train(ctx, completed)
	if err != nil {
		return nil, fmt.Errorf("wrapper: inner train: %w", err)
	}
	return &wrappedModel{id: w.ID(), inner: inner, transform: transform}, nil
}

func (w *ImputeWrapper) numericFill(xs []float64) float64 {
	vals := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	if w.config.Numeric == "median" {
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 0 {
			return (vals[mid-1] + vals[mid]) / 2
		}
		return vals[mid]
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func (w *ImputeWrapper) factorFill(xs []string) string {
	if w.config.Factor == "level" {
		return w.config.NewLevel
	}
	counts := make(map[string]int)
	for _, v := range xs {
		if v != "" {
			counts[v]++
		}
	}
	best, bestCount := w.config.NewLevel, -1
	levels := make([]string, 0, len(counts))
	for l := range counts {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	for _, l := range levels {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	if best == "" {
		best = "missing"
	}
	return best
}

// imputeTask rewrites the feature columns of tk with fill values in
// place of missing entries.
func imputeTask(tk *task.Task, numFill map[string]float64, facFill map[string]string) (*task.Task, error) {
	var cols []dataset.Column
	for _, name := range tk.Dataset().Names() {
		col, err := tk.Dataset().Column(name)
		if err != nil {
			return nil, err
		}
		out := *col
		if fill, ok := numFill[name]; ok && col.Type == dataset.Numeric {
			vals := append([]float64(nil), col.Numeric...)
			for i, v := range vals {
				if math.IsNaN(v) {
					vals[i] = fill
				}
			}
			out.Numeric = vals
		}
		if fill, ok := facFill[name]; ok && col.Type == dataset.Factor {
			vals := append([]string(nil), col.Factor...)
			for i, v := range vals {
				if v == "" {
					vals[i] = fill
				}
			}
			out.Factor = vals
		}
		cols = append(cols, out)
	}
	ds, err := dataset.New(cols...)
	if err != nil {
		return nil, err
	}
	return tk.WithDataset(ds)
}
