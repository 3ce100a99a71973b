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
	"errors"
	"fmt"

	"github.com/AleutianAI/boreal/pkg/featsel"
	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/task"
)

// Rule decides which features to keep from filter scores.
type Rule struct {
	kind      ruleKind
	n         int
	p         float64
	threshold float64
}

type ruleKind int

const (
	ruleAbs ruleKind = iota
	rulePerc
	ruleThreshold
)

// Abs keeps the n best-ranked features.
func Abs(n int) Rule { return Rule{kind: ruleAbs, n: n} }

// Perc keeps the best-ranked fraction p of the features.
func Perc(p float64) Rule { return Rule{kind: rulePerc, p: p} }

// Threshold keeps features scoring at least t.
func Threshold(t float64) Rule { return Rule{kind: ruleThreshold, threshold: t} }

func (r Rule) apply(v featsel.Values) []string {
	switch r.kind {
	case rulePerc:
		return v.SelectPerc(r.p)
	case ruleThreshold:
		return v.SelectThreshold(r.threshold)
	default:
		return v.SelectAbs(r.n)
	}
}

// FilterWrapper scores features with a filter on the training data,
// keeps the ones the rule selects, and trains the inner learner on the
// reduced task. Prediction restricts incoming tasks to the same
// features, so the filter never sees test data.
type FilterWrapper struct {
	base
	filterID string
	rule     Rule
}

// NewFilter wraps a learner with filter-based feature selection.
func NewFilter(inner learner.Learner, filterID string, rule Rule) (*FilterWrapper, error) {
	if inner == nil {
		return nil, ErrNilInner
	}
	if _, err := featsel.Lookup(filterID); err != nil {
		return nil, err
	}
	return &FilterWrapper{base: newBase("filtered", inner), filterID: filterID, rule: rule}, nil
}

// Clone returns an independent copy wrapping a clone of the inner
// learner.
func (w *FilterWrapper) Clone() learner.Learner {
	return &FilterWrapper{base: newBase(w.prefix, w.inner.Clone()), filterID: w.filterID, rule: w.rule}
}

// Train computes filter values on the training task, selects features,
// and fits the inner learner on the reduced task.
func (w *FilterWrapper) Train(ctx context.Context, tk *task.Task) (learner.Model, error) {
	values, err := featsel.Compute(w.filterID, tk)
	if err != nil {
		return nil, err
	}
	selected := w.rule.apply(values)
	if len(selected) == 0 {
		return nil, errors.New("wrapper: filter rule selected no features")
	}
	reduced, err := tk.SelectFeatures(selected)
	if err != nil {
		return nil, err
	}
	inner, err := w.inner.Train(ctx, reduced)
	if err != nil {
		return nil, fmt.Errorf("wrapper: inner train: %w", err)
	}
	return &wrappedModel{
		id:    w.ID(),
		inner: inner,
		transform: func(tk *task.Task) (*task.Task, error) {
			return tk.SelectFeatures(selected)
		},
	}, nil
}
