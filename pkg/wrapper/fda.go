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

	"github.com/AleutianAI/boreal/pkg/fda"
	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/task"
)

// FDAWrapper extracts scalar features from functional features before
// training and prediction. The extraction is fitted on the training
// task only; prediction tasks pass through the same fitted extractor,
// so the output schema the inner model sees never changes.
type FDAWrapper struct {
	base
	features []fda.Feature
	method   fda.Method
}

// NewFDA wraps a learner with functional feature extraction.
func NewFDA(inner learner.Learner, features []fda.Feature, method fda.Method) (*FDAWrapper, error) {
	if inner == nil {
		return nil, ErrNilInner
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("wrapper: no functional features given")
	}
	if method.Reextract == nil {
		return nil, fmt.Errorf("wrapper: extraction method is not initialized")
	}
	return &FDAWrapper{base: newBase("fda", inner), features: features, method: method}, nil
}

// Clone returns an independent copy wrapping a clone of the inner
// learner.
func (w *FDAWrapper) Clone() learner.Learner {
	return &FDAWrapper{base: newBase(w.prefix, w.inner.Clone()), features: w.features, method: w.method}
}

// Train fits the extractor on tk and trains the inner learner on the
// extracted task.
func (w *FDAWrapper) Train(ctx context.Context, tk *task.Task) (learner.Model, error) {
	ex, err := fda.Fit(tk.Dataset(), w.features, w.method)
	if err != nil {
		return nil, err
	}
	transform := func(tk *task.Task) (*task.Task, error) {
		ds, err := ex.Apply(tk.Dataset())
		if err != nil {
			return nil, err
		}
		return tk.WithDataset(ds)
	}
	extracted, err := transform(tk)
	if err != nil {
		return nil, err
	}
	inner, err := w.inner.Train(ctx, extracted)
	if err != nil {
		return nil, fmt.Errorf("wrapper: inner train: %w", err)
	}
	return &wrappedModel{id: w.ID(), inner: inner, transform: transform}, nil
}
