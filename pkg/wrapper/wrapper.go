// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package wrapper composes learners with preprocessing and training
// strategies. A wrapped learner is itself a Learner: wrappers stack,
// and the whole chain trains and predicts as one unit, so resampling
// and tuning see no leakage from the wrapped steps.
package wrapper

import (
	"context"
	"errors"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/task"
)

// ErrNilInner is returned when a wrapper is built without a learner.
var ErrNilInner = errors.New("wrapper: nil inner learner")

// base delegates the Learner plumbing to the wrapped learner while
// prefixing its id. Concrete wrappers embed it and override Train and
// Clone.
type base struct {
	inner  learner.Learner
	prefix string
}

func newBase(prefix string, inner learner.Learner) base {
	return base{inner: inner, prefix: prefix}
}

func (b *base) ID() string { return b.prefix + "." + b.inner.ID() }

func (b *base) Supports(t task.Type) bool { return b.inner.Supports(t) }

func (b *base) ParamSet() *params.Set { return b.inner.ParamSet() }

func (b *base) Params() params.Assignment { return b.inner.Params() }

func (b *base) SetParams(a params.Assignment) error { return b.inner.SetParams(a) }

// wrappedModel pairs an inner model with the wrapper's id and an
// optional prediction-time task transform.
type wrappedModel struct {
	id        string
	inner     learner.Model
	transform func(tk *task.Task) (*task.Task, error)
}

func (m *wrappedModel) LearnerID() string { return m.id }

func (m *wrappedModel) Predict(ctx context.Context, tk *task.Task) (*learner.Prediction, error) {
	if m.transform != nil {
		var err error
		tk, err = m.transform(tk)
		if err != nil {
			return nil, err
		}
	}
	return m.inner.Predict(ctx, tk)
}
