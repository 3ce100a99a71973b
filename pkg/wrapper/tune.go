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

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/task"
	"github.com/AleutianAI/boreal/pkg/tune"
)

// TuneWrapper tunes the inner learner's hyperparameters on each
// training task before fitting. Resampling a tuned wrapper yields
// nested resampling: the inner tuning loop only ever sees the outer
// training split, so the outer test split stays untouched by the
// search.
type TuneWrapper struct {
	base
	set      *params.Set
	desc     resample.Desc
	measures []measure.Measure
	control  tune.Control
	tuner    *tune.Tuner
}

// NewTune wraps a learner with per-fit hyperparameter tuning. The
// desc describes the inner resampling; a nil tuner gets default
// executor options.
func NewTune(
	inner learner.Learner,
	set *params.Set,
	desc resample.Desc,
	measures []measure.Measure,
	control tune.Control,
	tuner *tune.Tuner,
) (*TuneWrapper, error) {
	if inner == nil {
		return nil, ErrNilInner
	}
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("wrapper: tuned learner needs a parameter set")
	}
	if desc == nil || control == nil {
		return nil, fmt.Errorf("wrapper: tuned learner needs a resample description and a control")
	}
	if tuner == nil {
		tuner = tune.NewTuner(nil, nil)
	}
	return &TuneWrapper{
		base:     newBase("tuned", inner),
		set:      set,
		desc:     desc,
		measures: measures,
		control:  control,
		tuner:    tuner,
	}, nil
}

// Clone returns an independent copy wrapping a clone of the inner
// learner. The search configuration is shared; it is read-only.
func (w *TuneWrapper) Clone() learner.Learner {
	return &TuneWrapper{
		base:     newBase(w.prefix, w.inner.Clone()),
		set:      w.set,
		desc:     w.desc,
		measures: w.measures,
		control:  w.control,
		tuner:    w.tuner,
	}
}

// Train searches the parameter space on tk, then fits the inner
// learner with the best setting found.
func (w *TuneWrapper) Train(ctx context.Context, tk *task.Task) (learner.Model, error) {
	res, err := w.tuner.Run(ctx, w.inner, tk, w.set, w.desc, w.measures, w.control)
	if err != nil {
		return nil, fmt.Errorf("wrapper: inner tuning: %w", err)
	}
	fitted := w.inner.Clone()
	if err := fitted.SetParams(res.X); err != nil {
		return nil, err
	}
	inner, err := fitted.Train(ctx, tk)
	if err != nil {
		return nil, fmt.Errorf("wrapper: inner train: %w", err)
	}
	return &wrappedModel{id: w.ID(), inner: inner}, nil
}
