// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package learner defines the Learner and Model contracts plus the
// built-in algorithms (featureless baseline, k-nearest neighbors,
// linear and logistic SGD, decision stump).
//
// A Learner is an untrained algorithm handle carrying hyperparameter
// values. Train produces an immutable Model; Predict scores a task
// holding the observations to predict. Learners are cheap to Clone so
// tuning and resampling can set parameters on private copies.
package learner

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/task"
)

var (
	// ErrEmptyTask is returned when training on a task with no rows.
	ErrEmptyTask = errors.New("learner: empty task")

	// ErrUnsupportedTask is returned when a learner cannot handle the
	// task's problem type.
	ErrUnsupportedTask = errors.New("learner: unsupported task type")
)

// Learner is a trainable algorithm plus its hyperparameter values.
//
// Thread Safety: a Learner is not safe for concurrent mutation. Clone
// before setting parameters from multiple goroutines; Train itself
// does not mutate the learner.
type Learner interface {
	// ID returns the learner identifier, e.g. "classif.knn".
	ID() string

	// Supports reports whether the learner handles the problem type.
	Supports(t task.Type) bool

	// ParamSet describes the tunable hyperparameter space.
	ParamSet() *params.Set

	// Params returns the current hyperparameter values.
	Params() params.Assignment

	// SetParams merges values into the current assignment. Each value
	// is validated against the parameter's bounds or levels.
	SetParams(a params.Assignment) error

	// Clone returns an independent copy with the same parameters.
	Clone() Learner

	// Train fits a model on the task.
	Train(ctx context.Context, tk *task.Task) (Model, error)
}

// Model is a trained, immutable artifact.
type Model interface {
	// LearnerID returns the id of the learner that produced the model.
	LearnerID() string

	// Predict scores every row of the given task. The returned
	// prediction's Rows are indices into that task; callers tracking
	// original row ids overwrite Rows afterwards.
	Predict(ctx context.Context, tk *task.Task) (*Prediction, error)
}

// Prediction holds truth and response for a scored set of rows.
// Classification fills TruthC/RespC (and optionally Prob, indexed by
// Levels); regression fills TruthF/RespF.
type Prediction struct {
	Type task.Type
	Rows []int

	TruthF []float64
	RespF  []float64

	TruthC []string
	RespC  []string
	Levels []string
	Prob   [][]float64
}

// Len returns the number of predicted rows.
func (p *Prediction) Len() int {
	if p.Type == task.Classif {
		return len(p.RespC)
	}
	return len(p.RespF)
}

// ProbOf returns the predicted probability of the given level for row
// i, or 0 if probabilities are absent.
func (p *Prediction) ProbOf(i int, level string) float64 {
	if p.Prob == nil {
		return 0
	}
	for j, lvl := range p.Levels {
		if lvl == level {
			return p.Prob[i][j]
		}
	}
	return 0
}

// base carries the id/param plumbing shared by built-in learners.
type base struct {
	id   string
	set  *params.Set
	vals params.Assignment
}

func newBase(id string, set *params.Set, defaults params.Assignment) base {
	return base{id: id, set: set, vals: defaults.Clone()}
}

func (b *base) ID() string            { return b.id }
func (b *base) ParamSet() *params.Set { return b.set }

func (b *base) Params() params.Assignment { return b.vals.Clone() }

func (b *base) SetParams(a params.Assignment) error {
	merged := b.vals.Clone()
	for name, v := range a {
		if _, ok := b.set.Get(name); !ok {
			return fmt.Errorf("learner %s: unknown parameter %q", b.id, name)
		}
		merged[name] = v
	}
	if err := b.set.Validate(merged); err != nil {
		return fmt.Errorf("learner %s: %w", b.id, err)
	}
	b.vals = merged
	return nil
}

func (b *base) cloneBase() base {
	return base{id: b.id, set: b.set, vals: b.vals.Clone()}
}

// float/int/bool/str read the current value of a parameter. They
// panic on type mismatch, which indicates a defaults bug, not user
// input.
func (b *base) float(name string) float64 { return b.vals[name].(float64) }
func (b *base) int(name string) int       { return b.vals[name].(int) }
func (b *base) bool(name string) bool     { return b.vals[name].(bool) }
func (b *base) str(name string) string    { return b.vals[name].(string) }

func checkTrainable(l Learner, tk *task.Task) error {
	if tk.NRows() == 0 {
		return ErrEmptyTask
	}
	if !l.Supports(tk.Type()) {
		return fmt.Errorf("%w: %s cannot train %s tasks", ErrUnsupportedTask, l.ID(), tk.Type())
	}
	return nil
}
