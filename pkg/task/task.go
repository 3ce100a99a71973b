// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package task bundles a dataset with a learning problem definition:
// the target column and the problem type (classification or
// regression).
package task

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/boreal/pkg/dataset"
)

// Type is the learning problem type.
type Type int

const (
	// Classif is a classification problem over a factor target.
	Classif Type = iota

	// Regr is a regression problem over a numeric target.
	Regr
)

// String returns "classif" or "regr".
func (t Type) String() string {
	switch t {
	case Classif:
		return "classif"
	case Regr:
		return "regr"
	default:
		return "unknown"
	}
}

// ParseType converts "classif" or "regr" to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "classif":
		return Classif, nil
	case "regr":
		return Regr, nil
	default:
		return 0, fmt.Errorf("task: unknown type %q", s)
	}
}

// ErrNoTarget is returned when the target column is absent.
var ErrNoTarget = errors.New("task: target column not found")

// Task is a dataset plus the learning problem definition. Tasks are
// immutable; Subset and SelectFeatures return new tasks over the same
// schema.
type Task struct {
	id     string
	typ    Type
	ds     *dataset.Dataset
	target string
	levels []string
}

// NewClassif creates a classification task. The target column must
// exist and be a factor with at least two levels.
func NewClassif(id string, ds *dataset.Dataset, target string) (*Task, error) {
	col, err := ds.Column(target)
	if err != nil {
		return nil, ErrNoTarget
	}
	if col.Type != dataset.Factor {
		return nil, fmt.Errorf("task %s: classif target %q must be a factor", id, target)
	}
	levels := col.Levels()
	if len(levels) < 2 {
		return nil, fmt.Errorf("task %s: target %q has %d levels, want >= 2", id, target, len(levels))
	}
	return &Task{id: id, typ: Classif, ds: ds, target: target, levels: levels}, nil
}

// NewRegr creates a regression task. The target column must exist and
// be numeric.
func NewRegr(id string, ds *dataset.Dataset, target string) (*Task, error) {
	col, err := ds.Column(target)
	if err != nil {
		return nil, ErrNoTarget
	}
	if col.Type != dataset.Numeric {
		return nil, fmt.Errorf("task %s: regr target %q must be numeric", id, target)
	}
	return &Task{id: id, typ: Regr, ds: ds, target: target}, nil
}

// New dispatches on typ.
func New(id string, typ Type, ds *dataset.Dataset, target string) (*Task, error) {
	if typ == Classif {
		return NewClassif(id, ds, target)
	}
	return NewRegr(id, ds, target)
}

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// Type returns the problem type.
func (t *Task) Type() Type { return t.typ }

// Dataset returns the backing dataset.
func (t *Task) Dataset() *dataset.Dataset { return t.ds }

// Target returns the target column name.
func (t *Task) Target() string { return t.target }

// NRows returns the number of observations.
func (t *Task) NRows() int { return t.ds.NRows() }

// ClassLevels returns the target levels of a classification task, nil
// for regression.
func (t *Task) ClassLevels() []string { return t.levels }

// FeatureNames returns all column names except the target, in schema
// order.
func (t *Task) FeatureNames() []string {
	names := make([]string, 0, t.ds.NCols()-1)
	for _, n := range t.ds.Names() {
		if n != t.target {
			names = append(names, n)
		}
	}
	return names
}

// TargetFactor returns the target values of a classification task.
func (t *Task) TargetFactor() ([]string, error) {
	if t.typ != Classif {
		return nil, fmt.Errorf("task %s: not a classification task", t.id)
	}
	col, err := t.ds.Column(t.target)
	if err != nil {
		return nil, err
	}
	return col.Factor, nil
}

// TargetNumeric returns the target values of a regression task.
func (t *Task) TargetNumeric() ([]float64, error) {
	if t.typ != Regr {
		return nil, fmt.Errorf("task %s: not a regression task", t.id)
	}
	col, err := t.ds.Column(t.target)
	if err != nil {
		return nil, err
	}
	return col.Numeric, nil
}

// Subset returns a task over the given rows. Class levels are carried
// over from the parent so a fold missing a class keeps the full label
// space.
func (t *Task) Subset(rows []int) (*Task, error) {
	ds, err := t.ds.Subset(rows)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.id, err)
	}
	return &Task{id: t.id, typ: t.typ, ds: ds, target: t.target, levels: t.levels}, nil
}

// SelectFeatures returns a task keeping only the given features plus
// the target. Unknown feature names error.
func (t *Task) SelectFeatures(features []string) (*Task, error) {
	keep := make([]string, 0, len(features)+1)
	keep = append(keep, features...)
	keep = append(keep, t.target)
	ds, err := t.ds.Select(keep)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.id, err)
	}
	return &Task{id: t.id, typ: t.typ, ds: ds, target: t.target, levels: t.levels}, nil
}

// WithDataset returns a task with the dataset replaced. The new
// dataset must still contain the target column; used by preprocessing
// wrappers that rewrite feature columns.
func (t *Task) WithDataset(ds *dataset.Dataset) (*Task, error) {
	if !ds.Has(t.target) {
		return nil, ErrNoTarget
	}
	return &Task{id: t.id, typ: t.typ, ds: ds, target: t.target, levels: t.levels}, nil
}
