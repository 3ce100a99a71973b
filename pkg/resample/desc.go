// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resample implements train/test partitioning strategies and
// the parallel executor that evaluates a learner over them.
package resample

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/AleutianAI/boreal/pkg/task"
)

// ErrTooFewRows is returned when a description cannot be materialized
// on a task with the given row count.
var ErrTooFewRows = errors.New("resample: too few rows")

// Split is one train/test partition. Indices refer to task rows.
type Split struct {
	Train []int
	Test  []int
}

// Instance is a materialized description: concrete row splits for one
// task.
type Instance struct {
	DescID string
	Splits []Split
}

// Desc describes how a task is partitioned into train/test splits.
type Desc interface {
	// ID is a short description label, e.g. "cv5".
	ID() string

	// Instance materializes the splits for a task using rng.
	Instance(tk *task.Task, rng *rand.Rand) (*Instance, error)
}

// CV is k-fold cross-validation. With Stratify set (classification
// only), class proportions are preserved per fold.
type CV struct {
	Folds    int
	Stratify bool
}

func (d CV) ID() string { return fmt.Sprintf("cv%d", d.Folds) }

func (d CV) Instance(tk *task.Task, rng *rand.Rand) (*Instance, error) {
	n := tk.NRows()
	if d.Folds < 2 {
		return nil, fmt.Errorf("resample: cv needs >= 2 folds, got %d", d.Folds)
	}
	if n < d.Folds {
		return nil, fmt.Errorf("%w: %d rows for %d folds", ErrTooFewRows, n, d.Folds)
	}

	folds, err := assignFolds(tk, d.Folds, d.Stratify, rng)
	if err != nil {
		return nil, err
	}

	splits := make([]Split, d.Folds)
	for f := 0; f < d.Folds; f++ {
		for i := 0; i < n; i++ {
			if folds[i] == f {
				splits[f].Test = append(splits[f].Test, i)
			} else {
				splits[f].Train = append(splits[f].Train, i)
			}
		}
	}
	return &Instance{DescID: d.ID(), Splits: splits}, nil
}

// RepCV repeats k-fold cross-validation with fresh fold assignments.
type RepCV struct {
	Reps     int
	Folds    int
	Stratify bool
}

func (d RepCV) ID() string { return fmt.Sprintf("repcv%dx%d", d.Reps, d.Folds) }

func (d RepCV) Instance(tk *task.Task, rng *rand.Rand) (*Instance, error) {
	if d.Reps < 1 {
		return nil, fmt.Errorf("resample: repcv needs >= 1 rep, got %d", d.Reps)
	}
	inst := &Instance{DescID: d.ID()}
	inner := CV{Folds: d.Folds, Stratify: d.Stratify}
	for r := 0; r < d.Reps; r++ {
		rep, err := inner.Instance(tk, rng)
		if err != nil {
			return nil, err
		}
		inst.Splits = append(inst.Splits, rep.Splits...)
	}
	return inst, nil
}

// Holdout is a single random train/test split. Split is the training
// fraction.
type Holdout struct {
	Split float64
}

func (d Holdout) ID() string { return "holdout" }

func (d Holdout) Instance(tk *task.Task, rng *rand.Rand) (*Instance, error) {
	n := tk.NRows()
	cut := int(float64(n) * d.Split)
	if d.Split <= 0 || d.Split >= 1 || cut == 0 || cut == n {
		return nil, fmt.Errorf("resample: holdout split %v leaves an empty side for %d rows", d.Split, n)
	}
	perm := rng.Perm(n)
	return &Instance{
		DescID: d.ID(),
		Splits: []Split{{Train: perm[:cut], Test: perm[cut:]}},
	}, nil
}

// Subsample repeats the holdout split Iters times (Monte Carlo
// cross-validation).
type Subsample struct {
	Iters int
	Split float64
}

func (d Subsample) ID() string { return fmt.Sprintf("subsample%d", d.Iters) }

func (d Subsample) Instance(tk *task.Task, rng *rand.Rand) (*Instance, error) {
	if d.Iters < 1 {
		return nil, fmt.Errorf("resample: subsample needs >= 1 iter, got %d", d.Iters)
	}
	inst := &Instance{DescID: d.ID()}
	inner := Holdout{Split: d.Split}
	for i := 0; i < d.Iters; i++ {
		one, err := inner.Instance(tk, rng)
		if err != nil {
			return nil, err
		}
		inst.Splits = append(inst.Splits, one.Splits...)
	}
	return inst, nil
}

// Bootstrap draws n rows with replacement for training and tests on
// the out-of-bag rows.
type Bootstrap struct {
	Iters int
}

func (d Bootstrap) ID() string { return fmt.Sprintf("bootstrap%d", d.Iters) }

func (d Bootstrap) Instance(tk *task.Task, rng *rand.Rand) (*Instance, error) {
	n := tk.NRows()
	if d.Iters < 1 {
		return nil, fmt.Errorf("resample: bootstrap needs >= 1 iter, got %d", d.Iters)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: %d rows for bootstrap", ErrTooFewRows, n)
	}
	inst := &Instance{DescID: d.ID()}
	for i := 0; i < d.Iters; i++ {
		var split Split
		for {
			split = Split{Train: make([]int, n)}
			inBag := make([]bool, n)
			for j := 0; j < n; j++ {
				r := rng.Intn(n)
				split.Train[j] = r
				inBag[r] = true
			}
			for j := 0; j < n; j++ {
				if !inBag[j] {
					split.Test = append(split.Test, j)
				}
			}
			// A draw hitting every row has an empty test set; redraw.
			if len(split.Test) > 0 {
				break
			}
		}
		inst.Splits = append(inst.Splits, split)
	}
	return inst, nil
}

// LOO is leave-one-out cross-validation.
type LOO struct{}

func (d LOO) ID() string { return "loo" }

func (d LOO) Instance(tk *task.Task, rng *rand.Rand) (*Instance, error) {
	n := tk.NRows()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d rows for loo", ErrTooFewRows, n)
	}
	inst := &Instance{DescID: d.ID(), Splits: make([]Split, n)}
	for i := 0; i < n; i++ {
		train := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				train = append(train, j)
			}
		}
		inst.Splits[i] = Split{Train: train, Test: []int{i}}
	}
	return inst, nil
}

// assignFolds deals rows into folds. Stratified assignment shuffles
// within each class and deals round-robin so every fold keeps the
// class proportions.
func assignFolds(tk *task.Task, k int, stratify bool, rng *rand.Rand) ([]int, error) {
	n := tk.NRows()
	folds := make([]int, n)

	if stratify {
		if tk.Type() != task.Classif {
			return nil, errors.New("resample: stratification needs a classification task")
		}
		y, err := tk.TargetFactor()
		if err != nil {
			return nil, err
		}
		byClass := make(map[string][]int)
		for i, cls := range y {
			byClass[cls] = append(byClass[cls], i)
		}
		next := 0
		for _, cls := range tk.ClassLevels() {
			rows := byClass[cls]
			rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })
			for _, r := range rows {
				folds[r] = next % k
				next++
			}
		}
		return folds, nil
	}

	perm := rng.Perm(n)
	for pos, r := range perm {
		folds[r] = pos % k
	}
	return folds, nil
}

// DescConfig is the serializable form of a description, used in YAML
// scenarios and CLI flags.
type DescConfig struct {
	Method   string  `yaml:"method" json:"method" validate:"required,oneof=cv repcv holdout subsample bootstrap loo"`
	Folds    int     `yaml:"folds,omitempty" json:"folds,omitempty" validate:"omitempty,min=2"`
	Reps     int     `yaml:"reps,omitempty" json:"reps,omitempty" validate:"omitempty,min=1"`
	Iters    int     `yaml:"iters,omitempty" json:"iters,omitempty" validate:"omitempty,min=1"`
	Split    float64 `yaml:"split,omitempty" json:"split,omitempty" validate:"omitempty,gt=0,lt=1"`
	Stratify bool    `yaml:"stratify,omitempty" json:"stratify,omitempty"`
}

// FromConfig builds a Desc, applying conventional defaults (10 folds,
// 2/3 split, 10 reps/iters).
func FromConfig(c DescConfig) (Desc, error) {
	folds := c.Folds
	if folds == 0 {
		folds = 10
	}
	split := c.Split
	if split == 0 {
		split = 2.0 / 3.0
	}
	iters := c.Iters
	if iters == 0 {
		iters = 10
	}
	reps := c.Reps
	if reps == 0 {
		reps = 10
	}

	switch c.Method {
	case "cv":
		return CV{Folds: folds, Stratify: c.Stratify}, nil
	case "repcv":
		return RepCV{Reps: reps, Folds: folds, Stratify: c.Stratify}, nil
	case "holdout":
		return Holdout{Split: split}, nil
	case "subsample":
		return Subsample{Iters: iters, Split: split}, nil
	case "bootstrap":
		return Bootstrap{Iters: iters}, nil
	case "loo":
		return LOO{}, nil
	default:
		return nil, fmt.Errorf("resample: unknown method %q", c.Method)
	}
}
