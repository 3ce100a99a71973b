// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package benchmark runs learner-by-task comparison experiments
// described by YAML scenarios and ranks the learners per task.
package benchmark

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/task"
)

// TaskConfig describes one task loaded from a CSV file.
type TaskConfig struct {
	ID     string `yaml:"id" validate:"required"`
	Type   string `yaml:"type" validate:"required,oneof=classif regr"`
	Target string `yaml:"target" validate:"required"`
	CSV    string `yaml:"csv" validate:"required"`
}

// LearnerConfig names a registered learner and optional parameter
// overrides.
type LearnerConfig struct {
	ID     string         `yaml:"id" validate:"required"`
	Params map[string]any `yaml:"params,omitempty"`
}

// Scenario is a full benchmark description.
type Scenario struct {
	Name     string              `yaml:"name" validate:"required"`
	Tasks    []TaskConfig        `yaml:"tasks" validate:"required,min=1,dive"`
	Learners []LearnerConfig     `yaml:"learners" validate:"required,min=1,dive"`
	Resample resample.DescConfig `yaml:"resample" validate:"required"`
	Measures []string            `yaml:"measures,omitempty"`
	Workers  int                 `yaml:"workers,omitempty" validate:"omitempty,min=1"`
	Seed     int64               `yaml:"seed,omitempty"`
	OnError  string              `yaml:"on_error,omitempty" validate:"omitempty,oneof=stop warn quiet"`
}

var validate = validator.New()

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("benchmark: parse scenario: %w", err)
	}
	if err := validate.Struct(&sc); err != nil {
		return nil, fmt.Errorf("benchmark: invalid scenario: %w", err)
	}
	return &sc, nil
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("benchmark: read scenario: %w", err)
	}
	return ParseScenario(data)
}

// BuildTask loads the task's CSV and constructs the task.
func (c TaskConfig) BuildTask() (*task.Task, error) {
	ds, err := dataset.ReadCSVFile(c.CSV)
	if err != nil {
		return nil, fmt.Errorf("benchmark: task %s: %w", c.ID, err)
	}
	typ, err := task.ParseType(c.Type)
	if err != nil {
		return nil, fmt.Errorf("benchmark: task %s: %w", c.ID, err)
	}
	return task.New(c.ID, typ, ds, c.Target)
}

// BuildLearner constructs the learner and applies the configured
// parameters.
func (c LearnerConfig) BuildLearner() (learner.Learner, error) {
	lrn, err := learner.New(c.ID)
	if err != nil {
		return nil, err
	}
	if len(c.Params) == 0 {
		return lrn, nil
	}
	a, err := coerceParams(lrn.ParamSet(), c.Params)
	if err != nil {
		return nil, fmt.Errorf("benchmark: learner %s: %w", c.ID, err)
	}
	if err := lrn.SetParams(a); err != nil {
		return nil, err
	}
	return lrn, nil
}

// coerceParams maps YAML-decoded values onto the kinds the parameter
// set expects. YAML gives int for whole numbers where numeric params
// need float64, and vice versa.
func coerceParams(set *params.Set, raw map[string]any) (params.Assignment, error) {
	a := make(params.Assignment, len(raw))
	for name, v := range raw {
		p, ok := set.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		switch p.Kind {
		case params.NumericKind:
			switch n := v.(type) {
			case int:
				a[name] = float64(n)
			case float64:
				a[name] = n
			default:
				return nil, fmt.Errorf("parameter %q: expected a number, got %T", name, v)
			}
		case params.IntegerKind:
			switch n := v.(type) {
			case int:
				a[name] = n
			case float64:
				if n != float64(int(n)) {
					return nil, fmt.Errorf("parameter %q: expected an integer, got %v", name, n)
				}
				a[name] = int(n)
			default:
				return nil, fmt.Errorf("parameter %q: expected an integer, got %T", name, v)
			}
		default:
			a[name] = v
		}
	}
	return a, nil
}
