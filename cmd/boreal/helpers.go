// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AleutianAI/boreal/pkg/dataset"
	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/store"
	"github.com/AleutianAI/boreal/pkg/task"
)

// loadTask reads a CSV file and builds a task from the shared task
// flags.
func loadTask(csvPath, typeName, target, id string) (*task.Task, error) {
	if csvPath == "" {
		return nil, fmt.Errorf("--csv is required")
	}
	if target == "" {
		return nil, fmt.Errorf("--target is required")
	}
	ds, err := dataset.ReadCSVFile(csvPath)
	if err != nil {
		return nil, err
	}
	typ, err := task.ParseType(typeName)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	}
	return task.New(id, typ, ds, target)
}

// buildLearner constructs a registered learner and applies --param
// overrides.
func buildLearner(id string, raw []string) (learner.Learner, error) {
	if id == "" {
		return nil, fmt.Errorf("--learner is required")
	}
	lrn, err := learner.New(id)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return lrn, nil
	}
	a, err := parseParams(lrn.ParamSet(), raw)
	if err != nil {
		return nil, err
	}
	if err := lrn.SetParams(a); err != nil {
		return nil, err
	}
	return lrn, nil
}

// parseParams parses "name=value" pairs, typed against the learner's
// parameter set.
func parseParams(set *params.Set, raw []string) (params.Assignment, error) {
	a := make(params.Assignment, len(raw))
	for _, pair := range raw {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, want name=value", pair)
		}
		p, found := set.Get(name)
		if !found {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		switch p.Kind {
		case params.NumericKind:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}
			a[name] = f
		case params.IntegerKind:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}
			a[name] = n
		case params.LogicalKind:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}
			a[name] = b
		default:
			a[name] = value
		}
	}
	return a, nil
}

// buildMeasures resolves measure ids; an empty list picks the task
// type's default later.
func buildMeasures(ids []string) ([]measure.Measure, error) {
	var measures []measure.Measure
	for _, id := range ids {
		m, err := measure.Lookup(id)
		if err != nil {
			return nil, err
		}
		measures = append(measures, m)
	}
	return measures, nil
}

// openArchive opens the result archive at --db.
func openArchive() (*store.Store, error) {
	path := dbPath
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	cfg := store.DefaultConfig()
	cfg.Path = path
	cfg.Logger = appLogger.Slog()
	return store.Open(cfg)
}

// printJSON renders a result on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
