// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package featsel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/task"
)

// PathEntry archives one evaluated feature subset.
type PathEntry struct {
	Index     int                `json:"index"`
	Features  []string           `json:"features"`
	Scores    map[string]float64 `json:"scores,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Duration  time.Duration      `json:"duration"`
}

// Result is the outcome of a feature selection run.
type Result struct {
	ID           string   `json:"id"`
	TaskID       string   `json:"task_id"`
	LearnerID    string   `json:"learner_id"`
	StrategyName string   `json:"strategy"`
	MeasureIDs   []string `json:"measure_ids"`

	// Features is the best subset found; Y its aggregated scores.
	Features []string           `json:"features"`
	Y        map[string]float64 `json:"y"`

	Evals    int           `json:"evals"`
	Errors   int           `json:"errors"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	PathEntries []PathEntry `json:"path"`
}

// ErrAllSubsetsFailed is returned when every evaluated subset crashed.
var ErrAllSubsetsFailed = errors.New("featsel: all evaluated subsets failed")

// Selector evaluates Strategy proposals by resampling.
type Selector struct {
	ex     *resample.Executor
	logger *slog.Logger
}

// NewSelector creates a Selector. A nil executor gets default options;
// a nil logger uses slog.Default().
func NewSelector(ex *resample.Executor, logger *slog.Logger) *Selector {
	if ex == nil {
		ex = resample.NewExecutor(resample.Options{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{ex: ex, logger: logger}
}

// Run selects a feature subset for the learner on the task.
//
// Every proposed subset is evaluated by a full resampling run on the
// task restricted to that subset; the first measure is the objective
// and scores seen by the strategy are normalized so smaller is
// better. Repeated subsets are served from a cache instead of being
// resampled again. A cancelled context ends the search early and
// returns the best subset seen so far, as long as at least one
// evaluation finished.
func (s *Selector) Run(
	ctx context.Context,
	lrn learner.Learner,
	tk *task.Task,
	desc resample.Desc,
	measures []measure.Measure,
	strategy Strategy,
) (*Result, error) {
	if strategy == nil {
		return nil, errors.New("featsel: nil strategy")
	}
	if len(tk.FeatureNames()) == 0 {
		return nil, errors.New("featsel: task has no features")
	}
	if len(measures) == 0 {
		measures = []measure.Measure{measure.Default(tk.Type())}
	}
	primary := measures[0]

	start := time.Now()
	var mu sync.Mutex
	var path []PathEntry
	cache := make(map[string]float64)
	errCount := 0

	s.logger.Info("feature selection started",
		slog.String("task", tk.ID()),
		slog.String("learner", lrn.ID()),
		slog.String("strategy", strategy.Name()),
		slog.String("objective", primary.ID),
		slog.Int("features", len(tk.FeatureNames())),
	)

	eval := func(ctx context.Context, features []string) (float64, error) {
		key := subsetKey(features)
		mu.Lock()
		if score, ok := cache[key]; ok {
			mu.Unlock()
			return score, nil
		}
		mu.Unlock()

		evalStart := time.Now()
		entry := PathEntry{
			Features:  append([]string(nil), features...),
			Timestamp: evalStart.UTC(),
		}

		sub, err := tk.SelectFeatures(features)
		if err == nil {
			var res *resample.Result
			res, err = s.ex.Run(ctx, lrn.Clone(), sub, desc, measures)
			if err == nil {
				entry.Scores = res.Aggr
			}
		}
		entry.Duration = time.Since(evalStart)

		mu.Lock()
		defer mu.Unlock()
		entry.Index = len(path)
		if err != nil {
			entry.Error = err.Error()
			path = append(path, entry)
			errCount++
			return 0, err
		}
		path = append(path, entry)

		score := entry.Scores[primary.ID]
		if !primary.Minimize {
			score = -score
		}
		cache[key] = score
		return score, nil
	}

	searchErr := strategy.Search(ctx, tk.FeatureNames(), eval)
	if searchErr != nil && !errors.Is(searchErr, context.Canceled) && !errors.Is(searchErr, context.DeadlineExceeded) {
		return nil, fmt.Errorf("featsel: %s search: %w", strategy.Name(), searchErr)
	}
	if searchErr != nil && len(path) == 0 {
		return nil, searchErr
	}

	best, ok := bestEntry(path, primary)
	if !ok {
		return nil, ErrAllSubsetsFailed
	}

	result := &Result{
		ID:           uuid.NewString(),
		TaskID:       tk.ID(),
		LearnerID:    lrn.ID(),
		StrategyName: strategy.Name(),
		Features:     best.Features,
		Y:            best.Scores,
		Evals:        len(path),
		Errors:       errCount,
		Started:      start.UTC(),
		Duration:     time.Since(start),
		PathEntries:  path,
	}
	for _, m := range measures {
		result.MeasureIDs = append(result.MeasureIDs, m.ID)
	}

	s.logger.Info("feature selection completed",
		slog.String("strategy", strategy.Name()),
		slog.Int("evals", result.Evals),
		slog.Int("errors", result.Errors),
		slog.Int("selected", len(result.Features)),
		slog.Float64("best_y", result.Y[primary.ID]),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// bestEntry prefers better scores; among ties it prefers the smaller
// subset, then the earlier entry.
func bestEntry(path []PathEntry, primary measure.Measure) (PathEntry, bool) {
	var best PathEntry
	found := false
	for _, e := range path {
		if e.Error != "" {
			continue
		}
		if !found {
			best = e
			found = true
			continue
		}
		bs, es := best.Scores[primary.ID], e.Scores[primary.ID]
		if primary.IsBetter(es, bs) {
			best = e
		} else if es == bs && len(e.Features) < len(best.Features) {
			best = e
		}
	}
	return best, found
}

func subsetKey(features []string) string {
	sorted := append([]string(nil), features...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// StrategyConfig is the serializable form of a subset search strategy,
// used in YAML scenarios and CLI flags.
type StrategyConfig struct {
	Method      string  `yaml:"method" json:"method" validate:"required,oneof=exhaustive sfs sbs random genetic"`
	Budget      int     `yaml:"budget,omitempty" json:"budget,omitempty" validate:"omitempty,min=1"`
	Alpha       float64 `yaml:"alpha,omitempty" json:"alpha,omitempty" validate:"omitempty,min=0"`
	MaxFeatures int     `yaml:"max_features,omitempty" json:"max_features,omitempty" validate:"omitempty,min=1"`
	Seed        int64   `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// FromStrategyConfig builds a Strategy with defaults filled in.
func FromStrategyConfig(c StrategyConfig) (Strategy, error) {
	seed := c.Seed
	if seed == 0 {
		seed = 1
	}
	switch c.Method {
	case "exhaustive":
		cfg := DefaultExhaustiveConfig()
		cfg.MaxFeatures = c.MaxFeatures
		return NewExhaustive(cfg), nil
	case "sfs":
		cfg := DefaultSFSConfig()
		if c.Alpha > 0 {
			cfg.Alpha = c.Alpha
		}
		cfg.MaxFeatures = c.MaxFeatures
		return NewSFS(cfg), nil
	case "sbs":
		cfg := DefaultSBSConfig()
		if c.Alpha > 0 {
			cfg.Alpha = c.Alpha
		}
		return NewSBS(cfg), nil
	case "random":
		cfg := DefaultRandomSubsetsConfig()
		cfg.Seed = seed
		if c.Budget > 0 {
			cfg.Budget = c.Budget
		}
		return NewRandomSubsets(cfg), nil
	case "genetic":
		cfg := DefaultGeneticSubsetsConfig()
		cfg.Seed = seed
		if c.Budget > 0 && c.Budget >= cfg.PopSize {
			cfg.Generations = c.Budget / cfg.PopSize
		}
		return NewGeneticSubsets(cfg), nil
	default:
		return nil, fmt.Errorf("featsel: unknown strategy %q", c.Method)
	}
}
