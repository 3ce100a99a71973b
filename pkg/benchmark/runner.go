// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/store"
	"github.com/AleutianAI/boreal/pkg/task"
)

// Pair is one cell of the benchmark matrix.
type Pair struct {
	TaskID    string             `json:"task_id"`
	LearnerID string             `json:"learner_id"`
	Aggr      map[string]float64 `json:"aggr,omitempty"`
	AggrSD    map[string]float64 `json:"aggr_sd,omitempty"`
	Error     string             `json:"error,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// Rank holds a learner's per-task ranks and their mean. Rank 1 is
// best; failed pairs rank last.
type Rank struct {
	LearnerID string         `json:"learner_id"`
	PerTask   map[string]int `json:"per_task"`
	Mean      float64        `json:"mean"`
}

// Result is the outcome of a benchmark run.
type Result struct {
	ID         string        `json:"id"`
	Scenario   string        `json:"scenario"`
	MeasureIDs []string      `json:"measure_ids"`
	Pairs      []Pair        `json:"pairs"`
	Ranks      []Rank        `json:"ranks"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
}

// Runner executes benchmark scenarios.
type Runner struct {
	logger  *slog.Logger
	archive *store.Store
}

// NewRunner creates a Runner. The archive is optional; when present,
// every result is persisted after the run. A nil logger uses
// slog.Default().
func NewRunner(archive *store.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, archive: archive}
}

// Run executes the scenario: every learner is resampled on every
// task, in parallel across cells, and the learners are ranked per
// task by the first measure. A crashed cell is recorded with its
// error and ranks behind every scored cell.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	desc, err := resample.FromConfig(sc.Resample)
	if err != nil {
		return nil, err
	}
	policy := resample.PolicyWarn
	if sc.OnError != "" {
		if policy, err = resample.ParsePolicy(sc.OnError); err != nil {
			return nil, err
		}
	}

	tasks := make([]*task.Task, len(sc.Tasks))
	for i, tc := range sc.Tasks {
		if tasks[i], err = tc.BuildTask(); err != nil {
			return nil, err
		}
	}
	learners := make([]learner.Learner, len(sc.Learners))
	for i, lc := range sc.Learners {
		if learners[i], err = lc.BuildLearner(); err != nil {
			return nil, err
		}
	}
	var measures []measure.Measure
	for _, id := range sc.Measures {
		m, err := measure.Lookup(id)
		if err != nil {
			return nil, err
		}
		measures = append(measures, m)
	}

	workers := sc.Workers
	if workers < 1 {
		workers = 1
	}
	ex := resample.NewExecutor(resample.Options{
		Workers: 1,
		OnError: policy,
		Seed:    sc.Seed,
		Logger:  r.logger,
	})

	start := time.Now()
	r.logger.Info("benchmark started",
		slog.String("scenario", sc.Name),
		slog.Int("tasks", len(tasks)),
		slog.Int("learners", len(learners)),
		slog.Int("workers", workers),
	)

	pairs := make([]Pair, len(tasks)*len(learners))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ti, tk := range tasks {
		for li, lrn := range learners {
			idx := ti*len(learners) + li
			tk, lrn := tk, lrn
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cellStart := time.Now()
				pair := Pair{TaskID: tk.ID(), LearnerID: lrn.ID()}
				res, err := ex.Run(gctx, lrn.Clone(), tk, desc, measures)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					pair.Error = err.Error()
					r.logger.Warn("benchmark cell failed",
						slog.String("task", tk.ID()),
						slog.String("learner", lrn.ID()),
						slog.String("error", err.Error()),
					)
				} else {
					pair.Aggr = res.Aggr
					pair.AggrSD = res.AggrSD
				}
				pair.Duration = time.Since(cellStart)
				pairs[idx] = pair
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	taskTypes := make(map[string]task.Type, len(tasks))
	for _, tk := range tasks {
		taskTypes[tk.ID()] = tk.Type()
	}
	result := &Result{
		ID:       uuid.NewString(),
		Scenario: sc.Name,
		Pairs:    pairs,
		Ranks:    rankLearners(pairs, measures, taskTypes),
		Started:  start.UTC(),
		Duration: time.Since(start),
	}
	if len(measures) == 0 {
		// Without explicit measures each task scored with its type's
		// default; report every default that was used.
		seen := make(map[string]bool)
		for _, tk := range tasks {
			id := measure.Default(tk.Type()).ID
			if !seen[id] {
				seen[id] = true
				result.MeasureIDs = append(result.MeasureIDs, id)
			}
		}
	} else {
		for _, m := range measures {
			result.MeasureIDs = append(result.MeasureIDs, m.ID)
		}
	}

	if r.archive != nil {
		if _, err := r.archive.Put(ctx, store.KindBenchmark, result.ID, result); err != nil {
			return nil, fmt.Errorf("benchmark: archive result: %w", err)
		}
	}

	r.logger.Info("benchmark completed",
		slog.String("scenario", sc.Name),
		slog.Int("cells", len(pairs)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func primaryMeasure(measures []measure.Measure, t task.Type) measure.Measure {
	if len(measures) > 0 {
		return measures[0]
	}
	return measure.Default(t)
}

// rankLearners ranks learners within each task by that task's primary
// measure (the scenario's first measure, or the task type's default
// when none are listed), then orders them by mean rank across tasks.
func rankLearners(pairs []Pair, measures []measure.Measure, taskTypes map[string]task.Type) []Rank {
	byTask := make(map[string][]Pair)
	learnerIDs := make(map[string]bool)
	for _, p := range pairs {
		byTask[p.TaskID] = append(byTask[p.TaskID], p)
		learnerIDs[p.LearnerID] = true
	}

	perLearner := make(map[string]map[string]int)
	for id := range learnerIDs {
		perLearner[id] = make(map[string]int)
	}
	for taskID, cell := range byTask {
		primary := primaryMeasure(measures, taskTypes[taskID])
		sorted := append([]Pair(nil), cell...)
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			if (a.Error == "") != (b.Error == "") {
				return a.Error == ""
			}
			if a.Error != "" {
				return a.LearnerID < b.LearnerID
			}
			as, bs := a.Aggr[primary.ID], b.Aggr[primary.ID]
			if as != bs {
				return primary.IsBetter(as, bs)
			}
			return a.LearnerID < b.LearnerID
		})
		for i, p := range sorted {
			perLearner[p.LearnerID][taskID] = i + 1
		}
	}

	ranks := make([]Rank, 0, len(perLearner))
	for id, perTask := range perLearner {
		sum := 0
		for _, r := range perTask {
			sum += r
		}
		ranks = append(ranks, Rank{
			LearnerID: id,
			PerTask:   perTask,
			Mean:      float64(sum) / float64(len(perTask)),
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Mean != ranks[j].Mean {
			return ranks[i].Mean < ranks[j].Mean
		}
		return ranks[i].LearnerID < ranks[j].LearnerID
	})
	return ranks
}
