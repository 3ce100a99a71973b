// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/params"
	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/task"
)

// Result is the outcome of a tuning run.
type Result struct {
	ID          string   `json:"id"`
	TaskID      string   `json:"task_id"`
	LearnerID   string   `json:"learner_id"`
	ControlName string   `json:"control"`
	MeasureIDs  []string `json:"measure_ids"`

	// X is the best setting; Y its aggregated scores. For
	// multi-criteria runs X/Y hold the best entry under the first
	// measure and Front holds the Pareto-optimal entries.
	X     params.Assignment  `json:"x"`
	Y     map[string]float64 `json:"y"`
	Front []OptPathEntry     `json:"front,omitempty"`

	Evals    int           `json:"evals"`
	Errors   int           `json:"errors"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	// Path is the full archive. Not serialized wholesale; stored
	// separately as entries when persisted.
	Path *OptPath `json:"-"`

	// PathEntries is the serializable snapshot of Path.
	PathEntries []OptPathEntry `json:"path"`
}

// ErrAllFailed is returned when every evaluated setting crashed.
var ErrAllFailed = errors.New("tune: all evaluated settings failed")

// Tuner evaluates Control proposals by resampling.
type Tuner struct {
	ex     *resample.Executor
	logger *slog.Logger
}

// NewTuner creates a Tuner. A nil executor gets default options; a
// nil logger uses slog.Default().
func NewTuner(ex *resample.Executor, logger *slog.Logger) *Tuner {
	if ex == nil {
		ex = resample.NewExecutor(resample.Options{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tuner{ex: ex, logger: logger}
}

// Run tunes the learner's parameters over set using the control.
//
// Every proposed setting is evaluated by a full resampling run of the
// description; the first measure is the optimization objective (the
// control sees a normalized score where smaller is better). A
// cancelled context ends the search early and returns the best
// setting seen so far, as long as at least one evaluation finished.
func (t *Tuner) Run(
	ctx context.Context,
	lrn learner.Learner,
	tk *task.Task,
	set *params.Set,
	desc resample.Desc,
	measures []measure.Measure,
	control Control,
) (*Result, error) {
	if control == nil {
		return nil, errors.New("tune: nil control")
	}
	if set == nil || set.Len() == 0 {
		return nil, errors.New("tune: empty parameter set")
	}
	if len(measures) == 0 {
		measures = []measure.Measure{measure.Default(tk.Type())}
	}
	primary := measures[0]

	start := time.Now()
	path := NewOptPath()

	t.logger.Info("tuning started",
		slog.String("task", tk.ID()),
		slog.String("learner", lrn.ID()),
		slog.String("control", control.Name()),
		slog.String("objective", primary.ID),
	)

	eval := func(ctx context.Context, x params.Assignment) (float64, error) {
		evalStart := time.Now()
		entry := OptPathEntry{X: x.Clone(), Timestamp: evalStart.UTC()}

		cand := lrn.Clone()
		if err := cand.SetParams(x); err != nil {
			entry.Error = err.Error()
			entry.Duration = time.Since(evalStart)
			path.Append(entry)
			return 0, err
		}

		res, err := t.ex.Run(ctx, cand, tk, desc, measures)
		if err != nil {
			entry.Error = err.Error()
			entry.Duration = time.Since(evalStart)
			path.Append(entry)
			return 0, err
		}

		entry.Scores = res.Aggr
		entry.Duration = time.Since(evalStart)
		path.Append(entry)

		score := res.Aggr[primary.ID]
		if !primary.Minimize {
			score = -score
		}
		t.logger.Debug("setting evaluated",
			slog.String("x", x.String()),
			slog.Float64(primary.ID, res.Aggr[primary.ID]),
		)
		return score, nil
	}

	searchErr := control.Search(ctx, set, eval)
	if searchErr != nil && !errors.Is(searchErr, context.Canceled) && !errors.Is(searchErr, context.DeadlineExceeded) {
		return nil, fmt.Errorf("tune: %s search: %w", control.Name(), searchErr)
	}
	if searchErr != nil && path.Len() == 0 {
		return nil, searchErr
	}

	best, ok := path.Best(primary.ID, primary.Minimize)
	if !ok {
		return nil, ErrAllFailed
	}

	// The path is the single synchronized record of the search, so the
	// error count is read back from it rather than kept alongside.
	entries := path.Entries()
	errCount := 0
	for _, e := range entries {
		if e.Error != "" {
			errCount++
		}
	}

	result := &Result{
		ID:          uuid.NewString(),
		TaskID:      tk.ID(),
		LearnerID:   lrn.ID(),
		ControlName: control.Name(),
		X:           best.X,
		Y:           best.Scores,
		Evals:       len(entries),
		Errors:      errCount,
		Started:     start.UTC(),
		Duration:    time.Since(start),
		Path:        path,
		PathEntries: entries,
	}
	for _, m := range measures {
		result.MeasureIDs = append(result.MeasureIDs, m.ID)
	}
	if len(measures) > 1 {
		result.Front = ParetoFront(result.PathEntries, measures)
	}

	t.logger.Info("tuning completed",
		slog.String("control", control.Name()),
		slog.Int("evals", result.Evals),
		slog.Int("errors", result.Errors),
		slog.String("best_x", result.X.String()),
		slog.Float64("best_y", result.Y[primary.ID]),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// ControlConfig is the serializable form of a search control, used in
// YAML scenarios and CLI flags.
type ControlConfig struct {
	Method     string `yaml:"method" json:"method" validate:"required,oneof=grid random anneal genetic pareto"`
	Resolution int    `yaml:"resolution,omitempty" json:"resolution,omitempty" validate:"omitempty,min=1"`
	Budget     int    `yaml:"budget,omitempty" json:"budget,omitempty" validate:"omitempty,min=1"`
	Seed       int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// FromConfig builds a Control with defaults filled in.
func FromConfig(c ControlConfig) (Control, error) {
	seed := c.Seed
	if seed == 0 {
		seed = 1
	}
	switch c.Method {
	case "grid":
		cfg := DefaultGridConfig()
		if c.Resolution > 0 {
			cfg.Resolution = c.Resolution
		}
		return NewGrid(cfg), nil
	case "random":
		cfg := DefaultRandomConfig()
		cfg.Seed = seed
		if c.Budget > 0 {
			cfg.Budget = c.Budget
		}
		return NewRandom(cfg), nil
	case "anneal":
		cfg := DefaultAnnealConfig()
		cfg.Seed = seed
		if c.Budget > 0 {
			cfg.Iters = c.Budget
		}
		return NewAnneal(cfg), nil
	case "genetic":
		cfg := DefaultGeneticConfig()
		cfg.Seed = seed
		if c.Budget > 0 && c.Budget >= cfg.PopSize {
			cfg.Generations = c.Budget / cfg.PopSize
		}
		return NewGenetic(cfg), nil
	case "pareto":
		cfg := DefaultParetoRandomConfig()
		cfg.Seed = seed
		if c.Budget > 0 {
			cfg.Budget = c.Budget
		}
		return NewParetoRandom(cfg), nil
	default:
		return nil, fmt.Errorf("tune: unknown control %q", c.Method)
	}
}
