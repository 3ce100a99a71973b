// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resample

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/boreal/pkg/learner"
	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/task"
)

var (
	tracer = otel.Tracer("boreal.resample")
	meter  = otel.Meter("boreal.resample")
)

// Policy decides what happens when a learner crashes during one
// resampling iteration.
type Policy int

const (
	// PolicyStop aborts the whole run on the first error.
	PolicyStop Policy = iota

	// PolicyWarn logs the error, imputes the worst score for every
	// measure, and continues.
	PolicyWarn

	// PolicyQuiet imputes silently.
	PolicyQuiet
)

// ParsePolicy converts "stop", "warn", or "quiet" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "stop", "":
		return PolicyStop, nil
	case "warn":
		return PolicyWarn, nil
	case "quiet":
		return PolicyQuiet, nil
	default:
		return 0, fmt.Errorf("resample: unknown error policy %q", s)
	}
}

// Options configures an Executor.
type Options struct {
	// Workers bounds parallel iterations. Default: GOMAXPROCS.
	Workers int

	// OnError is the crash policy. Default: PolicyStop.
	OnError Policy

	// KeepModels retains the trained model of every iteration on the
	// result. Off by default; models can be large.
	KeepModels bool

	// Seed drives split generation. A zero seed is replaced by the
	// current time, so set it for reproducible experiments.
	Seed int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Executor evaluates a learner over the splits of a resampling
// description, running iterations in parallel.
//
// Thread Safety: safe for concurrent use; each Run draws from its own
// rng.
type Executor struct {
	opts   Options
	logger *slog.Logger

	metricsOnce   sync.Once
	iterLatency   metric.Float64Histogram
	iterSuccesses metric.Int64Counter
	iterFailures  metric.Int64Counter
	activeIters   metric.Int64UpDownCounter
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{opts: opts, logger: logger}
}

// initMetrics lazily creates instruments. Failures degrade
// observability, never the run.
func (e *Executor) initMetrics() {
	e.metricsOnce.Do(func() {
		var initErrors []string
		var err error

		e.iterLatency, err = meter.Float64Histogram("resample_iteration_duration_seconds",
			metric.WithDescription("Time spent per resampling iteration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "iter_latency: "+err.Error())
		}
		e.iterSuccesses, err = meter.Int64Counter("resample_iteration_success_total",
			metric.WithDescription("Number of successful resampling iterations"),
		)
		if err != nil {
			initErrors = append(initErrors, "iter_successes: "+err.Error())
		}
		e.iterFailures, err = meter.Int64Counter("resample_iteration_failure_total",
			metric.WithDescription("Number of crashed resampling iterations"),
		)
		if err != nil {
			initErrors = append(initErrors, "iter_failures: "+err.Error())
		}
		e.activeIters, err = meter.Int64UpDownCounter("resample_active_iterations",
			metric.WithDescription("Number of currently running iterations"),
		)
		if err != nil {
			initErrors = append(initErrors, "active_iters: "+err.Error())
		}

		if len(initErrors) > 0 {
			e.logger.Error("failed to initialize some resample metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// Run materializes the description on the task and evaluates the
// learner on every split.
//
// Each iteration clones the learner, trains on the train rows,
// predicts the test rows, and scores all measures. Under PolicyWarn
// and PolicyQuiet a crashed iteration scores every measure's Worst
// value and records the error message; under PolicyStop the first
// crash aborts the run.
func (e *Executor) Run(
	ctx context.Context,
	lrn learner.Learner,
	tk *task.Task,
	desc Desc,
	measures []measure.Measure,
) (*Result, error) {
	if lrn == nil || tk == nil || desc == nil {
		return nil, fmt.Errorf("resample: nil learner, task, or description")
	}
	if len(measures) == 0 {
		measures = []measure.Measure{measure.Default(tk.Type())}
	}
	for _, m := range measures {
		if m.Type != tk.Type() {
			return nil, fmt.Errorf("resample: measure %s does not apply to %s task %s", m.ID, tk.Type(), tk.ID())
		}
	}

	e.initMetrics()

	ctx, span := tracer.Start(ctx, "resample.Run",
		trace.WithAttributes(
			attribute.String("task.id", tk.ID()),
			attribute.String("learner.id", lrn.ID()),
			attribute.String("desc.id", desc.ID()),
		),
	)
	defer span.End()

	rng := rand.New(rand.NewSource(e.opts.Seed))
	inst, err := desc.Instance(tk, rng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	e.logger.Info("resample started",
		slog.String("run_id", runID[:8]),
		slog.String("task", tk.ID()),
		slog.String("learner", lrn.ID()),
		slog.String("desc", inst.DescID),
		slog.Int("iters", len(inst.Splits)),
		slog.Int("workers", e.opts.Workers),
	)

	result := &Result{
		ID:         runID,
		TaskID:     tk.ID(),
		LearnerID:  lrn.ID(),
		DescID:     inst.DescID,
		Params:     lrn.Params(),
		Iterations: make([]IterationResult, len(inst.Splits)),
		Started:    start.UTC(),
	}
	for _, m := range measures {
		result.MeasureIDs = append(result.MeasureIDs, m.ID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i := range inst.Splits {
		i := i
		g.Go(func() error {
			iter, err := e.runIteration(gctx, lrn, tk, inst.Splits[i], i, measures)
			result.Iterations[i] = iter
			if err != nil {
				// Cancellation aborts regardless of the error policy.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if e.opts.OnError == PolicyStop {
					return fmt.Errorf("resample iteration %d: %w", i, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result.aggregate(measures)
	result.Duration = time.Since(start)

	span.SetStatus(codes.Ok, "")
	e.logger.Info("resample completed",
		slog.String("run_id", runID[:8]),
		slog.Duration("duration", result.Duration),
		slog.Int("errors", result.ErrorCount()),
		slog.Any("aggr", result.Aggr),
	)
	return result, nil
}

// runIteration evaluates one split. The returned IterationResult is
// always usable; err is non-nil only when the learner crashed (the
// result then carries imputed scores).
func (e *Executor) runIteration(
	ctx context.Context,
	lrn learner.Learner,
	tk *task.Task,
	split Split,
	iter int,
	measures []measure.Measure,
) (IterationResult, error) {
	if e.activeIters != nil {
		e.activeIters.Add(ctx, 1)
		defer e.activeIters.Add(ctx, -1)
	}

	start := time.Now()
	out := IterationResult{Iter: iter, Scores: make(map[string]float64, len(measures))}

	pred, model, trainDur, predDur, err := e.trainPredict(ctx, lrn, tk, split)
	out.TrainTime = trainDur
	out.PredictTime = predDur

	if err != nil {
		// Context cancellation is never imputed; it aborts the run.
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if e.iterFailures != nil {
			e.iterFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("learner", lrn.ID())))
		}
		out.Error = err.Error()
		for _, m := range measures {
			out.Scores[m.ID] = m.Worst
		}
		if e.opts.OnError == PolicyWarn {
			e.logger.Warn("iteration crashed, imputing worst scores",
				slog.Int("iter", iter),
				slog.String("learner", lrn.ID()),
				slog.String("error", err.Error()),
			)
		}
		return out, err
	}

	for _, m := range measures {
		score, serr := m.Score(pred)
		if serr != nil {
			out.Scores[m.ID] = m.Worst
			continue
		}
		out.Scores[m.ID] = score
	}
	if e.opts.KeepModels {
		out.Model = model
	}

	if e.iterSuccesses != nil {
		e.iterSuccesses.Add(ctx, 1, metric.WithAttributes(attribute.String("learner", lrn.ID())))
	}
	if e.iterLatency != nil {
		e.iterLatency.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("learner", lrn.ID())),
		)
	}
	return out, nil
}

func (e *Executor) trainPredict(
	ctx context.Context,
	lrn learner.Learner,
	tk *task.Task,
	split Split,
) (pred *learner.Prediction, model learner.Model, trainDur, predDur time.Duration, err error) {
	trainTask, err := tk.Subset(split.Train)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("build train task: %w", err)
	}
	testTask, err := tk.Subset(split.Test)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("build test task: %w", err)
	}

	t0 := time.Now()
	model, err = lrn.Clone().Train(ctx, trainTask)
	trainDur = time.Since(t0)
	if err != nil {
		return nil, nil, trainDur, 0, fmt.Errorf("train: %w", err)
	}

	t1 := time.Now()
	pred, err = model.Predict(ctx, testTask)
	predDur = time.Since(t1)
	if err != nil {
		return nil, nil, trainDur, predDur, fmt.Errorf("predict: %w", err)
	}

	// Rewrite prediction rows to original task indices.
	pred.Rows = append([]int(nil), split.Test...)
	return pred, model, trainDur, predDur, nil
}
