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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	rsCSV      string   // Task CSV file
	rsType     string   // Task type (classif/regr)
	rsTarget   string   // Target column
	rsTaskID   string   // Task id, defaults to the CSV base name
	rsLearner  string   // Learner id
	rsParams   []string // name=value hyperparameter overrides
	rsMethod   string   // Resampling method
	rsFolds    int      // CV folds
	rsReps     int      // Repeated CV repetitions
	rsIters    int      // Subsample/bootstrap iterations
	rsSplit    float64  // Train fraction for holdout/subsample
	rsStratify bool     // Stratified CV
	rsMeasures []string // Measure ids
	rsWorkers  int      // Parallel iterations
	rsSeed     int64    // RNG seed
	rsOnError  string   // Error policy (stop/warn/quiet)
	rsSave     bool     // Archive the result
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var resampleCmd = &cobra.Command{
	Use:   "resample",
	Short: "Evaluate a learner on a task by resampling",
	Long: `Evaluates a learner by repeatedly training on one part of the data
and predicting the held-out rest, as described by the resampling method.

Examples:
  boreal resample --csv iris.csv --target species --learner knn
  boreal resample --csv iris.csv --target species --learner knn \
      --param k=3 --method repcv --folds 5 --reps 3 --measures mmce,acc
  boreal resample --csv houses.csv --type regr --target price \
      --learner regr.linear --method holdout --split 0.8 --save`,
	RunE: runResampleCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	addTaskFlags(resampleCmd, &rsCSV, &rsType, &rsTarget, &rsTaskID)
	resampleCmd.Flags().StringVarP(&rsLearner, "learner", "l", "", "Learner id (see 'boreal resample --help')")
	resampleCmd.Flags().StringArrayVar(&rsParams, "param", nil, "Hyperparameter override name=value (repeatable)")
	addDescFlags(resampleCmd, &rsMethod, &rsFolds, &rsReps, &rsIters, &rsSplit, &rsStratify)
	resampleCmd.Flags().StringSliceVarP(&rsMeasures, "measures", "m", nil, "Measure ids, first is primary")
	resampleCmd.Flags().IntVarP(&rsWorkers, "workers", "w", 0, "Parallel iterations (0 = all cores)")
	resampleCmd.Flags().Int64Var(&rsSeed, "seed", 1, "RNG seed for the split")
	resampleCmd.Flags().StringVar(&rsOnError, "on-error", "warn", "Failed iteration policy (stop, warn, quiet)")
	resampleCmd.Flags().BoolVar(&rsSave, "save", false, "Archive the result in the database")
}

// addTaskFlags registers the shared task flags on a command.
func addTaskFlags(cmd *cobra.Command, csv, typ, target, id *string) {
	cmd.Flags().StringVar(csv, "csv", "", "Task data as a CSV file with a header row")
	cmd.Flags().StringVar(typ, "type", "classif", "Task type (classif, regr)")
	cmd.Flags().StringVar(target, "target", "", "Target column name")
	cmd.Flags().StringVar(id, "task-id", "", "Task id (defaults to the CSV base name)")
}

// addDescFlags registers the shared resampling description flags.
func addDescFlags(cmd *cobra.Command, method *string, folds, reps, iters *int, split *float64, stratify *bool) {
	cmd.Flags().StringVar(method, "method", "cv", "Resampling method (cv, repcv, holdout, subsample, bootstrap, loo)")
	cmd.Flags().IntVar(folds, "folds", 0, "Folds for cv/repcv")
	cmd.Flags().IntVar(reps, "reps", 0, "Repetitions for repcv")
	cmd.Flags().IntVar(iters, "iters", 0, "Iterations for subsample/bootstrap")
	cmd.Flags().Float64Var(split, "split", 0, "Train fraction for holdout/subsample")
	cmd.Flags().BoolVar(stratify, "stratify", false, "Stratify cv folds by class")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runResampleCommand(cmd *cobra.Command, args []string) error {
	tk, err := loadTask(rsCSV, rsType, rsTarget, rsTaskID)
	if err != nil {
		return err
	}
	lrn, err := buildLearner(rsLearner, rsParams)
	if err != nil {
		return err
	}
	desc, err := resample.FromConfig(resample.DescConfig{
		Method: rsMethod, Folds: rsFolds, Reps: rsReps,
		Iters: rsIters, Split: rsSplit, Stratify: rsStratify,
	})
	if err != nil {
		return err
	}
	measures, err := buildMeasures(rsMeasures)
	if err != nil {
		return err
	}
	policy, err := resample.ParsePolicy(rsOnError)
	if err != nil {
		return err
	}

	ex := resample.NewExecutor(resample.Options{
		Workers: rsWorkers,
		OnError: policy,
		Seed:    rsSeed,
		Logger:  appLogger.Slog(),
	})
	res, err := ex.Run(cmd.Context(), lrn, tk, desc, measures)
	if err != nil {
		return err
	}

	if rsSave {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()
		if _, err := archive.Put(cmd.Context(), store.KindResample, res.ID, res); err != nil {
			return err
		}
	}
	return printJSON(res)
}
