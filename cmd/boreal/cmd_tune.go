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
	"github.com/AleutianAI/boreal/pkg/tune"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	tnCSV        string
	tnType       string
	tnTarget     string
	tnTaskID     string
	tnLearner    string
	tnMethod     string
	tnFolds      int
	tnReps       int
	tnIters      int
	tnSplit      float64
	tnStratify   bool
	tnMeasures   []string
	tnControl    string  // Search control (grid/random/anneal/genetic/pareto)
	tnBudget     int     // Evaluation budget for sampling controls
	tnResolution int     // Grid resolution per numeric parameter
	tnWorkers    int
	tnSeed       int64
	tnSave       bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Tune a learner's hyperparameters by resampled search",
	Long: `Searches the learner's hyperparameter space; every candidate setting
is scored by a full resampling run, and the best setting is reported
together with the full optimization path.

Examples:
  boreal tune --csv iris.csv --target species --learner knn --control grid
  boreal tune --csv iris.csv --target species --learner classif.logistic \
      --control random --budget 50 --measures logloss --save`,
	RunE: runTuneCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	addTaskFlags(tuneCmd, &tnCSV, &tnType, &tnTarget, &tnTaskID)
	tuneCmd.Flags().StringVarP(&tnLearner, "learner", "l", "", "Learner id")
	addDescFlags(tuneCmd, &tnMethod, &tnFolds, &tnReps, &tnIters, &tnSplit, &tnStratify)
	tuneCmd.Flags().StringSliceVarP(&tnMeasures, "measures", "m", nil, "Measure ids, first is the objective")
	tuneCmd.Flags().StringVarP(&tnControl, "control", "c", "random", "Search control (grid, random, anneal, genetic, pareto)")
	tuneCmd.Flags().IntVarP(&tnBudget, "budget", "b", 0, "Evaluation budget for sampling controls")
	tuneCmd.Flags().IntVar(&tnResolution, "resolution", 0, "Grid points per numeric parameter")
	tuneCmd.Flags().IntVarP(&tnWorkers, "workers", "w", 0, "Parallel resampling iterations (0 = all cores)")
	tuneCmd.Flags().Int64Var(&tnSeed, "seed", 1, "RNG seed for splits and search")
	tuneCmd.Flags().BoolVar(&tnSave, "save", false, "Archive the result in the database")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runTuneCommand(cmd *cobra.Command, args []string) error {
	tk, err := loadTask(tnCSV, tnType, tnTarget, tnTaskID)
	if err != nil {
		return err
	}
	lrn, err := buildLearner(tnLearner, nil)
	if err != nil {
		return err
	}
	desc, err := resample.FromConfig(resample.DescConfig{
		Method: tnMethod, Folds: tnFolds, Reps: tnReps,
		Iters: tnIters, Split: tnSplit, Stratify: tnStratify,
	})
	if err != nil {
		return err
	}
	measures, err := buildMeasures(tnMeasures)
	if err != nil {
		return err
	}
	control, err := tune.FromConfig(tune.ControlConfig{
		Method:     tnControl,
		Resolution: tnResolution,
		Budget:     tnBudget,
		Seed:       tnSeed,
	})
	if err != nil {
		return err
	}

	ex := resample.NewExecutor(resample.Options{
		Workers: tnWorkers,
		Seed:    tnSeed,
		Logger:  appLogger.Slog(),
	})
	res, err := tune.NewTuner(ex, appLogger.Slog()).Run(
		cmd.Context(), lrn, tk, lrn.ParamSet(), desc, measures, control)
	if err != nil {
		return err
	}

	if tnSave {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()
		if _, err := archive.Put(cmd.Context(), store.KindTune, res.ID, res); err != nil {
			return err
		}
	}
	return printJSON(res)
}
