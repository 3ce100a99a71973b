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

	"github.com/AleutianAI/boreal/pkg/featsel"
	"github.com/AleutianAI/boreal/pkg/resample"
	"github.com/AleutianAI/boreal/pkg/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	fsCSV      string
	fsType     string
	fsTarget   string
	fsTaskID   string
	fsLearner  string
	fsMethod   string
	fsFolds    int
	fsReps     int
	fsIters    int
	fsSplit    float64
	fsStratify bool
	fsMeasures []string
	fsFilter   string  // Filter id for 'featsel filter'
	fsStrategy string  // Subset search strategy for 'featsel search'
	fsBudget   int     // Evaluation budget for sampling strategies
	fsAlpha    float64 // Minimum improvement for sequential strategies
	fsMaxFeat  int     // Subset size cap
	fsWorkers  int
	fsSeed     int64
	fsSave     bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var featselCmd = &cobra.Command{
	Use:   "featsel",
	Short: "Score features with filters or search feature subsets",
}

var featselFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Score every feature of a task with a filter",
	Long: `Scores each feature independently of any learner. Higher is more
relevant; features the filter cannot score rank last.

Examples:
  boreal featsel filter --csv iris.csv --target species --filter infogain
  boreal featsel filter --csv houses.csv --type regr --target price --filter pearson`,
	RunE: runFeatselFilterCommand,
}

var featselSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search feature subsets by resampled evaluation",
	Long: `Searches the space of feature subsets; every candidate subset is
scored by resampling the learner on the task restricted to it.

Examples:
  boreal featsel search --csv iris.csv --target species --learner knn --strategy sfs
  boreal featsel search --csv iris.csv --target species --learner stump \
      --strategy genetic --budget 64 --save`,
	RunE: runFeatselSearchCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	featselCmd.AddCommand(featselFilterCmd, featselSearchCmd)

	addTaskFlags(featselFilterCmd, &fsCSV, &fsType, &fsTarget, &fsTaskID)
	featselFilterCmd.Flags().StringVarP(&fsFilter, "filter", "f", "variance",
		"Filter id (variance, pearson, infogain, chisq)")

	addTaskFlags(featselSearchCmd, &fsCSV, &fsType, &fsTarget, &fsTaskID)
	featselSearchCmd.Flags().StringVarP(&fsLearner, "learner", "l", "", "Learner id")
	addDescFlags(featselSearchCmd, &fsMethod, &fsFolds, &fsReps, &fsIters, &fsSplit, &fsStratify)
	featselSearchCmd.Flags().StringSliceVarP(&fsMeasures, "measures", "m", nil, "Measure ids, first is the objective")
	featselSearchCmd.Flags().StringVarP(&fsStrategy, "strategy", "s", "sfs",
		"Search strategy (exhaustive, sfs, sbs, random, genetic)")
	featselSearchCmd.Flags().IntVarP(&fsBudget, "budget", "b", 0, "Evaluation budget for sampling strategies")
	featselSearchCmd.Flags().Float64Var(&fsAlpha, "alpha", 0, "Minimum improvement for sfs/sbs")
	featselSearchCmd.Flags().IntVar(&fsMaxFeat, "max-features", 0, "Subset size cap")
	featselSearchCmd.Flags().IntVarP(&fsWorkers, "workers", "w", 0, "Parallel resampling iterations (0 = all cores)")
	featselSearchCmd.Flags().Int64Var(&fsSeed, "seed", 1, "RNG seed for splits and search")
	featselSearchCmd.Flags().BoolVar(&fsSave, "save", false, "Archive the result in the database")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runFeatselFilterCommand(cmd *cobra.Command, args []string) error {
	tk, err := loadTask(fsCSV, fsType, fsTarget, fsTaskID)
	if err != nil {
		return err
	}
	values, err := featsel.Compute(fsFilter, tk)
	if err != nil {
		return err
	}
	return printJSON(struct {
		featsel.Values
		Ranked []string `json:"ranked"`
	}{values, values.Ranked()})
}

func runFeatselSearchCommand(cmd *cobra.Command, args []string) error {
	tk, err := loadTask(fsCSV, fsType, fsTarget, fsTaskID)
	if err != nil {
		return err
	}
	lrn, err := buildLearner(fsLearner, nil)
	if err != nil {
		return err
	}
	desc, err := resample.FromConfig(resample.DescConfig{
		Method: fsMethod, Folds: fsFolds, Reps: fsReps,
		Iters: fsIters, Split: fsSplit, Stratify: fsStratify,
	})
	if err != nil {
		return err
	}
	measures, err := buildMeasures(fsMeasures)
	if err != nil {
		return err
	}
	strategy, err := featsel.FromStrategyConfig(featsel.StrategyConfig{
		Method:      fsStrategy,
		Budget:      fsBudget,
		Alpha:       fsAlpha,
		MaxFeatures: fsMaxFeat,
		Seed:        fsSeed,
	})
	if err != nil {
		return err
	}

	ex := resample.NewExecutor(resample.Options{
		Workers: fsWorkers,
		Seed:    fsSeed,
		Logger:  appLogger.Slog(),
	})
	res, err := featsel.NewSelector(ex, appLogger.Slog()).Run(
		cmd.Context(), lrn, tk, desc, measures, strategy)
	if err != nil {
		return err
	}

	if fsSave {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()
		if _, err := archive.Put(cmd.Context(), store.KindFeatSel, res.ID, res); err != nil {
			return err
		}
	}
	return printJSON(res)
}
