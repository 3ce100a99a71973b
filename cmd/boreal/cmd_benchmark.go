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
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/boreal/pkg/benchmark"
	"github.com/AleutianAI/boreal/pkg/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	bmScenario string // Scenario YAML file
	bmSave     bool   // Archive the result
	bmJSON     bool   // Print the full result as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Run a multi-learner, multi-task benchmark scenario",
	Long: `Runs every learner of a YAML scenario on every of its tasks and
ranks the learners per task by the scenario's first measure.

Examples:
  boreal benchmark --scenario baseline.yaml
  boreal benchmark --scenario baseline.yaml --save --json`,
	RunE: runBenchmarkCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	benchmarkCmd.Flags().StringVarP(&bmScenario, "scenario", "s", "", "Scenario YAML file")
	benchmarkCmd.Flags().BoolVar(&bmSave, "save", false, "Archive the result in the database")
	benchmarkCmd.Flags().BoolVar(&bmJSON, "json", false, "Print the full result as JSON")
	_ = benchmarkCmd.MarkFlagRequired("scenario")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runBenchmarkCommand(cmd *cobra.Command, args []string) error {
	sc, err := benchmark.LoadScenario(bmScenario)
	if err != nil {
		return err
	}

	var archive *store.Store
	if bmSave {
		if archive, err = openArchive(); err != nil {
			return err
		}
		defer archive.Close()
	}

	res, err := benchmark.NewRunner(archive, appLogger.Slog()).Run(cmd.Context(), sc)
	if err != nil {
		return err
	}
	if bmJSON {
		return printJSON(res)
	}
	return printRankTable(res)
}

// printRankTable renders the ranked comparison on stdout.
func printRankTable(res *benchmark.Result) error {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "scenario: %s (%s)\n", res.Scenario, res.ID[:8])
	fmt.Fprintln(w, "rank\tlearner\tmean rank\tper task")
	for i, r := range res.Ranks {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t", i+1, r.LearnerID, r.Mean)
		first := true
		for taskID, rank := range r.PerTask {
			if !first {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprintf(w, "%s=%d", taskID, rank)
			first = false
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "task\tlearner\tscores\terror")
	for _, p := range res.Pairs {
		fmt.Fprintf(w, "%s\t%s\t", p.TaskID, p.LearnerID)
		first := true
		for _, id := range res.MeasureIDs {
			if v, ok := p.Aggr[id]; ok {
				if !first {
					fmt.Fprint(w, ", ")
				}
				fmt.Fprintf(w, "%s=%.4f", id, v)
				first = false
			}
		}
		fmt.Fprintf(w, "\t%s\n", p.Error)
	}
	return w.Flush()
}
