// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// boreal is the command line interface to the experiment framework:
// resampling, tuning, feature selection, benchmarks, the result
// archive, and the result API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/boreal/pkg/logging"
)

// Version is the CLI version.
const Version = "0.1.0"

// --- Global Command Variables ---
var (
	logLevel string
	logJSON  bool
	logQuiet bool
	dbPath   string

	appLogger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "boreal",
		Short: "A cli for running and archiving machine learning experiments",
		Long: `Boreal runs machine learning experiments: resampled evaluation,
hyperparameter tuning, feature selection, and multi-learner benchmarks,
with results archived in an embedded database and served over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			appLogger = logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				Service: "cli",
				JSON:    logJSON,
				Quiet:   logQuiet,
			})
			slog.SetDefault(appLogger.Slog())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appLogger != nil {
				_ = appLogger.Close()
			}
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the boreal version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("boreal", Version)
		},
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Write logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&logQuiet, "quiet", "q", false,
		"Suppress log output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "~/.boreal/archive",
		"Directory of the result archive")

	rootCmd.AddCommand(resampleCmd, tuneCmd, featselCmd, benchmarkCmd, storeCmd, serveCmd, versionCmd)
}
