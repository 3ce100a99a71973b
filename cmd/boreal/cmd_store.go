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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/boreal/pkg/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	stKind  string // Result kind for 'store list'
	stLimit int    // Maximum listed records
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the result archive",
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived results, newest first",
	Long: `Examples:
  boreal store list --kind resample
  boreal store list --kind benchmark --limit 5`,
	RunE: runStoreListCommand,
}

var storeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an archived result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreGetCommand,
}

var storeRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an archived result",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreRmCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	storeCmd.AddCommand(storeListCmd, storeGetCmd, storeRmCmd)
	storeListCmd.Flags().StringVarP(&stKind, "kind", "k", "resample",
		"Result kind (resample, tune, featsel, benchmark)")
	storeListCmd.Flags().IntVar(&stLimit, "limit", 20, "Maximum number of records")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runStoreListCommand(cmd *cobra.Command, args []string) error {
	kind, err := store.ParseKind(stKind)
	if err != nil {
		return err
	}
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	records, err := archive.List(cmd.Context(), kind, stLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no records")
		return nil
	}
	for _, rec := range records {
		fmt.Println(rec.Summary())
	}
	return nil
}

func runStoreGetCommand(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	rec, err := archive.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runStoreRmCommand(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	if err := archive.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("deleted", args[0])
	return nil
}
