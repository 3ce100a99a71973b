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
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/boreal/pkg/serve"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	svAddr  string // Listen address
	svDebug bool   // Gin debug mode
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the result archive over a read-only HTTP API",
	Long: `Serves archived results over HTTP with Prometheus metrics on
/metrics. The server shuts down gracefully on SIGINT/SIGTERM.

Endpoints:
  GET /healthz
  GET /metrics
  GET /v1/kinds
  GET /v1/results/:kind?limit=n
  GET /v1/result/:id

Examples:
  boreal serve
  boreal serve --addr :9090 --db /var/lib/boreal`,
	RunE: runServeCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	serveCmd.Flags().StringVar(&svAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&svDebug, "debug", false, "Enable verbose HTTP debug mode")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runServeCommand(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	srv, err := serve.NewServer(serve.Config{Addr: svAddr, Debug: svDebug}, archive, appLogger.Slog())
	if err != nil {
		return err
	}
	if err := srv.Run(cmd.Context()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
