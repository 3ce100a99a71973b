// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLevelString(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerExporter(t *testing.T) {
	exp := NewBufferedExporter()
	logger := New(Config{Quiet: true, Service: "tune", Exporter: exp})

	logger.Info("proposal evaluated", "iter", 3, "score", 0.12)
	logger.Error("training failed", "learner", "knn")

	entries := exp.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 exported entries, got %d", len(entries))
	}
	if entries[0].Message != "proposal evaluated" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
	if entries[0].Service != "tune" {
		t.Errorf("expected service tune, got %q", entries[0].Service)
	}
	if entries[0].Attrs["iter"] != 3 {
		t.Errorf("expected iter attr 3, got %v", entries[0].Attrs["iter"])
	}
	if entries[1].Level != "ERROR" {
		t.Errorf("expected ERROR level, got %q", entries[1].Level)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	exp := NewBufferedExporter()
	logger := New(Config{Quiet: true, Level: LevelWarn, Exporter: exp})

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")

	if got := len(exp.Entries()); got != 1 {
		t.Fatalf("expected 1 exported entry, got %d", got)
	}
}

func TestLoggerFileOutput(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Quiet: true, LogDir: dir, Service: "benchmark"})

	logger.Info("run complete", "tasks", 2)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "benchmark_*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file, got %v (err %v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestWith(t *testing.T) {
	exp := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exp})

	child := logger.With("component", "resample")
	child.Info("iteration done")

	if got := len(exp.Entries()); got != 1 {
		t.Fatalf("expected child logger to share exporter, got %d entries", got)
	}
}
