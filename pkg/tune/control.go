// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tune implements hyperparameter search over a params.Set,
// with every proposed setting evaluated by a full resampling run.
//
// Search strategies are Controls: grid, random, simulated annealing,
// genetic, and Pareto (multi-criteria) random search. Each follows
// the same shape: a Config struct with a Default constructor, a New
// function, and a Search method driven by an Evaluator callback.
package tune

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/AleutianAI/boreal/pkg/params"
)

// Evaluator scores one proposed setting. The returned value is
// normalized so that SMALLER IS ALWAYS BETTER (maximized measures are
// negated by the Tuner before reaching a Control). A non-nil error
// marks the candidate as failed; controls treat failed candidates as
// +Inf.
type Evaluator func(ctx context.Context, x params.Assignment) (float64, error)

// Control drives the proposal loop of one search strategy.
type Control interface {
	// Name returns the strategy id, e.g. "grid".
	Name() string

	// Search proposes settings from the set and evaluates them until
	// the strategy's budget is exhausted or ctx is cancelled.
	Search(ctx context.Context, set *params.Set, eval Evaluator) error
}

// OptPathEntry is one archive record: the setting, its aggregated
// scores per measure, and the failure message if the evaluation
// crashed.
type OptPathEntry struct {
	Index     int                `json:"index"`
	X         params.Assignment  `json:"x"`
	Scores    map[string]float64 `json:"scores"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Duration  time.Duration      `json:"duration"`
}

// OptPath is the chronological archive of every evaluated setting.
//
// Thread Safety: safe for concurrent appends; parallel controls may
// evaluate proposals from several goroutines.
type OptPath struct {
	mu      sync.Mutex
	entries []OptPathEntry
}

// NewOptPath creates an empty archive.
func NewOptPath() *OptPath {
	return &OptPath{}
}

// Append records one evaluation and returns its index.
func (p *OptPath) Append(e OptPathEntry) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.Index = len(p.entries)
	p.entries = append(p.entries, e)
	return e.Index
}

// Entries returns a copy of the archive in evaluation order.
func (p *OptPath) Entries() []OptPathEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]OptPathEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of recorded evaluations.
func (p *OptPath) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Best returns the entry with the lowest normalized score for the
// given measure direction. Failed entries are skipped. ok is false
// when every entry failed or the path is empty.
func (p *OptPath) Best(measureID string, minimize bool) (OptPathEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := OptPathEntry{}
	bestScore := math.Inf(1)
	ok := false
	for _, e := range p.entries {
		if e.Error != "" {
			continue
		}
		s, has := e.Scores[measureID]
		if !has || math.IsNaN(s) {
			continue
		}
		if !minimize {
			s = -s
		}
		if s < bestScore {
			bestScore = s
			best = e
			ok = true
		}
	}
	return best, ok
}
