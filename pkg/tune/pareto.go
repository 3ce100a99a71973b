// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tune

import (
	"context"
	"math/rand"

	"github.com/AleutianAI/boreal/pkg/measure"
	"github.com/AleutianAI/boreal/pkg/params"
)

// -----------------------------------------------------------------------------
// Multi-Criteria (Pareto) Random Search
// -----------------------------------------------------------------------------

// ParetoRandom samples settings uniformly for a fixed budget, like
// Random, but is intended for runs with two or more measures: the
// Tuner computes the Pareto front of the archive instead of a single
// best setting.
//
// Thread Safety: Safe for concurrent use.
type ParetoRandom struct {
	config *ParetoRandomConfig
}

// ParetoRandomConfig configures Pareto random search.
type ParetoRandomConfig struct {
	// Budget is the number of evaluations.
	Budget int

	// Seed drives sampling.
	Seed int64
}

// DefaultParetoRandomConfig returns the default configuration.
func DefaultParetoRandomConfig() *ParetoRandomConfig {
	return &ParetoRandomConfig{Budget: 100, Seed: 1}
}

// NewParetoRandom creates the control.
func NewParetoRandom(config *ParetoRandomConfig) *ParetoRandom {
	if config == nil {
		config = DefaultParetoRandomConfig()
	}
	if config.Budget < 1 {
		config.Budget = 1
	}
	return &ParetoRandom{config: config}
}

// Name returns "pareto.random".
func (p *ParetoRandom) Name() string { return "pareto.random" }

// Search draws and evaluates Budget settings.
func (p *ParetoRandom) Search(ctx context.Context, set *params.Set, eval Evaluator) error {
	rng := rand.New(rand.NewSource(p.config.Seed))
	for i := 0; i < p.config.Budget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, _ = eval(ctx, set.SampleRandom(rng))
	}
	return nil
}

// ParetoFront returns the non-dominated archive entries under the
// given measures. Entry a dominates b when a is at least as good on
// every measure and strictly better on at least one. Failed entries
// never enter the front.
func ParetoFront(entries []OptPathEntry, measures []measure.Measure) []OptPathEntry {
	var front []OptPathEntry
	for i, a := range entries {
		if a.Error != "" {
			continue
		}
		dominated := false
		for j, b := range entries {
			if i == j || b.Error != "" {
				continue
			}
			if dominates(b, a, measures) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, a)
		}
	}
	return front
}

func dominates(a, b OptPathEntry, measures []measure.Measure) bool {
	strictlyBetter := false
	for _, m := range measures {
		as, bs := a.Scores[m.ID], b.Scores[m.ID]
		if m.IsBetter(bs, as) {
			return false
		}
		if m.IsBetter(as, bs) {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}
