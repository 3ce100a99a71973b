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
	"math"
	"math/rand"

	"github.com/AleutianAI/boreal/pkg/params"
)

// -----------------------------------------------------------------------------
// Simulated Annealing
// -----------------------------------------------------------------------------

// Anneal performs simulated annealing: a random walk through the
// parameter space that always accepts improvements and accepts
// degradations with probability exp(-delta/temperature). The
// temperature decays geometrically, so the walk converges from
// exploration to hill climbing.
//
// Thread Safety: Safe for concurrent use; each Search call owns its
// state.
type Anneal struct {
	config *AnnealConfig
}

// AnnealConfig configures simulated annealing.
type AnnealConfig struct {
	// Iters is the number of evaluations after the initial point.
	Iters int

	// InitTemp is the starting temperature. It should be on the order
	// of a meaningful score difference.
	InitTemp float64

	// Cooling is the per-step geometric decay factor (0,1).
	Cooling float64

	// Step scales the neighborhood perturbation (params.Set.Neighbor).
	Step float64

	// Seed drives the walk.
	Seed int64
}

// DefaultAnnealConfig returns the default configuration.
func DefaultAnnealConfig() *AnnealConfig {
	return &AnnealConfig{
		Iters:    100,
		InitTemp: 0.1,
		Cooling:  0.95,
		Step:     0.15,
		Seed:     1,
	}
}

// NewAnneal creates a simulated annealing control.
func NewAnneal(config *AnnealConfig) *Anneal {
	if config == nil {
		config = DefaultAnnealConfig()
	}
	if config.Iters < 1 {
		config.Iters = 1
	}
	if config.Cooling <= 0 || config.Cooling >= 1 {
		config.Cooling = 0.95
	}
	if config.InitTemp <= 0 {
		config.InitTemp = 0.1
	}
	if config.Step <= 0 {
		config.Step = 0.15
	}
	return &Anneal{config: config}
}

// Name returns "anneal".
func (a *Anneal) Name() string { return "anneal" }

// Search walks the space. A failed evaluation scores +Inf and is
// never accepted, so the walk retreats to the last good state.
func (a *Anneal) Search(ctx context.Context, set *params.Set, eval Evaluator) error {
	rng := rand.New(rand.NewSource(a.config.Seed))

	cur := set.SampleRandom(rng)
	curScore, err := eval(ctx, cur)
	if err != nil {
		curScore = math.Inf(1)
	}

	temp := a.config.InitTemp
	for i := 0; i < a.config.Iters; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		cand := set.Neighbor(rng, cur, a.config.Step)
		candScore, err := eval(ctx, cand)
		if err != nil {
			candScore = math.Inf(1)
		}

		delta := candScore - curScore
		if delta <= 0 || rng.Float64() < math.Exp(-delta/temp) {
			cur, curScore = cand, candScore
		}
		temp *= a.config.Cooling
	}
	return nil
}
