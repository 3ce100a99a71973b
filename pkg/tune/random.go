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

	"github.com/AleutianAI/boreal/pkg/params"
)

// -----------------------------------------------------------------------------
// Random Search
// -----------------------------------------------------------------------------

// Random samples settings uniformly at random (log-uniform for
// log-scale parameters) for a fixed budget of evaluations. Duplicate
// draws are re-sampled a bounded number of times before being
// evaluated anyway.
//
// Thread Safety: Safe for concurrent use; each Search call owns its
// rng.
type Random struct {
	config *RandomConfig
}

// RandomConfig configures random search.
type RandomConfig struct {
	// Budget is the number of evaluations.
	Budget int

	// Seed drives sampling. Zero means a nondeterministic seed is
	// chosen by the Tuner layer; controls use the value as given.
	Seed int64
}

// DefaultRandomConfig returns the default configuration.
func DefaultRandomConfig() *RandomConfig {
	return &RandomConfig{Budget: 100, Seed: 1}
}

// NewRandom creates a random search control.
func NewRandom(config *RandomConfig) *Random {
	if config == nil {
		config = DefaultRandomConfig()
	}
	if config.Budget < 1 {
		config.Budget = 1
	}
	return &Random{config: config}
}

// Name returns "random".
func (r *Random) Name() string { return "random" }

// Search draws and evaluates Budget settings.
func (r *Random) Search(ctx context.Context, set *params.Set, eval Evaluator) error {
	rng := rand.New(rand.NewSource(r.config.Seed))
	seen := make(map[string]struct{})

	for i := 0; i < r.config.Budget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		x := set.SampleRandom(rng)
		for attempt := 0; attempt < 10; attempt++ {
			if _, dup := seen[x.String()]; !dup {
				break
			}
			x = set.SampleRandom(rng)
		}
		seen[x.String()] = struct{}{}
		_, _ = eval(ctx, x)
	}
	return nil
}
