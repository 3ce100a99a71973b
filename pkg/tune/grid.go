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

	"github.com/AleutianAI/boreal/pkg/params"
)

// -----------------------------------------------------------------------------
// Grid Search
// -----------------------------------------------------------------------------

// Grid visits the full Cartesian product of discretized parameter
// values: numeric parameters at Resolution evenly spaced points
// (log-spaced under LogScale), integers at up to Resolution values,
// discrete and logical parameters at all levels. Settings violating a
// Requires predicate are skipped by the params package.
//
// Thread Safety: Safe for concurrent use.
type Grid struct {
	config *GridConfig
}

// GridConfig configures grid search.
type GridConfig struct {
	// Resolution is the number of points per numeric dimension.
	Resolution int
}

// DefaultGridConfig returns the default configuration.
func DefaultGridConfig() *GridConfig {
	return &GridConfig{Resolution: 10}
}

// NewGrid creates a grid search control.
func NewGrid(config *GridConfig) *Grid {
	if config == nil {
		config = DefaultGridConfig()
	}
	if config.Resolution < 1 {
		config.Resolution = 1
	}
	return &Grid{config: config}
}

// Name returns "grid".
func (g *Grid) Name() string { return "grid" }

// Search evaluates every grid point. Failed candidates are recorded
// by the evaluator and do not stop the sweep.
func (g *Grid) Search(ctx context.Context, set *params.Set, eval Evaluator) error {
	for _, x := range set.Grid(g.config.Resolution) {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, _ = eval(ctx, x)
	}
	return nil
}
