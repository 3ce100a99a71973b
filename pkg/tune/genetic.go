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
	"sort"

	"github.com/AleutianAI/boreal/pkg/params"
)

// -----------------------------------------------------------------------------
// Genetic Algorithm
// -----------------------------------------------------------------------------

// Genetic evolves a population of settings: tournament selection,
// uniform crossover over parameter names, mutation via the parameter
// set's Neighbor perturbation, and elitism carrying the best
// individuals into the next generation unchanged.
//
// Thread Safety: Safe for concurrent use; each Search call owns its
// population.
type Genetic struct {
	config *GeneticConfig
}

// GeneticConfig configures the genetic algorithm.
type GeneticConfig struct {
	// Generations is the number of evolved generations after the
	// initial population.
	Generations int

	// PopSize is the population size.
	PopSize int

	// CrossoverRate is the probability a child is produced by
	// crossover rather than cloning the first parent.
	CrossoverRate float64

	// MutationStep scales the Neighbor perturbation applied to every
	// child.
	MutationStep float64

	// Elites is the number of best individuals copied unchanged.
	Elites int

	// Seed drives selection, crossover, and mutation.
	Seed int64
}

// DefaultGeneticConfig returns the default configuration.
func DefaultGeneticConfig() *GeneticConfig {
	return &GeneticConfig{
		Generations:   10,
		PopSize:       20,
		CrossoverRate: 0.8,
		MutationStep:  0.1,
		Elites:        2,
		Seed:          1,
	}
}

// NewGenetic creates a genetic search control.
func NewGenetic(config *GeneticConfig) *Genetic {
	if config == nil {
		config = DefaultGeneticConfig()
	}
	if config.PopSize < 2 {
		config.PopSize = 2
	}
	if config.Generations < 1 {
		config.Generations = 1
	}
	if config.Elites < 0 || config.Elites >= config.PopSize {
		config.Elites = 1
	}
	if config.CrossoverRate < 0 || config.CrossoverRate > 1 {
		config.CrossoverRate = 0.8
	}
	if config.MutationStep <= 0 {
		config.MutationStep = 0.1
	}
	return &Genetic{config: config}
}

// Name returns "genetic".
func (g *Genetic) Name() string { return "genetic" }

type individual struct {
	x     params.Assignment
	score float64
}

// Search evolves the population. Failed evaluations score +Inf and
// die out through selection.
func (g *Genetic) Search(ctx context.Context, set *params.Set, eval Evaluator) error {
	rng := rand.New(rand.NewSource(g.config.Seed))

	pop := make([]individual, g.config.PopSize)
	for i := range pop {
		if err := ctx.Err(); err != nil {
			return err
		}
		x := set.SampleRandom(rng)
		pop[i] = individual{x: x, score: g.scoreOf(ctx, eval, x)}
	}

	for gen := 0; gen < g.config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sort.Slice(pop, func(a, b int) bool { return pop[a].score < pop[b].score })

		next := make([]individual, 0, g.config.PopSize)
		next = append(next, pop[:g.config.Elites]...)

		for len(next) < g.config.PopSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			p1 := g.tournament(rng, pop)
			p2 := g.tournament(rng, pop)

			child := p1.x.Clone()
			if rng.Float64() < g.config.CrossoverRate {
				child = crossover(rng, p1.x, p2.x)
			}
			child = set.Repair(rng, set.Neighbor(rng, child, g.config.MutationStep))
			next = append(next, individual{x: child, score: g.scoreOf(ctx, eval, child)})
		}
		pop = next
	}
	return nil
}

func (g *Genetic) scoreOf(ctx context.Context, eval Evaluator, x params.Assignment) float64 {
	s, err := eval(ctx, x)
	if err != nil {
		return math.Inf(1)
	}
	return s
}

// tournament picks the better of two random individuals.
func (g *Genetic) tournament(rng *rand.Rand, pop []individual) individual {
	a := pop[rng.Intn(len(pop))]
	b := pop[rng.Intn(len(pop))]
	if a.score <= b.score {
		return a
	}
	return b
}

// crossover mixes two parents uniformly by parameter name. Parameters
// present in only one parent (conditional params) are inherited from
// that parent with probability 1/2.
func crossover(rng *rand.Rand, a, b params.Assignment) params.Assignment {
	child := make(params.Assignment, len(a))
	names := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		names[k] = struct{}{}
	}
	for k := range b {
		names[k] = struct{}{}
	}
	for k := range names {
		av, aok := a[k]
		bv, bok := b[k]
		switch {
		case aok && bok:
			if rng.Intn(2) == 0 {
				child[k] = av
			} else {
				child[k] = bv
			}
		case aok:
			if rng.Intn(2) == 0 {
				child[k] = av
			}
		case bok:
			if rng.Intn(2) == 0 {
				child[k] = bv
			}
		}
	}
	return child
}
